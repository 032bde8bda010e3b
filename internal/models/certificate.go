package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate status values.
const (
	CertificateActive = 1
)

// Certificate is one single-issuance record. Immutable after creation
// except for status flips handled elsewhere.
type Certificate struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	IssuerID          string    `gorm:"column:issuer_id;not null;index" json:"issuerId"`
	TransactionHash   string    `gorm:"column:transaction_hash;not null" json:"transactionHash"`
	CertificateHash   string    `gorm:"column:certificate_hash;not null" json:"certificateHash"`
	CertificateNumber string    `gorm:"column:certificate_number;not null;uniqueIndex" json:"certificateNumber"`
	Name              string    `gorm:"column:name;not null" json:"name"`
	Course            string    `gorm:"column:course;not null" json:"course"`
	GrantDate         string    `gorm:"column:grant_date;not null" json:"grantDate"`
	ExpirationDate    string    `gorm:"column:expiration_date;not null" json:"expirationDate"`
	CertificateStatus int       `gorm:"column:certificate_status;not null;default:1" json:"certificateStatus"`
	IssueDate         time.Time `gorm:"column:issue_date;not null" json:"issueDate"`
}

func (Certificate) TableName() string {
	return "certificates"
}

func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.IssueDate.IsZero() {
		c.IssueDate = time.Now()
	}
	return nil
}
