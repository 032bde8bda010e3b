package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Issuer status values.
const (
	IssuerApproved = 1
	IssuerRejected = 2
)

// Issuer is an account authorized (via an on-chain role) to issue
// certificates. Owned by the user-management subsystem; this service reads
// it and increments the issued counter.
type Issuer struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name               string     `gorm:"column:name" json:"name"`
	Email              string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	IssuerID           string     `gorm:"column:issuer_id;not null" json:"issuerId"` // chain address
	Status             int        `gorm:"column:status;not null;default:0" json:"status"`
	Approved           bool       `gorm:"column:approved;not null;default:false" json:"approved"`
	RejectedDate       *time.Time `gorm:"column:rejected_date" json:"rejectedDate,omitempty"`
	CertificatesIssued int        `gorm:"column:certificates_issued;not null;default:0" json:"certificatesIssued"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (Issuer) TableName() string {
	return "issuers"
}

// BeforeCreate sets the UUID if not set.
func (i *Issuer) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
