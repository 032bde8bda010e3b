package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BatchCertificate is one leaf of a Merkle batch issuance. All records
// sharing a BatchID reference the same on-chain root transaction; the stored
// proof must verify against that root for the stored certificate hash.
//
// ProofHash is the raw sibling path as a JSON array of 0x-prefixed hex
// strings; EncodedProof is the keccak256 hex of the concatenated raw proof
// bytes, kept for audit only.
type BatchCertificate struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	IssuerID          string         `gorm:"column:issuer_id;not null;index" json:"issuerId"`
	BatchID           int            `gorm:"column:batch_id;not null;index" json:"batchId"`
	ProofHash         datatypes.JSON `gorm:"column:proof_hash;not null" json:"proofHash"`
	EncodedProof      string         `gorm:"column:encoded_proof;not null" json:"encodedProof"`
	TransactionHash   string         `gorm:"column:transaction_hash;not null" json:"transactionHash"`
	CertificateHash   string         `gorm:"column:certificate_hash;not null" json:"certificateHash"`
	CertificateNumber string         `gorm:"column:certificate_number;not null;uniqueIndex" json:"certificateNumber"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	Course            string         `gorm:"column:course;not null" json:"course"`
	GrantDate         string         `gorm:"column:grant_date;not null" json:"grantDate"`
	ExpirationDate    string         `gorm:"column:expiration_date;not null" json:"expirationDate"`
	IssueDate         time.Time      `gorm:"column:issue_date;not null" json:"issueDate"`
}

func (BatchCertificate) TableName() string {
	return "batch_certificates"
}

func (b *BatchCertificate) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.IssueDate.IsZero() {
		b.IssueDate = time.Now()
	}
	return nil
}
