// Package issuers manages issuer approval. Approving grants the issuer
// role on the certificate contract to the issuer's signing address;
// rejecting revokes it. The database status mirrors the chain role.
package issuers

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/emails"
	"certchain-backend/internal/models"
	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
)

var ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Service bundles issuer-management collaborators. Emails may be nil.
type Service struct {
	DB      *gorm.DB
	Gateway chain.Gateway
	Emails  emails.Sender
	Cfg     *config.Config
}

// Result reports the decision applied to an issuer.
type Result struct {
	Email           string `json:"email"`
	Status          int    `json:"status"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

// Validate applies an approve or reject decision. The chain role change
// happens before the status flip so a grant failure never leaves an
// approved issuer without the on-chain role.
func (s *Service) Validate(ctx context.Context, email string, status int) (*Result, *apperr.Error) {
	if status != models.IssuerApproved && status != models.IssuerRejected {
		return nil, apperr.New(apperr.Validation, codes.MsgProvideValidStatus)
	}

	var issuer models.Issuer
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&issuer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.Validation, codes.MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}

	if !ethAddressRe.MatchString(issuer.IssuerID) {
		return nil, apperr.New(apperr.Validation, codes.MsgInvalidEthereum)
	}

	if status == models.IssuerApproved {
		return s.approve(ctx, &issuer)
	}
	return s.reject(ctx, &issuer)
}

func (s *Service) approve(ctx context.Context, issuer *models.Issuer) (*Result, *apperr.Error) {
	if issuer.Approved && issuer.Status == models.IssuerApproved {
		return nil, apperr.New(apperr.Validation, codes.MsgExistedVerified)
	}

	hasRole, err := s.Gateway.HasRole(ctx, s.Cfg.IssuerRole, issuer.IssuerID)
	if err != nil {
		return nil, apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}
	var txHash string
	if !hasRole {
		tx, err := s.Gateway.GrantRole(ctx, s.Cfg.IssuerRole, issuer.IssuerID)
		if err != nil {
			return nil, mapRoleError(err)
		}
		txHash = tx.Hash
	}

	update := map[string]interface{}{
		"status":        models.IssuerApproved,
		"approved":      true,
		"rejected_date": nil,
	}
	if err := s.DB.WithContext(ctx).Model(issuer).Updates(update).Error; err != nil {
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}

	s.notify(issuer, true)
	return &Result{Email: issuer.Email, Status: models.IssuerApproved, TransactionHash: txHash}, nil
}

func (s *Service) reject(ctx context.Context, issuer *models.Issuer) (*Result, *apperr.Error) {
	if issuer.Status == models.IssuerRejected {
		return nil, apperr.New(apperr.Validation, codes.MsgRejectedAlready)
	}

	hasRole, err := s.Gateway.HasRole(ctx, s.Cfg.IssuerRole, issuer.IssuerID)
	if err != nil {
		return nil, apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}
	var txHash string
	if hasRole {
		tx, err := s.Gateway.RevokeRole(ctx, s.Cfg.IssuerRole, issuer.IssuerID)
		if err != nil {
			return nil, mapRoleError(err)
		}
		txHash = tx.Hash
	}

	now := time.Now()
	update := map[string]interface{}{
		"status":        models.IssuerRejected,
		"approved":      false,
		"rejected_date": &now,
	}
	if err := s.DB.WithContext(ctx).Model(issuer).Updates(update).Error; err != nil {
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}

	s.notify(issuer, false)
	return &Result{Email: issuer.Email, Status: models.IssuerRejected, TransactionHash: txHash}, nil
}

// notify emails the issuer about the decision without blocking the
// response or failing it.
func (s *Service) notify(issuer *models.Issuer, approved bool) {
	if s.Emails == nil {
		return
	}
	email, name := issuer.Email, issuer.Name
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var err error
		if approved {
			err = s.Emails.SendIssuerApproved(ctx, email, name)
		} else {
			err = s.Emails.SendIssuerRejected(ctx, email, name)
		}
		if err != nil {
			log.Warn().Err(err).Str("email", email).Msg("issuer notification failed")
		}
	}()
}

func mapRoleError(err error) *apperr.Error {
	var rev *chain.RevertError
	if errors.As(err, &rev) {
		return apperr.New(apperr.Chain, codes.MsgFailedOpsAtBlockchain).WithDetails(rev.Reason)
	}
	return apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
}
