package issuance

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"certchain-backend/internal/models"
	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/dates"
)

// specialChars are rejected in certificate numbers; they break filename
// matching in bulk flows and QR payload parsing in the legacy format.
const specialChars = `!@#$%^&*(),.?":{}|<>`

// IssueInput is the normalized single-issuance request.
type IssueInput struct {
	Email             string `json:"email"`
	CertificateNumber string `json:"certificateNumber"`
	Name              string `json:"name"`
	CourseName        string `json:"courseName"`
	GrantDate         string `json:"grantDate"`
	ExpirationDate    string `json:"expirationDate"`
}

// validateRequest runs the fixed validation ladder and returns the issuer
// plus the input with dates normalized to MM/DD/YYYY. The first failing
// step determines the response; later steps are not evaluated.
func (s *Service) validateRequest(ctx context.Context, in IssueInput) (*models.Issuer, IssueInput, *apperr.Error) {
	issuer, aerr := s.approvedIssuer(ctx, in.Email)
	if aerr != nil {
		return nil, in, aerr
	}

	if in.CertificateNumber != "" {
		taken, err := s.certificateExists(ctx, in.CertificateNumber)
		if err != nil {
			return nil, in, apperr.New(apperr.Persistence, codes.MsgDBFailed)
		}
		if taken {
			return nil, in, apperr.New(apperr.Validation, codes.MsgCertIssued)
		}
	}

	if in.CertificateNumber == "" || in.Name == "" || in.CourseName == "" ||
		in.GrantDate == "" || in.ExpirationDate == "" {
		return nil, in, apperr.New(apperr.Validation, codes.MsgPlsEnterValid)
	}

	grant, ok := dates.ConvertDateFormat(in.GrantDate)
	if !ok {
		return nil, in, apperr.New(apperr.Validation, codes.MsgProvideValidDates)
	}
	expiration, ok := dates.ConvertDateFormat(in.ExpirationDate)
	if !ok {
		return nil, in, apperr.New(apperr.Validation, codes.MsgProvideValidDates)
	}

	cmp, err := dates.CompareDates(grant, expiration)
	if err != nil || cmp != dates.Earlier {
		return nil, in, apperr.New(apperr.Validation, codes.MsgProvideValidDates)
	}

	if n := len(in.CertificateNumber); n < s.Cfg.MinCertLength || n > s.Cfg.MaxCertLength {
		return nil, in, apperr.New(apperr.Validation, codes.MsgCertLength)
	}
	if strings.ContainsAny(in.CertificateNumber, specialChars) {
		return nil, in, apperr.New(apperr.Validation, codes.MsgCertBadCharacters)
	}

	in.GrantDate = grant
	in.ExpirationDate = expiration
	return issuer, in, nil
}

// approvedIssuer resolves the issuer by email and checks approval status.
func (s *Service) approvedIssuer(ctx context.Context, email string) (*models.Issuer, *apperr.Error) {
	if email == "" {
		return nil, apperr.New(apperr.Authorization, codes.MsgInvalidIssuer)
	}
	var issuer models.Issuer
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&issuer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.Authorization, codes.MsgInvalidIssuer)
	}
	if err != nil {
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}
	if !issuer.Approved || issuer.Status != models.IssuerApproved {
		return nil, apperr.New(apperr.Authorization, codes.MsgUnauthIssuer)
	}
	return &issuer, nil
}

// certificateExists checks both issuance collections for the number.
func (s *Service) certificateExists(ctx context.Context, certificateNumber string) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&models.Certificate{}).
		Where("certificate_number = ?", certificateNumber).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.BatchCertificate{}).
		Where("certificate_number = ?", certificateNumber).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
