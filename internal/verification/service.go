// Package verification answers whether a certificate is anchored on chain.
// Three entry points exist: a stamped PDF, a bare certificate number and an
// encrypted QR payload. Positive chain verdicts are cached; negative ones
// never are, so a certificate issued moments ago is not shadowed by a
// stale miss.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/models"
	"certchain-backend/internal/pdfcert"
	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/encrypt"
)

const cacheTTL = time.Hour

// Service bundles verification collaborators. Cache may be nil; every
// lookup then goes to the chain.
type Service struct {
	DB      *gorm.DB
	Gateway chain.Gateway
	Codec   *encrypt.Codec
	Cache   *redis.Client
	Cfg     *config.Config
}

// PDFResult is the outcome of verifying an uploaded certificate PDF.
type PDFResult struct {
	Verified bool                     `json:"verified"`
	Message  string                   `json:"message"`
	Detail   *pdfcert.CertificateInfo `json:"detail,omitempty"`
}

// IDResult is the outcome of verifying by certificate number.
type IDResult struct {
	Verified          bool   `json:"verified"`
	Message           string `json:"message"`
	CertificateNumber string `json:"certificateNumber"`
	Name              string `json:"name,omitempty"`
	Course            string `json:"course,omitempty"`
	GrantDate         string `json:"grantDate,omitempty"`
	ExpirationDate    string `json:"expirationDate,omitempty"`
	TransactionHash   string `json:"transactionHash,omitempty"`
	BatchID           int    `json:"batchId,omitempty"`
}

// VerifyPDF reads the QR from an uploaded certificate. A readable QR whose
// payload resolves to certificate fields carrying a chain link counts as
// verified; a missing or undecodable QR is a negative verdict, not an error.
func (s *Service) VerifyPDF(ctx context.Context, pdfPath string) (*PDFResult, *apperr.Error) {
	pages, err := pdfcert.PageCount(pdfPath)
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgInvalidPdfTemplate)
	}
	if pages != 1 {
		return nil, apperr.New(apperr.Artifact, codes.MsgMultiPagePdf)
	}

	qrText, ok := pdfcert.ExtractQRText(pdfPath)
	if !ok {
		return &PDFResult{Verified: false, Message: codes.MsgCertNotValid}, nil
	}
	return s.resultFromQR(qrText), nil
}

func (s *Service) resultFromQR(qrText string) *PDFResult {
	info, err := pdfcert.ParseCertificateInfo(qrText, s.Codec)
	if err != nil {
		return &PDFResult{Verified: false, Message: codes.MsgCertNotValid}
	}
	// fields without a transaction link prove nothing on chain
	if info.PolygonURL == "" {
		return &PDFResult{Verified: false, Message: codes.MsgCertNotValid}
	}
	return &PDFResult{Verified: true, Message: codes.MsgCertValid, Detail: &info}
}

// VerifyByID checks both issuance collections and asks the chain whether
// the stored hash is anchored. Batch records are verified against their
// batch root via the persisted inclusion proof.
func (s *Service) VerifyByID(ctx context.Context, certificateNumber string) (*IDResult, *apperr.Error) {
	if certificateNumber == "" {
		return nil, apperr.New(apperr.Validation, codes.MsgCertIdRequired)
	}

	if res := s.cached(ctx, certificateNumber); res != nil {
		return res, nil
	}

	var single models.Certificate
	err := s.DB.WithContext(ctx).Where("certificate_number = ?", certificateNumber).First(&single).Error
	switch {
	case err == nil:
		return s.verifySingle(ctx, &single)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}

	var batch models.BatchCertificate
	err = s.DB.WithContext(ctx).Where("certificate_number = ?", certificateNumber).First(&batch).Error
	switch {
	case err == nil:
		return s.verifyBatch(ctx, &batch)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.New(apperr.Validation, codes.MsgCertNotExist)
	default:
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}
}

func (s *Service) verifySingle(ctx context.Context, rec *models.Certificate) (*IDResult, *apperr.Error) {
	valid, err := s.Gateway.VerifyCertificateByID(ctx, rec.CertificateNumber)
	if err != nil {
		return nil, apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}

	res := &IDResult{
		Verified:          valid,
		Message:           codes.MsgCertNotValid,
		CertificateNumber: rec.CertificateNumber,
	}
	if valid {
		res.Message = codes.MsgCertValid
		res.Name = rec.Name
		res.Course = rec.Course
		res.GrantDate = rec.GrantDate
		res.ExpirationDate = rec.ExpirationDate
		res.TransactionHash = rec.TransactionHash
		s.cache(ctx, res)
	}
	return res, nil
}

func (s *Service) verifyBatch(ctx context.Context, rec *models.BatchCertificate) (*IDResult, *apperr.Error) {
	var proof []string
	if err := json.Unmarshal(rec.ProofHash, &proof); err != nil {
		return nil, apperr.New(apperr.Persistence, codes.MsgDBFailed)
	}

	// batch ids are 1-based in storage, 0-based on chain
	valid, err := s.Gateway.VerifyCertificateInBatch(ctx, rec.BatchID-1, rec.CertificateHash, proof)
	if err != nil {
		return nil, apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}

	res := &IDResult{
		Verified:          valid,
		Message:           codes.MsgCertNotValid,
		CertificateNumber: rec.CertificateNumber,
		BatchID:           rec.BatchID,
	}
	if valid {
		res.Message = codes.MsgCertValid
		res.Name = rec.Name
		res.Course = rec.Course
		res.GrantDate = rec.GrantDate
		res.ExpirationDate = rec.ExpirationDate
		res.TransactionHash = rec.TransactionHash
		s.cache(ctx, res)
	}
	return res, nil
}

// Decode resolves an encrypted QR payload without touching the chain.
// Used by the public verification page the QR URL points at.
func (s *Service) Decode(ctx context.Context, data, iv string) (*pdfcert.CertificateInfo, *apperr.Error) {
	plain, err := s.Codec.Decrypt(data, iv)
	if err != nil {
		return nil, apperr.New(apperr.Validation, codes.MsgNotVerified)
	}
	var p pdfcert.Payload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		return nil, apperr.New(apperr.Validation, codes.MsgNotVerified)
	}
	return &pdfcert.CertificateInfo{
		CertificateNumber: p.CertificateNumber,
		Name:              p.Name,
		CourseName:        p.CourseName,
		GrantDate:         p.GrantDate,
		ExpirationDate:    p.ExpirationDate,
		PolygonURL:        p.PolygonLink,
	}, nil
}

func cacheKey(certificateNumber string) string {
	return "verify:" + certificateNumber
}

func (s *Service) cached(ctx context.Context, certificateNumber string) *IDResult {
	if s.Cache == nil {
		return nil
	}
	raw, err := s.Cache.Get(ctx, cacheKey(certificateNumber)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("verification cache read failed")
		}
		return nil
	}
	var res IDResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}
	return &res
}

func (s *Service) cache(ctx context.Context, res *IDResult) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, cacheKey(res.CertificateNumber), raw, cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("verification cache write failed")
	}
}
