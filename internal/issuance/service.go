// Package issuance orchestrates the four certificate issuance flows:
// single, single with PDF, bulk single and bulk batch. All flows share
// one validation ladder and one chain submission policy; they differ in
// how many chain transactions anchor the batch and in the artifacts
// returned to the caller.
package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/excel"
	"certchain-backend/internal/merkle"
	"certchain-backend/internal/models"
	"certchain-backend/internal/pdfcert"
	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/encrypt"
	"certchain-backend/internal/pkg/hashing"
	"certchain-backend/internal/pkg/qrgen"
	"certchain-backend/internal/storage"
)

// Service bundles the collaborators of every issuance flow. Store may be
// nil; backups are then skipped.
type Service struct {
	DB        *gorm.DB
	Submitter *chain.Submitter
	Codec     *encrypt.Codec
	Store     *storage.Store
	Cfg       *config.Config
}

// IssueResult is the outcome of a single issuance without a PDF.
type IssueResult struct {
	CertificateNumber string `json:"certificateNumber"`
	TransactionHash   string `json:"transactionHash"`
	PolygonLink       string `json:"polygonLink"`
	VerifyURL         string `json:"verifyUrl"`
	QRCode            []byte `json:"qrCode"`
}

// PDFResult is the outcome of a single issuance with a rendered PDF.
type PDFResult struct {
	IssueResult
	PDFPath string `json:"-"`
}

// BulkResult is the outcome of either bulk flow: a zip of rendered
// certificates plus the anchoring transaction.
type BulkResult struct {
	Archive         []byte `json:"-"`
	Filename        string `json:"filename"`
	Issued          int    `json:"issued"`
	BatchID         int    `json:"batchId,omitempty"`
	TransactionHash string `json:"transactionHash"`
	PolygonLink     string `json:"polygonLink"`
}

// IssueCertification anchors one certificate on chain and returns the QR
// code a caller can embed themselves.
func (s *Service) IssueCertification(ctx context.Context, in IssueInput) (*IssueResult, *apperr.Error) {
	issuer, in, aerr := s.validateRequest(ctx, in)
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.preSubmissionChecks(ctx, issuer, in.CertificateNumber); aerr != nil {
		return nil, aerr
	}

	certHash := hashing.CombinedHash(hashing.Fields{
		CertificateNumber: in.CertificateNumber,
		Name:              in.Name,
		CourseName:        in.CourseName,
		GrantDate:         in.GrantDate,
		ExpirationDate:    in.ExpirationDate,
	})

	tx, err := s.Submitter.IssueCertificateWithRetry(ctx, in.CertificateNumber, certHash)
	if err != nil {
		return nil, mapChainError(err)
	}

	verifyURL, qr, err := s.qrFor(in, tx.LinkURL)
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgInternalError)
	}

	if aerr := s.persistCertificate(ctx, issuer, in, certHash, tx); aerr != nil {
		return nil, aerr
	}

	return &IssueResult{
		CertificateNumber: in.CertificateNumber,
		TransactionHash:   tx.Hash,
		PolygonLink:       tx.LinkURL,
		VerifyURL:         verifyURL,
		QRCode:            qr,
	}, nil
}

// IssuePDFCertification anchors one certificate and stamps the uploaded
// template with the QR code and transaction link. The template is checked
// before any chain interaction so a bad upload never burns a transaction.
func (s *Service) IssuePDFCertification(ctx context.Context, in IssueInput, templatePath, outDir string) (*PDFResult, *apperr.Error) {
	issuer, in, aerr := s.validateRequest(ctx, in)
	if aerr != nil {
		return nil, aerr
	}
	if aerr := validateTemplate(templatePath); aerr != nil {
		return nil, aerr
	}
	if aerr := s.preSubmissionChecks(ctx, issuer, in.CertificateNumber); aerr != nil {
		return nil, aerr
	}

	certHash := hashing.CombinedHash(hashing.Fields{
		CertificateNumber: in.CertificateNumber,
		Name:              in.Name,
		CourseName:        in.CourseName,
		GrantDate:         in.GrantDate,
		ExpirationDate:    in.ExpirationDate,
	})

	tx, err := s.Submitter.IssueCertificateWithRetry(ctx, in.CertificateNumber, certHash)
	if err != nil {
		return nil, mapChainError(err)
	}

	verifyURL, qr, err := s.qrFor(in, tx.LinkURL)
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgInternalError)
	}

	outPath := filepath.Join(outDir, in.CertificateNumber+".pdf")
	if err := pdfcert.Render(templatePath, outPath, tx.LinkURL, qr); err != nil {
		log.Error().Err(err).Str("certificate", in.CertificateNumber).Msg("render failed after chain anchor")
		return nil, apperr.New(apperr.Artifact, codes.MsgInternalError)
	}

	if aerr := s.persistCertificate(ctx, issuer, in, certHash, tx); aerr != nil {
		return nil, aerr
	}

	return &PDFResult{
		IssueResult: IssueResult{
			CertificateNumber: in.CertificateNumber,
			TransactionHash:   tx.Hash,
			PolygonLink:       tx.LinkURL,
			VerifyURL:         verifyURL,
			QRCode:            qr,
		},
		PDFPath: outPath,
	}, nil
}

// BulkSingleIssue processes a zip of templates plus a spreadsheet, anchoring
// every certificate with its own transaction. Returns the zip of stamped
// certificates.
func (s *Service) BulkSingleIssue(ctx context.Context, email, zipPath, workDir string) (*BulkResult, *apperr.Error) {
	issuer, inputs, b, aerr := s.prepareBulk(ctx, email, zipPath, workDir)
	if aerr != nil {
		return nil, aerr
	}

	outDir := filepath.Join(workDir, "issued")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgInternalError)
	}

	records := make([]models.Certificate, 0, len(inputs))
	outPaths := make([]string, 0, len(inputs))
	var lastTx chain.TxResult
	for _, in := range inputs {
		tplPath, ok := b.Templates[in.CertificateNumber]
		if !ok {
			return nil, apperr.New(apperr.Artifact, codes.MsgNoEntryMatchFound).WithDetails(in.CertificateNumber)
		}

		certHash := hashing.CombinedHash(hashing.Fields{
			CertificateNumber: in.CertificateNumber,
			Name:              in.Name,
			CourseName:        in.CourseName,
			GrantDate:         in.GrantDate,
			ExpirationDate:    in.ExpirationDate,
		})

		tx, err := s.Submitter.IssueCertificateWithRetry(ctx, in.CertificateNumber, certHash)
		if err != nil {
			return nil, mapChainError(err).WithDetails(fmt.Sprintf("failed at certificate %s", in.CertificateNumber))
		}
		lastTx = tx

		_, qr, err := s.qrFor(in, tx.LinkURL)
		if err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		outPath := filepath.Join(outDir, in.CertificateNumber+".pdf")
		if err := pdfcert.Render(tplPath, outPath, tx.LinkURL, qr); err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		outPaths = append(outPaths, outPath)

		records = append(records, models.Certificate{
			IssuerID:          issuer.IssuerID,
			TransactionHash:   tx.Hash,
			CertificateHash:   certHash,
			CertificateNumber: in.CertificateNumber,
			Name:              in.Name,
			Course:            in.CourseName,
			GrantDate:         in.GrantDate,
			ExpirationDate:    in.ExpirationDate,
		})
	}

	if aerr := s.insertCertificates(ctx, records); aerr != nil {
		return nil, aerr
	}
	s.bumpIssuedCounter(ctx, issuer, len(records))

	archive, err := buildArchive(append(outPaths, b.SheetPath))
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
	}
	filename := fmt.Sprintf("certificates-%s-%s.zip", time.Now().UTC().Format("20060102150405"), issuer.ID)
	if s.Store != nil {
		s.Store.BackupAsync(storage.PrefixSingleIssuance, filename, archive)
	}

	return &BulkResult{
		Archive:         archive,
		Filename:        filename,
		Issued:          len(records),
		TransactionHash: lastTx.Hash,
		PolygonLink:     lastTx.LinkURL,
	}, nil
}

// BulkBatchIssue processes the same zip shape but anchors all certificates
// under one Merkle root with a single transaction. Each stamped certificate
// carries the shared transaction link; its inclusion proof is persisted for
// later on-chain verification.
func (s *Service) BulkBatchIssue(ctx context.Context, email, zipPath, workDir string) (*BulkResult, *apperr.Error) {
	issuer, inputs, b, aerr := s.prepareBulk(ctx, email, zipPath, workDir)
	if aerr != nil {
		return nil, aerr
	}

	values := make([]string, len(inputs))
	for i, in := range inputs {
		values[i] = hashing.CombinedHash(hashing.Fields{
			CertificateNumber: in.CertificateNumber,
			Name:              in.Name,
			CourseName:        in.CourseName,
			GrantDate:         in.GrantDate,
			ExpirationDate:    in.ExpirationDate,
		})
	}
	tree, err := merkle.NewTree(values)
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
	}

	rootLength, err := s.Submitter.Gateway.RootLength(ctx)
	if err != nil {
		return nil, mapChainError(err)
	}
	batchID := rootLength + 1

	tx, err := s.Submitter.IssueBatchWithRetry(ctx, tree.Root())
	if err != nil {
		return nil, mapChainError(err)
	}

	outDir := filepath.Join(workDir, "issued")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgInternalError)
	}

	records := make([]models.BatchCertificate, 0, len(inputs))
	outPaths := make([]string, 0, len(inputs))
	for i, in := range inputs {
		tplPath, ok := b.Templates[in.CertificateNumber]
		if !ok {
			return nil, apperr.New(apperr.Artifact, codes.MsgNoEntryMatchFound).WithDetails(in.CertificateNumber)
		}

		proof, err := tree.Proof(i)
		if err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		encodedProof, err := merkle.EncodedProof(proof)
		if err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		proofJSON, err := proofColumn(proof)
		if err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}

		_, qr, err := s.qrFor(in, tx.LinkURL)
		if err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		outPath := filepath.Join(outDir, in.CertificateNumber+".pdf")
		if err := pdfcert.Render(tplPath, outPath, tx.LinkURL, qr); err != nil {
			return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
		}
		outPaths = append(outPaths, outPath)

		records = append(records, models.BatchCertificate{
			IssuerID:          issuer.IssuerID,
			BatchID:           batchID,
			ProofHash:         proofJSON,
			EncodedProof:      encodedProof,
			TransactionHash:   tx.Hash,
			CertificateHash:   values[i],
			CertificateNumber: in.CertificateNumber,
			Name:              in.Name,
			Course:            in.CourseName,
			GrantDate:         in.GrantDate,
			ExpirationDate:    in.ExpirationDate,
		})
	}

	if aerr := s.insertBatchCertificates(ctx, records); aerr != nil {
		return nil, aerr
	}
	s.bumpIssuedCounter(ctx, issuer, len(records))

	archive, err := buildArchive(append(outPaths, b.SheetPath))
	if err != nil {
		return nil, apperr.New(apperr.Artifact, codes.MsgFailedToIssueBulkCerts)
	}
	filename := fmt.Sprintf("batch-%d-%s-%s.zip", batchID, time.Now().UTC().Format("20060102150405"), issuer.ID)
	if s.Store != nil {
		s.Store.BackupAsync(storage.PrefixBatchIssuance, filename, archive)
	}

	return &BulkResult{
		Archive:         archive,
		Filename:        filename,
		Issued:          len(records),
		BatchID:         batchID,
		TransactionHash: tx.Hash,
		PolygonLink:     tx.LinkURL,
	}, nil
}

// prepareBulk runs the shared front half of both bulk flows: issuer check,
// archive extraction, sheet parsing, row validation and the 1:1 match of
// spreadsheet rows against PDF templates. Returned inputs carry dates
// already normalized to MM/DD/YYYY.
func (s *Service) prepareBulk(ctx context.Context, email, zipPath, workDir string) (*models.Issuer, []IssueInput, *bundle, *apperr.Error) {
	issuer, aerr := s.approvedIssuer(ctx, email)
	if aerr != nil {
		return nil, nil, nil, aerr
	}

	b, err := extractArchive(zipPath, workDir)
	if err != nil {
		return nil, nil, nil, mapArchiveError(err)
	}

	rows, err := excel.ParseSheet(b.SheetPath)
	if err != nil {
		return nil, nil, nil, apperr.New(apperr.Validation, codes.MsgEnterInvalid).WithDetails(err.Error())
	}

	inputs := make([]IssueInput, 0, len(rows))
	for _, row := range rows {
		in := IssueInput{
			Email:             email,
			CertificateNumber: row.CertificationID,
			Name:              row.Name,
			CourseName:        row.CertificationName,
			GrantDate:         row.GrantDate,
			ExpirationDate:    row.ExpirationDate,
		}
		_, normalized, aerr := s.validateRequest(ctx, in)
		if aerr != nil {
			aerr.Details = fmt.Sprintf("row %s", row.CertificationID)
			return nil, nil, nil, aerr
		}
		inputs = append(inputs, normalized)
	}

	if aerr := matchTemplates(inputs, b); aerr != nil {
		return nil, nil, nil, aerr
	}

	numbers := make([]string, len(inputs))
	for i, in := range inputs {
		numbers[i] = in.CertificateNumber
	}
	if aerr := s.preSubmissionChecks(ctx, issuer, numbers...); aerr != nil {
		return nil, nil, nil, aerr
	}
	for _, tplPath := range b.Templates {
		if aerr := validateTemplate(tplPath); aerr != nil {
			return nil, nil, nil, aerr
		}
	}
	return issuer, inputs, b, nil
}

// matchTemplates requires set equality between sheet rows and PDF stems.
func matchTemplates(inputs []IssueInput, b *bundle) *apperr.Error {
	missing := []string{}
	seen := map[string]bool{}
	for _, in := range inputs {
		seen[in.CertificateNumber] = true
		if _, ok := b.Templates[in.CertificateNumber]; !ok {
			missing = append(missing, in.CertificateNumber)
		}
	}
	extra := []string{}
	for stem := range b.Templates {
		if !seen[stem] {
			extra = append(extra, stem)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return apperr.New(apperr.Validation, codes.MsgInputRecordsNotMatched).WithDetails(map[string][]string{
		"missingTemplates": missing,
		"unmatchedFiles":   extra,
	})
}

func validateTemplate(path string) *apperr.Error {
	switch err := pdfcert.ValidateTemplate(path); {
	case err == nil:
		return nil
	case errors.Is(err, pdfcert.ErrMultiPage):
		return apperr.New(apperr.Artifact, codes.MsgMultiPagePdf)
	case errors.Is(err, pdfcert.ErrBadDimensions):
		return apperr.New(apperr.Artifact, codes.MsgInvalidPdfTemplate)
	default:
		return apperr.New(apperr.Artifact, codes.MsgInvalidPdfTemplate).WithDetails(err.Error())
	}
}

var ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// preSubmissionChecks runs the chain-side guards shared by every issuance
// flow: the issuing wallet must be a well formed address holding the issuer
// role, the contract must not be paused and none of the certificate numbers
// may already be anchored. Everything is checked before the first
// state-mutating call so a doomed request never burns a transaction.
func (s *Service) preSubmissionChecks(ctx context.Context, issuer *models.Issuer, certificateNumbers ...string) *apperr.Error {
	address := issuer.IssuerID
	if address == "" {
		// issuers onboarded before wallet capture fall back to the
		// service account that actually signs the transactions
		address = s.Cfg.AccountAddress
	}
	if !ethAddressRe.MatchString(address) {
		return apperr.New(apperr.Validation, codes.MsgInvalidEthereum)
	}

	paused, err := s.Submitter.Gateway.Paused(ctx)
	if err != nil {
		return apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}
	if paused {
		return apperr.New(apperr.Chain, codes.MsgOpsRestricted)
	}

	held, err := s.Submitter.Gateway.HasRole(ctx, s.Cfg.IssuerRole, address)
	if err != nil {
		return apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}
	if !held {
		return apperr.New(apperr.Authorization, codes.MsgIssuerUnauthorized)
	}

	for _, number := range certificateNumbers {
		anchored, err := s.Submitter.Gateway.VerifyCertificateByID(ctx, number)
		if err != nil {
			return apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
		}
		if anchored {
			return apperr.New(apperr.Validation, codes.MsgCertIssued).WithDetails(number)
		}
	}
	return nil
}

// qrFor builds the encrypted verification URL for the certificate and its
// QR image. The transaction link rides inside the payload so verification
// can surface it without a database hit.
func (s *Service) qrFor(in IssueInput, linkURL string) (string, []byte, error) {
	verifyURL, err := s.Codec.GenerateEncryptedURL(s.Cfg.VerifyBaseURL, pdfcert.Payload{
		CertificateNumber: in.CertificateNumber,
		Name:              in.Name,
		CourseName:        in.CourseName,
		GrantDate:         in.GrantDate,
		ExpirationDate:    in.ExpirationDate,
		PolygonLink:       linkURL,
	})
	if err != nil {
		return "", nil, err
	}
	qr, err := qrgen.Generate(verifyURL)
	if err != nil {
		return "", nil, err
	}
	return verifyURL, qr, nil
}

// persistCertificate writes the single-issuance record. The chain anchor
// already exists at this point, so a database failure is surfaced as a
// reconciliation problem rather than rolled back.
func (s *Service) persistCertificate(ctx context.Context, issuer *models.Issuer, in IssueInput, certHash string, tx chain.TxResult) *apperr.Error {
	rec := models.Certificate{
		IssuerID:          issuer.IssuerID,
		TransactionHash:   tx.Hash,
		CertificateHash:   certHash,
		CertificateNumber: in.CertificateNumber,
		Name:              in.Name,
		Course:            in.CourseName,
		GrantDate:         in.GrantDate,
		ExpirationDate:    in.ExpirationDate,
	}
	if err := s.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		log.Error().Err(err).Str("certificate", in.CertificateNumber).Str("tx", tx.Hash).
			Msg("record save failed after chain anchor")
		return apperr.New(apperr.Persistence, codes.MsgCertSearchable).WithDetails(map[string]string{
			"transactionHash": tx.Hash,
			"polygonLink":     tx.LinkURL,
		})
	}
	s.bumpIssuedCounter(ctx, issuer, 1)
	return nil
}

// insertCertificates writes bulk single records concurrently and waits for
// all of them. Partial failures are reported for reconciliation; the chain
// anchors already exist.
func (s *Service) insertCertificates(ctx context.Context, records []models.Certificate) *apperr.Error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			return s.DB.WithContext(gctx).Create(rec).Error
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("bulk record save failed after chain anchors")
		return apperr.New(apperr.Persistence, codes.MsgCertSearchable)
	}
	return nil
}

func (s *Service) insertBatchCertificates(ctx context.Context, records []models.BatchCertificate) *apperr.Error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			return s.DB.WithContext(gctx).Create(rec).Error
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("batch record save failed after chain anchor")
		return apperr.New(apperr.Persistence, codes.MsgCertSearchable)
	}
	return nil
}

// bumpIssuedCounter is best effort; a failed counter update never fails
// an issuance.
func (s *Service) bumpIssuedCounter(ctx context.Context, issuer *models.Issuer, n int) {
	err := s.DB.WithContext(ctx).Model(&models.Issuer{}).Where("id = ?", issuer.ID).
		UpdateColumn("certificates_issued", gorm.Expr("certificates_issued + ?", n)).Error
	if err != nil {
		log.Warn().Err(err).Str("issuer", issuer.Email).Msg("issued counter update failed")
	}
}

func mapChainError(err error) *apperr.Error {
	var rev *chain.RevertError
	switch {
	case errors.As(err, &rev):
		return apperr.New(apperr.Chain, codes.MsgFailedOpsAtBlockchain).WithDetails(rev.Reason)
	case errors.Is(err, chain.ErrRetryExhausted):
		return apperr.New(apperr.ChainUnavailable, codes.MsgFailedToIssueAfterRetry)
	default:
		return apperr.New(apperr.Chain, codes.MsgFailedAtBlockchain)
	}
}

func mapArchiveError(err error) *apperr.Error {
	switch {
	case errors.Is(err, ErrNotZip):
		return apperr.New(apperr.Validation, codes.MsgMustZip)
	case errors.Is(err, ErrNoFiles):
		return apperr.New(apperr.Validation, codes.MsgUnableToFindFiles)
	case errors.Is(err, ErrNoSheet):
		return apperr.New(apperr.Validation, codes.MsgUnableToFindExcelFiles)
	case errors.Is(err, ErrNoTemplates):
		return apperr.New(apperr.Validation, codes.MsgUnableToFindPdfFiles)
	default:
		return apperr.New(apperr.Artifact, codes.MsgInternalError).WithDetails(err.Error())
	}
}

func proofColumn(proof []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(proof)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
