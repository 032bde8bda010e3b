package issuance

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/response"
)

// Handlers bundles issuance handlers with the service.
type Handlers struct {
	Service *Service
}

// Issue POST /api/v1/issue
func (h *Handlers) Issue(c *fiber.Ctx) error {
	var in IssueInput
	if err := c.BodyParser(&in); err != nil {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}

	res, aerr := h.Service.IssueCertification(c.Context(), in)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}
	return response.Success(c, codes.MsgCertIssuedSuccess, res)
}

// IssuePDF POST /api/v1/issue/pdf
func (h *Handlers) IssuePDF(c *fiber.Ctx) error {
	in := IssueInput{
		Email:             c.FormValue("email"),
		CertificateNumber: c.FormValue("certificateNumber"),
		Name:              c.FormValue("name"),
		CourseName:        c.FormValue("courseName"),
		GrantDate:         c.FormValue("grantDate"),
		ExpirationDate:    c.FormValue("expirationDate"),
	}

	workDir, cleanup, err := h.workDir()
	if err != nil {
		return response.Failed(c, fiber.StatusInternalServerError, codes.MsgInternalError, nil)
	}
	defer cleanup()

	templatePath, ok := h.saveUpload(c, workDir, ".pdf")
	if !ok {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidPdfTemplate, nil)
	}

	res, aerr := h.Service.IssuePDFCertification(c.Context(), in, templatePath, workDir)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}

	data, err := os.ReadFile(res.PDFPath)
	if err != nil {
		return response.Failed(c, fiber.StatusInternalServerError, codes.MsgInternalError, nil)
	}
	return response.Download(c, "application/pdf", res.CertificateNumber+".pdf", data)
}

// BulkSingle POST /api/v1/issue/bulk-single
func (h *Handlers) BulkSingle(c *fiber.Ctx) error {
	return h.bulk(c, h.Service.BulkSingleIssue)
}

// BulkBatch POST /api/v1/issue/bulk-batch
func (h *Handlers) BulkBatch(c *fiber.Ctx) error {
	return h.bulk(c, h.Service.BulkBatchIssue)
}

func (h *Handlers) bulk(c *fiber.Ctx, flow func(ctx context.Context, email, zipPath, workDir string) (*BulkResult, *apperr.Error)) error {
	email := c.FormValue("email")

	workDir, cleanup, err := h.workDir()
	if err != nil {
		return response.Failed(c, fiber.StatusInternalServerError, codes.MsgInternalError, nil)
	}
	defer cleanup()

	zipPath, ok := h.saveUpload(c, workDir, ".zip")
	if !ok {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgMustZip, nil)
	}

	res, aerr := flow(c.Context(), email, zipPath, workDir)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}
	return response.Download(c, "application/zip", res.Filename, res.Archive)
}

// workDir creates a request-scoped scratch directory under the uploads
// root. The cleanup func always removes it, artifacts included.
func (h *Handlers) workDir() (string, func(), error) {
	dir := filepath.Join(h.Service.Cfg.UploadsDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("work directory creation failed")
		return "", nil, err
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// saveUpload stores the "file" form upload into dir, enforcing the
// expected extension. Returns the stored path.
func (h *Handlers) saveUpload(c *fiber.Ctx, dir, wantExt string) (string, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", false
	}
	name := filepath.Base(fh.Filename)
	if !strings.EqualFold(filepath.Ext(name), wantExt) {
		return "", false
	}
	dest := filepath.Join(dir, name)
	if err := c.SaveFile(fh, dest); err != nil {
		log.Error().Err(err).Str("filename", name).Msg("upload save failed")
		return "", false
	}
	return dest, true
}
