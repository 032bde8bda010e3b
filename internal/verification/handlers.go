package verification

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/response"
)

// Handlers bundles verification handlers with the service.
type Handlers struct {
	Service *Service
}

type verifyIDRequest struct {
	CertificateNumber string `json:"certificateNumber"`
}

type decodeRequest struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
}

// VerifyPDF POST /api/v1/verify
func (h *Handlers) VerifyPDF(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}

	dir := filepath.Join(h.Service.Cfg.UploadsDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return response.Failed(c, fiber.StatusInternalServerError, codes.MsgInternalError, nil)
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveFile(fh, dest); err != nil {
		return response.Failed(c, fiber.StatusInternalServerError, codes.MsgInternalError, nil)
	}

	res, aerr := h.Service.VerifyPDF(c.Context(), dest)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}
	return response.Success(c, res.Message, res)
}

// VerifyID POST /api/v1/verify/id
func (h *Handlers) VerifyID(c *fiber.Ctx) error {
	var req verifyIDRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}

	res, aerr := h.Service.VerifyByID(c.Context(), req.CertificateNumber)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}
	return response.Success(c, res.Message, res)
}

// Decode POST /api/v1/verify/decode
func (h *Handlers) Decode(c *fiber.Ctx) error {
	var req decodeRequest
	if err := c.BodyParser(&req); err != nil || req.Data == "" || req.IV == "" {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}

	info, aerr := h.Service.Decode(c.Context(), req.Data, req.IV)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}
	return response.Success(c, codes.MsgVerified, info)
}
