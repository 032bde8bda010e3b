package issuers

import (
	"github.com/gofiber/fiber/v2"

	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/response"
)

// Handlers bundles issuer handlers with the service.
type Handlers struct {
	Service *Service
}

type validateRequest struct {
	Email  string `json:"email"`
	Status int    `json:"status"`
}

// Validate POST /api/v1/issuers/validate
func (h *Handlers) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Failed(c, fiber.StatusBadRequest, codes.MsgInvalidInput, nil)
	}

	res, aerr := h.Service.Validate(c.Context(), req.Email, req.Status)
	if aerr != nil {
		return response.FromAppError(c, aerr)
	}

	msg := codes.MsgIssuerApproveSuccess
	if req.Status == 2 {
		msg = codes.MsgIssuerRejectSuccess
	}
	return response.Success(c, msg, res)
}
