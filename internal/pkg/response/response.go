package response

import (
	"github.com/gofiber/fiber/v2"

	"certchain-backend/internal/pkg/apperr"
)

// Body is the discriminated result object returned for JSON responses.
type Body struct {
	Code    int         `json:"code"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"
)

// Success sends a 200 response with the standard success envelope.
func Success(c *fiber.Ctx, message string, details interface{}) error {
	return c.Status(fiber.StatusOK).JSON(Body{
		Code:    fiber.StatusOK,
		Status:  statusSuccess,
		Message: message,
		Details: details,
	})
}

// Failed sends a failure envelope with the given status code.
func Failed(c *fiber.Ctx, code int, message string, details interface{}) error {
	return c.Status(code).JSON(Body{
		Code:    code,
		Status:  statusFailed,
		Message: message,
		Details: details,
	})
}

// FromAppError sends a failure envelope derived from an orchestrator error.
func FromAppError(c *fiber.Ctx, err *apperr.Error) error {
	return Failed(c, err.HTTPStatus(), err.Message, err.Details)
}

// Download sends raw bytes with a content type and attachment filename
// (PDF or ZIP artifacts).
func Download(c *fiber.Ctx, contentType, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(data)
}
