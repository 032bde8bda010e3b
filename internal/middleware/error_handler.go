package middleware

import (
	"github.com/gofiber/fiber/v2"

	"certchain-backend/internal/pkg/response"
)

// ErrorHandler is the global error handler. Returns the standard failure envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return response.Failed(c, code, message, nil)
}
