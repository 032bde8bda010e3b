// Package apperr defines the failure taxonomy shared by the issuance and
// verification orchestrators. Every class maps to a fixed HTTP status so
// handlers never invent status codes ad hoc.
package apperr

import "github.com/gofiber/fiber/v2"

// Kind classifies a failure.
type Kind int

const (
	// Validation covers bad, missing or duplicate input. User fixable.
	Validation Kind = iota
	// Authorization covers unapproved issuers and missing chain roles.
	Authorization
	// Chain covers reverted transactions, paused contract and role mismatches.
	// The chain state did not change in our favor but the call reached the ledger.
	Chain
	// ChainUnavailable means retries were exhausted on a timeout class failure.
	// No state change occurred; distinct from Chain for reconciliation purposes.
	ChainUnavailable
	// Persistence covers database failures after a chain call already succeeded.
	Persistence
	// Artifact covers malformed PDFs, undecodable QRs and incomplete archives.
	Artifact
)

// Error is the orchestrator-level error carrying the class, a stable
// user-facing message and optional operator details.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus maps the failure class to the HTTP status used by handlers.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case Persistence:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// New builds an Error without details.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetails attaches operator-facing details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}
