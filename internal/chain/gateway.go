// Package chain wraps the certificate contract service. Orchestrators only
// see the Gateway interface so tests substitute a double without network
// access; the process constructs one RPC-backed gateway at startup.
package chain

import (
	"context"
	"errors"
	"net"
)

// TxResult is the handle returned by state-mutating contract calls.
type TxResult struct {
	Hash    string
	LinkURL string
}

// ErrRetryExhausted is the sentinel "no link produced" result: retries on a
// timeout class failure ran out and no transaction was sent. Callers must
// treat it as a hard failure distinct from a validation failure.
var ErrRetryExhausted = errors.New("chain: no transaction link produced after retries")

// RevertError carries the ledger-provided revert reason. Never retried:
// re-sending a reverted state-changing call risks a double issue.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string { return e.Reason }

// Gateway is the full contract surface used by this service.
type Gateway interface {
	Paused(ctx context.Context) (bool, error)
	HasRole(ctx context.Context, role, address string) (bool, error)
	GrantRole(ctx context.Context, role, address string) (TxResult, error)
	RevokeRole(ctx context.Context, role, address string) (TxResult, error)
	IssueCertificate(ctx context.Context, certificateNumber, certificateHash string) (TxResult, error)
	IssueBatchOfCertificates(ctx context.Context, root string) (TxResult, error)
	VerifyCertificateByID(ctx context.Context, certificateNumber string) (bool, error)
	VerifyCertificateInBatch(ctx context.Context, batchIndex int, leafHash string, proof []string) (bool, error)
	RootLength(ctx context.Context) (int, error)
}

// IsTimeout reports whether err belongs to the transient network-timeout
// class that the submitter is allowed to retry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
