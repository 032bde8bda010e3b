package chain

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const maxAttempts = 3

// Submitter issues state-mutating calls with bounded retry. Only the
// transient timeout class is retried; a revert aborts immediately because
// the same call could succeed the second time and double-issue.
type Submitter struct {
	Gateway Gateway
	Network string // explorer host for tx links
	Delay   time.Duration
}

// NewSubmitter wires a gateway with the configured retry delay.
func NewSubmitter(gw Gateway, network string, delay time.Duration) *Submitter {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Submitter{Gateway: gw, Network: network, Delay: delay}
}

// LinkFor renders the explorer URL for a transaction hash.
func (s *Submitter) LinkFor(hash string) string {
	return "https://" + s.Network + "/tx/" + hash
}

// IssueCertificateWithRetry submits a single issuance, retrying timeouts up
// to three total attempts with a fixed delay. The delay blocks only this
// request's flow.
func (s *Submitter) IssueCertificateWithRetry(ctx context.Context, certificateNumber, certificateHash string) (TxResult, error) {
	return s.withRetry(ctx, func() (TxResult, error) {
		return s.Gateway.IssueCertificate(ctx, certificateNumber, certificateHash)
	})
}

// IssueBatchWithRetry submits a batch root, same retry policy.
func (s *Submitter) IssueBatchWithRetry(ctx context.Context, root string) (TxResult, error) {
	return s.withRetry(ctx, func() (TxResult, error) {
		return s.Gateway.IssueBatchOfCertificates(ctx, root)
	})
}

func (s *Submitter) withRetry(ctx context.Context, submit func() (TxResult, error)) (TxResult, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := submit()
		if err == nil {
			tx.LinkURL = s.LinkFor(tx.Hash)
			return tx, nil
		}
		if !IsTimeout(err) {
			return TxResult{}, err
		}
		if attempt == maxAttempts {
			break
		}
		log.Warn().Int("attempt", attempt).Err(err).Msg("chain submission timed out, retrying")
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return TxResult{}, ctx.Err()
		}
	}
	return TxResult{}, ErrRetryExhausted
}
