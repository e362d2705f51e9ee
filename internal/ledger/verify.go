package ledger

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"go.uber.org/zap"
)

// AccountChecker resolves an account on the ledger index. Satisfied by
// *mirror.Client.
type AccountChecker interface {
	Account(ctx context.Context, accountID string) (*mirror.AccountInfo, error)
}

// Verifier checks that supplied credentials are structurally sound and
// that the account resolves on the ledger.
type Verifier struct {
	checker AccountChecker
	timeout time.Duration
	logger  *zap.Logger
}

// NewVerifier creates a credential verifier. The timeout bounds the
// single account probe; an expired probe is a verification failure,
// not a crash.
func NewVerifier(checker AccountChecker, timeout time.Duration, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Verifier{checker: checker, timeout: timeout, logger: logger}
}

// Verify validates credential shape and probes the account on the
// ledger index. It returns nil when the account exists and the key
// material is plausible.
func (v *Verifier) Verify(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if _, err := v.checker.Account(ctx, creds.AccountID); err != nil {
		v.logger.Warn("account verification failed",
			zap.String("account_id", creds.AccountID),
			zap.Error(err),
		)
		return err
	}

	v.logger.Info("credentials verified", zap.String("account_id", creds.AccountID))
	return nil
}
