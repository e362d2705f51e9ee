// Package ledger defines the write-side contract against the
// distributed ledger and its supporting credential handling.
//
// The actual transaction signing and network submission live behind the
// Submitter interface; agrod ships a thin JSON client to a transaction
// relay service. Reads go through the mirror package instead.
package ledger

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrMissingCredentials indicates a write operation had neither
	// per-call nor default credentials available.
	ErrMissingCredentials = errors.New("ledger: account credentials required")

	// ErrInvalidAccountID indicates the account id does not have the
	// shard.realm.num shape.
	ErrInvalidAccountID = errors.New("ledger: invalid account id")

	// ErrInvalidPrivateKey indicates the private key material is absent
	// or malformed.
	ErrInvalidPrivateKey = errors.New("ledger: invalid private key")
)

var accountIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Credentials carries an account identifier and its private key
// material. Credentials are passed through per request and never
// cached or persisted by agrod.
type Credentials struct {
	AccountID  string `json:"accountId"`
	PrivateKey string `json:"privateKey"`
}

// Empty reports whether both fields are unset.
func (c Credentials) Empty() bool {
	return c.AccountID == "" && c.PrivateKey == ""
}

// Validate checks the structural shape of the credentials. It does not
// prove the key belongs to the account; that requires a ledger probe.
func (c Credentials) Validate() error {
	if c.AccountID == "" {
		return fmt.Errorf("%w: account id is empty", ErrInvalidAccountID)
	}
	if !accountIDPattern.MatchString(c.AccountID) {
		return fmt.Errorf("%w: %q (want shard.realm.num)", ErrInvalidAccountID, c.AccountID)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("%w: private key is empty", ErrInvalidPrivateKey)
	}
	if len(c.PrivateKey) < 64 {
		return fmt.Errorf("%w: key material too short", ErrInvalidPrivateKey)
	}
	return nil
}

// Or returns c when set, otherwise the fallback pair. Used to apply
// process-wide default credentials to uncredentialed requests.
func (c Credentials) Or(fallback Credentials) Credentials {
	if c.Empty() {
		return fallback
	}
	return c
}
