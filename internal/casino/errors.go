package casino

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing wallet, seed pair, bet or ledger
	// entry. Storage implementations return this same sentinel.
	ErrNotFound = errors.New("not found")

	// ErrLockTimeout marks a settlement that could not acquire the
	// wallet row lock in time. No partial state was written, so the
	// whole call is safe to retry.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrInsufficientFunds is detected under the wallet row lock and
	// aborts the settlement with no visible mutation. Surfaced apart
	// from generic validation so callers can show balance messaging.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSessionActive rejects starting a second concurrent session
	// for the same user and game.
	ErrSessionActive = errors.New("a session is already active for this game")

	// ErrSessionState rejects an operation the session's state does
	// not allow (cash-out with no revealed round, advance after
	// resolution).
	ErrSessionState = errors.New("operation not allowed in current session state")

	// ErrInvariant marks a computed payout that failed the defensive
	// pre-commit checks. It must never reach a commit; treat as a
	// programmer error.
	ErrInvariant = errors.New("settlement invariant violation")
)

// ValidationError rejects bad input before any state mutation. The
// reason is specific enough for the caller to correct the request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
