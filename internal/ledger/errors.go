package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by QueryStatus while the ledger has no record of the
// transaction yet. During normal validation latency this is expected and not a
// failure.
var ErrNotFound = errors.New("transaction not found")

// ErrCircuitOpen is returned when the RPC endpoint is temporarily shunned
// after repeated transport failures. It is transient.
var ErrCircuitOpen = errors.New("ledger endpoint circuit open")

// RejectionError marks a deterministic contract refusal (duplicate symbol,
// invalid argument, unregistered symbol). Retrying the same call cannot
// succeed, so callers must not burn their backoff budget on it.
type RejectionError struct {
	Function string
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("ledger rejected %s: %s", e.Function, e.Reason)
}

// NewRejection wraps a contract-level refusal for a given function call.
func NewRejection(function, reason string) error {
	return &RejectionError{Function: function, Reason: reason}
}

// IsTerminal reports whether err is a deterministic rejection that must not be
// retried. Anything else coming out of Submit is treated as transient.
func IsTerminal(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
