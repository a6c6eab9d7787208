package protocol

import "github.com/pkg/errors"

// Protocol-internal errors raised to the host; never written to the wire.
var (
	ErrNoTransport      = errors.New("protocol: no transport attached")
	ErrAlreadyConnected = errors.New("protocol: already connected")
	ErrAttemptedAttack  = errors.New("protocol: unregistered range fed a reserved Unknown/Error code")
)

// attackError wraps ErrAttemptedAttack with the offending range/local code
// for diagnostics.
func attackError(ri int, local byte) error {
	return errors.Wrapf(ErrAttemptedAttack, "range %d, local code %d", ri, local)
}
