package handler

import "github.com/pkg/errors"

// Sentinel errors a Handler can return from its public operations. They are
// never written to the wire directly; callers (and the protocol multiplexer)
// map them to the appropriate ErrorCode or Outcome.
var (
	ErrIllegalGoto     = errors.New("handler: illegal state transition")
	ErrSessionNoSync   = errors.New("handler: session states failed to sync")
	ErrSeshTypeMismatch = errors.New("handler: session type inconsistency")
	ErrNoSuchSession   = errors.New("handler: no such session")
	ErrUnknownPacket   = errors.New("handler: packet type not dispatchable for this role")
	ErrQueueFull       = errors.New("handler: receive queue full")
	ErrClosed          = errors.New("handler: closed")
)
