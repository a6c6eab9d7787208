package wire

import "github.com/pkg/errors"

// Sentinel errors produced by the wire codec, wrapped with context at the
// failing field. The handler reports any body decode failure as
// packet.Malformed without inspecting which sentinel caused it.
var (
	ErrFieldCount  = errors.New("wire: field count mismatch")
	ErrFieldRange  = errors.New("wire: field value out of range")
	ErrFieldLength = errors.New("wire: field length out of bounds")
	ErrFieldType   = errors.New("wire: unsupported field type code")
	ErrShortBuffer = errors.New("wire: buffer too short")
)
