package wire

// FieldType identifies how one packet field is tagged and encoded on the wire.
type FieldType byte

// Supported field type codes (§3, §6 of the specification this module implements).
const (
	Uint     FieldType = 0x01
	UUID     FieldType = 0x02
	BytesFix FieldType = 0x03
	BytesVar FieldType = 0x04
	DateTime FieldType = 0x05
)

// FieldSpec describes one field of a packet schema: its wire type plus the
// constraint that Encode/Decode validate values against.
type FieldSpec struct {
	Name string
	Type FieldType

	// UINT range constraint. Hi == 0 means unconstrained.
	Lo, Hi uint64

	// BYTES_FIX exact length.
	Fixed int

	// BYTES_VAR length bounds. MaxLen == 0 means unbounded.
	MinLen, MaxLen int
}

// Schema is the ordered field list for one packet type, built once at
// package init and shared (read-only) by every Handler that uses it — never
// a process-wide mutable registry.
type Schema []FieldSpec
