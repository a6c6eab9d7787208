package wire

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Value is one decoded field value, tagged by type. Packet types build a
// []Value to encode and read one back from Decode.
type Value struct {
	Type  FieldType
	Uint  uint64
	UUID  uuid.UUID
	Bytes []byte
	Time  time.Time
}

// UintValue builds a tagged UINT field value.
func UintValue(v uint64) Value { return Value{Type: Uint, Uint: v} }

// UUIDValue builds a tagged UUID field value.
func UUIDValue(v uuid.UUID) Value { return Value{Type: UUID, UUID: v} }

// FixedValue builds a tagged BYTES_FIX field value.
func FixedValue(b []byte) Value { return Value{Type: BytesFix, Bytes: b} }

// VarValue builds a tagged BYTES_VAR field value.
func VarValue(b []byte) Value { return Value{Type: BytesVar, Bytes: b} }

// TimeValue builds a tagged DATETIME field value, truncated to whole seconds UTC.
func TimeValue(t time.Time) Value { return Value{Type: DateTime, Time: t.UTC().Truncate(time.Second)} }

// Encode validates values against schema and appends the self-describing
// tagged array to buf, returning the extended slice.
func Encode(schema Schema, values []Value, buf []byte) ([]byte, error) {
	if len(values) != len(schema) {
		return nil, errors.Wrapf(ErrFieldCount, "got %d fields, schema wants %d", len(values), len(schema))
	}
	for i, spec := range schema {
		v := values[i]
		if v.Type != spec.Type {
			return nil, errors.Wrapf(ErrFieldType, "field %q", spec.Name)
		}
		buf = append(buf, byte(spec.Type))
		switch spec.Type {
		case Uint:
			if spec.Hi > 0 && (v.Uint < spec.Lo || v.Uint > spec.Hi) {
				return nil, errors.Wrapf(ErrFieldRange, "field %q value %d", spec.Name, v.Uint)
			}
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], v.Uint)
			buf = append(buf, b[:]...)
		case UUID:
			buf = append(buf, v.UUID[:]...)
		case BytesFix:
			if len(v.Bytes) != spec.Fixed {
				return nil, errors.Wrapf(ErrFieldLength, "field %q length %d want %d", spec.Name, len(v.Bytes), spec.Fixed)
			}
			buf = append(buf, v.Bytes...)
		case BytesVar:
			n := len(v.Bytes)
			if n < spec.MinLen || (spec.MaxLen > 0 && n > spec.MaxLen) {
				return nil, errors.Wrapf(ErrFieldLength, "field %q length %d", spec.Name, n)
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			buf = append(buf, b[:]...)
			buf = append(buf, v.Bytes...)
		case DateTime:
			sec := v.Time.UTC().Truncate(time.Second).Unix()
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(sec))
			buf = append(buf, b[:]...)
		default:
			return nil, errors.Wrapf(ErrFieldType, "field %q", spec.Name)
		}
	}
	return buf, nil
}

// Decode restores the typed values described by schema from data, which must
// hold exactly the encoded body with no trailing bytes.
func Decode(schema Schema, data []byte) ([]Value, error) {
	values := make([]Value, len(schema))
	for i, spec := range schema {
		if len(data) < 1 {
			return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
		}
		tag := FieldType(data[0])
		data = data[1:]
		if tag != spec.Type {
			return nil, errors.Wrapf(ErrFieldType, "field %q", spec.Name)
		}
		switch spec.Type {
		case Uint:
			if len(data) < 8 {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			v := binary.BigEndian.Uint64(data[:8])
			data = data[8:]
			if spec.Hi > 0 && (v < spec.Lo || v > spec.Hi) {
				return nil, errors.Wrapf(ErrFieldRange, "field %q value %d", spec.Name, v)
			}
			values[i] = UintValue(v)
		case UUID:
			if len(data) < 16 {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			var id uuid.UUID
			copy(id[:], data[:16])
			data = data[16:]
			values[i] = UUIDValue(id)
		case BytesFix:
			if len(data) < spec.Fixed {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			b := append([]byte(nil), data[:spec.Fixed]...)
			data = data[spec.Fixed:]
			values[i] = FixedValue(b)
		case BytesVar:
			if len(data) < 4 {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			n := int(binary.BigEndian.Uint32(data[:4]))
			data = data[4:]
			if n < spec.MinLen || (spec.MaxLen > 0 && n > spec.MaxLen) {
				return nil, errors.Wrapf(ErrFieldLength, "field %q length %d", spec.Name, n)
			}
			if len(data) < n {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			b := append([]byte(nil), data[:n]...)
			data = data[n:]
			values[i] = VarValue(b)
		case DateTime:
			if len(data) < 8 {
				return nil, errors.Wrapf(ErrShortBuffer, "field %q", spec.Name)
			}
			sec := int64(binary.BigEndian.Uint64(data[:8]))
			data = data[8:]
			values[i] = TimeValue(time.Unix(sec, 0))
		default:
			return nil, errors.Wrapf(ErrFieldType, "field %q", spec.Name)
		}
	}
	if len(data) != 0 {
		return nil, errors.Wrap(ErrFieldCount, "trailing bytes after schema")
	}
	return values, nil
}
