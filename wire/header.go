package wire

import "github.com/pkg/errors"

// HeaderLen is the fixed size of a frame header in bytes.
const HeaderLen = 6

// Management levels, an advisory hint only; they do not affect routing.
const (
	LevelSessionHandler byte = 1
	LevelService        byte = 2
	LevelSubService     byte = 3
)

// Header is the 6-byte frame header prefixed to every encoded packet body.
//
//	offset  bytes  field
//	 0      2      pkt_type    (u16 big-endian)
//	 2      3      pkt_length  (u24 big-endian, frame total incl header)
//	 5      1      pkt_level   (u8, advisory)
type Header struct {
	Type   uint16
	Length uint32 // total frame length including this header; fits in 24 bits
	Level  byte
}

// WriteHeader appends the encoded header to buf.
func WriteHeader(buf []byte, h Header) []byte {
	buf = append(buf, byte(h.Type>>8), byte(h.Type))
	buf = append(buf, byte(h.Length>>16), byte(h.Length>>8), byte(h.Length))
	buf = append(buf, h.Level)
	return buf
}

// ReadHeader decodes the header from the front of buf. buf must hold at
// least HeaderLen bytes.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderLen {
		return Header{}, errors.Wrap(ErrShortBuffer, "frame header")
	}
	return Header{
		Type:   uint16(buf[0])<<8 | uint16(buf[1]),
		Length: uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4]),
		Level:  buf[5],
	}, nil
}
