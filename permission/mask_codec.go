package permission

import (
	"encoding/binary"
	"errors"
)

// MaskSize is the encoded length of a [Mask64].
const MaskSize = 8

// ErrInvalidMaskSize is returned by DecodeMask for input that is not MaskSize bytes.
var ErrInvalidMaskSize = errors.New("invalid mask size")

// EncodeMask writes m as 8 big-endian bytes. A nil mask encodes as zero.
func EncodeMask(m *Mask64) []byte {
	b := make([]byte, MaskSize)
	if m != nil {
		binary.BigEndian.PutUint64(b, uint64(*m))
	}
	return b
}

// DecodeMask parses the output of EncodeMask.
func DecodeMask(data []byte) (*Mask64, error) {
	if len(data) != MaskSize {
		return nil, ErrInvalidMaskSize
	}
	m := Mask64(binary.BigEndian.Uint64(data))
	return &m, nil
}
