package permission

import (
	"bytes"
	"errors"
	"testing"
)

// FuzzMaskCodecRoundTrip exercises the mask encode/decode path with arbitrary bytes.
// Goal: no panics; valid-length inputs should roundtrip.
func FuzzMaskCodecRoundTrip(f *testing.F) {
	f.Add(make([]byte, 8))
	f.Add([]byte{0x80, 0, 0, 0, 0, 0, 0x0f, 0xff})

	// Invalid sizes.
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3})
	f.Add(make([]byte, 7))
	f.Add(make([]byte, 9))
	f.Add(make([]byte, 16))

	f.Fuzz(func(t *testing.T, data []byte) {
		mask, err := DecodeMask(data)
		if err != nil {
			if !errors.Is(err, ErrInvalidMaskSize) {
				t.Fatalf("unexpected decode error: %v", err)
			}
			return
		}

		encoded := EncodeMask(mask)
		if !bytes.Equal(encoded, data) {
			t.Fatalf("roundtrip mismatch: %x vs %x", encoded, data)
		}
	})
}

func TestEncodeMaskNil(t *testing.T) {
	got := EncodeMask(nil)
	if len(got) != MaskSize {
		t.Fatalf("expected %d bytes, got %d", MaskSize, len(got))
	}
	m, err := DecodeMask(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Raw() != 0 {
		t.Fatalf("expected zero mask, got %x", m.Raw())
	}
}
