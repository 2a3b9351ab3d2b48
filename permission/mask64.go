package permission

import "math/bits"

type Mask64 uint64

func (m *Mask64) Has(bit int, rootReserved bool) bool {
	if bit < 0 || bit >= MaxBits {
		return false
	}

	if rootReserved {
		// root bit = highest bit
		if (*m & (1 << (MaxBits - 1))) != 0 {
			return true
		}
	}

	return (*m & (1 << bit)) != 0
}

func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m |= (1 << bit)
}

func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= MaxBits {
		return
	}
	*m &^= (1 << bit)
}

func (m *Mask64) Raw() uint64 {
	return uint64(*m)
}

// Bits returns the set bit positions in ascending order.
func (m *Mask64) Bits() []int {
	v := uint64(*m)
	out := make([]int, 0, bits.OnesCount64(v))
	for v != 0 {
		b := bits.TrailingZeros64(v)
		out = append(out, b)
		v &^= 1 << b
	}
	return out
}

// Count returns the number of set bits.
func (m *Mask64) Count() int {
	return bits.OnesCount64(uint64(*m))
}
