package wire

import (
	"errors"
	"io"
)

// ErrVarintOverflow is returned when a LEB128 value exceeds 64 bits.
var ErrVarintOverflow = errors.New("leb128: overflow")

// MaxVarintLen is the longest encoding of a 64-bit LEB128 value.
const MaxVarintLen = 10

// ReadVarint reads an unsigned 64-bit LEB128 value.
func ReadVarint(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b > 1 {
			return 0, ErrVarintOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, ErrVarintOverflow
		}
	}
}

// AppendVarint appends the unsigned LEB128 encoding of v.
func AppendVarint(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// VarintSize returns the number of bytes AppendVarint writes for v.
func VarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
