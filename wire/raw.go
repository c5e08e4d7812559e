package wire

import "unsafe"

// RawBytes is a byte slice decoded without copying. It aliases the input
// buffer and is only valid while that buffer is unmodified.
type RawBytes []byte

// RawString is a string decoded without copying. It aliases the input
// buffer and is only valid while that buffer is unmodified.
type RawString string

// BorrowString returns a string sharing b's memory.
func BorrowString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}
