package wire

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/wirecodec/errors"
)

// Writer appends encoded values to a growable buffer. It is not safe for
// concurrent use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with room for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer
// until the next write or Reset.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Cap returns the capacity of the underlying buffer.
func (w *Writer) Cap() int {
	return cap(w.buf)
}

// Reset discards all written bytes, keeping the buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Truncate discards everything written after the first n bytes. Encoders use
// it to roll back a failed write.
func (w *Writer) Truncate(n int) {
	if n >= 0 && n < len(w.buf) {
		w.buf = w.buf[:n]
	}
}

func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteI8(v int8) {
	w.buf = append(w.buf, byte(v))
}

// WriteBool writes 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteI16(v int16) {
	w.WriteU16(uint16(v))
}

func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

func (w *Writer) WriteVarint(v uint64) {
	w.buf = AppendVarint(w.buf, v)
}

func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteString(s string) (int, error) {
	w.buf = append(w.buf, s...)
	return len(s), nil
}

// WriteUint writes v at width w, failing when v does not fit.
func (w *Writer) WriteUint(width Width, v uint64) error {
	if v > width.Max() {
		return errors.Overflow(errors.PhaseEncode, nil, v, width.String())
	}
	switch width {
	case U7, U8:
		w.WriteU8(uint8(v))
	case U16:
		w.WriteU16(uint16(v))
	case U32:
		w.WriteU32(uint32(v))
	case U64:
		w.WriteU64(v)
	case Varint64:
		w.WriteVarint(v)
	default:
		return errors.Unsupported(errors.PhaseEncode, "width "+width.String())
	}
	return nil
}

// WriteLength writes a length prefix at width w.
func (w *Writer) WriteLength(width Width, n int) error {
	if n < 0 {
		return errors.Overflow(errors.PhaseEncode, nil, n, width.String())
	}
	return w.WriteUint(width, uint64(n))
}
