package wire

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/wippyai/wirecodec/errors"
)

// Reader consumes an in-memory byte slice. It is not safe for concurrent use.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Reset repositions the reader at the start of b.
func (r *Reader) Reset(b []byte) {
	r.buf = b
	r.pos = 0
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.pos
}

// Seek moves the cursor to an absolute offset previously returned by Offset.
func (r *Reader) Seek(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(r.buf) {
		offset = len(r.buf)
	}
	r.pos = offset
}

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return errors.EOF(nil, n, r.Remaining())
	}
	return nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Peek returns the next n bytes without consuming them. The result aliases
// the reader's buffer.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n : r.pos+n], nil
}

// Borrow consumes n bytes and returns them without copying.
func (r *Reader) Borrow(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += n
	return b, nil
}

// ReadBytes consumes n bytes and returns a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.Borrow(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Expect consumes len(prefix) bytes and fails with an unexpected-data error
// when they differ from prefix.
func (r *Reader) Expect(prefix []byte) error {
	got, err := r.Borrow(len(prefix))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, prefix) {
		return errors.UnexpectedData(nil, prefix, got)
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	return r.ReadByte()
}

func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.Borrow(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.Borrow(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.Borrow(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

// ReadVarint reads an unsigned LEB128 value. A truncated varint is an EOF
// error; one that exceeds 64 bits is an overflow error.
func (r *Reader) ReadVarint() (uint64, error) {
	start := r.pos
	v, err := ReadVarint(r)
	if err != nil {
		r.pos = start
		if err == ErrVarintOverflow {
			return 0, errors.Overflow(errors.PhaseDecode, nil, "varint", Varint64.String())
		}
		return 0, err
	}
	return v, nil
}

// ReadUint reads an unsigned integer at width w.
func (r *Reader) ReadUint(w Width) (uint64, error) {
	switch w {
	case U7:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b&0x80 != 0 {
			r.pos--
			return 0, errors.InvalidData(errors.PhaseDecode, nil, "u7 value has the high bit set")
		}
		return uint64(b), nil
	case U8:
		b, err := r.ReadByte()
		return uint64(b), err
	case U16:
		v, err := r.ReadU16()
		return uint64(v), err
	case U32:
		v, err := r.ReadU32()
		return uint64(v), err
	case U64:
		return r.ReadU64()
	case Varint64:
		return r.ReadVarint()
	}
	return 0, errors.Unsupported(errors.PhaseDecode, "width "+w.String())
}

// PeekUint reads an unsigned integer at width w without consuming it.
func (r *Reader) PeekUint(w Width) (uint64, error) {
	start := r.pos
	v, err := r.ReadUint(w)
	r.pos = start
	return v, err
}

// ReadLength reads a length prefix at width w. Lengths that do not fit in an
// int are overflow errors.
func (r *Reader) ReadLength(w Width) (int, error) {
	v, err := r.ReadUint(w)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt {
		return 0, errors.Overflow(errors.PhaseDecode, nil, v, "int")
	}
	return int(v), nil
}
