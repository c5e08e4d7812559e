package wirecodec

import "github.com/wippyai/wirecodec/wire"

// Decodable is implemented by types that read their own wire form. Fields of
// such types are delegated to DecodeWire instead of being derived.
type Decodable interface {
	DecodeWire(r *wire.Reader) error
}

// Encodable is implemented by types that write their own wire form.
type Encodable interface {
	EncodeWire(w *wire.Writer) error
}

// Sizer reports the minimum number of bytes a custom type consumes when
// decoded. Custom types without it contribute zero.
type Sizer interface {
	MinimumWireSize() int
}

// Enum marks a struct as a sum type. The marker must be a blank field; its
// wire tag carries the enum options. Every other exported field is a pointer
// naming one variant, and exactly one of them is set on a valid value.
//
//	type Shape struct {
//		_      wirecodec.Enum `wire:"tag_type=u8"`
//		Circle *Circle        `wire:"tag=1"`
//		Square *Square
//		None   *struct{}
//	}
type Enum struct{}
