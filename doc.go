// Package wirecodec derives binary encoders and decoders from Go type
// declarations.
//
// A record's wire form is its fields in declaration order. Field behaviour
// is controlled by wire struct tags:
//
//	type Packet struct {
//		Magic   struct{} `wire:"constant_prefix=b\"PK\""`
//		Count   uint8
//		Items   []uint16 `wire:"length=Count"`
//		Name    string   `wire:"length_type=u8"`
//		Trailer *uint32  `wire:"default_on_eof"`
//		Cache   []byte   `wire:"skip"`
//	}
//
// Supported options are length, length_type, default_on_eof, skip and
// constant_prefix on fields, tag on variants, and tag_type and peek_tag on
// enums. Several wire tags may appear on one field; a repeated option is an
// error.
//
// # Packages
//
//	wirecodec/        Custom codec interfaces and the Enum marker
//	├── wire/         Byte-level reader and writer, integer widths
//	├── schema/       Declarations, option resolution and type classification
//	├── derive/       Op programs, minimum sizes, length expressions
//	├── codec/        Reflection front end and program executor
//	├── schemafile/   Declarative schemas in YAML, TOML and JSONC
//	├── errors/       Structured error types
//	└── cmd/wirecodec CLI for checking and inspecting schemas
//
// # Quick Start
//
//	data, err := codec.Marshal(pkt)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := codec.Decode[Packet](data)
//
// Multi-byte integers and floats are little-endian. Decoding never produces
// a partially decoded value: on error the destination is left untouched.
package wirecodec
