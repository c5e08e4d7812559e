// Package schemafile loads type declarations from YAML, TOML or JSONC files
// and analyzes them without any Go types behind them.
//
// A file lists types. Each type is a record, an enum or an opaque type with
// a declared size:
//
//	types:
//	  - name: Packet
//	    kind: record
//	    fields:
//	      - {name: count, type: uint8}
//	      - {name: items, type: "[]uint16", attrs: "length = count"}
//	      - {name: shape, type: Shape}
//	  - name: Shape
//	    kind: enum
//	    attrs: "tag_type = u8"
//	    variants:
//	      - {name: Empty, style: unit}
//	      - name: Circle
//	        attrs: "tag = 3"
//	        fields: [{name: r, type: uint8}]
//	  - name: Timestamp
//	    kind: opaque
//	    size: 8
//
// Field types are Go type expressions. Each attrs entry is one attribute
// group, so an option repeated across entries is still a duplicate.
//
// Analyze resolves and derives every type, and Schema.Decode interprets
// the derived programs against raw bytes.
package schemafile
