package schema

// Kind is the structural classification of a type for codec purposes.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindString
	KindBorrowedString
	KindSequence
	KindBorrowedSlice
	KindMap
	KindSet
	KindArray
	KindRecord
	KindOpaque
)

var kindNames = [...]string{
	KindPrimitive:      "primitive",
	KindString:         "string",
	KindBorrowedString: "borrowed-string",
	KindSequence:       "sequence",
	KindBorrowedSlice:  "borrowed-slice",
	KindMap:            "map",
	KindSet:            "set",
	KindArray:          "array",
	KindRecord:         "record",
	KindOpaque:         "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// VariableLength reports whether values of this kind carry a length.
func (k Kind) VariableLength() bool {
	switch k {
	case KindString, KindBorrowedString, KindSequence, KindBorrowedSlice, KindMap, KindSet:
		return true
	}
	return false
}

// Prim identifies a primitive type.
type Prim uint8

const (
	PrimBool Prim = iota
	PrimU8
	PrimI8
	PrimU16
	PrimI16
	PrimU32
	PrimI32
	PrimU64
	PrimI64
	PrimF32
	PrimF64
	PrimChar
	PrimInt
	PrimUint
)

var primNames = [...]string{
	PrimBool: "bool",
	PrimU8:   "u8",
	PrimI8:   "i8",
	PrimU16:  "u16",
	PrimI16:  "i16",
	PrimU32:  "u32",
	PrimI32:  "i32",
	PrimU64:  "u64",
	PrimI64:  "i64",
	PrimF32:  "f32",
	PrimF64:  "f64",
	PrimChar: "char",
	PrimInt:  "int",
	PrimUint: "uint",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// Size returns the encoded size of the primitive in bytes.
func (p Prim) Size() int {
	switch p {
	case PrimBool, PrimU8, PrimI8:
		return 1
	case PrimU16, PrimI16:
		return 2
	case PrimU32, PrimI32, PrimF32, PrimChar:
		return 4
	}
	return 8
}

// Signed reports whether the primitive is a signed integer.
func (p Prim) Signed() bool {
	switch p {
	case PrimI8, PrimI16, PrimI32, PrimI64, PrimInt:
		return true
	}
	return false
}

// basicPrims maps Go basic type names to primitives.
var basicPrims = map[string]Prim{
	"bool":    PrimBool,
	"uint8":   PrimU8,
	"byte":    PrimU8,
	"int8":    PrimI8,
	"uint16":  PrimU16,
	"int16":   PrimI16,
	"uint32":  PrimU32,
	"int32":   PrimI32,
	"rune":    PrimChar,
	"uint64":  PrimU64,
	"int64":   PrimI64,
	"float32": PrimF32,
	"float64": PrimF64,
	"int":     PrimInt,
	"uint":    PrimUint,
}

// PrimOf returns the primitive named by a Go basic type name.
func PrimOf(name string) (Prim, bool) {
	p, ok := basicPrims[name]
	return p, ok
}
