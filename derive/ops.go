package derive

import (
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// OpCode identifies a primitive codec step.
type OpCode uint8

const (
	// OpPrefix reads and verifies, or writes, constant bytes.
	OpPrefix OpCode = iota
	// OpDefault assigns the zero value without touching the input.
	OpDefault
	// OpPresence reads or writes the optional flag. An absent value ends
	// the sequence.
	OpPresence
	// OpLength reads or writes a length prefix of Width.
	OpLength
	// OpLengthExpr evaluates Expr. Decoders use the result as the length;
	// encoders fail unless it equals the live length.
	OpLengthExpr
	OpString
	OpBorrowedString
	OpSequence
	OpBorrowedSlice
	OpSet
	OpMap
	// OpArray handles Len values with no length prefix.
	OpArray
	OpPrimitive
	// OpDelegate hands the value to the type's own codec.
	OpDelegate
)

var opNames = [...]string{
	OpPrefix:         "prefix",
	OpDefault:        "default",
	OpPresence:       "presence",
	OpLength:         "length",
	OpLengthExpr:     "length-expr",
	OpString:         "string",
	OpBorrowedString: "borrowed-string",
	OpSequence:       "sequence",
	OpBorrowedSlice:  "borrowed-slice",
	OpSet:            "set",
	OpMap:            "map",
	OpArray:          "array",
	OpPrimitive:      "primitive",
	OpDelegate:       "delegate",
}

func (c OpCode) String() string {
	if int(c) < len(opNames) {
		return opNames[c]
	}
	return "unknown"
}

// Op is one step of a codec program. Container ops carry the programs for
// their elements (and keys, for maps).
type Op struct {
	Expr  *LengthExpr
	Bytes []byte
	Elem  []Op
	Key   []Op
	Node  schema.Node
	Len   int
	// ElemMin is the minimum encoded size of one element (one entry for
	// maps), used to reject impossible lengths before allocating.
	ElemMin int
	Code    OpCode
	Width   wire.Width
	Prim    schema.Prim
}

// IsBody reports whether the op consumes or produces the value itself.
func (o Op) IsBody() bool {
	return o.Code >= OpString
}

// bodyOp returns the op that processes the value of a non-optional node.
func bodyOp(n schema.Node, sizes SizeFunc) Op {
	n.Optional = false
	op := Op{Node: n}
	switch n.Kind {
	case schema.KindPrimitive:
		op.Code = OpPrimitive
		op.Prim = n.Prim
	case schema.KindString:
		op.Code = OpString
		op.ElemMin = 1
	case schema.KindBorrowedString:
		op.Code = OpBorrowedString
		op.ElemMin = 1
	case schema.KindSequence:
		op.Code = OpSequence
		op.Elem = ValueOps(*n.Elem, sizes)
		op.ElemMin = NodeMinSize(*n.Elem, sizes)
	case schema.KindBorrowedSlice:
		op.Code = OpBorrowedSlice
		op.ElemMin = 1
	case schema.KindSet:
		op.Code = OpSet
		op.Elem = ValueOps(*n.Elem, sizes)
		op.ElemMin = NodeMinSize(*n.Elem, sizes)
	case schema.KindMap:
		op.Code = OpMap
		op.Key = ValueOps(*n.Key, sizes)
		op.Elem = ValueOps(*n.Elem, sizes)
		op.ElemMin = NodeMinSize(*n.Key, sizes) + NodeMinSize(*n.Elem, sizes)
	case schema.KindArray:
		op.Code = OpArray
		op.Len = n.Len
		op.Elem = ValueOps(*n.Elem, sizes)
		op.ElemMin = NodeMinSize(*n.Elem, sizes)
	default:
		op.Code = OpDelegate
	}
	return op
}

// ValueOps returns the program for a nested value using default
// conventions.
func ValueOps(n schema.Node, sizes SizeFunc) []Op {
	var ops []Op
	if n.Optional {
		ops = append(ops, Op{Code: OpPresence})
	}
	if n.Kind.VariableLength() {
		ops = append(ops, Op{Code: OpLength, Width: wire.DefaultLength})
	}
	return append(ops, bodyOp(n, sizes))
}
