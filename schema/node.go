package schema

import "strconv"

// Node is the classification of a type reference. Container nodes carry
// their element nodes; opaque nodes keep the reference they delegate to.
type Node struct {
	Elem     *Node
	Key      *Node
	Ref      TypeRef
	Len      int
	Kind     Kind
	Prim     Prim
	Optional bool
}

func (n Node) String() string {
	s := n.describe()
	if n.Optional {
		return "option<" + s + ">"
	}
	return s
}

func (n Node) describe() string {
	switch n.Kind {
	case KindPrimitive:
		return n.Prim.String()
	case KindSequence, KindBorrowedSlice, KindSet:
		return n.Kind.String() + "<" + n.Elem.String() + ">"
	case KindMap:
		return "map<" + n.Key.String() + ", " + n.Elem.String() + ">"
	case KindArray:
		return "array<" + n.Elem.String() + ", " + strconv.Itoa(n.Len) + ">"
	case KindOpaque, KindRecord:
		return n.Kind.String() + "(" + n.Ref.String() + ")"
	}
	return n.Kind.String()
}

// VariableLength reports whether the node is a non-optional value that
// carries a length.
func (n Node) VariableLength() bool {
	return !n.Optional && n.Kind.VariableLength()
}

// Classify maps a type reference to exactly one node. It never fails:
// shapes it does not recognize are opaque.
func Classify(t TypeRef) Node {
	if t.Form == FormPointer {
		if t.Elem.Form == FormPointer {
			return Node{Kind: KindOpaque, Ref: *t.Elem, Optional: true}
		}
		n := Classify(*t.Elem)
		n.Optional = true
		return n
	}
	return classifyValue(t)
}

func classifyValue(t TypeRef) Node {
	if t.Custom {
		return Node{Kind: KindOpaque, Ref: t}
	}

	switch t.Form {
	case FormBasic:
		if t.Name == "string" {
			return Node{Kind: KindString, Ref: t}
		}
		if p, ok := PrimOf(t.Name); ok {
			return Node{Kind: KindPrimitive, Prim: p, Ref: t}
		}
	case FormNamed:
		switch t.Name {
		case RawStringName:
			return Node{Kind: KindBorrowedString, Ref: t}
		case RawBytesName:
			u8 := Node{Kind: KindPrimitive, Prim: PrimU8, Ref: Basic("uint8")}
			return Node{Kind: KindBorrowedSlice, Elem: &u8, Ref: t}
		}
	case FormSlice:
		elem := Classify(*t.Elem)
		return Node{Kind: KindSequence, Elem: &elem, Ref: t}
	case FormArray:
		elem := Classify(*t.Elem)
		return Node{Kind: KindArray, Elem: &elem, Len: t.Len, Ref: t}
	case FormMap:
		key := Classify(*t.Key)
		if t.Elem.Form == FormStruct && t.Elem.Empty {
			return Node{Kind: KindSet, Elem: &key, Ref: t}
		}
		val := Classify(*t.Elem)
		return Node{Kind: KindMap, Key: &key, Elem: &val, Ref: t}
	}
	return Node{Kind: KindOpaque, Ref: t}
}
