package schemafile

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// Decode reads one value of the named type from r. On error r is rewound
// to where it started.
func (s *Schema) Decode(r *wire.Reader, name string) (Value, error) {
	t, ok := s.types[name]
	if !ok {
		return Value{}, errors.UnknownType("", name)
	}
	start := r.Offset()
	d := decoder{s: s, r: r}
	v, err := d.named(t)
	if err != nil {
		r.Seek(start)
		return Value{}, withPath(err, name)
	}
	return v, nil
}

type decoder struct {
	s *Schema
	r *wire.Reader
}

func (d *decoder) named(t *TypeInfo) (Value, error) {
	switch t.Kind {
	case KindRecord:
		return d.record(t.Name, t.Record)
	case KindEnum:
		return d.enum(t)
	}
	if t.Size < 0 {
		return Value{}, errors.Unsupported(errors.PhaseDecode, "opaque type "+t.Name+" has no fixed size")
	}
	b, err := d.r.ReadBytes(t.Size)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: ValueBytes, Type: t.Name, Bytes: b}, nil
}

func (d *decoder) record(name string, p *derive.RecordProgram) (Value, error) {
	v := Value{
		Kind:       ValueRecord,
		Type:       name,
		Positional: p.Record.Style == schema.StylePositional,
	}
	var env map[string]any
	if needsEnv(p) {
		env = make(map[string]any, len(p.Fields))
	}

	for i := range p.Fields {
		fp := &p.Fields[i]
		f := &fp.Field
		fv := FieldValue{Name: f.Name, Defaulted: f.Skip}

		mark := d.r.Offset()
		val, err := d.steps(fp.Decode, env)
		if err != nil {
			if !f.DefaultOnEOF || !errors.IsEOF(err) {
				return Value{}, withPath(err, f.Name)
			}
			d.r.Seek(mark)
			val = zeroValue(f.Node)
			fv.Defaulted = true
		}
		fv.Value = val
		if env != nil {
			env[f.Name] = val.env()
		}
		v.Fields = append(v.Fields, fv)
	}
	return v, nil
}

func needsEnv(p *derive.RecordProgram) bool {
	for _, f := range p.Fields {
		if f.Field.HasLength() {
			return true
		}
	}
	return false
}

func (d *decoder) enum(t *TypeInfo) (Value, error) {
	e := t.Enum.Enum
	var tag uint64
	var err error
	if e.Peek {
		tag, err = d.r.PeekUint(e.TagWidth)
	} else {
		tag, err = d.r.ReadUint(e.TagWidth)
	}
	if err != nil {
		return Value{}, err
	}

	c, ok := t.Enum.Case(tag)
	if !ok {
		return Value{}, errors.InvalidVariant(nil, tag, e.Name)
	}
	v, err := d.record(t.Name, c.Program)
	if err != nil {
		return Value{}, withPath(err, c.Variant.Name)
	}
	v.Kind = ValueVariant
	v.Variant = c.Variant.Name
	v.Tag = tag
	return v, nil
}

func (d *decoder) steps(ops []derive.Op, env map[string]any) (Value, error) {
	length := 0
	for _, op := range ops {
		switch op.Code {
		case derive.OpPrefix:
			if err := d.r.Expect(op.Bytes); err != nil {
				return Value{}, err
			}
		case derive.OpDefault:
			return zeroValue(op.Node), nil
		case derive.OpPresence:
			flag, err := d.r.ReadU8()
			if err != nil {
				return Value{}, err
			}
			if flag == 0 {
				return Value{Kind: ValueNone}, nil
			}
		case derive.OpLength:
			n, err := d.r.ReadLength(op.Width)
			if err != nil {
				return Value{}, err
			}
			length = n
		case derive.OpLengthExpr:
			n, err := op.Expr.Eval(env)
			if err != nil {
				return Value{}, err
			}
			length = n
		default:
			return d.body(op, length)
		}
	}
	return Value{}, errors.InvalidData(errors.PhaseDecode, nil, "op sequence has no body")
}

func (d *decoder) checkLength(op derive.Op, n int) error {
	if n > d.s.maxLength {
		return errors.Overflow(errors.PhaseDecode, nil, n, "length limit "+strconv.Itoa(d.s.maxLength))
	}
	if op.ElemMin > 0 && n > d.r.Remaining()/op.ElemMin {
		need := math.MaxInt
		if n <= math.MaxInt/op.ElemMin {
			need = n * op.ElemMin
		}
		return errors.EOF(nil, need, d.r.Remaining())
	}
	return nil
}

// isByte reports whether a node is a plain u8, decoded in bulk as bytes.
func isByte(n *schema.Node) bool {
	return n != nil && !n.Optional && n.Kind == schema.KindPrimitive && n.Prim == schema.PrimU8
}

func (d *decoder) body(op derive.Op, n int) (Value, error) {
	switch op.Code {
	case derive.OpPrimitive:
		return d.primitive(op.Prim)

	case derive.OpString, derive.OpBorrowedString:
		if err := d.checkLength(op, n); err != nil {
			return Value{}, err
		}
		b, err := d.r.Borrow(n)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, errors.InvalidUTF8(errors.PhaseDecode, nil, b)
		}
		return Value{Kind: ValueString, Str: string(b)}, nil

	case derive.OpBorrowedSlice:
		if err := d.checkLength(op, n); err != nil {
			return Value{}, err
		}
		b, err := d.r.ReadBytes(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueBytes, Bytes: b}, nil

	case derive.OpSequence, derive.OpSet:
		if err := d.checkLength(op, n); err != nil {
			return Value{}, err
		}
		kind := ValueList
		if op.Code == derive.OpSet {
			kind = ValueSet
		} else if isByte(op.Node.Elem) {
			b, err := d.r.ReadBytes(n)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValueBytes, Bytes: b}, nil
		}
		return d.items(kind, op.Elem, n)

	case derive.OpMap:
		if err := d.checkLength(op, n); err != nil {
			return Value{}, err
		}
		v := Value{Kind: ValueMap, Entries: make([]Entry, 0, n)}
		for i := range n {
			k, err := d.steps(op.Key, nil)
			if err != nil {
				return Value{}, withPath(err, indexSeg(i))
			}
			e, err := d.steps(op.Elem, nil)
			if err != nil {
				return Value{}, withPath(err, indexSeg(i))
			}
			v.Entries = append(v.Entries, Entry{Key: k, Value: e})
		}
		return v, nil

	case derive.OpArray:
		if isByte(op.Node.Elem) {
			b, err := d.r.ReadBytes(op.Len)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: ValueBytes, Bytes: b}, nil
		}
		return d.items(ValueList, op.Elem, op.Len)

	case derive.OpDelegate:
		ref := op.Node.Ref
		switch ref.Form {
		case schema.FormNamed:
			if t, ok := d.s.types[ref.Name]; ok {
				return d.named(t)
			}
			return Value{}, errors.UnknownType("", ref.Name)
		case schema.FormPointer:
			return d.steps(derive.ValueOps(schema.Classify(ref), d.s.sizes), nil)
		}
		return Value{}, errors.Unsupported(errors.PhaseDecode, "type "+ref.String())
	}
	return Value{}, errors.Unsupported(errors.PhaseDecode, "op "+op.Code.String())
}

func (d *decoder) items(kind ValueKind, elem []derive.Op, n int) (Value, error) {
	v := Value{Kind: kind, Items: make([]Value, 0, n)}
	for i := range n {
		it, err := d.steps(elem, nil)
		if err != nil {
			return Value{}, withPath(err, indexSeg(i))
		}
		v.Items = append(v.Items, it)
	}
	return v, nil
}

func (d *decoder) primitive(prim schema.Prim) (Value, error) {
	r := d.r
	switch prim {
	case schema.PrimBool:
		b, err := r.ReadU8()
		return Value{Kind: ValueBool, Bool: b != 0}, err
	case schema.PrimU8:
		x, err := r.ReadU8()
		return Value{Kind: ValueUint, Uint: uint64(x)}, err
	case schema.PrimI8:
		x, err := r.ReadI8()
		return Value{Kind: ValueInt, Int: int64(x)}, err
	case schema.PrimU16:
		x, err := r.ReadU16()
		return Value{Kind: ValueUint, Uint: uint64(x)}, err
	case schema.PrimI16:
		x, err := r.ReadI16()
		return Value{Kind: ValueInt, Int: int64(x)}, err
	case schema.PrimU32:
		x, err := r.ReadU32()
		return Value{Kind: ValueUint, Uint: uint64(x)}, err
	case schema.PrimI32:
		x, err := r.ReadI32()
		return Value{Kind: ValueInt, Int: int64(x)}, err
	case schema.PrimChar:
		x, err := r.ReadU32()
		if err != nil {
			return Value{}, err
		}
		if x > utf8.MaxRune || !utf8.ValidRune(rune(x)) {
			return Value{}, errors.InvalidChar(errors.PhaseDecode, nil, x)
		}
		return Value{Kind: ValueChar, Int: int64(x)}, nil
	case schema.PrimU64, schema.PrimUint:
		x, err := r.ReadU64()
		return Value{Kind: ValueUint, Uint: x}, err
	case schema.PrimI64, schema.PrimInt:
		x, err := r.ReadI64()
		return Value{Kind: ValueInt, Int: x}, err
	case schema.PrimF32:
		x, err := r.ReadF32()
		return Value{Kind: ValueFloat, Float: float64(x)}, err
	case schema.PrimF64:
		x, err := r.ReadF64()
		return Value{Kind: ValueFloat, Float: x}, err
	}
	return Value{}, errors.Unsupported(errors.PhaseDecode, "primitive "+prim.String())
}

// zeroValue is the value a skipped or defaulted field takes.
func zeroValue(n schema.Node) Value {
	if n.Optional {
		return Value{Kind: ValueNone}
	}
	switch n.Kind {
	case schema.KindPrimitive:
		switch {
		case n.Prim == schema.PrimBool:
			return Value{Kind: ValueBool}
		case n.Prim == schema.PrimChar:
			return Value{Kind: ValueChar}
		case n.Prim == schema.PrimF32 || n.Prim == schema.PrimF64:
			return Value{Kind: ValueFloat}
		case n.Prim.Signed():
			return Value{Kind: ValueInt}
		}
		return Value{Kind: ValueUint}
	case schema.KindString, schema.KindBorrowedString:
		return Value{Kind: ValueString}
	case schema.KindBorrowedSlice:
		return Value{Kind: ValueBytes}
	case schema.KindSequence:
		if isByte(n.Elem) {
			return Value{Kind: ValueBytes}
		}
		return Value{Kind: ValueList}
	case schema.KindSet:
		return Value{Kind: ValueSet}
	case schema.KindMap:
		return Value{Kind: ValueMap}
	case schema.KindArray:
		if isByte(n.Elem) {
			return Value{Kind: ValueBytes, Bytes: make([]byte, n.Len)}
		}
		items := make([]Value, n.Len)
		for i := range items {
			items[i] = zeroValue(*n.Elem)
		}
		return Value{Kind: ValueList, Items: items}
	}
	return Value{Kind: ValueDefault, Type: n.Ref.String()}
}

func withPath(err error, seg ...string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithPath(seg...)
	}
	return err
}

func indexSeg(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
