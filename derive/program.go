package derive

import (
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// FieldProgram holds the decode and encode sequences of one field.
type FieldProgram struct {
	Field   schema.Field
	Decode  []Op
	Encode  []Op
	MinSize int
}

// RecordProgram holds the field programs of a record in declaration order.
type RecordProgram struct {
	Record  schema.Record
	Fields  []FieldProgram
	MinSize int
}

// Case is the program for one enum variant.
type Case struct {
	Program *RecordProgram
	Variant schema.Variant
}

// EnumProgram dispatches on the enum tag.
type EnumProgram struct {
	byTag   map[uint64]int
	Enum    schema.Enum
	Cases   []Case
	MinSize int
}

// Case returns the variant selected by tag.
func (p *EnumProgram) Case(tag uint64) (*Case, bool) {
	i, ok := p.byTag[tag]
	if !ok {
		return nil, false
	}
	return &p.Cases[i], true
}

// CaseIndex returns the position in Cases of the variant selected by tag.
func (p *EnumProgram) CaseIndex(tag uint64) (int, bool) {
	i, ok := p.byTag[tag]
	return i, ok
}

// Record derives the program for a validated record.
func Record(rec schema.Record, sizes SizeFunc) (*RecordProgram, error) {
	p := &RecordProgram{
		Record: rec,
		Fields: make([]FieldProgram, len(rec.Fields)),
	}
	for i := range rec.Fields {
		fp, err := deriveField(rec.Fields, i, sizes)
		if err != nil {
			return nil, err
		}
		p.Fields[i] = fp
		p.MinSize += fp.MinSize
	}
	return p, nil
}

func deriveField(fields []schema.Field, index int, sizes SizeFunc) (FieldProgram, error) {
	f := fields[index]
	fp := FieldProgram{Field: f, MinSize: FieldMinSize(f, sizes)}

	if f.Skip {
		fp.Decode = []Op{{Code: OpDefault, Node: f.Node}}
		return fp, nil
	}

	var lengthOp *Op
	switch {
	case f.HasLength():
		le, err := CompileLength(fields, index)
		if err != nil {
			return FieldProgram{}, err
		}
		lengthOp = &Op{Code: OpLengthExpr, Expr: le}
	case f.Node.Kind.VariableLength():
		lengthOp = &Op{Code: OpLength, Width: f.LengthWidth}
	}

	var head []Op
	if f.Prefix != nil {
		head = append(head, Op{Code: OpPrefix, Bytes: f.Prefix})
	}
	if f.Node.Optional {
		head = append(head, Op{Code: OpPresence})
	}
	body := bodyOp(f.Node, sizes)

	fp.Decode = append(fp.Decode, head...)
	if lengthOp != nil {
		fp.Decode = append(fp.Decode, *lengthOp)
	}
	fp.Decode = append(fp.Decode, body)

	if lengthOp != nil && lengthOp.Code == OpLengthExpr {
		fp.Encode = append(fp.Encode, *lengthOp)
		fp.Encode = append(fp.Encode, head...)
	} else {
		fp.Encode = append(fp.Encode, head...)
		if lengthOp != nil {
			fp.Encode = append(fp.Encode, *lengthOp)
		}
	}
	fp.Encode = append(fp.Encode, body)
	return fp, nil
}

// Enum derives the program for a validated enum.
func Enum(e schema.Enum, sizes SizeFunc) (*EnumProgram, error) {
	p := &EnumProgram{
		Enum:    e,
		Cases:   make([]Case, len(e.Variants)),
		byTag:   make(map[uint64]int, len(e.Variants)),
		MinSize: EnumMinSize(e, sizes),
	}
	for i, v := range e.Variants {
		if _, dup := p.byTag[v.Tag]; dup {
			return nil, errors.DuplicateDiscriminant(v.Pos, v.Tag, v.Name, e.Variants[p.byTag[v.Tag]].Name)
		}
		if v.Tag > e.TagWidth.Max() {
			return nil, errors.DiscriminantOverflow(v.Pos, e.Name, v.Name, v.Tag, e.TagWidth.String())
		}
		rp, err := Record(v.Payload, sizes)
		if err != nil {
			return nil, err
		}
		p.Cases[i] = Case{Variant: v, Program: rp}
		p.byTag[v.Tag] = i
	}
	return p, nil
}

// TagWidth returns the enum's tag width.
func (p *EnumProgram) TagWidth() wire.Width {
	return p.Enum.TagWidth
}
