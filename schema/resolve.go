package schema

import (
	"strconv"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/wire"
)

// Option names.
const (
	OptLength         = "length"
	OptLengthType     = "length_type"
	OptDefaultOnEOF   = "default_on_eof"
	OptSkip           = "skip"
	OptConstantPrefix = "constant_prefix"
	OptTag            = "tag"
	OptTagType        = "tag_type"
	OptPeekTag        = "peek_tag"
)

const (
	lengthAllowed     = "strings, slices, maps, sets, wire.RawBytes and wire.RawString"
	lengthTypeAllowed = lengthAllowed + " and for pointers to one of these types"
)

// optionSet tracks seen option names for duplicate detection across groups.
type optionSet map[string]bool

func (s optionSet) add(a Attr) error {
	if s[a.Key] {
		return errors.DuplicateOption(a.Pos, a.Key)
	}
	s[a.Key] = true
	return nil
}

func flagOnly(a Attr) error {
	if a.HasValue {
		return errors.InvalidLiteral(a.Pos, "'"+a.Key+"' does not take a value")
	}
	return nil
}

func valueRequired(a Attr) error {
	if !a.HasValue || a.Value == "" {
		return errors.InvalidLiteral(a.Pos, "'"+a.Key+"' requires a value")
	}
	return nil
}

func parseWidthValue(a Attr) (wire.Width, error) {
	if err := valueRequired(a); err != nil {
		return 0, err
	}
	w, ok := wire.ParseWidth(a.Value)
	if !ok {
		return 0, errors.New(errors.PhaseResolve, errors.KindInvalidLiteral).
			Pos(a.Pos).
			Value(a.Value).
			Detail("unknown width %q for '%s'", a.Value, a.Key).
			Build()
	}
	return w, nil
}

func firstPos(pos string, groups []AttrGroup) string {
	if pos != "" {
		return pos
	}
	for _, g := range groups {
		for _, a := range g {
			if a.Pos != "" {
				return a.Pos
			}
		}
	}
	return ""
}

// ResolveField validates a field declaration's attributes against its type.
func ResolveField(d FieldDecl, index int) (Field, error) {
	f := Field{
		Name:        d.Name,
		Pos:         d.Pos,
		Type:        d.Type,
		Node:        Classify(d.Type),
		Index:       index,
		LengthWidth: wire.DefaultLength,
	}
	if f.Name == "" {
		f.Name = strconv.Itoa(index)
	}

	seen := optionSet{}
	var lengthAttr, lengthTypeAttr *Attr
	for _, group := range d.Attrs {
		for i := range group {
			a := group[i]
			switch a.Key {
			case OptSkip, OptDefaultOnEOF, OptLength, OptLengthType, OptConstantPrefix:
			default:
				return Field{}, errors.UnknownOption(a.Pos, a.Key, "field")
			}
			if err := seen.add(a); err != nil {
				return Field{}, err
			}

			switch a.Key {
			case OptSkip:
				if err := flagOnly(a); err != nil {
					return Field{}, err
				}
				f.Skip = true
			case OptDefaultOnEOF:
				if err := flagOnly(a); err != nil {
					return Field{}, err
				}
				f.DefaultOnEOF = true
			case OptLength:
				if err := valueRequired(a); err != nil {
					return Field{}, err
				}
				f.Length = a.Value
				lengthAttr = &group[i]
			case OptLengthType:
				w, err := parseWidthValue(a)
				if err != nil {
					return Field{}, err
				}
				f.LengthWidth = w
				f.ExplicitWidth = true
				lengthTypeAttr = &group[i]
			case OptConstantPrefix:
				if err := valueRequired(a); err != nil {
					return Field{}, err
				}
				prefix, err := ParsePrefix(a.Value, a.Pos)
				if err != nil {
					return Field{}, err
				}
				if len(prefix) > 0 {
					f.Prefix = prefix
				}
			}
		}
	}

	if lengthAttr != nil && lengthTypeAttr != nil {
		return Field{}, errors.ConflictingOptions(lengthTypeAttr.Pos, OptLengthType, OptLength)
	}
	if lengthAttr != nil && !f.Node.VariableLength() {
		return Field{}, errors.UnsupportedOption(lengthAttr.Pos, OptLength, d.Type.String(), lengthAllowed)
	}
	if lengthTypeAttr != nil && !f.Node.Kind.VariableLength() {
		return Field{}, errors.UnsupportedOption(lengthTypeAttr.Pos, OptLengthType, d.Type.String(), lengthTypeAllowed)
	}
	return f, nil
}

// resolveFields validates a field list. Positional styles ignore names.
func resolveFields(style Style, decls []FieldDecl, pos string) ([]Field, error) {
	if style == StyleUnit && len(decls) > 0 {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(pos).
			Detail("unit record cannot have fields").
			Build()
	}
	fields := make([]Field, 0, len(decls))
	names := make(map[string]bool, len(decls))
	for i, d := range decls {
		if style == StylePositional {
			d.Name = ""
		} else if d.Name == "" {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Pos(firstPos(d.Pos, nil)).
				Detail("field %d of a named record has no name", i).
				Build()
		}
		f, err := ResolveField(d, i)
		if err != nil {
			return nil, err
		}
		if names[f.Name] {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
				Pos(f.Pos).
				Detail("duplicate field %q", f.Name).
				Build()
		}
		names[f.Name] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// ResolveRecord validates a record declaration. Records accept no options of
// their own.
func ResolveRecord(d RecordDecl) (Record, error) {
	for _, group := range d.Attrs {
		for _, a := range group {
			return Record{}, errors.UnknownOption(a.Pos, a.Key, "record")
		}
	}
	fields, err := resolveFields(d.Style, d.Fields, d.Pos)
	if err != nil {
		return Record{}, err
	}
	return Record{Name: d.Name, Pos: d.Pos, Style: d.Style, Fields: fields}, nil
}

// ResolveEnum validates an enum declaration and allocates its discriminants.
func ResolveEnum(d EnumDecl) (Enum, error) {
	e := Enum{Name: d.Name, Pos: d.Pos, TagWidth: wire.DefaultTag}

	seen := optionSet{}
	for _, group := range d.Attrs {
		for _, a := range group {
			switch a.Key {
			case OptTagType:
				if err := seen.add(a); err != nil {
					return Enum{}, err
				}
				w, err := parseWidthValue(a)
				if err != nil {
					return Enum{}, err
				}
				e.TagWidth = w
			case OptPeekTag:
				if err := seen.add(a); err != nil {
					return Enum{}, err
				}
				if err := flagOnly(a); err != nil {
					return Enum{}, err
				}
				e.Peek = true
			default:
				return Enum{}, errors.UnknownOption(a.Pos, a.Key, "enum")
			}
		}
	}

	alloc := NewTagAllocator(d.Name, e.TagWidth)
	e.Variants = make([]Variant, 0, len(d.Variants))
	for _, vd := range d.Variants {
		explicit, err := variantTag(vd)
		if err != nil {
			return Enum{}, err
		}
		tag, err := alloc.Next(vd.Name, firstPos(vd.Pos, vd.Attrs), explicit, vd.Discriminant)
		if err != nil {
			return Enum{}, err
		}
		fields, err := resolveFields(vd.Style, vd.Fields, vd.Pos)
		if err != nil {
			return Enum{}, err
		}
		e.Variants = append(e.Variants, Variant{
			Name: vd.Name,
			Pos:  vd.Pos,
			Tag:  tag,
			Payload: Record{
				Name:   d.Name + "::" + vd.Name,
				Pos:    vd.Pos,
				Style:  vd.Style,
				Fields: fields,
			},
		})
	}
	return e, nil
}

// variantTag returns the explicit tag attribute of a variant, if present.
func variantTag(vd VariantDecl) (*uint64, error) {
	var tag *uint64
	seen := optionSet{}
	for _, group := range vd.Attrs {
		for _, a := range group {
			if a.Key != OptTag {
				return nil, errors.UnknownOption(a.Pos, a.Key, "variant")
			}
			if err := seen.add(a); err != nil {
				return nil, err
			}
			if err := valueRequired(a); err != nil {
				return nil, err
			}
			v, err := strconv.ParseUint(a.Value, 0, 64)
			if err != nil {
				return nil, errors.New(errors.PhaseResolve, errors.KindInvalidLiteral).
					Pos(a.Pos).
					Value(a.Value).
					Detail("'tag' must be a non-negative integer literal").
					Build()
			}
			tag = &v
		}
	}
	return tag, nil
}
