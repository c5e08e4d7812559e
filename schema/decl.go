package schema

import "github.com/wippyai/wirecodec/wire"

// Style is the shape of a record's field list.
type Style uint8

const (
	StyleUnit Style = iota
	StylePositional
	StyleNamed
)

var styleNames = [...]string{
	StyleUnit:       "unit",
	StylePositional: "positional",
	StyleNamed:      "named",
}

func (s Style) String() string {
	if int(s) < len(styleNames) {
		return styleNames[s]
	}
	return "unknown"
}

// ParseStyle maps "unit", "positional" or "named" to a Style.
func ParseStyle(name string) (Style, bool) {
	for i, n := range styleNames {
		if n == name {
			return Style(i), true
		}
	}
	return 0, false
}

// FieldDecl is a field as written in a declaration.
type FieldDecl struct {
	Name  string
	Pos   string
	Type  TypeRef
	Attrs []AttrGroup
}

// RecordDecl declares a record type.
type RecordDecl struct {
	Name   string
	Pos    string
	Attrs  []AttrGroup
	Fields []FieldDecl
	Style  Style
}

// VariantDecl declares one variant of an enum. Discriminant holds the
// source-level discriminant expression, if any.
type VariantDecl struct {
	Name         string
	Pos          string
	Discriminant string
	Attrs        []AttrGroup
	Fields       []FieldDecl
	Style        Style
}

// EnumDecl declares a sum type.
type EnumDecl struct {
	Name     string
	Pos      string
	Attrs    []AttrGroup
	Variants []VariantDecl
}

// Field is a validated field.
type Field struct {
	Name string
	Pos  string
	// Length is the source of the length expression, empty if none.
	Length string
	Prefix []byte
	Type   TypeRef
	Node   Node
	Index  int
	// LengthWidth is the width of the implicit length prefix.
	LengthWidth  wire.Width
	Skip         bool
	DefaultOnEOF bool
	// ExplicitWidth is set when length_type was given.
	ExplicitWidth bool
}

// HasLength reports whether the field's element count comes from an
// expression instead of a length prefix.
func (f Field) HasLength() bool {
	return f.Length != ""
}

// Record is a validated record.
type Record struct {
	Name   string
	Pos    string
	Fields []Field
	Style  Style
}

// IsUnit reports whether the record has no fields.
func (r Record) IsUnit() bool {
	return len(r.Fields) == 0
}

// Variant is a validated enum variant with its resolved discriminant.
type Variant struct {
	Name    string
	Pos     string
	Payload Record
	Tag     uint64
}

// Enum is a validated sum type.
type Enum struct {
	Name     string
	Pos      string
	Variants []Variant
	TagWidth wire.Width
	Peek     bool
}
