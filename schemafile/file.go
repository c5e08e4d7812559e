package schemafile

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Type kinds.
const (
	KindRecord = "record"
	KindEnum   = "enum"
	KindOpaque = "opaque"
	KindUnion  = "union"
)

// File is a parsed declaration file.
type File struct {
	Path  string     `yaml:"-" toml:"-" json:"-"`
	Types []TypeDecl `yaml:"types" toml:"types" json:"types"`
}

// Location marks where a declaration appeared. YAML sources carry line and
// column; other formats fall back to the declaration's index path.
type Location struct {
	Index  string
	Line   int
	Column int
}

func (l Location) pos(file string) string {
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	}
	if l.Index == "" {
		return file
	}
	return file + ":" + l.Index
}

// Attrs is a list of attribute groups. A single string is accepted as a
// one-group list.
type Attrs []string

func (a *Attrs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = Attrs{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*a = list
	return nil
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Attrs{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*a = list
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler.
func (a *Attrs) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case string:
		*a = Attrs{x}
	case []any:
		list := make(Attrs, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("attrs: expected string, got %T", item)
			}
			list = append(list, s)
		}
		*a = list
	default:
		return fmt.Errorf("attrs: expected string or array, got %T", v)
	}
	return nil
}

// FieldSpec declares one field.
type FieldSpec struct {
	Name  string `yaml:"name" toml:"name" json:"name"`
	Type  string `yaml:"type" toml:"type" json:"type"`
	Attrs Attrs  `yaml:"attrs" toml:"attrs" json:"attrs"`
	Location `yaml:"-" toml:"-" json:"-"`
}

func (f *FieldSpec) UnmarshalYAML(value *yaml.Node) error {
	if err := knownKeys(value, "name", "type", "attrs"); err != nil {
		return err
	}
	type plain FieldSpec
	if err := value.Decode((*plain)(f)); err != nil {
		return err
	}
	f.Line, f.Column = value.Line, value.Column
	return nil
}

// VariantSpec declares one enum variant.
type VariantSpec struct {
	Name string `yaml:"name" toml:"name" json:"name"`
	// Discriminant is the variant's source discriminant, used for the tag
	// when no tag option is given.
	Discriminant string      `yaml:"discriminant" toml:"discriminant" json:"discriminant"`
	Style        string      `yaml:"style" toml:"style" json:"style"`
	Attrs        Attrs       `yaml:"attrs" toml:"attrs" json:"attrs"`
	Fields       []FieldSpec `yaml:"fields" toml:"fields" json:"fields"`
	Location `yaml:"-" toml:"-" json:"-"`
}

func (v *VariantSpec) UnmarshalYAML(value *yaml.Node) error {
	if err := knownKeys(value, "name", "discriminant", "style", "attrs", "fields"); err != nil {
		return err
	}
	type plain VariantSpec
	if err := value.Decode((*plain)(v)); err != nil {
		return err
	}
	v.Line, v.Column = value.Line, value.Column
	return nil
}

// TypeDecl declares one named type.
type TypeDecl struct {
	Name     string        `yaml:"name" toml:"name" json:"name"`
	Kind     string        `yaml:"kind" toml:"kind" json:"kind"`
	Style    string        `yaml:"style" toml:"style" json:"style"`
	Attrs    Attrs         `yaml:"attrs" toml:"attrs" json:"attrs"`
	Fields   []FieldSpec   `yaml:"fields" toml:"fields" json:"fields"`
	Variants []VariantSpec `yaml:"variants" toml:"variants" json:"variants"`
	// Size is the fixed encoded size of an opaque type. Opaque types with a
	// size decode as raw bytes.
	Size *int `yaml:"size" toml:"size" json:"size"`
	// MinSize is the minimum encoded size of an opaque type whose size
	// varies. Such types cannot be decoded dynamically.
	MinSize int `yaml:"min_size" toml:"min_size" json:"min_size"`
	Location `yaml:"-" toml:"-" json:"-"`
}

func (t *TypeDecl) UnmarshalYAML(value *yaml.Node) error {
	if err := knownKeys(value, "name", "kind", "style", "attrs", "fields", "variants", "size", "min_size"); err != nil {
		return err
	}
	type plain TypeDecl
	if err := value.Decode((*plain)(t)); err != nil {
		return err
	}
	t.Line, t.Column = value.Line, value.Column
	return nil
}

// knownKeys rejects mapping keys outside keys. Decoding through a node
// does not inherit the decoder's KnownFields setting.
func knownKeys(value *yaml.Node, keys ...string) error {
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		k := value.Content[i]
		if !slices.Contains(keys, k.Value) {
			return fmt.Errorf("line %d: unknown key %q", k.Line, k.Value)
		}
	}
	return nil
}

// index fills in index paths for formats without line information.
func (f *File) index() {
	for i := range f.Types {
		td := &f.Types[i]
		td.Index = "types[" + strconv.Itoa(i) + "]"
		for j := range td.Fields {
			td.Fields[j].Index = td.Index + ".fields[" + strconv.Itoa(j) + "]"
		}
		for j := range td.Variants {
			v := &td.Variants[j]
			v.Index = td.Index + ".variants[" + strconv.Itoa(j) + "]"
			for k := range v.Fields {
				v.Fields[k].Index = v.Index + ".fields[" + strconv.Itoa(k) + "]"
			}
		}
	}
}
