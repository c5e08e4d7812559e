package schemafile

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// ValueKind identifies the shape of a decoded Value.
type ValueKind uint8

const (
	// ValueNone is an absent optional.
	ValueNone ValueKind = iota
	// ValueDefault is the zero value of an opaque type, produced by skip or
	// default_on_eof.
	ValueDefault
	ValueBool
	ValueInt
	ValueUint
	ValueFloat
	ValueChar
	ValueString
	ValueBytes
	ValueList
	ValueSet
	ValueMap
	ValueRecord
	ValueVariant
)

var valueKindNames = [...]string{
	ValueNone:    "none",
	ValueDefault: "default",
	ValueBool:    "bool",
	ValueInt:     "int",
	ValueUint:    "uint",
	ValueFloat:   "float",
	ValueChar:    "char",
	ValueString:  "string",
	ValueBytes:   "bytes",
	ValueList:    "list",
	ValueSet:     "set",
	ValueMap:     "map",
	ValueRecord:  "record",
	ValueVariant: "variant",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "unknown"
}

// FieldValue is one decoded record field.
type FieldValue struct {
	Name  string
	Value Value
	// Defaulted is set when the field was skipped or hit end of input
	// under default_on_eof.
	Defaulted bool
}

// Entry is one decoded map entry.
type Entry struct {
	Key   Value
	Value Value
}

// Value is a dynamically decoded value.
type Value struct {
	Str     string
	Type    string
	Variant string
	Bytes   []byte
	Items   []Value
	Entries []Entry
	Fields  []FieldValue
	Float   float64
	Int     int64
	Uint    uint64
	Tag     uint64
	Kind    ValueKind
	Bool    bool
	// Positional marks records and variants whose fields have no names.
	Positional bool
}

// Field returns the named field of a record or variant.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// String renders the value on one line.
func (v Value) String() string {
	var b strings.Builder
	v.write(&b, "", false)
	return b.String()
}

// Pretty renders the value with one field or element per line.
func (v Value) Pretty() string {
	var b strings.Builder
	v.write(&b, "", true)
	return b.String()
}

func (v Value) write(b *strings.Builder, indent string, multi bool) {
	switch v.Kind {
	case ValueNone:
		b.WriteString("none")
	case ValueDefault:
		b.WriteString(v.Type)
		b.WriteString("{}")
	case ValueBool:
		b.WriteString(strconv.FormatBool(v.Bool))
	case ValueInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case ValueUint:
		b.WriteString(strconv.FormatUint(v.Uint, 10))
	case ValueFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case ValueChar:
		b.WriteString(strconv.QuoteRune(rune(v.Int)))
	case ValueString:
		b.WriteString(strconv.Quote(v.Str))
	case ValueBytes:
		if v.Type != "" {
			b.WriteString(v.Type)
			b.WriteByte('(')
		}
		b.WriteString("0x")
		b.WriteString(hex.EncodeToString(v.Bytes))
		if v.Type != "" {
			b.WriteByte(')')
		}
	case ValueList, ValueSet:
		open, end := "[", "]"
		if v.Kind == ValueSet {
			open, end = "{", "}"
		}
		writeItems(b, indent, multi, open, end, len(v.Items), func(i int, in string) {
			v.Items[i].write(b, in, multi)
		})
	case ValueMap:
		writeItems(b, indent, multi, "{", "}", len(v.Entries), func(i int, in string) {
			v.Entries[i].Key.write(b, in, multi)
			b.WriteString(": ")
			v.Entries[i].Value.write(b, in, multi)
		})
	case ValueRecord, ValueVariant:
		b.WriteString(v.Type)
		if v.Kind == ValueVariant {
			b.WriteString("::")
			b.WriteString(v.Variant)
		}
		if len(v.Fields) == 0 {
			return
		}
		open, end := "{", "}"
		if v.Positional {
			open, end = "(", ")"
		}
		writeItems(b, indent, multi, open, end, len(v.Fields), func(i int, in string) {
			f := v.Fields[i]
			if !v.Positional {
				b.WriteString(f.Name)
				b.WriteString(": ")
			}
			f.Value.write(b, in, multi)
		})
	}
}

func writeItems(b *strings.Builder, indent string, multi bool, open, end string, n int, item func(int, string)) {
	b.WriteString(open)
	if n == 0 {
		b.WriteString(end)
		return
	}
	inner := indent + "  "
	for i := range n {
		switch {
		case multi:
			b.WriteByte('\n')
			b.WriteString(inner)
		case i > 0:
			b.WriteString(", ")
		}
		item(i, inner)
		if multi {
			b.WriteByte(',')
		}
	}
	if multi {
		b.WriteByte('\n')
		b.WriteString(indent)
	}
	b.WriteString(end)
}

// env converts the value into the form length expressions see.
func (v Value) env() any {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueInt, ValueChar:
		return int(v.Int)
	case ValueUint:
		if v.Uint > math.MaxInt {
			return v.Uint
		}
		return int(v.Uint)
	case ValueFloat:
		return v.Float
	case ValueString:
		return v.Str
	case ValueBytes:
		return v.Bytes
	case ValueList, ValueSet:
		items := make([]any, len(v.Items))
		for i, it := range v.Items {
			items[i] = it.env()
		}
		return items
	case ValueMap:
		m := make(map[any]any, len(v.Entries))
		for _, e := range v.Entries {
			k := e.Key.env()
			switch k.(type) {
			case []byte, []any, map[any]any, map[string]any:
				k = e.Key.String()
			}
			m[k] = e.Value.env()
		}
		return m
	case ValueRecord, ValueVariant:
		m := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			m[f.Name] = f.Value.env()
		}
		return m
	}
	return nil
}
