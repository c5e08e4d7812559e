package derive

import (
	"strings"
	"testing"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

func field(t *testing.T, name, typ string, groups ...string) schema.FieldDecl {
	t.Helper()
	ref, err := schema.ParseType(typ)
	if err != nil {
		t.Fatalf("ParseType(%q): %v", typ, err)
	}
	d := schema.FieldDecl{Name: name, Type: ref}
	for _, g := range groups {
		group, err := schema.ParseAttrs(g, "")
		if err != nil {
			t.Fatalf("ParseAttrs(%q): %v", g, err)
		}
		d.Attrs = append(d.Attrs, group)
	}
	return d
}

func record(t *testing.T, fields ...schema.FieldDecl) schema.Record {
	t.Helper()
	rec, err := schema.ResolveRecord(schema.RecordDecl{Name: "R", Style: schema.StyleNamed, Fields: fields})
	if err != nil {
		t.Fatalf("ResolveRecord: %v", err)
	}
	return rec
}

func opaqueSizes(ref schema.TypeRef) int {
	switch ref.Name {
	case "Header":
		return 6
	case "uuid.UUID":
		return 16
	}
	return 0
}

func codes(ops []Op) []OpCode {
	out := make([]OpCode, len(ops))
	for i, op := range ops {
		out[i] = op.Code
	}
	return out
}

func equalCodes(a, b []OpCode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFieldOps(t *testing.T) {
	tests := []struct {
		name   string
		fields []schema.FieldDecl
		decode []OpCode
		encode []OpCode
	}{
		{
			name:   "primitive",
			fields: []schema.FieldDecl{field(t, "a", "uint16")},
			decode: []OpCode{OpPrimitive},
			encode: []OpCode{OpPrimitive},
		},
		{
			name:   "prefixed optional string",
			fields: []schema.FieldDecl{field(t, "s", "*string", `constant_prefix = b"AB"`, "length_type = u8")},
			decode: []OpCode{OpPrefix, OpPresence, OpLength, OpString},
			encode: []OpCode{OpPrefix, OpPresence, OpLength, OpString},
		},
		{
			name: "length expression checked first on encode",
			fields: []schema.FieldDecl{
				field(t, "count", "uint8"),
				field(t, "items", "[]uint32", "length = count", `constant_prefix = 1u8`),
			},
			decode: []OpCode{OpPrefix, OpLengthExpr, OpSequence},
			encode: []OpCode{OpLengthExpr, OpPrefix, OpSequence},
		},
		{
			name:   "skip",
			fields: []schema.FieldDecl{field(t, "x", "[]string", "skip", `constant_prefix = "zz"`)},
			decode: []OpCode{OpDefault},
			encode: []OpCode{},
		},
		{
			name:   "array",
			fields: []schema.FieldDecl{field(t, "a", "[3]Header")},
			decode: []OpCode{OpArray},
			encode: []OpCode{OpArray},
		},
		{
			name:   "opaque",
			fields: []schema.FieldDecl{field(t, "h", "*Header")},
			decode: []OpCode{OpPresence, OpDelegate},
			encode: []OpCode{OpPresence, OpDelegate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Record(record(t, tt.fields...), opaqueSizes)
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			last := p.Fields[len(p.Fields)-1]
			if got := codes(last.Decode); !equalCodes(got, tt.decode) {
				t.Errorf("decode = %v, want %v", got, tt.decode)
			}
			if got := codes(last.Encode); !equalCodes(got, tt.encode) {
				t.Errorf("encode = %v, want %v", got, tt.encode)
			}
		})
	}
}

func TestElementOps(t *testing.T) {
	p, err := Record(record(t, field(t, "m", "map[string][]*uint16")), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got := FormatOps(p.Fields[0].Decode)
	want := "length(u32) map[length(u32) string => length(u32) sequence[presence primitive(u16)]]"
	if got != want {
		t.Errorf("ops = %q\nwant  %q", got, want)
	}
	body := p.Fields[0].Decode[1]
	if body.ElemMin != 8 {
		t.Errorf("map entry minimum = %d, want 8", body.ElemMin)
	}
}

func TestRecordMinSize(t *testing.T) {
	tests := []struct {
		name   string
		fields []schema.FieldDecl
		want   int
	}{
		{"empty", nil, 0},
		{"primitives", []schema.FieldDecl{field(t, "a", "uint8"), field(t, "b", "int64"), field(t, "c", "float32")}, 13},
		{"optional", []schema.FieldDecl{field(t, "a", "*[16]uint64")}, 1},
		{"default string", []schema.FieldDecl{field(t, "s", "string")}, 4},
		{"u7 length", []schema.FieldDecl{field(t, "s", "[]byte", "length_type = u7")}, 1},
		{"varint length", []schema.FieldDecl{field(t, "s", "map[int]int", "length_type = u64_varint")}, 1},
		{"u16 length", []schema.FieldDecl{field(t, "s", "wire.RawBytes", "length_type = u16")}, 2},
		{"u64 length", []schema.FieldDecl{field(t, "s", "wire.RawString", "length_type = u64")}, 8},
		{"array", []schema.FieldDecl{field(t, "a", "[4]uint16")}, 8},
		{"array of strings", []schema.FieldDecl{field(t, "a", "[2]string")}, 8},
		{"opaque", []schema.FieldDecl{field(t, "h", "Header"), field(t, "id", "uuid.UUID")}, 22},
		{"prefix", []schema.FieldDecl{field(t, "a", "uint8", `constant_prefix = b"AB"`)}, 3},
		{"skip", []schema.FieldDecl{field(t, "a", "uint64", "skip")}, 0},
		{"default_on_eof", []schema.FieldDecl{field(t, "a", "uint64", "default_on_eof")}, 0},
		{
			"length expression",
			[]schema.FieldDecl{field(t, "n", "uint16"), field(t, "v", "[]uint64", "length = n")},
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Record(record(t, tt.fields...), opaqueSizes)
			if err != nil {
				t.Fatalf("Record: %v", err)
			}
			if p.MinSize != tt.want {
				t.Errorf("MinSize = %d, want %d", p.MinSize, tt.want)
			}
		})
	}
}

func TestMinSizeMonotonic(t *testing.T) {
	base := []schema.FieldDecl{
		field(t, "a", "uint32"),
		field(t, "b", "string"),
		field(t, "c", "[2]uint16"),
		field(t, "d", "Header"),
	}
	p, err := Record(record(t, base...), opaqueSizes)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	sum := 0
	for _, fp := range p.Fields {
		sum += fp.MinSize
	}
	if p.MinSize < sum {
		t.Fatalf("MinSize %d below field sum %d", p.MinSize, sum)
	}

	for i := range base {
		modified := append([]schema.FieldDecl(nil), base...)
		modified[i].Attrs = append(modified[i].Attrs, schema.AttrGroup{{Key: "default_on_eof"}})
		mp, err := Record(record(t, modified...), opaqueSizes)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if mp.MinSize > p.MinSize {
			t.Errorf("default_on_eof on %s raised MinSize %d -> %d", base[i].Name, p.MinSize, mp.MinSize)
		}
	}

	withLength := append([]schema.FieldDecl(nil), base...)
	withLength[1].Attrs = append(withLength[1].Attrs, schema.AttrGroup{{Key: "length", Value: "a", HasValue: true}})
	lp, err := Record(record(t, withLength...), opaqueSizes)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if lp.MinSize > p.MinSize {
		t.Errorf("length raised MinSize %d -> %d", p.MinSize, lp.MinSize)
	}
}

func enumDecl(t *testing.T, attrs string, variants ...schema.VariantDecl) schema.Enum {
	t.Helper()
	d := schema.EnumDecl{Name: "E", Variants: variants}
	if attrs != "" {
		group, err := schema.ParseAttrs(attrs, "")
		if err != nil {
			t.Fatal(err)
		}
		d.Attrs = []schema.AttrGroup{group}
	}
	e, err := schema.ResolveEnum(d)
	if err != nil {
		t.Fatalf("ResolveEnum: %v", err)
	}
	return e
}

func TestEnumMinSize(t *testing.T) {
	unit := func(name string) schema.VariantDecl {
		return schema.VariantDecl{Name: name, Style: schema.StyleUnit}
	}
	payload := func(name string, fields ...schema.FieldDecl) schema.VariantDecl {
		return schema.VariantDecl{Name: name, Style: schema.StyleNamed, Fields: fields}
	}

	tests := []struct {
		name string
		enum schema.Enum
		want int
	}{
		{"units only", enumDecl(t, "", unit("A"), unit("B")), 4},
		{"units only u8", enumDecl(t, "tag_type = u8", unit("A")), 1},
		{"units only peek", enumDecl(t, "peek_tag, tag_type = u16", unit("A"), unit("B")), 2},
		{
			"smallest payload",
			enumDecl(t, "tag_type = u8",
				payload("B", field(t, "x", "uint64")),
				payload("C", field(t, "y", "uint16"))),
			3,
		},
		{
			"unit variant is empty",
			enumDecl(t, "tag_type = u8",
				unit("A"),
				payload("B", field(t, "x", "uint64"))),
			1,
		},
		{
			"peek takes max",
			enumDecl(t, "peek_tag",
				payload("B", field(t, "x", "uint64")),
				payload("C", field(t, "y", "uint16"))),
			4,
		},
		{
			"peek payload larger",
			enumDecl(t, "peek_tag, tag_type = u8",
				payload("B", field(t, "x", "uint64"))),
			8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Enum(tt.enum, nil)
			if err != nil {
				t.Fatalf("Enum: %v", err)
			}
			if p.MinSize != tt.want {
				t.Errorf("MinSize = %d, want %d", p.MinSize, tt.want)
			}
		})
	}
}

func TestEnumCases(t *testing.T) {
	e := enumDecl(t, "tag_type = u7",
		schema.VariantDecl{Name: "A", Style: schema.StyleUnit},
		schema.VariantDecl{Name: "B", Style: schema.StyleUnit, Discriminant: "100"})
	p, err := Enum(e, nil)
	if err != nil {
		t.Fatalf("Enum: %v", err)
	}
	if p.TagWidth() != wire.U7 {
		t.Errorf("TagWidth = %v", p.TagWidth())
	}
	c, ok := p.Case(100)
	if !ok || c.Variant.Name != "B" {
		t.Fatalf("Case(100) = %v, %v", c, ok)
	}
	if _, ok := p.Case(1); ok {
		t.Error("Case(1) should not exist")
	}
	if !strings.Contains(p.Listing(), "B = 100") {
		t.Errorf("listing:\n%s", p.Listing())
	}
}

func TestLengthExpression(t *testing.T) {
	p, err := Record(record(t,
		field(t, "rows", "uint16"),
		field(t, "cols", "uint8"),
		field(t, "cells", "[]int32", "length = rows * cols"),
	), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	le := p.Fields[2].Decode[0].Expr
	n, err := le.Eval(map[string]any{"rows": EnvValue(uint16(3)), "cols": EnvValue(uint8(4))})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if n != 12 {
		t.Errorf("Eval = %d, want 12", n)
	}

	_, err = Record(record(t,
		field(t, "items", "[]int32", "length = later"),
		field(t, "later", "uint8"),
	), nil)
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Errorf("forward reference err = %v", err)
	}

	neg, err := Record(record(t,
		field(t, "n", "int8"),
		field(t, "items", "[]int32", "length = n"),
	), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := neg.Fields[1].Decode[0].Expr.Eval(map[string]any{"n": EnvValue(int8(-1))}); err == nil {
		t.Error("negative length should fail")
	}
}

func TestFingerprint(t *testing.T) {
	a, _ := Record(record(t, field(t, "x", "uint8"), field(t, "s", "string", "length_type = u8")), nil)
	b, _ := Record(record(t, field(t, "renamed", "uint8"), field(t, "other", "string", "length_type = u8")), nil)
	c, _ := Record(record(t, field(t, "x", "uint8"), field(t, "s", "string", "length_type = u16")), nil)

	fa, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, _ := b.Fingerprint()
	fc, _ := c.Fingerprint()

	if fa != fb {
		t.Error("field names should not change the fingerprint")
	}
	if fa == fc {
		t.Error("length width should change the fingerprint")
	}
	if len(fa.String()) != 64 || len(fa.Short()) != 16 {
		t.Errorf("String=%q Short=%q", fa.String(), fa.Short())
	}
}

func TestListing(t *testing.T) {
	p, err := Record(record(t,
		field(t, "magic", "uint8", `constant_prefix = b"AB"`),
		field(t, "tail", "uint8", "default_on_eof"),
	), nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	out := p.Listing()
	for _, want := range []string{"record R named (min 3)", "decode: prefix(4142) primitive(u8)", "[default_on_eof]"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
