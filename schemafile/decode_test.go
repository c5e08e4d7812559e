package schemafile

import (
	"testing"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/wire"
)

const scenarioYAML = `types:
  - name: Node
    fields:
      - {name: value, type: uint32}
      - {name: next, type: "*Node"}
  - name: Tail
    fields:
      - {name: a, type: uint8}
      - {name: b, type: uint16, attrs: default_on_eof}
      - {name: c, type: "*uint8", attrs: skip}
  - name: Framed
    attrs: ["tag_type = u8", peek_tag]
    variants:
      - name: Small
        attrs: "tag = 1"
        fields:
          - {name: kind, type: uint8}
          - {name: v, type: uint8}
  - name: Magic
    fields:
      - {name: body, type: uint8, attrs: "constant_prefix = b\"MZ\""}
  - name: Mixed
    style: positional
    fields:
      - {type: bool}
      - {type: int8}
      - {type: rune}
      - {type: float32}
      - {type: "map[uint8]string", attrs: "length_type = u8"}
      - {type: "map[uint16]struct{}", attrs: "length_type = u8"}
      - {type: "[3]byte"}
      - {type: "[]byte", attrs: "length_type = u7"}
  - name: Blob
    kind: opaque
    min_size: 4
  - name: HasBlob
    fields:
      - {name: b, type: Blob}
  - name: Retry
    fields:
      - {name: data, type: "[]uint16", attrs: ["length_type = u8", default_on_eof]}
      - {name: tail, type: uint8, attrs: default_on_eof}
`

func TestDecode_Scenarios(t *testing.T) {
	s := mustAnalyze(t, scenarioYAML)

	tests := []struct {
		name     string
		typ      string
		data     []byte
		want     string
		consumed int
	}{
		{
			"recursive list",
			"Node",
			[]byte{1, 0, 0, 0, 1, 2, 0, 0, 0, 0},
			"Node{value: 1, next: Node{value: 2, next: none}}",
			10,
		},
		{
			"default on eof",
			"Tail",
			[]byte{7},
			"Tail{a: 7, b: 0, c: none}",
			1,
		},
		{
			"default on eof present",
			"Tail",
			[]byte{7, 1, 1},
			"Tail{a: 7, b: 257, c: none}",
			3,
		},
		{
			"peek tag",
			"Framed",
			[]byte{1, 9},
			"Framed::Small{kind: 1, v: 9}",
			2,
		},
		{
			"constant prefix",
			"Magic",
			[]byte{'M', 'Z', 4},
			"Magic{body: 4}",
			3,
		},
		{
			"positional mixed",
			"Mixed",
			[]byte{
				1,
				0xFF,
				'x', 0, 0, 0,
				0, 0, 0x80, 0x3F,
				1, 7, 2, 0, 0, 0, 'h', 'i',
				2, 2, 0, 1, 0,
				9, 8, 7,
				2, 0xCA, 0xFE,
			},
			`Mixed(true, -1, 'x', 1, {7: "hi"}, {2, 1}, 0x090807, 0xcafe)`,
			29,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := wire.NewReader(tt.data)
			v, err := s.Decode(r, tt.typ)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("decoded %s\nwant    %s", got, tt.want)
			}
			if r.Offset() != tt.consumed {
				t.Errorf("consumed %d bytes, want %d", r.Offset(), tt.consumed)
			}
		})
	}
}

func TestDecode_Defaulted(t *testing.T) {
	s := mustAnalyze(t, scenarioYAML)
	v, err := s.Decode(wire.NewReader([]byte{7}), "Tail")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []bool{false, true, true}
	for i, f := range v.Fields {
		if f.Defaulted != want[i] {
			t.Errorf("field %s defaulted = %v, want %v", f.Name, f.Defaulted, want[i])
		}
	}
	b, ok := v.Field("b")
	if !ok || b.Kind != ValueUint || b.Uint != 0 {
		t.Errorf("field b = %+v", b)
	}
}

func TestDecode_DefaultRewindsField(t *testing.T) {
	s := mustAnalyze(t, scenarioYAML)

	// data reads its length (2) and then runs out; tail starts over at that
	// length byte
	r := wire.NewReader([]byte{2, 7})
	v, err := s.Decode(r, "Retry")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	data, _ := v.Field("data")
	if len(data.Items) != 0 || len(data.Bytes) != 0 {
		t.Errorf("data = %s, want empty", data)
	}
	if !v.Fields[0].Defaulted || v.Fields[1].Defaulted {
		t.Errorf("defaulted = %v, %v, want true, false", v.Fields[0].Defaulted, v.Fields[1].Defaulted)
	}
	tail, _ := v.Field("tail")
	if tail.Uint != 2 {
		t.Errorf("tail = %d, want 2", tail.Uint)
	}
	if r.Offset() != 1 {
		t.Errorf("consumed %d bytes, want 1", r.Offset())
	}
}

func TestDecode_Errors(t *testing.T) {
	s := mustAnalyze(t, scenarioYAML)

	tests := []struct {
		name string
		typ  string
		data []byte
		kind errors.Kind
		path string
	}{
		{"truncated", "Node", []byte{1, 0, 0}, errors.KindEOF, "Node.value"},
		{"truncated nested", "Node", []byte{1, 0, 0, 0, 1, 2}, errors.KindEOF, "Node.next.value"},
		{"unknown tag", "Framed", []byte{4, 0}, errors.KindInvalidVariant, "Framed"},
		{"bad prefix", "Magic", []byte{'M', 'Y', 1}, errors.KindUnexpectedData, "Magic.body"},
		{"opaque without size", "HasBlob", []byte{1, 2, 3, 4}, errors.KindUnsupported, "HasBlob.b"},
		{"unknown type", "Nope", nil, errors.KindUnknownType, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := wire.NewReader(tt.data)
			_, err := s.Decode(r, tt.typ)
			if err == nil {
				t.Fatal("expected error")
			}
			e, ok := errors.AsError(err)
			if !ok {
				t.Fatalf("err = %T, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", e.Kind, tt.kind, err)
			}
			if got := errors.JoinPath(e.Path); got != tt.path {
				t.Errorf("path = %q, want %q", got, tt.path)
			}
			if r.Offset() != 0 {
				t.Errorf("reader at %d after failure, want 0", r.Offset())
			}
		})
	}
}

func TestDecode_LengthLimits(t *testing.T) {
	src := `types:
  - name: Names
    fields:
      - {name: items, type: "[]string"}
`
	f, err := Parse([]byte(src), FormatYAML, "limits.yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s, err := Analyze(f, WithMaxLength(2))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	_, err = s.Decode(wire.NewReader([]byte{3, 0, 0, 0}), "Names")
	if errors.KindOf(err) != errors.KindOverflow {
		t.Errorf("kind = %v, want overflow", errors.KindOf(err))
	}

	s, err = Analyze(f)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	// sixteen million strings are under the limit but cannot fit in four bytes
	_, err = s.Decode(wire.NewReader([]byte{0, 0, 0, 1, 0, 0, 0, 0}), "Names")
	if errors.KindOf(err) != errors.KindEOF {
		t.Errorf("kind = %v, want eof", errors.KindOf(err))
	}
}

func TestValue_Pretty(t *testing.T) {
	v := Value{
		Kind: ValueRecord,
		Type: "P",
		Fields: []FieldValue{
			{Name: "a", Value: Value{Kind: ValueUint, Uint: 1}},
			{Name: "b", Value: Value{Kind: ValueList, Items: []Value{{Kind: ValueString, Str: "x"}}}},
		},
	}
	want := "P{\n  a: 1,\n  b: [\n    \"x\",\n  ],\n}"
	if got := v.Pretty(); got != want {
		t.Errorf("Pretty =\n%s\nwant\n%s", got, want)
	}
	if got := v.String(); got != `P{a: 1, b: ["x"]}` {
		t.Errorf("String = %s", got)
	}
}
