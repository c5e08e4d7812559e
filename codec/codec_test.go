package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/wippyai/wirecodec"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/wire"
)

type point struct {
	X int16
	Y int16
}

type header struct {
	Kind  uint8
	Name  string `wire:"length_type=u8"`
	Flags []bool
	Opt   *uint16
}

type counted struct {
	Count uint8
	Items []uint16 `wire:"length=Count"`
}

type tree struct {
	Value    uint8
	Children []tree
}

type list struct {
	V    uint8
	Next *list
}

type circle struct {
	R uint8
}

type shape struct {
	_      wirecodec.Enum `wire:"tag_type=u8"`
	Circle *circle        `wire:"tag=3"`
	Square *uint16
	Empty  *struct{}
}

// version supplies its own two-byte codec.
type version struct {
	Major uint8
	Minor uint8
}

func (v *version) DecodeWire(r *wire.Reader) error {
	b, err := r.Borrow(2)
	if err != nil {
		return err
	}
	v.Major, v.Minor = b[0], b[1]
	return nil
}

func (v *version) EncodeWire(w *wire.Writer) error {
	w.WriteU8(v.Major)
	w.WriteU8(v.Minor)
	return nil
}

func (version) MinimumWireSize() int { return 2 }

type packet struct {
	Magic   struct{} `wire:"constant_prefix=b\"PK\""`
	Count   uint8
	Items   []uint16 `wire:"length=Count"`
	Name    string   `wire:"length_type=u8"`
	Note    *string
	Tags    map[string]struct{}
	Attrs   map[string]uint32
	ID      uuid.UUID
	Version version
	Shape   shape
	Nested  [][]int8 `wire:"length_type=u64_varint"`
	Weights []float64
	Cache   []byte `wire:"skip"`
	Trailer uint32 `wire:"default_on_eof"`
}

func TestMarshal_Bytes(t *testing.T) {
	opt := uint16(5)
	tests := []struct {
		name  string
		value any
		want  []byte
	}{
		{
			name:  "point",
			value: point{X: 1, Y: -2},
			want:  []byte{0x01, 0x00, 0xFE, 0xFF},
		},
		{
			name:  "header without option",
			value: header{Kind: 7, Name: "hi", Flags: []bool{true, false}},
			want:  []byte{0x07, 0x02, 'h', 'i', 0x02, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00},
		},
		{
			name:  "header with option",
			value: &header{Kind: 1, Opt: &opt},
			want:  []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x05, 0x00},
		},
		{
			name:  "length expression",
			value: counted{Count: 2, Items: []uint16{1, 2}},
			want:  []byte{0x02, 0x01, 0x00, 0x02, 0x00},
		},
		{
			name:  "enum payload record",
			value: shape{Circle: &circle{R: 9}},
			want:  []byte{0x03, 0x09},
		},
		{
			name:  "enum positional payload",
			value: shape{Square: &opt},
			want:  []byte{0x04, 0x05, 0x00},
		},
		{
			name:  "enum unit",
			value: shape{Empty: &struct{}{}},
			want:  []byte{0x05},
		},
		{
			name:  "sorted map keys",
			value: map[uint8]uint8{2: 1, 1: 2},
			want:  []byte{0x02, 0x00, 0x00, 0x00, 0x01, 0x02, 0x02, 0x01},
		},
		{
			name:  "fixed array",
			value: [3]uint8{7, 8, 9},
			want:  []byte{7, 8, 9},
		},
		{
			name:  "custom codec",
			value: version{Major: 1, Minor: 2},
			want:  []byte{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Marshal = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	note := "note"
	side := uint16(12)

	tests := []struct {
		name  string
		value any
	}{
		{"point", point{X: -300, Y: 300}},
		{"header", header{Kind: 255, Name: "héllo", Flags: []bool{true}, Opt: &side}},
		{"counted", counted{Count: 3, Items: []uint16{1, 2, 3}}},
		{"tree", tree{Value: 1, Children: []tree{{Value: 2}, {Value: 3, Children: []tree{{Value: 4}}}}}},
		{"list", list{V: 1, Next: &list{V: 2, Next: &list{V: 3}}}},
		{"shape circle", shape{Circle: &circle{R: 1}}},
		{"shape square", shape{Square: &side}},
		{"shape empty", shape{Empty: &struct{}{}}},
		{"shapes", []shape{{Empty: &struct{}{}}, {Empty: &struct{}{}}, {Square: &side}}},
		{"packet", packet{
			Count:   2,
			Items:   []uint16{10, 20},
			Name:    "pkt",
			Note:    &note,
			Tags:    map[string]struct{}{"a": {}, "b": {}},
			Attrs:   map[string]uint32{"x": 1, "y": 2},
			ID:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			Version: version{Major: 3, Minor: 14},
			Shape:   shape{Circle: &circle{R: 7}},
			Nested:  [][]int8{{-1, 1}, {2}},
			Weights: []float64{0.5, -1.25},
			Trailer: 99,
		}},
		{"int and uint", struct {
			I int
			U uint
		}{I: -1 << 40, U: 1 << 40}},
		{"optional option", struct{ P **point }{P: ptr(&point{X: 1})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			out := reflect.New(reflect.TypeOf(tt.value))
			if err := Unmarshal(data, out.Interface()); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(out.Elem().Interface(), tt.value) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", out.Elem().Interface(), tt.value)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestDecode_EOFDefault(t *testing.T) {
	type record struct {
		A uint8
		B uint8 `wire:"default_on_eof"`
	}

	got, err := Decode[record]([]byte{5})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != (record{A: 5, B: 0}) {
		t.Errorf("Decode = %+v, want {A:5 B:0}", got)
	}

	_, err = Decode[record](nil)
	if !errors.IsEOF(err) {
		t.Fatalf("empty input: want EOF, got %v", err)
	}
	e, _ := errors.AsError(err)
	if want := []string{"record", "A"}; !reflect.DeepEqual(e.Path, want) {
		t.Errorf("EOF path = %v, want %v", e.Path, want)
	}
}

func TestDecode_EOFDefaultCoversPrefixAndLength(t *testing.T) {
	type record struct {
		A    uint8
		Tail []uint8 `wire:"constant_prefix=b\"T\"" wire:"default_on_eof"`
	}

	// prefix present, length truncated
	got, err := Decode[record]([]byte{1, 'T', 0x02, 0x00})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.A != 1 || got.Tail != nil {
		t.Errorf("Decode = %+v, want A=1 and no tail", got)
	}

	// prefix mismatch is not EOF and still fails
	if _, err := Decode[record]([]byte{1, 'X'}); errors.KindOf(err) != errors.KindUnexpectedData {
		t.Errorf("prefix mismatch kind = %v, want unexpected_data", errors.KindOf(err))
	}
}

func TestDecode_EOFDefaultRewindsField(t *testing.T) {
	type record struct {
		Data []uint16 `wire:"length_type=u8" wire:"default_on_eof"`
		Tail uint8    `wire:"default_on_eof"`
	}

	p, err := PlanFor[record](Default())
	if err != nil {
		t.Fatal(err)
	}
	// Data reads its length (2) and then runs out; Tail starts over at that
	// length byte
	r := wire.NewReader([]byte{2, 7})
	var got record
	if err := p.Decode(r, &got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Data != nil || got.Tail != 2 {
		t.Errorf("Decode = %+v, want no data and Tail 2", got)
	}
	if r.Offset() != 1 {
		t.Errorf("consumed %d bytes, want 1", r.Offset())
	}
}

func TestDecode_ConstantPrefix(t *testing.T) {
	type record struct {
		V uint8 `wire:"constant_prefix=b\"AB\""`
	}

	got, err := Decode[record]([]byte{'A', 'B', 7})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.V != 7 {
		t.Errorf("V = %d, want 7", got.V)
	}

	r := wire.NewReader([]byte{'A', 'C', 7})
	var out record
	p, err := PlanFor[record](Default())
	if err != nil {
		t.Fatal(err)
	}
	err = p.Decode(r, &out)
	if errors.KindOf(err) != errors.KindUnexpectedData {
		t.Fatalf("kind = %v, want unexpected_data", errors.KindOf(err))
	}
	if r.Offset() != 0 {
		t.Errorf("reader offset = %d, want rewound to 0", r.Offset())
	}

	data, err := Marshal(record{V: 7})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{'A', 'B', 7}) {
		t.Errorf("Marshal = % x", data)
	}
}

func TestDecode_PeekTag(t *testing.T) {
	type state struct {
		_   wirecodec.Enum `wire:"peek_tag, tag_type=u8"`
		Off *struct{}      `wire:"tag=0"`
		On  *struct{}      `wire:"tag=1"`
	}
	type framed struct {
		State state
		Tag   uint8
	}

	for _, b := range []byte{0, 1} {
		r := wire.NewReader([]byte{b})
		p, err := PlanFor[state](Default())
		if err != nil {
			t.Fatal(err)
		}
		var alone state
		if err := p.Decode(r, &alone); err != nil {
			t.Fatalf("Decode state failed: %v", err)
		}
		if r.Offset() != 0 {
			t.Errorf("peek consumed %d bytes", r.Offset())
		}

		outer, err := Decode[framed]([]byte{b})
		if err != nil {
			t.Fatalf("Decode framed failed: %v", err)
		}
		if outer.Tag != b {
			t.Errorf("enclosing tag = %d, want %d", outer.Tag, b)
		}
		if (alone.On != nil) != (b == 1) || (outer.State.On != nil) != (b == 1) {
			t.Errorf("tag %d decoded to %+v / %+v", b, alone, outer.State)
		}
	}

	data, err := Marshal(state{On: &struct{}{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("peek_tag enum wrote % x, want nothing", data)
	}
}

func TestEncode_LengthMismatch(t *testing.T) {
	p, err := PlanFor[counted](Default())
	if err != nil {
		t.Fatal(err)
	}

	w := wire.NewWriter(16)
	w.WriteU8(0xAA)
	err = p.Encode(w, counted{Count: 3, Items: []uint16{1, 2, 3, 4}})
	if errors.KindOf(err) != errors.KindLengthMismatch {
		t.Fatalf("kind = %v, want length_mismatch", errors.KindOf(err))
	}
	if !bytes.Equal(w.Bytes(), []byte{0xAA}) {
		t.Errorf("writer = % x, want only the earlier byte", w.Bytes())
	}
}

func TestEncode_U7Length(t *testing.T) {
	type record struct {
		B []byte `wire:"length_type=u7"`
	}
	if _, err := Marshal(record{B: make([]byte, 127)}); err != nil {
		t.Fatalf("127 bytes should fit in u7: %v", err)
	}
	_, err := Marshal(record{B: make([]byte, 128)})
	if errors.KindOf(err) != errors.KindOverflow {
		t.Errorf("kind = %v, want overflow", errors.KindOf(err))
	}

	_, err = Decode[record]([]byte{0x80})
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Errorf("high bit: kind = %v, want invalid_data", errors.KindOf(err))
	}
}

func TestEncode_EnumSelection(t *testing.T) {
	side := uint16(1)
	tests := []struct {
		name  string
		value shape
	}{
		{"none set", shape{}},
		{"two set", shape{Square: &side, Empty: &struct{}{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.value)
			if errors.KindOf(err) != errors.KindInvalidData {
				t.Errorf("kind = %v, want invalid_data", errors.KindOf(err))
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		dst  any
		kind errors.Kind
	}{
		{"invalid variant", []byte{9}, new(shape), errors.KindInvalidVariant},
		{"invalid utf8", []byte{1, 0, 0, 0, 0xFF}, new(string), errors.KindInvalidUTF8},
		{"truncated element", []byte{2, 0, 0, 0, 1, 0}, new([]uint16), errors.KindEOF},
		{"length beyond input", []byte{0xFF, 0xFF, 0xFF, 0x00, 1}, new([]uint32), errors.KindEOF},
		{"truncated prefix", []byte{'A'}, new(struct {
			V uint8 `wire:"constant_prefix=b\"AB\""`
		}), errors.KindEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Unmarshal(tt.data, tt.dst)
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("kind = %v, want %v (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestDecode_ErrorPath(t *testing.T) {
	type inner struct {
		Items []string
	}
	type outer struct {
		A     uint8
		Inner inner
	}

	// second string claims 5 bytes but only 1 remains
	_, err := Decode[outer]([]byte{1, 2, 0, 0, 0, 1, 0, 0, 0, 'a', 5, 0, 0, 0, 'b'})
	e, ok := errors.AsError(err)
	if !ok {
		t.Fatalf("expected structured error, got %v", err)
	}
	if want := "outer.Inner.Items[1]"; errors.JoinPath(e.Path) != want {
		t.Errorf("path = %q, want %q", errors.JoinPath(e.Path), want)
	}
}

func TestDecode_LeavesDestinationOnError(t *testing.T) {
	dst := header{Kind: 42, Name: "keep"}
	err := Unmarshal([]byte{1, 3, 'a'}, &dst)
	if err == nil {
		t.Fatal("expected error")
	}
	if dst.Kind != 42 || dst.Name != "keep" {
		t.Errorf("destination modified: %+v", dst)
	}
}

func TestDecode_MaxLength(t *testing.T) {
	c := NewCompiler(WithMaxLength(4))
	var out []byte
	err := c.Unmarshal([]byte{5, 0, 0, 0, 1, 2, 3, 4, 5}, &out)
	if errors.KindOf(err) != errors.KindOverflow {
		t.Errorf("kind = %v, want overflow", errors.KindOf(err))
	}
	if err := c.Unmarshal([]byte{4, 0, 0, 0, 1, 2, 3, 4}, &out); err != nil {
		t.Errorf("length at the limit should decode: %v", err)
	}
}

func TestDecode_RecursiveLengthCheck(t *testing.T) {
	type branch struct {
		Tag  uint16
		Kids map[uint8]branch
	}

	c := NewCompiler()
	tp, err := PlanFor[tree](c)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	// Children: length, then the sequence of trees
	if got := tp.rec.fields[1].decode[1].elemMin; got != 5 {
		t.Errorf("tree element minimum = %d, want 5", got)
	}

	bp, err := PlanFor[branch](c)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	// u8 key plus a branch of 2 + 4 bytes
	if got := bp.rec.fields[1].decode[1].elemMin; got != 7 {
		t.Errorf("branch entry minimum = %d, want 7", got)
	}

	// sixteen million children claimed with nothing left to read
	var out tree
	err = c.Unmarshal([]byte{1, 0, 0, 0, 1}, &out)
	if errors.KindOf(err) != errors.KindEOF {
		t.Fatalf("kind = %v, want eof", errors.KindOf(err))
	}

	// two entries claimed, room for one
	var b branch
	err = c.Unmarshal([]byte{0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0}, &b)
	if errors.KindOf(err) != errors.KindEOF {
		t.Errorf("kind = %v, want eof", errors.KindOf(err))
	}
}

func TestDecode_Borrowed(t *testing.T) {
	type record struct {
		Name wire.RawString
		Data wire.RawBytes
	}
	data := []byte{2, 0, 0, 0, 'o', 'k', 3, 0, 0, 0, 1, 2, 3}

	got, err := Decode[record](data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Name != "ok" || !bytes.Equal(got.Data, []byte{1, 2, 3}) {
		t.Fatalf("Decode = %+v", got)
	}

	data[10] = 9
	if got.Data[0] != 9 {
		t.Error("borrowed bytes should alias the input")
	}

	again, err := Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-encode = % x, want % x", again, data)
	}
}

func TestDecode_Char(t *testing.T) {
	type record struct {
		R int32
	}
	// int32 is an integer, not a char, when reflected
	got, err := Decode[record]([]byte{0x00, 0xD8, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.R != 0xD800 {
		t.Errorf("R = %#x", got.R)
	}
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	got, err := Decode[point]([]byte{1, 0, 2, 0, 0xFF})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != (point{X: 1, Y: 2}) {
		t.Errorf("Decode = %+v", got)
	}
}

func TestMinimumSize(t *testing.T) {
	n, err := MinimumSize[counted]()
	if err != nil {
		t.Fatal(err)
	}
	// Items has a length expression and contributes nothing
	if n != 1 {
		t.Errorf("MinimumSize[counted] = %d, want 1", n)
	}

	n, err = MinimumSize[[16]byte]()
	if err != nil {
		t.Fatal(err)
	}
	if n != 16 {
		t.Errorf("MinimumSize[[16]byte] = %d, want 16", n)
	}
}

func TestPlan_TypeChecks(t *testing.T) {
	p, err := PlanFor[point](Default())
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Decode(wire.NewReader(nil), point{}); errors.KindOf(err) != errors.KindNilPointer {
		t.Errorf("non-pointer dst: kind = %v", errors.KindOf(err))
	}
	if err := p.Decode(wire.NewReader([]byte{0, 0, 0, 0}), new(header)); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("wrong dst type: kind = %v", errors.KindOf(err))
	}
	if err := p.Encode(wire.NewWriter(0), (*point)(nil)); errors.KindOf(err) != errors.KindNilPointer {
		t.Errorf("nil value: kind = %v", errors.KindOf(err))
	}
	if err := p.Encode(wire.NewWriter(0), header{}); errors.KindOf(err) != errors.KindTypeMismatch {
		t.Errorf("wrong value type: kind = %v", errors.KindOf(err))
	}
	if _, err := Marshal(nil); errors.KindOf(err) != errors.KindNilPointer {
		t.Errorf("Marshal(nil): kind = %v", errors.KindOf(err))
	}
	if err := Unmarshal(nil, nil); errors.KindOf(err) != errors.KindNilPointer {
		t.Errorf("Unmarshal(nil): kind = %v", errors.KindOf(err))
	}
}

func TestConcurrentCompile(t *testing.T) {
	c := NewCompiler()
	done := make(chan *Plan, 8)
	for range 8 {
		go func() {
			p, err := PlanFor[packet](c)
			if err != nil {
				t.Error(err)
			}
			done <- p
		}()
	}
	first := <-done
	for range 7 {
		if p := <-done; p != nil && first != nil && p.MinimumSize() != first.MinimumSize() {
			t.Error("plans disagree on minimum size")
		}
	}
}
