package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseEncode,
				Kind:     KindOverflow,
				Path:     []string{"Header", "items", "[3]"},
				GoType:   "uint16",
				WireType: "u8",
				Detail:   "value 300 overflows u8",
			},
			contains: []string{"[encode]", "overflow", "Header.items[3]", "uint16", "u8", "300"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindEOF,
			},
			contains: []string{"[decode]", "eof"},
		},
		{
			name: "positioned resolution error",
			err: &Error{
				Phase:  PhaseResolve,
				Kind:   KindDuplicateOption,
				Pos:    "schema.yaml:4:7",
				Detail: "duplicate 'skip'",
			},
			contains: []string{"schema.yaml:4:7: [resolve]", "duplicate_option", "duplicate 'skip'"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInvalidData,
				Detail: "read schema",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "invalid_data", "read schema", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindUnexpectedData,
		Path:  []string{"magic"},
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindUnexpectedData}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindUnexpectedData}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindEOF}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDecode, Kind: KindUnexpectedData}
	if !errors.Is(fmt.Errorf("wrapped: %w", err), target) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseResolve, KindUnsupportedOption).
		Path("Packet", "body").
		Pos("packet.toml:3:1").
		GoType("[4]byte").
		WireType("u16").
		Value("length").
		Cause(cause).
		Detail("'%s' is only supported for %s", "length", "collections").
		Build()

	if err.Phase != PhaseResolve {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseResolve)
	}
	if err.Kind != KindUnsupportedOption {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedOption)
	}
	if len(err.Path) != 2 || err.Path[0] != "Packet" || err.Path[1] != "body" {
		t.Errorf("Path = %v, want [Packet body]", err.Path)
	}
	if err.Pos != "packet.toml:3:1" {
		t.Errorf("Pos = %v, want packet.toml:3:1", err.Pos)
	}
	if err.GoType != "[4]byte" || err.WireType != "u16" {
		t.Errorf("GoType=%v WireType=%v", err.GoType, err.WireType)
	}
	if err.Value != "length" {
		t.Errorf("Value = %v, want length", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "'length' is only supported for collections" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		phase  Phase
		kind   Kind
		detail string
	}{
		{"DuplicateOption", DuplicateOption("", "length"), PhaseResolve, KindDuplicateOption, "duplicate 'length'"},
		{"ConflictingOptions", ConflictingOptions("", "length_type", "length"), PhaseResolve, KindConflictingOptions, "both 'length_type' and 'length'"},
		{"UnsupportedOption", UnsupportedOption("", "length", "int32", "strings"), PhaseResolve, KindUnsupportedOption, "'length' is only supported for strings"},
		{"UnknownOption", UnknownOption("", "lenght", "field"), PhaseResolve, KindUnknownOption, "unknown field option 'lenght'"},
		{"InvalidLiteral", InvalidLiteral("", "floats are not supported"), PhaseResolve, KindInvalidLiteral, "floats"},
		{"DiscriminantOverflow", DiscriminantOverflow("", "Op", "Last", 256, "u8"), PhaseResolve, KindDiscriminantOverflow, "`Op::Last` is too big"},
		{"DuplicateDiscriminant", DuplicateDiscriminant("", 2, "A", "B"), PhaseResolve, KindDuplicateDiscriminant, "'2': `A`, `B`"},
		{"UnknownType", UnknownType("", "Missing"), PhaseResolve, KindUnknownType, `"Missing"`},
		{"EOF", EOF([]string{"a"}, 1, 0), PhaseDecode, KindEOF, "need 1 bytes, have 0"},
		{"InvalidVariant", InvalidVariant(nil, 9, "Shape"), PhaseDecode, KindInvalidVariant, "tag 9"},
		{"LengthMismatch", LengthMismatch(nil, 3, 4), PhaseEncode, KindLengthMismatch, "expected 3, got 4"},
		{"UnexpectedData", UnexpectedData(nil, []byte("AB"), []byte("AC")), PhaseDecode, KindUnexpectedData, "4142"},
		{"InvalidUTF8", InvalidUTF8(PhaseDecode, nil, []byte{0xff}), PhaseDecode, KindInvalidUTF8, "ff"},
		{"InvalidChar", InvalidChar(PhaseDecode, nil, 0xd800), PhaseDecode, KindInvalidChar, "0xd800"},
		{"Overflow", Overflow(PhaseEncode, nil, 300, "u8"), PhaseEncode, KindOverflow, "300 overflows u8"},
		{"NilPointer", NilPointer(PhaseEncode, nil, "*Header"), PhaseEncode, KindNilPointer, "nil pointer"},
		{"Unsupported", Unsupported(PhaseResolve, "unions are not supported"), PhaseResolve, KindUnsupported, "unions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Detail, tt.detail) {
				t.Errorf("Detail = %q, should contain %q", tt.err.Detail, tt.detail)
			}
		})
	}
}

func TestIsEOF(t *testing.T) {
	eof := EOF([]string{"b"}, 1, 0)

	if !IsEOF(eof) {
		t.Error("IsEOF should match EOF error")
	}
	if !IsEOF(fmt.Errorf("field b: %w", eof)) {
		t.Error("IsEOF should match wrapped EOF error")
	}
	if !IsEOF(Wrap(PhaseDecode, KindInvalidData, eof, "nested")) {
		t.Error("IsEOF should follow structured causes")
	}
	if IsEOF(LengthMismatch(nil, 1, 2)) {
		t.Error("IsEOF should not match length mismatch")
	}
	if IsEOF(errors.New("plain")) {
		t.Error("IsEOF should not match plain errors")
	}
	if IsEOF(nil) {
		t.Error("IsEOF(nil) should be false")
	}
}

func TestWithPath(t *testing.T) {
	err := EOF([]string{"[2]", "name"}, 4, 0)
	wrapped := err.WithPath("Header", "items")

	if got := JoinPath(wrapped.Path); got != "Header.items[2].name" {
		t.Errorf("path = %q, want Header.items[2].name", got)
	}
	if len(err.Path) != 2 {
		t.Errorf("original path modified: %v", err.Path)
	}
}

func TestList(t *testing.T) {
	var l List
	if l.Err() != nil {
		t.Fatal("empty list should produce nil error")
	}

	l = append(l, DuplicateOption("a.yaml:1:1", "skip"), UnknownType("a.yaml:9:3", "Nope"))
	err := l.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, &Error{Phase: PhaseResolve, Kind: KindUnknownType}) {
		t.Error("errors.Is should see list members")
	}
	if KindOf(err) != KindDuplicateOption {
		t.Errorf("KindOf = %v, want first member kind", KindOf(err))
	}
}

func TestAsError(t *testing.T) {
	inner := EOF([]string{"R", "a"}, 1, 0)
	wrapped := fmt.Errorf("reading packet: %w", inner)

	e, ok := AsError(wrapped)
	if !ok {
		t.Fatal("AsError should find the structured error")
	}
	if e != inner {
		t.Errorf("AsError returned %v, want the wrapped error", e)
	}
	if _, ok := AsError(errors.New("plain")); ok {
		t.Error("AsError should reject plain errors")
	}
}
