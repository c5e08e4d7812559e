package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseResolve Phase = "resolve" // declaration validation
	PhaseCompile Phase = "compile" // Go type to plan
	PhaseDecode  Phase = "decode"  // bytes to value
	PhaseEncode  Phase = "encode"  // value to bytes
	PhaseLoad    Phase = "load"    // declaration file loading
	PhaseParse   Phase = "parse"   // type expression parsing
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateOption       Kind = "duplicate_option"
	KindConflictingOptions    Kind = "conflicting_options"
	KindUnsupportedOption     Kind = "unsupported_option"
	KindUnknownOption         Kind = "unknown_option"
	KindInvalidLiteral        Kind = "invalid_literal"
	KindDiscriminantOverflow  Kind = "discriminant_overflow"
	KindDuplicateDiscriminant Kind = "duplicate_discriminant"
	KindUnsupported           Kind = "unsupported"
	KindUnknownType           Kind = "unknown_type"
	KindEOF                   Kind = "eof"
	KindInvalidVariant        Kind = "invalid_variant"
	KindLengthMismatch        Kind = "length_mismatch"
	KindUnexpectedData        Kind = "unexpected_data"
	KindInvalidUTF8           Kind = "invalid_utf8"
	KindInvalidChar           Kind = "invalid_char"
	KindOverflow              Kind = "overflow"
	KindTypeMismatch          Kind = "type_mismatch"
	KindInvalidData           Kind = "invalid_data"
	KindNilPointer            Kind = "nil_pointer"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Pos      string
	GoType   string
	WireType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Pos != "" {
		b.WriteString(e.Pos)
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(JoinPath(e.Path))
	}

	if e.GoType != "" || e.WireType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.WireType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", wire type ")
			b.WriteString(e.WireType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("wire type ")
			b.WriteString(e.WireType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.WireType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// JoinPath renders a field path; index segments ("[3]") attach without a dot.
func JoinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// WithPath returns a copy of e with prefix prepended to its path.
func (e *Error) WithPath(prefix ...string) *Error {
	c := *e
	c.Path = append(append(make([]string, 0, len(prefix)+len(e.Path)), prefix...), e.Path...)
	return &c
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Pos sets the source position
func (b *Builder) Pos(pos string) *Builder {
	b.err.Pos = pos
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// WireType sets the wire type name
func (b *Builder) WireType(t string) *Builder {
	b.err.WireType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Resolution error constructors

// DuplicateOption creates a duplicate option error
func DuplicateOption(pos, option string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDuplicateOption,
		Pos:    pos,
		Detail: fmt.Sprintf("duplicate '%s'", option),
		Value:  option,
	}
}

// ConflictingOptions creates an error for two options that cannot be combined
func ConflictingOptions(pos, a, b string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindConflictingOptions,
		Pos:    pos,
		Detail: fmt.Sprintf("you cannot have both '%s' and '%s' on the same field", a, b),
	}
}

// UnsupportedOption creates an error for an option attached to a type that cannot carry it
func UnsupportedOption(pos, option, goType, allowed string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnsupportedOption,
		Pos:    pos,
		GoType: goType,
		Detail: fmt.Sprintf("'%s' is only supported for %s", option, allowed),
		Value:  option,
	}
}

// UnknownOption creates an error for an unrecognized option name
func UnknownOption(pos, option, scope string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownOption,
		Pos:    pos,
		Detail: fmt.Sprintf("unknown %s option '%s'", scope, option),
		Value:  option,
	}
}

// InvalidLiteral creates an error for a literal that cannot be used as a constant prefix
func InvalidLiteral(pos, detail string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidLiteral,
		Pos:    pos,
		Detail: detail,
	}
}

// DiscriminantOverflow creates an error for a discriminant that does not fit its tag width
func DiscriminantOverflow(pos, enum, variant string, value any, width string) *Error {
	return &Error{
		Phase:    PhaseResolve,
		Kind:     KindDiscriminantOverflow,
		Pos:      pos,
		WireType: width,
		Detail:   fmt.Sprintf("enum discriminant `%s::%s` is too big", enum, variant),
		Value:    value,
	}
}

// DuplicateDiscriminant creates an error naming two variants sharing a discriminant
func DuplicateDiscriminant(pos string, value uint64, first, second string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindDuplicateDiscriminant,
		Pos:    pos,
		Detail: fmt.Sprintf("two discriminants with the same value of '%d': `%s`, `%s`", value, first, second),
		Value:  value,
	}
}

// Unsupported creates an unsupported construct error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// UnknownType creates an error for a reference to an undeclared type
func UnknownType(pos, name string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownType,
		Pos:    pos,
		Detail: fmt.Sprintf("unknown type %q", name),
		Value:  name,
	}
}

// Runtime error constructors

// EOF creates an end-of-input error
func EOF(path []string, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindEOF,
		Path:   path,
		Detail: fmt.Sprintf("unexpected end of input: need %d bytes, have %d", need, have),
	}
}

// InvalidVariant creates an error for a tag that selects no variant
func InvalidVariant(path []string, tag uint64, enum string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidVariant,
		Path:   path,
		GoType: enum,
		Detail: fmt.Sprintf("invalid variant tag %d", tag),
		Value:  tag,
	}
}

// LengthMismatch creates an error for a collection whose length disagrees with its length expression
func LengthMismatch(path []string, expected, actual int) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindLengthMismatch,
		Path:   path,
		Detail: fmt.Sprintf("length mismatch: expected %d, got %d", expected, actual),
		Value:  actual,
	}
}

// UnexpectedData creates a constant prefix mismatch error
func UnexpectedData(path []string, expected, actual []byte) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnexpectedData,
		Path:   path,
		Detail: fmt.Sprintf("expected constant %x, got %x", expected, actual),
		Value:  actual,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidChar creates an error for a value that is not a Unicode scalar value
func InvalidChar(phase Phase, path []string, value uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidChar,
		Path:   path,
		Detail: fmt.Sprintf("%#x is not a valid char", value),
		Value:  value,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		WireType: targetType,
		Detail:   fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:    value,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, wireType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		WireType: wireType,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a declaration loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(pos, what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Pos:    pos,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// IsEOF reports whether err is, or wraps, an end-of-input error.
func IsEOF(err error) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == KindEOF {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost structured error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError returns the outermost structured error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// List collects independent resolution errors.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(l))
	for _, e := range l {
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

// Unwrap exposes the individual errors to errors.Is/As.
func (l List) Unwrap() []error {
	out := make([]error, len(l))
	for i, e := range l {
		out[i] = e
	}
	return out
}

// Err returns nil for an empty list.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
