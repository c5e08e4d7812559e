package codec

import (
	"reflect"
	"strconv"

	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

type planKind uint8

const (
	planValue planKind = iota
	planRecord
	planEnum
	planCustom
)

// step is a derived op bound to the Go type it reads or writes.
type step struct {
	typ    reflect.Type
	plan   *Plan
	elem   []step
	key    []step
	op     derive.Op
	// elemMin is op.ElemMin raised to the final size of delegated
	// elements, which are unknown while a recursive type is compiling.
	elemMin int
	bytes   bool // sequence or array of byte, copied in one piece
	custom  bool
}

type boundField struct {
	prog   *derive.FieldProgram
	goType reflect.Type
	name   string
	decode []step
	encode []step
	index  int // struct field index, -1 when the field is the value itself
}

type boundRecord struct {
	fields   []boundField
	needsEnv bool
}

type boundCase struct {
	payload reflect.Type
	name    string
	rec     boundRecord
	tag     uint64
	field   int
	self    bool
}

// Plan is the compiled codec for one Go type.
type Plan struct {
	goType    reflect.Type
	record    *derive.RecordProgram
	enum      *derive.EnumProgram
	metrics   *Metrics
	rec       boundRecord
	cases     []boundCase
	value     []step
	node      schema.Node
	maxLength int
	minSize   int
	kind      planKind
	done      bool
}

// Type returns the Go type the plan handles.
func (p *Plan) Type() reflect.Type {
	return p.goType
}

// MinimumSize returns the fewest bytes any encoded value occupies.
func (p *Plan) MinimumSize() int {
	return p.minSize
}

// Record returns the derived record program, or nil if the type is not a
// record.
func (p *Plan) Record() *derive.RecordProgram {
	return p.record
}

// Enum returns the derived enum program, or nil if the type is not an enum.
func (p *Plan) Enum() *derive.EnumProgram {
	return p.enum
}

// Listing renders the plan's op program.
func (p *Plan) Listing() string {
	switch p.kind {
	case planRecord:
		return p.record.Listing()
	case planEnum:
		return p.enum.Listing()
	case planCustom:
		return "custom " + p.goType.String() + "\n"
	}
	ops := make([]derive.Op, len(p.value))
	for i, st := range p.value {
		ops[i] = st.op
	}
	return "value " + p.node.String() + ": " + derive.FormatOps(ops) + "\n"
}

// Fingerprint hashes the wire layout of a record or enum plan.
func (p *Plan) Fingerprint() (derive.Fingerprint, error) {
	switch p.kind {
	case planRecord:
		return p.record.Fingerprint()
	case planEnum:
		return p.enum.Fingerprint()
	}
	return derive.Fingerprint{}, errors.Unsupported(errors.PhaseCompile, "fingerprint of "+p.goType.String())
}

// Decode reads one value from r into dst, which must be a non-nil pointer to
// the plan's type. On error dst is unchanged and r is rewound to where it
// started.
func (p *Plan) Decode(r *wire.Reader, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.NilPointer(errors.PhaseDecode, nil, reflect.PointerTo(p.goType).String())
	}
	if rv.Type().Elem() != p.goType {
		return errors.TypeMismatch(errors.PhaseDecode, nil, rv.Type().Elem().String(), p.goType.String())
	}

	start := r.Offset()
	fresh := reflect.New(p.goType).Elem()
	if err := p.decodeValue(r, fresh); err != nil {
		r.Seek(start)
		err = withPath(err, typeName(p.goType))
		p.metrics.failed(err)
		return err
	}
	rv.Elem().Set(fresh)
	p.metrics.transferred("decode", r.Offset()-start)
	return nil
}

// Encode appends v to w. v may be a value of the plan's type or a pointer to
// one. On error nothing is appended.
func (p *Plan) Encode(w *wire.Writer, v any) error {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Type() != p.goType && rv.Type() == reflect.PointerTo(p.goType) {
		if rv.IsNil() {
			return errors.NilPointer(errors.PhaseEncode, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return errors.NilPointer(errors.PhaseEncode, nil, p.goType.String())
	}
	if rv.Type() != p.goType {
		return errors.TypeMismatch(errors.PhaseEncode, nil, rv.Type().String(), p.goType.String())
	}
	return p.encodeTop(w, rv)
}

func (p *Plan) encodeTop(w *wire.Writer, rv reflect.Value) error {
	start := w.Len()
	if err := p.encodeValue(w, rv); err != nil {
		w.Truncate(start)
		err = withPath(err, typeName(p.goType))
		p.metrics.failed(err)
		return err
	}
	p.metrics.transferred("encode", w.Len()-start)
	return nil
}

func withPath(err error, seg ...string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithPath(seg...)
	}
	return err
}

func indexSeg(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}
