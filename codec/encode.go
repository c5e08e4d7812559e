package codec

import (
	"cmp"
	"reflect"
	"slices"
	"unicode/utf8"

	"github.com/wippyai/wirecodec"
	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

func (p *Plan) encodeValue(w *wire.Writer, v reflect.Value) error {
	switch p.kind {
	case planRecord:
		return p.encodeRecord(w, v, &p.rec)
	case planEnum:
		return p.encodeEnum(w, v)
	case planCustom:
		return encodeCustom(w, v)
	}
	return p.encodeSteps(w, p.value, v, nil)
}

func fieldValue(v reflect.Value, f *boundField) reflect.Value {
	if f.index < 0 {
		return v
	}
	return v.Field(f.index)
}

func (p *Plan) encodeRecord(w *wire.Writer, v reflect.Value, rec *boundRecord) error {
	var env map[string]any
	if rec.needsEnv {
		env = make(map[string]any, len(rec.fields))
		for i := range rec.fields {
			f := &rec.fields[i]
			env[f.name] = envValue(fieldValue(v, f))
		}
	}

	for i := range rec.fields {
		f := &rec.fields[i]
		if err := p.encodeSteps(w, f.encode, fieldValue(v, f), env); err != nil {
			return withPath(err, f.name)
		}
	}
	return nil
}

func (p *Plan) encodeEnum(w *wire.Writer, v reflect.Value) error {
	chosen := -1
	for i := range p.cases {
		if v.Field(p.cases[i].field).IsNil() {
			continue
		}
		if chosen >= 0 {
			return errors.InvalidData(errors.PhaseEncode, nil,
				"more than one variant set: "+p.cases[chosen].name+", "+p.cases[i].name)
		}
		chosen = i
	}
	if chosen < 0 {
		return errors.InvalidData(errors.PhaseEncode, nil, "no variant set")
	}

	bc := &p.cases[chosen]
	e := p.enum.Enum
	if !e.Peek {
		if err := w.WriteUint(e.TagWidth, bc.tag); err != nil {
			return err
		}
	}
	if err := p.encodeRecord(w, v.Field(bc.field).Elem(), &bc.rec); err != nil {
		return withPath(err, bc.name)
	}
	return nil
}

func (p *Plan) encodeSteps(w *wire.Writer, steps []step, v reflect.Value, env map[string]any) error {
	for i := range steps {
		st := &steps[i]
		switch st.op.Code {
		case derive.OpPrefix:
			w.WriteBytes(st.op.Bytes)
		case derive.OpDefault:
		case derive.OpPresence:
			if v.IsNil() {
				w.WriteU8(0)
				return nil
			}
			w.WriteU8(1)
			v = v.Elem()
		case derive.OpLength:
			if err := w.WriteLength(st.op.Width, v.Len()); err != nil {
				return err
			}
		case derive.OpLengthExpr:
			want, err := st.op.Expr.Eval(env)
			if err != nil {
				return err
			}
			if have := v.Len(); have != want {
				return errors.LengthMismatch(nil, want, have)
			}
		default:
			return p.encodeBody(w, st, v)
		}
	}
	return nil
}

func (p *Plan) encodeBody(w *wire.Writer, st *step, v reflect.Value) error {
	switch st.op.Code {
	case derive.OpPrimitive:
		return encodePrimitive(w, st.op.Prim, v)

	case derive.OpString, derive.OpBorrowedString:
		if !utf8.ValidString(v.String()) {
			return errors.InvalidUTF8(errors.PhaseEncode, nil, []byte(v.String()))
		}
		_, err := w.WriteString(v.String())
		return err

	case derive.OpBorrowedSlice:
		w.WriteBytes(v.Bytes())
		return nil

	case derive.OpSequence:
		if st.bytes {
			w.WriteBytes(v.Bytes())
			return nil
		}
		for i := range v.Len() {
			if err := p.encodeSteps(w, st.elem, v.Index(i), nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil

	case derive.OpSet:
		for i, k := range sortedKeys(v) {
			if err := p.encodeSteps(w, st.elem, k, nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil

	case derive.OpMap:
		for i, k := range sortedKeys(v) {
			if err := p.encodeSteps(w, st.key, k, nil); err != nil {
				return withPath(err, indexSeg(i))
			}
			if err := p.encodeSteps(w, st.elem, v.MapIndex(k), nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil

	case derive.OpArray:
		if st.bytes && v.CanAddr() {
			w.WriteBytes(v.Bytes())
			return nil
		}
		for i := range st.op.Len {
			if err := p.encodeSteps(w, st.elem, v.Index(i), nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil

	case derive.OpDelegate:
		if st.custom {
			return encodeCustom(w, v)
		}
		return st.plan.encodeValue(w, v)
	}
	return errors.Unsupported(errors.PhaseEncode, "op "+st.op.Code.String())
}

func encodePrimitive(w *wire.Writer, prim schema.Prim, v reflect.Value) error {
	switch prim {
	case schema.PrimBool:
		w.WriteBool(v.Bool())
	case schema.PrimU8:
		w.WriteU8(uint8(v.Uint()))
	case schema.PrimI8:
		w.WriteI8(int8(v.Int()))
	case schema.PrimU16:
		w.WriteU16(uint16(v.Uint()))
	case schema.PrimI16:
		w.WriteI16(int16(v.Int()))
	case schema.PrimU32:
		w.WriteU32(uint32(v.Uint()))
	case schema.PrimI32:
		w.WriteI32(int32(v.Int()))
	case schema.PrimChar:
		c := v.Int()
		if c < 0 || c > utf8.MaxRune || !utf8.ValidRune(rune(c)) {
			return errors.InvalidChar(errors.PhaseEncode, nil, uint32(c))
		}
		w.WriteU32(uint32(c))
	case schema.PrimU64, schema.PrimUint:
		w.WriteU64(v.Uint())
	case schema.PrimI64, schema.PrimInt:
		w.WriteI64(v.Int())
	case schema.PrimF32:
		w.WriteF32(float32(v.Float()))
	case schema.PrimF64:
		w.WriteF64(v.Float())
	default:
		return errors.Unsupported(errors.PhaseEncode, "primitive "+prim.String())
	}
	return nil
}

func encodeCustom(w *wire.Writer, v reflect.Value) error {
	var enc wirecodec.Encodable
	switch {
	case v.CanAddr():
		enc = v.Addr().Interface().(wirecodec.Encodable)
	default:
		pv := reflect.New(v.Type())
		pv.Elem().Set(v)
		enc = pv.Interface().(wirecodec.Encodable)
	}
	if err := enc.EncodeWire(w); err != nil {
		if _, ok := err.(*errors.Error); ok {
			return err
		}
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "custom encoder for "+v.Type().String())
	}
	return nil
}

// sortedKeys returns map keys in a stable order so encodings are
// deterministic. Keys of kinds without a natural order keep map order.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	if len(keys) < 2 {
		return keys
	}
	switch m.Type().Key().Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.Float32, reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Bool:
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool()))
		})
	case reflect.Array:
		if m.Type().Key().Elem().Kind() == reflect.Uint8 {
			slices.SortFunc(keys, compareByteArrays)
		}
	}
	return keys
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareByteArrays(a, b reflect.Value) int {
	for i := range a.Len() {
		if c := cmp.Compare(a.Index(i).Uint(), b.Index(i).Uint()); c != 0 {
			return c
		}
	}
	return 0
}
