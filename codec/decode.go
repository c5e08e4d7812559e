package codec

import (
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/wirecodec"
	"github.com/wippyai/wirecodec/derive"
	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// decodeValue decodes into v, which is addressable and zero.
func (p *Plan) decodeValue(r *wire.Reader, v reflect.Value) error {
	switch p.kind {
	case planRecord:
		return p.decodeRecord(r, v, &p.rec)
	case planEnum:
		return p.decodeEnum(r, v)
	case planCustom:
		return decodeCustom(r, v)
	}
	return p.decodeSteps(r, p.value, v, nil)
}

func (p *Plan) decodeRecord(r *wire.Reader, v reflect.Value, rec *boundRecord) error {
	var env map[string]any
	if rec.needsEnv {
		env = make(map[string]any, len(rec.fields))
	}

	for i := range rec.fields {
		f := &rec.fields[i]
		fv := v
		if f.index >= 0 {
			fv = v.Field(f.index)
		}

		mark := r.Offset()
		if err := p.decodeSteps(r, f.decode, fv, env); err != nil {
			if !f.prog.Field.DefaultOnEOF || !errors.IsEOF(err) {
				return withPath(err, f.name)
			}
			r.Seek(mark)
			fv.SetZero()
		}
		if env != nil {
			env[f.name] = envValue(fv)
		}
	}
	return nil
}

func (p *Plan) decodeEnum(r *wire.Reader, v reflect.Value) error {
	e := p.enum.Enum
	var tag uint64
	var err error
	if e.Peek {
		tag, err = r.PeekUint(e.TagWidth)
	} else {
		tag, err = r.ReadUint(e.TagWidth)
	}
	if err != nil {
		return err
	}

	i, ok := p.enum.CaseIndex(tag)
	if !ok {
		return errors.InvalidVariant(nil, tag, e.Name)
	}
	bc := &p.cases[i]
	pv := reflect.New(bc.payload)
	if err := p.decodeRecord(r, pv.Elem(), &bc.rec); err != nil {
		return withPath(err, bc.name)
	}
	v.SetZero()
	v.Field(bc.field).Set(pv)
	return nil
}

func (p *Plan) decodeSteps(r *wire.Reader, steps []step, v reflect.Value, env map[string]any) error {
	length := 0
	for i := range steps {
		st := &steps[i]
		switch st.op.Code {
		case derive.OpPrefix:
			if err := r.Expect(st.op.Bytes); err != nil {
				return err
			}
		case derive.OpDefault:
			v.SetZero()
		case derive.OpPresence:
			flag, err := r.ReadU8()
			if err != nil {
				return err
			}
			if flag == 0 {
				v.SetZero()
				return nil
			}
			pv := reflect.New(st.typ.Elem())
			v.Set(pv)
			v = pv.Elem()
		case derive.OpLength:
			n, err := r.ReadLength(st.op.Width)
			if err != nil {
				return err
			}
			length = n
		case derive.OpLengthExpr:
			n, err := st.op.Expr.Eval(env)
			if err != nil {
				return err
			}
			length = n
		default:
			return p.decodeBody(r, st, v, length)
		}
	}
	return nil
}

// checkLength rejects lengths over the limit or longer than the remaining
// input can hold.
func (p *Plan) checkLength(r *wire.Reader, st *step, n int) error {
	if n > p.maxLength {
		return errors.Overflow(errors.PhaseDecode, nil, n, "length limit "+strconv.Itoa(p.maxLength))
	}
	if st.elemMin > 0 && n > r.Remaining()/st.elemMin {
		need := math.MaxInt
		if n <= math.MaxInt/st.elemMin {
			need = n * st.elemMin
		}
		return errors.EOF(nil, need, r.Remaining())
	}
	return nil
}

func (p *Plan) decodeBody(r *wire.Reader, st *step, v reflect.Value, n int) error {
	switch st.op.Code {
	case derive.OpPrimitive:
		return decodePrimitive(r, st.op.Prim, v)

	case derive.OpString, derive.OpBorrowedString:
		if err := p.checkLength(r, st, n); err != nil {
			return err
		}
		b, err := r.Borrow(n)
		if err != nil {
			return err
		}
		if !utf8.Valid(b) {
			return errors.InvalidUTF8(errors.PhaseDecode, nil, b)
		}
		if st.op.Code == derive.OpBorrowedString {
			v.SetString(wire.BorrowString(b))
		} else {
			v.SetString(string(b))
		}
		return nil

	case derive.OpBorrowedSlice:
		if err := p.checkLength(r, st, n); err != nil {
			return err
		}
		b, err := r.Borrow(n)
		if err != nil {
			return err
		}
		if n > 0 {
			v.SetBytes(b)
		}
		return nil

	case derive.OpSequence:
		if err := p.checkLength(r, st, n); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if st.bytes {
			b, err := r.ReadBytes(n)
			if err != nil {
				return err
			}
			v.SetBytes(b)
			return nil
		}
		s := reflect.MakeSlice(v.Type(), n, n)
		for i := range n {
			if err := p.decodeSteps(r, st.elem, s.Index(i), nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		v.Set(s)
		return nil

	case derive.OpSet:
		if err := p.checkLength(r, st, n); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		t := v.Type()
		m := reflect.MakeMapWithSize(t, n)
		present := reflect.Zero(t.Elem())
		for i := range n {
			k := reflect.New(t.Key()).Elem()
			if err := p.decodeSteps(r, st.elem, k, nil); err != nil {
				return withPath(err, indexSeg(i))
			}
			m.SetMapIndex(k, present)
		}
		v.Set(m)
		return nil

	case derive.OpMap:
		if err := p.checkLength(r, st, n); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		t := v.Type()
		m := reflect.MakeMapWithSize(t, n)
		for i := range n {
			k := reflect.New(t.Key()).Elem()
			if err := p.decodeSteps(r, st.key, k, nil); err != nil {
				return withPath(err, indexSeg(i))
			}
			e := reflect.New(t.Elem()).Elem()
			if err := p.decodeSteps(r, st.elem, e, nil); err != nil {
				return withPath(err, indexSeg(i))
			}
			m.SetMapIndex(k, e)
		}
		v.Set(m)
		return nil

	case derive.OpArray:
		if st.bytes {
			b, err := r.Borrow(st.op.Len)
			if err != nil {
				return err
			}
			reflect.Copy(v, reflect.ValueOf(b))
			return nil
		}
		for i := range st.op.Len {
			if err := p.decodeSteps(r, st.elem, v.Index(i), nil); err != nil {
				return withPath(err, indexSeg(i))
			}
		}
		return nil

	case derive.OpDelegate:
		if st.custom {
			return decodeCustom(r, v)
		}
		return st.plan.decodeValue(r, v)
	}
	return errors.Unsupported(errors.PhaseDecode, "op "+st.op.Code.String())
}

func decodePrimitive(r *wire.Reader, prim schema.Prim, v reflect.Value) error {
	ptr := v.Addr().UnsafePointer()
	switch prim {
	case schema.PrimBool:
		b, err := r.ReadU8()
		if err != nil {
			return err
		}
		*(*bool)(ptr) = b != 0
	case schema.PrimU8:
		x, err := r.ReadU8()
		if err != nil {
			return err
		}
		*(*uint8)(ptr) = x
	case schema.PrimI8:
		x, err := r.ReadI8()
		if err != nil {
			return err
		}
		*(*int8)(ptr) = x
	case schema.PrimU16:
		x, err := r.ReadU16()
		if err != nil {
			return err
		}
		*(*uint16)(ptr) = x
	case schema.PrimI16:
		x, err := r.ReadI16()
		if err != nil {
			return err
		}
		*(*int16)(ptr) = x
	case schema.PrimU32:
		x, err := r.ReadU32()
		if err != nil {
			return err
		}
		*(*uint32)(ptr) = x
	case schema.PrimI32:
		x, err := r.ReadI32()
		if err != nil {
			return err
		}
		*(*int32)(ptr) = x
	case schema.PrimChar:
		x, err := r.ReadU32()
		if err != nil {
			return err
		}
		if x > utf8.MaxRune || !utf8.ValidRune(rune(x)) {
			return errors.InvalidChar(errors.PhaseDecode, nil, x)
		}
		*(*int32)(ptr) = int32(x)
	case schema.PrimU64:
		x, err := r.ReadU64()
		if err != nil {
			return err
		}
		*(*uint64)(ptr) = x
	case schema.PrimI64:
		x, err := r.ReadI64()
		if err != nil {
			return err
		}
		*(*int64)(ptr) = x
	case schema.PrimF32:
		x, err := r.ReadF32()
		if err != nil {
			return err
		}
		*(*float32)(ptr) = x
	case schema.PrimF64:
		x, err := r.ReadF64()
		if err != nil {
			return err
		}
		*(*float64)(ptr) = x
	case schema.PrimInt:
		x, err := r.ReadI64()
		if err != nil {
			return err
		}
		if int64(int(x)) != x {
			return errors.Overflow(errors.PhaseDecode, nil, x, "int")
		}
		*(*int)(ptr) = int(x)
	case schema.PrimUint:
		x, err := r.ReadU64()
		if err != nil {
			return err
		}
		if uint64(uint(x)) != x {
			return errors.Overflow(errors.PhaseDecode, nil, x, "uint")
		}
		*(*uint)(ptr) = uint(x)
	default:
		return errors.Unsupported(errors.PhaseDecode, "primitive "+prim.String())
	}
	return nil
}

func decodeCustom(r *wire.Reader, v reflect.Value) error {
	d := v.Addr().Interface().(wirecodec.Decodable)
	if err := d.DecodeWire(r); err != nil {
		if _, ok := err.(*errors.Error); ok {
			return err
		}
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "custom decoder for "+v.Type().String())
	}
	return nil
}

// envValue converts a decoded field into the form length expressions see.
func envValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return derive.EnvValue(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return envValue(v.Elem())
	}
	if !v.CanInterface() {
		return nil
	}
	return derive.EnvValue(v.Interface())
}
