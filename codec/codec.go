package codec

import (
	"reflect"
	"slices"
	"sync"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/wire"
)

var defaultCompiler = sync.OnceValue(func() *Compiler {
	return NewCompiler()
})

// Default returns the compiler used by the package-level functions.
func Default() *Compiler {
	return defaultCompiler()
}

// Marshal encodes v with the default compiler.
func Marshal(v any) ([]byte, error) {
	return Default().Marshal(v)
}

// Unmarshal decodes data into dst with the default compiler.
func Unmarshal(data []byte, dst any) error {
	return Default().Unmarshal(data, dst)
}

// Decode decodes data into a new T with the default compiler.
func Decode[T any](data []byte) (T, error) {
	var v T
	err := Default().Unmarshal(data, &v)
	return v, err
}

// MinimumSize returns the fewest bytes an encoded T occupies.
func MinimumSize[T any]() (int, error) {
	p, err := Default().Compile(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return p.MinimumSize(), nil
}

// PlanFor returns the plan for T.
func PlanFor[T any](c *Compiler) (*Plan, error) {
	return c.Compile(reflect.TypeFor[T]())
}

// Marshal encodes v. A pointer is encoded as the value it points to.
func (c *Compiler) Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "nil")
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, errors.NilPointer(errors.PhaseEncode, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}

	p, err := c.Compile(rv.Type())
	if err != nil {
		return nil, err
	}

	w := getWriter()
	defer putWriter(w)
	if err := p.encodeTop(w, rv); err != nil {
		return nil, err
	}
	return slices.Clone(w.Bytes()), nil
}

// Unmarshal decodes one value from the start of data into dst, a non-nil
// pointer. Trailing bytes are ignored. Borrowed fields alias data.
func (c *Compiler) Unmarshal(data []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		name := "nil"
		if dst != nil {
			name = rv.Type().String()
		}
		return errors.NilPointer(errors.PhaseDecode, nil, name)
	}
	p, err := c.Compile(rv.Type().Elem())
	if err != nil {
		return err
	}
	return p.Decode(wire.NewReader(data), dst)
}
