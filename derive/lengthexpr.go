package derive

import (
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/types"
	"github.com/expr-lang/expr/vm"

	"github.com/wippyai/wirecodec/errors"
	"github.com/wippyai/wirecodec/schema"
	"github.com/wippyai/wirecodec/wire"
)

// LengthExpr is a compiled length expression. Its environment holds the
// values of the fields declared before the one it measures.
type LengthExpr struct {
	program *vm.Program
	Source  string
	Names   []string
}

// CompileLength compiles the length expression of fields[index] against the
// fields that precede it.
func CompileLength(fields []schema.Field, index int) (*LengthExpr, error) {
	f := fields[index]
	env := make(types.Map, index)
	names := make([]string, 0, index)
	for _, prev := range fields[:index] {
		env[prev.Name] = envType(prev.Node)
		names = append(names, prev.Name)
	}

	program, err := expr.Compile(f.Length, expr.Env(env), expr.AsInt())
	if err != nil {
		return nil, errors.New(errors.PhaseResolve, errors.KindInvalidData).
			Pos(f.Pos).
			Path(f.Name).
			Cause(err).
			Detail("invalid length expression %q", f.Length).
			Build()
	}
	return &LengthExpr{program: program, Source: f.Length, Names: names}, nil
}

func envType(n schema.Node) types.Type {
	if n.Optional {
		return types.Any
	}
	switch n.Kind {
	case schema.KindPrimitive:
		switch n.Prim {
		case schema.PrimBool:
			return types.Bool
		case schema.PrimF32, schema.PrimF64:
			return types.Float64
		}
		return types.Int
	case schema.KindString, schema.KindBorrowedString:
		return types.String
	}
	return types.Any
}

// Eval runs the expression. env must map every name in Names to the
// field's value, normalized with EnvValue.
func (e *LengthExpr) Eval(env map[string]any) (int, error) {
	out, err := expr.Run(e.program, env)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "evaluate length expression "+e.Source)
	}
	n, ok := out.(int)
	if !ok || n < 0 {
		return 0, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Value(out).
			Detail("length expression %s produced %v", e.Source, out).
			Build()
	}
	return n, nil
}

// EnvValue normalizes a field value for expression evaluation: integers
// become int, floats become float64 and borrowed types become their owned
// forms.
func EnvValue(v any) any {
	switch x := v.(type) {
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		if x > math.MaxInt {
			return x
		}
		return int(x)
	case uint:
		if x > math.MaxInt {
			return x
		}
		return int(x)
	case float32:
		return float64(x)
	case wire.RawString:
		return string(x)
	case wire.RawBytes:
		return []byte(x)
	}
	return v
}
