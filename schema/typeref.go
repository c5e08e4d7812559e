package schema

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/wippyai/wirecodec/errors"
)

// Form is the syntactic shape of a type reference.
type Form uint8

const (
	FormBasic Form = iota
	FormNamed
	FormPointer
	FormSlice
	FormArray
	FormMap
	FormStruct
	FormOther
)

// Names of the borrowed wire types as written in type references.
const (
	RawBytesName  = "wire.RawBytes"
	RawStringName = "wire.RawString"
)

// TypeRef is a structural reference to a field type. Named types are
// referenced by name and never expanded.
type TypeRef struct {
	Elem *TypeRef
	Key  *TypeRef
	Name string
	Form Form
	Len  int
	// Custom marks a type that supplies its own codec.
	Custom bool
	// Empty marks a struct type with no fields.
	Empty bool
}

func (t TypeRef) String() string {
	switch t.Form {
	case FormBasic, FormNamed:
		return t.Name
	case FormPointer:
		return "*" + t.Elem.String()
	case FormSlice:
		return "[]" + t.Elem.String()
	case FormArray:
		return "[" + strconv.Itoa(t.Len) + "]" + t.Elem.String()
	case FormMap:
		return "map[" + t.Key.String() + "]" + t.Elem.String()
	case FormStruct:
		if t.Empty {
			return "struct{}"
		}
		if t.Name != "" {
			return t.Name
		}
		return "struct{...}"
	}
	if t.Name != "" {
		return t.Name
	}
	return "?"
}

// Basic returns a reference to a predeclared type.
func Basic(name string) TypeRef {
	return TypeRef{Form: FormBasic, Name: name}
}

// Named returns a reference to a declared type.
func Named(name string) TypeRef {
	return TypeRef{Form: FormNamed, Name: name}
}

// PointerTo returns a reference to *elem.
func PointerTo(elem TypeRef) TypeRef {
	return TypeRef{Form: FormPointer, Elem: &elem}
}

// SliceOf returns a reference to []elem.
func SliceOf(elem TypeRef) TypeRef {
	return TypeRef{Form: FormSlice, Elem: &elem}
}

// ArrayOf returns a reference to [n]elem.
func ArrayOf(n int, elem TypeRef) TypeRef {
	return TypeRef{Form: FormArray, Elem: &elem, Len: n}
}

// MapOf returns a reference to map[key]elem.
func MapOf(key, elem TypeRef) TypeRef {
	return TypeRef{Form: FormMap, Key: &key, Elem: &elem}
}

// EmptyStruct returns a reference to struct{}.
func EmptyStruct() TypeRef {
	return TypeRef{Form: FormStruct, Empty: true}
}

// ParseType parses a type reference written in Go syntax, such as
// "map[string][]*uint16" or "[4]wire.RawBytes".
func ParseType(src string) (TypeRef, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return TypeRef{}, errors.ParseFailed("", "type "+strconv.Quote(src), err)
	}
	return typeFromExpr(expr, src)
}

func typeFromExpr(expr ast.Expr, src string) (TypeRef, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		if _, ok := basicPrims[e.Name]; ok || e.Name == "string" {
			return Basic(e.Name), nil
		}
		return Named(e.Name), nil
	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if !ok {
			break
		}
		return Named(pkg.Name + "." + e.Sel.Name), nil
	case *ast.ParenExpr:
		return typeFromExpr(e.X, src)
	case *ast.StarExpr:
		elem, err := typeFromExpr(e.X, src)
		if err != nil {
			return TypeRef{}, err
		}
		return PointerTo(elem), nil
	case *ast.ArrayType:
		elem, err := typeFromExpr(e.Elt, src)
		if err != nil {
			return TypeRef{}, err
		}
		if e.Len == nil {
			return SliceOf(elem), nil
		}
		lit, ok := e.Len.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			break
		}
		n, err := strconv.ParseInt(lit.Value, 0, 0)
		if err != nil || n < 0 {
			break
		}
		return ArrayOf(int(n), elem), nil
	case *ast.MapType:
		key, err := typeFromExpr(e.Key, src)
		if err != nil {
			return TypeRef{}, err
		}
		val, err := typeFromExpr(e.Value, src)
		if err != nil {
			return TypeRef{}, err
		}
		return MapOf(key, val), nil
	case *ast.StructType:
		if e.Fields == nil || len(e.Fields.List) == 0 {
			return EmptyStruct(), nil
		}
		return TypeRef{Form: FormStruct, Name: strings.Join(strings.Fields(src), " ")}, nil
	}
	return TypeRef{Form: FormOther, Name: src}, nil
}
