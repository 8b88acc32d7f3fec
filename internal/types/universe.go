package types

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/syntax"
)

// universe maps the type keywords to their predeclared types.
var universe = map[syntax.TypeName]*Basic{}

func init() {
	for _, kind := range []BasicKind{Void, Bool, Char, Int, Double, String} {
		typ := Typ[kind]
		universe[syntax.TypeName(typ.name)] = typ
	}
}

// Lookup returns the basic type spelled name, or nil if there is none.
// The empty name (a var declaration) has no type of its own.
func Lookup(name syntax.TypeName) *Basic {
	return universe[name]
}

// OfVarDecl returns the declared type of d: a basic type, or an array of
// one when d has dimensions. It returns nil for an untyped var.
func OfVarDecl(d *syntax.VarDecl) (Type, error) {
	if d.Type == "" {
		return nil, nil
	}
	elem := Lookup(d.Type)
	if elem == nil {
		return nil, fmt.Errorf("unknown type %s", d.Type)
	}
	if elem.kind == Void {
		return nil, fmt.Errorf("variable %s declared void", d.Name)
	}
	if len(d.Dims) == 0 {
		return elem, nil
	}
	return NewArray(elem, d.Dims), nil
}

// OfFuncDecl returns the signature of d.
func OfFuncDecl(d *syntax.FuncDecl) (*Func, error) {
	result := Lookup(d.Result)
	if result == nil {
		return nil, fmt.Errorf("unknown result type %s", d.Result)
	}
	params := make([]*Basic, len(d.Params))
	for i, p := range d.Params {
		pt := Lookup(p.Type)
		if pt == nil || pt.kind == Void {
			return nil, fmt.Errorf("invalid type %s for parameter %s", p.Type, p.Name)
		}
		params[i] = pt
	}
	return NewFunc(params, result), nil
}
