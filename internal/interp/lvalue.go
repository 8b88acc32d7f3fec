package interp

import (
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

// location is an assignable place: a variable, or one element of an
// array.
type location struct {
	in   *Interpreter
	node syntax.Expr

	name string // variable name, when arr is nil
	arr  *Array
	off  int64
}

// locate evaluates an lvalue expression to the location it denotes.
func (in *Interpreter) locate(x syntax.Expr) (*location, error) {
	switch x := x.(type) {
	case *syntax.Variable:
		if _, err := in.arena.Get(in.scope, x.Name); err != nil {
			return nil, diag.At(err, x.Pos().Line())
		}
		return &location{in: in, node: x, name: x.Name}, nil
	case *syntax.Index:
		arr, off, err := in.element(x)
		if err != nil {
			return nil, err
		}
		return &location{in: in, node: x, arr: arr, off: off}, nil
	}
	return nil, errorf(x, diag.Bind, "cannot assign to %s", syntax.FormatExpr(x))
}

// element evaluates the base and subscripts of x and returns the array
// and the row-major offset of the element: the sum over dimensions of
// index times the product of the dimensions after it.
func (in *Interpreter) element(x *syntax.Index) (*Array, int64, error) {
	base, err := in.value(x.X)
	if err != nil {
		return nil, 0, err
	}
	arr, ok := base.(*Array)
	if !ok {
		return nil, 0, errorf(x, diag.Type, "cannot index %s of type %s", syntax.FormatExpr(x.X), typeName(base))
	}
	dims := arr.typ.Dims()
	if len(x.Indices) != len(dims) {
		return nil, 0, errorf(x, diag.Arity, "%s has %d dimensions, indexed with %d",
			syntax.FormatExpr(x.X), len(dims), len(x.Indices))
	}

	strides := arr.typ.Strides()
	var off int64
	for i, ix := range x.Indices {
		v, err := in.value(ix)
		if err != nil {
			return nil, 0, err
		}
		iv, ok := convert(v, types.Typ[types.Int])
		if !ok || !types.IsInteger(v.Type()) {
			return nil, 0, errorf(ix, diag.Type, "array index must be integer, not %s", typeName(v))
		}
		n := int64(iv.(Int))
		if n < 0 || n >= int64(dims[i]) {
			return nil, 0, errorf(ix, diag.Runtime, "index %d out of range [0:%d]", n, dims[i])
		}
		off += n * strides[i]
	}
	return arr, off, nil
}

func (l *location) load() (Value, error) {
	if l.arr != nil {
		return l.arr.Elems[l.off], nil
	}
	b, err := l.in.arena.Get(l.in.scope, l.name)
	if err != nil {
		return nil, diag.At(err, l.node.Pos().Line())
	}
	return b.Storage, nil
}

// store writes v, converting numeric values to the type of the location
// unless it is a var binding. Any other change of type is a bind error.
func (l *location) store(v Value) error {
	line := l.node.Pos().Line()
	if l.arr != nil {
		elem := l.arr.typ.Elem()
		cv, ok := assignTo(v, elem)
		if !ok {
			return diag.Errorf(diag.Bind, line, "cannot assign %s to element of %s", typeName(v), l.arr.typ)
		}
		l.arr.Elems[l.off] = cv
		return nil
	}

	b, err := l.in.arena.Get(l.in.scope, l.name)
	if err != nil {
		return diag.At(err, line)
	}
	switch t := b.Type.(type) {
	case *types.Basic:
		if b.Inferred {
			break
		}
		if cv, ok := convert(v, t); ok {
			v = cv
		}
	case *types.Array:
		return diag.Errorf(diag.Bind, line, "cannot assign to array %s", l.name)
	}
	return diag.At(l.in.arena.Set(l.in.scope, l.name, v.Type(), v), line)
}
