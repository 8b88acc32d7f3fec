package interp

import (
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

func (in *Interpreter) VisitIntegerLit(x *syntax.IntegerLit) (Value, error) {
	if x.Value != int64(int32(x.Value)) {
		return nil, errorf(x, diag.Type, "integer constant %d overflows int", x.Value)
	}
	return Int(x.Value), nil
}

func (in *Interpreter) VisitDoubleLit(x *syntax.DoubleLit) (Value, error) {
	return Double(x.Value), nil
}

func (in *Interpreter) VisitStringLit(x *syntax.StringLit) (Value, error) {
	return String(x.Value), nil
}

func (in *Interpreter) VisitCharLit(x *syntax.CharLit) (Value, error) {
	return Char(x.Value), nil
}

func (in *Interpreter) VisitBoolLit(x *syntax.BoolLit) (Value, error) {
	return Bool(x.Value), nil
}

func (in *Interpreter) VisitVariable(x *syntax.Variable) (Value, error) {
	b, err := in.arena.Get(in.scope, x.Name)
	if err != nil {
		return nil, diag.At(err, x.Pos().Line())
	}
	return b.Storage, nil
}

func (in *Interpreter) VisitFuncRef(x *syntax.FuncRef) (Value, error) {
	b, err := in.arena.Get(in.scope, x.Name)
	if err != nil {
		return nil, diag.At(err, x.Pos().Line())
	}
	if _, ok := b.Storage.(Func); !ok {
		return nil, errorf(x, diag.Type, "%s (%s) is not a function", x.Name, b.Type)
	}
	return b.Storage, nil
}

func (in *Interpreter) VisitUnary(x *syntax.Unary) (Value, error) {
	switch x.Op.Kind {
	case syntax.Inc, syntax.Dec:
		_, nv, err := in.step(x.Op, x.X)
		return nv, err
	}

	v, err := in.value(x.X)
	if err != nil {
		return nil, err
	}
	switch x.Op.Kind {
	case syntax.Sub:
		switch v := v.(type) {
		case Int:
			return -v, nil
		case Char:
			return -Int(v), nil
		case Double:
			return -v, nil
		}
		return nil, errorf(x, diag.Type, "invalid operation: -%s", typeName(v))
	case syntax.Not:
		ok, err := in.truthy(x, v)
		if err != nil {
			return nil, err
		}
		return Bool(!ok), nil
	}
	panic("interp: unknown unary operator " + x.Op.Kind.String())
}

func (in *Interpreter) VisitPostfix(x *syntax.Postfix) (Value, error) {
	old, _, err := in.step(x.Op, x.X)
	return old, err
}

// step applies ++ or -- to the integer location x and returns its value
// before and after.
func (in *Interpreter) step(op syntax.Token, x syntax.Expr) (old, nv Value, err error) {
	loc, err := in.locate(x)
	if err != nil {
		return nil, nil, err
	}
	old, err = loc.load()
	if err != nil {
		return nil, nil, err
	}
	delta := Int(1)
	if op.Kind == syntax.Dec {
		delta = -1
	}
	switch v := old.(type) {
	case Int:
		nv = v + delta
	case Char:
		nv = v + Char(delta)
	default:
		return nil, nil, errorf(x, diag.Type, "invalid operation: %s on %s", op.Lexeme, typeName(old))
	}
	if err := loc.store(nv); err != nil {
		return nil, nil, err
	}
	return old, nv, nil
}

func (in *Interpreter) VisitBinary(x *syntax.Binary) (Value, error) {
	if x.Op.Kind == syntax.Assign {
		return in.assign(x)
	}

	lhs, err := in.value(x.X)
	if err != nil {
		return nil, err
	}
	rhs, err := in.value(x.Y)
	if err != nil {
		return nil, err
	}
	return binaryOp(x, lhs, rhs)
}

// assign evaluates X = Y. The result is the value stored, after
// conversion to the type of the target.
func (in *Interpreter) assign(x *syntax.Binary) (Value, error) {
	loc, err := in.locate(x.X)
	if err != nil {
		return nil, err
	}
	v, err := in.value(x.Y)
	if err != nil {
		return nil, err
	}
	if err := loc.store(v); err != nil {
		return nil, err
	}
	return loc.load()
}

// binaryOp applies a non-assignment binary operator.
func binaryOp(x *syntax.Binary, lhs, rhs Value) (Value, error) {
	op := x.Op.Kind
	lt, rt := basicOf(lhs), basicOf(rhs)
	mismatch := func() (Value, error) {
		return nil, errorf(x, diag.Type, "invalid operation: %s %s %s", typeName(lhs), x.Op.Lexeme, typeName(rhs))
	}

	switch op {
	case syntax.Add:
		if ls, ok := lhs.(String); ok {
			if rs, ok := rhs.(String); ok {
				return ls + rs, nil
			}
			return mismatch()
		}
	case syntax.Eql, syntax.Neq:
		if lb, ok := lhs.(Bool); ok {
			rb, ok := rhs.(Bool)
			if !ok {
				return mismatch()
			}
			return Bool((lb == rb) == (op == syntax.Eql)), nil
		}
	case syntax.Rem:
		if !types.IsInteger(lt) || !types.IsInteger(rt) {
			return mismatch()
		}
	}

	if lt == nil || rt == nil {
		return mismatch()
	}
	t := types.Promote(lt, rt)
	if t == nil {
		return mismatch()
	}
	l, _ := convert(lhs, t)
	r, _ := convert(rhs, t)

	switch l := l.(type) {
	case Int:
		return intOp(x, l, r.(Int))
	case Char:
		v, err := intOp(x, Int(l), Int(r.(Char)))
		if c, ok := v.(Int); ok {
			return Char(c), err
		}
		return v, err
	case Double:
		return doubleOp(x, l, r.(Double))
	}
	return mismatch()
}

func intOp(x *syntax.Binary, l, r Int) (Value, error) {
	switch x.Op.Kind {
	case syntax.Add:
		return l + r, nil
	case syntax.Sub:
		return l - r, nil
	case syntax.Mul:
		return l * r, nil
	case syntax.Div, syntax.Rem:
		if r == 0 {
			return nil, errorf(x, diag.Runtime, "integer division by zero")
		}
		if x.Op.Kind == syntax.Div {
			return l / r, nil
		}
		return l % r, nil
	}
	return Bool(compare(x.Op.Kind, float64(l), float64(r))), nil
}

func doubleOp(x *syntax.Binary, l, r Double) (Value, error) {
	switch x.Op.Kind {
	case syntax.Add:
		return l + r, nil
	case syntax.Sub:
		return l - r, nil
	case syntax.Mul:
		return l * r, nil
	case syntax.Div:
		return l / r, nil
	}
	return Bool(compare(x.Op.Kind, float64(l), float64(r))), nil
}

func compare(op syntax.Kind, l, r float64) bool {
	switch op {
	case syntax.Eql:
		return l == r
	case syntax.Neq:
		return l != r
	case syntax.Lss:
		return l < r
	case syntax.Leq:
		return l <= r
	case syntax.Gtr:
		return l > r
	case syntax.Geq:
		return l >= r
	}
	panic("interp: unknown binary operator " + op.String())
}

// VisitCall resolves the callee at the time of the call, so functions
// may be called before their definition has been executed only if a
// prototype or earlier definition bound the name.
func (in *Interpreter) VisitCall(x *syntax.Call) (Value, error) {
	callee, err := in.value(x.Fun)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(Func)
	if !ok {
		return nil, errorf(x, diag.Type, "cannot call non-function %s", syntax.FormatExpr(x.Fun))
	}

	args := make([]Value, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = in.value(a); err != nil {
			return nil, err
		}
	}
	return in.call(fn.fn, args, x.Pos().Line())
}

func (in *Interpreter) VisitIndex(x *syntax.Index) (Value, error) {
	loc, err := in.locate(x)
	if err != nil {
		return nil, err
	}
	return loc.load()
}
