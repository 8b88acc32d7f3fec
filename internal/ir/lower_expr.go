package ir

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

// operand is the result of lowering an expression. Scalars have a value;
// arrays are only ever handled through their address. A call of a void
// function has neither.
type operand struct {
	typ   types.Type
	value *Value
	addr  *Value
}

func (x operand) isConstString() bool {
	return x.value != nil && x.value.Op == OpConstString
}

func (l *lowerer) expr(x syntax.Expr) (operand, error) {
	return syntax.AcceptExpr[operand](x, l)
}

// rvalue lowers x and rejects the absent result of a void call.
func (l *lowerer) rvalue(x syntax.Expr) (operand, error) {
	op, err := l.expr(x)
	if err != nil {
		return operand{}, err
	}
	if op.value == nil && op.addr == nil {
		return operand{}, errorf(x, diag.Type, "void value used as value")
	}
	return op, nil
}

// convert returns the value of x as type to. Numeric values convert
// between numeric kinds; any other value converts only to its own type.
func (l *lowerer) convert(x operand, to *types.Basic) (*Value, bool) {
	from, ok := x.typ.(*types.Basic)
	if !ok || x.value == nil {
		return nil, false
	}
	if types.Identical(from, to) {
		return x.value, true
	}
	if !types.IsNumeric(from) || !types.IsNumeric(to) {
		return nil, false
	}

	v := x.value
	switch {
	case to.Kind() == types.Double:
		if from.Kind() == types.Char {
			v = l.fn.NewValue(l.b, OpExtend, types.Typ[types.Int], v)
		}
		return l.fn.NewValue(l.b, OpIntToDouble, to, v), true
	case from.Kind() == types.Double:
		v = l.fn.NewValue(l.b, OpDoubleToInt, types.Typ[types.Int], v)
		if to.Kind() == types.Char {
			v = l.fn.NewValue(l.b, OpTrunc, to, v)
		}
		return v, true
	case to.Kind() == types.Char:
		return l.fn.NewValue(l.b, OpTrunc, to, v), true
	}
	return l.fn.NewValue(l.b, OpExtend, to, v), true
}

// cond lowers x as a condition.
func (l *lowerer) cond(x syntax.Expr) (*Value, error) {
	op, err := l.rvalue(x)
	if err != nil {
		return nil, err
	}
	return l.truth(x, op)
}

// truth converts x to a bool: numbers are true when nonzero, a double
// according to the configured truthiness policy, and a string when it is
// not empty.
func (l *lowerer) truth(n syntax.Node, x operand) (*Value, error) {
	t, _ := x.typ.(*types.Basic)
	if t == nil || x.value == nil {
		return nil, errorf(n, diag.Type, "cannot use %s as a condition", x.typ)
	}
	boolType := types.Typ[types.Bool]
	switch t.Kind() {
	case types.Bool:
		return x.value, nil
	case types.Int, types.Char:
		return l.fn.NewValue(l.b, OpNeqInt, boolType, x.value, l.constInt(t, 0)), nil
	case types.Double:
		eps := l.constDouble(config.Epsilon)
		neg := l.constDouble(-config.Epsilon)
		if l.cfg.Truthiness == config.TruthLegacyInverted {
			lo := l.fn.NewValue(l.b, OpGtF64, boolType, x.value, neg)
			hi := l.fn.NewValue(l.b, OpLtF64, boolType, x.value, eps)
			return l.fn.NewValue(l.b, OpAndBool, boolType, lo, hi), nil
		}
		pos := l.fn.NewValue(l.b, OpGeqF64, boolType, x.value, eps)
		nv := l.fn.NewValue(l.b, OpLeqF64, boolType, x.value, neg)
		return l.fn.NewValue(l.b, OpOrBool, boolType, pos, nv), nil
	case types.String:
		char := types.Typ[types.Char]
		p := l.fn.NewValue(l.b, OpStringPtr, types.NewPointer(char), x.value)
		return l.fn.NewValue(l.b, OpNeqInt, boolType, l.load(p), l.constInt(char, 0)), nil
	}
	return nil, errorf(n, diag.Type, "cannot use %s as a condition", x.typ)
}

func (l *lowerer) VisitIntegerLit(x *syntax.IntegerLit) (operand, error) {
	if x.Value != int64(int32(x.Value)) {
		return operand{}, errorf(x, diag.Type, "integer constant %d overflows int", x.Value)
	}
	t := types.Typ[types.Int]
	return operand{typ: t, value: l.constInt(t, x.Value)}, nil
}

func (l *lowerer) VisitDoubleLit(x *syntax.DoubleLit) (operand, error) {
	return operand{typ: types.Typ[types.Double], value: l.constDouble(x.Value)}, nil
}

func (l *lowerer) VisitStringLit(x *syntax.StringLit) (operand, error) {
	return operand{typ: types.Typ[types.String], value: l.constString(x.Value)}, nil
}

func (l *lowerer) VisitCharLit(x *syntax.CharLit) (operand, error) {
	t := types.Typ[types.Char]
	return operand{typ: t, value: l.constInt(t, int64(x.Value))}, nil
}

func (l *lowerer) VisitBoolLit(x *syntax.BoolLit) (operand, error) {
	return operand{typ: types.Typ[types.Bool], value: l.constBool(x.Value)}, nil
}

// VisitVariable loads a scalar variable. An array is not loaded: its
// operand carries only the address.
func (l *lowerer) VisitVariable(x *syntax.Variable) (operand, error) {
	b, err := l.arena.Get(l.scope, x.Name)
	if err != nil {
		return operand{}, diag.At(err, x.Pos().Line())
	}
	if b.Storage.fn != nil {
		return operand{}, errorf(x, diag.Type, "function %s used as a value", x.Name)
	}
	addr := l.addrOf(b.Storage)
	if _, ok := b.Type.(*types.Array); ok {
		return operand{typ: b.Type, addr: addr}, nil
	}
	return operand{typ: b.Type, value: l.load(addr), addr: addr}, nil
}

// VisitFuncRef handles a function name outside callee position.
func (l *lowerer) VisitFuncRef(x *syntax.FuncRef) (operand, error) {
	b, err := l.arena.Get(l.scope, x.Name)
	if err != nil {
		return operand{}, diag.At(err, x.Pos().Line())
	}
	if b.Storage.fn == nil {
		return operand{}, errorf(x, diag.Type, "%s (%s) is not a function", x.Name, b.Type)
	}
	return operand{}, errorf(x, diag.Type, "function %s used as a value", x.Name)
}

func (l *lowerer) VisitUnary(x *syntax.Unary) (operand, error) {
	switch x.Op.Kind {
	case syntax.Inc, syntax.Dec:
		_, nv, err := l.step(x.Op, x.X)
		return nv, err
	}

	v, err := l.rvalue(x.X)
	if err != nil {
		return operand{}, err
	}
	switch x.Op.Kind {
	case syntax.Sub:
		if t, ok := v.typ.(*types.Basic); ok && v.value != nil {
			switch t.Kind() {
			case types.Int, types.Char:
				n, _ := l.convert(v, types.Typ[types.Int])
				return operand{typ: types.Typ[types.Int], value: l.fn.NewValue(l.b, OpNegInt, types.Typ[types.Int], n)}, nil
			case types.Double:
				return operand{typ: t, value: l.fn.NewValue(l.b, OpNegF64, t, v.value)}, nil
			}
		}
		return operand{}, errorf(x, diag.Type, "invalid operation: -%s", v.typ)
	case syntax.Not:
		c, err := l.truth(x, v)
		if err != nil {
			return operand{}, err
		}
		t := types.Typ[types.Bool]
		return operand{typ: t, value: l.fn.NewValue(l.b, OpNot, t, c)}, nil
	}
	panic("ir: unknown unary operator " + x.Op.Kind.String())
}

func (l *lowerer) VisitPostfix(x *syntax.Postfix) (operand, error) {
	old, _, err := l.step(x.Op, x.X)
	return old, err
}

// step applies ++ or -- to the integer location x and returns its value
// before and after.
func (l *lowerer) step(op syntax.Token, x syntax.Expr) (old, nv operand, err error) {
	lv, err := l.lvalue(x)
	if err != nil {
		return operand{}, operand{}, err
	}
	t, ok := lv.typ.(*types.Basic)
	if !ok || !types.IsInteger(t) {
		return operand{}, operand{}, errorf(x, diag.Type, "invalid operation: %s on %s", op.Lexeme, lv.typ)
	}
	delta := int64(1)
	if op.Kind == syntax.Dec {
		delta = -1
	}
	ov := l.load(lv.addr)
	v := l.fn.NewValue(l.b, OpAddInt, t, ov, l.constInt(t, delta))
	l.store(lv.addr, v)
	return operand{typ: t, value: ov}, operand{typ: t, value: v}, nil
}

// lvalue is an assignable place: a scalar variable, or one element of an
// array.
type lvalue struct {
	addr *Value
	typ  types.Type
	name string       // variable name, when arr is nil
	arr  *types.Array // array type, for an element

	exact bool // var binding: no implicit conversion on assignment
}

func (l *lowerer) lvalue(x syntax.Expr) (lvalue, error) {
	switch x := x.(type) {
	case *syntax.Variable:
		line := x.Pos().Line()
		b, err := l.arena.Get(l.scope, x.Name)
		if err != nil {
			return lvalue{}, diag.At(err, line)
		}
		if b.Storage.fn != nil {
			return lvalue{}, diag.Errorf(diag.Bind, line, "cannot assign to function %s", x.Name)
		}
		if _, ok := b.Type.(*types.Array); ok {
			return lvalue{}, diag.Errorf(diag.Bind, line, "cannot assign to array %s", x.Name)
		}
		return lvalue{addr: l.addrOf(b.Storage), typ: b.Type, name: x.Name, exact: b.Inferred}, nil
	case *syntax.Index:
		addr, arr, err := l.element(x)
		if err != nil {
			return lvalue{}, err
		}
		return lvalue{addr: addr, typ: arr.Elem(), arr: arr}, nil
	}
	return lvalue{}, errorf(x, diag.Bind, "cannot assign to %s", syntax.FormatExpr(x))
}

// element computes the address of the element x denotes. The row-major
// offset is the sum over dimensions of index times the product of the
// dimensions after it; every index is checked against its dimension at
// run time unless it is a constant in range.
func (l *lowerer) element(x *syntax.Index) (*Value, *types.Array, error) {
	base, err := l.rvalue(x.X)
	if err != nil {
		return nil, nil, err
	}
	arr, ok := base.typ.(*types.Array)
	if !ok {
		return nil, nil, errorf(x, diag.Type, "cannot index %s of type %s", syntax.FormatExpr(x.X), base.typ)
	}
	dims := arr.Dims()
	if len(x.Indices) != len(dims) {
		return nil, nil, errorf(x, diag.Arity, "%s has %d dimensions, indexed with %d",
			syntax.FormatExpr(x.X), len(dims), len(x.Indices))
	}

	intType := types.Typ[types.Int]
	strides := arr.Strides()
	var off *Value
	for i, ix := range x.Indices {
		iv, err := l.rvalue(ix)
		if err != nil {
			return nil, nil, err
		}
		if !types.IsInteger(iv.typ) {
			return nil, nil, errorf(ix, diag.Type, "array index must be integer, not %s", iv.typ)
		}
		n, _ := l.convert(iv, intType)
		l.boundsCheck(ix, n, int64(dims[i]))

		term := n
		if strides[i] != 1 {
			term = l.fn.NewValue(l.b, OpMulInt, intType, n, l.constInt(intType, strides[i]))
		}
		if off == nil {
			off = term
		} else {
			off = l.fn.NewValue(l.b, OpAddInt, intType, off, term)
		}
	}
	return l.elemPtr(base.addr, off), arr, nil
}

func (l *lowerer) boundsCheck(ix syntax.Expr, n *Value, dim int64) {
	if n.Op == OpConstInt && n.AuxInt >= 0 && n.AuxInt < dim {
		return
	}
	intType, boolType := types.Typ[types.Int], types.Typ[types.Bool]
	lo := l.fn.NewValue(l.b, OpGeqInt, boolType, n, l.constInt(intType, 0))
	hi := l.fn.NewValue(l.b, OpLtInt, boolType, n, l.constInt(intType, dim))
	ok := l.fn.NewValue(l.b, OpAndBool, boolType, lo, hi)
	l.check(ok, ix.Pos().Line(), fmt.Sprintf("%s: index out of range [0:%d]", diag.Runtime, dim))
}

// elemPtr returns the address of element off of the array at addr,
// counting in the flattened element order.
func (l *lowerer) elemPtr(addr, off *Value) *Value {
	elem := addr.Elem().(*types.Array).Elem()
	return l.fn.NewValue(l.b, OpElemPtr, types.NewPointer(elem), addr, off)
}

func (l *lowerer) VisitIndex(x *syntax.Index) (operand, error) {
	addr, arr, err := l.element(x)
	if err != nil {
		return operand{}, err
	}
	return operand{typ: arr.Elem(), value: l.load(addr), addr: addr}, nil
}

func (l *lowerer) VisitBinary(x *syntax.Binary) (operand, error) {
	if x.Op.Kind == syntax.Assign {
		return l.assign(x)
	}

	lhs, err := l.rvalue(x.X)
	if err != nil {
		return operand{}, err
	}
	rhs, err := l.rvalue(x.Y)
	if err != nil {
		return operand{}, err
	}
	return l.binaryOp(x, lhs, rhs)
}

// assign lowers X = Y. The result is the value stored, after conversion
// to the type of the target. A var binding keeps the type it was
// inferred with and takes no conversion.
func (l *lowerer) assign(x *syntax.Binary) (operand, error) {
	lv, err := l.lvalue(x.X)
	if err != nil {
		return operand{}, err
	}
	rhs, err := l.rvalue(x.Y)
	if err != nil {
		return operand{}, err
	}
	t := lv.typ.(*types.Basic)
	v, ok := l.convert(rhs, t)
	if lv.exact && !types.Identical(rhs.typ, t) {
		ok = false
	}
	if !ok {
		line := x.Pos().Line()
		if lv.arr != nil {
			return operand{}, diag.Errorf(diag.Bind, line, "cannot assign %s to element of %s", rhs.typ, lv.arr)
		}
		return operand{}, diag.Errorf(diag.Bind, line, "cannot assign %s to %s of type %s", rhs.typ, lv.name, t)
	}
	l.store(lv.addr, v)
	return operand{typ: t, value: v}, nil
}

// binaryOp lowers a non-assignment binary operator. String concatenation
// is folded at compile time and needs constant operands.
func (l *lowerer) binaryOp(x *syntax.Binary, lhs, rhs operand) (operand, error) {
	op := x.Op.Kind
	boolType := types.Typ[types.Bool]
	mismatch := func() (operand, error) {
		return operand{}, errorf(x, diag.Type, "invalid operation: %s %s %s", lhs.typ, x.Op.Lexeme, rhs.typ)
	}

	switch op {
	case syntax.Add:
		if types.IsString(lhs.typ) {
			if !types.IsString(rhs.typ) {
				return mismatch()
			}
			if !lhs.isConstString() || !rhs.isConstString() {
				return operand{}, errorf(x, diag.Type, "cannot concatenate non-constant strings")
			}
			s := lhs.value.Aux.(string) + rhs.value.Aux.(string)
			return operand{typ: lhs.typ, value: l.constString(s)}, nil
		}
	case syntax.Eql, syntax.Neq:
		if types.IsBoolean(lhs.typ) {
			if !types.IsBoolean(rhs.typ) {
				return mismatch()
			}
			o := OpEqInt
			if op == syntax.Neq {
				o = OpNeqInt
			}
			return operand{typ: boolType, value: l.fn.NewValue(l.b, o, boolType, lhs.value, rhs.value)}, nil
		}
	case syntax.Rem:
		if !types.IsInteger(lhs.typ) || !types.IsInteger(rhs.typ) {
			return mismatch()
		}
	}

	lt, _ := lhs.typ.(*types.Basic)
	rt, _ := rhs.typ.(*types.Basic)
	if lt == nil || rt == nil || lhs.value == nil || rhs.value == nil {
		return mismatch()
	}
	t := types.Promote(lt, rt)
	if t == nil {
		return mismatch()
	}
	a, _ := l.convert(lhs, t)
	b, _ := l.convert(rhs, t)
	if t.Kind() == types.Double {
		return l.doubleOp(x, a, b), nil
	}
	return l.intOp(x, t, a, b), nil
}

// intOp lowers an integer operation on operands of type t. Chars are
// unsigned, so they are widened to int first and arithmetic results
// truncated back.
func (l *lowerer) intOp(x *syntax.Binary, t *types.Basic, a, b *Value) operand {
	intType, boolType := types.Typ[types.Int], types.Typ[types.Bool]
	if t.Kind() == types.Char {
		a = l.fn.NewValue(l.b, OpExtend, intType, a)
		b = l.fn.NewValue(l.b, OpExtend, intType, b)
	}

	var o Op
	switch x.Op.Kind {
	case syntax.Add:
		o = OpAddInt
	case syntax.Sub:
		o = OpSubInt
	case syntax.Mul:
		o = OpMulInt
	case syntax.Div, syntax.Rem:
		if b.Op != OpConstInt || b.AuxInt == 0 {
			nz := l.fn.NewValue(l.b, OpNeqInt, boolType, b, l.constInt(intType, 0))
			l.check(nz, x.Pos().Line(), fmt.Sprintf("%s: integer division by zero", diag.Runtime))
		}
		o = OpDivInt
		if x.Op.Kind == syntax.Rem {
			o = OpModInt
		}
	default:
		return operand{typ: boolType, value: l.fn.NewValue(l.b, compareOp(x.Op.Kind, false), boolType, a, b)}
	}

	v := l.fn.NewValue(l.b, o, intType, a, b)
	if t.Kind() == types.Char {
		v = l.fn.NewValue(l.b, OpTrunc, t, v)
	}
	return operand{typ: t, value: v}
}

func (l *lowerer) doubleOp(x *syntax.Binary, a, b *Value) operand {
	t := types.Typ[types.Double]
	var o Op
	switch x.Op.Kind {
	case syntax.Add:
		o = OpAddF64
	case syntax.Sub:
		o = OpSubF64
	case syntax.Mul:
		o = OpMulF64
	case syntax.Div:
		o = OpDivF64
	default:
		boolType := types.Typ[types.Bool]
		return operand{typ: boolType, value: l.fn.NewValue(l.b, compareOp(x.Op.Kind, true), boolType, a, b)}
	}
	return operand{typ: t, value: l.fn.NewValue(l.b, o, t, a, b)}
}

func compareOp(op syntax.Kind, float bool) Op {
	var o Op
	switch op {
	case syntax.Eql:
		o = OpEqInt
	case syntax.Neq:
		o = OpNeqInt
	case syntax.Lss:
		o = OpLtInt
	case syntax.Leq:
		o = OpLeqInt
	case syntax.Gtr:
		o = OpGtInt
	case syntax.Geq:
		o = OpGeqInt
	default:
		panic("ir: unknown binary operator " + op.String())
	}
	if float {
		o += OpEqF64 - OpEqInt
	}
	return o
}

// VisitCall lowers a direct call. Arguments are converted to the
// parameter types like the operands of an assignment.
func (l *lowerer) VisitCall(x *syntax.Call) (operand, error) {
	line := x.Pos().Line()
	ref, ok := x.Fun.(*syntax.FuncRef)
	if !ok {
		return operand{}, errorf(x, diag.Type, "cannot call non-function %s", syntax.FormatExpr(x.Fun))
	}
	b, err := l.arena.Get(l.scope, ref.Name)
	if err != nil {
		return operand{}, diag.At(err, line)
	}
	fn := b.Storage.fn
	if fn == nil {
		return operand{}, errorf(ref, diag.Type, "%s (%s) is not a function", ref.Name, b.Type)
	}

	args := make([]operand, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = l.rvalue(a); err != nil {
			return operand{}, err
		}
	}

	params := fn.Sig.Params()
	if len(args) != len(params) {
		return operand{}, diag.Errorf(diag.Arity, line, "wrong number of arguments in call to %s: have %d, want %d",
			fn.Name, len(args), len(params))
	}
	vals := make([]*Value, len(args))
	for i, a := range args {
		v, ok := l.convert(a, params[i])
		if !ok {
			return operand{}, diag.Errorf(diag.Bind, line, "cannot use %s as %s in argument %d to %s",
				a.typ, params[i], i+1, fn.Name)
		}
		vals[i] = v
	}

	result := fn.Result()
	var rt types.Type
	if result.Kind() != types.Void {
		rt = result
	}
	call := l.fn.NewValue(l.b, OpCall, rt, vals...)
	call.Aux = fn
	call.Line = line
	if rt == nil {
		return operand{typ: result}, nil
	}
	return operand{typ: result, value: call}, nil
}

func errorf(n syntax.Node, kind diag.Kind, format string, args ...interface{}) error {
	return diag.Errorf(kind, n.Pos().Line(), format, args...)
}
