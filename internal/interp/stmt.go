package interp

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/env"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

// VisitVarDecl defines a variable in the current frame. A typed
// declaration converts its initializer to the declared type; a var
// declaration takes the type of its initializer.
func (in *Interpreter) VisitVarDecl(s *syntax.VarDecl) (Completion, error) {
	line := s.Pos().Line()
	typ, err := types.OfVarDecl(s)
	if err != nil {
		return normal, diag.Errorf(diag.Type, line, "%v", err)
	}

	var v Value
	switch {
	case s.Value == nil:
		v = Zero(typ)
	case typ == nil:
		if v, err = in.value(s.Value); err != nil {
			return normal, err
		}
		if a, ok := v.(*Array); ok {
			v = a.copy()
		}
		typ = v.Type()
	default:
		init, err := in.value(s.Value)
		if err != nil {
			return normal, err
		}
		if v, err = initialize(s, typ, init); err != nil {
			return normal, err
		}
	}

	define := in.arena.Define
	if s.Type == "" {
		define = in.arena.DefineInferred
	}
	if err := define(in.scope, s.Name, typ, v); err != nil {
		return normal, diag.At(err, line)
	}
	return normal, nil
}

// initialize converts init to the declared type of s.
func initialize(s *syntax.VarDecl, typ types.Type, init Value) (Value, error) {
	switch typ := typ.(type) {
	case *types.Basic:
		if cv, ok := assignTo(init, typ); ok {
			return cv, nil
		}
	case *types.Array:
		if str, ok := init.(String); ok && typ.Elem().Kind() == types.Char && typ.Rank() == 1 {
			if int64(len(str)) > typ.Len() {
				return nil, errorf(s, diag.Bind, "string of length %d does not fit in %s", len(str), typ)
			}
			a := NewArray(typ)
			for i := 0; i < len(str); i++ {
				a.Elems[i] = Char(str[i])
			}
			return a, nil
		}
		if a, ok := init.(*Array); ok && types.Identical(a.typ, typ) {
			return a.copy(), nil
		}
	}
	return nil, errorf(s, diag.Bind, "cannot use %s value as %s in declaration of %s", typeName(init), typ, s.Name)
}

// VisitFuncDecl binds a function in the global frame. A prototype may be
// completed by a later definition with the same signature; the binding
// is shared, so calls resolved before the definition see it too.
func (in *Interpreter) VisitFuncDecl(s *syntax.FuncDecl) (Completion, error) {
	line := s.Pos().Line()
	if in.arena.InFunction(in.scope) {
		return normal, diag.Errorf(diag.Redefinition, line, "function %s declared inside another function", s.Name)
	}
	sig, err := types.OfFuncDecl(s)
	if err != nil {
		return normal, diag.Errorf(diag.Type, line, "%v", err)
	}

	if b := in.arena.Lookup(env.Global, s.Name); b != nil {
		if prev, ok := b.Storage.(Func); ok {
			return normal, in.redeclare(prev.fn, s, sig)
		}
	}

	fn := &function{name: s.Name, sig: sig, decl: s}
	if err := in.arena.Define(env.Global, s.Name, sig, Func{fn}); err != nil {
		return normal, diag.At(err, line)
	}
	return normal, nil
}

func (in *Interpreter) redeclare(fn *function, s *syntax.FuncDecl, sig *types.Func) error {
	line := s.Pos().Line()
	if !types.Identical(fn.sig, sig) {
		if !in.cfg.AllowRedefine {
			return diag.Errorf(diag.Redefinition, line, "conflicting types for %s: %s and %s", s.Name, fn.sig, sig)
		}
		*fn = function{name: s.Name, sig: sig, decl: s}
		return in.arena.Define(env.Global, s.Name, sig, Func{fn})
	}
	if s.IsPrototype() {
		return nil
	}
	if fn.defined() && !in.cfg.AllowRedefine {
		return diag.Errorf(diag.Redefinition, line, "%s redefined", s.Name)
	}
	fn.decl = s
	fn.builtin = nil
	return nil
}

func (in *Interpreter) VisitExprStmt(s *syntax.ExprStmt) (Completion, error) {
	_, err := in.eval(s.X)
	return normal, err
}

// VisitBlockStmt runs the statements of s in a new frame, stopping at
// the first one that does not complete normally.
func (in *Interpreter) VisitBlockStmt(s *syntax.BlockStmt) (Completion, error) {
	leave := in.enter(in.arena.Wrap(in.scope))
	defer leave()
	return in.execList(s.Stmts)
}

func (in *Interpreter) execList(list []syntax.Stmt) (Completion, error) {
	for _, st := range list {
		c, err := in.exec(st)
		if err != nil || c.Kind != Normal {
			return c, err
		}
	}
	return normal, nil
}

func (in *Interpreter) VisitIfStmt(s *syntax.IfStmt) (Completion, error) {
	ok, err := in.cond(s.Cond)
	if err != nil {
		return normal, err
	}
	if ok {
		return in.exec(s.Then)
	}
	if s.Else != nil {
		return in.exec(s.Else)
	}
	return normal, nil
}

func (in *Interpreter) cond(x syntax.Expr) (bool, error) {
	v, err := in.value(x)
	if err != nil {
		return false, err
	}
	return in.truthy(x, v)
}

// VisitWhileStmt runs each iteration of the body in a fresh loop frame.
// Break ends the loop, continue ends the iteration; both are consumed
// here. Return leaves the loop and propagates. The update of a for loop
// runs after every iteration that did not break.
func (in *Interpreter) VisitWhileStmt(s *syntax.WhileStmt) (Completion, error) {
	for {
		ok, err := in.cond(s.Cond)
		if err != nil || !ok {
			return normal, err
		}

		c, err := in.iterate(s.Body)
		if err != nil {
			return normal, err
		}
		switch c.Kind {
		case Break:
			return normal, nil
		case Return:
			return c, nil
		}

		if s.Update != nil {
			if _, err := in.exec(s.Update); err != nil {
				return normal, err
			}
		}
	}
}

func (in *Interpreter) iterate(body syntax.Stmt) (Completion, error) {
	leave := in.enter(in.arena.WrapWithSignal(in.scope, env.LoopFrame, nil))
	defer leave()
	return in.exec(body)
}

func (in *Interpreter) VisitBreakStmt(s *syntax.BreakStmt) (Completion, error) {
	if _, err := in.arena.Slot(in.scope, env.LoopFrame); err != nil {
		return normal, errorf(s, diag.ControlFlowMisuse, "break is not inside a loop")
	}
	return Completion{Kind: Break}, nil
}

func (in *Interpreter) VisitContinueStmt(s *syntax.ContinueStmt) (Completion, error) {
	if _, err := in.arena.Slot(in.scope, env.LoopFrame); err != nil {
		return normal, errorf(s, diag.ControlFlowMisuse, "continue is not inside a loop")
	}
	return Completion{Kind: Continue}, nil
}

// VisitReturnStmt evaluates the result and converts it to the result
// type of the enclosing function.
func (in *Interpreter) VisitReturnStmt(s *syntax.ReturnStmt) (Completion, error) {
	act, err := in.arena.Slot(in.scope, env.FunctionFrame)
	if err != nil {
		return normal, diag.At(err, s.Pos().Line())
	}
	result := act.fn.sig.Result()

	if s.Result == nil {
		if result.Kind() != types.Void {
			return normal, errorf(s, diag.Bind, "missing return value in %s returning %s", act.fn.name, result)
		}
		return Completion{Kind: Return}, nil
	}
	if result.Kind() == types.Void {
		return normal, errorf(s, diag.Bind, "%s returns no value", act.fn.name)
	}

	v, err := in.value(s.Result)
	if err != nil {
		return normal, err
	}
	cv, ok := assignTo(v, result)
	if !ok {
		return normal, errorf(s, diag.Bind, "cannot return %s from %s returning %s", typeName(v), act.fn.name, result)
	}
	return Completion{Kind: Return, Value: cv}, nil
}

func (in *Interpreter) VisitPrintStmt(s *syntax.PrintStmt) (Completion, error) {
	v, err := in.value(s.X)
	if err != nil {
		return normal, err
	}
	_, err = fmt.Fprintln(in.out, v.String())
	return normal, err
}

func (in *Interpreter) VisitAssertStmt(s *syntax.AssertStmt) (Completion, error) {
	ok, err := in.cond(s.X)
	if err != nil {
		return normal, err
	}
	if !ok {
		return normal, errorf(s, diag.Assertion, "%s", syntax.FormatExpr(s.X))
	}
	return normal, nil
}

// call runs fn with args in a new function frame whose parent is the
// global frame. line is the line of the call, for errors.
func (in *Interpreter) call(fn *function, args []Value, line uint32) (Value, error) {
	params := fn.sig.Params()
	if len(args) != len(params) {
		return nil, diag.Errorf(diag.Arity, line, "wrong number of arguments in call to %s: have %d, want %d",
			fn.name, len(args), len(params))
	}
	if !fn.defined() {
		return nil, diag.Errorf(diag.UndefinedName, line, "function %s is declared but not defined", fn.name)
	}
	if limit := in.cfg.MaxCallDepth; limit > 0 && in.depth >= limit {
		return nil, diag.Errorf(diag.Runtime, line, "stack overflow calling %s (depth %d)", fn.name, in.depth)
	}

	conv := make([]Value, len(args))
	for i, a := range args {
		cv, ok := assignTo(a, params[i])
		if !ok {
			return nil, diag.Errorf(diag.Bind, line, "cannot use %s as %s in argument %d to %s",
				typeName(a), params[i], i+1, fn.name)
		}
		conv[i] = cv
	}

	in.depth++
	defer func() { in.depth-- }()

	if fn.builtin != nil {
		return fn.builtin(in, conv)
	}

	frame := in.arena.WrapWithSignal(env.Global, env.FunctionFrame, &activation{fn: fn})
	leave := in.enter(frame)
	defer leave()

	for i, p := range fn.decl.Params {
		if err := in.arena.Define(frame, p.Name, params[i], conv[i]); err != nil {
			return nil, diag.At(err, p.Pos().Line())
		}
	}

	// The body shares the parameters' frame, so redeclaring a parameter
	// at the top of the body is a redefinition.
	c, err := in.execList(fn.decl.Body.Stmts)
	if err != nil {
		return nil, err
	}
	if c.Kind == Return {
		return c.Value, nil
	}
	return in.fallOff(fn)
}

// fallOff produces the result of a call whose body ended without
// executing a return statement.
func (in *Interpreter) fallOff(fn *function) (Value, error) {
	result := fn.sig.Result()
	if result.Kind() == types.Void {
		return nil, nil
	}
	if in.cfg.MissingReturn == config.ReturnError {
		return nil, diag.Errorf(diag.Bind, fn.decl.Body.Rbrace.Line(), "missing return at end of %s", fn.name)
	}
	return Zero(result), nil
}
