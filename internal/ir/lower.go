package ir

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/env"
	"github.com/you-not-fish/clox/internal/rtabi"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

// Lower translates a parsed program into a Module.
//
// Every top-level function is declared before any statement is lowered,
// so a call may precede the definition it resolves to. Top-level
// statements become the module's init function, which main calls before
// its own body; a program without main gets one that only runs init.
// A nil cfg selects config.Default.
func Lower(file *syntax.File, cfg *config.Config) (*Module, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	l := newLowerer(cfg)
	if err := l.lowerFile(file); err != nil {
		return nil, err
	}
	if cfg.VerifyIR {
		if err := VerifyModule(l.mod); err != nil {
			return nil, fmt.Errorf("lower: %w", err)
		}
	}
	return l.mod, nil
}

// storage is where a name lives: a stack slot of the function being
// lowered, a module global, or a function.
type storage struct {
	addr   *Value
	global *Global
	fn     *Func
}

// target is the payload of loop and function frames.
type target struct {
	brk, cont *Block // loop frames

	fn  *Func
	sig *types.Func // declared signature; main's Func always returns int
}

type none struct{}

type lowerer struct {
	cfg   *config.Config
	mod   *Module
	arena *env.Arena[storage, *target]
	scope env.ScopeID

	fn *Func
	b  *Block // current block; nil once control cannot reach it

	sigs     map[*Func]*types.Func
	bodies   map[*Func]*syntax.FuncDecl
	builtins map[*Func]bool
	declared map[*syntax.FuncDecl]bool
}

func newLowerer(cfg *config.Config) *lowerer {
	l := &lowerer{
		cfg:      cfg,
		mod:      NewModule(),
		arena:    env.NewArena[storage, *target](cfg.AllowRedefine),
		scope:    env.Global,
		sigs:     make(map[*Func]*types.Func),
		bodies:   make(map[*Func]*syntax.FuncDecl),
		builtins: make(map[*Func]bool),
		declared: make(map[*syntax.FuncDecl]bool),
	}
	sig := types.NewFunc([]*types.Basic{types.Typ[types.Int]}, types.Typ[types.Int])
	putchar := NewExtern(rtabi.FnPutchar, sig)
	putchar.Params = []string{"c"}
	l.mod.AddFunc(putchar)
	l.sigs[putchar] = sig
	l.builtins[putchar] = true
	if err := l.arena.Define(env.Global, putchar.Name, sig, storage{fn: putchar}); err != nil {
		panic("ir: " + err.Error())
	}
	return l
}

func (l *lowerer) lowerFile(file *syntax.File) error {
	for _, d := range file.Decls {
		if fd, ok := d.(*syntax.FuncDecl); ok {
			if err := l.declare(fd); err != nil {
				return err
			}
			l.declared[fd] = true
		}
	}

	init := NewFunc(rtabi.InitFunc, types.NewFunc(nil, types.Typ[types.Void]))
	l.fn, l.b = init, init.Entry
	if err := l.execList(file.Decls); err != nil {
		return err
	}
	if l.b != nil {
		l.b.Kind = BlockReturn
	}
	if init.NumBlocks() > 1 || init.NumValues() > 0 {
		l.mod.AddFunc(init)
		l.mod.Init = init
	}

	for _, f := range append([]*Func(nil), l.mod.Funcs...) {
		if s := l.bodies[f]; s != nil {
			if err := l.lowerBody(f, s); err != nil {
				return err
			}
		}
	}
	return l.ensureMain()
}

// declare binds a top-level function. A prototype may be completed by a
// later definition with the same signature.
func (l *lowerer) declare(s *syntax.FuncDecl) error {
	line := s.Pos().Line()
	sig, err := types.OfFuncDecl(s)
	if err != nil {
		return diag.Errorf(diag.Type, line, "%v", err)
	}
	if inner := nestedFunc(s); inner != nil {
		return diag.Errorf(diag.Redefinition, inner.Pos().Line(), "function %s declared inside another function", inner.Name)
	}
	switch s.Name {
	case rtabi.FnPrintf, rtabi.FnAbort, rtabi.FnFflush:
		return diag.Errorf(diag.Redefinition, line, "%s is reserved by the runtime", s.Name)
	case rtabi.Main:
		if len(sig.Params()) > 0 {
			return diag.Errorf(diag.Type, line, "func main must have no parameters")
		}
		if k := sig.Result().Kind(); k != types.Int && k != types.Void {
			return diag.Errorf(diag.Type, line, "func main must return int or void")
		}
	}

	if b := l.arena.Lookup(env.Global, s.Name); b != nil && b.Storage.fn != nil {
		prev := b.Storage.fn
		if !types.Identical(l.sigs[prev], sig) {
			if !l.cfg.AllowRedefine {
				return diag.Errorf(diag.Redefinition, line, "conflicting types for %s: %s and %s", s.Name, l.sigs[prev], sig)
			}
		} else {
			if s.IsPrototype() {
				return nil
			}
			if l.defined(prev) && !l.cfg.AllowRedefine {
				return diag.Errorf(diag.Redefinition, line, "%s redefined", s.Name)
			}
		}
		f := l.newFunc(s, sig)
		b.Storage = storage{fn: f}
		b.Type = sig
		return nil
	}

	f := l.newFunc(s, sig)
	return diag.At(l.arena.Define(env.Global, s.Name, sig, storage{fn: f}), line)
}

// nestedFunc returns the first function declared anywhere in the body
// of s, or nil.
func nestedFunc(s *syntax.FuncDecl) *syntax.FuncDecl {
	var inner *syntax.FuncDecl
	if s.Body == nil {
		return nil
	}
	syntax.Inspect(s.Body, func(n syntax.Node) bool {
		if fd, ok := n.(*syntax.FuncDecl); ok && inner == nil {
			inner = fd
		}
		return inner == nil
	})
	return inner
}

func (l *lowerer) defined(f *Func) bool {
	return !f.Extern || l.builtins[f]
}

func (l *lowerer) newFunc(s *syntax.FuncDecl, sig *types.Func) *Func {
	var f *Func
	if s.IsPrototype() {
		f = NewExtern(s.Name, sig)
	} else {
		fsig := sig
		if s.Name == rtabi.Main {
			fsig = types.NewFunc(nil, types.Typ[types.Int])
		}
		f = NewFunc(s.Name, fsig)
		f.IsMain = s.Name == rtabi.Main
		l.bodies[f] = s
	}
	for _, p := range s.Params {
		f.Params = append(f.Params, p.Name)
	}
	l.sigs[f] = sig
	l.mod.AddFunc(f)
	return f
}

// lowerBody fills in the blocks of f from its declaration. Parameters
// arrive as OpArg values and are spilled to stack slots; the body shares
// the parameters' frame.
func (l *lowerer) lowerBody(f *Func, s *syntax.FuncDecl) error {
	l.fn, l.b = f, f.Entry
	sig := l.sigs[f]
	frame := l.arena.WrapWithSignal(env.Global, env.FunctionFrame, &target{fn: f, sig: sig})
	leave := l.enter(frame)
	defer leave()

	if f.IsMain && l.mod.Init != nil {
		call := f.NewValue(l.b, OpCall, nil)
		call.Aux = l.mod.Init
	}
	for i, p := range s.Params {
		pt := sig.Params()[i]
		arg := f.NewValue(l.b, OpArg, pt)
		arg.AuxInt = int64(i)
		arg.Aux = p.Name
		slot := l.alloca(pt, p.Name)
		f.NewValue(l.b, OpStore, nil, slot, arg)
		if err := l.arena.Define(frame, p.Name, pt, storage{addr: slot}); err != nil {
			return diag.At(err, p.Pos().Line())
		}
	}

	if err := l.execList(s.Body.Stmts); err != nil {
		return err
	}
	if l.b == nil {
		return nil
	}

	result := sig.Result()
	switch {
	case f.IsMain:
		l.ret(l.constInt(types.Typ[types.Int], 0))
	case result.Kind() == types.Void:
		l.ret(nil)
	case l.cfg.MissingReturn == config.ReturnError:
		return diag.Errorf(diag.Bind, s.Body.Rbrace.Line(), "missing return at end of %s", s.Name)
	default:
		l.ret(l.zero(result))
	}
	return nil
}

// ensureMain checks the entry point, synthesizing one when the program
// has only top-level statements.
func (l *lowerer) ensureMain() error {
	if f := l.mod.Func(rtabi.Main); f != nil {
		if f.Extern {
			return diag.Errorf(diag.UndefinedName, 0, "function main is declared but not defined")
		}
		return nil
	}
	f := NewFunc(rtabi.Main, types.NewFunc(nil, types.Typ[types.Int]))
	f.IsMain = true
	l.fn, l.b = f, f.Entry
	if l.mod.Init != nil {
		call := f.NewValue(l.b, OpCall, nil)
		call.Aux = l.mod.Init
	}
	l.ret(l.constInt(types.Typ[types.Int], 0))
	l.mod.AddFunc(f)
	return nil
}

// ----------------------------------------------------------------------------
// Statements

func (l *lowerer) exec(s syntax.Stmt) error {
	_, err := syntax.AcceptStmt[none](s, l)
	return err
}

// execList lowers list in order. Statements after one that leaves the
// block unreachable produce no code.
func (l *lowerer) execList(list []syntax.Stmt) error {
	for _, s := range list {
		if l.b == nil {
			return nil
		}
		if err := l.exec(s); err != nil {
			return err
		}
	}
	return nil
}

// enter makes a new frame current and returns the function that leaves
// it again.
func (l *lowerer) enter(id env.ScopeID) func() {
	saved := l.scope
	l.scope = id
	return func() {
		l.scope = saved
		l.arena.Release(id)
	}
}

// VisitVarDecl allocates the variable and stores its initial value. At
// top level the variable is a module global.
func (l *lowerer) VisitVarDecl(s *syntax.VarDecl) (none, error) {
	line := s.Pos().Line()
	typ, err := types.OfVarDecl(s)
	if err != nil {
		return none{}, diag.Errorf(diag.Type, line, "%v", err)
	}

	var init operand
	if s.Value != nil {
		if init, err = l.rvalue(s.Value); err != nil {
			return none{}, err
		}
		if typ == nil {
			typ = init.typ
		}
	}

	var st storage
	var addr *Value
	if l.scope == env.Global {
		st.global = l.mod.NewGlobal(s.Name, typ)
		addr = l.addrOf(st)
	} else {
		addr = l.alloca(typ, s.Name)
		st.addr = addr
	}

	if s.Value == nil {
		l.zeroFill(addr, typ)
	} else if err := l.initialize(s, addr, typ, init); err != nil {
		return none{}, err
	}
	define := l.arena.Define
	if s.Type == "" {
		define = l.arena.DefineInferred
	}
	return none{}, diag.At(define(l.scope, s.Name, typ, st), line)
}

// initialize stores init, converted to typ, at addr.
func (l *lowerer) initialize(s *syntax.VarDecl, addr *Value, typ types.Type, init operand) error {
	switch typ := typ.(type) {
	case *types.Basic:
		if v, ok := l.convert(init, typ); ok {
			l.store(addr, v)
			return nil
		}
	case *types.Array:
		if init.isConstString() && typ.Elem().Kind() == types.Char && typ.Rank() == 1 {
			str := init.value.Aux.(string)
			if int64(len(str)) > typ.Len() {
				return diag.Errorf(diag.Bind, s.Pos().Line(), "string of length %d does not fit in %s", len(str), typ)
			}
			l.zeroFill(addr, typ)
			for i := 0; i < len(str); i++ {
				p := l.elemPtr(addr, l.constInt(types.Typ[types.Int], int64(i)))
				l.store(p, l.constInt(types.Typ[types.Char], int64(str[i])))
			}
			return nil
		}
		if init.addr != nil && types.Identical(init.typ, typ) {
			move := l.fn.NewValue(l.b, OpMove, nil, addr, init.addr)
			move.AuxInt = types.DefaultSizes.Sizeof(typ)
			return nil
		}
	}
	return diag.Errorf(diag.Bind, s.Pos().Line(), "cannot use %s value as %s in declaration of %s", init.typ, typ, s.Name)
}

// VisitFuncDecl handles a declaration that was not seen among the
// top-level statements: one nested in a block. Declarations inside
// function bodies were rejected when the enclosing function was declared.
func (l *lowerer) VisitFuncDecl(s *syntax.FuncDecl) (none, error) {
	if l.declared[s] {
		return none{}, nil
	}
	l.declared[s] = true
	return none{}, l.declare(s)
}

func (l *lowerer) VisitExprStmt(s *syntax.ExprStmt) (none, error) {
	_, err := l.expr(s.X)
	return none{}, err
}

func (l *lowerer) VisitBlockStmt(s *syntax.BlockStmt) (none, error) {
	leave := l.enter(l.arena.Wrap(l.scope))
	defer leave()
	return none{}, l.execList(s.Stmts)
}

func (l *lowerer) VisitIfStmt(s *syntax.IfStmt) (none, error) {
	c, err := l.cond(s.Cond)
	if err != nil {
		return none{}, err
	}
	then := l.newBlock("if.then")
	done := l.newBlock("if.done")
	els := done
	if s.Else != nil {
		els = l.newBlock("if.else")
	}
	l.branch(c, then, els)

	l.b = then
	if err := l.exec(s.Then); err != nil {
		return none{}, err
	}
	l.jump(done)

	if s.Else != nil {
		l.b = els
		if err := l.exec(s.Else); err != nil {
			return none{}, err
		}
		l.jump(done)
	}
	l.resume(done)
	return none{}, nil
}

// VisitWhileStmt lowers a loop to a header that tests the condition, the
// body, a continue block that runs the update, and the exit. Break jumps
// to the exit, continue to the continue block.
func (l *lowerer) VisitWhileStmt(s *syntax.WhileStmt) (none, error) {
	header := l.newBlock("loop.header")
	body := l.newBlock("loop.body")
	cont := l.newBlock("loop.cont")
	exit := l.newBlock("loop.exit")

	l.jump(header)
	l.b = header
	c, err := l.cond(s.Cond)
	if err != nil {
		return none{}, err
	}
	l.branch(c, body, exit)

	l.b = body
	if err := l.loopBody(s.Body, &target{brk: exit, cont: cont}); err != nil {
		return none{}, err
	}
	l.jump(cont)

	if cont.NumPreds() > 0 {
		l.b = cont
		if s.Update != nil {
			if err := l.exec(s.Update); err != nil {
				return none{}, err
			}
		}
		l.jump(header)
	} else {
		l.fn.RemoveBlock(cont)
	}
	l.resume(exit)
	return none{}, nil
}

func (l *lowerer) loopBody(body syntax.Stmt, t *target) error {
	leave := l.enter(l.arena.WrapWithSignal(l.scope, env.LoopFrame, t))
	defer leave()
	return l.exec(body)
}

func (l *lowerer) VisitBreakStmt(s *syntax.BreakStmt) (none, error) {
	t, err := l.arena.Slot(l.scope, env.LoopFrame)
	if err != nil {
		return none{}, diag.Errorf(diag.ControlFlowMisuse, s.Pos().Line(), "break is not inside a loop")
	}
	l.jump(t.brk)
	l.b = nil
	return none{}, nil
}

func (l *lowerer) VisitContinueStmt(s *syntax.ContinueStmt) (none, error) {
	t, err := l.arena.Slot(l.scope, env.LoopFrame)
	if err != nil {
		return none{}, diag.Errorf(diag.ControlFlowMisuse, s.Pos().Line(), "continue is not inside a loop")
	}
	l.jump(t.cont)
	l.b = nil
	return none{}, nil
}

func (l *lowerer) VisitReturnStmt(s *syntax.ReturnStmt) (none, error) {
	line := s.Pos().Line()
	t, err := l.arena.Slot(l.scope, env.FunctionFrame)
	if err != nil {
		return none{}, diag.At(err, line)
	}
	name := t.fn.Name
	result := t.sig.Result()

	if s.Result == nil {
		if result.Kind() != types.Void {
			return none{}, diag.Errorf(diag.Bind, line, "missing return value in %s returning %s", name, result)
		}
		if t.fn.IsMain {
			l.ret(l.constInt(types.Typ[types.Int], 0))
		} else {
			l.ret(nil)
		}
		return none{}, nil
	}
	if result.Kind() == types.Void {
		return none{}, diag.Errorf(diag.Bind, line, "%s returns no value", name)
	}

	x, err := l.rvalue(s.Result)
	if err != nil {
		return none{}, err
	}
	v, ok := l.convert(x, result)
	if !ok {
		return none{}, diag.Errorf(diag.Bind, line, "cannot return %s from %s returning %s", x.typ, name, result)
	}
	l.ret(v)
	return none{}, nil
}

// VisitPrintStmt emits OpPrint of a scalar value, or of the address of
// an array.
func (l *lowerer) VisitPrintStmt(s *syntax.PrintStmt) (none, error) {
	x, err := l.rvalue(s.X)
	if err != nil {
		return none{}, err
	}
	arg := x.value
	if arg == nil {
		arg = x.addr
	}
	p := l.fn.NewValue(l.b, OpPrint, nil, arg)
	p.Line = s.Pos().Line()
	return none{}, nil
}

func (l *lowerer) VisitAssertStmt(s *syntax.AssertStmt) (none, error) {
	c, err := l.cond(s.X)
	if err != nil {
		return none{}, err
	}
	l.check(c, s.Pos().Line(), fmt.Sprintf("%s: %s", diag.Assertion, syntax.FormatExpr(s.X)))
	return none{}, nil
}

// ----------------------------------------------------------------------------
// Block construction

func (l *lowerer) newBlock(comment string) *Block {
	b := l.fn.NewBlock(BlockPlain)
	b.Comment = comment
	return b
}

// jump ends the current block with a jump to to, if the current block is
// reachable.
func (l *lowerer) jump(to *Block) {
	if l.b != nil {
		l.b.AddSucc(to)
		l.b = nil
	}
}

func (l *lowerer) branch(c *Value, then, els *Block) {
	l.b.Kind = BlockIf
	l.b.SetControl(c)
	l.b.AddSucc(then)
	l.b.AddSucc(els)
	l.b = nil
}

func (l *lowerer) ret(v *Value) {
	l.b.Kind = BlockReturn
	if v != nil {
		l.b.SetControl(v)
	}
	l.b = nil
}

// resume continues lowering in b, or drops b when nothing jumps to it.
func (l *lowerer) resume(b *Block) {
	if b.NumPreds() == 0 {
		l.fn.RemoveBlock(b)
		l.b = nil
		return
	}
	l.b = b
}

// alloca creates a stack slot for a value of type typ in the entry block.
func (l *lowerer) alloca(typ types.Type, name string) *Value {
	v := l.fn.NewValue(l.fn.Entry, OpAlloca, types.NewPointer(typ))
	v.Aux = name
	return v
}

// addrOf returns the address of a variable's storage.
func (l *lowerer) addrOf(st storage) *Value {
	if st.global != nil {
		v := l.fn.NewValue(l.b, OpGlobal, types.NewPointer(st.global.Type))
		v.Aux = st.global
		return v
	}
	return st.addr
}

func (l *lowerer) store(addr, v *Value) {
	l.fn.NewValue(l.b, OpStore, nil, addr, v)
}

func (l *lowerer) load(addr *Value) *Value {
	return l.fn.NewValue(l.b, OpLoad, addr.Elem(), addr)
}

// zeroFill sets a freshly allocated variable to the zero value of typ.
func (l *lowerer) zeroFill(addr *Value, typ types.Type) {
	if t, ok := typ.(*types.Basic); ok {
		l.store(addr, l.zero(t))
		return
	}
	z := l.fn.NewValue(l.b, OpZero, nil, addr)
	z.AuxInt = types.DefaultSizes.Sizeof(typ)
}

// check stops the program with msg, reported at line, unless ok holds.
func (l *lowerer) check(ok *Value, line uint32, msg string) {
	a := l.fn.NewValue(l.b, OpAssert, nil, ok)
	a.AuxInt = int64(line)
	a.Aux = msg
	a.Line = line
}

// ----------------------------------------------------------------------------
// Constants

func (l *lowerer) constInt(t *types.Basic, n int64) *Value {
	v := l.fn.NewValue(l.b, OpConstInt, t)
	v.AuxInt = n
	return v
}

func (l *lowerer) constBool(b bool) *Value {
	v := l.fn.NewValue(l.b, OpConstBool, types.Typ[types.Bool])
	if b {
		v.AuxInt = 1
	}
	return v
}

func (l *lowerer) constDouble(x float64) *Value {
	v := l.fn.NewValue(l.b, OpConstDouble, types.Typ[types.Double])
	v.AuxFloat = x
	return v
}

func (l *lowerer) constString(s string) *Value {
	v := l.fn.NewValue(l.b, OpConstString, types.Typ[types.String])
	v.Aux = s
	return v
}

// zero returns the zero value of t.
func (l *lowerer) zero(t *types.Basic) *Value {
	switch t.Kind() {
	case types.Double:
		return l.constDouble(0)
	case types.Bool:
		return l.constBool(false)
	case types.String:
		return l.constString("")
	}
	return l.constInt(t, 0)
}
