// Package interp implements the tree-walking evaluator for clox.
//
// An Interpreter executes a parsed program statement by statement. Names
// live in an env.Arena whose frames are created on entry to blocks, loop
// iterations and calls and released on exit. Statements report how they
// completed (normally, or by return, break or continue) as a Completion
// on the same return path as errors, so loops and calls consume their
// signals without any unwinding machinery.
package interp

import (
	"fmt"
	"io"

	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/env"
	"github.com/you-not-fish/clox/internal/syntax"
	"github.com/you-not-fish/clox/internal/types"
)

// CompletionKind tells how a statement finished.
type CompletionKind uint8

const (
	Normal CompletionKind = iota
	Return
	Break
	Continue
)

var completionNames = [...]string{
	Normal:   "normal",
	Return:   "return",
	Break:    "break",
	Continue: "continue",
}

func (k CompletionKind) String() string {
	if int(k) < len(completionNames) {
		return completionNames[k]
	}
	return fmt.Sprintf("CompletionKind(%d)", k)
}

// Completion is the outcome of executing a statement. Value is set only
// for a Return of a non-void value.
type Completion struct {
	Kind  CompletionKind
	Value Value
}

var normal = Completion{}

// function is a callable: a declaration, possibly only a prototype so
// far, or a builtin.
type function struct {
	name    string
	sig     *types.Func
	decl    *syntax.FuncDecl // nil for builtins
	builtin func(in *Interpreter, args []Value) (Value, error)
}

func (fn *function) defined() bool {
	return fn.builtin != nil || (fn.decl != nil && fn.decl.Body != nil)
}

// activation is the payload of a function frame's signal slot.
type activation struct {
	fn *function
}

// Interpreter evaluates clox programs. Its global frame persists across
// calls to Exec, so a REPL can feed it one input at a time.
type Interpreter struct {
	cfg   *config.Config
	out   io.Writer
	arena *env.Arena[Value, *activation]
	scope env.ScopeID
	depth int
}

// New returns an interpreter that writes program output to out. The
// builtins are bound in its global frame.
func New(cfg *config.Config, out io.Writer) *Interpreter {
	if cfg == nil {
		cfg = config.Default()
	}
	in := &Interpreter{
		cfg:   cfg,
		out:   out,
		arena: env.NewArena[Value, *activation](cfg.AllowRedefine),
		scope: env.Global,
	}
	for _, fn := range builtins() {
		in.arena.Define(env.Global, fn.name, fn.sig, Func{fn})
	}
	return in
}

// Run executes the top-level declarations of f in order and then, if f
// defines main, calls it. It returns main's result, or nil when there is
// no main or main is void.
func (in *Interpreter) Run(f *syntax.File) (Value, error) {
	if err := in.Exec(f); err != nil {
		return nil, err
	}
	b := in.arena.Lookup(env.Global, "main")
	if b == nil {
		return nil, nil
	}
	fn, ok := b.Storage.(Func)
	if !ok {
		return nil, nil
	}
	return in.call(fn.fn, nil, 0)
}

// Exec executes the top-level declarations of f in the global frame.
// On error the interpreter is left usable: definitions made before the
// failing statement remain.
func (in *Interpreter) Exec(f *syntax.File) error {
	for _, d := range f.Decls {
		c, err := in.exec(d)
		if err != nil {
			in.reset()
			return err
		}
		if c.Kind != Normal {
			panic("interp: " + c.Kind.String() + " escaped the global frame")
		}
	}
	in.checkFrames()
	return nil
}

// Eval evaluates a single expression in the global frame.
func (in *Interpreter) Eval(x syntax.Expr) (Value, error) {
	v, err := in.eval(x)
	if err != nil {
		in.reset()
	}
	return v, err
}

// Call calls the global function name with args.
func (in *Interpreter) Call(name string, args ...Value) (Value, error) {
	b := in.arena.Lookup(env.Global, name)
	if b == nil {
		return nil, diag.Errorf(diag.UndefinedName, 0, "undefined: %s", name)
	}
	fn, ok := b.Storage.(Func)
	if !ok {
		return nil, diag.Errorf(diag.Type, 0, "%s is not a function", name)
	}
	v, err := in.call(fn.fn, args, 0)
	if err != nil {
		in.reset()
	}
	return v, err
}

// Globals returns the names bound in the global frame, builtins first,
// then in declaration order.
func (in *Interpreter) Globals() []string {
	return in.arena.Names(env.Global)
}

// Lookup returns the value of the global name.
func (in *Interpreter) Lookup(name string) (Value, bool) {
	b := in.arena.Lookup(env.Global, name)
	if b == nil {
		return nil, false
	}
	return b.Storage, true
}

// reset returns to the global frame after an error cut execution short.
// Frames entered by the failed statement have already been released on
// the way out.
func (in *Interpreter) reset() {
	in.scope = env.Global
	in.depth = 0
	in.checkFrames()
}

// checkFrames panics unless the global frame is the only one in use, as
// it must be between top-level statements.
func (in *Interpreter) checkFrames() {
	if n := in.arena.Live(); n != 1 {
		panic(fmt.Sprintf("interp: %d frames live at top level", n))
	}
}

func (in *Interpreter) exec(s syntax.Stmt) (Completion, error) {
	return syntax.AcceptStmt[Completion](s, in)
}

func (in *Interpreter) eval(x syntax.Expr) (Value, error) {
	return syntax.AcceptExpr[Value](x, in)
}

// value evaluates x and rejects the absent result of a void call.
func (in *Interpreter) value(x syntax.Expr) (Value, error) {
	v, err := in.eval(x)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errorf(x, diag.Type, "void value used as value")
	}
	return v, nil
}

// enter makes a new frame current and returns the function that leaves
// it again.
func (in *Interpreter) enter(id env.ScopeID) func() {
	saved := in.scope
	in.scope = id
	return func() {
		in.scope = saved
		in.arena.Release(id)
	}
}

// truthy converts v to a boolean for conditions and !.
func (in *Interpreter) truthy(n syntax.Node, v Value) (bool, error) {
	switch v := v.(type) {
	case Bool:
		return bool(v), nil
	case Int:
		return v != 0, nil
	case Char:
		return v != 0, nil
	case Double:
		return in.cfg.DoubleTruthy(float64(v)), nil
	case String:
		return v != "", nil
	}
	return false, errorf(n, diag.Type, "cannot use %s as a condition", typeName(v))
}

func errorf(n syntax.Node, kind diag.Kind, format string, args ...interface{}) error {
	return diag.Errorf(kind, n.Pos().Line(), format, args...)
}
