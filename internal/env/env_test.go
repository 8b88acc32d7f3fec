package env

import (
	"errors"
	"strings"
	"testing"

	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/types"
)

var (
	tInt    = types.Typ[types.Int]
	tString = types.Typ[types.String]
)

func newArena() *Arena[int, string] {
	return NewArena[int, string](false)
}

func TestDefineAndGet(t *testing.T) {
	a := newArena()
	if err := a.Define(Global, "x", tInt, 1); err != nil {
		t.Fatal(err)
	}
	b, err := a.Get(Global, "x")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "x" || b.Storage != 1 || b.Type != tInt {
		t.Errorf("binding = %+v", b)
	}

	_, err = a.Get(Global, "y")
	if !errors.Is(err, diag.UndefinedName) {
		t.Errorf("Get(y) error = %v, want undefined name", err)
	}
}

func TestRedefinition(t *testing.T) {
	a := newArena()
	a.Define(Global, "x", tInt, 1)
	err := a.Define(Global, "x", tInt, 2)
	if !errors.Is(err, diag.Redefinition) {
		t.Fatalf("redefine error = %v, want redefinition", err)
	}

	allow := NewArena[int, string](true)
	allow.Define(Global, "x", tInt, 1)
	if err := allow.Define(Global, "x", tString, 2); err != nil {
		t.Fatalf("redefine with AllowRedefine: %v", err)
	}
	if b, _ := allow.Get(Global, "x"); b.Storage != 2 || b.Type != tString {
		t.Errorf("overwritten binding = %+v", b)
	}
}

// TestShadowing mirrors
//
//	{ var x = 1; { var x = 2; assert x == 2; } assert x == 1; }
func TestShadowing(t *testing.T) {
	a := newArena()
	outer := a.Wrap(Global)
	a.Define(outer, "x", tInt, 1)

	inner := a.Wrap(outer)
	if err := a.Define(inner, "x", tInt, 2); err != nil {
		t.Fatalf("shadowing define: %v", err)
	}
	if b, _ := a.Get(inner, "x"); b.Storage != 2 {
		t.Errorf("inner x = %d, want 2", b.Storage)
	}
	a.Release(inner)

	if b, _ := a.Get(outer, "x"); b.Storage != 1 {
		t.Errorf("outer x = %d, want 1", b.Storage)
	}
}

func TestSetInnermost(t *testing.T) {
	a := newArena()
	a.Define(Global, "x", tInt, 1)
	blk := a.Wrap(Global)
	if err := a.Set(blk, "x", tInt, 5); err != nil {
		t.Fatal(err)
	}
	if b, _ := a.Get(Global, "x"); b.Storage != 5 {
		t.Errorf("global x = %d, want 5", b.Storage)
	}
	if a.Lookup(blk, "x") != nil {
		t.Error("Set defined x in the inner frame")
	}

	if err := a.Set(blk, "nope", tInt, 1); !errors.Is(err, diag.UndefinedName) {
		t.Errorf("Set(nope) error = %v", err)
	}
	if err := a.Set(blk, "x", tString, 1); !errors.Is(err, diag.Bind) {
		t.Errorf("Set with other type error = %v, want bind error", err)
	}
}

func TestLookupParent(t *testing.T) {
	a := newArena()
	a.Define(Global, "g", tInt, 0)
	s1 := a.Wrap(Global)
	s2 := a.Wrap(s1)
	b, where := a.LookupParent(s2, "g")
	if b == nil || where != Global {
		t.Errorf("LookupParent(g) = %v in %d, want global", b, where)
	}
	if b, where := a.LookupParent(s2, "missing"); b != nil || where != NoScope {
		t.Errorf("LookupParent(missing) = %v, %d", b, where)
	}
}

func TestSlots(t *testing.T) {
	a := newArena()
	fn := a.WrapWithSignal(Global, FunctionFrame, "f")
	loop := a.WrapWithSignal(fn, LoopFrame, "loop1")
	blk := a.Wrap(a.Wrap(loop))

	if x, err := a.Slot(blk, LoopFrame); err != nil || x != "loop1" {
		t.Errorf("Slot(loop) = %q, %v", x, err)
	}
	if x, err := a.Slot(blk, FunctionFrame); err != nil || x != "f" {
		t.Errorf("Slot(function) = %q, %v", x, err)
	}

	// A loop outside the function is not visible through the call.
	outerLoop := a.WrapWithSignal(Global, LoopFrame, "outer")
	call := a.WrapWithSignal(outerLoop, FunctionFrame, "g")
	body := a.Wrap(call)
	if _, err := a.Slot(body, LoopFrame); !errors.Is(err, diag.ControlFlowMisuse) {
		t.Errorf("break across call error = %v", err)
	}

	_, err := a.Slot(Global, FunctionFrame)
	if !errors.Is(err, diag.ControlFlowMisuse) || !strings.Contains(err.Error(), "return outside function") {
		t.Errorf("return at top level error = %v", err)
	}
	_, err = a.Slot(a.Wrap(Global), LoopFrame)
	if !errors.Is(err, diag.ControlFlowMisuse) || !strings.Contains(err.Error(), "not inside a loop") {
		t.Errorf("break at top level error = %v", err)
	}
}

func TestInFunction(t *testing.T) {
	a := newArena()
	if a.InFunction(a.Wrap(Global)) {
		t.Error("top-level block reported as inside a function")
	}
	fn := a.WrapWithSignal(Global, FunctionFrame, "")
	if !a.InFunction(a.Wrap(a.WrapWithSignal(fn, LoopFrame, ""))) {
		t.Error("block in loop in function not reported as inside a function")
	}
}

func TestReleaseReusesIDs(t *testing.T) {
	a := newArena()
	s := a.Wrap(Global)
	a.Define(s, "tmp", tInt, 1)
	if a.Live() != 2 {
		t.Errorf("Live = %d, want 2", a.Live())
	}
	a.Release(s)
	if a.Live() != 1 {
		t.Errorf("Live after release = %d, want 1", a.Live())
	}

	s2 := a.Wrap(Global)
	if s2 != s {
		t.Errorf("released ID %d not reused, got %d", s, s2)
	}
	if a.Lookup(s2, "tmp") != nil {
		t.Error("reused frame kept old bindings")
	}

	a.Release(Global)
	if a.Live() != 2 {
		t.Error("global frame was released")
	}
}

func TestDeadScopePanics(t *testing.T) {
	a := newArena()
	s := a.Wrap(Global)
	a.Release(s)
	defer func() {
		if recover() == nil {
			t.Error("use of released scope did not panic")
		}
	}()
	a.Define(s, "x", tInt, 1)
}

func TestNamesInDeclarationOrder(t *testing.T) {
	a := newArena()
	for i, name := range []string{"zeta", "alpha", "mid"} {
		a.Define(Global, name, tInt, i)
	}
	got := strings.Join(a.Names(Global), ",")
	if got != "zeta,alpha,mid" {
		t.Errorf("Names = %s, want declaration order", got)
	}

	blk := a.Wrap(Global)
	a.Define(blk, "b", tInt, 0)
	want := "block scope 1 { b }\nglobal scope 0 { zeta, alpha, mid }\n"
	if s := a.String(blk); s != want {
		t.Errorf("String =\n%s\nwant\n%s", s, want)
	}
}

func TestDefineInferred(t *testing.T) {
	a := newArena()
	if err := a.DefineInferred(Global, "x", tInt, 1); err != nil {
		t.Fatal(err)
	}
	if err := a.Define(Global, "y", tInt, 2); err != nil {
		t.Fatal(err)
	}
	if b := a.Lookup(Global, "x"); b == nil || !b.Inferred {
		t.Errorf("x = %+v, want an inferred binding", b)
	}
	if b := a.Lookup(Global, "y"); b == nil || b.Inferred {
		t.Errorf("y = %+v, want a declared binding", b)
	}
	if err := a.DefineInferred(Global, "x", tInt, 3); !errors.Is(err, diag.Redefinition) {
		t.Errorf("second DefineInferred error = %v, want redefinition", err)
	}
}
