package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/syntax"
)

// lowerSource parses and lowers src, failing the test on any error. Every
// defined function is checked with VerifyDom.
func lowerSource(t *testing.T, src string, cfg *config.Config) *Module {
	t.Helper()
	file, err := syntax.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, err := Lower(file, cfg)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	for _, f := range m.Funcs {
		if f.Extern {
			continue
		}
		if err := VerifyDom(f); err != nil {
			t.Fatalf("VerifyDom(%s) failed:\n%v\nIR:\n%s", f.Name, err, Sprint(f))
		}
	}
	return m
}

func lowerError(t *testing.T, src string, cfg *config.Config) error {
	t.Helper()
	file, err := syntax.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = Lower(file, cfg)
	if err == nil {
		t.Fatalf("Lower(%q) succeeded, want an error", src)
	}
	return err
}

func getFunc(t *testing.T, m *Module, name string) *Func {
	t.Helper()
	f := m.Func(name)
	if f == nil {
		t.Fatalf("function %q not found", name)
	}
	return f
}

func countOps(f *Func, op Op) int {
	n := 0
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op == op {
				n++
			}
		}
	}
	return n
}

func findOps(f *Func, op Op) []*Value {
	var vs []*Value
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op == op {
				vs = append(vs, v)
			}
		}
	}
	return vs
}

func hasBlock(f *Func, comment string) bool {
	for _, b := range f.Blocks {
		if b.Comment == comment {
			return true
		}
	}
	return false
}

func TestLowerFunction(t *testing.T) {
	m := lowerSource(t, "int add(int a, int b) { return a + b; }", nil)
	got := Sprint(getFunc(t, m, "add"))
	want := `func add(a int, b int) int:
  b0: (entry)
    v0 = Arg <int> {a}
    v1 = Alloca <*int> {a}
    Store v1 v0
    v3 = Arg <int> [1] {b}
    v4 = Alloca <*int> {b}
    Store v4 v3
    v6 = Load <int> v1
    v7 = Load <int> v4
    v8 = AddInt <int> v6 v7
    Return v8
`
	if got != want {
		t.Errorf("IR mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestLowerNoMain(t *testing.T) {
	m := lowerSource(t, "print 1 + 2;", nil)
	if m.Init == nil {
		t.Fatal("top-level statements produced no init function")
	}
	if countOps(m.Init, OpPrint) != 1 {
		t.Errorf("init has %d prints, want 1", countOps(m.Init, OpPrint))
	}

	main := getFunc(t, m, "main")
	if !main.IsMain {
		t.Error("synthesized main is not marked IsMain")
	}
	calls := findOps(main, OpCall)
	if len(calls) != 1 || calls[0].Aux != m.Init {
		t.Errorf("main calls %v, want one call of init", calls)
	}
	if ret := main.Entry.Controls; len(ret) != 1 || ret[0].Op != OpConstInt || ret[0].AuxInt != 0 {
		t.Errorf("main does not return 0:\n%s", Sprint(main))
	}
}

func TestLowerEmpty(t *testing.T) {
	m := lowerSource(t, "", nil)
	if m.Init != nil {
		t.Errorf("empty program has an init function:\n%s", Sprint(m.Init))
	}
	main := getFunc(t, m, "main")
	if countOps(main, OpCall) != 0 {
		t.Errorf("main calls something:\n%s", Sprint(main))
	}
}

func TestLowerGlobals(t *testing.T) {
	src := `int n = 3;
int twice() { return n * 2; }
int main() { print twice(); return 0; }
`
	m := lowerSource(t, src, nil)
	if len(m.Globals) != 1 || m.Globals[0].Name != "n" {
		t.Fatalf("globals = %v, want [n]", m.Globals)
	}
	if countOps(getFunc(t, m, "twice"), OpGlobal) != 1 {
		t.Error("twice does not address the global")
	}

	main := getFunc(t, m, "main")
	first := main.Entry.Values[0]
	if first.Op != OpCall || first.Aux != m.Init {
		t.Errorf("main does not start by calling init:\n%s", Sprint(main))
	}
}

func TestLowerIfElse(t *testing.T) {
	m := lowerSource(t, "int abs(int x) { if (x < 0) return -x; else return x; }", nil)
	f := getFunc(t, m, "abs")
	if f.NumBlocks() != 3 {
		t.Errorf("NumBlocks = %d, want 3:\n%s", f.NumBlocks(), Sprint(f))
	}
	if !hasBlock(f, "if.then") || !hasBlock(f, "if.else") {
		t.Errorf("missing branch blocks:\n%s", Sprint(f))
	}
	if hasBlock(f, "if.done") {
		t.Errorf("unreachable join block kept:\n%s", Sprint(f))
	}
	if f.Entry.Kind != BlockIf {
		t.Errorf("entry Kind = %v, want if", f.Entry.Kind)
	}
}

func TestLowerLoop(t *testing.T) {
	src := `int sum(int n) {
	int s = 0;
	for (int i = 0; i < n; i++) {
		if (i == 3) continue;
		s += i;
	}
	return s;
}`
	m := lowerSource(t, src, nil)
	f := getFunc(t, m, "sum")
	for _, c := range []string{"loop.header", "loop.body", "loop.cont", "loop.exit"} {
		if !hasBlock(f, c) {
			t.Errorf("missing %s block:\n%s", c, Sprint(f))
		}
	}
	// s, n and i
	if n := countOps(f, OpAlloca); n != 3 {
		t.Errorf("%d allocas, want 3", n)
	}
	for _, v := range findOps(f, OpAlloca) {
		if v.Block != f.Entry {
			t.Errorf("%s allocated outside the entry block", v.LongString())
		}
	}
}

func TestLowerBreak(t *testing.T) {
	m := lowerSource(t, "void f() { while (true) { print 1; break; } print 2; }", nil)
	f := getFunc(t, m, "f")
	if hasBlock(f, "loop.cont") {
		t.Errorf("continue block kept for a loop that always breaks:\n%s", Sprint(f))
	}
	if countOps(f, OpPrint) != 2 {
		t.Errorf("%d prints, want 2", countOps(f, OpPrint))
	}
}

func TestLowerUnreachableCode(t *testing.T) {
	m := lowerSource(t, "int f() { return 1; print 2; }", nil)
	if n := countOps(getFunc(t, m, "f"), OpPrint); n != 0 {
		t.Errorf("code after return was lowered (%d prints)", n)
	}
}

func TestLowerDivisionCheck(t *testing.T) {
	src := `int f(int a, int b) { return a / b; }
int g(int a) { return a % 2; }`
	m := lowerSource(t, src, nil)

	asserts := findOps(getFunc(t, m, "f"), OpAssert)
	if len(asserts) != 1 {
		t.Fatalf("f has %d asserts, want 1", len(asserts))
	}
	if msg := asserts[0].Aux.(string); msg != "runtime error: integer division by zero" {
		t.Errorf("assert message = %q", msg)
	}
	if asserts[0].AuxInt != 1 {
		t.Errorf("assert line = %d, want 1", asserts[0].AuxInt)
	}
	if n := countOps(getFunc(t, m, "g"), OpAssert); n != 0 {
		t.Errorf("g has %d asserts for a constant divisor, want 0", n)
	}
}

func TestLowerBoundsCheck(t *testing.T) {
	src := `int a[3][4];
int f(int i) { return a[i][1]; }
int g() { return a[2][3]; }`
	m := lowerSource(t, src, nil)

	if countOps(m.Init, OpZero) != 1 {
		t.Errorf("global array not zeroed:\n%s", Sprint(m.Init))
	}
	f := getFunc(t, m, "f")
	asserts := findOps(f, OpAssert)
	if len(asserts) != 1 {
		t.Fatalf("f has %d asserts, want 1:\n%s", len(asserts), Sprint(f))
	}
	if msg := asserts[0].Aux.(string); msg != "runtime error: index out of range [0:3]" {
		t.Errorf("assert message = %q", msg)
	}
	if countOps(f, OpMulInt) != 1 || countOps(f, OpElemPtr) != 1 {
		t.Errorf("row-major offset not computed:\n%s", Sprint(f))
	}
	if n := countOps(getFunc(t, m, "g"), OpAssert); n != 0 {
		t.Errorf("g has %d asserts for constant indices in range, want 0", n)
	}
}

func TestLowerCharArrayFromString(t *testing.T) {
	m := lowerSource(t, `void f() { char s[8] = "hi"; print s; }`, nil)
	f := getFunc(t, m, "f")
	zeros := findOps(f, OpZero)
	if len(zeros) != 1 || zeros[0].AuxInt != 8 {
		t.Errorf("zero ops = %v, want one of 8 bytes", zeros)
	}
	if n := countOps(f, OpStore); n != 2 {
		t.Errorf("%d stores, want 2", n)
	}
	prints := findOps(f, OpPrint)
	if len(prints) != 1 || prints[0].Args[0].Op != OpAlloca {
		t.Errorf("array not printed through its address:\n%s", Sprint(f))
	}
}

func TestLowerArrayCopy(t *testing.T) {
	m := lowerSource(t, "void f() { int a[4]; var b = a; print b; }", nil)
	moves := findOps(getFunc(t, m, "f"), OpMove)
	if len(moves) != 1 || moves[0].AuxInt != 16 {
		t.Errorf("moves = %v, want one of 16 bytes", moves)
	}
}

func TestLowerStringConcat(t *testing.T) {
	m := lowerSource(t, `print "ab" + "cd";`, nil)
	p := findOps(m.Init, OpPrint)[0]
	if arg := p.Args[0]; arg.Op != OpConstString || arg.Aux != "abcd" {
		t.Errorf("print arg = %s, want the folded constant", arg.LongString())
	}

	err := lowerError(t, `string s = "a"; print s + "b";`, nil)
	if !errors.Is(err, diag.Type) {
		t.Errorf("err = %v, want a type error", err)
	}
}

func TestLowerCharArithmetic(t *testing.T) {
	m := lowerSource(t, "char c = 'a'; print c + c; print c < 'z';", nil)
	if n := countOps(m.Init, OpExtend); n != 4 {
		t.Errorf("%d extends, want 4", n)
	}
	if n := countOps(m.Init, OpTrunc); n != 1 {
		t.Errorf("%d truncs, want 1", n)
	}
}

func TestLowerConversions(t *testing.T) {
	src := `double half(int x) { return x / 2.0; }
int whole(double d) { return d; }`
	m := lowerSource(t, src, nil)
	if countOps(getFunc(t, m, "half"), OpIntToDouble) != 1 {
		t.Error("int operand not converted to double")
	}
	if countOps(getFunc(t, m, "whole"), OpDoubleToInt) != 1 {
		t.Error("double result not converted to int")
	}
}

func TestLowerTruthiness(t *testing.T) {
	src := "double d = 0.5; if (d) print 1;"
	m := lowerSource(t, src, nil)
	if countOps(m.Init, OpOrBool) != 1 {
		t.Errorf("nonzero policy should test |d| >= eps with OrBool:\n%s", Sprint(m.Init))
	}

	cfg := config.Default()
	cfg.Truthiness = config.TruthLegacyInverted
	m = lowerSource(t, src, cfg)
	if countOps(m.Init, OpAndBool) != 1 {
		t.Errorf("legacy policy should test |d| < eps with AndBool:\n%s", Sprint(m.Init))
	}
}

func TestLowerStringCondition(t *testing.T) {
	m := lowerSource(t, `string s = "x"; while (s) { s = ""; }`, nil)
	if countOps(m.Init, OpStringPtr) != 1 {
		t.Errorf("string condition does not test the first byte:\n%s", Sprint(m.Init))
	}
}

func TestLowerVoidMain(t *testing.T) {
	m := lowerSource(t, "void main() { print 1; return; }", nil)
	main := getFunc(t, m, "main")
	if main.Result().String() != "int" {
		t.Errorf("main result = %s, want int", main.Result())
	}
	for _, b := range main.Blocks {
		if b.Kind == BlockReturn && (len(b.Controls) != 1 || b.Controls[0].Op != OpConstInt) {
			t.Errorf("void main does not return 0:\n%s", Sprint(main))
		}
	}
}

func TestLowerPrototypes(t *testing.T) {
	src := `int f(int x);
int ext(int x);
int main() { return f(1) + ext(2); }
int f(int x) { return x; }`
	m := lowerSource(t, src, nil)
	f := getFunc(t, m, "f")
	if f.Extern {
		t.Error("completed prototype is still extern")
	}
	if !getFunc(t, m, "ext").Extern {
		t.Error("prototype without definition should be extern")
	}
	for _, c := range findOps(getFunc(t, m, "main"), OpCall) {
		if callee := c.Aux.(*Func); m.Func(callee.Name) != callee {
			t.Errorf("call to stale %s", callee.Name)
		}
	}
	if err := VerifyModule(m); err != nil {
		t.Errorf("VerifyModule: %v", err)
	}
}

func TestLowerPutchar(t *testing.T) {
	m := lowerSource(t, "putchar('A');", nil)
	calls := findOps(m.Init, OpCall)
	if len(calls) != 1 || calls[0].Aux.(*Func).Name != "putchar" {
		t.Fatalf("calls = %v, want putchar", calls)
	}
	if calls[0].Args[0].Op != OpExtend {
		t.Error("char argument not widened to int")
	}
}

func TestLowerMissingReturn(t *testing.T) {
	src := "int f(int x) { if (x) return 1; }"
	m := lowerSource(t, src, nil)
	f := getFunc(t, m, "f")
	if n := len(f.Blocks); f.Blocks[n-1].Kind != BlockReturn {
		t.Errorf("fall-through does not return the zero value:\n%s", Sprint(f))
	}

	cfg := config.Default()
	cfg.MissingReturn = config.ReturnError
	err := lowerError(t, src, cfg)
	if !errors.Is(err, diag.Bind) || !strings.Contains(err.Error(), "missing return at end of f") {
		t.Errorf("err = %v, want a missing return error", err)
	}
}

func TestLowerRedefine(t *testing.T) {
	src := `int f() { return 1; }
int f() { return 2; }
int x = 1;
int x = 2;`
	cfg := config.Default()
	cfg.AllowRedefine = true
	m := lowerSource(t, src, cfg)
	f := getFunc(t, m, "f")
	ret := f.Entry.Controls[0]
	if ret.Op != OpConstInt || ret.AuxInt != 2 {
		t.Errorf("redefinition did not replace f:\n%s", Sprint(f))
	}
	if len(m.Globals) != 2 || m.Globals[1].Name != "x.1" {
		t.Errorf("globals = %v, want x and x.1", m.Globals)
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind diag.Kind
		msg  string
	}{
		{"print x;", diag.UndefinedName, "undefined: x"},
		{"int f() { return 1; }\nint f() { return 2; }", diag.Redefinition, "f redefined"},
		{"int f(int x);\nvoid f(int x);", diag.Redefinition, "conflicting types for f"},
		{"int printf(int x) { return x; }", diag.Redefinition, "reserved"},
		{"int putchar(int c) { return c; }", diag.Redefinition, "putchar redefined"},
		{"void f() { int g() { return 1; } }", diag.Redefinition, "declared inside another function"},
		{"int x = 1;\nint x = 2;", diag.Redefinition, "x"},
		{"break;", diag.ControlFlowMisuse, "break is not inside a loop"},
		{"void f() { continue; }", diag.ControlFlowMisuse, "continue is not inside a loop"},
		{"return;", diag.ControlFlowMisuse, "return outside function"},
		{"void f() { return 1; }", diag.Bind, "f returns no value"},
		{"int f() { return; }", diag.Bind, "missing return value in f returning int"},
		{"int f() { return \"s\"; }", diag.Bind, "cannot return string from f returning int"},
		{"int x; x = \"s\";", diag.Bind, "cannot assign string to x of type int"},
		{"var x = 1; x = 2.5;", diag.Bind, "cannot assign double to x of type int"},
		{"void f() { var c = 'a'; c = 66; }", diag.Bind, "cannot assign int to c of type char"},
		{"void f() { var n = 1; n += 0.5; }", diag.Bind, "cannot assign double to n of type int"},
		{"int a[2]; a = 1;", diag.Bind, "cannot assign to array a"},
		{"int a[2]; a[0] = true;", diag.Bind, "cannot assign bool to element of int[2]"},
		{"char s[2] = \"abc\";", diag.Bind, "string of length 3 does not fit in char[2]"},
		{"int f(int x) { return x; }\nprint f(true);", diag.Bind, "cannot use bool as int in argument 1 to f"},
		{"int f(int x) { return x; }\nprint f(1, 2);", diag.Arity, "wrong number of arguments in call to f: have 2, want 1"},
		{"int a[2]; print a[0][1];", diag.Arity, "a has 1 dimensions, indexed with 2"},
		{"print true + 1;", diag.Type, "invalid operation: bool + int"},
		{"print -true;", diag.Type, "invalid operation: -bool"},
		{"print 1.5 % 2;", diag.Type, "invalid operation"},
		{"int x; print x[0];", diag.Type, "cannot index x of type int"},
		{"int a[2]; print a[1.5];", diag.Type, "array index must be integer, not double"},
		{"void f() {}\nprint f();", diag.Type, "void value used as value"},
		{"int a[2]; if (a) print 1;", diag.Type, "cannot use int[2] as a condition"},
		{"int main(int x) { return x; }", diag.Type, "func main must have no parameters"},
		{"double main() { return 1.0; }", diag.Type, "func main must return int or void"},
		{"int main();", diag.UndefinedName, "function main is declared but not defined"},
		{"print 4294967296;", diag.Type, "overflows int"},
	}
	for _, tt := range tests {
		err := lowerError(t, tt.src, nil)
		if !errors.Is(err, tt.kind) {
			t.Errorf("%q: err = %v, want kind %s", tt.src, err, tt.kind)
			continue
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("%q: err = %v, want message containing %q", tt.src, err, tt.msg)
		}
	}
}
