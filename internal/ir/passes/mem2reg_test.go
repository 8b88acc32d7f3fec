package passes

import (
	"testing"

	"github.com/you-not-fish/clox/internal/ir"
	"github.com/you-not-fish/clox/internal/syntax"
)

// lowerAndRun lowers src and runs the default pipeline over the module,
// verifying every function afterwards.
func lowerAndRun(t *testing.T, src string) *ir.Module {
	t.Helper()
	file, err := syntax.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, err := ir.Lower(file, nil)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if err := RunModule(m, Default, Config{Verify: true}); err != nil {
		t.Fatalf("RunModule: %v\nIR:\n%s", err, ir.SprintModule(m))
	}
	for _, f := range m.Funcs {
		if !f.Extern {
			checkUses(t, f)
		}
	}
	return m
}

func getFunc(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()
	f := m.Func(name)
	if f == nil {
		t.Fatalf("function %q not found", name)
	}
	return f
}

func countOps(f *ir.Func, op ir.Op) int {
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

// checkUses recounts the references to every value and compares them
// with the Uses fields.
func checkUses(t *testing.T, f *ir.Func) {
	t.Helper()
	counts := make(map[*ir.Value]int32)
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			for _, arg := range v.Args {
				counts[arg]++
			}
		}
		for _, c := range b.Controls {
			if c != nil {
				counts[c]++
			}
		}
	}
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Uses != counts[v] {
				t.Errorf("func %s: %s has Uses = %d, want %d\n%s", f.Name, v, v.Uses, counts[v], ir.Sprint(f))
			}
		}
	}
}

func TestMem2RegStraightLine(t *testing.T) {
	m := lowerAndRun(t, "int add(int a, int b) { return a + b; }")
	got := ir.Sprint(getFunc(t, m, "add"))
	want := `func add(a int, b int) int:
  b0: (entry)
    v0 = Arg <int> {a}
    v3 = Arg <int> [1] {b}
    v8 = AddInt <int> v0 v3
    Return v8
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestMem2RegDiamond(t *testing.T) {
	m := lowerAndRun(t, `
int pick(int c) {
	int x;
	if (c) { x = 1; } else { x = 2; }
	return x;
}`)
	f := getFunc(t, m, "pick")
	for _, op := range []ir.Op{ir.OpAlloca, ir.OpLoad, ir.OpStore} {
		if n := countOps(f, op); n != 0 {
			t.Errorf("%d %s left after mem2reg:\n%s", n, op, ir.Sprint(f))
		}
	}
	if n := countOps(f, ir.OpPhi); n != 1 {
		t.Fatalf("%d phis, want 1:\n%s", n, ir.Sprint(f))
	}
	for _, b := range f.Blocks {
		if b.Kind != ir.BlockReturn {
			continue
		}
		if ret := b.Controls[0]; ret.Op != ir.OpPhi || len(ret.Args) != 2 {
			t.Errorf("return value = %s, want a phi of both branches", ret.LongString())
		}
	}
}

func TestMem2RegLoop(t *testing.T) {
	m := lowerAndRun(t, `
int sum(int n) {
	int s = 0;
	int i = 0;
	while (i < n) {
		s = s + i;
		i = i + 1;
	}
	return s;
}`)
	f := getFunc(t, m, "sum")
	if n := countOps(f, ir.OpAlloca); n != 0 {
		t.Errorf("%d allocas left:\n%s", n, ir.Sprint(f))
	}
	var header *ir.Block
	for _, b := range f.Blocks {
		if b.Comment == "loop.header" {
			header = b
		}
	}
	if header == nil {
		t.Fatalf("no loop header:\n%s", ir.Sprint(f))
	}
	phis := 0
	for _, v := range header.Values {
		if v.Op == ir.OpPhi {
			phis++
		}
	}
	if phis != 2 || countOps(f, ir.OpPhi) != 2 {
		t.Errorf("want 2 phis, both in the loop header:\n%s", ir.Sprint(f))
	}
}

func TestMem2RegForLoopWithBreak(t *testing.T) {
	m := lowerAndRun(t, `
int first(int n) {
	int found = -1;
	for (int i = 0; i < n; i++) {
		if (i * i > n) { found = i; break; }
		if (i == 3) continue;
	}
	return found;
}`)
	f := getFunc(t, m, "first")
	if n := countOps(f, ir.OpAlloca); n != 0 {
		t.Errorf("%d allocas left:\n%s", n, ir.Sprint(f))
	}
	if countOps(f, ir.OpPhi) == 0 {
		t.Errorf("no phis in a loop with a break:\n%s", ir.Sprint(f))
	}
}

func TestMem2RegKeepsArrays(t *testing.T) {
	m := lowerAndRun(t, "int f() { int a[3]; int k = 2; a[k] = 7; return a[k]; }")
	f := getFunc(t, m, "f")
	if n := countOps(f, ir.OpAlloca); n != 1 {
		t.Errorf("%d allocas, want only the array:\n%s", n, ir.Sprint(f))
	}
	if n := countOps(f, ir.OpElemPtr); n != 2 {
		t.Errorf("%d element pointers, want 2:\n%s", n, ir.Sprint(f))
	}
}

func TestMem2RegKeepsGlobals(t *testing.T) {
	m := lowerAndRun(t, "int g; int f() { g = 1; return g; }")
	f := getFunc(t, m, "f")
	if countOps(f, ir.OpStore) != 1 || countOps(f, ir.OpLoad) != 1 {
		t.Errorf("global accesses were promoted:\n%s", ir.Sprint(f))
	}
}

func TestMem2RegUninitializedRead(t *testing.T) {
	m := lowerAndRun(t, "double f() { double d; return d; }")
	f := getFunc(t, m, "f")
	ret := f.Entry.Controls[0]
	if ret.Op != ir.OpConstDouble || ret.AuxFloat != 0 {
		t.Errorf("return value = %s, want a zero double", ret.LongString())
	}
}

func TestMem2RegNoAllocas(t *testing.T) {
	f := newVoidFunc("f")
	Mem2Reg(f)
	if err := ir.VerifyDom(f); err != nil {
		t.Fatal(err)
	}
}
