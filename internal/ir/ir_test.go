package ir

import (
	"strings"
	"testing"

	"github.com/you-not-fish/clox/internal/types"
)

var (
	intType  = types.Typ[types.Int]
	boolType = types.Typ[types.Bool]
)

// makeAddFunc builds: int add(int x, int y) { return x + y; }
func makeAddFunc() *Func {
	sig := types.NewFunc([]*types.Basic{intType, intType}, intType)
	f := NewFunc("add", sig)
	f.Params = []string{"x", "y"}
	entry := f.Entry

	v0 := f.NewValue(entry, OpArg, intType)
	v0.Aux = "x"
	v1 := f.NewValue(entry, OpArg, intType)
	v1.AuxInt = 1
	v1.Aux = "y"
	v2 := f.NewValue(entry, OpAddInt, intType, v0, v1)

	entry.Kind = BlockReturn
	entry.SetControl(v2)
	return f
}

func TestManualConstruct(t *testing.T) {
	f := makeAddFunc()
	if f.NumBlocks() != 1 {
		t.Errorf("NumBlocks = %d, want 1", f.NumBlocks())
	}
	if f.NumValues() != 3 {
		t.Errorf("NumValues = %d, want 3", f.NumValues())
	}
	add := f.Entry.Values[2]
	if add.Op != OpAddInt || len(add.Args) != 2 {
		t.Errorf("value[2] = %s, want AddInt with 2 args", add.LongString())
	}
	if add.Uses != 1 {
		t.Errorf("add.Uses = %d, want 1 (the return)", add.Uses)
	}
	if err := Verify(f); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestPrintFormat(t *testing.T) {
	got := Sprint(makeAddFunc())
	want := `func add(x int, y int) int:
  b0: (entry)
    v0 = Arg <int> {x}
    v1 = Arg <int> [1] {y}
    v2 = AddInt <int> v0 v1
    Return v2
`
	if got != want {
		t.Errorf("Sprint mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrintModule(t *testing.T) {
	m := NewModule()
	g := m.NewGlobal("count", intType)
	m.AddFunc(NewExtern("putchar", types.NewFunc([]*types.Basic{intType}, intType)))

	f := NewFunc("main", types.NewFunc(nil, intType))
	addr := f.NewValue(f.Entry, OpGlobal, types.NewPointer(intType))
	addr.Aux = g
	v := f.NewValue(f.Entry, OpLoad, intType, addr)
	p := f.NewValue(f.Entry, OpPrint, nil, v)
	p.Line = 3
	msg := f.NewValue(f.Entry, OpConstString, types.Typ[types.String])
	msg.Aux = "a\"b"
	f.Entry.Kind = BlockReturn
	f.Entry.SetControl(v)
	m.AddFunc(f)

	got := SprintModule(m)
	for _, want := range []string{
		"global count int\n",
		"extern func putchar(int) int\n",
		"v0 = Global <*int> {count}",
		"v1 = Load <int> v0",
		"    Print v1\n",
		`v3 = ConstString <string> {"a\"b"}`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("module output missing %q, got:\n%s", want, got)
		}
	}
	if err := VerifyModule(m); err != nil {
		t.Errorf("VerifyModule failed: %v", err)
	}
}

func TestNewGlobalUnique(t *testing.T) {
	m := NewModule()
	a := m.NewGlobal("x", intType)
	b := m.NewGlobal("x", boolType)
	c := m.NewGlobal("x", intType)
	if a.Name != "x" || b.Name != "x.1" || c.Name != "x.2" {
		t.Errorf("global names = %s %s %s, want x x.1 x.2", a.Name, b.Name, c.Name)
	}
}

func TestAddFuncReplaces(t *testing.T) {
	m := NewModule()
	sig := types.NewFunc(nil, intType)
	proto := NewExtern("f", sig)
	m.AddFunc(proto)
	m.AddFunc(NewExtern("g", sig))
	def := NewFunc("f", sig)
	m.AddFunc(def)

	if m.Func("f") != def {
		t.Error("Func(f) is not the definition")
	}
	if len(m.Funcs) != 2 || m.Funcs[0] != def {
		t.Errorf("Funcs = %v, want the definition in the prototype's place", m.Funcs)
	}
}

func TestReplaceUses(t *testing.T) {
	f := makeAddFunc()
	entry := f.Entry
	x, y, add := entry.Values[0], entry.Values[1], entry.Values[2]
	c := f.NewValue(entry, OpConstInt, intType)
	c.AuxInt = 7

	f.ReplaceUses(x, c)
	if add.Args[0] != c {
		t.Errorf("add.Args[0] = %v, want %v", add.Args[0], c)
	}
	if x.Uses != 0 || c.Uses != 1 {
		t.Errorf("uses: x=%d c=%d, want 0 and 1", x.Uses, c.Uses)
	}

	f.ReplaceUses(add, y)
	if entry.Controls[0] != y || add.Uses != 0 {
		t.Errorf("return control = %v (add.Uses %d), want %v", entry.Controls[0], add.Uses, y)
	}
}

func TestRemoveBlockDropsPhiArgs(t *testing.T) {
	f := NewFunc("f", types.NewFunc(nil, intType))
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockPlain)
	merge := f.NewBlock(BlockReturn)
	branchOn(f, f.Entry, b1, b2)
	b1.AddSucc(merge)
	b2.AddSucc(merge)

	one := f.NewValue(b1, OpConstInt, intType)
	one.AuxInt = 1
	two := f.NewValue(b2, OpConstInt, intType)
	two.AuxInt = 2
	phi := f.NewValue(merge, OpPhi, intType, one, two)
	merge.SetControl(phi)

	f.Entry.Succs = f.Entry.Succs[:1]
	b2.Preds = nil
	f.Entry.Kind = BlockPlain
	f.Entry.SetControl(nil)
	f.Entry.Controls = nil
	f.RemoveBlock(b2)

	if len(phi.Args) != 1 || phi.Args[0] != one {
		t.Errorf("phi args = %v, want [%v]", phi.Args, one)
	}
	if len(merge.Preds) != 1 {
		t.Errorf("merge has %d preds, want 1", len(merge.Preds))
	}
	if err := Verify(f); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestVerifyNilType(t *testing.T) {
	f := NewFunc("bad", voidSig())
	f.NewValue(f.Entry, OpAddInt, nil)
	f.Entry.Kind = BlockReturn

	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "nil Type") {
		t.Errorf("Verify = %v, want a nil Type error", err)
	}
}

func TestVerifyNoTerminator(t *testing.T) {
	f := NewFunc("bad", voidSig())
	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "plain block has 0 succs") {
		t.Errorf("Verify = %v, want a missing successor error", err)
	}
}

func TestVerifyPhiArgCount(t *testing.T) {
	f := NewFunc("bad", types.NewFunc(nil, intType))
	v := f.NewValue(f.Entry, OpConstInt, intType)
	other := f.NewBlock(BlockPlain)
	merge := f.NewBlock(BlockReturn)
	branchOn(f, f.Entry, other, merge)
	other.AddSucc(merge)
	phi := f.NewValue(merge, OpPhi, intType, v)
	merge.SetControl(phi)

	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "phi has 1 args but block has 2 preds") {
		t.Errorf("Verify = %v, want a phi arity error", err)
	}
}

func TestVerifyInconsistentEdges(t *testing.T) {
	f := NewFunc("bad", voidSig())
	f.Entry.Kind = BlockReturn
	orphan := f.NewBlock(BlockReturn)
	orphan.Preds = append(orphan.Preds, f.Entry)

	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "does not have") {
		t.Errorf("Verify = %v, want an edge error", err)
	}
}

func TestVerifyReturnType(t *testing.T) {
	f := NewFunc("bad", types.NewFunc(nil, intType))
	b := f.NewValue(f.Entry, OpConstBool, boolType)
	f.Entry.Kind = BlockReturn
	f.Entry.SetControl(b)

	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "returns bool, want int") {
		t.Errorf("Verify = %v, want a return type error", err)
	}

	g := NewFunc("bad", voidSig())
	g.Entry.Kind = BlockReturn
	g.Entry.SetControl(g.NewValue(g.Entry, OpConstInt, intType))
	if err := Verify(g); err == nil || !strings.Contains(err.Error(), "void function returns") {
		t.Errorf("Verify = %v, want a void return error", err)
	}
}

func TestVerifyIfControl(t *testing.T) {
	f := NewFunc("bad", voidSig())
	c := f.NewValue(f.Entry, OpConstInt, intType)
	b1 := f.NewBlock(BlockReturn)
	b2 := f.NewBlock(BlockReturn)
	f.Entry.Kind = BlockIf
	f.Entry.SetControl(c)
	f.Entry.AddSucc(b1)
	f.Entry.AddSucc(b2)

	err := Verify(f)
	if err == nil || !strings.Contains(err.Error(), "want bool") {
		t.Errorf("Verify = %v, want a control type error", err)
	}
}

func TestVerifyOperands(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *Func, b *Block)
		want  string
	}{
		{"load from int", func(f *Func, b *Block) {
			v := f.NewValue(b, OpConstInt, intType)
			f.NewValue(b, OpLoad, intType, v)
		}, "load from non-pointer"},
		{"store to int", func(f *Func, b *Block) {
			v := f.NewValue(b, OpConstInt, intType)
			f.NewValue(b, OpStore, nil, v, v)
		}, "is not a pointer"},
		{"elem of scalar", func(f *Func, b *Block) {
			p := f.NewValue(b, OpAlloca, types.NewPointer(intType))
			i := f.NewValue(b, OpConstInt, intType)
			f.NewValue(b, OpElemPtr, types.NewPointer(intType), p, i)
		}, "element of non-array"},
		{"assert int", func(f *Func, b *Block) {
			v := f.NewValue(b, OpConstInt, intType)
			f.NewValue(b, OpAssert, nil, v)
		}, "assert of non-bool"},
		{"call arity", func(f *Func, b *Block) {
			callee := NewExtern("g", types.NewFunc([]*types.Basic{intType}, intType))
			c := f.NewValue(b, OpCall, intType)
			c.Aux = callee
		}, "has 0 args, want 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFunc("bad", voidSig())
			tt.build(f, f.Entry)
			f.Entry.Kind = BlockReturn
			err := Verify(f)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestVerifyModuleForeignCall(t *testing.T) {
	m := NewModule()
	f := NewFunc("main", types.NewFunc(nil, intType))
	c := f.NewValue(f.Entry, OpCall, intType)
	c.Aux = NewExtern("elsewhere", types.NewFunc(nil, intType))
	f.Entry.Kind = BlockReturn
	f.Entry.SetControl(c)
	m.AddFunc(f)

	err := VerifyModule(m)
	if err == nil || !strings.Contains(err.Error(), "outside the module") {
		t.Errorf("VerifyModule = %v, want a foreign call error", err)
	}
}

func TestVerifyDom(t *testing.T) {
	f := NewFunc("bad", types.NewFunc(nil, intType))
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockPlain)
	merge := f.NewBlock(BlockReturn)
	branchOn(f, f.Entry, b1, b2)
	b1.AddSucc(merge)
	b2.AddSucc(merge)
	v := f.NewValue(b1, OpConstInt, intType)
	merge.SetControl(v)

	if err := Verify(f); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := VerifyDom(f); err == nil || !strings.Contains(err.Error(), "dominate") {
		t.Errorf("VerifyDom = %v, want a dominance error", err)
	}
}

func TestOpInfo(t *testing.T) {
	pure := []Op{
		OpConstInt, OpConstDouble, OpConstBool, OpConstString,
		OpAddInt, OpDivInt, OpNegF64, OpLtInt, OpGeqF64,
		OpNot, OpAndBool, OpGlobal, OpElemPtr, OpStringPtr,
		OpIntToDouble, OpExtend, OpTrunc, OpPhi, OpArg,
	}
	for _, op := range pure {
		if !op.IsPure() {
			t.Errorf("%s should be pure", op)
		}
	}
	for _, op := range []Op{OpAlloca, OpLoad, OpStore, OpZero, OpMove, OpCall, OpPrint, OpAssert} {
		if op.IsPure() {
			t.Errorf("%s should not be pure", op)
		}
	}

	for _, op := range []Op{OpStore, OpZero, OpMove, OpPrint, OpAssert} {
		if !op.IsVoid() {
			t.Errorf("%s should be void", op)
		}
	}
	for _, op := range []Op{OpConstInt, OpLoad, OpAlloca, OpCall, OpPhi} {
		if op.IsVoid() {
			t.Errorf("%s should not be void", op)
		}
	}

	if Op(-1).String() != "unknown" || opCount.String() != "unknown" {
		t.Error("out of range ops should print as unknown")
	}
	for op := OpInvalid + 1; op < opCount; op++ {
		if op.Info().Name == "" {
			t.Errorf("op %d has no name", op)
		}
	}
}
