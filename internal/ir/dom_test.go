package ir

import (
	"testing"

	"github.com/you-not-fish/clox/internal/types"
)

func voidSig() *types.Func {
	return types.NewFunc(nil, types.Typ[types.Void])
}

// branchOn ends b with a conditional branch on a constant.
func branchOn(f *Func, b, then, els *Block) {
	c := f.NewValue(b, OpConstBool, types.Typ[types.Bool])
	c.AuxInt = 1
	b.Kind = BlockIf
	b.SetControl(c)
	b.AddSucc(then)
	b.AddSucc(els)
}

func assertDF(t *testing.T, df map[*Block][]*Block, b *Block, want []*Block) {
	t.Helper()
	got := df[b]
	if len(got) != len(want) {
		t.Errorf("DF(%v) = %v, want %v", b, got, want)
		return
	}
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("DF(%v) missing %v, got %v", b, w, got)
		}
	}
}

func TestDomSingleBlock(t *testing.T) {
	f := NewFunc("f", voidSig())
	f.Entry.Kind = BlockReturn

	ComputeDom(f)
	if f.Entry.Idom != nil {
		t.Errorf("entry Idom = %v, want nil", f.Entry.Idom)
	}
	if len(f.Entry.Dominees) != 0 {
		t.Errorf("entry has %d dominees, want 0", len(f.Entry.Dominees))
	}
}

// TestDomDiamond checks an if/else:
//
//	b0
//	├→ b1 ─┐
//	└→ b2 ─┘
//	   b3
func TestDomDiamond(t *testing.T) {
	f := NewFunc("f", voidSig())
	b0 := f.Entry
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockPlain)
	b3 := f.NewBlock(BlockReturn)
	branchOn(f, b0, b1, b2)
	b1.AddSucc(b3)
	b2.AddSucc(b3)

	ComputeDom(f)
	for _, b := range []*Block{b1, b2, b3} {
		if b.Idom != b0 {
			t.Errorf("%v.Idom = %v, want %v", b, b.Idom, b0)
		}
	}
	if !Dominates(b0, b3) || Dominates(b1, b3) {
		t.Error("b0 should dominate b3 and b1 should not")
	}

	df := ComputeDomFrontier(f)
	assertDF(t, df, b0, nil)
	assertDF(t, df, b1, []*Block{b3})
	assertDF(t, df, b2, []*Block{b3})
	assertDF(t, df, b3, nil)
}

// TestDomLoop checks the shape lowering gives a while loop:
//
//	b0 → b1 (header) → b2 (body) → b3 (cont) → b1
//	     b1 → b4 (exit)
func TestDomLoop(t *testing.T) {
	f := NewFunc("f", voidSig())
	b0 := f.Entry
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockPlain)
	b3 := f.NewBlock(BlockPlain)
	b4 := f.NewBlock(BlockReturn)
	b0.AddSucc(b1)
	branchOn(f, b1, b2, b4)
	b2.AddSucc(b3)
	b3.AddSucc(b1)

	ComputeDom(f)
	want := map[*Block]*Block{b1: b0, b2: b1, b3: b2, b4: b1}
	for b, idom := range want {
		if b.Idom != idom {
			t.Errorf("%v.Idom = %v, want %v", b, b.Idom, idom)
		}
	}

	df := ComputeDomFrontier(f)
	assertDF(t, df, b2, []*Block{b1})
	assertDF(t, df, b3, []*Block{b1})
	assertDF(t, df, b1, []*Block{b1})
}

func TestReversePostOrder(t *testing.T) {
	f := NewFunc("f", voidSig())
	b0 := f.Entry
	b1 := f.NewBlock(BlockPlain)
	b2 := f.NewBlock(BlockPlain)
	b3 := f.NewBlock(BlockReturn)
	branchOn(f, b0, b1, b2)
	b1.AddSucc(b3)
	b2.AddSucc(b3)

	rpo := ReversePostOrder(f)
	if len(rpo) != 4 {
		t.Fatalf("RPO has %d blocks, want 4", len(rpo))
	}
	if rpo[0] != b0 || rpo[3] != b3 {
		t.Errorf("RPO = %v, want b0 first and b3 last", rpo)
	}
}

func TestDomUnreachable(t *testing.T) {
	f := NewFunc("f", voidSig())
	f.Entry.Kind = BlockReturn
	dead := f.NewBlock(BlockReturn)

	ComputeDom(f)
	if dead.Idom != nil {
		t.Errorf("unreachable block Idom = %v, want nil", dead.Idom)
	}
	if Reachable(f)[dead] {
		t.Error("dead block reported reachable")
	}
	if len(ComputeDomFrontier(f)[dead]) != 0 {
		t.Error("unreachable block has a dominance frontier")
	}
}
