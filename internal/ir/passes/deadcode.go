package passes

import "github.com/you-not-fish/clox/internal/ir"

// DeadBlocks removes blocks that cannot be reached from the entry.
func DeadBlocks(f *ir.Func) {
	reachable := ir.Reachable(f)
	var dead []*ir.Block
	for _, b := range f.Blocks {
		if !reachable[b] {
			dead = append(dead, b)
		}
	}
	for _, b := range dead {
		// Edges between dead blocks go first, so no removed block is
		// left as a predecessor.
		for _, p := range append([]*ir.Block(nil), b.Preds...) {
			b.RemovePred(p)
			p.Succs = removeBlock(p.Succs, b)
		}
	}
	for _, b := range dead {
		f.RemoveBlock(b)
	}
}

func removeBlock(list []*ir.Block, b *ir.Block) []*ir.Block {
	for i, x := range list {
		if x == b {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// DeadCode removes pure values that nothing uses, repeating until no
// more can be removed.
func DeadCode(f *ir.Func) {
	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			live := b.Values[:0]
			for _, v := range b.Values {
				if v.Uses == 0 && v.IsPure() {
					for _, arg := range v.Args {
						if arg != nil {
							arg.Uses--
						}
					}
					changed = true
					continue
				}
				live = append(live, v)
			}
			for i := len(live); i < len(b.Values); i++ {
				b.Values[i] = nil
			}
			b.Values = live
		}
	}
}
