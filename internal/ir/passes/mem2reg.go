package passes

import (
	"github.com/you-not-fish/clox/internal/ir"
	"github.com/you-not-fish/clox/internal/types"
)

// Mem2Reg promotes stack slots of scalar variables to registers by
// inserting phi nodes and renaming. A slot is promoted only when it is
// used solely as the address of loads, stores and zeroing; array slots,
// whose elements are addressed with ElemPtr, stay in memory.
func Mem2Reg(f *ir.Func) {
	ir.ComputeDom(f)

	allocas := findPromotable(f)
	if len(allocas) == 0 {
		return
	}

	df := ir.ComputeDomFrontier(f)

	defBlocks := make(map[*ir.Value][]*ir.Block, len(allocas))
	for _, a := range allocas {
		defBlocks[a] = findDefBlocks(f, a)
	}

	phiMap := insertPhis(f, allocas, defBlocks, df)
	rename(f, allocas, phiMap)
	cleanup(f)
}

// findPromotable returns the allocas of scalar type whose every use has
// the alloca as Args[0] of an OpLoad, OpStore or OpZero.
func findPromotable(f *ir.Func) []*ir.Value {
	var all []*ir.Value
	set := make(map[*ir.Value]bool)
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op != ir.OpAlloca {
				continue
			}
			if _, ok := v.Elem().(*types.Basic); ok {
				all = append(all, v)
				set[v] = true
			}
		}
	}

	escapes := make(map[*ir.Value]bool)
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			for i, arg := range v.Args {
				if !set[arg] {
					continue
				}
				switch v.Op {
				case ir.OpLoad, ir.OpStore, ir.OpZero:
					if i != 0 {
						escapes[arg] = true
					}
				default:
					escapes[arg] = true
				}
			}
		}
		for _, c := range b.Controls {
			if set[c] {
				escapes[c] = true
			}
		}
	}

	var promotable []*ir.Value
	for _, a := range all {
		if !escapes[a] {
			promotable = append(promotable, a)
		}
	}
	return promotable
}

// findDefBlocks returns the blocks that store to alloca.
func findDefBlocks(f *ir.Func, alloca *ir.Value) []*ir.Block {
	seen := make(map[*ir.Block]bool)
	var blocks []*ir.Block
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if (v.Op == ir.OpStore || v.Op == ir.OpZero) && v.Args[0] == alloca && !seen[b] {
				seen[b] = true
				blocks = append(blocks, b)
			}
		}
	}
	return blocks
}

// insertPhis places phi nodes at the iterated dominance frontier of the
// defining blocks of each alloca. It returns phiMap[block][alloca].
func insertPhis(
	f *ir.Func,
	allocas []*ir.Value,
	defBlocks map[*ir.Value][]*ir.Block,
	df map[*ir.Block][]*ir.Block,
) map[*ir.Block]map[*ir.Value]*ir.Value {
	phiMap := make(map[*ir.Block]map[*ir.Value]*ir.Value)
	for _, alloca := range allocas {
		for _, b := range iteratedDF(defBlocks[alloca], df) {
			phi := f.NewValueAtFront(b, ir.OpPhi, alloca.Elem())
			phi.Args = make([]*ir.Value, len(b.Preds))
			phi.Line = alloca.Line
			if phiMap[b] == nil {
				phiMap[b] = make(map[*ir.Value]*ir.Value)
			}
			phiMap[b][alloca] = phi
		}
	}
	return phiMap
}

func iteratedDF(defs []*ir.Block, df map[*ir.Block][]*ir.Block) []*ir.Block {
	var result []*ir.Block
	inResult := make(map[*ir.Block]bool)
	worklist := append([]*ir.Block(nil), defs...)
	inWorklist := make(map[*ir.Block]bool, len(defs))
	for _, b := range defs {
		inWorklist[b] = true
	}

	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, d := range df[b] {
			if inResult[d] {
				continue
			}
			inResult[d] = true
			result = append(result, d)
			if !inWorklist[d] {
				inWorklist[d] = true
				worklist = append(worklist, d)
			}
		}
	}
	return result
}

// rename walks the dominator tree in preorder, tracking the reaching
// definition of each alloca and filling in phi arguments.
func rename(f *ir.Func, allocas []*ir.Value, phiMap map[*ir.Block]map[*ir.Value]*ir.Value) {
	zeroVals := make(map[*ir.Value]*ir.Value, len(allocas))
	stacks := make(map[*ir.Value][]*ir.Value, len(allocas))
	isAlloca := make(map[*ir.Value]bool, len(allocas))
	for _, a := range allocas {
		zeroVals[a] = makeZero(f, a.Elem().(*types.Basic))
		stacks[a] = []*ir.Value{zeroVals[a]}
		isAlloca[a] = true
	}

	dead := make(map[*ir.Value]bool)

	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		pushed := make(map[*ir.Value]int)
		push := func(a, v *ir.Value) {
			stacks[a] = append(stacks[a], v)
			pushed[a]++
		}

		for alloca, phi := range phiMap[b] {
			push(alloca, phi)
		}

		for _, v := range b.Values {
			if len(v.Args) == 0 || !isAlloca[v.Args[0]] {
				continue
			}
			a := v.Args[0]
			switch v.Op {
			case ir.OpLoad:
				stack := stacks[a]
				f.ReplaceUses(v, stack[len(stack)-1])
				dead[v] = true
			case ir.OpStore:
				push(a, v.Args[1])
				dead[v] = true
			case ir.OpZero:
				push(a, zeroVals[a])
				dead[v] = true
			}
		}

		for _, s := range b.Succs {
			pm := phiMap[s]
			if pm == nil {
				continue
			}
			idx := -1
			for i, p := range s.Preds {
				if p == b {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			for alloca, phi := range pm {
				stack := stacks[alloca]
				val := stack[len(stack)-1]
				phi.Args[idx] = val
				val.Uses++
			}
		}

		for _, child := range b.Dominees {
			visit(child)
		}

		for a, n := range pushed {
			stacks[a] = stacks[a][:len(stacks[a])-n]
		}
	}
	visit(f.Entry)

	removeDead(f, dead, isAlloca)
}

// makeZero creates the zero value of t at the start of the entry block,
// ahead of every use.
func makeZero(f *ir.Func, t *types.Basic) *ir.Value {
	switch t.Kind() {
	case types.Double:
		return f.NewValueAtFront(f.Entry, ir.OpConstDouble, t)
	case types.Bool:
		return f.NewValueAtFront(f.Entry, ir.OpConstBool, t)
	case types.String:
		v := f.NewValueAtFront(f.Entry, ir.OpConstString, t)
		v.Aux = ""
		return v
	}
	return f.NewValueAtFront(f.Entry, ir.OpConstInt, t)
}

// removeDead deletes the promoted loads, stores and zeroings, and then
// the allocas left without uses.
func removeDead(f *ir.Func, dead, isAlloca map[*ir.Value]bool) {
	for _, b := range f.Blocks {
		var live []*ir.Value
		for _, v := range b.Values {
			if dead[v] {
				for _, arg := range v.Args {
					arg.Uses--
				}
				continue
			}
			live = append(live, v)
		}
		b.Values = live
	}

	for _, b := range f.Blocks {
		var live []*ir.Value
		for _, v := range b.Values {
			if isAlloca[v] && v.Uses == 0 {
				continue
			}
			live = append(live, v)
		}
		b.Values = live
	}
}

// cleanup replaces trivial phis, whose arguments are all one value or the
// phi itself, by that value and drops phis left unused.
func cleanup(f *ir.Func) {
	for changed := true; changed; {
		changed = false
		for _, b := range f.Blocks {
			for _, v := range b.Values {
				if v.Op != ir.OpPhi {
					continue
				}
				if trivial := trivialPhi(v); trivial != nil {
					f.ReplaceUses(v, trivial)
					changed = true
				}
			}
		}
		if !changed {
			break
		}
		for _, b := range f.Blocks {
			var live []*ir.Value
			for _, v := range b.Values {
				if v.Op == ir.OpPhi && v.Uses == 0 {
					for _, arg := range v.Args {
						if arg != nil {
							arg.Uses--
						}
					}
					continue
				}
				live = append(live, v)
			}
			b.Values = live
		}
	}
}

func trivialPhi(phi *ir.Value) *ir.Value {
	var unique *ir.Value
	for _, arg := range phi.Args {
		if arg == nil || arg == phi {
			continue
		}
		if unique == nil {
			unique = arg
		} else if arg != unique {
			return nil
		}
	}
	return unique
}
