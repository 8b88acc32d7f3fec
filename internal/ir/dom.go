package ir

// ReversePostOrder returns the blocks of f reachable from the entry, in
// reverse post-order.
func ReversePostOrder(f *Func) []*Block {
	if f.Entry == nil {
		return nil
	}
	seen := make(map[*Block]bool, len(f.Blocks))
	var post []*Block
	var walk func(b *Block)
	walk = func(b *Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if !seen[s] {
				walk(s)
			}
		}
		post = append(post, b)
	}
	walk(f.Entry)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable returns the set of blocks reachable from the entry of f.
func Reachable(f *Func) map[*Block]bool {
	set := make(map[*Block]bool, len(f.Blocks))
	for _, b := range ReversePostOrder(f) {
		set[b] = true
	}
	return set
}

// ComputeDom fills in Idom and Dominees for every reachable block, using
// the iterative algorithm of Cooper, Harvey and Kennedy. Unreachable
// blocks are left with a nil Idom.
func ComputeDom(f *Func) {
	for _, b := range f.Blocks {
		b.Idom = nil
		b.Dominees = nil
	}
	rpo := ReversePostOrder(f)
	if len(rpo) == 0 {
		return
	}

	order := make(map[*Block]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}
	entry := rpo[0]
	entry.Idom = entry // sentinel until the fixpoint is reached

	meet := func(a, b *Block) *Block {
		for a != b {
			for order[a] > order[b] {
				a = a.Idom
			}
			for order[b] > order[a] {
				b = b.Idom
			}
		}
		return a
	}

	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var idom *Block
			for _, p := range b.Preds {
				if p.Idom == nil {
					continue // unreachable, or not processed yet
				}
				if idom == nil {
					idom = p
				} else {
					idom = meet(p, idom)
				}
			}
			if idom != nil && b.Idom != idom {
				b.Idom = idom
				changed = true
			}
		}
	}

	entry.Idom = nil
	for _, b := range rpo[1:] {
		b.Idom.Dominees = append(b.Idom.Dominees, b)
	}
}

// Dominates reports whether a dominates b. ComputeDom must have run.
func Dominates(a, b *Block) bool {
	for ; b != nil; b = b.Idom {
		if b == a {
			return true
		}
	}
	return false
}

// ComputeDomFrontier returns the dominance frontier of every reachable
// block. ComputeDom must have run.
func ComputeDomFrontier(f *Func) map[*Block][]*Block {
	df := make(map[*Block][]*Block)
	for _, b := range f.Blocks {
		if len(b.Preds) < 2 || (b.Idom == nil && b != f.Entry) {
			continue
		}
		for _, p := range b.Preds {
			if p.Idom == nil && p != f.Entry {
				continue
			}
			for runner := p; runner != nil && runner != b.Idom; runner = runner.Idom {
				df[runner] = addBlock(df[runner], b)
			}
		}
	}
	return df
}

func addBlock(list []*Block, b *Block) []*Block {
	for _, x := range list {
		if x == b {
			return list
		}
	}
	return append(list, b)
}
