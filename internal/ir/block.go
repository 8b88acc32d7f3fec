package ir

import "fmt"

// BlockKind describes how a basic block terminates.
type BlockKind int

const (
	BlockInvalid BlockKind = iota
	BlockPlain             // unconditional jump to Succs[0]
	BlockIf                // conditional branch: if Controls[0] then Succs[0] else Succs[1]
	BlockReturn            // function return; Controls[0] = return value (may be nil)
)

var blockKindNames = [...]string{
	BlockInvalid: "invalid",
	BlockPlain:   "plain",
	BlockIf:      "if",
	BlockReturn:  "ret",
}

// String returns the string representation of the block kind.
func (k BlockKind) String() string {
	if k >= 0 && int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "unknown"
}

// Block represents a basic block in the control flow graph.
// A block contains a sequence of non-branching Values, followed by
// a terminator indicated by its Kind.
type Block struct {
	// ID is a unique identifier within the containing Func.
	ID ID

	// Kind describes how this block terminates.
	Kind BlockKind

	// Controls holds the terminator's operand values.
	// For BlockIf: Controls[0] = branch condition.
	// For BlockReturn: Controls[0] = return value (nil for void return).
	Controls []*Value

	// Succs lists the successor blocks in the CFG.
	// For BlockPlain: Succs[0] = target.
	// For BlockIf: Succs[0] = then, Succs[1] = else.
	Succs []*Block

	// Preds lists the predecessor blocks in the CFG.
	Preds []*Block

	// Values is the ordered list of values computed in this block.
	Values []*Value

	// Func is the function containing this block.
	Func *Func

	// Comment names the construct the block was created for ("loop.body").
	Comment string

	// Dominator tree, filled in by ComputeDom.
	Idom     *Block
	Dominees []*Block
}

// String returns a short string representation (e.g., "b3").
func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// AddSucc adds a successor block, updating both Succs and the successor's Preds.
func (b *Block) AddSucc(succ *Block) {
	b.Succs = append(b.Succs, succ)
	succ.Preds = append(succ.Preds, b)
}

// RemovePred removes pred from b's predecessors along with the matching
// argument of every phi in b.
func (b *Block) RemovePred(pred *Block) {
	for i, p := range b.Preds {
		if p != pred {
			continue
		}
		b.Preds = append(b.Preds[:i], b.Preds[i+1:]...)
		for _, v := range b.Values {
			if v.Op != OpPhi || i >= len(v.Args) {
				continue
			}
			if arg := v.Args[i]; arg != nil {
				arg.Uses--
			}
			v.Args = append(v.Args[:i], v.Args[i+1:]...)
		}
		return
	}
}

// SetControl sets the branch/return control value.
func (b *Block) SetControl(v *Value) {
	for _, c := range b.Controls {
		if c != nil {
			c.Uses--
		}
	}
	b.Controls = []*Value{v}
	if v != nil {
		v.Uses++
	}
}

// Terminated reports whether b already has a terminator.
func (b *Block) Terminated() bool {
	return b.Kind != BlockPlain || len(b.Succs) > 0
}

// NumSuccs returns the number of successor blocks.
func (b *Block) NumSuccs() int { return len(b.Succs) }

// NumPreds returns the number of predecessor blocks.
func (b *Block) NumPreds() int { return len(b.Preds) }
