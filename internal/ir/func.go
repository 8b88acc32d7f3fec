package ir

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/types"
)

// Func represents a function in the IR.
// It contains a control flow graph of Blocks, each containing Values.
// An external function has a signature and no blocks.
type Func struct {
	// Name is the function name.
	Name string

	// Sig is the function signature.
	Sig *types.Func

	// Params holds the parameter names, in order.
	Params []string

	// Blocks is the list of basic blocks. Blocks[0] is always the entry block.
	Blocks []*Block

	// Entry is the entry block (same as Blocks[0]).
	Entry *Block

	// Extern marks a function declared by a prototype and supplied at
	// link time.
	Extern bool

	// IsMain marks the program entry point. Its result is int, and a body
	// that ends without a return statement returns 0.
	IsMain bool

	nextValueID ID
	nextBlockID ID
}

// NewFunc creates a new function with the given name and signature.
// An entry block is automatically created.
func NewFunc(name string, sig *types.Func) *Func {
	f := &Func{
		Name: name,
		Sig:  sig,
	}
	entry := f.NewBlock(BlockPlain)
	entry.Comment = "entry"
	f.Entry = entry
	return f
}

// NewExtern creates an external function declaration.
func NewExtern(name string, sig *types.Func) *Func {
	return &Func{Name: name, Sig: sig, Extern: true}
}

// Result returns the result type of f; void for functions without one.
func (f *Func) Result() *types.Basic {
	return f.Sig.Result()
}

// NewBlock creates a new basic block with the given kind and appends it to the function.
func (f *Func) NewBlock(kind BlockKind) *Block {
	b := &Block{
		ID:   f.nextBlockID,
		Kind: kind,
		Func: f,
	}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewValue creates a new Value at the end of the given block.
func (f *Func) NewValue(b *Block, op Op, typ types.Type, args ...*Value) *Value {
	v := f.newValue(b, op, typ, args)
	b.Values = append(b.Values, v)
	return v
}

// NewValueAtFront creates a new Value at the start of the given block.
func (f *Func) NewValueAtFront(b *Block, op Op, typ types.Type, args ...*Value) *Value {
	v := f.newValue(b, op, typ, args)
	b.Values = append([]*Value{v}, b.Values...)
	return v
}

func (f *Func) newValue(b *Block, op Op, typ types.Type, args []*Value) *Value {
	v := &Value{
		ID:    f.nextValueID,
		Op:    op,
		Type:  typ,
		Block: b,
	}
	f.nextValueID++
	for _, arg := range args {
		v.AddArg(arg)
	}
	return v
}

// ReplaceUses makes every argument and control that refers to old refer
// to new instead.
func (f *Func) ReplaceUses(old, new *Value) {
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			for i, arg := range v.Args {
				if arg == old {
					v.ReplaceArg(i, new)
				}
			}
		}
		for i, c := range b.Controls {
			if c == old {
				old.Uses--
				b.Controls[i] = new
				new.Uses++
			}
		}
	}
}

// RemoveBlock deletes b from f, detaching it from its successors. b must
// not be the entry block.
func (f *Func) RemoveBlock(b *Block) {
	for _, s := range b.Succs {
		s.RemovePred(b)
	}
	for _, v := range b.Values {
		for _, arg := range v.Args {
			if arg != nil {
				arg.Uses--
			}
		}
	}
	for _, c := range b.Controls {
		if c != nil {
			c.Uses--
		}
	}
	b.Succs = nil
	for i, x := range f.Blocks {
		if x == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}

// NumBlocks returns the number of blocks in the function.
func (f *Func) NumBlocks() int { return len(f.Blocks) }

// NumValues returns the total number of values across all blocks.
func (f *Func) NumValues() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Values)
	}
	return n
}

// Global is a module-level variable. It is zero-initialized; top-level
// initializers run in the module's init function.
type Global struct {
	Name string
	Type types.Type
}

// Module is a lowered program: its globals and its functions in
// declaration order.
type Module struct {
	Globals []*Global
	Funcs   []*Func

	// Init runs the top-level statements. It is called first thing by
	// main, and is nil when there are none.
	Init *Func

	funcs map[string]*Func
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{funcs: make(map[string]*Func)}
}

// Func returns the function named name, or nil.
func (m *Module) Func(name string) *Func {
	return m.funcs[name]
}

// AddFunc adds f to m, replacing any function of the same name in place.
func (m *Module) AddFunc(f *Func) {
	if old, ok := m.funcs[f.Name]; ok {
		for i, g := range m.Funcs {
			if g == old {
				m.Funcs[i] = f
			}
		}
	} else {
		m.Funcs = append(m.Funcs, f)
	}
	m.funcs[f.Name] = f
}

// NewGlobal adds a global variable to m. A redeclared name gets a
// numeric suffix, so every Global has a distinct Name.
func (m *Module) NewGlobal(name string, typ types.Type) *Global {
	unique := name
	for n := 1; m.hasGlobal(unique); n++ {
		unique = fmt.Sprintf("%s.%d", name, n)
	}
	g := &Global{Name: unique, Type: typ}
	m.Globals = append(m.Globals, g)
	return g
}

func (m *Module) hasGlobal(name string) bool {
	for _, g := range m.Globals {
		if g.Name == name {
			return true
		}
	}
	return false
}
