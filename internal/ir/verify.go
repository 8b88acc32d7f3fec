package ir

import (
	"fmt"
	"strings"

	"github.com/you-not-fish/clox/internal/types"
)

// VerifyModule verifies every defined function of m and checks that calls
// refer to functions of m.
func VerifyModule(m *Module) error {
	var errs []string
	for _, f := range m.Funcs {
		if f.Extern {
			if len(f.Blocks) != 0 {
				errs = append(errs, fmt.Sprintf("func %s: extern function has blocks", f.Name))
			}
			continue
		}
		if err := Verify(f); err != nil {
			errs = append(errs, err.Error())
		}
		for _, b := range f.Blocks {
			for _, v := range b.Values {
				if v.Op != OpCall {
					continue
				}
				callee, ok := v.Aux.(*Func)
				if !ok || m.Func(callee.Name) != callee {
					errs = append(errs, fmt.Sprintf("func %s, %s, %s: call to function outside the module", f.Name, b, v))
				}
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "\n"))
}

// Verify checks the structural integrity of a function.
// It returns an error describing all violations found, or nil if valid.
func Verify(f *Func) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if f.Entry == nil || len(f.Blocks) == 0 {
		add("func %s: no entry block", f.Name)
		return combineErrors(errs)
	}
	if f.Blocks[0] != f.Entry {
		add("func %s: Blocks[0] is not the entry block", f.Name)
	}
	if len(f.Entry.Preds) != 0 {
		add("func %s: entry block %s has %d predecessors, want 0", f.Name, f.Entry, len(f.Entry.Preds))
	}

	blockSet := make(map[*Block]bool, len(f.Blocks))
	valueSet := make(map[*Value]bool)
	for _, b := range f.Blocks {
		blockSet[b] = true
		for _, v := range b.Values {
			valueSet[v] = true
		}
	}

	for _, b := range f.Blocks {
		if b.Func != f {
			add("func %s, %s: block Func pointer mismatch", f.Name, b)
		}

		phis := true
		for _, v := range b.Values {
			if v.Block != b {
				add("func %s, %s, %s: value Block pointer is %s, want %s", f.Name, b, v, v.Block, b)
			}
			if !v.Op.IsVoid() && v.Type == nil && v.Op != OpCall {
				add("func %s, %s, %s (%s): non-void value has nil Type", f.Name, b, v, v.Op)
			}
			for i, arg := range v.Args {
				if arg == nil {
					add("func %s, %s, %s: arg[%d] is nil", f.Name, b, v, i)
				} else if !valueSet[arg] {
					add("func %s, %s, %s: arg[%d] (%s) not found in function", f.Name, b, v, i, arg)
				}
			}

			if v.Op == OpPhi {
				if !phis {
					add("func %s, %s, %s: phi after non-phi value", f.Name, b, v)
				}
				if len(v.Args) != len(b.Preds) {
					add("func %s, %s, %s: phi has %d args but block has %d preds",
						f.Name, b, v, len(v.Args), len(b.Preds))
				}
			} else {
				phis = false
			}
			verifyOperands(v, add)
		}

		switch b.Kind {
		case BlockPlain:
			if len(b.Succs) != 1 {
				add("func %s, %s: plain block has %d succs, want 1", f.Name, b, len(b.Succs))
			}
		case BlockIf:
			if len(b.Controls) != 1 || b.Controls[0] == nil {
				add("func %s, %s: if block needs one control", f.Name, b)
			} else if !types.IsBoolean(b.Controls[0].Type) {
				add("func %s, %s: if control %s has type %v, want bool", f.Name, b, b.Controls[0], b.Controls[0].Type)
			}
			if len(b.Succs) != 2 {
				add("func %s, %s: if block has %d succs, want 2", f.Name, b, len(b.Succs))
			}
		case BlockReturn:
			if len(b.Succs) != 0 {
				add("func %s, %s: return block has %d succs, want 0", f.Name, b, len(b.Succs))
			}
			verifyReturn(f, b, add)
		default:
			add("func %s, %s: block has invalid kind", f.Name, b)
		}

		for _, succ := range b.Succs {
			if !blockSet[succ] {
				add("func %s, %s: successor %s not in function", f.Name, b, succ)
			} else if !containsBlock(succ.Preds, b) {
				add("func %s, %s: successor %s does not have %s as predecessor", f.Name, b, succ, b)
			}
		}
		for _, pred := range b.Preds {
			if !blockSet[pred] {
				add("func %s, %s: predecessor %s not in function", f.Name, b, pred)
			} else if !containsBlock(pred.Succs, b) {
				add("func %s, %s: predecessor %s does not have %s as successor", f.Name, b, pred, b)
			}
		}
		for i, c := range b.Controls {
			if c != nil && !valueSet[c] {
				add("func %s, %s: control[%d] (%s) not found in function", f.Name, b, i, c)
			}
		}
	}

	return combineErrors(errs)
}

// verifyOperands checks the operand shapes of the memory and call ops.
func verifyOperands(v *Value, add func(string, ...interface{})) {
	want := func(n int) bool {
		if len(v.Args) != n {
			add("%s (%s): has %d args, want %d", v, v.Op, len(v.Args), n)
			return false
		}
		return true
	}
	isPtr := func(x *Value) bool {
		_, ok := x.Type.(*types.Pointer)
		return ok
	}

	switch v.Op {
	case OpAlloca, OpGlobal:
		if !isPtr(v) {
			add("%s (%s): type %v is not a pointer", v, v.Op, v.Type)
		}
	case OpLoad:
		if want(1) && v.Args[0] != nil && !isPtr(v.Args[0]) {
			add("%s: load from non-pointer %s", v, v.Args[0])
		}
	case OpStore, OpMove:
		if want(2) && v.Args[0] != nil && !isPtr(v.Args[0]) {
			add("%s (%s): destination %s is not a pointer", v, v.Op, v.Args[0])
		}
	case OpZero:
		if want(1) && v.Args[0] != nil && !isPtr(v.Args[0]) {
			add("%s: zero of non-pointer %s", v, v.Args[0])
		}
	case OpElemPtr:
		if want(2) && v.Args[0] != nil {
			if _, ok := v.Args[0].Elem().(*types.Array); !ok {
				add("%s: element of non-array %s", v, v.Args[0])
			}
		}
	case OpCall:
		callee, ok := v.Aux.(*Func)
		if !ok {
			add("%s: call without callee", v)
			return
		}
		if n := len(callee.Sig.Params()); len(v.Args) != n {
			add("%s: call to %s has %d args, want %d", v, callee.Name, len(v.Args), n)
		}
	case OpAssert:
		if want(1) && v.Args[0] != nil && !types.IsBoolean(v.Args[0].Type) {
			add("%s: assert of non-bool %s", v, v.Args[0])
		}
	case OpPrint:
		want(1)
	}
}

func verifyReturn(f *Func, b *Block, add func(string, ...interface{})) {
	var ret *Value
	if len(b.Controls) > 0 {
		ret = b.Controls[0]
	}
	result := f.Result()
	switch {
	case result.Kind() == types.Void && ret != nil:
		add("func %s, %s: void function returns %s", f.Name, b, ret)
	case result.Kind() != types.Void && ret == nil:
		add("func %s, %s: missing return value", f.Name, b)
	case ret != nil && !types.Identical(ret.Type, result):
		add("func %s, %s: returns %v, want %s", f.Name, b, ret.Type, result)
	}
}

// VerifyDom checks that every value is defined in a block that dominates
// its uses. It calls Verify first and computes the dominator tree.
func VerifyDom(f *Func) error {
	if err := Verify(f); err != nil {
		return err
	}
	ComputeDom(f)
	reachable := Reachable(f)

	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	index := make(map[*Value]int)
	for _, b := range f.Blocks {
		for i, v := range b.Values {
			index[v] = i
		}
	}

	for _, b := range f.Blocks {
		if !reachable[b] {
			continue
		}
		for _, v := range b.Values {
			for i, arg := range v.Args {
				if arg == nil {
					continue
				}
				if v.Op == OpPhi {
					if i < len(b.Preds) && reachable[b.Preds[i]] && !Dominates(arg.Block, b.Preds[i]) {
						add("func %s, %s, %s: phi arg[%d] %s defined in %s which does not dominate pred %s",
							f.Name, b, v, i, arg, arg.Block, b.Preds[i])
					}
					continue
				}
				if arg.Block == b {
					if index[arg] >= index[v] {
						add("func %s, %s, %s: arg[%d] %s used before its definition", f.Name, b, v, i, arg)
					}
				} else if !Dominates(arg.Block, b) {
					add("func %s, %s, %s: arg[%d] %s defined in %s which does not dominate %s",
						f.Name, b, v, i, arg, arg.Block, b)
				}
			}
		}
		for i, c := range b.Controls {
			if c != nil && c.Block != b && !Dominates(c.Block, b) {
				add("func %s, %s: control[%d] %s defined in %s which does not dominate %s",
					f.Name, b, i, c, c.Block, b)
			}
		}
	}
	return combineErrors(errs)
}

func containsBlock(bs []*Block, b *Block) bool {
	for _, x := range bs {
		if x == b {
			return true
		}
	}
	return false
}

func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("IR verification failed:\n  %s", strings.Join(errs, "\n  "))
}
