package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/you-not-fish/clox/internal/ir"
	"github.com/you-not-fish/clox/internal/rtabi"
	"github.com/you-not-fish/clox/internal/types"
)

// lowerFunc emits the LLVM IR for a single IR function.
func (g *generator) lowerFunc(fn *ir.Func) {
	g.exit = exitLabels(fn)

	g.e.emit("define %s @%s(%s) {", llvmReturnType(fn.Sig), fn.Name, llvmParams(fn.Sig, true))
	for _, b := range fn.Blocks {
		g.lowerBlock(b)
	}
	g.e.emit("}")
}

// exitLabels returns the label under which each block's terminator
// ends up: the continuation label of its last runtime check, if any.
func exitLabels(fn *ir.Func) map[*ir.Block]string {
	exit := make(map[*ir.Block]string, len(fn.Blocks))
	for _, b := range fn.Blocks {
		exit[b] = blockName(b)
		for _, v := range b.Values {
			if v.Op == ir.OpAssert {
				exit[b] = checkLabel("ok", v)
			}
		}
	}
	return exit
}

func checkLabel(kind string, v *ir.Value) string {
	return fmt.Sprintf("chk.%s.%d", kind, v.ID)
}

// lowerBlock emits the LLVM IR for a single basic block.
func (g *generator) lowerBlock(b *ir.Block) {
	note := b.Comment
	if note == "entry" {
		note = ""
	}
	g.e.emitLabel(blockName(b), note)

	for _, v := range b.Values {
		g.lowerValue(v)
	}

	g.lowerTerminator(b)
}

// lowerValue emits the LLVM IR for a single IR value.
func (g *generator) lowerValue(v *ir.Value) {
	switch v.Op {
	// Constants, arguments and global addresses are inlined at use
	// sites; no instruction is emitted.
	case ir.OpConstInt, ir.OpConstDouble, ir.OpConstBool, ir.OpConstString,
		ir.OpArg, ir.OpGlobal:
		return

	// Integer arithmetic
	case ir.OpAddInt:
		g.emitBinOp("add", v)
	case ir.OpSubInt:
		g.emitBinOp("sub", v)
	case ir.OpMulInt:
		g.emitBinOp("mul", v)
	case ir.OpDivInt:
		g.emitBinOp("sdiv", v)
	case ir.OpModInt:
		g.emitBinOp("srem", v)
	case ir.OpNegInt:
		g.e.emitInst("%s = sub %s 0, %s", valueName(v), llvmType(v.Type), g.operand(v.Args[0]))

	// Double arithmetic
	case ir.OpAddF64:
		g.emitBinOp("fadd", v)
	case ir.OpSubF64:
		g.emitBinOp("fsub", v)
	case ir.OpMulF64:
		g.emitBinOp("fmul", v)
	case ir.OpDivF64:
		g.emitBinOp("fdiv", v)
	case ir.OpNegF64:
		g.e.emitInst("%s = fneg double %s", valueName(v), g.operand(v.Args[0]))

	// Integer comparison
	case ir.OpEqInt:
		g.emitCmp("icmp eq", v)
	case ir.OpNeqInt:
		g.emitCmp("icmp ne", v)
	case ir.OpLtInt:
		g.emitCmp("icmp slt", v)
	case ir.OpLeqInt:
		g.emitCmp("icmp sle", v)
	case ir.OpGtInt:
		g.emitCmp("icmp sgt", v)
	case ir.OpGeqInt:
		g.emitCmp("icmp sge", v)

	// Double comparison
	case ir.OpEqF64:
		g.emitCmp("fcmp oeq", v)
	case ir.OpNeqF64:
		g.emitCmp("fcmp une", v)
	case ir.OpLtF64:
		g.emitCmp("fcmp olt", v)
	case ir.OpLeqF64:
		g.emitCmp("fcmp ole", v)
	case ir.OpGtF64:
		g.emitCmp("fcmp ogt", v)
	case ir.OpGeqF64:
		g.emitCmp("fcmp oge", v)

	// Boolean
	case ir.OpNot:
		g.e.emitInst("%s = xor i1 %s, true", valueName(v), g.operand(v.Args[0]))
	case ir.OpAndBool:
		g.e.emitInst("%s = and i1 %s, %s", valueName(v), g.operand(v.Args[0]), g.operand(v.Args[1]))
	case ir.OpOrBool:
		g.e.emitInst("%s = or i1 %s, %s", valueName(v), g.operand(v.Args[0]), g.operand(v.Args[1]))

	// Conversion
	case ir.OpIntToDouble:
		g.emitCast("sitofp", v)
	case ir.OpDoubleToInt:
		g.emitCast("fptosi", v)
	case ir.OpExtend:
		g.emitCast("zext", v)
	case ir.OpTrunc:
		g.emitCast("trunc", v)

	// Memory
	case ir.OpAlloca:
		g.e.emitInst("%s = alloca %s, align %d", valueName(v), memType(v.Elem()), types.DefaultSizes.Alignof(v.Elem()))
	case ir.OpLoad:
		g.lowerLoad(v)
	case ir.OpStore:
		g.lowerStore(v.Args[0], v.Args[1])
	case ir.OpZero:
		g.lowerZero(v)
	case ir.OpMove:
		g.usesMemcpy = true
		g.e.emitInst("call void @llvm.memcpy.p0.p0.i64(ptr %s, ptr %s, i64 %d, i1 false)",
			g.operand(v.Args[0]), g.operand(v.Args[1]), v.AuxInt)
	case ir.OpElemPtr:
		arr := v.Args[0].Elem().(*types.Array)
		idx := v.Args[1]
		g.e.emitInst("%s = getelementptr inbounds %s, ptr %s, %s %s",
			valueName(v), memType(arr.Elem()), g.operand(v.Args[0]), llvmType(idx.Type), g.operand(idx))
	case ir.OpStringPtr:
		g.e.emitInst("%s = getelementptr i8, ptr %s, i64 0", valueName(v), g.operand(v.Args[0]))

	// Calls
	case ir.OpCall:
		g.lowerCall(v)

	// SSA
	case ir.OpPhi:
		g.lowerPhi(v)

	// Statements with runtime support
	case ir.OpPrint:
		g.lowerPrint(v)
	case ir.OpAssert:
		g.lowerAssert(v)

	default:
		g.e.emitInst("; unhandled op %s", v.Op)
	}
}

// lowerTerminator emits the block terminator instruction.
func (g *generator) lowerTerminator(b *ir.Block) {
	switch b.Kind {
	case ir.BlockPlain:
		if len(b.Succs) > 0 {
			g.e.emitInst("br label %%%s", blockName(b.Succs[0]))
		} else {
			g.e.emitInst("unreachable")
		}
	case ir.BlockIf:
		g.e.emitInst("br i1 %s, label %%%s, label %%%s",
			g.operand(b.Controls[0]), blockName(b.Succs[0]), blockName(b.Succs[1]))
	case ir.BlockReturn:
		if len(b.Controls) > 0 && b.Controls[0] != nil {
			ret := b.Controls[0]
			g.e.emitInst("ret %s %s", llvmType(ret.Type), g.operand(ret))
		} else {
			g.e.emitInst("ret void")
		}
	default:
		g.e.emitInst("unreachable")
	}
}

// operand returns the LLVM IR operand string for an IR value.
// Constants are inlined, others use their %vN name.
func (g *generator) operand(v *ir.Value) string {
	switch v.Op {
	case ir.OpConstInt:
		if llvmType(v.Type) == rtabi.LLVMTypeChar {
			return strconv.Itoa(int(int8(v.AuxInt)))
		}
		return strconv.FormatInt(v.AuxInt, 10)
	case ir.OpConstDouble:
		return formatFloat(v.AuxFloat)
	case ir.OpConstBool:
		if v.AuxInt != 0 {
			return "true"
		}
		return "false"
	case ir.OpConstString:
		s, _ := v.Aux.(string)
		return g.stringRef(s)
	case ir.OpArg:
		return argName(v.AuxInt)
	case ir.OpGlobal:
		return "@" + globalName(v.Aux.(*ir.Global))
	}
	return valueName(v)
}

// emitBinOp emits a binary operation instruction.
func (g *generator) emitBinOp(inst string, v *ir.Value) {
	g.e.emitInst("%s = %s %s %s, %s", valueName(v), inst, llvmType(v.Type), g.operand(v.Args[0]), g.operand(v.Args[1]))
}

// emitCmp emits a comparison; the operand type comes from the first
// argument.
func (g *generator) emitCmp(cond string, v *ir.Value) {
	g.e.emitInst("%s = %s %s %s, %s", valueName(v), cond, llvmType(v.Args[0].Type), g.operand(v.Args[0]), g.operand(v.Args[1]))
}

// emitCast emits a conversion from the argument's type to v's.
func (g *generator) emitCast(inst string, v *ir.Value) {
	arg := v.Args[0]
	g.e.emitInst("%s = %s %s %s to %s", valueName(v), inst, llvmType(arg.Type), g.operand(arg), llvmType(v.Type))
}

// lowerLoad loads a value, narrowing stored booleans to i1.
func (g *generator) lowerLoad(v *ir.Value) {
	ptr := g.operand(v.Args[0])
	if types.IsBoolean(v.Type) {
		tmp := g.e.nextTmp()
		g.e.emitInst("%s = load i8, ptr %s", tmp, ptr)
		g.e.emitInst("%s = icmp ne i8 %s, 0", valueName(v), tmp)
		return
	}
	g.e.emitInst("%s = load %s, ptr %s", valueName(v), llvmType(v.Type), ptr)
}

// lowerStore stores val at ptr, widening booleans to a byte.
func (g *generator) lowerStore(ptr, val *ir.Value) {
	if types.IsBoolean(val.Type) {
		tmp := g.e.nextTmp()
		g.e.emitInst("%s = zext i1 %s to i8", tmp, g.operand(val))
		g.e.emitInst("store i8 %s, ptr %s", tmp, g.operand(ptr))
		return
	}
	g.e.emitInst("store %s %s, ptr %s", llvmType(val.Type), g.operand(val), g.operand(ptr))
}

// lowerZero fills memory with the zero value of its type. Strings are
// pointers to the empty string rather than null, so they are stored one
// by one; everything else is cleared with memset.
func (g *generator) lowerZero(v *ir.Value) {
	ptr := g.operand(v.Args[0])
	switch t := v.Args[0].Elem().(type) {
	case *types.Basic:
		if t.Kind() == types.String {
			g.e.emitInst("store ptr %s, ptr %s", g.stringRef(""), ptr)
			return
		}
	case *types.Array:
		if t.Elem().Kind() == types.String {
			empty := g.stringRef("")
			for i := int64(0); i < t.Len(); i++ {
				tmp := g.e.nextTmp()
				g.e.emitInst("%s = getelementptr inbounds ptr, ptr %s, i64 %d", tmp, ptr, i)
				g.e.emitInst("store ptr %s, ptr %s", empty, tmp)
			}
			return
		}
	}
	g.usesMemset = true
	g.e.emitInst("call void @llvm.memset.p0.i64(ptr %s, i8 0, i64 %d, i1 false)", ptr, v.AuxInt)
}

// lowerCall emits a direct function call.
func (g *generator) lowerCall(v *ir.Value) {
	callee := v.Aux.(*ir.Func)
	params := callee.Sig.Params()
	args := make([]string, len(v.Args))
	for i, arg := range v.Args {
		args[i] = fmt.Sprintf("%s %s", llvmType(params[i]), g.operand(arg))
	}

	retType := llvmReturnType(callee.Sig)
	if retType == rtabi.LLVMTypeVoid || v.Type == nil {
		g.e.emitInst("call %s @%s(%s)", retType, callee.Name, strings.Join(args, ", "))
		return
	}
	g.e.emitInst("%s = call %s @%s(%s)", valueName(v), retType, callee.Name, strings.Join(args, ", "))
}

// lowerPhi emits a phi node. Incoming labels are the exit labels of the
// predecessors.
func (g *generator) lowerPhi(v *ir.Value) {
	parts := make([]string, len(v.Args))
	for i, arg := range v.Args {
		pred := v.Block.Preds[i]
		parts[i] = fmt.Sprintf("[ %s, %%%s ]", g.operand(arg), g.exit[pred])
	}
	g.e.emitInst("%s = phi %s %s", valueName(v), llvmType(v.Type), strings.Join(parts, ", "))
}

// lowerPrint prints a scalar with one printf call, or a whole array with
// a single format covering every element.
func (g *generator) lowerPrint(v *ir.Value) {
	arg := v.Args[0]
	if arr, ok := arg.Elem().(*types.Array); ok {
		g.lowerPrintArray(arg, arr)
		return
	}
	t, ok := arg.Type.(*types.Basic)
	if !ok {
		g.e.emitInst("; cannot print %s", arg.Type)
		return
	}
	g.emitPrintf(printFormat(t.Kind(), false), g.printArg(t, g.operand(arg)))
}

func (g *generator) lowerPrintArray(addr *ir.Value, arr *types.Array) {
	elem := arr.Elem()
	args := make([]string, 0, arr.Len())
	for i := int64(0); i < arr.Len(); i++ {
		p := g.e.nextTmp()
		g.e.emitInst("%s = getelementptr inbounds %s, ptr %s, i64 %d", p, memType(elem), g.operand(addr), i)
		x := g.e.nextTmp()
		if elem.Kind() == types.Bool {
			raw := g.e.nextTmp()
			g.e.emitInst("%s = load i8, ptr %s", raw, p)
			g.e.emitInst("%s = icmp ne i8 %s, 0", x, raw)
		} else {
			g.e.emitInst("%s = load %s, ptr %s", x, llvmType(elem), p)
		}
		args = append(args, g.printArg(elem, x))
	}
	g.emitPrintf(arrayFormat(arr), args...)
}

// printArg converts a value of type t to a printf vararg.
func (g *generator) printArg(t *types.Basic, x string) string {
	switch t.Kind() {
	case types.Double:
		return "double " + x
	case types.Char:
		tmp := g.e.nextTmp()
		g.e.emitInst("%s = zext i8 %s to i32", tmp, x)
		return "i32 " + tmp
	case types.Bool:
		tmp := g.e.nextTmp()
		g.e.emitInst("%s = select i1 %s, ptr %s, ptr %s", tmp, x,
			g.stringRef(rtabi.TrueString), g.stringRef(rtabi.FalseString))
		return "ptr " + tmp
	case types.String:
		return "ptr " + x
	}
	return rtabi.LLVMTypeInt + " " + x
}

func (g *generator) emitPrintf(format string, args ...string) {
	all := append([]string{"ptr " + g.stringRef(format)}, args...)
	g.e.emitInst("call i32 (ptr, ...) @%s(%s)", rtabi.FnPrintf, strings.Join(all, ", "))
}

// lowerAssert branches to a failure path that reports the line and
// message, flushes the output and aborts.
func (g *generator) lowerAssert(v *ir.Value) {
	ok := checkLabel("ok", v)
	fail := checkLabel("fail", v)
	msg, _ := v.Aux.(string)

	g.e.emitInst("br i1 %s, label %%%s, label %%%s", g.operand(v.Args[0]), ok, fail)
	g.e.emitLabel(fail, "")
	g.emitPrintf(rtabi.FmtTrap, fmt.Sprintf("i32 %d", v.AuxInt), "ptr "+g.stringRef(msg))
	g.e.emitInst("call i32 @%s(ptr null)", rtabi.FnFflush)
	g.e.emitInst("call void @%s()", rtabi.FnAbort)
	g.e.emitInst("unreachable")
	g.e.emitLabel(ok, "")
}

// formatFloat formats a float64 as an LLVM IR floating-point literal,
// using the exact hexadecimal form.
func formatFloat(f float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(f))
}
