package codegen

import (
	"fmt"
	"strings"

	"github.com/you-not-fish/clox/internal/rtabi"
	"github.com/you-not-fish/clox/internal/types"
)

// llvmType maps a clox type to the LLVM type of a register holding it.
// Arrays are flattened to one dimension, matching OpElemPtr indexing.
func llvmType(t types.Type) string {
	switch u := t.(type) {
	case *types.Basic:
		return llvmBasicType(u)
	case *types.Pointer:
		return rtabi.LLVMTypePtr
	case *types.Array:
		return fmt.Sprintf("[%d x %s]", u.Len(), memType(u.Elem()))
	}
	return rtabi.LLVMTypeVoid
}

// llvmBasicType maps a basic type to LLVM IR.
func llvmBasicType(b *types.Basic) string {
	switch b.Kind() {
	case types.Int:
		return rtabi.LLVMTypeInt
	case types.Double:
		return rtabi.LLVMTypeDouble
	case types.Char:
		return rtabi.LLVMTypeChar
	case types.Bool:
		// In registers, booleans are i1.
		return rtabi.LLVMTypeBoolI1
	case types.String:
		return rtabi.LLVMTypePtr
	}
	return rtabi.LLVMTypeVoid
}

// memType is the LLVM type of t in memory. It differs from llvmType only
// for bool, which is stored as a byte.
func memType(t types.Type) string {
	if types.IsBoolean(t) {
		return rtabi.LLVMTypeBool
	}
	return llvmType(t)
}

// llvmReturnType returns the LLVM return type for a function signature.
func llvmReturnType(sig *types.Func) string {
	return llvmType(sig.Result())
}

// llvmParams returns the parameter list of a definition (named) or a
// declaration (types only).
func llvmParams(sig *types.Func, named bool) string {
	parts := make([]string, len(sig.Params()))
	for i, p := range sig.Params() {
		parts[i] = llvmType(p)
		if named {
			parts[i] += " " + argName(int64(i))
		}
	}
	return strings.Join(parts, ", ")
}

// printFormat returns the printf format for one value of kind k, either
// as a whole line or as an array element.
func printFormat(k types.BasicKind, elem bool) string {
	switch k {
	case types.Double:
		if elem {
			return rtabi.FmtElemDouble
		}
		return rtabi.FmtDouble
	case types.Char:
		if elem {
			return rtabi.FmtElemChar
		}
		return rtabi.FmtChar
	case types.Bool:
		if elem {
			return rtabi.FmtElemBool
		}
		return rtabi.FmtBool
	case types.String:
		if elem {
			return rtabi.FmtElemString
		}
		return rtabi.FmtString
	}
	if elem {
		return rtabi.FmtElemInt
	}
	return rtabi.FmtInt
}

// arrayFormat returns the printf format of a whole array: nested
// brackets, one level per dimension, around the element formats.
func arrayFormat(a *types.Array) string {
	elem := printFormat(a.Elem().Kind(), true)
	var sb strings.Builder
	var walk func(dim int)
	walk = func(dim int) {
		sb.WriteByte('[')
		for i := 0; i < a.Dims()[dim]; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			if dim == a.Rank()-1 {
				sb.WriteString(elem)
			} else {
				walk(dim + 1)
			}
		}
		sb.WriteByte(']')
	}
	walk(0)
	sb.WriteByte('\n')
	return sb.String()
}
