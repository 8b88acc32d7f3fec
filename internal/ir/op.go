// Package ir implements the intermediate representation that clox
// programs are lowered to before code generation.
//
// A Module holds one Func per declared function. Each Func is a control
// flow graph of Blocks; each Block is a list of Values followed by a
// terminator. Variables start out as stack slots (OpAlloca) accessed
// with OpLoad and OpStore; the mem2reg pass promotes scalar slots to
// registers joined by OpPhi.
package ir

// Op represents an IR operation code.
type Op int

const (
	OpInvalid Op = iota

	// Constants
	OpConstInt    // integer or char constant; AuxInt = value
	OpConstDouble // double constant; AuxFloat = value
	OpConstBool   // bool constant; AuxInt = 0 or 1
	OpConstString // string constant; Aux = string value

	// Integer arithmetic; the operand width is the value's Type
	OpAddInt
	OpSubInt
	OpMulInt
	OpDivInt
	OpModInt
	OpNegInt

	// Double arithmetic
	OpAddF64
	OpSubF64
	OpMulF64
	OpDivF64
	OpNegF64

	// Integer comparison; also used for bool == and !=
	OpEqInt
	OpNeqInt
	OpLtInt
	OpLeqInt
	OpGtInt
	OpGeqInt

	// Double comparison
	OpEqF64
	OpNeqF64
	OpLtF64
	OpLeqF64
	OpGtF64
	OpGeqF64

	// Boolean
	OpNot
	OpAndBool
	OpOrBool

	// Memory
	OpAlloca    // stack slot; Type = *T; Aux = variable name
	OpGlobal    // address of a module global; Type = *T; Aux = *Global
	OpLoad      // load from pointer; Args[0] = ptr
	OpStore     // store to pointer; Args[0] = ptr, Args[1] = val; void
	OpZero      // zero-fill memory; Args[0] = ptr; AuxInt = size; void
	OpMove      // copy memory; Args[0] = dst, Args[1] = src; AuxInt = size; void
	OpElemPtr   // &a[i] of a flattened array; Args[0] = array ptr, Args[1] = index
	OpStringPtr // address of the first byte of a string; Args[0] = string

	// Conversion
	OpIntToDouble // signed int → double
	OpDoubleToInt // double → int, truncating
	OpExtend      // narrower int → wider int, zero-extending
	OpTrunc       // wider int → narrower int

	// Calls
	OpCall // direct call; Aux = *Func; Args = arguments
	OpArg  // function argument; AuxInt = param index; Aux = param name

	// SSA
	OpPhi // φ function; Args = one per predecessor

	// Statements with runtime support
	OpPrint  // print Args[0] and a newline; void
	OpAssert // stop the program unless Args[0]; AuxInt = line; Aux = message; void

	opCount // sentinel; must be last
)

// OpInfo holds metadata about an IR operation.
type OpInfo struct {
	Name   string // human-readable name
	IsPure bool   // true if the op has no side effects and can be removed when unused
	IsVoid bool   // true if the op produces no value
}

var opInfoTable = [opCount]OpInfo{
	OpInvalid: {Name: "Invalid"},

	OpConstInt:    {Name: "ConstInt", IsPure: true},
	OpConstDouble: {Name: "ConstDouble", IsPure: true},
	OpConstBool:   {Name: "ConstBool", IsPure: true},
	OpConstString: {Name: "ConstString", IsPure: true},

	// Lowering precedes DivInt and ModInt with an OpAssert that the
	// divisor is nonzero.
	OpAddInt: {Name: "AddInt", IsPure: true},
	OpSubInt: {Name: "SubInt", IsPure: true},
	OpMulInt: {Name: "MulInt", IsPure: true},
	OpDivInt: {Name: "DivInt", IsPure: true},
	OpModInt: {Name: "ModInt", IsPure: true},
	OpNegInt: {Name: "NegInt", IsPure: true},

	OpAddF64: {Name: "AddF64", IsPure: true},
	OpSubF64: {Name: "SubF64", IsPure: true},
	OpMulF64: {Name: "MulF64", IsPure: true},
	OpDivF64: {Name: "DivF64", IsPure: true},
	OpNegF64: {Name: "NegF64", IsPure: true},

	OpEqInt:  {Name: "EqInt", IsPure: true},
	OpNeqInt: {Name: "NeqInt", IsPure: true},
	OpLtInt:  {Name: "LtInt", IsPure: true},
	OpLeqInt: {Name: "LeqInt", IsPure: true},
	OpGtInt:  {Name: "GtInt", IsPure: true},
	OpGeqInt: {Name: "GeqInt", IsPure: true},

	OpEqF64:  {Name: "EqF64", IsPure: true},
	OpNeqF64: {Name: "NeqF64", IsPure: true},
	OpLtF64:  {Name: "LtF64", IsPure: true},
	OpLeqF64: {Name: "LeqF64", IsPure: true},
	OpGtF64:  {Name: "GtF64", IsPure: true},
	OpGeqF64: {Name: "GeqF64", IsPure: true},

	OpNot:     {Name: "Not", IsPure: true},
	OpAndBool: {Name: "AndBool", IsPure: true},
	OpOrBool:  {Name: "OrBool", IsPure: true},

	OpAlloca:    {Name: "Alloca"},
	OpGlobal:    {Name: "Global", IsPure: true},
	OpLoad:      {Name: "Load"},
	OpStore:     {Name: "Store", IsVoid: true},
	OpZero:      {Name: "Zero", IsVoid: true},
	OpMove:      {Name: "Move", IsVoid: true},
	OpElemPtr:   {Name: "ElemPtr", IsPure: true},
	OpStringPtr: {Name: "StringPtr", IsPure: true},

	OpIntToDouble: {Name: "IntToDouble", IsPure: true},
	OpDoubleToInt: {Name: "DoubleToInt", IsPure: true},
	OpExtend:      {Name: "Extend", IsPure: true},
	OpTrunc:       {Name: "Trunc", IsPure: true},

	OpCall: {Name: "Call"},
	OpArg:  {Name: "Arg", IsPure: true},

	OpPhi: {Name: "Phi", IsPure: true},

	OpPrint:  {Name: "Print", IsVoid: true},
	OpAssert: {Name: "Assert", IsVoid: true},
}

// String returns the human-readable name of the op.
func (o Op) String() string {
	return o.Info().Name
}

// Info returns the OpInfo for this op.
func (o Op) Info() OpInfo {
	if o >= 0 && int(o) < len(opInfoTable) {
		return opInfoTable[o]
	}
	return OpInfo{Name: "unknown"}
}

// IsPure returns true if this op has no side effects.
func (o Op) IsPure() bool {
	return o.Info().IsPure
}

// IsVoid returns true if this op produces no value.
func (o Op) IsVoid() bool {
	return o.Info().IsVoid
}

// IsConst reports whether o produces a constant.
func (o Op) IsConst() bool {
	switch o {
	case OpConstInt, OpConstDouble, OpConstBool, OpConstString:
		return true
	}
	return false
}
