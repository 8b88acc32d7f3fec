package ir

import (
	"fmt"

	"github.com/you-not-fish/clox/internal/types"
)

// ID is a unique identifier for Values and Blocks within a Func.
type ID int32

// Value represents a single computation.
// Each Value has exactly one definition and may be used by other Values.
type Value struct {
	// ID is a unique identifier within the containing Func.
	ID ID

	// Op is the operation this value computes.
	Op Op

	// Type is the result type of this value.
	// Nil for void operations and calls of void functions.
	Type types.Type

	// Args are the input values to this operation.
	Args []*Value

	// Block is the basic block that contains this value.
	Block *Block

	// AuxInt holds an auxiliary integer (constant value, size, line).
	AuxInt int64

	// AuxFloat holds an auxiliary float (for OpConstDouble).
	AuxFloat float64

	// Aux holds arbitrary auxiliary data (string constant, *Func, *Global).
	Aux interface{}

	// Uses tracks the number of references to this value.
	Uses int32

	// Line is the source line the value was lowered from, or 0.
	Line uint32
}

// String returns a short string representation of the value (e.g., "v5").
func (v *Value) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// LongString returns a detailed string representation including op, type, and args.
func (v *Value) LongString() string {
	return formatValue(v)
}

// AddArg appends a value to the argument list and increments the arg's use count.
func (v *Value) AddArg(arg *Value) {
	v.Args = append(v.Args, arg)
	arg.Uses++
}

// SetArgs replaces the argument list, adjusting use counts.
func (v *Value) SetArgs(args []*Value) {
	for _, old := range v.Args {
		if old != nil {
			old.Uses--
		}
	}
	v.Args = args
	for _, arg := range args {
		if arg != nil {
			arg.Uses++
		}
	}
}

// ReplaceArg replaces the argument at index i, adjusting use counts.
func (v *Value) ReplaceArg(i int, new *Value) {
	if old := v.Args[i]; old != nil {
		old.Uses--
	}
	v.Args[i] = new
	new.Uses++
}

// IsPure returns true if this value's op has no side effects.
func (v *Value) IsPure() bool {
	return v.Op.IsPure()
}

// Elem returns the type a pointer-typed value points to, or nil.
func (v *Value) Elem() types.Type {
	if p, ok := v.Type.(*types.Pointer); ok {
		return p.Elem()
	}
	return nil
}
