package interp

import (
	"github.com/you-not-fish/clox/internal/rtabi"
	"github.com/you-not-fish/clox/internal/types"
)

// builtins returns the functions bound in every global frame. Their
// signatures match the C library functions a compiled program calls, so
// a prototype such as int putchar(int c); agrees with them.
func builtins() []*function {
	return []*function{
		{
			name:    rtabi.FnPutchar,
			sig:     types.NewFunc([]*types.Basic{types.Typ[types.Int]}, types.Typ[types.Int]),
			builtin: putchar,
		},
	}
}

// putchar writes the low byte of its argument and returns the argument.
func putchar(in *Interpreter, args []Value) (Value, error) {
	c := args[0].(Int)
	if _, err := in.out.Write([]byte{byte(c)}); err != nil {
		return Int(-1), nil
	}
	return c, nil
}
