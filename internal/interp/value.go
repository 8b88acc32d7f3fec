package interp

import (
	"strconv"
	"strings"

	"github.com/you-not-fish/clox/internal/types"
)

// Value is a runtime value. The set of implementations is closed:
// Int, Double, Char, Bool, String, *Array and Func. A call to a void
// function produces a nil Value.
type Value interface {
	Type() types.Type

	// String renders the value the way print shows it.
	String() string

	aValue()
}

type (
	Int    int32
	Double float64
	Char   byte
	Bool   bool
	String string
)

// Array is a fixed-size array stored row-major.
type Array struct {
	typ   *types.Array
	Elems []Value
}

// Func is a reference to a declared or builtin function.
type Func struct {
	fn *function
}

func (Int) aValue()    {}
func (Double) aValue() {}
func (Char) aValue()   {}
func (Bool) aValue()   {}
func (String) aValue() {}
func (*Array) aValue() {}
func (Func) aValue()   {}

func (Int) Type() types.Type      { return types.Typ[types.Int] }
func (Double) Type() types.Type   { return types.Typ[types.Double] }
func (Char) Type() types.Type     { return types.Typ[types.Char] }
func (Bool) Type() types.Type     { return types.Typ[types.Bool] }
func (String) Type() types.Type   { return types.Typ[types.String] }
func (a *Array) Type() types.Type { return a.typ }
func (f Func) Type() types.Type   { return f.fn.sig }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Doubles print like C's %g.
func (v Double) String() string { return strconv.FormatFloat(float64(v), 'g', 6, 64) }

func (v Char) String() string   { return string([]byte{byte(v)}) }
func (v Bool) String() string   { return strconv.FormatBool(bool(v)) }
func (v String) String() string { return strconv.Quote(string(v)) }
func (f Func) String() string   { return "<fn " + f.fn.name + ">" }

// String renders nested brackets, one level per dimension.
func (a *Array) String() string {
	var buf strings.Builder
	a.format(&buf, 0, 0)
	return buf.String()
}

func (a *Array) format(buf *strings.Builder, dim int, base int64) {
	dims := a.typ.Dims()
	stride := a.typ.Strides()[dim]
	buf.WriteByte('[')
	for i := 0; i < dims[dim]; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		off := base + int64(i)*stride
		if dim == len(dims)-1 {
			buf.WriteString(a.Elems[off].String())
		} else {
			a.format(buf, dim+1, off)
		}
	}
	buf.WriteByte(']')
}

// NewArray returns a zero-filled array of type t.
func NewArray(t *types.Array) *Array {
	elems := make([]Value, t.Len())
	zero := Zero(t.Elem())
	for i := range elems {
		elems[i] = zero
	}
	return &Array{typ: t, Elems: elems}
}

func (a *Array) copy() *Array {
	elems := make([]Value, len(a.Elems))
	copy(elems, a.Elems)
	return &Array{typ: a.typ, Elems: elems}
}

// Zero returns the zero value of t, or nil for void.
func Zero(t types.Type) Value {
	switch t := t.(type) {
	case *types.Basic:
		switch t.Kind() {
		case types.Int:
			return Int(0)
		case types.Double:
			return Double(0)
		case types.Char:
			return Char(0)
		case types.Bool:
			return Bool(false)
		case types.String:
			return String("")
		}
	case *types.Array:
		return NewArray(t)
	}
	return nil
}

// assignTo returns v as a value of type t: numeric values convert,
// anything else must already have type t.
func assignTo(v Value, t *types.Basic) (Value, bool) {
	if v == nil || !types.AssignableTo(v.Type(), t) {
		return nil, false
	}
	if cv, ok := convert(v, t); ok {
		return cv, true
	}
	return v, true
}

// convert converts a numeric value to the numeric type t. It reports
// false if either side is not numeric. Doubles truncate toward zero;
// integers wrap to the width of t.
func convert(v Value, t *types.Basic) (Value, bool) {
	switch t.Kind() {
	case types.Int:
		switch v := v.(type) {
		case Int:
			return v, true
		case Char:
			return Int(v), true
		case Double:
			return Int(int32(v)), true
		}
	case types.Char:
		switch v := v.(type) {
		case Int:
			return Char(byte(v)), true
		case Char:
			return v, true
		case Double:
			return Char(byte(int32(v))), true
		}
	case types.Double:
		switch v := v.(type) {
		case Int:
			return Double(v), true
		case Char:
			return Double(v), true
		case Double:
			return v, true
		}
	}
	return nil, false
}

// basicOf returns the basic type of v, or nil for arrays, functions
// and void.
func basicOf(v Value) *types.Basic {
	if v == nil {
		return nil
	}
	b, _ := v.Type().(*types.Basic)
	return b
}

// typeName describes the type of v for error messages.
func typeName(v Value) string {
	if v == nil {
		return "void"
	}
	return v.Type().String()
}
