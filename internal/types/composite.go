package types

import (
	"fmt"
	"strings"
)

// Array represents a possibly multi-dimensional array of a basic type,
// stored row-major: int a[2][3] has Dims [2 3] and Len 6.
type Array struct {
	typ
	elem *Basic
	dims []int
}

// NewArray creates a new array type. dims must be non-empty and positive.
func NewArray(elem *Basic, dims []int) *Array {
	return &Array{elem: elem, dims: dims}
}

// Elem returns the element type.
func (a *Array) Elem() *Basic {
	return a.elem
}

// Dims returns the declared dimensions, outermost first.
func (a *Array) Dims() []int {
	return a.dims
}

// Rank returns the number of dimensions.
func (a *Array) Rank() int {
	return len(a.dims)
}

// Len returns the total number of elements.
func (a *Array) Len() int64 {
	n := int64(1)
	for _, d := range a.dims {
		n *= int64(d)
	}
	return n
}

// Strides returns, for each dimension, the number of elements spanned by
// one step of its index: for [2][3][4] it is [12 4 1].
func (a *Array) Strides() []int64 {
	s := make([]int64, len(a.dims))
	n := int64(1)
	for i := len(a.dims) - 1; i >= 0; i-- {
		s[i] = n
		n *= int64(a.dims[i])
	}
	return s
}

// String implements Type.
func (a *Array) String() string {
	var buf strings.Builder
	buf.WriteString(a.elem.name)
	for _, d := range a.dims {
		fmt.Fprintf(&buf, "[%d]", d)
	}
	return buf.String()
}

// Func represents a function signature.
type Func struct {
	typ
	params []*Basic
	result *Basic // Typ[Void] for functions returning nothing
}

// NewFunc creates a new function type. A nil result means void.
func NewFunc(params []*Basic, result *Basic) *Func {
	if result == nil {
		result = Typ[Void]
	}
	return &Func{params: params, result: result}
}

// Params returns the parameter types.
func (f *Func) Params() []*Basic {
	return f.params
}

// Result returns the result type.
func (f *Func) Result() *Basic {
	return f.result
}

// String implements Type.
func (f *Func) String() string {
	var buf strings.Builder
	buf.WriteString(f.result.name)
	buf.WriteString("(")
	for i, p := range f.params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.name)
	}
	buf.WriteString(")")
	return buf.String()
}

// Pointer is the type of an address. Source programs cannot spell it;
// the IR uses it for stack slots, globals and array elements.
type Pointer struct {
	typ
	elem Type
}

// NewPointer returns the type of an address of a value of type elem.
func NewPointer(elem Type) *Pointer {
	return &Pointer{elem: elem}
}

// Elem returns the type pointed to.
func (p *Pointer) Elem() Type {
	return p.elem
}

// String implements Type.
func (p *Pointer) String() string {
	return "*" + p.elem.String()
}
