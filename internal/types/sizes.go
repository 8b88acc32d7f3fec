package types

import "github.com/you-not-fish/clox/internal/rtabi"

// Sizes provides size and alignment calculations for types.
// It uses the rtabi constants to ensure ABI consistency with the runtime.
type Sizes struct{}

// DefaultSizes is the default Sizes implementation.
var DefaultSizes = &Sizes{}

// Sizeof returns the size of type T in bytes.
func (s *Sizes) Sizeof(T Type) int64 {
	switch t := T.(type) {
	case *Basic:
		return s.basicSize(t.kind)
	case *Array:
		return t.Len() * s.basicSize(t.elem.kind)
	case *Func, *Pointer:
		return rtabi.SizePtr
	}
	return 0
}

// Alignof returns the alignment of type T in bytes.
func (s *Sizes) Alignof(T Type) int64 {
	switch t := T.(type) {
	case *Basic:
		return s.basicAlign(t.kind)
	case *Array:
		return s.basicAlign(t.elem.kind)
	case *Func, *Pointer:
		return rtabi.AlignPtr
	}
	return 1
}

func (s *Sizes) basicSize(kind BasicKind) int64 {
	switch kind {
	case Bool:
		return rtabi.SizeBool
	case Char:
		return rtabi.SizeChar
	case Int:
		return rtabi.SizeInt
	case Double:
		return rtabi.SizeDouble
	case String:
		return rtabi.SizePtr
	default:
		return 0
	}
}

func (s *Sizes) basicAlign(kind BasicKind) int64 {
	switch kind {
	case Bool:
		return rtabi.AlignBool
	case Char:
		return rtabi.AlignChar
	case Int:
		return rtabi.AlignInt
	case Double:
		return rtabi.AlignDouble
	case String:
		return rtabi.AlignPtr
	default:
		return 1
	}
}
