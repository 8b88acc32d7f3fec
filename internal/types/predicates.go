package types

// Identical reports whether x and y are identical types: same base kind,
// same array-ness and dimensions, or the same signature.
func Identical(x, y Type) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil {
		return false
	}

	switch x := x.(type) {
	case *Basic:
		if y, ok := y.(*Basic); ok {
			return x.kind == y.kind
		}
	case *Array:
		if y, ok := y.(*Array); ok {
			return x.elem.kind == y.elem.kind && equalDims(x.dims, y.dims)
		}
	case *Func:
		if y, ok := y.(*Func); ok {
			return identicalFuncs(x, y)
		}
	case *Pointer:
		if y, ok := y.(*Pointer); ok {
			return Identical(x.elem, y.elem)
		}
	}
	return false
}

func equalDims(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func identicalFuncs(x, y *Func) bool {
	if len(x.params) != len(y.params) {
		return false
	}
	for i := range x.params {
		if x.params[i].kind != y.params[i].kind {
			return false
		}
	}
	return x.result.kind == y.result.kind
}

// IsNumeric reports whether t is an integer or floating-point type.
func IsNumeric(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b.info&InfoNumeric != 0
}

// IsInteger reports whether t is an integer type (int or char).
func IsInteger(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b.info&InfoInteger != 0
}

// IsBoolean reports whether t is bool.
func IsBoolean(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b.info&InfoBoolean != 0
}

// IsString reports whether t is string.
func IsString(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b.info&InfoString != 0
}

// Promote applies the usual arithmetic conversions to a pair of numeric
// operand types: double wins over any integer, and among integers the
// wider one wins. It returns nil if either operand is not numeric.
func Promote(x, y *Basic) *Basic {
	if x.info&InfoNumeric == 0 || y.info&InfoNumeric == 0 {
		return nil
	}
	if x.kind == Double || y.kind == Double {
		return Typ[Double]
	}
	if x.width >= y.width {
		return x
	}
	return y
}

// AssignableTo reports whether a value of type v can be stored in a
// location of type t. Numeric values convert implicitly between numeric
// kinds; everything else must match exactly.
func AssignableTo(v, t Type) bool {
	if IsNumeric(v) && IsNumeric(t) {
		return true
	}
	return Identical(v, t)
}
