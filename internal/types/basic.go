package types

// BasicKind describes the kind of basic type.
type BasicKind int

const (
	Invalid BasicKind = iota // invalid type

	Void
	Bool
	Char
	Int
	Double
	String
)

// BasicInfo describes properties of a basic type.
type BasicInfo int

const (
	InfoBoolean BasicInfo = 1 << iota
	InfoInteger
	InfoFloat
	InfoString
	InfoNumeric = InfoInteger | InfoFloat
)

// Basic represents a scalar type.
type Basic struct {
	typ
	kind  BasicKind
	info  BasicInfo
	width int // bits; 0 for non-integer kinds
	name  string
}

// Kind returns the kind of the basic type.
func (b *Basic) Kind() BasicKind {
	return b.kind
}

// Info returns information about the basic type.
func (b *Basic) Info() BasicInfo {
	return b.info
}

// Width returns the bit width of an integer or boolean type, or 0.
func (b *Basic) Width() int {
	return b.width
}

// Name returns the name of the basic type.
func (b *Basic) Name() string {
	return b.name
}

// String implements Type.
func (b *Basic) String() string {
	return b.name
}

// Typ holds the predeclared basic types, indexed by BasicKind.
// Typ[Invalid] is nil, representing an invalid type.
var Typ = []*Basic{
	Invalid: nil,
	Void:    {kind: Void, name: "void"},
	Bool:    {kind: Bool, info: InfoBoolean, width: 1, name: "bool"},
	Char:    {kind: Char, info: InfoInteger, width: 8, name: "char"},
	Int:     {kind: Int, info: InfoInteger, width: 32, name: "int"},
	Double:  {kind: Double, info: InfoFloat, name: "double"},
	String:  {kind: String, info: InfoString, name: "string"},
}
