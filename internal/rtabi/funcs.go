package rtabi

// C library functions referenced by emitted code. Compiled programs link
// against libc only.
const (
	FnPrintf  = "printf"
	FnPutchar = "putchar"
	FnAbort   = "abort"
	FnFflush  = "fflush"
)

// Symbols the compiler defines besides the program's own functions.
const (
	// Main is the entry point of a compiled program.
	Main = "main"

	// InitFunc runs the top-level statements of a program. main calls it
	// before anything else.
	InitFunc = "clox.init"

	// GlobalPrefix is prepended to the names of global variables so they
	// cannot collide with functions of the C library.
	GlobalPrefix = "g."
)

// printf formats used to render values, one per printable kind. They
// match the evaluator's output except that doubles go through %g.
const (
	FmtInt    = "%d\n"
	FmtDouble = "%g\n"
	FmtChar   = "%c\n"
	FmtString = "\"%s\"\n"
	FmtBool   = "%s\n"

	// FmtTrap is printed before abort when a runtime check fails.
	FmtTrap = "line %d: %s\n"
)

// printf formats for the elements of a printed array, which appear
// between brackets separated by ", ".
const (
	FmtElemInt    = "%d"
	FmtElemDouble = "%g"
	FmtElemChar   = "%c"
	FmtElemString = "\"%s\""
	FmtElemBool   = "%s"
)

// Spellings of boolean values passed to FmtBool.
const (
	TrueString  = "true"
	FalseString = "false"
)

// FuncSignature describes a runtime function's signature for code generation.
type FuncSignature struct {
	Name       string   // Function name
	ReturnType string   // LLVM return type ("void", "i32", etc.)
	ParamTypes []string // LLVM parameter types
	Variadic   bool     // Whether the function takes trailing varargs
	NoReturn   bool     // Whether function has noreturn attribute
}

// RuntimeFunctions returns the signatures of all runtime functions.
func RuntimeFunctions() []FuncSignature {
	return []FuncSignature{
		{Name: FnPrintf, ReturnType: LLVMTypeInt, ParamTypes: []string{LLVMTypePtr}, Variadic: true},
		{Name: FnPutchar, ReturnType: LLVMTypeInt, ParamTypes: []string{LLVMTypeInt}},
		{Name: FnFflush, ReturnType: LLVMTypeInt, ParamTypes: []string{LLVMTypePtr}},
		{Name: FnAbort, ReturnType: LLVMTypeVoid, NoReturn: true},
	}
}

// Lookup returns the signature of the runtime function name.
func Lookup(name string) (FuncSignature, bool) {
	for _, f := range RuntimeFunctions() {
		if f.Name == name {
			return f, true
		}
	}
	return FuncSignature{}, false
}
