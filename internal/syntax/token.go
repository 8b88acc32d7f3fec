// Package syntax implements lexical and syntactic analysis for clox.
package syntax

import "fmt"

// Kind is the lexical class of a token.
type Kind uint

const (
	// Special tokens
	_EOF Kind = iota // past the last token; never produced by Scan

	// Literals
	_Name   // identifier: foo, gcd, a1
	_Number // 123, 3.25
	_String // "hello" (Lexeme holds the decoded content)
	_Char   // 'a', '\n' (Lexeme holds the decoded byte)

	// Assignment operators
	_Assign    // =
	_AddAssign // +=
	_SubAssign // -=
	_MulAssign // *=
	_DivAssign // /=
	_RemAssign // %=

	// Comparison operators
	_Eql // ==
	_Neq // !=
	_Lss // <
	_Leq // <=
	_Gtr // >
	_Geq // >=

	// Arithmetic operators
	_Add // +
	_Sub // -
	_Mul // *
	_Div // /
	_Rem // %

	// Unary operators
	_Not // !
	_Inc // ++
	_Dec // --

	_Arrow // ->

	// Delimiters
	_Lparen // (
	_Rparen // )
	_Lbrack // [
	_Rbrack // ]
	_Lbrace // {
	_Rbrace // }
	_Comma  // ,
	_Semi   // ;
	_Dot    // .

	// Keywords
	_Assert
	_Break
	_Continue
	_Else
	_False
	_For
	_If
	_Print
	_Return
	_True
	_Var
	_While

	// Type keywords
	_Bool
	_CharType
	_Double
	_Int
	_StringType
	_Void

	// Reserved words
	_And
	_Class
	_Nil
	_Or
	_Super
	_This

	kindCount
)

var kindNames = [...]string{
	_EOF: "EOF",

	_Name:   "IDENTIFIER",
	_Number: "NUMBER",
	_String: "STRING",
	_Char:   "CHAR",

	_Assign:    "=",
	_AddAssign: "+=",
	_SubAssign: "-=",
	_MulAssign: "*=",
	_DivAssign: "/=",
	_RemAssign: "%=",

	_Eql: "==",
	_Neq: "!=",
	_Lss: "<",
	_Leq: "<=",
	_Gtr: ">",
	_Geq: ">=",

	_Add: "+",
	_Sub: "-",
	_Mul: "*",
	_Div: "/",
	_Rem: "%",

	_Not: "!",
	_Inc: "++",
	_Dec: "--",

	_Arrow: "->",

	_Lparen: "(",
	_Rparen: ")",
	_Lbrack: "[",
	_Rbrack: "]",
	_Lbrace: "{",
	_Rbrace: "}",
	_Comma:  ",",
	_Semi:   ";",
	_Dot:    ".",

	_Assert:   "assert",
	_Break:    "break",
	_Continue: "continue",
	_Else:     "else",
	_False:    "false",
	_For:      "for",
	_If:       "if",
	_Print:    "print",
	_Return:   "return",
	_True:     "true",
	_Var:      "var",
	_While:    "while",

	_Bool:       "bool",
	_CharType:   "char",
	_Double:     "double",
	_Int:        "int",
	_StringType: "string",
	_Void:       "void",

	_And:   "and",
	_Class: "class",
	_Nil:   "nil",
	_Or:    "or",
	_Super: "super",
	_This:  "this",
}

// String returns the spelling of k (or its class name for literals).
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Precedence returns the binding power of a binary operator, or 0.
//
//	1: == !=
//	2: < <= > >=
//	3: + -
//	4: * / %
func (k Kind) Precedence() int {
	switch k {
	case _Eql, _Neq:
		return 1
	case _Lss, _Leq, _Gtr, _Geq:
		return 2
	case _Add, _Sub:
		return 3
	case _Mul, _Div, _Rem:
		return 4
	}
	return 0
}

// IsKeyword reports whether k is a keyword, including type and reserved words.
func (k Kind) IsKeyword() bool {
	return k >= _Assert && k <= _This
}

// IsTypeName reports whether k starts a type in a declaration.
func (k Kind) IsTypeName() bool {
	return k >= _Bool && k <= _Void
}

// IsReserved reports whether k is reserved for future use.
func (k Kind) IsReserved() bool {
	return k >= _And && k <= _This
}

// IsAssign reports whether k is = or a compound assignment.
func (k Kind) IsAssign() bool {
	return k >= _Assign && k <= _RemAssign
}

// Underlying returns the arithmetic operator a compound assignment
// applies, e.g. _Add for +=. Other kinds are returned unchanged.
func (k Kind) Underlying() Kind {
	switch k {
	case _AddAssign:
		return _Add
	case _SubAssign:
		return _Sub
	case _MulAssign:
		return _Mul
	case _DivAssign:
		return _Div
	case _RemAssign:
		return _Rem
	}
	return k
}

// Exported operator kinds for the evaluator and the IR builder.
const (
	Assign Kind = _Assign // =

	Eql Kind = _Eql // ==
	Neq Kind = _Neq // !=
	Lss Kind = _Lss // <
	Leq Kind = _Leq // <=
	Gtr Kind = _Gtr // >
	Geq Kind = _Geq // >=

	Add Kind = _Add // +
	Sub Kind = _Sub // -
	Mul Kind = _Mul // *
	Div Kind = _Div // /
	Rem Kind = _Rem // %

	Not Kind = _Not // !
	Inc Kind = _Inc // ++
	Dec Kind = _Dec // --
)

// keywords maps reserved spellings to their kind.
var keywords = map[string]Kind{
	"assert":   _Assert,
	"break":    _Break,
	"continue": _Continue,
	"else":     _Else,
	"false":    _False,
	"for":      _For,
	"if":       _If,
	"print":    _Print,
	"return":   _Return,
	"true":     _True,
	"var":      _Var,
	"while":    _While,

	"bool":   _Bool,
	"char":   _CharType,
	"double": _Double,
	"int":    _Int,
	"string": _StringType,
	"void":   _Void,

	"and":   _And,
	"class": _Class,
	"nil":   _Nil,
	"or":    _Or,
	"super": _Super,
	"this":  _This,
}

// LookupKeyword returns the keyword kind for ident, or _Name.
func LookupKeyword(ident string) Kind {
	if k, ok := keywords[ident]; ok {
		return k
	}
	return _Name
}

// Pos is a source position. The zero value is invalid.
type Pos struct {
	line uint32 // 1-based
	col  uint32 // 1-based byte offset in line
}

// NewPos returns the position line:col.
func NewPos(line, col uint32) Pos {
	return Pos{line: line, col: col}
}

// String returns "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.line, p.col)
}

// IsValid reports whether p refers to a real location.
func (p Pos) IsValid() bool { return p.line > 0 }

// Line returns the 1-based line number.
func (p Pos) Line() uint32 { return p.line }

// Col returns the 1-based column.
func (p Pos) Col() uint32 { return p.col }

// Token is one lexeme produced by the scanner. Tokens are immutable.
type Token struct {
	Kind   Kind
	Lexeme string
	Pos    Pos
}

// Line returns the line the token starts on.
func (t Token) Line() uint32 { return t.Pos.line }

// String formats t the way -emit-tokens prints it.
func (t Token) String() string {
	switch t.Kind {
	case _Name, _Number:
		return fmt.Sprintf("line %d: %s %s", t.Pos.line, t.Kind, t.Lexeme)
	case _String:
		return fmt.Sprintf("line %d: %s %s", t.Pos.line, t.Kind, quote(t.Lexeme, '"'))
	case _Char:
		return fmt.Sprintf("line %d: %s %s", t.Pos.line, t.Kind, quote(t.Lexeme, '\''))
	}
	return fmt.Sprintf("line %d: %s", t.Pos.line, t.Kind)
}
