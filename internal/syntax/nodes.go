package syntax

// ----------------------------------------------------------------------------
// Interfaces
//
// There are 2 classes of nodes: expressions and statements. Declarations
// are statements, since clox allows them wherever a statement may appear.
// The sets are closed: marker methods restrict implementations to this
// package, and every node dispatches to exactly one visitor method (see
// visitor.go).

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Pos // position of first character belonging to the node
	aNode()
}

// Expr is the interface for all expression nodes.
type Expr interface {
	Node
	// IsLvalue reports whether the expression denotes an assignable
	// location. Only *Variable and *Index do.
	IsLvalue() bool
	dispatchExpr(exprDispatcher)
}

// Stmt is the interface for all statement and declaration nodes.
type Stmt interface {
	Node
	dispatchStmt(stmtDispatcher)
}

// ----------------------------------------------------------------------------
// Base node types

type node struct {
	pos Pos
}

func (n *node) Pos() Pos { return n.pos }
func (n *node) aNode()   {}

type expr struct{ node }

func (*expr) IsLvalue() bool { return false }

type stmt struct{ node }

// ----------------------------------------------------------------------------
// Program

// File is a parsed program: its top-level declarations in source order.
type File struct {
	node
	Decls []Stmt
}

// ----------------------------------------------------------------------------
// Expressions

// IntegerLit is an integer literal: 42.
type IntegerLit struct {
	expr
	Value int64
}

// DoubleLit is a floating-point literal: 3.25.
type DoubleLit struct {
	expr
	Value float64
	Lit   string // source spelling
}

// StringLit is a string literal. Value is the decoded content.
type StringLit struct {
	expr
	Value string
}

// CharLit is a char literal: 'a', '\n'.
type CharLit struct {
	expr
	Value byte
}

// BoolLit is true or false.
type BoolLit struct {
	expr
	Value bool
}

// Variable is a reference to a variable by name, resolved when evaluated.
type Variable struct {
	expr
	Name string
}

func (*Variable) IsLvalue() bool { return true }

// Unary is a prefix operation: -X, !X, ++X, --X.
type Unary struct {
	expr
	Op Token
	X  Expr
}

// Binary is an infix operation, including assignment (Op.Kind == Assign).
// Compound assignments are desugared by the parser into X = X op Y, with
// a separate copy of X on each side.
type Binary struct {
	expr
	Op Token
	X  Expr
	Y  Expr
}

// Postfix is X++ or X--.
type Postfix struct {
	expr
	Op Token
	X  Expr
}

// Call is Fun(Args...).
type Call struct {
	expr
	Fun  Expr
	Args []Expr
}

// Index is X[i][j]...; all subscripts of one access are kept together so
// multi-dimensional arrays can be flattened row-major in one step.
type Index struct {
	expr
	X       Expr
	Indices []Expr
}

func (*Index) IsLvalue() bool { return true }

// FuncRef names a function declaration. The parser produces it for an
// identifier in callee position; the name is looked up when called.
type FuncRef struct {
	expr
	Name string
}

// CloneExpr returns a deep copy of x. Positions are kept.
func CloneExpr(x Expr) Expr {
	switch x := x.(type) {
	case *IntegerLit:
		c := *x
		return &c
	case *DoubleLit:
		c := *x
		return &c
	case *StringLit:
		c := *x
		return &c
	case *CharLit:
		c := *x
		return &c
	case *BoolLit:
		c := *x
		return &c
	case *Variable:
		c := *x
		return &c
	case *FuncRef:
		c := *x
		return &c
	case *Unary:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Postfix:
		c := *x
		c.X = CloneExpr(x.X)
		return &c
	case *Binary:
		c := *x
		c.X = CloneExpr(x.X)
		c.Y = CloneExpr(x.Y)
		return &c
	case *Call:
		c := *x
		c.Fun = CloneExpr(x.Fun)
		c.Args = cloneExprs(x.Args)
		return &c
	case *Index:
		c := *x
		c.X = CloneExpr(x.X)
		c.Indices = cloneExprs(x.Indices)
		return &c
	}
	return x
}

func cloneExprs(list []Expr) []Expr {
	if list == nil {
		return nil
	}
	out := make([]Expr, len(list))
	for i, x := range list {
		out[i] = CloneExpr(x)
	}
	return out
}

// ----------------------------------------------------------------------------
// Declarations

// TypeName spells a declared type: a type keyword such as "int", or ""
// for a var declaration whose kind comes from its initializer.
type TypeName string

// VarDecl declares a variable:
//
//	var Name = Value;
//	Type Name[Dims0][Dims1]... = Value;
type VarDecl struct {
	stmt
	Type  TypeName
	Name  string
	Dims  []int // array dimensions; nil for scalars
	Value Expr  // initializer; nil if none
}

// Param is one function parameter.
type Param struct {
	node
	Type TypeName
	Name string
}

// FuncDecl declares a function. A nil Body marks a prototype.
type FuncDecl struct {
	stmt
	Result TypeName
	Name   string
	Params []*Param
	Body   *BlockStmt
}

// IsPrototype reports whether d is a forward declaration without a body.
func (d *FuncDecl) IsPrototype() bool { return d.Body == nil }

// ----------------------------------------------------------------------------
// Statements

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	stmt
	X Expr
}

// BlockStmt is { Stmts... }. Statement order is significant.
type BlockStmt struct {
	stmt
	Stmts  []Stmt
	Rbrace Pos
}

// IfStmt is if (Cond) Then [else Else].
type IfStmt struct {
	stmt
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

// WhileStmt is while (Cond) Body. Update is set when the loop was
// desugared from a for statement; it runs after every iteration,
// including one cut short by continue, before Cond is tested again.
type WhileStmt struct {
	stmt
	Cond   Expr
	Body   Stmt
	Update Stmt // nil if absent
}

// BreakStmt is break;.
type BreakStmt struct {
	stmt
}

// ContinueStmt is continue;.
type ContinueStmt struct {
	stmt
}

// ReturnStmt is return [Result];.
type ReturnStmt struct {
	stmt
	Result Expr // nil for a bare return
}

// PrintStmt is print X;.
type PrintStmt struct {
	stmt
	X Expr
}

// AssertStmt is assert X;.
type AssertStmt struct {
	stmt
	X Expr
}
