package syntax

// ExprVisitor is implemented by passes that compute an R from every kind
// of expression. Adding an expression node adds a method here, so every
// visitor stops compiling until it handles the new node.
type ExprVisitor[R any] interface {
	VisitIntegerLit(*IntegerLit) (R, error)
	VisitDoubleLit(*DoubleLit) (R, error)
	VisitStringLit(*StringLit) (R, error)
	VisitCharLit(*CharLit) (R, error)
	VisitBoolLit(*BoolLit) (R, error)
	VisitVariable(*Variable) (R, error)
	VisitUnary(*Unary) (R, error)
	VisitBinary(*Binary) (R, error)
	VisitPostfix(*Postfix) (R, error)
	VisitCall(*Call) (R, error)
	VisitIndex(*Index) (R, error)
	VisitFuncRef(*FuncRef) (R, error)
}

// StmtVisitor is the statement counterpart of ExprVisitor.
type StmtVisitor[R any] interface {
	VisitVarDecl(*VarDecl) (R, error)
	VisitFuncDecl(*FuncDecl) (R, error)
	VisitExprStmt(*ExprStmt) (R, error)
	VisitBlockStmt(*BlockStmt) (R, error)
	VisitIfStmt(*IfStmt) (R, error)
	VisitWhileStmt(*WhileStmt) (R, error)
	VisitBreakStmt(*BreakStmt) (R, error)
	VisitContinueStmt(*ContinueStmt) (R, error)
	VisitReturnStmt(*ReturnStmt) (R, error)
	VisitPrintStmt(*PrintStmt) (R, error)
	VisitAssertStmt(*AssertStmt) (R, error)
}

// AcceptExpr dispatches x to the matching method of v.
func AcceptExpr[R any](x Expr, v ExprVisitor[R]) (R, error) {
	a := exprAdapter[R]{v: v}
	x.dispatchExpr(&a)
	return a.r, a.err
}

// AcceptStmt dispatches s to the matching method of v.
func AcceptStmt[R any](s Stmt, v StmtVisitor[R]) (R, error) {
	a := stmtAdapter[R]{v: v}
	s.dispatchStmt(&a)
	return a.r, a.err
}

// Interface methods cannot be generic, so nodes dispatch through these
// non-generic interfaces and the adapters forward to the typed visitor.

type exprDispatcher interface {
	integerLit(*IntegerLit)
	doubleLit(*DoubleLit)
	stringLit(*StringLit)
	charLit(*CharLit)
	boolLit(*BoolLit)
	variable(*Variable)
	unary(*Unary)
	binary(*Binary)
	postfix(*Postfix)
	call(*Call)
	index(*Index)
	funcRef(*FuncRef)
}

type stmtDispatcher interface {
	varDecl(*VarDecl)
	funcDecl(*FuncDecl)
	exprStmt(*ExprStmt)
	blockStmt(*BlockStmt)
	ifStmt(*IfStmt)
	whileStmt(*WhileStmt)
	breakStmt(*BreakStmt)
	continueStmt(*ContinueStmt)
	returnStmt(*ReturnStmt)
	printStmt(*PrintStmt)
	assertStmt(*AssertStmt)
}

func (x *IntegerLit) dispatchExpr(d exprDispatcher) { d.integerLit(x) }
func (x *DoubleLit) dispatchExpr(d exprDispatcher)  { d.doubleLit(x) }
func (x *StringLit) dispatchExpr(d exprDispatcher)  { d.stringLit(x) }
func (x *CharLit) dispatchExpr(d exprDispatcher)    { d.charLit(x) }
func (x *BoolLit) dispatchExpr(d exprDispatcher)    { d.boolLit(x) }
func (x *Variable) dispatchExpr(d exprDispatcher)   { d.variable(x) }
func (x *Unary) dispatchExpr(d exprDispatcher)      { d.unary(x) }
func (x *Binary) dispatchExpr(d exprDispatcher)     { d.binary(x) }
func (x *Postfix) dispatchExpr(d exprDispatcher)    { d.postfix(x) }
func (x *Call) dispatchExpr(d exprDispatcher)       { d.call(x) }
func (x *Index) dispatchExpr(d exprDispatcher)      { d.index(x) }
func (x *FuncRef) dispatchExpr(d exprDispatcher)    { d.funcRef(x) }

func (s *VarDecl) dispatchStmt(d stmtDispatcher)      { d.varDecl(s) }
func (s *FuncDecl) dispatchStmt(d stmtDispatcher)     { d.funcDecl(s) }
func (s *ExprStmt) dispatchStmt(d stmtDispatcher)     { d.exprStmt(s) }
func (s *BlockStmt) dispatchStmt(d stmtDispatcher)    { d.blockStmt(s) }
func (s *IfStmt) dispatchStmt(d stmtDispatcher)       { d.ifStmt(s) }
func (s *WhileStmt) dispatchStmt(d stmtDispatcher)    { d.whileStmt(s) }
func (s *BreakStmt) dispatchStmt(d stmtDispatcher)    { d.breakStmt(s) }
func (s *ContinueStmt) dispatchStmt(d stmtDispatcher) { d.continueStmt(s) }
func (s *ReturnStmt) dispatchStmt(d stmtDispatcher)   { d.returnStmt(s) }
func (s *PrintStmt) dispatchStmt(d stmtDispatcher)    { d.printStmt(s) }
func (s *AssertStmt) dispatchStmt(d stmtDispatcher)   { d.assertStmt(s) }

type exprAdapter[R any] struct {
	v   ExprVisitor[R]
	r   R
	err error
}

func (a *exprAdapter[R]) integerLit(x *IntegerLit) { a.r, a.err = a.v.VisitIntegerLit(x) }
func (a *exprAdapter[R]) doubleLit(x *DoubleLit)   { a.r, a.err = a.v.VisitDoubleLit(x) }
func (a *exprAdapter[R]) stringLit(x *StringLit)   { a.r, a.err = a.v.VisitStringLit(x) }
func (a *exprAdapter[R]) charLit(x *CharLit)       { a.r, a.err = a.v.VisitCharLit(x) }
func (a *exprAdapter[R]) boolLit(x *BoolLit)       { a.r, a.err = a.v.VisitBoolLit(x) }
func (a *exprAdapter[R]) variable(x *Variable)     { a.r, a.err = a.v.VisitVariable(x) }
func (a *exprAdapter[R]) unary(x *Unary)           { a.r, a.err = a.v.VisitUnary(x) }
func (a *exprAdapter[R]) binary(x *Binary)         { a.r, a.err = a.v.VisitBinary(x) }
func (a *exprAdapter[R]) postfix(x *Postfix)       { a.r, a.err = a.v.VisitPostfix(x) }
func (a *exprAdapter[R]) call(x *Call)             { a.r, a.err = a.v.VisitCall(x) }
func (a *exprAdapter[R]) index(x *Index)           { a.r, a.err = a.v.VisitIndex(x) }
func (a *exprAdapter[R]) funcRef(x *FuncRef)       { a.r, a.err = a.v.VisitFuncRef(x) }

type stmtAdapter[R any] struct {
	v   StmtVisitor[R]
	r   R
	err error
}

func (a *stmtAdapter[R]) varDecl(s *VarDecl)           { a.r, a.err = a.v.VisitVarDecl(s) }
func (a *stmtAdapter[R]) funcDecl(s *FuncDecl)         { a.r, a.err = a.v.VisitFuncDecl(s) }
func (a *stmtAdapter[R]) exprStmt(s *ExprStmt)         { a.r, a.err = a.v.VisitExprStmt(s) }
func (a *stmtAdapter[R]) blockStmt(s *BlockStmt)       { a.r, a.err = a.v.VisitBlockStmt(s) }
func (a *stmtAdapter[R]) ifStmt(s *IfStmt)             { a.r, a.err = a.v.VisitIfStmt(s) }
func (a *stmtAdapter[R]) whileStmt(s *WhileStmt)       { a.r, a.err = a.v.VisitWhileStmt(s) }
func (a *stmtAdapter[R]) breakStmt(s *BreakStmt)       { a.r, a.err = a.v.VisitBreakStmt(s) }
func (a *stmtAdapter[R]) continueStmt(s *ContinueStmt) { a.r, a.err = a.v.VisitContinueStmt(s) }
func (a *stmtAdapter[R]) returnStmt(s *ReturnStmt)     { a.r, a.err = a.v.VisitReturnStmt(s) }
func (a *stmtAdapter[R]) printStmt(s *PrintStmt)       { a.r, a.err = a.v.VisitPrintStmt(s) }
func (a *stmtAdapter[R]) assertStmt(s *AssertStmt)     { a.r, a.err = a.v.VisitAssertStmt(s) }
