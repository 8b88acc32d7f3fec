package syntax

import (
	"bufio"
	"fmt"
	"io"
)

// FprintDot writes the AST of f as a Graphviz digraph to w. Each node is
// labelled with its kind and payload; edges are labelled with the field
// that holds the child.
func FprintDot(w io.Writer, f *File) error {
	g := &dotGraph{w: bufio.NewWriter(w)}
	fmt.Fprintln(g.w, "digraph AST {")
	fmt.Fprintln(g.w, "  node [shape=box, fontname=monospace];")
	root := g.node("File")
	for _, d := range f.Decls {
		g.edge(root, g.stmt(d), "")
	}
	fmt.Fprintln(g.w, "}")
	return g.w.Flush()
}

type dotGraph struct {
	w    *bufio.Writer
	next int
}

func (g *dotGraph) node(label string) int {
	id := g.next
	g.next++
	fmt.Fprintf(g.w, "  n%d [label=%q];\n", id, label)
	return id
}

func (g *dotGraph) edge(from, to int, label string) {
	if label == "" {
		fmt.Fprintf(g.w, "  n%d -> n%d;\n", from, to)
		return
	}
	fmt.Fprintf(g.w, "  n%d -> n%d [label=%q];\n", from, to, label)
}

func (g *dotGraph) expr(x Expr) int {
	id, _ := AcceptExpr[int](x, g)
	return id
}

func (g *dotGraph) stmt(s Stmt) int {
	id, _ := AcceptStmt[int](s, g)
	return id
}

func (g *dotGraph) VisitIntegerLit(x *IntegerLit) (int, error) {
	return g.node(fmt.Sprintf("Integer %d", x.Value)), nil
}

func (g *dotGraph) VisitDoubleLit(x *DoubleLit) (int, error) {
	return g.node("Double " + FormatExpr(x)), nil
}

func (g *dotGraph) VisitStringLit(x *StringLit) (int, error) {
	return g.node("String " + FormatExpr(x)), nil
}

func (g *dotGraph) VisitCharLit(x *CharLit) (int, error) {
	return g.node("Char " + FormatExpr(x)), nil
}

func (g *dotGraph) VisitBoolLit(x *BoolLit) (int, error) {
	return g.node(fmt.Sprintf("Bool %t", x.Value)), nil
}

func (g *dotGraph) VisitVariable(x *Variable) (int, error) {
	return g.node("Variable " + x.Name), nil
}

func (g *dotGraph) VisitFuncRef(x *FuncRef) (int, error) {
	return g.node("Function " + x.Name), nil
}

func (g *dotGraph) VisitUnary(x *Unary) (int, error) {
	id := g.node("Unary " + x.Op.Kind.String())
	g.edge(id, g.expr(x.X), "")
	return id, nil
}

func (g *dotGraph) VisitPostfix(x *Postfix) (int, error) {
	id := g.node("Postfix " + x.Op.Kind.String())
	g.edge(id, g.expr(x.X), "")
	return id, nil
}

func (g *dotGraph) VisitBinary(x *Binary) (int, error) {
	id := g.node("Binary " + x.Op.Kind.String())
	g.edge(id, g.expr(x.X), "x")
	g.edge(id, g.expr(x.Y), "y")
	return id, nil
}

func (g *dotGraph) VisitCall(x *Call) (int, error) {
	id := g.node("Call")
	g.edge(id, g.expr(x.Fun), "fun")
	for i, a := range x.Args {
		g.edge(id, g.expr(a), fmt.Sprintf("arg%d", i))
	}
	return id, nil
}

func (g *dotGraph) VisitIndex(x *Index) (int, error) {
	id := g.node("Index")
	g.edge(id, g.expr(x.X), "x")
	for i, ix := range x.Indices {
		g.edge(id, g.expr(ix), fmt.Sprintf("i%d", i))
	}
	return id, nil
}

func (g *dotGraph) VisitVarDecl(s *VarDecl) (int, error) {
	typ := string(s.Type)
	if typ == "" {
		typ = "var"
	}
	id := g.node(fmt.Sprintf("VarDecl %s %s%s", typ, s.Name, dimsString(s.Dims)))
	if s.Value != nil {
		g.edge(id, g.expr(s.Value), "init")
	}
	return id, nil
}

func (g *dotGraph) VisitFuncDecl(s *FuncDecl) (int, error) {
	sig := string(s.Result) + " " + s.Name + "("
	for i, p := range s.Params {
		if i > 0 {
			sig += ", "
		}
		sig += string(p.Type) + " " + p.Name
	}
	sig += ")"
	id := g.node("FuncDecl " + sig)
	if s.Body != nil {
		g.edge(id, g.stmt(s.Body), "body")
	}
	return id, nil
}

func (g *dotGraph) VisitExprStmt(s *ExprStmt) (int, error) {
	id := g.node("ExprStmt")
	g.edge(id, g.expr(s.X), "")
	return id, nil
}

func (g *dotGraph) VisitBlockStmt(s *BlockStmt) (int, error) {
	id := g.node("Block")
	for _, st := range s.Stmts {
		g.edge(id, g.stmt(st), "")
	}
	return id, nil
}

func (g *dotGraph) VisitIfStmt(s *IfStmt) (int, error) {
	id := g.node("If")
	g.edge(id, g.expr(s.Cond), "cond")
	g.edge(id, g.stmt(s.Then), "then")
	if s.Else != nil {
		g.edge(id, g.stmt(s.Else), "else")
	}
	return id, nil
}

func (g *dotGraph) VisitWhileStmt(s *WhileStmt) (int, error) {
	id := g.node("While")
	g.edge(id, g.expr(s.Cond), "cond")
	g.edge(id, g.stmt(s.Body), "body")
	if s.Update != nil {
		g.edge(id, g.stmt(s.Update), "update")
	}
	return id, nil
}

func (g *dotGraph) VisitBreakStmt(*BreakStmt) (int, error) {
	return g.node("Break"), nil
}

func (g *dotGraph) VisitContinueStmt(*ContinueStmt) (int, error) {
	return g.node("Continue"), nil
}

func (g *dotGraph) VisitReturnStmt(s *ReturnStmt) (int, error) {
	id := g.node("Return")
	if s.Result != nil {
		g.edge(id, g.expr(s.Result), "")
	}
	return id, nil
}

func (g *dotGraph) VisitPrintStmt(s *PrintStmt) (int, error) {
	id := g.node("Print")
	g.edge(id, g.expr(s.X), "")
	return id, nil
}

func (g *dotGraph) VisitAssertStmt(s *AssertStmt) (int, error) {
	id := g.node("Assert")
	g.edge(id, g.expr(s.X), "")
	return id, nil
}
