package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented tree dump of the AST to w.
func Fprint(w io.Writer, node Node) {
	p := &printer{w: w}
	p.print(node)
}

type printer struct {
	w      io.Writer
	indent int
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, "%s%s", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

// section prints a labelled child one level deeper.
func (p *printer) section(label string, n Node) {
	p.printf("%s:\n", label)
	p.indent++
	p.print(n)
	p.indent--
}

func (p *printer) print(node Node) {
	if node == nil {
		return
	}

	switch n := node.(type) {
	case *File:
		p.printf("File\n")
		p.indent++
		for _, d := range n.Decls {
			p.print(d)
		}
		p.indent--

	case *VarDecl:
		p.printf("VarDecl %s %s\n", n.pos, n.Name)
		p.indent++
		if n.Type != "" {
			p.printf("Type: %s%s\n", n.Type, dimsString(n.Dims))
		}
		if n.Value != nil {
			p.section("Value", n.Value)
		}
		p.indent--

	case *FuncDecl:
		p.printf("FuncDecl %s %s\n", n.pos, n.Name)
		p.indent++
		if len(n.Params) > 0 {
			p.printf("Params:\n")
			p.indent++
			for _, f := range n.Params {
				p.printf("%s %s\n", f.Type, f.Name)
			}
			p.indent--
		}
		p.printf("Result: %s\n", n.Result)
		if n.Body != nil {
			p.section("Body", n.Body)
		} else {
			p.printf("Prototype\n")
		}
		p.indent--

	case *BlockStmt:
		p.printf("BlockStmt %s\n", n.pos)
		p.indent++
		for _, s := range n.Stmts {
			p.print(s)
		}
		p.indent--

	case *IfStmt:
		p.printf("IfStmt %s\n", n.pos)
		p.indent++
		p.section("Cond", n.Cond)
		p.section("Then", n.Then)
		if n.Else != nil {
			p.section("Else", n.Else)
		}
		p.indent--

	case *WhileStmt:
		p.printf("WhileStmt %s\n", n.pos)
		p.indent++
		p.section("Cond", n.Cond)
		p.section("Body", n.Body)
		if n.Update != nil {
			p.section("Update", n.Update)
		}
		p.indent--

	case *ReturnStmt:
		p.printf("ReturnStmt %s\n", n.pos)
		if n.Result != nil {
			p.indent++
			p.print(n.Result)
			p.indent--
		}

	case *BreakStmt:
		p.printf("BreakStmt %s\n", n.pos)

	case *ContinueStmt:
		p.printf("ContinueStmt %s\n", n.pos)

	case *ExprStmt:
		p.printf("ExprStmt %s\n", n.pos)
		p.indent++
		p.print(n.X)
		p.indent--

	case *PrintStmt:
		p.printf("PrintStmt %s\n", n.pos)
		p.indent++
		p.print(n.X)
		p.indent--

	case *AssertStmt:
		p.printf("AssertStmt %s\n", n.pos)
		p.indent++
		p.print(n.X)
		p.indent--

	case *IntegerLit:
		p.printf("IntegerLit %s %d\n", n.pos, n.Value)

	case *DoubleLit:
		p.printf("DoubleLit %s %s\n", n.pos, n.Lit)

	case *StringLit:
		p.printf("StringLit %s %s\n", n.pos, quote(n.Value, '"'))

	case *CharLit:
		p.printf("CharLit %s %s\n", n.pos, quote(string([]byte{n.Value}), '\''))

	case *BoolLit:
		p.printf("BoolLit %s %t\n", n.pos, n.Value)

	case *Variable:
		p.printf("Variable %s %s\n", n.pos, n.Name)

	case *FuncRef:
		p.printf("FuncRef %s %s\n", n.pos, n.Name)

	case *Unary:
		p.printf("Unary %s %s\n", n.pos, n.Op.Kind)
		p.indent++
		p.print(n.X)
		p.indent--

	case *Postfix:
		p.printf("Postfix %s %s\n", n.pos, n.Op.Kind)
		p.indent++
		p.print(n.X)
		p.indent--

	case *Binary:
		p.printf("Binary %s %s\n", n.pos, n.Op.Kind)
		p.indent++
		p.section("X", n.X)
		p.section("Y", n.Y)
		p.indent--

	case *Call:
		p.printf("Call %s\n", n.pos)
		p.indent++
		p.section("Fun", n.Fun)
		if len(n.Args) > 0 {
			p.printf("Args:\n")
			p.indent++
			for _, a := range n.Args {
				p.print(a)
			}
			p.indent--
		}
		p.indent--

	case *Index:
		p.printf("Index %s\n", n.pos)
		p.indent++
		p.section("X", n.X)
		p.printf("Indices:\n")
		p.indent++
		for _, i := range n.Indices {
			p.print(i)
		}
		p.indent--
		p.indent--

	default:
		p.printf("<%T>\n", node)
	}
}

// dimsString renders array dimensions as [2][3].
func dimsString(dims []int) string {
	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, "[%d]", d)
	}
	return b.String()
}
