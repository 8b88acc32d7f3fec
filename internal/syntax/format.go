package syntax

import (
	"strconv"
	"strings"
)

// Format renders f as clox source. Every operation is parenthesized, so
// parsing the output yields the same tree (for statements desugared from
// for loops, an equivalent for loop is printed).
func Format(f *File) string {
	var b strings.Builder
	fm := &formatter{}
	for _, d := range f.Decls {
		b.WriteString(fm.stmt(d))
	}
	return b.String()
}

// FormatExpr renders x as fully parenthesized clox source.
func FormatExpr(x Expr) string {
	return (&formatter{}).expr(x)
}

// FormatStmt renders s as clox source, one statement per line.
func FormatStmt(s Stmt) string {
	return (&formatter{}).stmt(s)
}

type formatter struct {
	indent int
}

func (f *formatter) expr(x Expr) string {
	s, _ := AcceptExpr[string](x, f)
	return s
}

func (f *formatter) stmt(s Stmt) string {
	r, _ := AcceptStmt[string](s, f)
	return r
}

func (f *formatter) tab() string { return strings.Repeat("\t", f.indent) }

// nested renders a child statement; non-block children are indented.
func (f *formatter) nested(s Stmt) string {
	if _, ok := s.(*BlockStmt); ok {
		return f.stmt(s)
	}
	f.indent++
	defer func() { f.indent-- }()
	return f.stmt(s)
}

func (f *formatter) VisitIntegerLit(x *IntegerLit) (string, error) {
	return strconv.FormatInt(x.Value, 10), nil
}

func (f *formatter) VisitDoubleLit(x *DoubleLit) (string, error) {
	if x.Lit != "" {
		return x.Lit, nil
	}
	s := strconv.FormatFloat(x.Value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s, nil
}

func (f *formatter) VisitStringLit(x *StringLit) (string, error) {
	return quote(x.Value, '"'), nil
}

func (f *formatter) VisitCharLit(x *CharLit) (string, error) {
	return quote(string([]byte{x.Value}), '\''), nil
}

func (f *formatter) VisitBoolLit(x *BoolLit) (string, error) {
	return strconv.FormatBool(x.Value), nil
}

func (f *formatter) VisitVariable(x *Variable) (string, error) { return x.Name, nil }

func (f *formatter) VisitFuncRef(x *FuncRef) (string, error) { return x.Name, nil }

func (f *formatter) VisitUnary(x *Unary) (string, error) {
	return "(" + x.Op.Kind.String() + f.expr(x.X) + ")", nil
}

func (f *formatter) VisitPostfix(x *Postfix) (string, error) {
	return "(" + f.expr(x.X) + x.Op.Kind.String() + ")", nil
}

func (f *formatter) VisitBinary(x *Binary) (string, error) {
	return "(" + f.expr(x.X) + " " + x.Op.Kind.String() + " " + f.expr(x.Y) + ")", nil
}

func (f *formatter) VisitCall(x *Call) (string, error) {
	args := make([]string, len(x.Args))
	for i, a := range x.Args {
		args[i] = f.expr(a)
	}
	return f.expr(x.Fun) + "(" + strings.Join(args, ", ") + ")", nil
}

func (f *formatter) VisitIndex(x *Index) (string, error) {
	var b strings.Builder
	b.WriteString(f.expr(x.X))
	for _, i := range x.Indices {
		b.WriteString("[" + f.expr(i) + "]")
	}
	return b.String(), nil
}

func (f *formatter) VisitVarDecl(s *VarDecl) (string, error) {
	var b strings.Builder
	b.WriteString(f.tab())
	if s.Type == "" {
		b.WriteString("var " + s.Name)
	} else {
		b.WriteString(string(s.Type) + " " + s.Name + dimsString(s.Dims))
	}
	if s.Value != nil {
		b.WriteString(" = " + f.expr(s.Value))
	}
	b.WriteString(";\n")
	return b.String(), nil
}

func (f *formatter) VisitFuncDecl(s *FuncDecl) (string, error) {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = string(p.Type) + " " + p.Name
	}
	head := f.tab() + string(s.Result) + " " + s.Name + "(" + strings.Join(params, ", ") + ")"
	if s.Body == nil {
		return head + ";\n", nil
	}
	return head + "\n" + f.stmt(s.Body), nil
}

func (f *formatter) VisitExprStmt(s *ExprStmt) (string, error) {
	return f.tab() + f.expr(s.X) + ";\n", nil
}

func (f *formatter) VisitBlockStmt(s *BlockStmt) (string, error) {
	var b strings.Builder
	b.WriteString(f.tab() + "{\n")
	f.indent++
	for _, st := range s.Stmts {
		b.WriteString(f.stmt(st))
	}
	f.indent--
	b.WriteString(f.tab() + "}\n")
	return b.String(), nil
}

func (f *formatter) VisitIfStmt(s *IfStmt) (string, error) {
	out := f.tab() + "if (" + f.expr(s.Cond) + ")\n" + f.nested(s.Then)
	if s.Else != nil {
		out += f.tab() + "else\n" + f.nested(s.Else)
	}
	return out, nil
}

func (f *formatter) VisitWhileStmt(s *WhileStmt) (string, error) {
	if s.Update == nil {
		return f.tab() + "while (" + f.expr(s.Cond) + ")\n" + f.nested(s.Body), nil
	}
	upd := ""
	if es, ok := s.Update.(*ExprStmt); ok {
		upd = f.expr(es.X)
	}
	return f.tab() + "for (; " + f.expr(s.Cond) + "; " + upd + ")\n" + f.nested(s.Body), nil
}

func (f *formatter) VisitBreakStmt(*BreakStmt) (string, error) {
	return f.tab() + "break;\n", nil
}

func (f *formatter) VisitContinueStmt(*ContinueStmt) (string, error) {
	return f.tab() + "continue;\n", nil
}

func (f *formatter) VisitReturnStmt(s *ReturnStmt) (string, error) {
	if s.Result == nil {
		return f.tab() + "return;\n", nil
	}
	return f.tab() + "return " + f.expr(s.Result) + ";\n", nil
}

func (f *formatter) VisitPrintStmt(s *PrintStmt) (string, error) {
	return f.tab() + "print " + f.expr(s.X) + ";\n", nil
}

func (f *formatter) VisitAssertStmt(s *AssertStmt) (string, error) {
	return f.tab() + "assert " + f.expr(s.X) + ";\n", nil
}
