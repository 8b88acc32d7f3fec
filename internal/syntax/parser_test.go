package syntax

import (
	"errors"
	"strings"
	"testing"

	"github.com/you-not-fish/clox/internal/diag"
)

// ----------------------------------------------------------------------------
// Test helpers

func parseFile(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return f
}

func parseExpr(t *testing.T, src string) Expr {
	t.Helper()
	x, err := ParseExpr([]byte(src))
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", src, err)
	}
	return x
}

// ----------------------------------------------------------------------------
// Expressions

func TestParseExprShape(t *testing.T) {
	tests := []struct {
		src  string
		want string // fully parenthesized form
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"8 / 4 % 3", "((8 / 4) % 3)"},
		{"a < b == c >= d", "((a < b) == (c >= d))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a = b = 3", "(a = (b = 3))"},
		{"x += 2", "(x = (x + 2))"},
		{"a[i] *= y - 1", "(a[i] = (a[i] * (y - 1)))"},
		{"x %= 3", "(x = (x % 3))"},
		{"-!x", "(-(!x))"},
		{"!-x + 1", "((!(-x)) + 1)"},
		{"- -x", "(-(-x))"},
		{"++x", "(++x)"},
		{"--x", "(--x)"},
		{"x++", "(x++)"},
		{"x++--", "((x++)--)"},
		{"-x++", "(-(x++))"},
		{"f(1, a + b)", "f(1, (a + b))"},
		{"f()", "f()"},
		{"g(1)(2)", "g(1)(2)"},
		{"a[1][2]", "a[1][2]"},
		{"a[i + 1]", "a[(i + 1)]"},
		{"2.5 * 'c'", "(2.5 * 'c')"},
		{`"ab" + "cd"`, `("ab" + "cd")`},
		{"true != false", "(true != false)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			x := parseExpr(t, tt.src)
			if got := FormatExpr(x); got != tt.want {
				t.Errorf("FormatExpr = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseLiterals(t *testing.T) {
	if x, ok := parseExpr(t, "42").(*IntegerLit); !ok || x.Value != 42 {
		t.Errorf("42 parsed as %#v", x)
	}
	if x, ok := parseExpr(t, "3.5").(*DoubleLit); !ok || x.Value != 3.5 || x.Lit != "3.5" {
		t.Errorf("3.5 parsed as %#v", x)
	}
	if x, ok := parseExpr(t, "2.0").(*DoubleLit); !ok || x.Value != 2 {
		t.Errorf("2.0 parsed as %#v", x)
	}
	if x, ok := parseExpr(t, `"a\tb"`).(*StringLit); !ok || x.Value != "a\tb" {
		t.Errorf("string parsed as %#v", x)
	}
	if x, ok := parseExpr(t, `'\n'`).(*CharLit); !ok || x.Value != '\n' {
		t.Errorf("char parsed as %#v", x)
	}
	if x, ok := parseExpr(t, "false").(*BoolLit); !ok || x.Value {
		t.Errorf("false parsed as %#v", x)
	}
}

func TestParseCallee(t *testing.T) {
	call, ok := parseExpr(t, "gcd(a, b)").(*Call)
	if !ok {
		t.Fatal("not a call")
	}
	ref, ok := call.Fun.(*FuncRef)
	if !ok {
		t.Fatalf("callee = %T, want *FuncRef", call.Fun)
	}
	if ref.Name != "gcd" || len(call.Args) != 2 {
		t.Errorf("call = %s", FormatExpr(call))
	}
	if call.IsLvalue() || ref.IsLvalue() {
		t.Error("call or function reference reported as lvalue")
	}

	// Only the innermost callee is a function reference.
	outer := parseExpr(t, "g(1)(2)").(*Call)
	if _, ok := outer.Fun.(*Call); !ok {
		t.Errorf("outer callee = %T, want *Call", outer.Fun)
	}
}

func TestParseIndexGroupsSubscripts(t *testing.T) {
	ix, ok := parseExpr(t, "a[1][2][3]").(*Index)
	if !ok {
		t.Fatal("not an index expression")
	}
	if len(ix.Indices) != 3 {
		t.Errorf("got %d indices, want 3", len(ix.Indices))
	}
	if v, ok := ix.X.(*Variable); !ok || v.Name != "a" {
		t.Errorf("base = %#v", ix.X)
	}
	if !ix.IsLvalue() {
		t.Error("index not an lvalue")
	}
}

func TestParseOperatorTokens(t *testing.T) {
	b := parseExpr(t, "x\n+\ny").(*Binary)
	if b.Op.Kind != Add || b.Op.Line() != 2 || b.Op.Lexeme != "+" {
		t.Errorf("operator token = %+v", b.Op)
	}

	as := parseExpr(t, "x -= 1").(*Binary)
	if as.Op.Kind != Assign {
		t.Fatalf("compound assignment op = %v, want =", as.Op.Kind)
	}
	rhs := as.Y.(*Binary)
	if rhs.Op.Kind != Sub || rhs.Op.Lexeme != "-" {
		t.Errorf("desugared op = %+v", rhs.Op)
	}
}

func TestCompoundAssignmentIsATree(t *testing.T) {
	as := parseExpr(t, "a[i][j + 1] *= 2").(*Binary)
	rhs := as.Y.(*Binary)
	if as.X == rhs.X {
		t.Fatal("target shared between both sides of the assignment")
	}
	if got, want := FormatExpr(as), "(a[i][(j + 1)] = (a[i][(j + 1)] * 2))"; got != want {
		t.Errorf("desugared = %s, want %s", got, want)
	}

	seen := make(map[Node]bool)
	Inspect(as, func(n Node) bool {
		if seen[n] {
			t.Errorf("node %#v reached twice", n)
		}
		seen[n] = true
		return true
	})
	if rhs.X.Pos() != as.X.Pos() {
		t.Errorf("copy at %v, target at %v", rhs.X.Pos(), as.X.Pos())
	}
}

// ----------------------------------------------------------------------------
// Declarations and statements

func TestParseDeclarations(t *testing.T) {
	f := parseFile(t, `
int putchar(int c);
double half(int n) { return n / 2.0; }
var g = 1;
int a[2][3];
char s[6] = "hello";
bool ok = true;
`)
	if len(f.Decls) != 6 {
		t.Fatalf("got %d decls, want 6", len(f.Decls))
	}

	proto := f.Decls[0].(*FuncDecl)
	if !proto.IsPrototype() || proto.Result != "int" || proto.Name != "putchar" {
		t.Errorf("prototype = %+v", proto)
	}
	if len(proto.Params) != 1 || proto.Params[0].Type != "int" || proto.Params[0].Name != "c" {
		t.Errorf("prototype params = %+v", proto.Params)
	}

	half := f.Decls[1].(*FuncDecl)
	if half.IsPrototype() || half.Result != "double" || len(half.Body.Stmts) != 1 {
		t.Errorf("half = %+v", half)
	}

	g := f.Decls[2].(*VarDecl)
	if g.Type != "" || g.Name != "g" || g.Value == nil {
		t.Errorf("var decl = %+v", g)
	}

	a := f.Decls[3].(*VarDecl)
	if a.Type != "int" || len(a.Dims) != 2 || a.Dims[0] != 2 || a.Dims[1] != 3 || a.Value != nil {
		t.Errorf("array decl = %+v", a)
	}

	s := f.Decls[4].(*VarDecl)
	if s.Type != "char" || len(s.Dims) != 1 || s.Dims[0] != 6 {
		t.Errorf("char array decl = %+v", s)
	}
	if _, ok := s.Value.(*StringLit); !ok {
		t.Errorf("char array init = %T", s.Value)
	}
}

func TestParseStatements(t *testing.T) {
	f := parseFile(t, `
int main() {
	if (x) y = 1; else { y = 2; }
	while (i < 10) { if (i == 5) break; i++; continue; }
	print "hi";
	assert y == 2;
	return;
}
`)
	body := f.Decls[0].(*FuncDecl).Body
	if len(body.Stmts) != 5 {
		t.Fatalf("got %d statements, want 5", len(body.Stmts))
	}

	is := body.Stmts[0].(*IfStmt)
	if _, ok := is.Then.(*ExprStmt); !ok {
		t.Errorf("then = %T", is.Then)
	}
	if _, ok := is.Else.(*BlockStmt); !ok {
		t.Errorf("else = %T", is.Else)
	}

	ws := body.Stmts[1].(*WhileStmt)
	if ws.Update != nil {
		t.Error("plain while has an update")
	}
	loop := ws.Body.(*BlockStmt)
	if _, ok := loop.Stmts[0].(*IfStmt).Then.(*BreakStmt); !ok {
		t.Error("break not parsed")
	}
	if _, ok := loop.Stmts[2].(*ContinueStmt); !ok {
		t.Error("continue not parsed")
	}

	if _, ok := body.Stmts[2].(*PrintStmt); !ok {
		t.Errorf("print = %T", body.Stmts[2])
	}
	if _, ok := body.Stmts[3].(*AssertStmt); !ok {
		t.Errorf("assert = %T", body.Stmts[3])
	}
	if r := body.Stmts[4].(*ReturnStmt); r.Result != nil {
		t.Error("bare return has a result")
	}
}

func TestParseForDesugars(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantBlock bool
		wantCond  string
		wantUpd   string
	}{
		{"full", "for (int i = 0; i < 3; i++) s += i;", true, "(i < 3)", "(i++)"},
		{"var_init", "for (var i = 0; i < 3; i = i + 1) {}", true, "(i < 3)", "(i = (i + 1))"},
		{"expr_init", "for (i = 0; i < 3;) {}", true, "(i < 3)", ""},
		{"no_init", "for (; i < 3; i++) {}", false, "(i < 3)", "(i++)"},
		{"forever", "for (;;) break;", false, "true", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseFile(t, tt.src)
			var loop *WhileStmt
			if tt.wantBlock {
				b, ok := f.Decls[0].(*BlockStmt)
				if !ok {
					t.Fatalf("got %T, want *BlockStmt", f.Decls[0])
				}
				if len(b.Stmts) != 2 {
					t.Fatalf("block has %d statements, want 2", len(b.Stmts))
				}
				loop = b.Stmts[1].(*WhileStmt)
			} else {
				var ok bool
				if loop, ok = f.Decls[0].(*WhileStmt); !ok {
					t.Fatalf("got %T, want *WhileStmt", f.Decls[0])
				}
			}
			if got := FormatExpr(loop.Cond); got != tt.wantCond {
				t.Errorf("cond = %s, want %s", got, tt.wantCond)
			}
			got := ""
			if loop.Update != nil {
				got = FormatExpr(loop.Update.(*ExprStmt).X)
			}
			if got != tt.wantUpd {
				t.Errorf("update = %q, want %q", got, tt.wantUpd)
			}
		})
	}
}

func TestParseNestedFunctionAccepted(t *testing.T) {
	// Nested functions are rejected when the program runs, not here.
	f := parseFile(t, "int f() { int g() { return 1; } return g(); }")
	inner := f.Decls[0].(*FuncDecl).Body.Stmts[0]
	if _, ok := inner.(*FuncDecl); !ok {
		t.Errorf("inner = %T, want *FuncDecl", inner)
	}
}

// ----------------------------------------------------------------------------
// Errors

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantErr   string
		wantLine  uint32
		wantAtEOF bool
	}{
		{"missing_semi", "x = 1\ny = 2;", "expected ';', found 'y'", 2, false},
		{"missing_semi_eof", "x = 1", "expected ';', found end of input", 1, true},
		{"unclosed_block", "int main() {\n x = 1;\n", "expected '}', found end of input", 2, true},
		{"unclosed_paren", "f(1, 2;", "expected ')', found ';'", 1, false},
		{"non_lvalue", "1 = x;", "cannot assign to non-lvalue", 1, false},
		{"non_lvalue_call", "f() += 1;", "cannot assign to non-lvalue", 1, false},
		{"non_lvalue_sum", "a + b = c;", "cannot assign to non-lvalue", 1, false},
		{"var_no_init", "var x;", "expected '=' after var x", 1, false},
		{"missing_operand", "x = ;", "expected expression, found ';'", 1, false},
		{"reserved", "x = nil;", `"nil" is reserved`, 1, false},
		{"bad_param", "int f(x) {}", "expected parameter type, found 'x'", 1, false},
		{"zero_dim", "int a[0];", "invalid array size 0", 1, false},
		{"dim_not_number", "int a[n];", "expected array size, found 'n'", 1, false},
		{"if_no_paren", "if x > 1 { }", "expected '(', found 'x'", 1, false},
		{"func_in_for", "for (int f(); ; ) {}", "function declared in for clause", 1, false},
		{"stray_rbrace", "}", "expected expression, found '}'", 1, false},
		{"huge_int", "x = 99999999999999999999;", "integer literal out of range", 1, false},
		{"lex_error", "x = $;", "unexpected character '$'", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.src))
			if err == nil {
				t.Fatalf("Parse succeeded: %s", Format(f))
			}
			if f != nil {
				t.Error("File returned alongside error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err, tt.wantErr)
			}
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("error %T is not *diag.Error", err)
			}
			if de.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", de.Line, tt.wantLine)
			}
			if de.AtEOF != tt.wantAtEOF {
				t.Errorf("AtEOF = %v, want %v", de.AtEOF, tt.wantAtEOF)
			}
			if diag.Incomplete(err) != tt.wantAtEOF {
				t.Errorf("Incomplete = %v, want %v", diag.Incomplete(err), tt.wantAtEOF)
			}
		})
	}
}

func TestParseErrorKinds(t *testing.T) {
	_, err := Parse([]byte("x = 1"))
	if !errors.Is(err, diag.Parse) {
		t.Errorf("missing semicolon: %v is not a parse error", err)
	}
	_, err = Parse([]byte(`x = "abc`))
	if !errors.Is(err, diag.Lex) {
		t.Errorf("unterminated string: %v is not a lex error", err)
	}
}

func TestParserReportsOnlyFirstError(t *testing.T) {
	toks, err := Scan([]byte("x = ; y = ; z = ;"))
	if err != nil {
		t.Fatal(err)
	}
	var msgs []string
	p := NewParser(toks, func(pos Pos, msg string) {
		msgs = append(msgs, pos.String()+": "+msg)
	})
	_, err = p.Parse()
	if !errors.Is(err, diag.Parse) {
		t.Fatalf("Parse error = %v, want a parse error", err)
	}
	if len(msgs) != 1 {
		t.Errorf("reported %d errors, want 1: %q", len(msgs), msgs)
	}
	if msgs[0] != "1:5: expected expression, found ';'" {
		t.Errorf("message = %q", msgs[0])
	}
}

func TestParseExprTrailing(t *testing.T) {
	if _, err := ParseExpr([]byte("1 + 2 3")); err == nil {
		t.Error("ParseExpr accepted trailing tokens")
	}
	if _, err := ParseExpr([]byte("")); !diag.Incomplete(err) {
		t.Errorf("ParseExpr(\"\") = %v, want incomplete", err)
	}
}

func TestParseEmpty(t *testing.T) {
	f := parseFile(t, "  // nothing here\n")
	if len(f.Decls) != 0 {
		t.Errorf("got %d decls, want 0", len(f.Decls))
	}
}
