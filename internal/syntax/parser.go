package syntax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/you-not-fish/clox/internal/diag"
)

// Parser builds an AST from a token sequence by recursive descent.
//
// Parsing stops at the first syntax error: the error is reported through
// the handler (if any), the current token becomes _EOF so every loop
// unwinds, and Parse returns the error instead of a File.
type Parser struct {
	toks []Token
	next int // index of the token after tok

	tok Token // current token; Kind == _EOF past the last token

	errh  func(pos Pos, msg string)
	first *diag.Error
}

// NewParser returns a Parser over toks. errh may be nil.
func NewParser(toks []Token, errh func(pos Pos, msg string)) *Parser {
	p := &Parser{toks: toks, errh: errh}
	p.advance()
	return p
}

// Parse scans and parses a complete program.
func Parse(src []byte) (*File, error) {
	toks, err := Scan(src)
	if err != nil {
		return nil, err
	}
	return NewParser(toks, nil).Parse()
}

// ParseExpr scans and parses a single expression that must span all of src.
func ParseExpr(src []byte) (Expr, error) {
	toks, err := Scan(src)
	if err != nil {
		return nil, err
	}
	p := NewParser(toks, nil)
	x := p.expr()
	if p.tok.Kind != _EOF {
		p.syntaxError("expected end of expression, found " + describe(p.tok))
	}
	if p.first != nil {
		return nil, p.first
	}
	return x, nil
}

// ----------------------------------------------------------------------------
// Token navigation

// advance moves to the next token, or to _EOF past the end.
func (p *Parser) advance() {
	if p.first != nil || p.next >= len(p.toks) {
		p.tok = Token{Kind: _EOF, Pos: p.endPos()}
		return
	}
	p.tok = p.toks[p.next]
	p.next++
}

// endPos is the position reported for errors at end of input.
func (p *Parser) endPos() Pos {
	if n := len(p.toks); n > 0 {
		return p.toks[n-1].Pos
	}
	return NewPos(1, 1)
}

// got consumes the current token if it has kind k.
func (p *Parser) got(k Kind) bool {
	if p.tok.Kind == k {
		p.advance()
		return true
	}
	return false
}

// want consumes a token of kind k or reports an error.
func (p *Parser) want(k Kind) {
	if !p.got(k) {
		p.syntaxError(fmt.Sprintf("expected '%s', found %s", k, describe(p.tok)))
	}
}

// name consumes an identifier and returns its spelling.
func (p *Parser) name() string {
	if p.tok.Kind != _Name {
		p.syntaxError("expected identifier, found " + describe(p.tok))
		return "_"
	}
	s := p.tok.Lexeme
	p.advance()
	return s
}

// describe renders a token for "found ..." in error messages.
func describe(t Token) string {
	switch t.Kind {
	case _EOF:
		return "end of input"
	case _Name, _Number:
		return "'" + t.Lexeme + "'"
	case _String:
		return quote(t.Lexeme, '"')
	case _Char:
		return quote(t.Lexeme, '\'')
	}
	return "'" + t.Kind.String() + "'"
}

// ----------------------------------------------------------------------------
// Error handling

func (p *Parser) syntaxError(msg string) {
	p.syntaxErrorAt(p.tok, msg)
}

// syntaxErrorAt records the first error and aborts the parse.
func (p *Parser) syntaxErrorAt(at Token, msg string) {
	if p.first != nil {
		return
	}
	p.first = &diag.Error{
		Kind:  diag.Parse,
		Line:  at.Pos.Line(),
		Msg:   msg,
		AtEOF: at.Kind == _EOF,
	}
	if p.errh != nil {
		p.errh(at.Pos, msg)
	}
	p.tok = Token{Kind: _EOF, Pos: at.Pos}
}

// ----------------------------------------------------------------------------
// Program

// Parse parses the whole token sequence into a File.
func (p *Parser) Parse() (*File, error) {
	f := &File{}
	f.pos = p.tok.Pos

	for p.tok.Kind != _EOF {
		f.Decls = append(f.Decls, p.declaration())
	}

	if p.first != nil {
		return nil, p.first
	}
	return f, nil
}

// ----------------------------------------------------------------------------
// Declarations

// declaration := varDecl | funDecl | statement
func (p *Parser) declaration() Stmt {
	switch {
	case p.tok.Kind == _Var:
		return p.varDecl()
	case p.tok.Kind.IsTypeName():
		return p.typedDecl()
	default:
		return p.stmt()
	}
}

// varDecl parses: var Name = Value ;
func (p *Parser) varDecl() Stmt {
	d := &VarDecl{}
	d.pos = p.tok.Pos

	p.want(_Var)
	d.Name = p.name()
	if p.tok.Kind != _Assign {
		p.syntaxError(fmt.Sprintf("expected '=' after var %s, found %s", d.Name, describe(p.tok)))
		return d
	}
	p.advance()
	d.Value = p.expr()
	p.want(_Semi)
	return d
}

// typedDecl parses a declaration that starts with a type keyword:
// a typed variable, a function, or a function prototype.
func (p *Parser) typedDecl() Stmt {
	pos := p.tok.Pos
	typ := TypeName(p.tok.Lexeme)
	p.advance()
	name := p.name()

	if p.tok.Kind == _Lparen {
		return p.funcDecl(pos, typ, name)
	}

	d := &VarDecl{Type: typ, Name: name}
	d.pos = pos
	d.Dims = p.dims()
	if p.got(_Assign) {
		d.Value = p.expr()
	}
	p.want(_Semi)
	return d
}

// dims parses ('[' NUMBER ']')*.
func (p *Parser) dims() []int {
	var dims []int
	for p.got(_Lbrack) {
		tok := p.tok
		if !p.got(_Number) {
			p.syntaxError("expected array size, found " + describe(p.tok))
			return dims
		}
		n, err := strconv.Atoi(tok.Lexeme)
		if err != nil || n <= 0 {
			p.syntaxErrorAt(tok, fmt.Sprintf("invalid array size %s", tok.Lexeme))
			return dims
		}
		dims = append(dims, n)
		p.want(_Rbrack)
	}
	return dims
}

// funcDecl parses: Type Name ( Params ) ( Block | ; )
func (p *Parser) funcDecl(pos Pos, result TypeName, name string) Stmt {
	d := &FuncDecl{Result: result, Name: name}
	d.pos = pos

	p.want(_Lparen)
	if p.tok.Kind != _Rparen {
		for {
			d.Params = append(d.Params, p.param())
			if !p.got(_Comma) {
				break
			}
		}
	}
	p.want(_Rparen)

	if p.got(_Semi) {
		return d
	}
	d.Body = p.blockStmt()
	return d
}

// param parses: Type Name
func (p *Parser) param() *Param {
	f := &Param{}
	f.pos = p.tok.Pos
	if !p.tok.Kind.IsTypeName() {
		p.syntaxError("expected parameter type, found " + describe(p.tok))
		return f
	}
	f.Type = TypeName(p.tok.Lexeme)
	p.advance()
	f.Name = p.name()
	return f
}

// ----------------------------------------------------------------------------
// Statements

func (p *Parser) stmt() Stmt {
	switch p.tok.Kind {
	case _Lbrace:
		return p.blockStmt()

	case _If:
		return p.ifStmt()

	case _While:
		return p.whileStmt()

	case _For:
		return p.forStmt()

	case _Return:
		return p.returnStmt()

	case _Break:
		s := &BreakStmt{}
		s.pos = p.tok.Pos
		p.advance()
		p.want(_Semi)
		return s

	case _Continue:
		s := &ContinueStmt{}
		s.pos = p.tok.Pos
		p.advance()
		p.want(_Semi)
		return s

	case _Print:
		s := &PrintStmt{}
		s.pos = p.tok.Pos
		p.advance()
		s.X = p.expr()
		p.want(_Semi)
		return s

	case _Assert:
		s := &AssertStmt{}
		s.pos = p.tok.Pos
		p.advance()
		s.X = p.expr()
		p.want(_Semi)
		return s

	default:
		s := &ExprStmt{}
		s.pos = p.tok.Pos
		s.X = p.expr()
		p.want(_Semi)
		return s
	}
}

// blockStmt parses { declarations... }
func (p *Parser) blockStmt() *BlockStmt {
	b := &BlockStmt{}
	b.pos = p.tok.Pos

	p.want(_Lbrace)
	for p.tok.Kind != _Rbrace && p.tok.Kind != _EOF {
		b.Stmts = append(b.Stmts, p.declaration())
	}
	b.Rbrace = p.tok.Pos
	p.want(_Rbrace)

	return b
}

// ifStmt parses: if ( Cond ) Then [ else Else ]
func (p *Parser) ifStmt() Stmt {
	s := &IfStmt{}
	s.pos = p.tok.Pos

	p.want(_If)
	s.Cond = p.parenExpr()
	s.Then = p.stmt()
	if p.got(_Else) {
		s.Else = p.stmt()
	}
	return s
}

// whileStmt parses: while ( Cond ) Body
func (p *Parser) whileStmt() Stmt {
	s := &WhileStmt{}
	s.pos = p.tok.Pos

	p.want(_While)
	s.Cond = p.parenExpr()
	s.Body = p.stmt()
	return s
}

// forStmt parses for ( Init ; Cond ; Update ) Body and desugars it to
//
//	{ Init; while (Cond) Body /Update/ }
//
// An absent condition is true. Without Init no block is introduced.
func (p *Parser) forStmt() Stmt {
	pos := p.tok.Pos
	p.want(_For)
	p.want(_Lparen)

	var init Stmt
	switch {
	case p.got(_Semi):
	case p.tok.Kind == _Var:
		init = p.varDecl()
	case p.tok.Kind.IsTypeName():
		init = p.typedDecl()
		if _, ok := init.(*VarDecl); !ok {
			p.syntaxErrorAt(Token{Kind: _For, Pos: pos}, "function declared in for clause")
		}
	default:
		es := &ExprStmt{}
		es.pos = p.tok.Pos
		es.X = p.expr()
		p.want(_Semi)
		init = es
	}

	loop := &WhileStmt{}
	loop.pos = pos

	if p.tok.Kind == _Semi {
		t := &BoolLit{Value: true}
		t.pos = p.tok.Pos
		loop.Cond = t
	} else {
		loop.Cond = p.expr()
	}
	p.want(_Semi)

	if p.tok.Kind != _Rparen {
		upd := &ExprStmt{}
		upd.pos = p.tok.Pos
		upd.X = p.expr()
		loop.Update = upd
	}
	p.want(_Rparen)

	loop.Body = p.stmt()

	if init == nil {
		return loop
	}
	b := &BlockStmt{Stmts: []Stmt{init, loop}}
	b.pos = pos
	b.Rbrace = p.tok.Pos
	return b
}

// returnStmt parses: return [ Result ] ;
func (p *Parser) returnStmt() Stmt {
	s := &ReturnStmt{}
	s.pos = p.tok.Pos

	p.want(_Return)
	if p.tok.Kind != _Semi {
		s.Result = p.expr()
	}
	p.want(_Semi)
	return s
}

// parenExpr parses ( Expr ).
func (p *Parser) parenExpr() Expr {
	p.want(_Lparen)
	x := p.expr()
	p.want(_Rparen)
	return x
}

// ----------------------------------------------------------------------------
// Expressions

func (p *Parser) expr() Expr {
	return p.assignment()
}

// assignment := binary ( ('=' | '+=' | ...) assignment )?
//
// Compound assignment X op= Y becomes X = X' op Y, where X' is a copy of
// X so the result stays a tree. The target must be an lvalue; this is
// checked here rather than at evaluation.
func (p *Parser) assignment() Expr {
	x := p.binaryExpr(0)
	if !p.tok.Kind.IsAssign() {
		return x
	}

	op := p.tok
	if !x.IsLvalue() {
		p.syntaxErrorAt(op, "cannot assign to non-lvalue")
		return x
	}
	p.advance()
	y := p.assignment()

	if k := op.Kind.Underlying(); k != op.Kind {
		bin := &Binary{Op: Token{Kind: k, Lexeme: k.String(), Pos: op.Pos}, X: CloneExpr(x), Y: y}
		bin.pos = x.Pos()
		y = bin
	}
	as := &Binary{Op: Token{Kind: _Assign, Lexeme: "=", Pos: op.Pos}, X: x, Y: y}
	as.pos = x.Pos()
	return as
}

// binaryExpr parses a binary expression whose operators bind tighter
// than prec, using precedence climbing.
func (p *Parser) binaryExpr(prec int) Expr {
	x := p.unaryExpr()

	for {
		oprec := p.tok.Kind.Precedence()
		if oprec <= prec {
			return x
		}

		op := &Binary{Op: p.tok, X: x}
		op.pos = x.Pos()
		p.advance()

		// Left associative: the right operand binds strictly tighter.
		op.Y = p.binaryExpr(oprec)
		x = op
	}
}

// unaryExpr := ('-' | '!' | '++' | '--')* postfix
//
// Prefix operators are stacked as they are read and applied innermost
// first once the operand is known, so -!x is -(!x).
func (p *Parser) unaryExpr() Expr {
	ops := arraystack.New()
	for {
		switch p.tok.Kind {
		case _Sub, _Not, _Inc, _Dec:
			ops.Push(p.tok)
			p.advance()
			continue
		}
		break
	}

	x := p.postfixExpr()
	for !ops.Empty() {
		v, _ := ops.Pop()
		op := v.(Token)
		u := &Unary{Op: op, X: x}
		u.pos = op.Pos
		x = u
	}
	return x
}

// postfix := call ( '++' | '--' )*
func (p *Parser) postfixExpr() Expr {
	x := p.callExpr()
	for p.tok.Kind == _Inc || p.tok.Kind == _Dec {
		pf := &Postfix{Op: p.tok, X: x}
		pf.pos = x.Pos()
		p.advance()
		x = pf
	}
	return x
}

// call := index ( '(' args? ')' )*
//
// A plain identifier in callee position names a function declaration.
func (p *Parser) callExpr() Expr {
	x := p.indexExpr()
	for p.tok.Kind == _Lparen {
		fun := x
		if v, ok := x.(*Variable); ok {
			ref := &FuncRef{Name: v.Name}
			ref.pos = v.pos
			fun = ref
		}
		call := &Call{Fun: fun}
		call.pos = x.Pos()

		p.advance()
		if p.tok.Kind != _Rparen {
			call.Args = p.exprList()
		}
		p.want(_Rparen)
		x = call
	}
	return x
}

// index := primary ( '[' expr ']' )*
func (p *Parser) indexExpr() Expr {
	x := p.primary()
	if p.tok.Kind != _Lbrack {
		return x
	}

	ix := &Index{X: x}
	ix.pos = x.Pos()
	for p.got(_Lbrack) {
		ix.Indices = append(ix.Indices, p.expr())
		p.want(_Rbrack)
	}
	return ix
}

// primary := NUMBER | STRING | CHAR | true | false | ( expr ) | IDENT
func (p *Parser) primary() Expr {
	tok := p.tok
	switch tok.Kind {
	case _Number:
		p.advance()
		return p.number(tok)

	case _String:
		p.advance()
		lit := &StringLit{Value: tok.Lexeme}
		lit.pos = tok.Pos
		return lit

	case _Char:
		p.advance()
		lit := &CharLit{Value: tok.Lexeme[0]}
		lit.pos = tok.Pos
		return lit

	case _True, _False:
		p.advance()
		lit := &BoolLit{Value: tok.Kind == _True}
		lit.pos = tok.Pos
		return lit

	case _Lparen:
		return p.parenExpr()

	case _Name:
		p.advance()
		v := &Variable{Name: tok.Lexeme}
		v.pos = tok.Pos
		return v
	}

	if tok.Kind.IsReserved() {
		p.syntaxError(fmt.Sprintf("%q is reserved", tok.Lexeme))
	} else {
		p.syntaxError("expected expression, found " + describe(tok))
	}
	v := &Variable{Name: "_"}
	v.pos = tok.Pos
	return v
}

// number builds an IntegerLit, or a DoubleLit when the lexeme has a '.'.
func (p *Parser) number(tok Token) Expr {
	if strings.Contains(tok.Lexeme, ".") {
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.syntaxErrorAt(tok, "malformed number "+tok.Lexeme)
		}
		lit := &DoubleLit{Value: f, Lit: tok.Lexeme}
		lit.pos = tok.Pos
		return lit
	}
	n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil {
		p.syntaxErrorAt(tok, "integer literal out of range: "+tok.Lexeme)
	}
	lit := &IntegerLit{Value: n}
	lit.pos = tok.Pos
	return lit
}

// exprList parses a comma-separated list of expressions.
func (p *Parser) exprList() []Expr {
	list := []Expr{p.expr()}
	for p.got(_Comma) {
		list = append(list, p.expr())
	}
	return list
}
