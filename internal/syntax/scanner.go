package syntax

import (
	"fmt"
	"strings"

	"github.com/you-not-fish/clox/internal/diag"
)

// Scanner performs lexical analysis on clox source code.
//
// The first lexical error stops the scanner: it is reported through the
// error handler (if any), recorded for Err, and every later call to Next
// yields _EOF.
type Scanner struct {
	source // embedded byte reader

	tok Token

	errh func(pos Pos, msg string)
	err  *diag.Error
}

// NewScanner returns a Scanner over src. errh may be nil.
func NewScanner(src []byte, errh func(pos Pos, msg string)) *Scanner {
	return &Scanner{
		source: *newSource(src),
		errh:   errh,
	}
}

// Scan converts src into its token sequence, in source order. No EOF
// token is appended; callers stop after the last element.
func Scan(src []byte) ([]Token, error) {
	s := NewScanner(src, nil)
	var toks []Token
	for {
		s.Next()
		if s.tok.Kind == _EOF {
			break
		}
		toks = append(toks, s.tok)
	}
	if s.err != nil {
		return nil, s.err
	}
	return toks, nil
}

// Token returns the current token.
func (s *Scanner) Token() Token { return s.tok }

// Err returns the lexical error that stopped the scanner, or nil.
func (s *Scanner) Err() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// Next advances to the next token.
func (s *Scanner) Next() {
	if s.err != nil {
		s.tok = Token{Kind: _EOF, Pos: s.pos()}
		return
	}

redo:
	for isSpace(s.ch) {
		s.nextch()
	}

	s.mark()
	pos := s.pos()

	switch c := s.ch; {
	case c < 0:
		s.tok = Token{Kind: _EOF, Pos: pos}

	case isLetter(c):
		s.scanIdent(pos)

	case isDigit(c):
		s.scanNumber(pos)

	case c == '"':
		s.scanString(pos)

	case c == '\'':
		s.scanChar(pos)

	case c == '/' && s.peek() == '/':
		s.skipLineComment()
		goto redo

	default:
		s.scanOperator(pos)
	}
}

// error records the first lexical error and stops the scanner.
func (s *Scanner) error(pos Pos, msg string) {
	if s.err == nil {
		s.err = &diag.Error{Kind: diag.Lex, Line: pos.Line(), Msg: msg}
		if s.errh != nil {
			s.errh(pos, msg)
		}
	}
	s.tok = Token{Kind: _EOF, Pos: pos}
}

func (s *Scanner) scanIdent(pos Pos) {
	for isLetter(s.ch) || isDigit(s.ch) {
		s.nextch()
	}
	lit := s.segment()
	s.tok = Token{Kind: LookupKeyword(lit), Lexeme: lit, Pos: pos}
}

// scanNumber scans digits with an optional fraction. A '.' must be
// followed by at least one digit.
func (s *Scanner) scanNumber(pos Pos) {
	for isDigit(s.ch) {
		s.nextch()
	}
	if s.ch == '.' {
		if !isDigit(s.peek()) {
			s.error(s.pos(), "digits required after decimal point")
			return
		}
		s.nextch()
		for isDigit(s.ch) {
			s.nextch()
		}
	}
	s.tok = Token{Kind: _Number, Lexeme: s.segment(), Pos: pos}
}

// scanString scans a string literal. The token's lexeme is the decoded
// content without the quotes. Newlines may appear inside the literal.
func (s *Scanner) scanString(pos Pos) {
	s.nextch() // skip opening "
	var b strings.Builder

	for {
		switch s.ch {
		case '"':
			s.nextch()
			s.tok = Token{Kind: _String, Lexeme: b.String(), Pos: pos}
			return

		case -1:
			s.error(pos, "unterminated string literal")
			return

		case '\\':
			s.nextch()
			c, ok := s.scanEscape(true)
			if !ok {
				return
			}
			b.WriteByte(c)

		default:
			b.WriteByte(byte(s.ch))
			s.nextch()
		}
	}
}

// scanChar scans 'c' or '\e' where e is one of n, t, 0.
func (s *Scanner) scanChar(pos Pos) {
	s.nextch() // skip opening '

	var c byte
	switch s.ch {
	case -1, '\n':
		s.error(pos, "unterminated char literal")
		return
	case '\\':
		s.nextch()
		var ok bool
		if c, ok = s.scanEscape(false); !ok {
			return
		}
	default:
		c = byte(s.ch)
		s.nextch()
	}

	if s.ch != '\'' {
		if s.ch < 0 {
			s.error(pos, "unterminated char literal")
		} else {
			s.error(pos, "char literal must contain exactly one character")
		}
		return
	}
	s.nextch()
	s.tok = Token{Kind: _Char, Lexeme: string([]byte{c}), Pos: pos}
}

// scanEscape decodes the byte after a backslash. Strings additionally
// accept \\ and \".
func (s *Scanner) scanEscape(inString bool) (byte, bool) {
	pos := s.pos()
	c := s.ch
	if c < 0 {
		s.error(pos, "unexpected EOF in escape sequence")
		return 0, false
	}
	if e, ok := escapes[c]; ok {
		s.nextch()
		return e, true
	}
	if inString && (c == '\\' || c == '"') {
		s.nextch()
		return byte(c), true
	}
	s.error(pos, fmt.Sprintf("invalid escape sequence \\%c", c))
	return 0, false
}

// scanOperator scans punctuation and operators, longest match first.
func (s *Scanner) scanOperator(pos Pos) {
	c := s.ch
	s.nextch()

	kind := _EOF
	switch c {
	case '(':
		kind = _Lparen
	case ')':
		kind = _Rparen
	case '[':
		kind = _Lbrack
	case ']':
		kind = _Rbrack
	case '{':
		kind = _Lbrace
	case '}':
		kind = _Rbrace
	case ',':
		kind = _Comma
	case ';':
		kind = _Semi
	case '.':
		kind = _Dot
	case '+':
		kind = s.pick(_Add, alt{'+', _Inc}, alt{'=', _AddAssign})
	case '-':
		kind = s.pick(_Sub, alt{'-', _Dec}, alt{'=', _SubAssign}, alt{'>', _Arrow})
	case '*':
		kind = s.pick(_Mul, alt{'=', _MulAssign})
	case '/':
		kind = s.pick(_Div, alt{'=', _DivAssign})
	case '%':
		kind = s.pick(_Rem, alt{'=', _RemAssign})
	case '!':
		kind = s.pick(_Not, alt{'=', _Neq})
	case '=':
		kind = s.pick(_Assign, alt{'=', _Eql})
	case '<':
		kind = s.pick(_Lss, alt{'=', _Leq})
	case '>':
		kind = s.pick(_Gtr, alt{'=', _Geq})
	default:
		s.error(pos, fmt.Sprintf("unexpected character %q", rune(c)))
		return
	}

	s.tok = Token{Kind: kind, Lexeme: s.segment(), Pos: pos}
}

// alt is a possible second byte of a two-byte operator.
type alt struct {
	ch   int
	kind Kind
}

// pick consumes the second byte of a two-byte operator when it matches
// one of alts, and returns the resulting kind.
func (s *Scanner) pick(single Kind, alts ...alt) Kind {
	for _, a := range alts {
		if s.ch == a.ch {
			s.nextch()
			return a.kind
		}
	}
	return single
}

// skipLineComment skips from // to the end of the line.
func (s *Scanner) skipLineComment() {
	for s.ch != '\n' && s.ch >= 0 {
		s.nextch()
	}
}
