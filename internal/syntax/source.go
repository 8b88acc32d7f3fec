package syntax

import "strings"

// source is a byte reader over an in-memory program with position
// tracking. clox source is ASCII; bytes outside it are rejected by the
// scanner as unexpected characters.
type source struct {
	buf []byte

	line uint32 // line of ch (1-based)
	col  uint32 // column of ch (1-based)

	ch    int // current byte, -1 at EOF
	offs  int // offset of ch in buf
	start int // offset where the current lexeme began
}

func newSource(buf []byte) *source {
	s := &source{buf: buf, line: 1, col: 1}
	s.load()
	return s
}

func (s *source) load() {
	if s.offs < len(s.buf) {
		s.ch = int(s.buf[s.offs])
	} else {
		s.ch = -1
	}
}

// nextch advances to the next byte. (line, col) always describe ch.
func (s *source) nextch() {
	if s.ch < 0 {
		return
	}
	if s.ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	s.offs++
	s.load()
}

// peek returns the byte after ch without consuming anything.
func (s *source) peek() int {
	if s.offs+1 < len(s.buf) {
		return int(s.buf[s.offs+1])
	}
	return -1
}

func (s *source) pos() Pos { return NewPos(s.line, s.col) }

// mark starts a new lexeme at ch.
func (s *source) mark() { s.start = s.offs }

// segment returns the text from the last mark up to, not including, ch.
func (s *source) segment() string {
	return string(s.buf[s.start:s.offs])
}

func isLetter(c int) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isDigit(c int) bool {
	return '0' <= c && c <= '9'
}

func isSpace(c int) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// escapes maps the byte after a backslash to the byte it denotes.
// Char literals accept only n, t and 0; strings also accept \\ and \".
var escapes = map[int]byte{
	'n': '\n',
	't': '\t',
	'0': 0,
}

// quote renders s between q delimiters using the escapes the scanner
// understands, so that scanning the result yields s again. Char
// literals (q == '\'') take the byte after the opening quote verbatim,
// so only n, t and 0 are escaped there.
func quote(s string, q byte) string {
	var b strings.Builder
	b.WriteByte(q)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case '\\', '"':
			if q == '"' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(q)
	return b.String()
}
