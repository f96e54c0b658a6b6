package parse

import (
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokBlank
	tokString
	tokLangTag
	tokNumber
	tokKeyword
	tokPunct
	tokVar
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokBlank:
		return "blank node"
	case tokString:
		return "string"
	case tokLangTag:
		return "language tag"
	case tokNumber:
		return "number"
	case tokKeyword:
		return "keyword"
	case tokPunct:
		return "punctuation"
	case tokVar:
		return "variable"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	val  string
	dt   string // numbers only
	line int
	col  int
}

func (t token) is(kind tokenKind, val string) bool {
	return t.kind == kind && t.val == val
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return t.kind.String() + " " + strconv.Quote(t.val)
}

// lexer tokenizes Turtle, N-Triples, N-Quads and the N3 rule subset.
type lexer struct {
	format Format
	src    []rune
	pos    int
	line   int
	col    int
}

func newLexer(format Format, src string) *lexer {
	return &lexer{format: format, src: []rune(src), line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return newSyntaxError(l.format, line, col, format, args...)
}

func (l *lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case r == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	r := l.src[l.pos]
	switch {
	case r == '<':
		return l.lexIRI(line, col)
	case r == '"' || r == '\'':
		return l.lexString(line, col)
	case r == '_' && l.peekRune(1) == ':':
		l.advance()
		l.advance()
		name := l.readName(false)
		if name == "" {
			return token{}, l.errorf(line, col, "empty blank node label")
		}
		return token{kind: tokBlank, val: name, line: line, col: col}, nil
	case r == '@':
		l.advance()
		word := l.readWhile(func(r rune) bool {
			return r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
		})
		if word == "" {
			return token{}, l.errorf(line, col, "expected directive or language tag after '@'")
		}
		if word == "prefix" || word == "base" {
			return token{kind: tokKeyword, val: "@" + word, line: line, col: col}, nil
		}
		return token{kind: tokLangTag, val: word, line: line, col: col}, nil
	case r == '?':
		l.advance()
		name := l.readName(false)
		if name == "" {
			return token{}, l.errorf(line, col, "empty variable name")
		}
		return token{kind: tokVar, val: name, line: line, col: col}, nil
	case r == '^':
		if l.peekRune(1) != '^' {
			return token{}, l.errorf(line, col, "expected '^^'")
		}
		l.advance()
		l.advance()
		return token{kind: tokPunct, val: "^^", line: line, col: col}, nil
	case r == '=':
		if l.peekRune(1) != '>' {
			return token{}, l.errorf(line, col, "expected '=>'")
		}
		l.advance()
		l.advance()
		return token{kind: tokPunct, val: "=>", line: line, col: col}, nil
	case r == '.' && unicode.IsDigit(l.peekRune(1)):
		return l.lexNumber(line, col)
	case strings.ContainsRune(".;,[](){}", r):
		l.advance()
		return token{kind: tokPunct, val: string(r), line: line, col: col}, nil
	case unicode.IsDigit(r) || ((r == '+' || r == '-') && (unicode.IsDigit(l.peekRune(1)) || l.peekRune(1) == '.')):
		return l.lexNumber(line, col)
	case r == ':' || unicode.IsLetter(r) || r == '_':
		return l.lexName(line, col)
	default:
		return token{}, l.errorf(line, col, "unexpected character %q", r)
	}
}

func (l *lexer) readWhile(ok func(rune) bool) string {
	start := l.pos
	for l.pos < len(l.src) && ok(l.src[l.pos]) {
		l.advance()
	}
	return string(l.src[start:l.pos])
}

// readName reads a local-name-like run. A trailing '.' is left in the input
// because it terminates the statement.
func (l *lexer) readName(allowColon bool) string {
	var sb strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case r == '\\' && l.pos+1 < len(l.src):
			l.advance()
			sb.WriteRune(l.advance())
		case r == '.':
			if !isNameChar(l.peekRune(1), allowColon) && l.peekRune(1) != '.' {
				return sb.String()
			}
			sb.WriteRune(l.advance())
		case isNameChar(r, allowColon):
			sb.WriteRune(l.advance())
		default:
			return sb.String()
		}
	}
	return sb.String()
}

func isNameChar(r rune, allowColon bool) bool {
	switch {
	case r == 0:
		return false
	case unicode.IsLetter(r), unicode.IsDigit(r):
		return true
	case r == '_' || r == '-' || r == '%' || r == '·':
		return true
	case r == ':':
		return allowColon
	default:
		return false
	}
}

func (l *lexer) lexName(line, col int) (token, error) {
	prefix := l.readWhile(func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
	})
	if l.peekRune(0) != ':' {
		switch {
		case prefix == "a":
			return token{kind: tokKeyword, val: "a", line: line, col: col}, nil
		case prefix == "true" || prefix == "false":
			return token{kind: tokKeyword, val: prefix, line: line, col: col}, nil
		case strings.EqualFold(prefix, "prefix"):
			return token{kind: tokKeyword, val: "PREFIX", line: line, col: col}, nil
		case strings.EqualFold(prefix, "base"):
			return token{kind: tokKeyword, val: "BASE", line: line, col: col}, nil
		default:
			return token{}, l.errorf(line, col, "unexpected name %q", prefix)
		}
	}
	l.advance() // ':'
	local := l.readName(true)
	return token{kind: tokPName, val: prefix + ":" + local, line: line, col: col}, nil
}

func (l *lexer) lexIRI(line, col int) (token, error) {
	l.advance() // '<'
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated IRI")
		}
		r := l.advance()
		switch {
		case r == '>':
			return token{kind: tokIRI, val: sb.String(), line: line, col: col}, nil
		case r == '\\':
			decoded, err := l.readUnicodeEscape(line, col)
			if err != nil {
				return token{}, err
			}
			sb.WriteRune(decoded)
		case r == ' ' || r == '\n' || r == '\t' || r == '"' || r == '{' || r == '}' || r == '<':
			return token{}, l.errorf(line, col, "invalid character %q in IRI", r)
		default:
			sb.WriteRune(r)
		}
	}
}

// readUnicodeEscape decodes \uXXXX or \UXXXXXXXX; the backslash is already consumed.
func (l *lexer) readUnicodeEscape(line, col int) (rune, error) {
	if l.pos >= len(l.src) {
		return 0, l.errorf(line, col, "unterminated escape")
	}
	width := 0
	switch l.advance() {
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, l.errorf(line, col, "invalid escape in IRI")
	}
	if l.pos+width > len(l.src) {
		return 0, l.errorf(line, col, "truncated unicode escape")
	}
	hex := string(l.src[l.pos : l.pos+width])
	for i := 0; i < width; i++ {
		l.advance()
	}
	code, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, l.errorf(line, col, "invalid unicode escape %q", hex)
	}
	return rune(code), nil
}

func (l *lexer) lexString(line, col int) (token, error) {
	quote := l.advance()
	long := l.peekRune(0) == quote && l.peekRune(1) == quote
	if long {
		l.advance()
		l.advance()
	}

	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, l.errorf(line, col, "unterminated string")
		}
		r := l.advance()
		switch {
		case r == quote && !long:
			return token{kind: tokString, val: sb.String(), line: line, col: col}, nil
		case r == quote && long && l.peekRune(0) == quote && l.peekRune(1) == quote &&
			l.peekRune(2) != quote:
			l.advance()
			l.advance()
			return token{kind: tokString, val: sb.String(), line: line, col: col}, nil
		case r == '\n' && !long:
			return token{}, l.errorf(line, col, "newline in short string")
		case r == '\\':
			if l.pos >= len(l.src) {
				return token{}, l.errorf(line, col, "unterminated escape")
			}
			esc := l.peekRune(0)
			switch esc {
			case 'u', 'U':
				decoded, err := l.readUnicodeEscape(line, col)
				if err != nil {
					return token{}, err
				}
				sb.WriteRune(decoded)
				continue
			}
			l.advance()
			switch esc {
			case 't':
				sb.WriteByte('\t')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case '"', '\'', '\\':
				sb.WriteRune(esc)
			default:
				return token{}, l.errorf(line, col, "invalid escape '\\%c'", esc)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) lexNumber(line, col int) (token, error) {
	var sb strings.Builder
	if r := l.peekRune(0); r == '+' || r == '-' {
		sb.WriteRune(l.advance())
	}
	sb.WriteString(l.readWhile(unicode.IsDigit))
	dt := "integer"
	if l.peekRune(0) == '.' && unicode.IsDigit(l.peekRune(1)) {
		sb.WriteRune(l.advance())
		sb.WriteString(l.readWhile(unicode.IsDigit))
		dt = "decimal"
	}
	if r := l.peekRune(0); r == 'e' || r == 'E' {
		sb.WriteRune(l.advance())
		if r := l.peekRune(0); r == '+' || r == '-' {
			sb.WriteRune(l.advance())
		}
		exp := l.readWhile(unicode.IsDigit)
		if exp == "" {
			return token{}, l.errorf(line, col, "malformed exponent")
		}
		sb.WriteString(exp)
		dt = "double"
	}
	return token{kind: tokNumber, val: sb.String(), dt: dt, line: line, col: col}, nil
}
