// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package styleconfig

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPunct
	tokString
	tokNumber
	tokIdent
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokPunct:
		return "punctuation"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string // decoded value for strings, raw text otherwise
	line int
	col  int
}

// lexer tokenizes the object-literal subset of JavaScript used by config files.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src []byte) *lexer {
	s := string(src)
	s = strings.TrimPrefix(s, "\ufeff")
	return &lexer{src: s, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d col %d: %s", ErrSyntax, line, col, fmt.Sprintf(format, args...))
}

func (l *lexer) peekRune() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

func (l *lexer) advance(size int) {
	for i := 0; i < size && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		r, size := l.peekRune()
		switch {
		case unicode.IsSpace(r):
			l.advance(size)
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.advance(len(l.src) - l.pos)
			} else {
				l.advance(end)
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			line, col := l.line, l.col
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf(line, col, "unterminated block comment")
			}
			l.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}
	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line, col: col}, nil
	}

	c := l.src[l.pos]
	switch {
	case strings.IndexByte("{}[]:,()=.;", c) >= 0:
		l.advance(1)
		return token{kind: tokPunct, text: string(c), line: line, col: col}, nil
	case c == '"' || c == '\'' || c == '`':
		s, err := l.readString(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, line: line, col: col}, nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return l.readNumber(line, col)
	default:
		r, _ := l.peekRune()
		if isIdentStart(r) {
			start := l.pos
			for l.pos < len(l.src) {
				r, size := l.peekRune()
				if !isIdentPart(r) {
					break
				}
				l.advance(size)
			}
			return token{kind: tokIdent, text: l.src[start:l.pos], line: line, col: col}, nil
		}
		return token{}, l.errorf(line, col, "unexpected character %q", r)
	}
}

func (l *lexer) readString(quote byte) (string, error) {
	line, col := l.line, l.col
	l.advance(1)
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated string")
		}
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.advance(1)
			return b.String(), nil
		case c == '\n' && quote != '`':
			return "", l.errorf(line, col, "newline in string")
		case c == '$' && quote == '`' && strings.HasPrefix(l.src[l.pos:], "${"):
			return "", l.errorf(l.line, l.col, "template substitutions are not supported")
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return "", l.errorf(line, col, "unterminated escape")
			}
			esc := l.src[l.pos+1]
			l.advance(2)
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '0':
				b.WriteByte(0)
			case '\n':
				// line continuation
			case 'u':
				r, err := l.readUnicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
			case 'x':
				// \xNN names the code point U+00NN, not a raw byte.
				if l.pos+2 > len(l.src) {
					return "", l.errorf(l.line, l.col, "short hex escape")
				}
				n, err := strconv.ParseUint(l.src[l.pos:l.pos+2], 16, 8)
				if err != nil {
					return "", l.errorf(l.line, l.col, "invalid hex escape")
				}
				b.WriteRune(rune(n))
				l.advance(2)
			default:
				b.WriteByte(esc)
			}
		default:
			_, size := l.peekRune()
			b.WriteString(l.src[l.pos : l.pos+size])
			l.advance(size)
		}
	}
}

// readUnicodeEscape decodes the part of a \u escape after the "u": either
// four hex digits or a braced code point. A high surrogate followed by a
// \u low surrogate forms one rune. Unpaired surrogates become U+FFFD.
func (l *lexer) readUnicodeEscape() (rune, error) {
	line, col := l.line, l.col
	if strings.HasPrefix(l.src[l.pos:], "{") {
		end := strings.IndexByte(l.src[l.pos:], '}')
		if end < 2 || end > 7 {
			return 0, l.errorf(line, col, "invalid unicode escape")
		}
		n, err := strconv.ParseUint(l.src[l.pos+1:l.pos+end], 16, 32)
		if err != nil || n > unicode.MaxRune {
			return 0, l.errorf(line, col, "invalid unicode escape")
		}
		l.advance(end + 1)
		return toRune(rune(n)), nil
	}

	r, ok := l.hex4(l.pos)
	if !ok {
		return 0, l.errorf(line, col, "invalid unicode escape")
	}
	l.advance(4)
	if !utf16.IsSurrogate(r) {
		return r, nil
	}
	if strings.HasPrefix(l.src[l.pos:], `\u`) {
		if lo, ok := l.hex4(l.pos + 2); ok {
			if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
				l.advance(6)
				return pair, nil
			}
		}
	}
	return utf8.RuneError, nil
}

// hex4 reads exactly four hex digits at pos.
func (l *lexer) hex4(pos int) (rune, bool) {
	if pos+4 > len(l.src) {
		return 0, false
	}
	n, err := strconv.ParseUint(l.src[pos:pos+4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// toRune maps code points Go strings cannot hold to U+FFFD.
func toRune(r rune) rune {
	if utf16.IsSurrogate(r) {
		return utf8.RuneError
	}
	return r
}

func (l *lexer) readNumber(line, col int) (token, error) {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.advance(1)
	}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '_' ||
			((c == '-' || c == '+') && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E')) {
			l.advance(1)
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if _, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err != nil {
		return token{}, l.errorf(line, col, "invalid number %q", text)
	}
	return token{kind: tokNumber, text: text, line: line, col: col}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
