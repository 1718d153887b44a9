// Package filterexpr implements the restricted filter grammar of spec
// §4.H: a case-insensitive, whitespace-insensitive boolean/comparison
// language compiled to a column-vector evaluation plan rather than a
// per-row map, which is the reason this package exists alongside a
// lambda-based filter.
package filterexpr

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/kasuganosora/livetable/pkg/tableerr"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokLParen
	tokRParen
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokIs
	tokNull
	tokTrue
	tokFalse
)

type token struct {
	kind tokenKind
	text string
}

var keywordFolder = cases.Fold()

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"is":    tokIs,
	"null":  tokNull,
	"true":  tokTrue,
	"false": tokFalse,
}

type lexer struct {
	src  []rune
	pos  int
	toks []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: []rune(src)}
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, token{kind: tokEOF})
			return l.toks, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '(':
			l.toks = append(l.toks, token{kind: tokLParen})
			l.pos++
		case c == ')':
			l.toks = append(l.toks, token{kind: tokRParen})
			l.pos++
		case c == '=':
			l.toks = append(l.toks, token{kind: tokEq})
			l.pos++
		case c == '!':
			if l.peek(1) == '=' {
				l.toks = append(l.toks, token{kind: tokNeq})
				l.pos += 2
			} else {
				return nil, tableerr.New(tableerr.FilterSyntax, "unexpected '!' at position %d", l.pos)
			}
		case c == '<':
			if l.peek(1) == '=' {
				l.toks = append(l.toks, token{kind: tokLte})
				l.pos += 2
			} else {
				l.toks = append(l.toks, token{kind: tokLt})
				l.pos++
			}
		case c == '>':
			if l.peek(1) == '=' {
				l.toks = append(l.toks, token{kind: tokGte})
				l.pos += 2
			} else {
				l.toks = append(l.toks, token{kind: tokGt})
				l.pos++
			}
		case c == '\'' || c == '"':
			s, err := l.readString(c)
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, token{kind: tokString, text: s})
		case unicode.IsDigit(c) || (c == '-' && unicode.IsDigit(l.peek(1))):
			l.toks = append(l.toks, l.readNumber())
		case unicode.IsLetter(c) || c == '_':
			l.toks = append(l.toks, l.readIdentOrKeyword())
		default:
			return nil, tableerr.New(tableerr.FilterSyntax, "unexpected character %q at position %d", c, l.pos)
		}
	}
}

func (l *lexer) peek(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) readString(quote rune) (string, error) {
	l.pos++ // consume opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", tableerr.New(tableerr.FilterSyntax, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return b.String(), nil
		}
		b.WriteRune(c)
		l.pos++
	}
}

func (l *lexer) readNumber() token {
	start := l.pos
	if l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos])}
}

func (l *lexer) readIdentOrKeyword() token {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	folded := keywordFolder.String(strings.ToLower(text))
	if kind, ok := keywords[folded]; ok {
		return token{kind: kind, text: text}
	}
	return token{kind: tokIdent, text: text}
}

func parseNumberLiteral(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
