package filterexpr

import (
	"github.com/kasuganosora/livetable/pkg/tableerr"
	"github.com/kasuganosora/livetable/pkg/value"
)

// ColumnSource is the column-vector read surface a compiled Expr needs.
// pkg/table's Table implements this directly.
type ColumnSource interface {
	Len() int
	ValueAt(name string, row int) value.Value
	Resolver(name string) value.Resolver
}

// Expr is a parsed, compiled predicate ready for row-wise evaluation.
type Expr struct {
	root node
}

// Parse compiles a filter-expression string into an Expr. Any grammar
// deviation returns a *tableerr.Error of kind FilterSyntax.
func Parse(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, tableerr.New(tableerr.FilterSyntax, "unexpected trailing input near %q", p.cur().text)
	}
	return &Expr{root: n}, nil
}

// EvalRow evaluates the predicate against one row of src.
func (e *Expr) EvalRow(src ColumnSource, row int) Tri {
	return e.root.eval(src, row)
}

// EvalAll evaluates the predicate against every row of src, returning the
// sorted row indices where the predicate is explicitly true (three-valued
// logic: a row passes only when the top-level value is explicitly true).
func (e *Expr) EvalAll(src ColumnSource) []int {
	var out []int
	n := src.Len()
	for i := 0; i < n; i++ {
		if e.root.eval(src, i) == TriTrue {
			out = append(out, i)
		}
	}
	return out
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance()    { p.pos++ }

func (p *parser) expect(k tokenKind, what string) (token, error) {
	t := p.cur()
	if t.kind != k {
		return token{}, tableerr.New(tableerr.FilterSyntax, "expected %s", what)
	}
	p.advance()
	return t, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.cur().kind == tokNot {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.cur().kind == tokLParen {
		p.advance()
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	colTok, err := p.expect(tokIdent, "column reference")
	if err != nil {
		return nil, err
	}
	col := colTok.text

	if p.cur().kind == tokIs {
		p.advance()
		not := false
		if p.cur().kind == tokNot {
			not = true
			p.advance()
		}
		if _, err := p.expect(tokNull, "NULL"); err != nil {
			return nil, err
		}
		return &isNullNode{col: col, not: not}, nil
	}

	op, ok := cmpOpText(p.cur().kind)
	if !ok {
		return nil, tableerr.New(tableerr.FilterSyntax, "expected comparison operator after %q", col)
	}
	p.advance()

	switch p.cur().kind {
	case tokNumber:
		f, ok := parseNumberLiteral(p.cur().text)
		if !ok {
			return nil, tableerr.New(tableerr.FilterSyntax, "invalid number literal %q", p.cur().text)
		}
		p.advance()
		return &compareLitNode{col: col, op: op, lit: literal{kind: litNumber, num: f}}, nil
	case tokString:
		s := p.cur().text
		p.advance()
		return &compareLitNode{col: col, op: op, lit: literal{kind: litString, str: s}}, nil
	case tokTrue, tokFalse:
		b := p.cur().kind == tokTrue
		p.advance()
		return &compareLitNode{col: col, op: op, lit: literal{kind: litBool, b: b}}, nil
	case tokIdent:
		other := p.cur().text
		p.advance()
		return &compareColNode{col: col, op: op, otherCol: other}, nil
	default:
		return nil, tableerr.New(tableerr.FilterSyntax, "expected literal or column reference")
	}
}

func cmpOpText(k tokenKind) (string, bool) {
	switch k {
	case tokEq:
		return "=", true
	case tokNeq:
		return "!=", true
	case tokLt:
		return "<", true
	case tokLte:
		return "<=", true
	case tokGt:
		return ">", true
	case tokGte:
		return ">=", true
	default:
		return "", false
	}
}
