package opam

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"crossdep/internal/version"
)

// The textual formula grammar accepted from repository snapshots. This is
// the output contract of an opam-file indexer, not the opam file syntax
// itself:
//
//	formula := and-formula { "|" and-formula }
//	and-formula := atom { "&" atom }
//	atom := "(" formula ")" | name [ "{" v-expr "}" ]
//	v-expr := v-and { "|" v-and }
//	v-and := v-cmp { "&" v-cmp }
//	v-cmp := relop operand | operand [ relop operand ]
//	operand := "!" ident | ident | quoted | "(" v-expr ")"
//	relop := "=" | "!=" | ">=" | ">" | "<=" | "<"
//
// A prefix relop applies to the dependency's own version (`>= "1.0"`);
// an infix relop relates two operands (`os = "linux"`).

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuoted
	tokRelOp
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
)

type token struct {
	kind  tokenKind
	text  string
	relop RelOp
}

type lexer struct {
	input string
	pos   int
	toks  []token
}

func parseError(input, msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid dependency formula %q: %s", input, msg))
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '+' || c == '.' || c == ':'
}

func (l *lexer) run() error {
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			l.pos++
		case c == '(':
			l.emit(token{kind: tokLParen})
		case c == ')':
			l.emit(token{kind: tokRParen})
		case c == '{':
			l.emit(token{kind: tokLBrace})
		case c == '}':
			l.emit(token{kind: tokRBrace})
		case c == '&':
			l.emit(token{kind: tokAnd})
		case c == '|':
			l.emit(token{kind: tokOr})
		case c == '=':
			l.emit(token{kind: tokRelOp, relop: RelOpEq})
		case c == '!':
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
				l.pos++
				l.emit(token{kind: tokRelOp, relop: RelOpNeq})
				continue
			}
			l.emit(token{kind: tokNot})
		case c == '>':
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
				l.pos++
				l.emit(token{kind: tokRelOp, relop: RelOpGeq})
				continue
			}
			l.emit(token{kind: tokRelOp, relop: RelOpGt})
		case c == '<':
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '=' {
				l.pos++
				l.emit(token{kind: tokRelOp, relop: RelOpLeq})
				continue
			}
			l.emit(token{kind: tokRelOp, relop: RelOpLt})
		case c == '"':
			end := strings.IndexByte(l.input[l.pos+1:], '"')
			if end < 0 {
				return parseError(l.input, "unterminated string literal")
			}
			l.toks = append(l.toks, token{kind: tokQuoted, text: l.input[l.pos+1 : l.pos+1+end]})
			l.pos += end + 2
		case isIdentByte(c):
			start := l.pos
			for l.pos < len(l.input) && isIdentByte(l.input[l.pos]) {
				l.pos++
			}
			l.toks = append(l.toks, token{kind: tokIdent, text: l.input[start:l.pos]})
		default:
			return parseError(l.input, fmt.Sprintf("unexpected byte %q", c))
		}
	}
	l.toks = append(l.toks, token{kind: tokEOF})
	return nil
}

func (l *lexer) emit(t token) {
	l.toks = append(l.toks, t)
	l.pos++
}

type parser struct {
	input string
	toks  []token
	pos   int
}

func (p *parser) peek() token { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }
func (p *parser) accept(k tokenKind) bool {
	if p.toks[p.pos].kind == k {
		p.pos++
		return true
	}
	return false
}

// ParseFormula parses a `depends:`-level dependency formula.
func ParseFormula(input string) (PackageFormula, error) {
	l := &lexer{input: input}
	if err := l.run(); err != nil {
		return nil, err
	}
	p := &parser{input: input, toks: l.toks}
	f, err := p.parseFormula()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, parseError(input, "trailing input after formula")
	}
	return f, nil
}

// ParseVersionExpr parses a bare `{ ... }` filter body, as stored for
// depext conditions.
func ParseVersionExpr(input string) (VersionExpr, error) {
	l := &lexer{input: input}
	if err := l.run(); err != nil {
		return nil, err
	}
	p := &parser{input: input, toks: l.toks}
	e, err := p.parseVersionExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, parseError(input, "trailing input after filter expression")
	}
	return e, nil
}

func (p *parser) parseFormula() (PackageFormula, error) {
	lhs, err := p.parseAndFormula()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		rhs, err := p.parseAndFormula()
		if err != nil {
			return nil, err
		}
		lhs = FOr{LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAndFormula() (PackageFormula, error) {
	lhs, err := p.parseFormulaAtom()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		rhs, err := p.parseFormulaAtom()
		if err != nil {
			return nil, err
		}
		lhs = FAnd{LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parser) parseFormulaAtom() (PackageFormula, error) {
	if p.accept(tokLParen) {
		f, err := p.parseFormula()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, parseError(p.input, "expected )")
		}
		return f, nil
	}
	tok := p.next()
	if tok.kind != tokIdent {
		return nil, parseError(p.input, "expected a package name")
	}
	expr := VersionExpr(VersionRange{Range: version.Full[version.OpamVersion]()})
	if p.accept(tokLBrace) {
		var err error
		expr, err = p.parseVersionExpr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRBrace) {
			return nil, parseError(p.input, "expected }")
		}
	}
	return Direct{Name: tok.text, Expr: expr}, nil
}

func (p *parser) parseVersionExpr() (VersionExpr, error) {
	lhs, err := p.parseVersionAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		rhs, err := p.parseVersionAnd()
		if err != nil {
			return nil, err
		}
		lhs = combineOr(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseVersionAnd() (VersionExpr, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		rhs, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		lhs = combineAnd(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseComparison() (VersionExpr, error) {
	// prefix form: `relop "lit"` constrains the dependency's own version
	if p.peek().kind == tokRelOp {
		op := p.next().relop
		operand, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		lit, ok := operand.(Lit)
		if !ok {
			return nil, parseError(p.input, "prefix comparison requires a quoted version")
		}
		return VersionRange{Range: RelOpToRange(op, version.OpamVersion(lit.Value))}, nil
	}
	lhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokRelOp {
		return lhs, nil
	}
	op := p.next().relop
	rhs, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return Comparator{Op: op, LHS: lhs, RHS: rhs}, nil
}

func (p *parser) parseOperand() (VersionExpr, error) {
	if p.accept(tokNot) {
		tok := p.next()
		if tok.kind != tokIdent {
			return nil, parseError(p.input, "expected a variable after !")
		}
		return NotVariable{Name: tok.text}, nil
	}
	if p.accept(tokLParen) {
		e, err := p.parseVersionExpr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, parseError(p.input, "expected )")
		}
		return e, nil
	}
	tok := p.next()
	switch tok.kind {
	case tokIdent:
		return Variable{Name: tok.text}, nil
	case tokQuoted:
		return Lit{Value: tok.text}, nil
	default:
		return nil, parseError(p.input, "expected a variable, literal or (")
	}
}

// combineAnd conjoins two sub-expressions, collapsing two pure version
// ranges into one by intersection so that version-only filters stay a
// single range.
func combineAnd(lhs, rhs VersionExpr) VersionExpr {
	lr, lok := lhs.(VersionRange)
	rr, rok := rhs.(VersionRange)
	if lok && rok {
		return VersionRange{Range: lr.Range.Intersection(rr.Range)}
	}
	return VAnd{LHS: lhs, RHS: rhs}
}

// combineOr likewise collapses pure version ranges by union.
func combineOr(lhs, rhs VersionExpr) VersionExpr {
	lr, lok := lhs.(VersionRange)
	rr, rok := rhs.(VersionRange)
	if lok && rok {
		return VersionRange{Range: lr.Range.Union(rr.Range)}
	}
	return VOr{LHS: lhs, RHS: rhs}
}
