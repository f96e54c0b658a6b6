package parse

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// Turtle parses text/turtle documents. Statements land in the default graph.
type Turtle struct{}

func (Turtle) Format() Format { return FormatTurtle }

func (Turtle) Parse(ctx context.Context, r io.Reader, base string, sink Sink) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read turtle: %w", err)
	}
	p, err := newTurtleParser(ctx, FormatTurtle, string(src), base, sink)
	if err != nil {
		return err
	}
	return p.parseDocument()
}

// turtleParser is a recursive descent parser over the Turtle grammar. With
// n3 set it also accepts variables and { } formulas for rule documents.
type turtleParser struct {
	ctx      context.Context
	lex      *lexer
	tok      token
	peeked   *token
	base     *url.URL
	prefixes rdf.PrefixMap
	sink     Sink
	n3       bool
	anon     int

	// formula collects statements inside { } when non-nil.
	formula *[]rdf.Quad
	// onRule receives body/head pairs from N3 documents.
	onRule func(body, head []rdf.Quad) error
}

func newTurtleParser(ctx context.Context, format Format, src, base string, sink Sink) (*turtleParser, error) {
	p := &turtleParser{
		ctx:      ctx,
		lex:      newLexer(format, src),
		prefixes: rdf.PrefixMap{},
		sink:     sink,
	}
	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, newSyntaxError(format, 0, 0, "invalid base IRI %q", base)
		}
		p.base = u
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *turtleParser) advance() error {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return nil
	}
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *turtleParser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

func (p *turtleParser) errorf(format string, args ...any) error {
	return newSyntaxError(p.lex.format, p.tok.line, p.tok.col, format, args...)
}

func (p *turtleParser) expectPunct(val string) error {
	if !p.tok.is(tokPunct, val) {
		return p.errorf("expected %q, found %s", val, p.tok.describe())
	}
	return p.advance()
}

func (p *turtleParser) parseDocument() error {
	for p.tok.kind != tokEOF {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
	return nil
}

func (p *turtleParser) parseStatement() error {
	switch {
	case p.tok.is(tokKeyword, "@prefix"):
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parsePrefixDecl(); err != nil {
			return err
		}
		return p.expectPunct(".")
	case p.tok.is(tokKeyword, "PREFIX"):
		if err := p.advance(); err != nil {
			return err
		}
		return p.parsePrefixDecl()
	case p.tok.is(tokKeyword, "@base"):
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parseBaseDecl(); err != nil {
			return err
		}
		return p.expectPunct(".")
	case p.tok.is(tokKeyword, "BASE"):
		if err := p.advance(); err != nil {
			return err
		}
		return p.parseBaseDecl()
	case p.n3 && p.tok.is(tokPunct, "{"):
		return p.parseRuleStatement()
	}

	if err := p.parseTriples(); err != nil {
		return err
	}
	return p.expectPunct(".")
}

func (p *turtleParser) parsePrefixDecl() error {
	if p.tok.kind != tokPName || !strings.HasSuffix(p.tok.val, ":") {
		return p.errorf("expected prefix name, found %s", p.tok.describe())
	}
	prefix := strings.TrimSuffix(p.tok.val, ":")
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tokIRI {
		return p.errorf("expected IRI for prefix %q, found %s", prefix, p.tok.describe())
	}
	iri := p.resolve(p.tok.val)
	p.prefixes[prefix] = iri
	if p.sink != nil {
		p.sink.OnPrefix(prefix, iri)
	}
	return p.advance()
}

func (p *turtleParser) parseBaseDecl() error {
	if p.tok.kind != tokIRI {
		return p.errorf("expected base IRI, found %s", p.tok.describe())
	}
	u, err := url.Parse(p.resolve(p.tok.val))
	if err != nil {
		return p.errorf("invalid base IRI %q", p.tok.val)
	}
	p.base = u
	return p.advance()
}

func (p *turtleParser) resolve(iri string) string {
	if p.base == nil {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil || ref.IsAbs() {
		return iri
	}
	return p.base.ResolveReference(ref).String()
}

func (p *turtleParser) expandPName(pname string) (string, error) {
	prefix, local, _ := strings.Cut(pname, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf("undefined prefix %q", prefix)
	}
	return ns + local, nil
}

// anonPrefix starts generated blank labels. Written labels cannot contain
// ':', so generated and written labels never meet.
const anonPrefix = "genid:"

func (p *turtleParser) newAnon() rdf.Term {
	t := rdf.Blank(fmt.Sprintf("%s%d", anonPrefix, p.anon))
	p.anon++
	return t
}

func (p *turtleParser) emit(s, pr, o rdf.Term) error {
	q := rdf.Triple(s, pr, o)
	if p.formula != nil {
		*p.formula = append(*p.formula, q)
		return nil
	}
	if p.sink == nil {
		return nil
	}
	return p.sink.OnQuad(q)
}

func (p *turtleParser) parseTriples() error {
	if p.tok.is(tokPunct, "[") {
		subject, err := p.parseBlankNodePropertyList()
		if err != nil {
			return err
		}
		if p.tok.is(tokPunct, ".") || p.tok.is(tokPunct, "}") {
			return nil
		}
		return p.parsePredicateObjectList(subject)
	}
	subject, err := p.parseSubject()
	if err != nil {
		return err
	}
	return p.parsePredicateObjectList(subject)
}

func (p *turtleParser) parseSubject() (rdf.Term, error) {
	switch {
	case p.tok.kind == tokIRI, p.tok.kind == tokPName:
		return p.parseIRI()
	case p.tok.kind == tokBlank:
		t := rdf.Blank(p.tok.val)
		return t, p.advance()
	case p.tok.kind == tokVar && p.n3:
		t := rdf.Variable(p.tok.val)
		return t, p.advance()
	case p.tok.is(tokPunct, "("):
		return p.parseCollection()
	default:
		return rdf.Term{}, p.errorf("expected subject, found %s", p.tok.describe())
	}
}

func (p *turtleParser) parseIRI() (rdf.Term, error) {
	var iri string
	switch p.tok.kind {
	case tokIRI:
		iri = p.resolve(p.tok.val)
	case tokPName:
		expanded, err := p.expandPName(p.tok.val)
		if err != nil {
			return rdf.Term{}, err
		}
		iri = expanded
	default:
		return rdf.Term{}, p.errorf("expected IRI, found %s", p.tok.describe())
	}
	return rdf.IRI(iri), p.advance()
}

func (p *turtleParser) parseVerb() (rdf.Term, error) {
	switch {
	case p.tok.is(tokKeyword, "a"):
		return rdf.IRI(rdf.RDFType), p.advance()
	case p.tok.kind == tokVar && p.n3:
		t := rdf.Variable(p.tok.val)
		return t, p.advance()
	case p.tok.kind == tokIRI, p.tok.kind == tokPName:
		return p.parseIRI()
	default:
		return rdf.Term{}, p.errorf("expected predicate, found %s", p.tok.describe())
	}
}

func (p *turtleParser) parsePredicateObjectList(subject rdf.Term) error {
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, verb); err != nil {
			return err
		}
		if !p.tok.is(tokPunct, ";") {
			return nil
		}
		for p.tok.is(tokPunct, ";") {
			if err := p.advance(); err != nil {
				return err
			}
		}
		// A trailing ';' may close the list.
		if p.tok.is(tokPunct, ".") || p.tok.is(tokPunct, "]") || p.tok.is(tokPunct, "}") {
			return nil
		}
	}
}

func (p *turtleParser) parseObjectList(subject, verb rdf.Term) error {
	for {
		obj, err := p.parseObject()
		if err != nil {
			return err
		}
		if err := p.emit(subject, verb, obj); err != nil {
			return err
		}
		if !p.tok.is(tokPunct, ",") {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *turtleParser) parseObject() (rdf.Term, error) {
	switch {
	case p.tok.kind == tokIRI, p.tok.kind == tokPName:
		return p.parseIRI()
	case p.tok.kind == tokBlank:
		t := rdf.Blank(p.tok.val)
		return t, p.advance()
	case p.tok.kind == tokVar && p.n3:
		t := rdf.Variable(p.tok.val)
		return t, p.advance()
	case p.tok.is(tokPunct, "["):
		return p.parseBlankNodePropertyList()
	case p.tok.is(tokPunct, "("):
		return p.parseCollection()
	case p.tok.kind == tokString:
		return p.parseLiteral()
	case p.tok.kind == tokNumber:
		t := rdf.TypedLiteral(p.tok.val, rdf.NamespaceXSD+p.tok.dt)
		return t, p.advance()
	case p.tok.is(tokKeyword, "true"), p.tok.is(tokKeyword, "false"):
		t := rdf.TypedLiteral(p.tok.val, rdf.XSDBoolean)
		return t, p.advance()
	default:
		return rdf.Term{}, p.errorf("expected object, found %s", p.tok.describe())
	}
}

func (p *turtleParser) parseLiteral() (rdf.Term, error) {
	lexical := p.tok.val
	if err := p.advance(); err != nil {
		return rdf.Term{}, err
	}
	switch {
	case p.tok.kind == tokLangTag:
		t := rdf.LangLiteral(lexical, p.tok.val)
		return t, p.advance()
	case p.tok.is(tokPunct, "^^"):
		if err := p.advance(); err != nil {
			return rdf.Term{}, err
		}
		dt, err := p.parseIRI()
		if err != nil {
			return rdf.Term{}, err
		}
		return rdf.TypedLiteral(lexical, dt.Value), nil
	default:
		return rdf.Literal(lexical), nil
	}
}

func (p *turtleParser) parseBlankNodePropertyList() (rdf.Term, error) {
	if err := p.expectPunct("["); err != nil {
		return rdf.Term{}, err
	}
	node := p.newAnon()
	if p.tok.is(tokPunct, "]") {
		return node, p.advance()
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return rdf.Term{}, err
	}
	return node, p.expectPunct("]")
}

func (p *turtleParser) parseCollection() (rdf.Term, error) {
	if err := p.expectPunct("("); err != nil {
		return rdf.Term{}, err
	}
	var items []rdf.Term
	for !p.tok.is(tokPunct, ")") {
		if p.tok.kind == tokEOF {
			return rdf.Term{}, p.errorf("unterminated collection")
		}
		item, err := p.parseObject()
		if err != nil {
			return rdf.Term{}, err
		}
		items = append(items, item)
	}
	if err := p.advance(); err != nil {
		return rdf.Term{}, err
	}

	nilTerm := rdf.IRI(rdf.RDFNil)
	if len(items) == 0 {
		return nilTerm, nil
	}
	cells := make([]rdf.Term, len(items))
	for i := range items {
		cells[i] = p.newAnon()
	}
	first, rest := rdf.IRI(rdf.RDFFirst), rdf.IRI(rdf.RDFRest)
	for i, item := range items {
		if err := p.emit(cells[i], first, item); err != nil {
			return rdf.Term{}, err
		}
		next := nilTerm
		if i+1 < len(cells) {
			next = cells[i+1]
		}
		if err := p.emit(cells[i], rest, next); err != nil {
			return rdf.Term{}, err
		}
	}
	return cells[0], nil
}
