package parse

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// NTriples parses application/n-triples.
type NTriples struct{}

func (NTriples) Format() Format { return FormatNTriples }

func (NTriples) Parse(ctx context.Context, r io.Reader, _ string, sink Sink) error {
	return parseLineBased(ctx, r, FormatNTriples, false, sink)
}

// NQuads parses application/n-quads. The optional fourth term names the graph.
type NQuads struct{}

func (NQuads) Format() Format { return FormatNQuads }

func (NQuads) Parse(ctx context.Context, r io.Reader, _ string, sink Sink) error {
	return parseLineBased(ctx, r, FormatNQuads, true, sink)
}

func parseLineBased(ctx context.Context, r io.Reader, format Format, quads bool, sink Sink) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", format, err)
	}
	lx := newLexer(format, string(src))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := lx.next()
		if err != nil {
			return err
		}
		if tok.kind == tokEOF {
			return nil
		}

		subject, err := ntResource(lx, tok, "subject")
		if err != nil {
			return err
		}

		tok, err = lx.next()
		if err != nil {
			return err
		}
		if tok.kind != tokIRI {
			return lx.errorf(tok.line, tok.col, "expected predicate IRI, found %s", tok.describe())
		}
		predicate := rdf.IRI(tok.val)

		tok, err = lx.next()
		if err != nil {
			return err
		}
		var object rdf.Term
		if tok.kind == tokString {
			object, tok, err = ntLiteral(lx, tok)
		} else {
			object, err = ntResource(lx, tok, "object")
			if err == nil {
				tok, err = lx.next()
			}
		}
		if err != nil {
			return err
		}

		q := rdf.Triple(subject, predicate, object)
		if quads && !tok.is(tokPunct, ".") {
			g, err := ntResource(lx, tok, "graph")
			if err != nil {
				return err
			}
			q.Graph = g.Value
			if g.IsBlank() {
				q.Graph = g.ID()
			}
			if tok, err = lx.next(); err != nil {
				return err
			}
		}
		if !tok.is(tokPunct, ".") {
			return lx.errorf(tok.line, tok.col, "expected '.', found %s", tok.describe())
		}
		if sink == nil {
			continue
		}
		if err := sink.OnQuad(q); err != nil {
			return err
		}
	}
}

func ntResource(lx *lexer, tok token, role string) (rdf.Term, error) {
	switch tok.kind {
	case tokIRI:
		return rdf.IRI(tok.val), nil
	case tokBlank:
		return rdf.Blank(tok.val), nil
	default:
		return rdf.Term{}, lx.errorf(tok.line, tok.col, "expected %s IRI or blank node, found %s", role, tok.describe())
	}
}

// ntLiteral reads an optional language tag or datatype after a string and
// returns the literal together with the following token.
func ntLiteral(lx *lexer, str token) (rdf.Term, token, error) {
	tok, err := lx.next()
	if err != nil {
		return rdf.Term{}, token{}, err
	}
	switch {
	case tok.kind == tokLangTag:
		next, err := lx.next()
		return rdf.LangLiteral(str.val, tok.val), next, err
	case tok.is(tokPunct, "^^"):
		dt, err := lx.next()
		if err != nil {
			return rdf.Term{}, token{}, err
		}
		if dt.kind != tokIRI {
			return rdf.Term{}, token{}, lx.errorf(dt.line, dt.col, "expected datatype IRI, found %s", dt.describe())
		}
		next, err := lx.next()
		return rdf.TypedLiteral(str.val, dt.val), next, err
	default:
		return rdf.Literal(str.val), tok, nil
	}
}
