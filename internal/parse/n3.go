package parse

import (
	"context"
	"fmt"
	"io"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// Rule is a parsed N3 implication. Body and Head hold triple patterns whose
// terms may be variables.
type Rule struct {
	Name string
	Body []rdf.Quad
	Head []rdf.Quad
}

// ParseRules reads an N3 rule document. Only the rule subset is accepted:
// prefix and base directives, plain triples (ignored), and implications
// written as `{ body } => { head } .` or `{ body } log:implies { head } .`.
// Rules are named name#1, name#2 and so on in document order.
func ParseRules(ctx context.Context, r io.Reader, name string) ([]Rule, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", name, err)
	}
	p, err := newTurtleParser(ctx, FormatN3, string(src), "", nil)
	if err != nil {
		return nil, err
	}
	p.n3 = true

	var rules []Rule
	p.onRule = func(body, head []rdf.Quad) error {
		rules = append(rules, Rule{
			Name: fmt.Sprintf("%s#%d", name, len(rules)+1),
			Body: body,
			Head: head,
		})
		return nil
	}
	if err := p.parseDocument(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (p *turtleParser) parseRuleStatement() error {
	body, err := p.parseFormula()
	if err != nil {
		return err
	}

	switch {
	case p.tok.is(tokPunct, "=>"):
	case p.tok.kind == tokPName || p.tok.kind == tokIRI:
		verb, err := p.parseIRI()
		if err != nil {
			return err
		}
		if verb.Value != rdf.LogImplies {
			return p.errorf("unsupported formula predicate %s", verb)
		}
		head, err := p.parseFormula()
		if err != nil {
			return err
		}
		return p.finishRule(body, head)
	default:
		return p.errorf("expected '=>' after rule body, found %s", p.tok.describe())
	}

	if err := p.advance(); err != nil {
		return err
	}
	head, err := p.parseFormula()
	if err != nil {
		return err
	}
	return p.finishRule(body, head)
}

func (p *turtleParser) finishRule(body, head []rdf.Quad) error {
	if err := p.expectPunct("."); err != nil {
		return err
	}
	if len(head) == 0 {
		return nil
	}
	if p.onRule == nil {
		return nil
	}
	return p.onRule(body, head)
}

// parseFormula reads { triples } and returns the collected patterns.
func (p *turtleParser) parseFormula() ([]rdf.Quad, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if p.formula != nil {
		return nil, p.errorf("nested formulas are not supported")
	}
	var out []rdf.Quad
	p.formula = &out
	defer func() { p.formula = nil }()

	for !p.tok.is(tokPunct, "}") {
		if p.tok.kind == tokEOF {
			return nil, p.errorf("unterminated formula")
		}
		if err := p.parseTriples(); err != nil {
			return nil, err
		}
		if p.tok.is(tokPunct, ".") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if !p.tok.is(tokPunct, "}") {
			return nil, p.errorf("expected '.' or '}', found %s", p.tok.describe())
		}
	}
	return out, p.advance()
}
