package rdf

import "fmt"

// WireTerm is the plain, self-describing form of a Term. Only wire values
// cross a worker boundary; live parser terms never do.
type WireTerm struct {
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// WireQuad is the plain form of a Quad.
type WireQuad struct {
	S WireTerm `json:"s"`
	P WireTerm `json:"p"`
	O WireTerm `json:"o"`
	G string   `json:"g,omitempty"`
}

// ToWire flattens a term.
func ToWire(t Term) WireTerm {
	return WireTerm{Kind: string(t.Kind), Value: t.Value, Datatype: t.Datatype, Lang: t.Lang}
}

// Term reconstructs the live term from its wire form.
func (w WireTerm) Term() (Term, error) {
	switch TermKind(w.Kind) {
	case KindIRI:
		if w.Value == "" {
			return Term{}, fmt.Errorf("rdf: empty iri")
		}
		return IRI(w.Value), nil
	case KindBlank:
		if w.Value == "" {
			return Term{}, fmt.Errorf("rdf: empty blank node label")
		}
		return Blank(w.Value), nil
	case KindLiteral:
		if w.Lang != "" {
			return LangLiteral(w.Value, w.Lang), nil
		}
		return TypedLiteral(w.Value, w.Datatype), nil
	default:
		return Term{}, fmt.Errorf("rdf: unknown term kind %q", w.Kind)
	}
}

// QuadToWire flattens a quad.
func QuadToWire(q Quad) WireQuad {
	return WireQuad{S: ToWire(q.Subject), P: ToWire(q.Predicate), O: ToWire(q.Object), G: q.Graph}
}

// Quad reconstructs the live quad from its wire form.
func (w WireQuad) Quad() (Quad, error) {
	s, err := w.S.Term()
	if err != nil {
		return Quad{}, fmt.Errorf("subject: %w", err)
	}
	p, err := w.P.Term()
	if err != nil {
		return Quad{}, fmt.Errorf("predicate: %w", err)
	}
	o, err := w.O.Term()
	if err != nil {
		return Quad{}, fmt.Errorf("object: %w", err)
	}
	return Quad{Subject: s, Predicate: p, Object: o, Graph: w.G}, nil
}

// ToWireQuads flattens a batch of quads.
func ToWireQuads(quads []Quad) []WireQuad {
	out := make([]WireQuad, len(quads))
	for i, q := range quads {
		out[i] = QuadToWire(q)
	}
	return out
}

// FromWireQuads reconstructs a batch, failing on the first malformed entry.
func FromWireQuads(wire []WireQuad) ([]Quad, error) {
	out := make([]Quad, len(wire))
	for i, w := range wire {
		q, err := w.Quad()
		if err != nil {
			return nil, fmt.Errorf("rdf: quad %d: %w", i, err)
		}
		out[i] = q
	}
	return out, nil
}
