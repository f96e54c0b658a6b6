package rdf

import "strings"

// Named graphs partitioning the statement store.
const (
	// GraphData holds asserted facts. It is the only graph the mapper
	// creates nodes and edges from.
	GraphData = "urn:vg:data"

	// GraphInferred holds facts derived by the reasoning pass. The whole
	// partition is disposable and regenerable.
	GraphInferred = "urn:vg:inferred"

	// GraphOntologies holds schema and vocabulary facts.
	GraphOntologies = "urn:vg:ontologies"

	// GraphCatalog holds auxiliary reference facts such as workflow templates.
	GraphCatalog = "urn:vg:catalog"
)

// KnownGraphs lists the named graphs in display order.
var KnownGraphs = []string{GraphData, GraphInferred, GraphOntologies, GraphCatalog}

// Quad is a single fact. An empty Graph denotes the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     string
}

// NewQuad builds a quad in graph g.
func NewQuad(subject, predicate, object Term, g string) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object, Graph: g}
}

// Triple builds a quad in the default graph.
func Triple(subject, predicate, object Term) Quad {
	return Quad{Subject: subject, Predicate: predicate, Object: object}
}

// Key returns the structural key subject|predicate|object|graph. Terms are
// written in N-Triples form so distinct quads never share a key.
func (q Quad) Key() string {
	var sb strings.Builder
	s, p, o := q.Subject.String(), q.Predicate.String(), q.Object.String()
	sb.Grow(len(s) + len(p) + len(o) + len(q.Graph) + 3)
	sb.WriteString(s)
	sb.WriteByte('|')
	sb.WriteString(p)
	sb.WriteByte('|')
	sb.WriteString(o)
	sb.WriteByte('|')
	sb.WriteString(q.Graph)
	return sb.String()
}

// Valid reports whether the quad is structurally well formed: a resource
// subject, an IRI predicate and a non-empty object.
func (q Quad) Valid() bool {
	if !q.Subject.IsResource() || q.Subject.Value == "" {
		return false
	}
	if !q.Predicate.IsIRI() || q.Predicate.Value == "" {
		return false
	}
	switch q.Object.Kind {
	case KindIRI, KindBlank:
		return q.Object.Value != ""
	case KindLiteral:
		return true
	default:
		return false
	}
}

// InGraph returns a copy of the quad re-tagged into graph g.
func (q Quad) InGraph(g string) Quad {
	q.Graph = g
	return q
}

// String returns the N-Quads line for the quad, without a trailing newline.
func (q Quad) String() string {
	if q.Graph == "" {
		return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " ."
	}
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " <" + q.Graph + "> ."
}

// FilterGraph returns the quads that belong to graph g, preserving order.
func FilterGraph(quads []Quad, g string) []Quad {
	out := make([]Quad, 0, len(quads))
	for _, q := range quads {
		if q.Graph == g {
			out = append(out, q)
		}
	}
	return out
}

// ScopeBlanks returns q with every blank node label, including a blank
// graph name, prefixed by scope. Blank labels are local to one document;
// loading each document under its own scope keeps them apart in a store.
func (q Quad) ScopeBlanks(scope string) Quad {
	q.Subject = q.Subject.Scoped(scope)
	q.Object = q.Object.Scoped(scope)
	if label, ok := strings.CutPrefix(q.Graph, "_:"); ok {
		q.Graph = "_:" + scope + "-" + label
	}
	return q
}
