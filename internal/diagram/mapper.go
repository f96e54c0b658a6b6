// Package diagram maps a statement set to a typed node/edge graph.
//
// Only statements in the data graph create nodes and edges. Statements in
// the inferred graph are folded onto nodes that already exist; every other
// graph is ignored. The mapping is a pure function of its input.
package diagram

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// SchemaClasses are the types that mark a node as a schema element.
var SchemaClasses = map[string]bool{
	rdf.OWLClass:              true,
	rdf.RDFSClass:             true,
	rdf.RDFSDatatype:          true,
	rdf.RDFProperty:           true,
	rdf.OWLObjectProperty:     true,
	rdf.OWLDatatypeProperty:   true,
	rdf.OWLAnnotationProperty: true,
	rdf.OWLTransitiveProperty: true,
	rdf.OWLSymmetricProperty:  true,
	rdf.OWLRestriction:        true,
	rdf.OWLOntology:           true,
}

// Literal is a literal-valued attribute.
type Literal struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Attribute is a value that is not drawn as an edge. Datatype and Lang are
// set when the value is a literal.
type Attribute struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Node is one diagram element.
type Node struct {
	ID              string      `json:"id"`
	Prefixed        string      `json:"prefixed,omitempty"`
	Label           string      `json:"label,omitempty"`
	Types           []string    `json:"types"`
	PrimaryType     string      `json:"primaryType,omitempty"`
	Literals        []Literal   `json:"literals,omitempty"`
	Annotations     []Attribute `json:"annotations,omitempty"`
	Relations       []Attribute `json:"relations,omitempty"`
	IsSchemaElement bool        `json:"isSchemaElement"`
	Placeholder     bool        `json:"placeholder,omitempty"`
}

// Edge is one relational statement.
type Edge struct {
	ID                string `json:"id"`
	Source            string `json:"source"`
	Target            string `json:"target"`
	Predicate         string `json:"predicate"`
	PredicatePrefixed string `json:"predicatePrefixed,omitempty"`
}

// Result is the mapper output.
type Result struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Options carries the side information for a mapping.
type Options struct {
	// Classifier decides predicate roles. Empty means DefaultClassifier.
	Classifier Classifier
	// KnownSchemaClasses extends SchemaClasses.
	KnownSchemaClasses map[string]bool
	// Prefixes is used for the compact forms on nodes and edges.
	Prefixes rdf.PrefixMap
}

// EdgeID returns the identity of the edge subject -predicate-> object.
// It depends only on the three ids.
func EdgeID(subject, predicate, object string) string {
	sum := sha256.Sum256([]byte(subject + "\x00" + predicate + "\x00" + object))
	return "e_" + hex.EncodeToString(sum[:])[:16]
}

type mapper struct {
	opts      Options
	nodes     map[string]*Node
	order     []string
	subjects  map[string]bool
	creators  map[string]string
	edges     []Edge
	edgeIndex map[string]bool
}

// Map transforms quads into nodes and edges. Malformed statements are
// skipped. Nodes come out in first-appearance order and edges in
// statement order.
func Map(quads []rdf.Quad, opts Options) Result {
	if len(opts.Classifier) == 0 {
		opts.Classifier = DefaultClassifier()
	}
	m := &mapper{
		opts:      opts,
		nodes:     make(map[string]*Node),
		subjects:  make(map[string]bool),
		creators:  make(map[string]string),
		edgeIndex: make(map[string]bool),
	}

	var data, inferred []rdf.Quad
	for _, q := range quads {
		if !q.Valid() {
			continue
		}
		switch q.Graph {
		case rdf.GraphData:
			data = append(data, q)
			m.subjects[q.Subject.ID()] = true
		case rdf.GraphInferred:
			inferred = append(inferred, q)
		}
	}

	for _, q := range data {
		m.foldData(q)
	}
	for _, q := range inferred {
		m.foldInferred(q)
	}
	return m.result()
}

func (m *mapper) node(id string) *Node {
	if n, ok := m.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Types: []string{}}
	m.nodes[id] = n
	m.order = append(m.order, id)
	return n
}

func (m *mapper) foldData(q rdf.Quad) {
	n := m.node(q.Subject.ID())
	p, o := q.Predicate.Value, q.Object

	if m.foldCommon(n, q) {
		return
	}
	if o.IsLiteral() {
		n.Literals = append(n.Literals, literalOf(p, o))
		return
	}

	kind := m.opts.Classifier.Classify(p)
	switch {
	case kind == KindObject || kind == KindUnknown:
		m.addEdge(n, p, o.ID())
	case o.IsBlank() && m.subjects[o.ID()]:
		m.addEdge(n, p, o.ID())
	case kind == KindDatatype:
		n.Relations = append(n.Relations, Attribute{Key: p, Value: o.ID()})
	default:
		n.Annotations = append(n.Annotations, Attribute{Key: p, Value: o.ID()})
	}
}

// foldInferred extends nodes created from data. It never creates nodes
// and leaves placeholders untouched.
func (m *mapper) foldInferred(q rdf.Quad) {
	id := q.Subject.ID()
	if !m.subjects[id] {
		return
	}
	n := m.nodes[id]
	if m.foldCommon(n, q) {
		return
	}
	if q.Object.IsLiteral() {
		lit := literalOf(q.Predicate.Value, q.Object)
		n.Annotations = append(n.Annotations, Attribute{Key: lit.Key, Value: lit.Value, Datatype: lit.Datatype, Lang: lit.Lang})
		return
	}
	n.Annotations = append(n.Annotations, Attribute{Key: q.Predicate.Value, Value: q.Object.ID()})
}

// foldCommon applies the type and label rules shared by both graphs.
func (m *mapper) foldCommon(n *Node, q rdf.Quad) bool {
	switch {
	case q.Predicate.Value == rdf.RDFType && q.Object.IsResource():
		t := q.Object.ID()
		for _, existing := range n.Types {
			if existing == t {
				return true
			}
		}
		n.Types = append(n.Types, t)
		return true
	case q.Predicate.Value == rdf.RDFSLabel && q.Object.IsLiteral():
		n.Label = q.Object.Value
		return true
	}
	return false
}

func (m *mapper) addEdge(src *Node, predicate, target string) {
	id := EdgeID(src.ID, predicate, target)
	if m.edgeIndex[id] {
		return
	}
	m.edgeIndex[id] = true

	if !m.subjects[target] {
		if _, ok := m.nodes[target]; !ok {
			m.node(target).Placeholder = true
			m.creators[target] = src.ID
		}
	}
	m.edges = append(m.edges, Edge{ID: id, Source: src.ID, Target: target, Predicate: predicate})
}

func (m *mapper) isSchema(types []string) bool {
	schema := false
	for _, t := range types {
		if t == rdf.OWLNamedIndividual {
			return false
		}
		if SchemaClasses[t] || m.opts.KnownSchemaClasses[t] {
			schema = true
		}
	}
	return schema
}

func (m *mapper) result() Result {
	res := Result{Nodes: make([]Node, 0, len(m.order)), Edges: m.edges}
	if res.Edges == nil {
		res.Edges = []Edge{}
	}

	for _, id := range m.order {
		n := m.nodes[id]
		if n.Placeholder {
			continue
		}
		n.IsSchemaElement = m.isSchema(n.Types)
		n.PrimaryType = primaryType(n.Types)
	}
	for _, id := range m.order {
		n := m.nodes[id]
		if n.Placeholder {
			n.IsSchemaElement = m.nodes[m.creators[id]].IsSchemaElement
		}
		n.Prefixed = m.compact(id)
		res.Nodes = append(res.Nodes, *n)
	}
	for i := range res.Edges {
		res.Edges[i].PredicatePrefixed = m.compact(res.Edges[i].Predicate)
	}
	return res
}

func (m *mapper) compact(id string) string {
	if m.opts.Prefixes == nil {
		return ""
	}
	if c, ok := m.opts.Prefixes.Compact(id); ok {
		return c
	}
	return ""
}

// primaryType is the first declared type other than owl:NamedIndividual.
func primaryType(types []string) string {
	for _, t := range types {
		if t != rdf.OWLNamedIndividual {
			return t
		}
	}
	return ""
}

func literalOf(key string, o rdf.Term) Literal {
	return Literal{Key: key, Value: o.Value, Datatype: o.Datatype, Lang: o.Lang}
}
