// Package rdf holds the statement model shared by every stage of the
// pipeline: terms, quads, named graphs, the plain wire form used across
// worker boundaries, and the vocabulary IRIs the core relies on.
package rdf

import "strings"

// TermKind tags the variant held by a Term.
type TermKind string

const (
	KindIRI     TermKind = "iri"
	KindBlank   TermKind = "bnode"
	KindLiteral TermKind = "lit"

	// KindVariable only appears in rule patterns. It never crosses the
	// wire and is never a valid statement term.
	KindVariable TermKind = "var"
)

// Term is an RDF term: an IRI, a blank node, or a literal.
// Terms are comparable values; two terms are equal when all fields are equal.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string // literals only; empty means xsd:string (or rdf:langString when Lang is set)
	Lang     string // literals only, lower-cased
}

// IRI returns an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Blank returns a blank node term. A leading "_:" is stripped so that labels
// coming from different syntaxes compare equal.
func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")}
}

// Scoped returns a blank node relabeled as scope-label. Other terms are
// returned unchanged.
func (t Term) Scoped(scope string) Term {
	if !t.IsBlank() {
		return t
	}
	return Blank(scope + "-" + t.Value)
}

// Literal returns a plain string literal.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Lang: strings.ToLower(lang)}
}

// TypedLiteral returns a literal with an explicit datatype. xsd:string and
// rdf:langString are normalized away so equality is structural.
func TypedLiteral(value, datatype string) Term {
	if datatype == XSDString || datatype == RDFLangString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// Variable returns a rule variable; a leading "?" is stripped.
func Variable(name string) Term {
	return Term{Kind: KindVariable, Value: strings.TrimPrefix(name, "?")}
}

func (t Term) IsIRI() bool      { return t.Kind == KindIRI }
func (t Term) IsBlank() bool    { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool  { return t.Kind == KindLiteral }
func (t Term) IsVariable() bool { return t.Kind == KindVariable }

// IsResource reports whether the term can be a statement subject.
func (t Term) IsResource() bool { return t.IsIRI() || t.IsBlank() }

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool { return t.Kind == "" && t.Value == "" }

// DatatypeIRI returns the effective datatype of a literal.
func (t Term) DatatypeIRI() string {
	switch {
	case !t.IsLiteral():
		return ""
	case t.Lang != "":
		return RDFLangString
	case t.Datatype == "":
		return XSDString
	default:
		return t.Datatype
	}
}

// ID returns the identifier used for graph nodes: the IRI itself, or "_:" plus
// the blank node label. Literals return their lexical value.
func (t Term) ID() string {
	if t.IsBlank() {
		return "_:" + t.Value
	}
	return t.Value
}

// String returns the N-Triples encoding of the term.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindVariable:
		return "?" + t.Value
	case KindLiteral:
		var sb strings.Builder
		sb.Grow(len(t.Value) + 2)
		sb.WriteByte('"')
		sb.WriteString(EscapeLiteral(t.Value))
		sb.WriteByte('"')
		if t.Lang != "" {
			sb.WriteString("@" + t.Lang)
		} else if t.Datatype != "" {
			sb.WriteString("^^<" + t.Datatype + ">")
		}
		return sb.String()
	default:
		return ""
	}
}

// EscapeLiteral escapes a lexical value for use between double quotes in
// N-Triples and Turtle.
func EscapeLiteral(value string) string {
	if !strings.ContainsAny(value, "\\\"\n\r\t") {
		return value
	}
	var sb strings.Builder
	sb.Grow(len(value) + len(value)/8)
	for _, r := range value {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
