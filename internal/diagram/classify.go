package diagram

import (
	"strings"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// PredicateKind is the role a predicate plays when mapping.
type PredicateKind string

const (
	KindObject     PredicateKind = "object"
	KindDatatype   PredicateKind = "datatype"
	KindAnnotation PredicateKind = "annotation"
	KindUnknown    PredicateKind = "unknown"
)

// Strategy classifies one predicate IRI, answering KindUnknown when it
// has no opinion.
type Strategy interface {
	Classify(predicate string) PredicateKind
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(predicate string) PredicateKind

func (f StrategyFunc) Classify(predicate string) PredicateKind { return f(predicate) }

// Classifier evaluates strategies in order and returns the first answer
// that is not KindUnknown.
type Classifier []Strategy

// Classify implements Strategy.
func (c Classifier) Classify(predicate string) PredicateKind {
	for _, s := range c {
		if k := s.Classify(predicate); k != KindUnknown {
			return k
		}
	}
	return KindUnknown
}

// VocabularyStrategy knows the roles of well-known RDF, RDFS, OWL and
// SKOS predicates.
type VocabularyStrategy struct{}

var vocabulary = map[string]PredicateKind{
	rdf.RDFSSubClassOf:             KindObject,
	rdf.RDFSSubPropertyOf:          KindObject,
	rdf.RDFSDomain:                 KindObject,
	rdf.RDFSRange:                  KindObject,
	rdf.OWLEquivalentClass:         KindObject,
	rdf.OWLDisjointWith:            KindObject,
	rdf.OWLInverseOf:               KindObject,
	rdf.OWLImports:                 KindObject,
	rdf.NamespaceSKOS + "broader":  KindObject,
	rdf.NamespaceSKOS + "narrower": KindObject,
	rdf.NamespaceSKOS + "related":  KindObject,
	rdf.NamespaceSKOS + "inScheme": KindObject,

	rdf.RDFSLabel:       KindAnnotation,
	rdf.RDFSComment:     KindAnnotation,
	rdf.RDFSSeeAlso:     KindAnnotation,
	rdf.RDFSIsDefinedBy: KindAnnotation,
	rdf.OWLVersionInfo:  KindAnnotation,
}

func (VocabularyStrategy) Classify(predicate string) PredicateKind {
	if k, ok := vocabulary[predicate]; ok {
		return k
	}
	return KindUnknown
}

// DeclaredStrategy classifies predicates by their owl property type
// declarations.
type DeclaredStrategy map[string]PredicateKind

var declarationKinds = map[string]PredicateKind{
	rdf.OWLObjectProperty:     KindObject,
	rdf.OWLTransitiveProperty: KindObject,
	rdf.OWLSymmetricProperty:  KindObject,
	rdf.OWLDatatypeProperty:   KindDatatype,
	rdf.OWLAnnotationProperty: KindAnnotation,
}

// DeclaredFrom collects property declarations from the data and
// ontologies graphs of quads. The first declaration of a predicate wins.
func DeclaredFrom(quads []rdf.Quad) DeclaredStrategy {
	d := make(DeclaredStrategy)
	for _, q := range quads {
		if q.Graph != rdf.GraphData && q.Graph != rdf.GraphOntologies {
			continue
		}
		if q.Predicate.Value != rdf.RDFType || !q.Subject.IsIRI() || !q.Object.IsIRI() {
			continue
		}
		k, ok := declarationKinds[q.Object.Value]
		if !ok {
			continue
		}
		if _, seen := d[q.Subject.Value]; !seen {
			d[q.Subject.Value] = k
		}
	}
	return d
}

func (d DeclaredStrategy) Classify(predicate string) PredicateKind {
	if k, ok := d[predicate]; ok {
		return k
	}
	return KindUnknown
}

// NamespaceStrategy treats every predicate under one of its namespaces as
// an annotation.
type NamespaceStrategy []string

// AnnotationNamespaces are the metadata vocabularies.
var AnnotationNamespaces = NamespaceStrategy{rdf.NamespaceDC, rdf.NamespaceDCTerms, rdf.NamespaceSKOS}

func (n NamespaceStrategy) Classify(predicate string) PredicateKind {
	for _, ns := range n {
		if strings.HasPrefix(predicate, ns) {
			return KindAnnotation
		}
	}
	return KindUnknown
}

// DefaultClassifier knows only the built-in vocabularies.
func DefaultClassifier() Classifier {
	return Classifier{VocabularyStrategy{}, AnnotationNamespaces}
}

// ClassifierFor builds the default strategy list plus the property
// declarations found in quads.
func ClassifierFor(quads []rdf.Quad) Classifier {
	return Classifier{VocabularyStrategy{}, DeclaredFrom(quads), AnnotationNamespaces}
}
