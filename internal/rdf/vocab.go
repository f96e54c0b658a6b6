package rdf

// Namespace IRIs.
const (
	NamespaceRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceOWL     = "http://www.w3.org/2002/07/owl#"
	NamespaceXSD     = "http://www.w3.org/2001/XMLSchema#"
	NamespaceSH      = "http://www.w3.org/ns/shacl#"
	NamespaceSKOS    = "http://www.w3.org/2004/02/skos/core#"
	NamespaceDC      = "http://purl.org/dc/elements/1.1/"
	NamespaceDCTerms = "http://purl.org/dc/terms/"
	NamespacePROV    = "http://www.w3.org/ns/prov#"
	NamespaceLog     = "http://www.w3.org/2000/10/swap/log#"
)

// RDF and RDFS terms.
const (
	RDFType       = NamespaceRDF + "type"
	RDFProperty   = NamespaceRDF + "Property"
	RDFFirst      = NamespaceRDF + "first"
	RDFRest       = NamespaceRDF + "rest"
	RDFNil        = NamespaceRDF + "nil"
	RDFLangString = NamespaceRDF + "langString"

	RDFSLabel         = NamespaceRDFS + "label"
	RDFSComment       = NamespaceRDFS + "comment"
	RDFSSeeAlso       = NamespaceRDFS + "seeAlso"
	RDFSIsDefinedBy   = NamespaceRDFS + "isDefinedBy"
	RDFSClass         = NamespaceRDFS + "Class"
	RDFSDatatype      = NamespaceRDFS + "Datatype"
	RDFSSubClassOf    = NamespaceRDFS + "subClassOf"
	RDFSSubPropertyOf = NamespaceRDFS + "subPropertyOf"
	RDFSDomain        = NamespaceRDFS + "domain"
	RDFSRange         = NamespaceRDFS + "range"
)

// OWL terms.
const (
	OWLClass              = NamespaceOWL + "Class"
	OWLOntology           = NamespaceOWL + "Ontology"
	OWLObjectProperty     = NamespaceOWL + "ObjectProperty"
	OWLDatatypeProperty   = NamespaceOWL + "DatatypeProperty"
	OWLAnnotationProperty = NamespaceOWL + "AnnotationProperty"
	OWLNamedIndividual    = NamespaceOWL + "NamedIndividual"
	OWLRestriction        = NamespaceOWL + "Restriction"
	OWLDisjointWith       = NamespaceOWL + "disjointWith"
	OWLEquivalentClass    = NamespaceOWL + "equivalentClass"
	OWLInverseOf          = NamespaceOWL + "inverseOf"
	OWLSymmetricProperty  = NamespaceOWL + "SymmetricProperty"
	OWLTransitiveProperty = NamespaceOWL + "TransitiveProperty"
	OWLImports            = NamespaceOWL + "imports"
	OWLVersionInfo        = NamespaceOWL + "versionInfo"
)

// XSD datatypes.
const (
	XSDString  = NamespaceXSD + "string"
	XSDBoolean = NamespaceXSD + "boolean"
	XSDInteger = NamespaceXSD + "integer"
	XSDDecimal = NamespaceXSD + "decimal"
	XSDDouble  = NamespaceXSD + "double"
)

// SHACL validation-result vocabulary.
const (
	SHValidationResult = NamespaceSH + "ValidationResult"
	SHFocusNode        = NamespaceSH + "focusNode"
	SHResultMessage    = NamespaceSH + "resultMessage"
	SHResultSeverity   = NamespaceSH + "resultSeverity"
	SHResultPath       = NamespaceSH + "resultPath"
	SHSourceShape      = NamespaceSH + "sourceShape"
	SHValue            = NamespaceSH + "value"
	SHViolation        = NamespaceSH + "Violation"
	SHWarning          = NamespaceSH + "Warning"
	SHInfo             = NamespaceSH + "Info"
)

// N3 log builtins and the rule implication predicate.
const (
	LogImplies    = NamespaceLog + "implies"
	LogEqualTo    = NamespaceLog + "equalTo"
	LogNotEqualTo = NamespaceLog + "notEqualTo"
)

// DefaultPrefixes returns the well-known prefix declarations.
func DefaultPrefixes() PrefixMap {
	return PrefixMap{
		"rdf":     NamespaceRDF,
		"rdfs":    NamespaceRDFS,
		"owl":     NamespaceOWL,
		"xsd":     NamespaceXSD,
		"sh":      NamespaceSH,
		"skos":    NamespaceSKOS,
		"dc":      NamespaceDC,
		"dcterms": NamespaceDCTerms,
		"prov":    NamespacePROV,
		"log":     NamespaceLog,
	}
}
