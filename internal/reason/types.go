// Package reason runs forward-chaining inference over a statement set and
// reports only what changed: the added statements, validation findings
// found among them, and lightweight inference descriptors.
package reason

import (
	"errors"

	"github.com/dusk-indust/quadflow/internal/parse"
	"github.com/dusk-indust/quadflow/internal/rdf"
)

// ErrReasonerUnavailable means inference did not run. It is never
// reported as a successful run with zero results.
var ErrReasonerUnavailable = errors.New("reason: reasoner unavailable")

// Severity labels for findings.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Inference kinds and their fixed confidence hints.
const (
	KindClass        = "class"
	KindRelationship = "relationship"

	ConfidenceClass        = 0.95
	ConfidenceRelationship = 0.90
)

// Rule is one parsed N3 implication.
type Rule = parse.Rule

// Request asks for one reasoning run. Quads travel in wire form.
type Request struct {
	Quads    []rdf.WireQuad `json:"quads"`
	RuleSets []string       `json:"ruleSets,omitempty"`
	BaseURL  string         `json:"baseUrl,omitempty"`
}

// Result is the outcome of a run that actually invoked the reasoner.
type Result struct {
	Added        []rdf.WireQuad `json:"added"`
	Warnings     []Finding      `json:"warnings"`
	Errors       []Finding      `json:"errors"`
	Inferences   []Inference    `json:"inferences"`
	UsedReasoner bool           `json:"usedReasoner"`
	RuleSets     []string       `json:"ruleSets,omitempty"`
	DurationMs   int64          `json:"durationMs"`
}

// Finding is a validation result extracted from the added statements.
type Finding struct {
	Focus    string `json:"focus"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Source   string `json:"source,omitempty"`
	Path     string `json:"path,omitempty"`
	Subject  string `json:"subject"`
}

// Inference describes one added statement for display ranking.
type Inference struct {
	Kind       string  `json:"kind"`
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}
