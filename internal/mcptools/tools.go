package mcptools

import (
	"github.com/dusk-indust/quadflow/internal/diagram"
	"github.com/dusk-indust/quadflow/internal/pipeline"
	"github.com/dusk-indust/quadflow/internal/reason"
)

// LoadDocumentInput is the input for the load_document MCP tool.
type LoadDocumentInput struct {
	URL       string            `json:"url" jsonschema:"URL or local path of the RDF document (Turtle, N-Triples, N-Quads or JSON-LD)"`
	Headers   map[string]string `json:"headers,omitempty" jsonschema:"extra HTTP request headers"`
	TimeoutMs int64             `json:"timeoutMs,omitempty" jsonschema:"fetch timeout in milliseconds (default: server setting)"`
	Graph     string            `json:"graph,omitempty" jsonschema:"target graph: data, ontologies or catalog (default: data)"`
}

// LoadDocumentOutput is the result of the load_document MCP tool.
type LoadDocumentOutput struct {
	Report pipeline.LoadReport `json:"report"`
}

// RunReasoningInput is the input for the run_reasoning MCP tool.
type RunReasoningInput struct {
	RuleSets []string `json:"ruleSets,omitempty" jsonschema:"rule set ids, e.g. best-practice.n3, rdfs.n3, owl-basic.n3, shacl-lite.n3"`
}

// RunReasoningOutput is the result of the run_reasoning MCP tool.
type RunReasoningOutput struct {
	Result reason.Result `json:"result"`
}

// MapDiagramInput is the input for the map_diagram MCP tool.
type MapDiagramInput struct{}

// MapDiagramOutput is the result of the map_diagram MCP tool.
type MapDiagramOutput struct {
	Diagram diagram.Result `json:"diagram"`
	Mermaid string         `json:"mermaid,omitempty"`
}

// StoreStatsInput is the input for the store_stats MCP tool.
type StoreStatsInput struct{}

// StoreStatsOutput is the result of the store_stats MCP tool.
type StoreStatsOutput struct {
	Total    int               `json:"total"`
	Subjects int               `json:"subjects"`
	Graphs   map[string]int    `json:"graphs"`
	Prefixes map[string]string `json:"prefixes,omitempty"`
	NextStep string            `json:"nextStep"`
}

// ResetSessionInput is the input for the reset_session MCP tool.
type ResetSessionInput struct{}

// ResetSessionOutput is the result of the reset_session MCP tool.
type ResetSessionOutput struct {
	Reset bool `json:"reset"`
}
