package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/quadflow/internal/export"
	"github.com/dusk-indust/quadflow/internal/pipeline"
	"github.com/dusk-indust/quadflow/internal/status"
)

// SessionService exposes a pipeline session to MCP tool handlers.
type SessionService struct {
	session *pipeline.Session
}

// NewSessionService creates a SessionService over session.
func NewSessionService(session *pipeline.Session) *SessionService {
	return &SessionService{session: session}
}

// LoadDocument streams a document into the session store.
func (s *SessionService) LoadDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LoadDocumentInput,
) (*mcp.CallToolResult, LoadDocumentOutput, error) {
	if input.URL == "" {
		return nil, LoadDocumentOutput{}, fmt.Errorf("url is required")
	}
	if input.TimeoutMs < 0 {
		return nil, LoadDocumentOutput{}, fmt.Errorf("timeoutMs must not be negative")
	}
	graph, ok := status.GraphIRI(input.Graph)
	if !ok {
		return nil, LoadDocumentOutput{}, fmt.Errorf("unknown graph %q: use data, ontologies or catalog", input.Graph)
	}

	report, err := s.session.LoadInto(ctx, pipeline.LoadRequest{
		URL:     input.URL,
		Headers: input.Headers,
		Timeout: time.Duration(input.TimeoutMs) * time.Millisecond,
		Graph:   graph,
	})
	if err != nil {
		return nil, LoadDocumentOutput{}, err
	}
	return nil, LoadDocumentOutput{Report: *report}, nil
}

// RunReasoning runs the reasoner over the session store.
func (s *SessionService) RunReasoning(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunReasoningInput,
) (*mcp.CallToolResult, RunReasoningOutput, error) {
	res, err := s.session.Reason(ctx, input.RuleSets)
	if err != nil {
		return nil, RunReasoningOutput{}, err
	}
	return nil, RunReasoningOutput{Result: *res}, nil
}

// MapDiagram maps the session store to nodes and edges.
func (s *SessionService) MapDiagram(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ MapDiagramInput,
) (*mcp.CallToolResult, MapDiagramOutput, error) {
	res, err := s.session.Diagram(ctx)
	if err != nil {
		return nil, MapDiagramOutput{}, err
	}
	return nil, MapDiagramOutput{Diagram: res, Mermaid: export.GenerateMermaid(res)}, nil
}

// StoreStats reports the size of the session store.
func (s *SessionService) StoreStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StoreStatsInput,
) (*mcp.CallToolResult, StoreStatsOutput, error) {
	stats, err := s.session.Stats(ctx)
	if err != nil {
		return nil, StoreStatsOutput{}, err
	}
	return nil, StoreStatsOutput{
		Total:    stats.Total,
		Subjects: stats.Subjects,
		Graphs:   stats.Graphs,
		Prefixes: s.session.Prefixes(),
		NextStep: status.NextStep(stats.Graphs),
	}, nil
}

// ResetSession clears the session store.
func (s *SessionService) ResetSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ResetSessionInput,
) (*mcp.CallToolResult, ResetSessionOutput, error) {
	if err := s.session.Reset(ctx); err != nil {
		return nil, ResetSessionOutput{}, err
	}
	return nil, ResetSessionOutput{Reset: true}, nil
}
