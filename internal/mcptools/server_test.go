package mcptools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/ingest"
	"github.com/dusk-indust/quadflow/internal/pipeline"
	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/reason"
	"github.com/dusk-indust/quadflow/internal/store"
)

const peopleDoc = `@prefix ex: <http://example.org/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:a a ex:Person ;
    rdfs:label "Alice" ;
    ex:knows ex:b .
ex:Person rdfs:subClassOf ex:Agent .
`

func serveDoc(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/people.ttl" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte(peopleDoc))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, reasoner reason.Reasoner, opts ...ingest.Option) *mcp.ClientSession {
	t.Helper()

	w := ingest.NewWorker(opts...)
	t.Cleanup(w.Close)
	engine := reason.NewEngine(reasoner, reason.NewResolver(reason.NewRuleCache(nil)))
	session := pipeline.NewSession(store.NewMemStore(), ingest.NewMux(w), engine)
	server := NewSessionMCPServer(NewSessionService(session))

	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		cs.Close()
	})
	return cs
}

// call invokes a tool and decodes its structured output into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args any, out any) {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, result.IsError, "%s should not return an error", name)
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

// callFails asserts that a tool call reports an error at either the
// protocol level or through IsError.
func callFails(t *testing.T, cs *mcp.ClientSession, name string, args any) {
	t.Helper()
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "%s should fail", name)
}

func TestMCPListTools(t *testing.T) {
	cs := setupServerClient(t, nil)

	result, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"load_document",
		"map_diagram",
		"reset_session",
		"run_reasoning",
		"store_stats",
	}, names)
}

func TestMCPSessionFlow(t *testing.T) {
	srv := serveDoc(t)
	cs := setupServerClient(t, reason.NewForwardChainer(0, nil))

	var loaded LoadDocumentOutput
	call(t, cs, "load_document", LoadDocumentInput{URL: srv.URL + "/people.ttl"}, &loaded)
	assert.Equal(t, 4, loaded.Report.Quads)
	assert.Equal(t, rdf.GraphData, loaded.Report.Graph)

	var reasoned RunReasoningOutput
	call(t, cs, "run_reasoning", RunReasoningInput{RuleSets: []string{"rdfs.n3"}}, &reasoned)
	assert.True(t, reasoned.Result.UsedReasoner)
	assert.Len(t, reasoned.Result.Added, 1)

	var stats StoreStatsOutput
	call(t, cs, "store_stats", StoreStatsInput{}, &stats)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.Graphs[rdf.GraphData])
	assert.Equal(t, 1, stats.Graphs[rdf.GraphInferred])
	assert.Equal(t, "diagram", stats.NextStep)
	assert.Equal(t, "http://example.org/", stats.Prefixes["ex"])

	var mapped MapDiagramOutput
	call(t, cs, "map_diagram", MapDiagramInput{}, &mapped)
	assert.Len(t, mapped.Diagram.Nodes, 4)
	assert.Len(t, mapped.Diagram.Edges, 2)
	assert.Contains(t, mapped.Mermaid, "graph LR")

	var reset ResetSessionOutput
	call(t, cs, "reset_session", ResetSessionInput{}, &reset)
	assert.True(t, reset.Reset)
	call(t, cs, "store_stats", StoreStatsInput{}, &stats)
	assert.Zero(t, stats.Total)
}

func TestMCPLoadDocumentErrors(t *testing.T) {
	srv := serveDoc(t)
	cs := setupServerClient(t, nil)

	callFails(t, cs, "load_document", LoadDocumentInput{})
	callFails(t, cs, "load_document", LoadDocumentInput{URL: srv.URL + "/people.ttl", Graph: "nope"})
	callFails(t, cs, "load_document", LoadDocumentInput{URL: srv.URL + "/missing.ttl"})
}

func TestMCPLoadDocumentNetworkOnly(t *testing.T) {
	srv := serveDoc(t)
	path := filepath.Join(t.TempDir(), "secret.nt")
	require.NoError(t, os.WriteFile(path, []byte(`<http://x/a> <http://x/p> "TOP-SECRET" .`), 0o644))
	cs := setupServerClient(t, nil, ingest.WithAllowedSchemes(ingest.NetworkSchemes...))

	callFails(t, cs, "load_document", LoadDocumentInput{URL: "file://" + filepath.ToSlash(path)})
	callFails(t, cs, "load_document", LoadDocumentInput{URL: path})

	var stats StoreStatsOutput
	call(t, cs, "store_stats", StoreStatsInput{}, &stats)
	assert.Zero(t, stats.Total)

	var loaded LoadDocumentOutput
	call(t, cs, "load_document", LoadDocumentInput{URL: srv.URL + "/people.ttl"}, &loaded)
	call(t, cs, "store_stats", StoreStatsInput{}, &stats)
	assert.Equal(t, 4, stats.Total)
}

func TestMCPRunReasoningUnavailable(t *testing.T) {
	cs := setupServerClient(t, nil)
	callFails(t, cs, "run_reasoning", RunReasoningInput{})
}

func TestMCPCallUnknownTool(t *testing.T) {
	cs := setupServerClient(t, nil)
	callFails(t, cs, "nonexistent_tool", map[string]any{})
}
