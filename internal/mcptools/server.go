package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewSessionMCPServer creates an MCP server with the five session tools registered.
func NewSessionMCPServer(svc *SessionService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "quadflow",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_document",
		Description: "Fetch an RDF document and stream its statements into the session store. Default-graph statements go to the data graph unless another target graph is given.",
	}, svc.LoadDocument)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_reasoning",
		Description: "Run forward-chaining inference over the session store with the given rule sets. Replaces the inferred graph and returns added statements, validation findings and inference descriptors.",
	}, svc.RunReasoning)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "map_diagram",
		Description: "Map the session store to diagram nodes and edges. Only data-graph statements create nodes; inferred statements are folded onto existing nodes.",
	}, svc.MapDiagram)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "store_stats",
		Description: "Return the number of statements in the session store, per graph, and the declared prefixes.",
	}, svc.StoreStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Clear every statement and prefix from the session store.",
	}, svc.ResetSession)

	return server
}

// RunMCPServer starts an HTTP server exposing the session MCP tools.
func RunMCPServer(ctx context.Context, svc *SessionService, addr string) error {
	server := NewSessionMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// RunMCPServerStdio runs the server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, svc *SessionService) error {
	return NewSessionMCPServer(svc).Run(ctx, &mcp.StdioTransport{})
}
