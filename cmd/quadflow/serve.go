package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/quadflow/internal/ingest"
	"github.com/dusk-indust/quadflow/internal/mcptools"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var listen, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ingestion protocol over HTTP",
		Long: `Serve the streaming ingestion protocol: JSON-RPC 2.0 on POST / with
ingest/load answered as a server-sent event stream and ingest/ack for
batch acknowledgements. Prometheus metrics are served on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags, cmd.ErrOrStderr(), ingest.WithAllowedSchemes(ingest.NetworkSchemes...))
			if err != nil {
				return err
			}
			defer a.Close()
			if listen == "" {
				listen = a.cfg.ListenAddr
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.MetricsAddr
			}

			srv := ingest.NewServer(a.mux, a.logger.Named("server"))
			addr, err := srv.Start(ctx, listen)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "ingestion server listening on %s\n", addr)

			g, gctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				g.Go(func() error { return serveMetrics(gctx, a, metricsAddr) })
			}
			g.Go(func() error {
				<-gctx.Done()
				return srv.Stop(context.Background())
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "ingestion listen address (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics address (default from config; empty disables)")
	return cmd
}

func serveMetrics(ctx context.Context, a *app, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	a.logger.Info("metrics listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveMCPCmd(flags *globalFlags) *cobra.Command {
	var addr string
	var stdio bool
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Expose the session as MCP tools",
		Long: `Run an MCP server with the tools load_document, run_reasoning,
map_diagram, store_stats and reset_session over one session. Uses stdio
by default; --addr serves streamable HTTP instead. Documents are limited
to http and https URLs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// stdout belongs to the protocol on stdio. Tool callers may only
			// load http(s) documents.
			a, err := newApp(ctx, flags, cmd.ErrOrStderr(), ingest.WithAllowedSchemes(ingest.NetworkSchemes...))
			if err != nil {
				return err
			}
			defer a.Close()

			svc := mcptools.NewSessionService(a.session)
			if addr == "" {
				addr = a.cfg.MCPAddr
			}
			if stdio || addr == "" {
				return mcptools.RunMCPServerStdio(ctx, svc)
			}
			a.logger.Info("mcp listening", zap.String("addr", addr))
			return mcptools.RunMCPServer(ctx, svc, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "streamable HTTP address (default from config)")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "force stdio transport")
	return cmd
}
