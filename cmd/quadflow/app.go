package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dusk-indust/quadflow/internal/config"
	"github.com/dusk-indust/quadflow/internal/ingest"
	"github.com/dusk-indust/quadflow/internal/logging"
	"github.com/dusk-indust/quadflow/internal/metrics"
	"github.com/dusk-indust/quadflow/internal/pipeline"
	"github.com/dusk-indust/quadflow/internal/reason"
	"github.com/dusk-indust/quadflow/internal/store"
)

// app holds the wired components for one command run.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    store.Store
	worker   *ingest.Worker
	mux      *ingest.Mux
	cache    *reason.RuleCache
	engine   *reason.Engine
	progress *pipeline.ProgressReporter
	session  *pipeline.Session

	progressDone sync.WaitGroup
}

// newApp loads configuration, applies flag overrides and wires the
// session. Progress lines go to progressOut when verbose is set. Extra
// ingest options are applied after the configured ones.
func newApp(ctx context.Context, flags *globalFlags, progressOut io.Writer, extra ...ingest.Option) (*app, error) {
	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return nil, err
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	if flags.DBPath != "" {
		cfg.DBPath = flags.DBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	a.store, err = store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ingestOpts := []ingest.Option{
		ingest.WithBatchSize(cfg.BatchSize),
		ingest.WithFetchTimeout(cfg.FetchTimeout),
		ingest.WithMaxDocumentBytes(cfg.MaxDocumentBytes),
		ingest.WithLogger(logger.Named("ingest")),
		ingest.WithMetrics(a.metrics),
	}
	a.worker = ingest.NewWorker(append(ingestOpts, extra...)...)
	a.mux = ingest.NewMux(a.worker)

	a.cache = reason.NewRuleCache(logger.Named("rules"))
	for _, dir := range cfg.RuleDirs {
		if err := a.cache.WatchDir(ctx, dir); err != nil {
			logger.Warn("rule directory not watched", zap.String("dir", dir), zap.Error(err))
		}
	}
	resolver := reason.NewResolver(a.cache,
		reason.WithRuleDirs(cfg.RuleDirs...),
		reason.WithResolverLogger(logger.Named("rules")),
		reason.WithResolverMetrics(a.metrics),
	)
	a.engine = reason.NewEngine(
		reason.NewForwardChainer(cfg.MaxRounds, logger.Named("chainer")),
		resolver,
		reason.WithLogger(logger.Named("reason")),
		reason.WithMetrics(a.metrics),
	)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("session")),
		pipeline.WithRuleSets(cfg.RuleSets...),
		pipeline.WithRuleBaseURL(cfg.RuleBaseURL),
		pipeline.WithKnownSchemaClasses(cfg.SchemaClasses...),
	}
	if flags.Verbose && progressOut != nil {
		a.progress = pipeline.NewProgressReporter()
		opts = append(opts, pipeline.WithProgress(a.progress))
		a.progressDone.Add(1)
		go func() {
			defer a.progressDone.Done()
			for ev := range a.progress.Subscribe() {
				fmt.Fprintln(progressOut, pipeline.FormatProgress(ev))
			}
		}()
	}
	a.session = pipeline.NewSession(a.store, a.mux, a.engine, opts...)
	return a, nil
}

// Close shuts the worker down and releases the store.
func (a *app) Close() error {
	a.worker.Close()
	if a.progress != nil {
		a.progress.Close()
		a.progressDone.Wait()
	}
	_ = a.logger.Sync()
	return a.store.Close()
}
