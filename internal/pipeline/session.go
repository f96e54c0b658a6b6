// Package pipeline is the caller side of the ingestion and reasoning
// workers. A Session owns the authoritative statement store: it consumes
// ingestion batches and acknowledges them, applies reasoning diffs and
// maps the store to a diagram.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/quadflow/internal/diagram"
	"github.com/dusk-indust/quadflow/internal/ingest"
	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/reason"
	"github.com/dusk-indust/quadflow/internal/store"
)

// Session is one editing session over a statement store.
type Session struct {
	store  store.Store
	mux    *ingest.Mux
	engine *reason.Engine

	logger      *zap.Logger
	progress    *ProgressReporter
	ruleSets    []string
	ruleBaseURL string
	knownSchema map[string]bool

	mu       sync.Mutex
	prefixes rdf.PrefixMap
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithProgress reports operation progress to pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(s *Session) { s.progress = pr }
}

// WithRuleSets sets the rule sets used when Reason is called without any.
func WithRuleSets(ids ...string) Option {
	return func(s *Session) { s.ruleSets = ids }
}

// WithRuleBaseURL sets the base URL for remote rule sets.
func WithRuleBaseURL(u string) Option {
	return func(s *Session) { s.ruleBaseURL = u }
}

// WithKnownSchemaClasses extends the schema classes used by Diagram.
func WithKnownSchemaClasses(classes ...string) Option {
	return func(s *Session) {
		for _, c := range classes {
			s.knownSchema[c] = true
		}
	}
}

// NewSession wires a store to an ingestion mux and a reasoning engine.
func NewSession(st store.Store, mux *ingest.Mux, engine *reason.Engine, opts ...Option) *Session {
	s := &Session{
		store:       st,
		mux:         mux,
		engine:      engine,
		logger:      zap.NewNop(),
		knownSchema: make(map[string]bool),
		prefixes:    make(rdf.PrefixMap),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the session store.
func (s *Session) Store() store.Store {
	return s.store
}

// Prefixes returns a copy of the prefixes declared by loaded documents.
func (s *Session) Prefixes() rdf.PrefixMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefixes.Clone()
}

// LoadRequest names one document to load.
type LoadRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// Graph receives default-graph statements. Empty means the data graph.
	Graph string
}

// LoadReport summarizes a finished load.
type LoadReport struct {
	RequestID   string            `json:"requestId"`
	URL         string            `json:"url"`
	Graph       string            `json:"graph"`
	ContentType string            `json:"contentType,omitempty"`
	Format      string            `json:"format,omitempty"`
	Batches     int               `json:"batches"`
	Quads       int               `json:"quads"`
	Added       int               `json:"added"`
	Prefixes    map[string]string `json:"prefixes,omitempty"`
}

// Load loads url into the data graph.
func (s *Session) Load(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*LoadReport, error) {
	return s.LoadInto(ctx, LoadRequest{URL: url, Headers: headers, Timeout: timeout})
}

// LoadInto loads one document, appending each batch to the store before
// acknowledging it. A failed load returns an *ingest.IngestError; batches
// acknowledged before the failure stay in the store.
func (s *Session) LoadInto(ctx context.Context, req LoadRequest) (*LoadReport, error) {
	s.progress.Emit(ProgressEvent{Stage: StageLoad, Status: ProgressWorking, Message: req.URL})
	report, err := s.consume(ctx, req, func(quads []rdf.Quad) (int, error) {
		return s.store.Add(ctx, quads...)
	})
	if err != nil {
		s.progress.Emit(ProgressEvent{Stage: StageLoad, Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}
	s.mergePrefixes(report.Prefixes)
	s.progress.Emit(ProgressEvent{Stage: StageLoad, Status: ProgressComplete,
		Message: fmt.Sprintf("%d statements from %s", report.Quads, req.URL)})
	return report, nil
}

// LoadAll fetches every document concurrently and commits them to the
// store in argument order once all have succeeded. If any load fails the
// store is left unchanged.
func (s *Session) LoadAll(ctx context.Context, reqs []LoadRequest) ([]*LoadReport, error) {
	reports := make([]*LoadReport, len(reqs))
	staged := make([]*store.MemStore, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		staged[i] = store.NewMemStore()
		g.Go(func() error {
			report, err := s.consume(gctx, req, func(quads []rdf.Quad) (int, error) {
				return staged[i].Add(gctx, quads...)
			})
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.progress.Emit(ProgressEvent{Stage: StageLoad, Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	for i, st := range staged {
		n, err := s.store.Add(ctx, st.All()...)
		if err != nil {
			return nil, fmt.Errorf("pipeline: commit %s: %w", reqs[i].URL, err)
		}
		reports[i].Added = n
		s.mergePrefixes(reports[i].Prefixes)
	}
	s.progress.Emit(ProgressEvent{Stage: StageLoad, Status: ProgressComplete,
		Message: fmt.Sprintf("%d documents", len(reqs))})
	return reports, nil
}

// consume runs one load through the mux, handing each batch to add and
// acknowledging it afterwards.
func (s *Session) consume(ctx context.Context, req LoadRequest, add func([]rdf.Quad) (int, error)) (*LoadReport, error) {
	graph := req.Graph
	if graph == "" {
		graph = rdf.GraphData
	}
	id := uuid.NewString()
	scope := blankScope(id)
	log := s.logger.With(zap.String("request_id", id), zap.String("url", req.URL))

	events, err := s.mux.Load(ingest.Load(id, req.URL, req.Headers, req.Timeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("pipeline: start load: %w", err)
	}

	report := &LoadReport{RequestID: id, URL: req.URL, Graph: graph, Prefixes: map[string]string{}}
	for {
		if err := ctx.Err(); err != nil {
			s.mux.Forget(id)
			return nil, err
		}
		var (
			ev ingest.Event
			ok bool
		)
		select {
		case ev, ok = <-events:
		case <-ctx.Done():
			s.mux.Forget(id)
			return nil, ctx.Err()
		}
		if !ok {
			return nil, ingest.ErrWorkerClosed
		}

		switch ev.Type {
		case ingest.EventStage:
			if ev.Stage == ingest.StageFetched {
				report.ContentType = ev.ContentType
				report.Format = ev.Format
			}
		case ingest.EventQuads:
			quads, err := rdf.FromWireQuads(ev.Quads)
			if err != nil {
				s.mux.Forget(id)
				return nil, fmt.Errorf("pipeline: decode batch %d: %w", report.Batches+1, err)
			}
			for i, q := range quads {
				q = q.ScopeBlanks(scope)
				if q.Graph == "" {
					q = q.InGraph(graph)
				}
				quads[i] = q
			}
			n, err := add(quads)
			if err != nil {
				s.mux.Forget(id)
				return nil, fmt.Errorf("pipeline: store batch: %w", err)
			}
			report.Batches++
			report.Quads += len(quads)
			report.Added += n
			if err := s.mux.Ack(id); err != nil {
				s.mux.Forget(id)
				return nil, fmt.Errorf("pipeline: ack: %w", err)
			}
			log.Debug("batch stored", zap.Int("batch", report.Batches), zap.Int("quads", len(quads)))
		case ingest.EventPrefix:
			for p, ns := range ev.Prefixes {
				report.Prefixes[p] = ns
			}
		case ingest.EventEnd:
			for p, ns := range ev.Prefixes {
				report.Prefixes[p] = ns
			}
			log.Info("load complete", zap.Int("quads", report.Quads), zap.Int("batches", report.Batches))
			return report, nil
		case ingest.EventError:
			return nil, ingest.ErrorFromEvent(ev, req.URL)
		}
	}
}

// blankScope derives the blank node scope of one load from its request id.
func blankScope(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:6])
}

func (s *Session) mergePrefixes(p map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes.Merge(p)
}

// Reason runs the engine over every non-inferred statement and replaces
// the inferred graph with the result. Nil ruleSets uses the session
// defaults.
func (s *Session) Reason(ctx context.Context, ruleSets []string) (*reason.Result, error) {
	s.progress.Emit(ProgressEvent{Stage: StageReason, Status: ProgressWorking})
	if ruleSets == nil {
		ruleSets = s.ruleSets
	}

	all, err := s.store.Quads(ctx, store.Pattern{})
	if err != nil {
		return nil, fmt.Errorf("pipeline: read store: %w", err)
	}
	input := make([]rdf.Quad, 0, len(all))
	for _, q := range all {
		if q.Graph != rdf.GraphInferred {
			input = append(input, q)
		}
	}

	res, err := s.engine.Run(ctx, reason.Request{
		Quads:    rdf.ToWireQuads(input),
		RuleSets: ruleSets,
		BaseURL:  s.ruleBaseURL,
	})
	if err != nil {
		s.progress.Emit(ProgressEvent{Stage: StageReason, Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}

	added, err := rdf.FromWireQuads(res.Added)
	if err != nil {
		return nil, fmt.Errorf("pipeline: decode inferred: %w", err)
	}
	if _, err := store.ReplaceGraph(ctx, s.store, rdf.GraphInferred, added); err != nil {
		return nil, fmt.Errorf("pipeline: replace inferred graph: %w", err)
	}
	s.progress.Emit(ProgressEvent{Stage: StageReason, Status: ProgressComplete,
		Message: fmt.Sprintf("%d inferred, %d errors, %d warnings", len(res.Added), len(res.Errors), len(res.Warnings))})
	return res, nil
}

// Diagram maps the store. Predicate roles come from the built-in
// vocabularies plus property declarations in the store.
func (s *Session) Diagram(ctx context.Context) (diagram.Result, error) {
	quads, err := s.store.Quads(ctx, store.Pattern{})
	if err != nil {
		return diagram.Result{}, fmt.Errorf("pipeline: read store: %w", err)
	}
	prefixes := rdf.DefaultPrefixes()
	prefixes.Merge(s.Prefixes())

	res := diagram.Map(quads, diagram.Options{
		Classifier:         diagram.ClassifierFor(quads),
		KnownSchemaClasses: s.knownSchema,
		Prefixes:           prefixes,
	})
	s.progress.Emit(ProgressEvent{Stage: StageDiagram, Status: ProgressComplete,
		Message: fmt.Sprintf("%d nodes, %d edges", len(res.Nodes), len(res.Edges))})
	return res, nil
}

// Reset clears the store and the session prefixes.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("pipeline: clear store: %w", err)
	}
	s.mu.Lock()
	s.prefixes = make(rdf.PrefixMap)
	s.mu.Unlock()
	s.progress.Emit(ProgressEvent{Stage: StageReset, Status: ProgressComplete})
	return nil
}

// Stats reports the store size.
func (s *Session) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}
