// Package ingest streams remote RDF documents to a consumer in bounded
// batches. Every batch must be acknowledged before the next is produced.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dusk-indust/quadflow/internal/metrics"
	"github.com/dusk-indust/quadflow/internal/parse"
	"github.com/dusk-indust/quadflow/internal/rdf"
)

const (
	DefaultBatchSize    = 1000
	DefaultFetchTimeout = 30 * time.Second
	eventBuffer         = 64
)

var (
	// ErrWorkerClosed is returned by Post after Close.
	ErrWorkerClosed = errors.New("ingest: worker closed")

	// ErrDuplicateRequest is returned when a load reuses an active id.
	ErrDuplicateRequest = errors.New("ingest: duplicate request id")

	errAborted = errors.New("ingest: aborted")
)

// Worker runs loads in their own goroutines and talks to its consumer only
// through Request and Event values.
type Worker struct {
	fetcher      Fetcher
	maxBytes     int64
	schemes      map[string]bool
	registry     *parse.Registry
	batchSize    int
	fetchTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	validate     *validator.Validate

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	wg     sync.WaitGroup

	mu     sync.Mutex
	acks   map[string]chan struct{}
	closed bool
}

// Option configures a Worker.
type Option func(*Worker)

// WithFetcher replaces the default HTTP/file fetcher.
func WithFetcher(f Fetcher) Option {
	return func(w *Worker) { w.fetcher = f }
}

// WithMaxDocumentBytes caps the size of documents read by the default
// fetcher.
func WithMaxDocumentBytes(n int64) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxBytes = n
		}
	}
}

// WithAllowedSchemes restricts the URL schemes a load may use. Bare paths
// count as "file". Without this option every scheme the fetcher supports
// is accepted.
func WithAllowedSchemes(schemes ...string) Option {
	return func(w *Worker) {
		w.schemes = make(map[string]bool, len(schemes))
		for _, s := range schemes {
			w.schemes[strings.ToLower(s)] = true
		}
	}
}

// WithRegistry replaces the default parser registry.
func WithRegistry(r *parse.Registry) Option {
	return func(w *Worker) { w.registry = r }
}

// WithBatchSize sets the number of statements per batch.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFetchTimeout sets the timeout used when a request carries none.
func WithFetchTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.fetchTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker starts a worker. Call Close to stop it.
func NewWorker(opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		maxBytes:     DefaultMaxDocumentBytes,
		registry:     parse.DefaultRegistry(),
		batchSize:    DefaultBatchSize,
		fetchTimeout: DefaultFetchTimeout,
		logger:       zap.NewNop(),
		validate:     validator.New(),
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan Event, eventBuffer),
		acks:         make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.fetcher == nil {
		w.fetcher = &HTTPFetcher{Client: &http.Client{}, MaxBytes: w.maxBytes}
	}
	return w
}

// Events returns the channel every event is delivered on. It is closed by Close.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Post delivers a request to the worker. It never blocks on the load itself.
func (w *Worker) Post(req Request) error {
	if err := w.validate.Struct(req); err != nil {
		return fmt.Errorf("ingest: invalid %s request: %w", req.Type, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWorkerClosed
	}

	switch req.Type {
	case RequestLoad:
		if _, ok := w.acks[req.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, req.ID)
		}
		ack := make(chan struct{}, 1)
		w.acks[req.ID] = ack
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(req, ack)
		}()

	case RequestAck:
		ack, ok := w.acks[req.ID]
		if !ok {
			w.logger.Debug("ack for unknown request ignored", zap.String("request_id", req.ID))
			return nil
		}
		select {
		case ack <- struct{}{}:
		default:
			w.logger.Debug("ack without pending batch ignored", zap.String("request_id", req.ID))
		}
	}
	return nil
}

// Close aborts every active load, waits for them and closes Events.
// Loads stalled waiting for an acknowledgement end here.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	close(w.events)
}

func (w *Worker) send(ev Event) error {
	select {
	case w.events <- ev:
		return nil
	case <-w.ctx.Done():
		return errAborted
	}
}

func (w *Worker) release(id string) {
	w.mu.Lock()
	delete(w.acks, id)
	w.mu.Unlock()
}

func (w *Worker) run(req Request, ack <-chan struct{}) {
	defer w.release(req.ID)
	log := w.logger.With(zap.String("request_id", req.ID), zap.String("url", req.URL))
	start := time.Now()

	outcome, err := w.load(req, ack, log)
	switch {
	case errors.Is(err, errAborted):
		log.Debug("load aborted")
		w.metrics.IngestDone("aborted")
		return
	case err != nil:
		log.Warn("load failed", zap.String("kind", outcome), zap.Error(err))
		_ = w.send(Event{Type: EventError, ID: req.ID, Message: err.Error(), Kind: ErrorKind(outcome)})
	default:
		log.Info("load finished", zap.Duration("duration", time.Since(start)))
	}
	w.metrics.IngestDone(outcome)
}

// load performs one request and returns the metrics outcome label.
func (w *Worker) load(req Request, ack <-chan struct{}, log *zap.Logger) (string, error) {
	if err := w.send(Event{Type: EventStage, ID: req.ID, Stage: StageStart}); err != nil {
		return "aborted", err
	}

	if err := w.checkScheme(req.URL); err != nil {
		return string(KindTransport), err
	}

	fetchCtx, cancel := context.WithTimeout(w.ctx, timeoutFor(req.TimeoutMs, w.fetchTimeout))
	doc, err := w.fetcher.Fetch(fetchCtx, req.URL, req.Headers)
	cancel()
	if err != nil {
		if w.ctx.Err() != nil {
			return "aborted", errAborted
		}
		if isTimeout(err) {
			err = fmt.Errorf("fetch %s: timed out: %w", req.URL, err)
		}
		return string(KindTransport), err
	}

	format, detectErr := parse.DetectFormat(doc.ContentType, req.URL)
	if detectErr != nil && doc.URL != req.URL {
		format, detectErr = parse.DetectFormat(doc.ContentType, doc.URL)
	}
	if err := w.send(Event{
		Type:        EventStage,
		ID:          req.ID,
		Stage:       StageFetched,
		ContentType: doc.ContentType,
		Format:      string(format),
	}); err != nil {
		return "aborted", err
	}
	if detectErr != nil {
		return string(KindFormat), detectErr
	}
	parser, err := w.registry.Lookup(format)
	if err != nil {
		return string(KindFormat), err
	}
	log = log.With(zap.String("format", string(format)))

	sink := &batchSink{w: w, id: req.ID, ack: ack, size: w.batchSize, prefixes: rdf.PrefixMap{}}
	if err := parser.Parse(w.ctx, bytes.NewReader(doc.Body), doc.URL, sink); err != nil {
		if errors.Is(err, errAborted) || w.ctx.Err() != nil {
			return "aborted", errAborted
		}
		return string(KindParse), err
	}
	if err := sink.flush(); err != nil {
		return "aborted", err
	}

	log.Debug("document parsed", zap.Int("quads", sink.total), zap.Int("batch", sink.batches))
	if err := w.send(Event{Type: EventEnd, ID: req.ID, Prefixes: sink.prefixes, Total: sink.total}); err != nil {
		return "aborted", err
	}
	return "ok", nil
}

func (w *Worker) checkScheme(rawURL string) error {
	if w.schemes == nil {
		return nil
	}
	scheme, err := SchemeOf(rawURL)
	if err != nil {
		return err
	}
	if !w.schemes[scheme] {
		return fmt.Errorf("fetch %s: scheme %q not allowed", rawURL, scheme)
	}
	return nil
}

// batchSink turns parser callbacks into batch and prefix events.
type batchSink struct {
	w        *Worker
	id       string
	ack      <-chan struct{}
	size     int
	buf      []rdf.WireQuad
	prefixes rdf.PrefixMap
	total    int
	batches  int
}

func (s *batchSink) OnQuad(q rdf.Quad) error {
	s.buf = append(s.buf, rdf.QuadToWire(q))
	if len(s.buf) < s.size {
		return nil
	}
	return s.flush()
}

func (s *batchSink) OnPrefix(prefix, iri string) {
	s.prefixes[prefix] = iri
	_ = s.w.send(Event{Type: EventPrefix, ID: s.id, Prefixes: map[string]string{prefix: iri}})
}

// flush emits the buffered batch and blocks until it is acknowledged.
func (s *batchSink) flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	batch := s.buf
	s.buf = make([]rdf.WireQuad, 0, s.size)
	s.batches++

	// An ack posted before its batch exists does not count.
	select {
	case <-s.ack:
	default:
	}
	if err := s.w.send(Event{Type: EventQuads, ID: s.id, Batch: s.batches, Quads: batch}); err != nil {
		return err
	}
	select {
	case <-s.ack:
	case <-s.w.ctx.Done():
		return errAborted
	}
	s.total += len(batch)
	s.w.metrics.IngestBatch(len(batch))
	return nil
}
