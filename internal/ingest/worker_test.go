package ingest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// ntriplesDoc returns n distinct N-Triples statements.
func ntriplesDoc(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "<http://example.org/s%d> <http://example.org/p> \"v%d\" .\n", i, i)
	}
	return sb.String()
}

// serveDoc starts an httptest server answering every path with body.
func serveDoc(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestWorker(t *testing.T, opts ...Option) *Worker {
	t.Helper()
	w := NewWorker(opts...)
	t.Cleanup(w.Close)
	return w
}

// next receives one event or fails the test after a timeout.
func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// assertQuiet fails if an event arrives within d.
func assertQuiet(t *testing.T, ch <-chan Event, d time.Duration) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event before ack: %+v", ev)
	case <-time.After(d):
	}
}

// ---------------------------------------------------------------------------
// Backpressure
// ---------------------------------------------------------------------------

func TestWorker_BatchesWaitForAck(t *testing.T) {
	srv := serveDoc(t, "application/n-triples", ntriplesDoc(2500))
	w := newTestWorker(t, WithBatchSize(1000))

	require.NoError(t, w.Post(Load("r1", srv.URL+"/data", nil, 0)))
	events := w.Events()

	ev := next(t, events)
	assert.Equal(t, EventStage, ev.Type)
	assert.Equal(t, StageStart, ev.Stage)

	ev = next(t, events)
	assert.Equal(t, StageFetched, ev.Stage)
	assert.Equal(t, "ntriples", ev.Format)

	var sizes []int
	for i := 1; i <= 3; i++ {
		ev = next(t, events)
		require.Equal(t, EventQuads, ev.Type)
		assert.Equal(t, i, ev.Batch)
		sizes = append(sizes, len(ev.Quads))

		// Nothing else may arrive until this batch is acknowledged.
		assertQuiet(t, events, 50*time.Millisecond)
		require.NoError(t, w.Post(Ack("r1")))
	}
	assert.Equal(t, []int{1000, 1000, 500}, sizes)

	ev = next(t, events)
	assert.Equal(t, EventEnd, ev.Type)
	assert.Equal(t, 2500, ev.Total)
	assert.True(t, ev.Terminal())
}

func TestWorker_EarlyAckDoesNotReleaseNextBatch(t *testing.T) {
	srv := serveDoc(t, "application/n-triples", ntriplesDoc(4))
	w := newTestWorker(t, WithBatchSize(2))

	require.NoError(t, w.Post(Load("r1", srv.URL, nil, 0)))
	events := w.Events()
	next(t, events) // start
	next(t, events) // fetched

	ev := next(t, events)
	require.Equal(t, EventQuads, ev.Type)
	require.NoError(t, w.Post(Ack("r1")))

	ev = next(t, events)
	require.Equal(t, EventQuads, ev.Type)
	assert.Equal(t, 2, ev.Batch)
	assertQuiet(t, events, 50*time.Millisecond)
	require.NoError(t, w.Post(Ack("r1")))

	assert.Equal(t, EventEnd, next(t, events).Type)
}

// ---------------------------------------------------------------------------
// Prefixes and content
// ---------------------------------------------------------------------------

func TestWorker_PrefixEventsAndWireQuads(t *testing.T) {
	doc := `@prefix ex: <http://example.org/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:a a ex:Person ; rdfs:label "Alice" ; ex:knows ex:b .`
	srv := serveDoc(t, "text/turtle; charset=utf-8", doc)
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL, nil, 0)))
	events := w.Events()
	next(t, events)
	next(t, events)

	p1 := next(t, events)
	p2 := next(t, events)
	assert.Equal(t, EventPrefix, p1.Type)
	assert.Equal(t, map[string]string{"ex": "http://example.org/"}, p1.Prefixes)
	assert.Equal(t, map[string]string{"rdfs": rdf.NamespaceRDFS}, p2.Prefixes)

	batch := next(t, events)
	require.Equal(t, EventQuads, batch.Type)
	require.Len(t, batch.Quads, 3)
	quads, err := rdf.FromWireQuads(batch.Quads)
	require.NoError(t, err)
	assert.Equal(t, rdf.Literal("Alice"), quads[1].Object)
	require.NoError(t, w.Post(Ack("r1")))

	end := next(t, events)
	assert.Equal(t, EventEnd, end.Type)
	assert.Equal(t, map[string]string{"ex": "http://example.org/", "rdfs": rdf.NamespaceRDFS}, end.Prefixes)
}

func TestWorker_EmptyDocumentEndsWithZeroTotal(t *testing.T) {
	srv := serveDoc(t, "text/turtle", "# nothing here\n")
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL, nil, 0)))
	events := w.Events()
	next(t, events)
	next(t, events)
	end := next(t, events)
	assert.Equal(t, EventEnd, end.Type)
	assert.Zero(t, end.Total)
}

func TestWorker_FormatFromExtension(t *testing.T) {
	srv := serveDoc(t, "text/plain", `<http://x/a> <http://x/p> <http://x/o> .`)
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL+"/doc.nt", nil, 0)))
	events := w.Events()
	next(t, events)
	fetched := next(t, events)
	assert.Equal(t, "ntriples", fetched.Format)
	assert.Equal(t, EventQuads, next(t, events).Type)
}

func TestWorker_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ttl")
	require.NoError(t, os.WriteFile(path, []byte(`<http://x/a> <http://x/p> <http://x/o> .`), 0o644))
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", path, nil, 0)))
	events := w.Events()
	next(t, events)
	assert.Equal(t, "turtle", next(t, events).Format)
	require.Equal(t, EventQuads, next(t, events).Type)
	require.NoError(t, w.Post(Ack("r1")))
	assert.Equal(t, EventEnd, next(t, events).Type)
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestWorker_UnsupportedContentType(t *testing.T) {
	srv := serveDoc(t, "image/png", "\x89PNG")
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL+"/picture", nil, 0)))
	events := w.Events()
	next(t, events)
	next(t, events)
	ev := next(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, KindFormat, ev.Kind)
	assert.Contains(t, ev.Message, "unsupported format")
}

func TestWorker_Non2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL+"/x.ttl", nil, 0)))
	events := w.Events()
	next(t, events)
	ev := next(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, KindTransport, ev.Kind)
	assert.Contains(t, ev.Message, "404")
}

func TestWorker_AllowedSchemesRejectLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.nt")
	require.NoError(t, os.WriteFile(path, []byte(`<http://x/a> <http://x/p> "TOP-SECRET" .`), 0o644))
	w := newTestWorker(t, WithAllowedSchemes(NetworkSchemes...))
	events := w.Events()

	for i, u := range []string{"file://" + filepath.ToSlash(path), path} {
		id := fmt.Sprintf("r%d", i)
		require.NoError(t, w.Post(Load(id, u, nil, 0)))
		assert.Equal(t, StageStart, next(t, events).Stage)
		ev := next(t, events)
		assert.Equal(t, EventError, ev.Type, u)
		assert.Equal(t, KindTransport, ev.Kind)
		assert.Contains(t, ev.Message, "not allowed")
		assert.NotContains(t, ev.Message, "TOP-SECRET")
	}

	srv := serveDoc(t, "application/n-triples", ntriplesDoc(1))
	require.NoError(t, w.Post(Load("web", srv.URL+"/d.nt", nil, 0)))
	next(t, events)
	assert.Equal(t, StageFetched, next(t, events).Stage)
}

func TestWorker_OversizedDocumentIsTransportError(t *testing.T) {
	srv := serveDoc(t, "application/n-triples", ntriplesDoc(100))
	w := newTestWorker(t, WithMaxDocumentBytes(256))

	require.NoError(t, w.Post(Load("r1", srv.URL+"/d.nt", nil, 0)))
	events := w.Events()
	next(t, events)
	ev := next(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, KindTransport, ev.Kind)
	assert.Contains(t, ev.Message, ErrDocumentTooLarge.Error())
}

func TestReadLimited(t *testing.T) {
	body, err := readLimited(strings.NewReader("abcd"), 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(body))

	_, err = readLimited(strings.NewReader("abcde"), 4)
	require.ErrorIs(t, err, ErrDocumentTooLarge)
}

func TestWorker_TimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	w := newTestWorker(t)

	require.NoError(t, w.Post(Load("r1", srv.URL+"/x.ttl", nil, 50)))
	events := w.Events()
	next(t, events)
	ev := next(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, KindTransport, ev.Kind)
	assert.Contains(t, ev.Message, "timed out")
}

func TestWorker_ParseErrorAfterDeliveredBatches(t *testing.T) {
	doc := ntriplesDoc(3) + "<http://x/a> broken .\n"
	srv := serveDoc(t, "application/n-triples", doc)
	w := newTestWorker(t, WithBatchSize(2))

	require.NoError(t, w.Post(Load("r1", srv.URL, nil, 0)))
	events := w.Events()
	next(t, events)
	next(t, events)

	ev := next(t, events)
	require.Equal(t, EventQuads, ev.Type)
	require.NoError(t, w.Post(Ack("r1")))

	// The third statement is buffered when the error hits; it is never sent.
	ev = next(t, events)
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, KindParse, ev.Kind)
}

func TestWorker_PostValidation(t *testing.T) {
	w := newTestWorker(t)
	assert.Error(t, w.Post(Request{Type: RequestLoad, ID: "x"}), "load without url")
	assert.Error(t, w.Post(Request{Type: "bogus", ID: "x", URL: "http://x"}))
	assert.Error(t, w.Post(Request{Type: RequestLoad, URL: "http://x"}), "missing id")
	assert.Error(t, w.Post(Load("x", "http://x", nil, -1)), "negative timeout")
	assert.NoError(t, w.Post(Ack("unknown")), "acks for unknown ids are ignored")
}

func TestWorker_DuplicateIDAndClose(t *testing.T) {
	srv := serveDoc(t, "application/n-triples", ntriplesDoc(5))
	w := NewWorker(WithBatchSize(2))

	require.NoError(t, w.Post(Load("r1", srv.URL, nil, 0)))
	events := w.Events()
	next(t, events)
	next(t, events)
	require.Equal(t, EventQuads, next(t, events).Type)

	// r1 is stalled waiting for an ack.
	assert.ErrorIs(t, w.Post(Load("r1", srv.URL, nil, 0)), ErrDuplicateRequest)

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not abort the stalled load")
	}
	_, ok := <-events
	assert.False(t, ok, "events closed after Close")
	assert.ErrorIs(t, w.Post(Ack("r1")), ErrWorkerClosed)
}
