package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Client) {
	t.Helper()
	w := NewWorker(opts...)
	srv := httptest.NewServer(NewServer(NewMux(w), nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		w.Close()
	})
	return srv, NewClient(srv.URL)
}

func TestServer_LoadStreamsWithAcks(t *testing.T) {
	doc := serveDoc(t, "application/n-triples", ntriplesDoc(2500))
	_, client := newTestServer(t, WithBatchSize(1000))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, stream, err := client.Load(ctx, LoadParams{URL: doc.URL + "/d.nt"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var (
		types []EventType
		quads int
		end   Event
	)
	for se := range stream {
		require.NoError(t, se.Err)
		ev := se.Event
		assert.Equal(t, id, ev.ID)
		types = append(types, ev.Type)
		switch ev.Type {
		case EventQuads:
			quads += len(ev.Quads)
			require.NoError(t, client.Ack(ctx, id))
		case EventEnd:
			end = ev
		}
	}

	assert.Equal(t, []EventType{EventStage, EventStage, EventQuads, EventQuads, EventQuads, EventEnd}, types)
	assert.Equal(t, 2500, quads)
	assert.Equal(t, 2500, end.Total)
}

func TestServer_LoadErrorEvent(t *testing.T) {
	_, client := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, stream, err := client.Load(ctx, LoadParams{URL: "http://127.0.0.1:1/missing.ttl"})
	require.NoError(t, err)

	var last Event
	for se := range stream {
		require.NoError(t, se.Err)
		last = se.Event
	}
	assert.Equal(t, EventError, last.Type)
	assert.Equal(t, KindTransport, last.Kind)
}

func TestServer_InvalidLoadParams(t *testing.T) {
	_, client := newTestServer(t)
	tests := []struct {
		name   string
		params LoadParams
	}{
		{"missing url", LoadParams{}},
		{"relative url", LoadParams{URL: "docs/a.ttl"}},
		{"file url", LoadParams{URL: "file:///etc/passwd"}},
		{"ftp url", LoadParams{URL: "ftp://example.org/a.ttl"}},
		{"negative timeout", LoadParams{URL: "http://example.org/a.ttl", TimeoutMs: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := client.Load(context.Background(), tt.params)
			var rpcErr *RPCError
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, ErrCodeInvalidParams, rpcErr.Code)
		})
	}
}

func TestServer_LocalFileNeverStreamed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.nt")
	require.NoError(t, os.WriteFile(path, []byte(`<http://x/a> <http://x/p> "TOP-SECRET" .`), 0o644))
	_, client := newTestServer(t)

	_, stream, err := client.Load(context.Background(), LoadParams{URL: "file://" + filepath.ToSlash(path)})
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.NotContains(t, err.Error(), "TOP-SECRET")
}

func TestServer_AckUnknownIDIsAccepted(t *testing.T) {
	_, client := newTestServer(t)
	assert.NoError(t, client.Ack(context.Background(), "nobody"))
}

func TestServer_MethodNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	body, _ := json.Marshal(JSONRPCRequest{JSONRPC: JSONRPCVersion, ID: 1, Method: "ingest/nope"})
	resp, err := http.Post(srv.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, rpcResp.Error.Code)
}

func TestSSEWriter_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := NewSSEWriter(rec)
	sw.Init()
	require.NoError(t, sw.WriteEvent(Event{Type: EventStage, ID: "a", Stage: StageStart}))
	require.NoError(t, sw.WriteEvent(Event{Type: EventEnd, ID: "a", Total: 3}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var got []Event
	for se := range ReadEvents(context.Background(), nopCloser{bytes.NewReader(rec.Body.Bytes())}) {
		require.NoError(t, se.Err)
		got = append(got, se.Event)
	}
	require.Len(t, got, 2)
	assert.Equal(t, StageStart, got[0].Stage)
	assert.Equal(t, 3, got[1].Total)
}

func TestReadEvents_MalformedFrameContinues(t *testing.T) {
	raw := ": comment\ndata: {not json}\n\ndata: {\"type\":\"end\",\ndata: \"id\":\"x\"}\n\n"
	var got []StreamEvent
	for se := range ReadEvents(context.Background(), nopCloser{bytes.NewReader([]byte(raw))}) {
		got = append(got, se)
	}
	require.Len(t, got, 2)
	assert.Error(t, got[0].Err)
	require.NoError(t, got[1].Err)
	assert.Equal(t, EventEnd, got[1].Event.Type)
	assert.Equal(t, "x", got[1].Event.ID)
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
