package ingest

import (
	"fmt"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// RequestType discriminates messages sent to a Worker.
type RequestType string

const (
	RequestLoad RequestType = "load"
	RequestAck  RequestType = "ack"
)

// Request is a message from a consumer to a Worker.
type Request struct {
	Type      RequestType       `json:"type" validate:"required,oneof=load ack"`
	ID        string            `json:"id" validate:"required"`
	URL       string            `json:"url,omitempty" validate:"required_if=Type load"`
	Headers   map[string]string `json:"headers,omitempty"`
	TimeoutMs int64             `json:"timeoutMs,omitempty" validate:"gte=0"`
}

// Load builds a load request.
func Load(id, url string, headers map[string]string, timeoutMs int64) Request {
	return Request{Type: RequestLoad, ID: id, URL: url, Headers: headers, TimeoutMs: timeoutMs}
}

// Ack builds the acknowledgement for the most recent batch of request id.
func Ack(id string) Request {
	return Request{Type: RequestAck, ID: id}
}

// EventType discriminates messages emitted by a Worker.
type EventType string

const (
	EventStage  EventType = "stage"
	EventQuads  EventType = "quads"
	EventPrefix EventType = "prefix"
	EventEnd    EventType = "end"
	EventError  EventType = "error"
)

// Stage names a lifecycle step reported before any statements flow.
type Stage string

const (
	StageStart   Stage = "start"
	StageFetched Stage = "fetched"
)

// ErrorKind classifies terminal failures.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindFormat    ErrorKind = "format"
	KindParse     ErrorKind = "parse"
)

// Event is a message from a Worker to its consumer. Only plain data
// crosses the boundary: statements travel in wire form.
type Event struct {
	Type        EventType         `json:"type"`
	ID          string            `json:"id"`
	Stage       Stage             `json:"stage,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Format      string            `json:"format,omitempty"`
	Batch       int               `json:"batch,omitempty"`
	Quads       []rdf.WireQuad    `json:"quads,omitempty"`
	Prefixes    map[string]string `json:"prefixes,omitempty"`
	Total       int               `json:"total,omitempty"`
	Message     string            `json:"message,omitempty"`
	Kind        ErrorKind         `json:"kind,omitempty"`
}

// Terminal reports whether no further events follow for this request id.
func (e Event) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// IngestError is a failed load as seen by the consumer. It is distinct
// from a load that succeeded with zero statements.
type IngestError struct {
	RequestID string
	URL       string
	Kind      ErrorKind
	Message   string
}

func (e *IngestError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("ingest %s: %s error: %s", e.RequestID, e.Kind, e.Message)
	}
	return fmt.Sprintf("ingest %s (%s): %s error: %s", e.RequestID, e.URL, e.Kind, e.Message)
}

// ErrorFromEvent converts a terminal error event into an *IngestError.
func ErrorFromEvent(ev Event, url string) *IngestError {
	return &IngestError{RequestID: ev.ID, URL: url, Kind: ev.Kind, Message: ev.Message}
}
