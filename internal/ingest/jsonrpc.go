package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// JSONRPCRequest is a JSON-RPC 2.0 request envelope.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is a JSON-RPC 2.0 response envelope.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError is a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603

	ErrCodeDuplicateRequest = -32010
	ErrCodeWorkerClosed     = -32011
)

// Ingestion method names.
const (
	MethodLoad = "ingest/load"
	MethodAck  = "ingest/ack"
)

// LoadParams are the params of ingest/load. An empty ID is assigned by the server.
type LoadParams struct {
	ID        string            `json:"id,omitempty"`
	URL       string            `json:"url" validate:"required,http_url"`
	Headers   map[string]string `json:"headers,omitempty"`
	TimeoutMs int64             `json:"timeoutMs,omitempty" validate:"gte=0"`
}

var validate = validator.New()

// Validate checks that the URL is an absolute http(s) URL and the timeout
// is not negative. Local files are never served to remote callers.
func (p LoadParams) Validate() error {
	return validate.Struct(p)
}

// AckParams are the params of ingest/ack.
type AckParams struct {
	ID string `json:"id"`
}

// AckResult is the result of ingest/ack.
type AckResult struct {
	OK bool `json:"ok"`
}

// RPCError represents a JSON-RPC error returned by a remote server.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("ingest: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("ingest: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
