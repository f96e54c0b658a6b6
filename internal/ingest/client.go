package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

// Client speaks the ingestion protocol to a remote Server.
type Client struct {
	endpoint  string
	http      *http.Client
	requestID atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying *http.Client. It must not set a
// Timeout shorter than the longest expected load stream.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the server at endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{endpoint: endpoint, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load starts a remote load and returns its request id and event stream.
// The caller must Ack every quads event to keep the stream moving.
func (c *Client) Load(ctx context.Context, params LoadParams) (string, <-chan StreamEvent, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	resp, err := c.post(ctx, MethodLoad, params, "text/event-stream")
	if err != nil {
		return "", nil, err
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mt != "text/event-stream" {
		defer resp.Body.Close()
		if err := decodeResponse(resp, MethodLoad, nil); err != nil {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("ingest: %s: unexpected content type %q", MethodLoad, mt)
	}
	return params.ID, ReadEvents(ctx, resp.Body), nil
}

// Ack acknowledges the latest batch of request id.
func (c *Client) Ack(ctx context.Context, id string) error {
	resp, err := c.post(ctx, MethodAck, AckParams{ID: id}, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	var result AckResult
	return decodeResponse(resp, MethodAck, &result)
}

func (c *Client) post(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("ingest: marshal params: %w", err)
	}
	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  paramsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ingest: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ingest: %s: HTTP %d: %s", method, resp.StatusCode, string(b))
	}
	return resp, nil
}

func decodeResponse(resp *http.Response, method string, result any) error {
	var rpcResp JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("ingest: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("ingest: decode result: %w", err)
		}
	}
	return nil
}
