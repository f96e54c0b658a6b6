package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server exposes a Mux over HTTP. ingest/load answers with an SSE stream
// of events; ingest/ack is a plain JSON-RPC call.
type Server struct {
	mux    *Mux
	logger *zap.Logger
	http   *http.Server
}

// NewServer creates a server for m. A nil logger disables logging.
func NewServer(m *Mux, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{mux: m, logger: logger}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", s.handleJSONRPC)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Start listens on addr and serves in a background goroutine. It returns
// the bound address.
func (s *Server) Start(_ context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("ingest: listen %s: %w", addr, err)
	}
	s.http = &http.Server{Handler: s.Handler()}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ingest server stopped", zap.Error(err))
		}
	}()
	return ln.Addr().String(), nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handleJSONRPC decodes a JSON-RPC 2.0 request and dispatches it.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}

	switch req.Method {
	case MethodLoad:
		s.dispatchLoad(w, r, &req)
	case MethodAck:
		s.dispatchAck(w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) dispatchLoad(w http.ResponseWriter, r *http.Request, req *JSONRPCRequest) {
	var params LoadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}
	if err := params.Validate(); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}
	if params.ID == "" {
		params.ID = uuid.NewString()
	}

	events, err := s.mux.Load(Load(params.ID, params.URL, params.Headers, params.TimeoutMs))
	if err != nil {
		writeJSONRPCError(w, req.ID, errorCode(err), err.Error())
		return
	}
	log := s.logger.With(zap.String("request_id", params.ID), zap.String("url", params.URL))
	log.Debug("streaming load")

	sw := NewSSEWriter(w)
	sw.Init()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				log.Debug("client went away", zap.Error(err))
				s.mux.Forget(params.ID)
				return
			}
			if ev.Terminal() {
				return
			}
		case <-r.Context().Done():
			log.Debug("client cancelled load stream")
			s.mux.Forget(params.ID)
			return
		}
	}
}

func (s *Server) dispatchAck(w http.ResponseWriter, req *JSONRPCRequest) {
	var params AckParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return
	}
	if err := s.mux.Ack(params.ID); err != nil {
		writeJSONRPCError(w, req.ID, errorCode(err), err.Error())
		return
	}
	writeJSONRPCResult(w, req.ID, AckResult{OK: true})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateRequest):
		return ErrCodeDuplicateRequest
	case errors.Is(err, ErrWorkerClosed):
		return ErrCodeWorkerClosed
	default:
		return ErrCodeInvalidParams
	}
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	})
}
