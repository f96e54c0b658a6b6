package reason

import (
	"context"
	"sync"
)

// Response is the single message a Worker sends back for a request.
// Exactly one of Result and Err is set.
type Response struct {
	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
}

// Worker runs engine passes in their own goroutines. Requests and
// responses are plain values; the caller never shares a store with a run.
type Worker struct {
	engine *Engine
	wg     sync.WaitGroup
}

// NewWorker wraps engine.
func NewWorker(engine *Engine) *Worker {
	return &Worker{engine: engine}
}

// Submit starts a run and returns a channel that receives exactly one
// Response. A caller that loses interest may drop the channel.
func (w *Worker) Submit(ctx context.Context, req Request) <-chan Response {
	out := make(chan Response, 1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		res, err := w.engine.Run(ctx, req)
		if err != nil {
			out <- Response{Err: err.Error()}
			return
		}
		out <- Response{Result: res}
	}()
	return out
}

// Wait blocks until every submitted run has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}
