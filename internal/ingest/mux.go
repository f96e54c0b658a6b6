package ingest

import (
	"sync"
)

type subscription struct {
	ch   chan Event
	gone chan struct{}
}

// Mux fans a Worker's shared event stream out to one channel per request.
type Mux struct {
	w *Worker

	mu   sync.Mutex
	subs map[string]*subscription
	done chan struct{}
}

// NewMux starts routing events from w. It stops when w is closed.
func NewMux(w *Worker) *Mux {
	m := &Mux{
		w:    w,
		subs: make(map[string]*subscription),
		done: make(chan struct{}),
	}
	go m.route()
	return m
}

// Worker returns the underlying worker.
func (m *Mux) Worker() *Worker {
	return m.w
}

func (m *Mux) route() {
	defer close(m.done)
	for ev := range m.w.Events() {
		m.mu.Lock()
		sub, ok := m.subs[ev.ID]
		if ok && ev.Terminal() {
			delete(m.subs, ev.ID)
		}
		m.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case sub.ch <- ev:
		case <-sub.gone:
			continue
		}
		if ev.Terminal() {
			close(sub.ch)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subs {
		close(sub.ch)
		delete(m.subs, id)
	}
}

// Load posts req and returns the events for its id. The channel is closed
// after the terminal event, or when the worker closes mid-load.
func (m *Mux) Load(req Request) (<-chan Event, error) {
	sub := &subscription{ch: make(chan Event, eventBuffer), gone: make(chan struct{})}
	m.mu.Lock()
	if _, ok := m.subs[req.ID]; ok {
		m.mu.Unlock()
		return nil, ErrDuplicateRequest
	}
	m.subs[req.ID] = sub
	m.mu.Unlock()

	if err := m.w.Post(req); err != nil {
		m.Forget(req.ID)
		return nil, err
	}
	return sub.ch, nil
}

// Ack acknowledges the latest batch of request id.
func (m *Mux) Ack(id string) error {
	return m.w.Post(Ack(id))
}

// Forget drops the subscription for id. Further events for it are
// discarded and its channel is never closed; callers stop reading it.
func (m *Mux) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subs[id]; ok {
		close(sub.gone)
		delete(m.subs, id)
	}
}

// Done is closed once the underlying worker has shut down.
func (m *Mux) Done() <-chan struct{} {
	return m.done
}
