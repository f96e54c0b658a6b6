// Package store holds statement sets. MemStore backs sessions and the
// reasoner's working copy; KuzuStore persists a session across restarts.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// ErrPersistenceUnavailable is returned by Open when a database path is
// given but the binary was built without cgo.
var ErrPersistenceUnavailable = errors.New("store: persistent store requires cgo")

// Store is the authoritative statement store. Quads are deduplicated by
// structural key and returned in insertion order.
type Store interface {
	io.Closer

	// InitSchema prepares the backend. Called once before use.
	InitSchema(ctx context.Context) error

	// Add inserts quads not already present and returns how many were new.
	Add(ctx context.Context, quads ...rdf.Quad) (int, error)

	// Remove deletes the given quads and returns how many were present.
	Remove(ctx context.Context, quads ...rdf.Quad) (int, error)

	// Quads returns every quad matching p in insertion order.
	Quads(ctx context.Context, p Pattern) ([]rdf.Quad, error)

	// ClearGraph removes every quad in graph g.
	ClearGraph(ctx context.Context, g string) (int, error)

	// Clear removes everything.
	Clear(ctx context.Context) error

	Count(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Stats summarizes store contents.
type Stats struct {
	Total    int            `json:"total"`
	Subjects int            `json:"subjects"`
	Graphs   map[string]int `json:"graphs"`
}

// Pattern selects quads. Nil fields match anything.
type Pattern struct {
	Subject   *rdf.Term
	Predicate *rdf.Term
	Object    *rdf.Term
	Graph     *string
}

// InGraph returns a pattern matching every quad of graph g.
func InGraph(g string) Pattern {
	return Pattern{Graph: &g}
}

// Matches reports whether q satisfies the pattern.
func (p Pattern) Matches(q rdf.Quad) bool {
	if p.Subject != nil && *p.Subject != q.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != q.Predicate {
		return false
	}
	if p.Object != nil && *p.Object != q.Object {
		return false
	}
	if p.Graph != nil && *p.Graph != q.Graph {
		return false
	}
	return true
}

// Open returns a MemStore when dbPath is empty and a file-backed KuzuStore
// otherwise. The returned store has its schema initialized.
func Open(ctx context.Context, dbPath string) (Store, error) {
	var (
		s   Store
		err error
	)
	if dbPath == "" {
		s = NewMemStore()
	} else {
		s, err = openPersistent(dbPath)
		if err != nil {
			return nil, err
		}
	}
	if err := s.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// CopyInto adds every quad of src to dst and returns how many were new.
func CopyInto(ctx context.Context, dst, src Store) (int, error) {
	quads, err := src.Quads(ctx, Pattern{})
	if err != nil {
		return 0, fmt.Errorf("store: read source: %w", err)
	}
	n, err := dst.Add(ctx, quads...)
	if err != nil {
		return n, fmt.Errorf("store: write destination: %w", err)
	}
	return n, nil
}

// ReplaceGraph clears graph g in s and inserts quads re-tagged into g.
func ReplaceGraph(ctx context.Context, s Store, g string, quads []rdf.Quad) (int, error) {
	if _, err := s.ClearGraph(ctx, g); err != nil {
		return 0, err
	}
	tagged := make([]rdf.Quad, len(quads))
	for i, q := range quads {
		tagged[i] = q.InGraph(g)
	}
	return s.Add(ctx, tagged...)
}

func statsOf(quads []rdf.Quad) *Stats {
	st := &Stats{Graphs: make(map[string]int)}
	subjects := make(map[rdf.Term]struct{})
	for _, q := range quads {
		st.Total++
		st.Graphs[q.Graph]++
		subjects[q.Subject] = struct{}{}
	}
	st.Subjects = len(subjects)
	return st
}
