// Package parse turns RDF documents into quads.
//
// Parsers stream statements into a Sink as they are recognised so callers
// can batch without buffering whole documents. Turtle, N-Triples, N-Quads
// and JSON-LD are supported, plus the N3 rule subset used by the reasoner.
package parse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// ErrUnsupportedFormat is returned when no parser handles a document.
var ErrUnsupportedFormat = errors.New("parse: unsupported format")

// Sink receives parser output.
type Sink interface {
	// OnQuad is called once per statement in document order. Returning an
	// error aborts the parse.
	OnQuad(q rdf.Quad) error

	// OnPrefix is called for each prefix declaration.
	OnPrefix(prefix, iri string)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	Quad   func(rdf.Quad) error
	Prefix func(prefix, iri string)
}

func (s SinkFuncs) OnQuad(q rdf.Quad) error {
	if s.Quad == nil {
		return nil
	}
	return s.Quad(q)
}

func (s SinkFuncs) OnPrefix(prefix, iri string) {
	if s.Prefix != nil {
		s.Prefix(prefix, iri)
	}
}

// Collector is a Sink that keeps everything in memory.
type Collector struct {
	Quads    []rdf.Quad
	Prefixes rdf.PrefixMap
}

func (c *Collector) OnQuad(q rdf.Quad) error {
	c.Quads = append(c.Quads, q)
	return nil
}

func (c *Collector) OnPrefix(prefix, iri string) {
	if c.Prefixes == nil {
		c.Prefixes = rdf.PrefixMap{}
	}
	c.Prefixes[prefix] = iri
}

// Parser reads one serialization.
type Parser interface {
	// Parse reads r to completion, resolving relative IRIs against base.
	Parse(ctx context.Context, r io.Reader, base string, sink Sink) error

	// Format returns the serialization this parser handles.
	Format() Format
}

// SyntaxError reports malformed input with its position.
type SyntaxError struct {
	Format Format
	Line   int
	Col    int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse %s: %s", e.Format, e.Msg)
	}
	return fmt.Sprintf("parse %s: line %d col %d: %s", e.Format, e.Line, e.Col, e.Msg)
}

func newSyntaxError(format Format, line, col int, msg string, args ...any) *SyntaxError {
	return &SyntaxError{Format: format, Line: line, Col: col, Msg: fmt.Sprintf(msg, args...)}
}

// Registry maps formats to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[Format]Parser
}

// NewRegistry returns a registry holding the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: make(map[Format]Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *Registry {
	return NewRegistry(Turtle{}, NTriples{}, NQuads{}, JSONLD{})
}

// Register adds or replaces the parser for p.Format().
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Format()] = p
}

// Lookup returns the parser for f.
func (r *Registry) Lookup(f Format) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return p, nil
}

// ParseDocument detects the format from contentType and name, then parses.
func (r *Registry) ParseDocument(ctx context.Context, rd io.Reader, contentType, name, base string, sink Sink) error {
	f, err := DetectFormat(contentType, name)
	if err != nil {
		return err
	}
	p, err := r.Lookup(f)
	if err != nil {
		return err
	}
	return p.Parse(ctx, rd, base, sink)
}
