// Package status summarizes what a statement store holds per named graph
// and which pipeline step comes next.
package status

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/store"
)

// GraphInfo describes one named graph.
type GraphInfo struct {
	Name  string `json:"name"` // short name (e.g. "data"), empty for unknown graphs
	IRI   string `json:"iri"`
	Quads int    `json:"quads"`
}

// Next steps reported by StoreStatus.
const (
	StepLoad    = "load"
	StepReason  = "reason"
	StepDiagram = "diagram"
)

// StoreStatus holds the per-graph breakdown of a store.
type StoreStatus struct {
	Total    int         `json:"total"`
	Subjects int         `json:"subjects"`
	Graphs   []GraphInfo `json:"graphs"`
	NextStep string      `json:"nextStep"`
}

var knownGraphs = []GraphInfo{
	{Name: "data", IRI: rdf.GraphData},
	{Name: "ontologies", IRI: rdf.GraphOntologies},
	{Name: "catalog", IRI: rdf.GraphCatalog},
	{Name: "inferred", IRI: rdf.GraphInferred},
}

// GraphIRI resolves a short graph name accepted by the load surfaces.
// The empty name is the data graph. Inferred is not loadable.
func GraphIRI(name string) (string, bool) {
	if name == "" {
		return rdf.GraphData, true
	}
	for _, g := range knownGraphs {
		if g.Name == name && g.IRI != rdf.GraphInferred {
			return g.IRI, true
		}
	}
	return "", false
}

// FromStats builds the status from store statistics. Known graphs are
// always listed, in pipeline order; other graphs follow sorted by IRI.
func FromStats(stats *store.Stats) StoreStatus {
	s := StoreStatus{Total: stats.Total, Subjects: stats.Subjects}
	seen := make(map[string]bool, len(knownGraphs))
	for _, g := range knownGraphs {
		g.Quads = stats.Graphs[g.IRI]
		s.Graphs = append(s.Graphs, g)
		seen[g.IRI] = true
	}

	var other []string
	for iri := range stats.Graphs {
		if !seen[iri] {
			other = append(other, iri)
		}
	}
	sort.Strings(other)
	for _, iri := range other {
		s.Graphs = append(s.Graphs, GraphInfo{IRI: iri, Quads: stats.Graphs[iri]})
	}

	s.NextStep = NextStep(stats.Graphs)
	return s
}

// NextStep returns the step to run given per-graph counts: load while the
// data graph is empty, reason until something was inferred, else diagram.
func NextStep(graphs map[string]int) string {
	switch {
	case graphs[rdf.GraphData] == 0:
		return StepLoad
	case graphs[rdf.GraphInferred] == 0:
		return StepReason
	default:
		return StepDiagram
	}
}

// Get reads the status of st.
func Get(ctx context.Context, st store.Store) (StoreStatus, error) {
	stats, err := st.Stats(ctx)
	if err != nil {
		return StoreStatus{}, fmt.Errorf("status: %w", err)
	}
	return FromStats(stats), nil
}

// Write prints s as a table.
func Write(w io.Writer, s StoreStatus) {
	fmt.Fprintf(w, "Statements: %d  Subjects: %d\n\n", s.Total, s.Subjects)
	for _, g := range s.Graphs {
		name := g.Name
		if name == "" {
			name = "-"
		}
		label := "empty"
		if g.Quads > 0 {
			label = fmt.Sprintf("%d", g.Quads)
		}
		fmt.Fprintf(w, "  %-12s %-20s [%s]\n", name, g.IRI, label)
	}
	fmt.Fprintf(w, "\n-> next: %s\n", s.NextStep)
}
