package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/quadflow/internal/diagram"
)

// DiagramExport is the top-level JSON export structure.
type DiagramExport struct {
	Name       string            `json:"name,omitempty"`
	ExportedAt string            `json:"exportedAt"`
	Stats      StatsExport       `json:"stats"`
	Nodes      []diagram.Node    `json:"nodes"`
	Edges      []diagram.Edge    `json:"edges"`
	Clusters   []diagram.Cluster `json:"clusters,omitempty"`
}

// StatsExport summarizes the mapping.
type StatsExport struct {
	Nodes        int `json:"nodes"`
	Edges        int `json:"edges"`
	SchemaNodes  int `json:"schemaNodes"`
	Placeholders int `json:"placeholders"`
}

// ExportDiagram builds a DiagramExport from a mapping result.
func ExportDiagram(name string, res diagram.Result, now time.Time) *DiagramExport {
	export := &DiagramExport{
		Name:       name,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Nodes:      res.Nodes,
		Edges:      res.Edges,
		Clusters:   diagram.ComputeClusters(res, nil),
	}
	export.Stats.Nodes = len(res.Nodes)
	export.Stats.Edges = len(res.Edges)
	for _, n := range res.Nodes {
		if n.IsSchemaElement {
			export.Stats.SchemaNodes++
		}
		if n.Placeholder {
			export.Stats.Placeholders++
		}
	}
	return export
}

// WriteJSON writes the export as indented JSON.
func WriteJSON(w io.Writer, export *DiagramExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("encode diagram: %w", err)
	}
	return nil
}
