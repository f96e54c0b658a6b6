package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/diagram"
	"github.com/dusk-indust/quadflow/internal/rdf"
)

const ex = "http://example.org/"

func sample() diagram.Result {
	q := func(s, p string, o rdf.Term) rdf.Quad {
		return rdf.NewQuad(rdf.IRI(ex+s), rdf.IRI(p), o, rdf.GraphData)
	}
	return diagram.Map([]rdf.Quad{
		q("Person", rdf.RDFType, rdf.IRI(rdf.OWLClass)),
		q("a", rdf.RDFType, rdf.IRI(ex+"Person")),
		q("a", rdf.RDFSLabel, rdf.Literal(`Alice "A"`)),
		q("a", ex+"knows", rdf.IRI(ex+"b")),
	}, diagram.Options{Prefixes: rdf.PrefixMap{"ex": ex}})
}

func TestGenerateMermaid(t *testing.T) {
	out := GenerateMermaid(sample())

	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, `N0[["ex:Person"]]`)
	assert.Contains(t, out, `N1["Alice #quot;A#quot;"]`)
	assert.Contains(t, out, `N2["ex:b"]`)
	assert.Contains(t, out, `N1 -->|"ex:knows"| N2`)
	assert.Contains(t, out, "class N0 schema")
	assert.Contains(t, out, "class N2 placeholder")
	assert.Contains(t, out, "subgraph C0")
}

func TestGenerateMermaid_Empty(t *testing.T) {
	out := GenerateMermaid(diagram.Map(nil, diagram.Options{}))
	assert.NotContains(t, out, "-->")
	assert.NotContains(t, out, "subgraph")
}

func TestShortIRI(t *testing.T) {
	assert.Equal(t, "ex:a", shortIRI("ex:a", ex+"a"))
	assert.Equal(t, "b", shortIRI("", "http://x.org/ns#b"))
	assert.Equal(t, "http://x.org/", shortIRI("", "http://x.org/"))
}

func TestExportDiagram(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	exp := ExportDiagram("people", sample(), now)

	assert.Equal(t, "2026-01-02T03:04:05Z", exp.ExportedAt)
	assert.Equal(t, StatsExport{Nodes: 3, Edges: 1, SchemaNodes: 1, Placeholders: 1}, exp.Stats)
	require.Len(t, exp.Clusters, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, exp))
	var decoded DiagramExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "people", decoded.Name)
	assert.Len(t, decoded.Nodes, 3)
}
