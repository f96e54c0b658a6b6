package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

func TestComputeClusters_Components(t *testing.T) {
	res := Map([]rdf.Quad{
		data(iri("people/a"), iri("knows"), iri("people/b")),
		data(iri("people/b"), iri("knows"), iri("people/c")),
		data(iri("x"), iri("near"), iri("y")),
		data(iri("lonely"), rdfsLab, rdf.Literal("alone")),
	}, Options{})

	clusters := ComputeClusters(res, nil)
	require.Len(t, clusters, 2)
	assert.Equal(t, ex+"people/", clusters[0].Name)
	assert.Equal(t, []string{ex + "people/a", ex + "people/b", ex + "people/c"}, clusters[0].Members)
	assert.Equal(t, 1.0, clusters[0].Cohesion)
	assert.Equal(t, []string{ex + "x", ex + "y"}, clusters[1].Members)
}

func TestComputeClusters_IncludeFilter(t *testing.T) {
	res := Map([]rdf.Quad{
		data(iri("A"), rdfType, owlClass),
		data(iri("a1"), rdfType, iri("A")),
		data(iri("a1"), iri("rel"), iri("a2")),
		data(iri("a2"), rdfType, iri("A")),
		data(iri("a2"), iri("rel"), iri("A")),
	}, Options{})

	clusters := ComputeClusters(res, func(n Node) bool { return !n.IsSchemaElement })
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{ex + "a1", ex + "a2"}, clusters[0].Members)
	assert.InDelta(t, 0.5, clusters[0].Cohesion, 1e-9)
}

func TestCommonNamespace(t *testing.T) {
	assert.Equal(t, "", commonNamespace(nil))
	assert.Equal(t, "http://e/ns#", commonNamespace([]string{"http://e/ns#a", "http://e/ns#ab"}))
	assert.Equal(t, "", commonNamespace([]string{"_:b1", "http://e/x"}))
}
