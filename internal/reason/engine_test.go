package reason

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/store"
)

const ex = "http://example.org/"

func data(s, p, o rdf.Term) rdf.Quad {
	return rdf.NewQuad(s, p, o, rdf.GraphData)
}

func iri(local string) rdf.Term {
	return rdf.IRI(ex + local)
}

func newTestEngine(t *testing.T, opts ...ResolverOption) *Engine {
	t.Helper()
	return NewEngine(NewForwardChainer(0, nil), NewResolver(NewRuleCache(nil), opts...))
}

func run(t *testing.T, e *Engine, ruleSets []string, quads ...rdf.Quad) *Result {
	t.Helper()
	res, err := e.Run(context.Background(), Request{Quads: rdf.ToWireQuads(quads), RuleSets: ruleSets})
	require.NoError(t, err)
	return res
}

type failingReasoner struct{ err error }

func (f failingReasoner) Infer(context.Context, *store.MemStore, []Rule) error { return f.err }

// ---------------------------------------------------------------------------
// Availability
// ---------------------------------------------------------------------------

func TestEngine_NilReasonerIsFatal(t *testing.T) {
	e := NewEngine(nil, nil)

	res, err := e.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReasonerUnavailable)
	assert.Nil(t, res)
}

func TestEngine_ReasonerFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(failingReasoner{err: boom}, nil)

	res, err := e.Run(context.Background(), Request{
		Quads: rdf.ToWireQuads([]rdf.Quad{data(iri("a"), rdf.IRI(rdf.RDFType), iri("B"))}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReasonerUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}

func TestEngine_InvalidWireInput(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Run(context.Background(), Request{Quads: []rdf.WireQuad{{S: rdf.WireTerm{Kind: "nope", Value: "x"}}}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReasonerUnavailable)
}

// ---------------------------------------------------------------------------
// Diff
// ---------------------------------------------------------------------------

func TestEngine_AddedIsDifference(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"rdfs.n3"},
		data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
		data(iri("Dog"), rdf.IRI(rdf.RDFSSubClassOf), iri("Animal")),
	)

	assert.True(t, res.UsedReasoner)
	assert.Equal(t, []string{"rdfs.n3"}, res.RuleSets)
	require.Len(t, res.Added, 1)
	added, err := res.Added[0].Quad()
	require.NoError(t, err)
	assert.Equal(t, rdf.NewQuad(iri("a"), rdf.IRI(rdf.RDFType), iri("Animal"), rdf.GraphInferred), added)

	require.Len(t, res.Inferences, 1)
	assert.Equal(t, Inference{
		Kind:       KindClass,
		Subject:    ex + "a",
		Predicate:  rdf.RDFType,
		Object:     ex + "Animal",
		Confidence: ConfidenceClass,
	}, res.Inferences[0])
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Errors)
}

func TestEngine_KnownStatementNotAdded(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"rdfs.n3"},
		data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
		data(iri("Dog"), rdf.IRI(rdf.RDFSSubClassOf), iri("Animal")),
		rdf.NewQuad(iri("a"), rdf.IRI(rdf.RDFType), iri("Animal"), rdf.GraphOntologies),
	)

	assert.True(t, res.UsedReasoner)
	assert.NotNil(t, res.Added)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Inferences)
}

func TestEngine_InputNotMutated(t *testing.T) {
	e := newTestEngine(t)
	input := rdf.ToWireQuads([]rdf.Quad{
		data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
		data(iri("Dog"), rdf.IRI(rdf.RDFSSubClassOf), iri("Animal")),
	})
	snapshot := append([]rdf.WireQuad(nil), input...)

	_, err := e.Run(context.Background(), Request{Quads: input, RuleSets: []string{"rdfs.n3"}})
	require.NoError(t, err)
	assert.Equal(t, snapshot, input)
}

func TestEngine_RelationshipInference(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"owl-basic.n3"},
		data(iri("knows"), rdf.IRI(rdf.RDFType), rdf.IRI(rdf.OWLSymmetricProperty)),
		data(iri("a"), iri("knows"), iri("b")),
	)

	require.Len(t, res.Inferences, 1)
	assert.Equal(t, KindRelationship, res.Inferences[0].Kind)
	assert.Equal(t, ConfidenceRelationship, res.Inferences[0].Confidence)
	assert.Equal(t, ex+"b", res.Inferences[0].Subject)
	assert.Equal(t, ex+"a", res.Inferences[0].Object)
}

// ---------------------------------------------------------------------------
// Findings
// ---------------------------------------------------------------------------

func TestEngine_DisjointViolation(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"best-practice.n3"},
		data(iri("Cat"), rdf.IRI(rdf.OWLDisjointWith), iri("Dog")),
		data(iri("x"), rdf.IRI(rdf.RDFType), iri("Cat")),
		data(iri("x"), rdf.IRI(rdf.RDFType), iri("Dog")),
	)

	require.Len(t, res.Errors, 2)
	assert.Empty(t, res.Warnings)
	sources := []string{res.Errors[0].Source, res.Errors[1].Source}
	assert.ElementsMatch(t, []string{ex + "Cat", ex + "Dog"}, sources)
	for _, f := range res.Errors {
		assert.Equal(t, ex+"x", f.Focus)
		assert.Equal(t, SeverityCritical, f.Severity)
		assert.Equal(t, "Resource is an instance of two disjoint classes", f.Message)
		assert.Contains(t, f.Subject, "_:sk_")
	}

	// Only the symmetric disjointness statement is an inference; the
	// validation result statements are not.
	require.Len(t, res.Inferences, 1)
	assert.Equal(t, Inference{
		Kind:       KindRelationship,
		Subject:    ex + "Dog",
		Predicate:  rdf.OWLDisjointWith,
		Object:     ex + "Cat",
		Confidence: ConfidenceRelationship,
	}, res.Inferences[0])
}

func TestEngine_PunningWarning(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"best-practice.n3"},
		data(iri("p"), rdf.IRI(rdf.RDFType), rdf.IRI(rdf.OWLNamedIndividual)),
		data(iri("p"), rdf.IRI(rdf.RDFType), rdf.IRI(rdf.OWLClass)),
	)

	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ex+"p", res.Warnings[0].Focus)
	assert.Equal(t, SeverityWarning, res.Warnings[0].Severity)
	assert.Empty(t, res.Inferences)
}

func TestEngine_SkolemIDsStable(t *testing.T) {
	quads := []rdf.Quad{
		data(iri("Cat"), rdf.IRI(rdf.OWLDisjointWith), iri("Dog")),
		data(iri("x"), rdf.IRI(rdf.RDFType), iri("Cat")),
		data(iri("x"), rdf.IRI(rdf.RDFType), iri("Dog")),
	}
	first := run(t, newTestEngine(t), []string{"best-practice.n3"}, quads...)
	second := run(t, newTestEngine(t), []string{"best-practice.n3"}, quads...)
	assert.Equal(t, first.Added, second.Added)
	assert.Equal(t, first.Errors, second.Errors)
}

// ---------------------------------------------------------------------------
// Rule sets
// ---------------------------------------------------------------------------

func TestEngine_FallsBackToDefaultRuleSet(t *testing.T) {
	e := newTestEngine(t)
	res := run(t, e, []string{"missing.n3"},
		data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
	)
	assert.Equal(t, []string{"best-practice.n3"}, res.RuleSets)
	assert.True(t, res.UsedReasoner)
}

func TestEngine_BrokenRuleSetSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.n3"), []byte("{ ?x "), 0o644))
	e := newTestEngine(t, WithRuleDirs(dir))

	res := run(t, e, []string{"broken.n3", "rdfs.n3"},
		data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
		data(iri("Dog"), rdf.IRI(rdf.RDFSSubClassOf), iri("Animal")),
	)
	assert.Equal(t, []string{"rdfs.n3"}, res.RuleSets)
	assert.Len(t, res.Added, 1)
}

func TestEngine_RoundLimit(t *testing.T) {
	dir := t.TempDir()
	rules := "@prefix ex: <http://example.org/> .\n{ ?x ex:next ?y } => { ?y ex:next _:n } .\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grow.n3"), []byte(rules), 0o644))
	e := NewEngine(NewForwardChainer(3, nil), NewResolver(nil, WithRuleDirs(dir)))

	_, err := e.Run(context.Background(), Request{
		Quads:    rdf.ToWireQuads([]rdf.Quad{data(iri("a"), iri("next"), iri("b"))}),
		RuleSets: []string{"grow.n3"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReasonerUnavailable)
	assert.ErrorIs(t, err, ErrRoundLimit)
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

func TestWorker_Submit(t *testing.T) {
	w := NewWorker(newTestEngine(t))
	ch := w.Submit(context.Background(), Request{
		Quads: rdf.ToWireQuads([]rdf.Quad{
			data(iri("a"), rdf.IRI(rdf.RDFType), iri("Dog")),
			data(iri("Dog"), rdf.IRI(rdf.RDFSSubClassOf), iri("Animal")),
		}),
		RuleSets: []string{"rdfs.n3"},
	})

	select {
	case resp := <-ch:
		assert.Empty(t, resp.Err)
		require.NotNil(t, resp.Result)
		assert.Len(t, resp.Result.Added, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	w.Wait()
}

func TestWorker_SubmitUnavailable(t *testing.T) {
	w := NewWorker(NewEngine(nil, nil))
	resp := <-w.Submit(context.Background(), Request{})
	assert.Nil(t, resp.Result)
	assert.Contains(t, resp.Err, "reasoner unavailable")
}
