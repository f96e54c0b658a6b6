package reason

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/quadflow/internal/metrics"
	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/store"
)

// Engine runs one reasoning pass: it materializes the input, applies the
// resolved rules and reports the difference.
type Engine struct {
	reasoner Reasoner
	resolver *Resolver
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the engine metrics sink.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine. A nil reasoner is accepted; every Run then
// fails with ErrReasonerUnavailable. A nil resolver gets a default one.
func NewEngine(reasoner Reasoner, resolver *Resolver, opts ...EngineOption) *Engine {
	e := &Engine{reasoner: reasoner, resolver: resolver, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = NewResolver(nil, WithResolverLogger(e.logger), WithResolverMetrics(e.metrics))
	}
	return e
}

// Run reasons over req.Quads. The input is never modified; the result
// holds only statements that were not present before.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	quads, err := rdf.FromWireQuads(req.Quads)
	if err != nil {
		e.metrics.ReasonDone("error", time.Since(start), 0)
		return nil, fmt.Errorf("reason: decode input: %w", err)
	}
	if e.reasoner == nil {
		e.metrics.ReasonDone("unavailable", time.Since(start), 0)
		return nil, ErrReasonerUnavailable
	}

	working := store.NewMemStore(quads...)
	before := working.Keys()

	rules, used := e.resolver.Resolve(ctx, req.RuleSets, req.BaseURL)
	e.logger.Debug("rules resolved",
		zap.Strings("rule_sets", used),
		zap.Int("rules", len(rules)),
		zap.Int("quads", len(quads)),
	)

	if err := e.reasoner.Infer(ctx, working, rules); err != nil {
		e.metrics.ReasonDone("unavailable", time.Since(start), 0)
		e.logger.Error("inference failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrReasonerUnavailable, err)
	}

	added := diff(before, working.All())
	findings, resultSubjects := extractFindings(added)
	res := &Result{
		Added:        rdf.ToWireQuads(added),
		Warnings:     []Finding{},
		Errors:       []Finding{},
		Inferences:   describe(added, resultSubjects),
		UsedReasoner: true,
		RuleSets:     used,
	}
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			res.Errors = append(res.Errors, f)
		} else {
			res.Warnings = append(res.Warnings, f)
		}
	}

	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()
	e.metrics.ReasonDone("ok", elapsed, len(added))
	e.logger.Info("reasoning complete",
		zap.Int("added", len(added)),
		zap.Int("warnings", len(res.Warnings)),
		zap.Int("errors", len(res.Errors)),
		zap.Duration("duration", elapsed),
	)
	return res, nil
}

// diff returns the statements of after whose key is absent from before,
// re-tagged into the inferred graph. Statements that collapse onto the
// same inferred key are reported once.
func diff(before map[string]struct{}, after []rdf.Quad) []rdf.Quad {
	seen := make(map[string]struct{})
	out := []rdf.Quad{}
	for _, q := range after {
		if _, ok := before[q.Key()]; ok {
			continue
		}
		q = q.InGraph(rdf.GraphInferred)
		k := q.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	return out
}

type groupKey struct {
	graph   string
	subject rdf.Term
}

// extractFindings groups added by (graph, subject) and turns every group
// typed sh:ValidationResult into a Finding. It also returns the set of
// result subjects so their statements are not reported as inferences.
func extractFindings(added []rdf.Quad) ([]Finding, map[rdf.Term]bool) {
	var order []groupKey
	groups := make(map[groupKey][]rdf.Quad)
	for _, q := range added {
		k := groupKey{q.Graph, q.Subject}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], q)
	}

	var findings []Finding
	subjects := make(map[rdf.Term]bool)
	for _, k := range order {
		group := groups[k]
		if !hasType(group, rdf.SHValidationResult) {
			continue
		}
		subjects[k.subject] = true
		f := Finding{Subject: k.subject.ID(), Severity: SeverityWarning}
		for _, q := range group {
			switch q.Predicate.Value {
			case rdf.SHFocusNode:
				f.Focus = q.Object.ID()
			case rdf.SHResultMessage:
				f.Message = q.Object.Value
			case rdf.SHResultSeverity:
				if strings.Contains(q.Object.Value, "Violation") {
					f.Severity = SeverityCritical
				}
			case rdf.SHSourceShape:
				f.Source = q.Object.ID()
			case rdf.SHResultPath:
				f.Path = q.Object.ID()
			}
		}
		findings = append(findings, f)
	}
	return findings, subjects
}

func hasType(group []rdf.Quad, class string) bool {
	for _, q := range group {
		if q.Predicate.Value == rdf.RDFType && q.Object.IsIRI() && q.Object.Value == class {
			return true
		}
	}
	return false
}

func describe(added []rdf.Quad, skip map[rdf.Term]bool) []Inference {
	out := make([]Inference, 0, len(added))
	for _, q := range added {
		if skip[q.Subject] {
			continue
		}
		inf := Inference{
			Kind:       KindRelationship,
			Subject:    q.Subject.ID(),
			Predicate:  q.Predicate.Value,
			Object:     q.Object.ID(),
			Confidence: ConfidenceRelationship,
		}
		if q.Predicate.Value == rdf.RDFType {
			inf.Kind = KindClass
			inf.Confidence = ConfidenceClass
		}
		out = append(out, inf)
	}
	return out
}
