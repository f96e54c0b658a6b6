package reason

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dusk-indust/quadflow/internal/rdf"
	"github.com/dusk-indust/quadflow/internal/store"
)

// DefaultMaxRounds bounds fixpoint iteration.
const DefaultMaxRounds = 64

// ErrRoundLimit is returned when rules keep producing new statements past
// the round limit.
var ErrRoundLimit = errors.New("reason: round limit reached before fixpoint")

// Reasoner derives new statements into st. It must never remove any.
type Reasoner interface {
	Infer(ctx context.Context, st *store.MemStore, rules []Rule) error
}

// ForwardChainer applies N3 rules until no rule adds a new triple.
// Derived statements are written to the inferred graph; a triple already
// present in any graph is not derived again.
type ForwardChainer struct {
	MaxRounds int
	Logger    *zap.Logger
}

// Compile-time check.
var _ Reasoner = (*ForwardChainer)(nil)

// NewForwardChainer returns a chainer with the given round limit (0 means default).
func NewForwardChainer(maxRounds int, logger *zap.Logger) *ForwardChainer {
	return &ForwardChainer{MaxRounds: maxRounds, Logger: logger}
}

type triple struct {
	s, p, o rdf.Term
}

func (t triple) key() string {
	return t.s.String() + " " + t.p.String() + " " + t.o.String()
}

// factIndex holds the known triples, indexed by predicate.
type factIndex struct {
	seen   map[string]struct{}
	all    []triple
	byPred map[rdf.Term][]triple
}

func newFactIndex(quads []rdf.Quad) *factIndex {
	idx := &factIndex{seen: make(map[string]struct{}, len(quads)), byPred: make(map[rdf.Term][]triple)}
	for _, q := range quads {
		idx.add(triple{q.Subject, q.Predicate, q.Object})
	}
	return idx
}

func (f *factIndex) add(t triple) bool {
	k := t.key()
	if _, ok := f.seen[k]; ok {
		return false
	}
	f.seen[k] = struct{}{}
	f.all = append(f.all, t)
	f.byPred[t.p] = append(f.byPred[t.p], t)
	return true
}

func (f *factIndex) candidates(p rdf.Term) []triple {
	if p.IsIRI() {
		return f.byPred[p]
	}
	return f.all
}

type bindings map[string]rdf.Term

func (b bindings) clone() bindings {
	out := make(bindings, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// signature is a stable rendering of b used to name skolem nodes.
func (b bindings) signature() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k].String())
		sb.WriteByte(';')
	}
	return sb.String()
}

// varName returns the binding name of a pattern term, or "" for constants.
// Blank nodes in rule bodies behave as variables.
func varName(t rdf.Term) string {
	switch {
	case t.IsVariable():
		return "?" + t.Value
	case t.IsBlank():
		return "_:" + t.Value
	default:
		return ""
	}
}

func unify(pattern, value rdf.Term, b bindings) bool {
	name := varName(pattern)
	if name == "" {
		return pattern == value
	}
	if bound, ok := b[name]; ok {
		return bound == value
	}
	b[name] = value
	return true
}

func resolveTerm(t rdf.Term, b bindings) (rdf.Term, bool) {
	name := varName(t)
	if name == "" {
		return t, true
	}
	v, ok := b[name]
	return v, ok
}

func isBuiltin(q rdf.Quad) bool {
	return q.Predicate.IsIRI() && (q.Predicate.Value == rdf.LogEqualTo || q.Predicate.Value == rdf.LogNotEqualTo)
}

// Infer runs rules over st to a fixpoint.
func (c *ForwardChainer) Infer(ctx context.Context, st *store.MemStore, rules []Rule) error {
	if st == nil {
		return errors.New("reason: nil store")
	}
	maxRounds := c.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	idx := newFactIndex(st.All())
	for round := 1; ; round++ {
		if round > maxRounds {
			return fmt.Errorf("%w (%d rounds)", ErrRoundLimit, maxRounds)
		}
		var derived []rdf.Quad
		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, b := range c.match(rule, idx) {
				for _, q := range instantiate(rule, b) {
					if idx.add(triple{q.Subject, q.Predicate, q.Object}) {
						derived = append(derived, q)
					}
				}
			}
		}
		if len(derived) == 0 {
			log.Debug("fixpoint reached", zap.Int("rounds", round), zap.Int("rules", len(rules)))
			return nil
		}
		st.Insert(derived...)
	}
}

// match returns every binding satisfying the rule body.
func (c *ForwardChainer) match(rule Rule, idx *factIndex) []bindings {
	var patterns, builtins []rdf.Quad
	for _, q := range rule.Body {
		if isBuiltin(q) {
			builtins = append(builtins, q)
		} else {
			patterns = append(patterns, q)
		}
	}

	results := []bindings{{}}
	for _, pat := range patterns {
		var next []bindings
		for _, b := range results {
			p, _ := resolveTerm(pat.Predicate, b)
			for _, t := range idx.candidates(p) {
				nb := b.clone()
				if unify(pat.Subject, t.s, nb) && unify(pat.Predicate, t.p, nb) && unify(pat.Object, t.o, nb) {
					next = append(next, nb)
				}
			}
		}
		results = next
		if len(results) == 0 {
			return nil
		}
	}

	if len(builtins) == 0 {
		return results
	}
	out := results[:0]
	for _, b := range results {
		if evalBuiltins(builtins, b) {
			out = append(out, b)
		}
	}
	return out
}

func evalBuiltins(builtins []rdf.Quad, b bindings) bool {
	for _, q := range builtins {
		l, ok1 := resolveTerm(q.Subject, b)
		r, ok2 := resolveTerm(q.Object, b)
		if !ok1 || !ok2 {
			return false
		}
		equal := l == r
		if q.Predicate.Value == rdf.LogEqualTo && !equal {
			return false
		}
		if q.Predicate.Value == rdf.LogNotEqualTo && equal {
			return false
		}
	}
	return true
}

// instantiate substitutes b into the rule head. Head blank nodes become
// skolem nodes named after the rule and the binding; head variables left
// unbound drop their statement.
func instantiate(rule Rule, b bindings) []rdf.Quad {
	var sig string
	out := make([]rdf.Quad, 0, len(rule.Head))
	for _, h := range rule.Head {
		terms := [3]rdf.Term{h.Subject, h.Predicate, h.Object}
		ok := true
		for i, t := range terms {
			switch {
			case t.IsBlank():
				if sig == "" {
					sig = b.signature()
				}
				terms[i] = skolem(rule.Name, t.Value, sig)
			case t.IsVariable():
				v, bound := b["?"+t.Value]
				if !bound {
					ok = false
				}
				terms[i] = v
			}
		}
		if !ok {
			continue
		}
		q := rdf.NewQuad(terms[0], terms[1], terms[2], rdf.GraphInferred)
		if q.Valid() {
			out = append(out, q)
		}
	}
	return out
}

func skolem(rule, label, sig string) rdf.Term {
	sum := sha256.Sum256([]byte(rule + "\x00" + label + "\x00" + sig))
	return rdf.Blank("sk_" + hex.EncodeToString(sum[:])[:16])
}
