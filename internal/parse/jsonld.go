package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

const jsonldDefaultGraph = "@default"

// JSONLD parses application/ld+json through the json-gold processor.
// Named graphs are preserved. String-valued @context terms that look like
// namespaces are reported as prefixes.
type JSONLD struct {
	// Loader overrides remote context loading. Nil uses the json-gold default.
	Loader ld.DocumentLoader
}

func (JSONLD) Format() Format { return FormatJSONLD }

func (j JSONLD) Parse(ctx context.Context, r io.Reader, base string, sink Sink) error {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return &SyntaxError{Format: FormatJSONLD, Msg: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if sink != nil {
		for _, pfx := range contextPrefixes(doc) {
			sink.OnPrefix(pfx[0], pfx[1])
		}
	}

	opts := ld.NewJsonLdOptions(base)
	if j.Loader != nil {
		opts.DocumentLoader = j.Loader
	}
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, opts)
	if err != nil {
		return &SyntaxError{Format: FormatJSONLD, Msg: err.Error()}
	}
	dataset, ok := out.(*ld.RDFDataset)
	if !ok {
		return &SyntaxError{Format: FormatJSONLD, Msg: fmt.Sprintf("unexpected processor output %T", out)}
	}

	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		if name != jsonldDefaultGraph {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{jsonldDefaultGraph}, names...)

	for _, name := range names {
		graph := ""
		if name != jsonldDefaultGraph {
			graph = name
		}
		for _, lq := range dataset.Graphs[name] {
			if err := ctx.Err(); err != nil {
				return err
			}
			q, ok := fromLDQuad(lq, graph)
			if !ok || sink == nil {
				continue
			}
			if err := sink.OnQuad(q); err != nil {
				return err
			}
		}
	}
	return nil
}

func fromLDQuad(lq *ld.Quad, graph string) (rdf.Quad, bool) {
	s, ok1 := fromLDNode(lq.Subject)
	p, ok2 := fromLDNode(lq.Predicate)
	o, ok3 := fromLDNode(lq.Object)
	if !ok1 || !ok2 || !ok3 {
		return rdf.Quad{}, false
	}
	return rdf.NewQuad(s, p, o, graph), true
}

func fromLDNode(n ld.Node) (rdf.Term, bool) {
	switch v := n.(type) {
	case *ld.IRI:
		return rdf.IRI(v.Value), true
	case *ld.BlankNode:
		return rdf.Blank(v.Attribute), true
	case *ld.Literal:
		if v.Language != "" {
			return rdf.LangLiteral(v.Value, v.Language), true
		}
		return rdf.TypedLiteral(v.Value, v.Datatype), true
	default:
		return rdf.Term{}, false
	}
}

// contextPrefixes returns [prefix, iri] pairs from a top-level @context
// object, sorted by prefix.
func contextPrefixes(doc any) [][2]string {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var ctxs []any
	switch c := obj["@context"].(type) {
	case map[string]any:
		ctxs = []any{c}
	case []any:
		ctxs = c
	}

	var out [][2]string
	for _, c := range ctxs {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			iri, ok := m[k].(string)
			if !ok || strings.HasPrefix(k, "@") {
				continue
			}
			if strings.HasSuffix(iri, "#") || strings.HasSuffix(iri, "/") {
				out = append(out, [2]string{k, iri})
			}
		}
	}
	return out
}
