package rdf

import (
	"sort"
	"strings"
)

// PrefixMap maps a prefix label (without colon) to its namespace IRI.
type PrefixMap map[string]string

// Clone returns an independent copy.
func (m PrefixMap) Clone() PrefixMap {
	out := make(PrefixMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into m; later declarations win.
func (m PrefixMap) Merge(other PrefixMap) {
	for k, v := range other {
		m[k] = v
	}
}

// Compact rewrites iri as prefix:local using the longest matching namespace.
// The boolean is false when no namespace applies.
func (m PrefixMap) Compact(iri string) (string, bool) {
	bestPrefix, bestNamespace := "", ""
	for _, prefix := range m.sortedPrefixes() {
		namespace := m[prefix]
		if namespace == "" || !strings.HasPrefix(iri, namespace) || len(namespace) <= len(bestNamespace) {
			continue
		}
		if isValidLocalName(iri[len(namespace):]) {
			bestPrefix, bestNamespace = prefix, namespace
		}
	}
	if bestNamespace == "" {
		return "", false
	}
	return bestPrefix + ":" + iri[len(bestNamespace):], true
}

// CompactOrFull returns the compact form when available, otherwise iri.
func (m PrefixMap) CompactOrFull(iri string) string {
	if c, ok := m.Compact(iri); ok {
		return c
	}
	return iri
}

// Expand resolves prefix:local to a full IRI.
func (m PrefixMap) Expand(curie string) (string, bool) {
	i := strings.Index(curie, ":")
	if i < 0 {
		return "", false
	}
	namespace, ok := m[curie[:i]]
	if !ok {
		return "", false
	}
	return namespace + curie[i+1:], true
}

// sortedPrefixes makes Compact deterministic when two prefixes share a namespace.
func (m PrefixMap) sortedPrefixes() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isValidLocalName(local string) bool {
	if local == "" {
		return false
	}
	return !strings.ContainsAny(local, " \t\n\r<>\"{}|^`\\/#")
}
