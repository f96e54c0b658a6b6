// Package rulesdata embeds the built-in N3 rule sets so the reasoner works
// without network access. Files live under rules/ and are addressed by
// their base name, e.g. "best-practice.n3".
package rulesdata

import (
	"embed"
	"io/fs"
	"path"
	"sort"
)

// DefaultRuleSet is used when no requested rule set resolves.
const DefaultRuleSet = "best-practice.n3"

//go:embed rules/*.n3
var rulesFS embed.FS

// Lookup returns the text of the embedded rule set id.
func Lookup(id string) (string, bool) {
	b, err := rulesFS.ReadFile(path.Join("rules", path.Base(id)))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Names lists the embedded rule sets in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(rulesFS, "rules")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}
