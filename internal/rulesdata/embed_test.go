package rulesdata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/parse"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"best-practice.n3", "owl-basic.n3", "rdfs.n3", "shacl-lite.n3"}, Names())
}

func TestLookup(t *testing.T) {
	text, ok := Lookup(DefaultRuleSet)
	require.True(t, ok)
	assert.Contains(t, text, "owl:disjointWith")

	_, ok = Lookup("missing.n3")
	assert.False(t, ok)

	_, ok = Lookup("../rules/rdfs.n3")
	assert.True(t, ok, "lookups use the base name only")
}

func TestEmbeddedRuleSetsParse(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			text, ok := Lookup(name)
			require.True(t, ok)
			rules, err := parse.ParseRules(context.Background(), strings.NewReader(text), name)
			require.NoError(t, err)
			assert.NotEmpty(t, rules)
		})
	}
}
