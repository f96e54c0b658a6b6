//go:build e2e

package e2e

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/export"
)

var update = flag.Bool("update", false, "update golden files")

// goldenPath returns the Mermaid golden file for the library fixtures.
func goldenPath() string {
	return filepath.Join("..", "..", "testdata", "golden", "library.mmd")
}

// TestGolden compares the Mermaid rendering of the library fixtures against
// the golden file. If it does not exist, the test is skipped with a message
// to run with -update.
func TestGolden(t *testing.T) {
	_, d := runLibrary(t)
	actual := export.GenerateMermaid(d)

	golden, err := os.ReadFile(goldenPath())
	if os.IsNotExist(err) {
		t.Skip("golden file library.mmd not found; run with -update to generate")
	}
	require.NoError(t, err)
	assert.Equal(t, string(golden), actual)
}

// TestUpdateGolden regenerates the golden file.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}
	_, d := runLibrary(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(goldenPath()), 0o755))
	require.NoError(t, os.WriteFile(goldenPath(), []byte(export.GenerateMermaid(d)), 0o644))
	t.Logf("updated %s", goldenPath())
}
