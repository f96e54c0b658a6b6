//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// newTestKuzu creates a fresh in-memory KuzuStore with an initialized schema.
func newTestKuzu(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()), "InitSchema should not fail")
	return s
}

func TestKuzuStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestKuzu(t) })
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s := newTestKuzu(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestKuzuStore_FilePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "quads")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Add(ctx, q("a", "p", "b", rdf.GraphData))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.Add(ctx, q("a", "p", "c", rdf.GraphData))
	require.NoError(t, err)

	got, err := s.Quads(ctx, Pattern{})
	require.NoError(t, err)
	assert.Equal(t, []rdf.Quad{q("a", "p", "b", rdf.GraphData), q("a", "p", "c", rdf.GraphData)}, got)
}
