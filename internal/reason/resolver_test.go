package reason

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customRules = "@prefix ex: <http://example.org/> .\n{ ?a ex:p ?b } => { ?a ex:q ?b } .\n"

func TestResolver_CacheFirst(t *testing.T) {
	cache := NewRuleCache(nil)
	cache.Put("rdfs.n3", customRules)
	r := NewResolver(cache)

	rules, used := r.Resolve(context.Background(), []string{"rdfs.n3"}, "")
	assert.Equal(t, []string{"rdfs.n3"}, used)
	require.Len(t, rules, 1)
}

func TestResolver_EmbeddedPopulatesCache(t *testing.T) {
	cache := NewRuleCache(nil)
	r := NewResolver(cache)

	rules, used := r.Resolve(context.Background(), []string{"owl-basic.n3"}, "")
	assert.Equal(t, []string{"owl-basic.n3"}, used)
	assert.NotEmpty(t, rules)
	_, ok := cache.Get("owl-basic.n3")
	assert.True(t, ok)
}

func TestResolver_LocalDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.n3"), []byte(customRules), 0o644))
	r := NewResolver(nil, WithRuleDirs(dir))

	rules, used := r.Resolve(context.Background(), []string{"custom.n3"}, "")
	assert.Equal(t, []string{"custom.n3"}, used)
	require.Len(t, rules, 1)
	assert.Equal(t, "custom.n3#1", rules[0].Name)
}

func TestResolver_RemoteCandidates(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/base/remote.n3" {
			_, _ = w.Write([]byte(customRules))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	cache := NewRuleCache(nil)
	r := NewResolver(cache, WithHTTPClient(srv.Client()))
	rules, used := r.Resolve(context.Background(), []string{"remote.n3"}, srv.URL+"/base")

	assert.Equal(t, []string{"remote.n3"}, used)
	assert.Len(t, rules, 1)
	assert.Equal(t, []string{"/base/reasoning-rules/remote.n3", "/base/remote.n3"}, paths)
	assert.Equal(t, 1, cache.Len())
}

func TestResolver_KeepsRequestOrder(t *testing.T) {
	r := NewResolver(nil)
	_, used := r.Resolve(context.Background(), []string{"shacl-lite.n3", "missing.n3", "rdfs.n3"}, "")
	assert.Equal(t, []string{"shacl-lite.n3", "rdfs.n3"}, used)
}

func TestResolver_DefaultWhenEmpty(t *testing.T) {
	r := NewResolver(nil, WithDefaultRuleSet("rdfs.n3"))
	rules, used := r.Resolve(context.Background(), nil, "")
	assert.Equal(t, []string{"rdfs.n3"}, used)
	assert.NotEmpty(t, rules)
}

func TestRemoteCandidates(t *testing.T) {
	assert.Nil(t, remoteCandidates("x.n3", ""))
	assert.Equal(t, []string{"https://h/r.n3"}, remoteCandidates("https://h/r.n3", "https://base"))
	assert.Equal(t,
		[]string{"https://h/app/reasoning-rules/x.n3", "https://h/app/x.n3"},
		remoteCandidates("x.n3", "https://h/app/"))
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

func TestRuleCache_Basics(t *testing.T) {
	c := NewRuleCache(nil)
	c.Put("a", "x")
	c.Put("b", "y")
	assert.Equal(t, 2, c.Len())

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestRuleCache_WatchDirInvalidates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.n3")
	require.NoError(t, os.WriteFile(file, []byte(customRules), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cache := NewRuleCache(nil)
	require.NoError(t, cache.WatchDir(ctx, dir))

	r := NewResolver(cache, WithRuleDirs(dir))
	_, used := r.Resolve(ctx, []string{"custom.n3"}, "")
	require.Equal(t, []string{"custom.n3"}, used)
	_, ok := cache.Get("custom.n3")
	require.True(t, ok)

	require.NoError(t, os.WriteFile(file, []byte(customRules+"\n"), 0o644))
	assert.Eventually(t, func() bool {
		_, ok := cache.Get("custom.n3")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRuleCache_WatchMissingDir(t *testing.T) {
	err := NewRuleCache(nil).WatchDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
