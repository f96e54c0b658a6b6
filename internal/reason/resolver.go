package reason

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/quadflow/internal/metrics"
	"github.com/dusk-indust/quadflow/internal/parse"
	"github.com/dusk-indust/quadflow/internal/rulesdata"
)

// Rule set sources, in resolution order.
const (
	SourceCache    = "cache"
	SourceEmbedded = "embedded"
	SourceDir      = "dir"
	SourceRemote   = "remote"
)

// maxRuleBytes caps remote rule documents.
const maxRuleBytes = 4 << 20

// Resolver turns rule set ids into parsed rules. For each id it tries, in
// order: the cache, the embedded sets, each local directory,
// <base>/reasoning-rules/<id> and <base>/<id>. The first hit wins.
type Resolver struct {
	cache      *RuleCache
	dirs       []string
	client     *http.Client
	defaultSet string
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRuleDirs adds local directories searched after the embedded sets.
func WithRuleDirs(dirs ...string) ResolverOption {
	return func(r *Resolver) { r.dirs = append(r.dirs, dirs...) }
}

// WithHTTPClient sets the client for remote rule sets.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) { r.client = c }
}

// WithDefaultRuleSet overrides the fallback rule set id.
func WithDefaultRuleSet(id string) ResolverOption {
	return func(r *Resolver) { r.defaultSet = id }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithResolverMetrics sets the metrics sink.
func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a resolver around cache. A nil cache gets a private one.
func NewResolver(cache *RuleCache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:      cache,
		client:     &http.Client{},
		defaultSet: rulesdata.DefaultRuleSet,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewRuleCache(r.logger)
	}
	return r
}

// Cache returns the resolver's rule cache.
func (r *Resolver) Cache() *RuleCache {
	return r.cache
}

// Resolve loads and parses the requested rule sets concurrently. Rule sets
// that fail to resolve or parse are logged and skipped. If none succeed
// the default rule set is used. It returns the rules and the ids used.
func (r *Resolver) Resolve(ctx context.Context, ids []string, baseURL string) ([]Rule, []string) {
	parsed := make([][]Rule, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			rules, err := r.load(gctx, id, baseURL)
			if err != nil {
				r.logger.Warn("rule set skipped", zap.String("rule_set", id), zap.Error(err))
				return nil
			}
			parsed[i] = rules
			return nil
		})
	}
	_ = g.Wait()

	var (
		rules []Rule
		used  []string
	)
	for i, rs := range parsed {
		if rs == nil {
			continue
		}
		rules = append(rules, rs...)
		used = append(used, ids[i])
	}
	if len(used) > 0 {
		return rules, used
	}

	if r.defaultSet == "" {
		return nil, nil
	}
	if len(ids) > 0 {
		r.logger.Info("no requested rule set resolved, using default", zap.String("rule_set", r.defaultSet))
	}
	def, err := r.load(ctx, r.defaultSet, baseURL)
	if err != nil {
		r.logger.Warn("default rule set unavailable", zap.String("rule_set", r.defaultSet), zap.Error(err))
		return nil, nil
	}
	return def, []string{r.defaultSet}
}

func (r *Resolver) load(ctx context.Context, id, baseURL string) ([]Rule, error) {
	text, source, err := r.text(ctx, id, baseURL)
	if err != nil {
		r.metrics.RuleSetResolved("none")
		return nil, err
	}
	r.metrics.RuleSetResolved(source)
	rules, err := parse.ParseRules(ctx, strings.NewReader(text), id)
	if err != nil {
		// Keep a bad entry from shadowing a fixed file.
		r.cache.Invalidate(id)
		return nil, fmt.Errorf("parse rule set %s: %w", id, err)
	}
	r.logger.Debug("rule set loaded", zap.String("rule_set", id), zap.String("source", source), zap.Int("rules", len(rules)))
	return rules, nil
}

// text finds the rule text for id and the source it came from.
func (r *Resolver) text(ctx context.Context, id, baseURL string) (string, string, error) {
	if text, ok := r.cache.Get(id); ok {
		return text, SourceCache, nil
	}
	if text, ok := rulesdata.Lookup(id); ok {
		r.cache.Put(id, text)
		return text, SourceEmbedded, nil
	}
	for _, dir := range r.dirs {
		b, err := os.ReadFile(filepath.Join(dir, filepath.Base(id)))
		if err == nil {
			r.cache.Put(id, string(b))
			return string(b), SourceDir, nil
		}
	}

	var errs []string
	for _, u := range remoteCandidates(id, baseURL) {
		text, err := r.fetch(ctx, u)
		if err == nil {
			r.cache.Put(id, text)
			return text, SourceRemote, nil
		}
		errs = append(errs, err.Error())
	}
	if len(errs) == 0 {
		return "", "", fmt.Errorf("rule set %s not found", id)
	}
	return "", "", fmt.Errorf("rule set %s not found: %s", id, strings.Join(errs, "; "))
}

// remoteCandidates lists the URLs tried for id. An absolute id is used as is.
func remoteCandidates(id, baseURL string) []string {
	if u, err := url.Parse(id); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return []string{id}
	}
	if baseURL == "" {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	withDir := *base
	withDir.Path = path.Join(base.Path, "reasoning-rules", id)
	direct := *base
	direct.Path = path.Join(base.Path, id)
	return []string{withDir.String(), direct.String()}
}

func (r *Resolver) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/n3, text/plain;q=0.5")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: HTTP %d", u, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxRuleBytes))
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", u, err)
	}
	return string(b), nil
}
