package reason

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// RuleCache holds resolved rule text by rule set id. It is passed to the
// Resolver explicitly; tests use a fresh cache per run.
type RuleCache struct {
	mu      sync.RWMutex
	entries map[string]string
	logger  *zap.Logger
}

// NewRuleCache returns an empty cache. A nil logger disables logging.
func NewRuleCache(logger *zap.Logger) *RuleCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleCache{entries: make(map[string]string), logger: logger}
}

func (c *RuleCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[id]
	return text, ok
}

func (c *RuleCache) Put(id, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = text
}

// Invalidate drops id so the next resolution reads it again.
func (c *RuleCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Clear drops every entry.
func (c *RuleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

func (c *RuleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WatchDir invalidates cached rule sets whose file in dir changes. It
// returns once the watch is established; watching stops when ctx ends.
func (c *RuleCache) WatchDir(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reason: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("reason: watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				id := filepath.Base(event.Name)
				c.Invalidate(id)
				c.logger.Debug("rule set invalidated", zap.String("rule_set", id), zap.String("op", event.Op.String()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("rule watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
