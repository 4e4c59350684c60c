package fscache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_mirror/internal/logger"
	"github.com/bassista/go_mirror/internal/telemetry"
)

const defaultIndexTTL = 3 * time.Second

// indexEntry is an in-process hint pointing at the newest known entry for one
// (function, argument hash) pair. Hints expire after the index TTL and are
// never trusted blindly: a hint whose file vanished falls back to a scan.
type indexEntry struct {
	path      string
	writtenAt time.Time
	cachedAt  time.Time
}

// Cache is a durable TTL cache for function results. Each entry is one JSON
// file under dir, named {function}_{arg-hash}_{unix-seconds}.json, so multiple
// timestamped entries per key may coexist and the read path simply picks the
// newest valid one. Writing never overwrites in place; superseded entries are
// cleaned opportunistically when a lookup misses.
type Cache struct {
	dir       string
	indexTTL  time.Duration
	now       func() time.Time
	collector telemetry.Collector

	mu      sync.Mutex
	wrapped map[string]struct{}
	index   map[string]indexEntry
}

// Option customizes a Cache at construction time.
type Option func(*Cache) error

// WithIndexTTL sets how long freshness-index hints stay usable. Zero disables
// the index entirely so every lookup scans the directory.
func WithIndexTTL(d time.Duration) Option {
	return func(c *Cache) error {
		if d < 0 {
			return errors.New("index TTL must not be negative")
		}
		c.indexTTL = d
		return nil
	}
}

// WithCollector routes cache telemetry to the provided collector.
func WithCollector(col telemetry.Collector) Option {
	return func(c *Cache) error {
		if col == nil {
			return errors.New("collector is nil")
		}
		c.collector = col
		return nil
	}
}

// WithClock overrides the time source. Entry validity and index freshness are
// both computed against it, which keeps expiry testable without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		c.now = now
		return nil
	}
}

// New opens (and creates if necessary) the cache directory.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{
		dir:       dir,
		indexTTL:  defaultIndexTTL,
		now:       time.Now,
		collector: telemetry.Noop(),
		wrapped:   map[string]struct{}{},
		index:     map[string]indexEntry{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Clear deletes every cache entry whose filename contains component,
// case-insensitively, and returns how many files were removed.
// An empty component matches every entry.
func (c *Cache) Clear(component string) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}

	needle := strings.ToLower(component)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		base := entry.Name()
		if !strings.HasSuffix(base, entrySuffix) {
			continue
		}
		if !strings.Contains(strings.ToLower(base), needle) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, base)); err != nil {
			if !os.IsNotExist(err) {
				logger.WithComponent("fscache").Warnf("failed to remove cache entry %s: %v", base, err)
			}
			continue
		}
		removed++
	}

	c.invalidateIndex()
	logger.WithComponent("fscache").Infof("cleared %d cache entries matching %q", removed, component)
	return removed, nil
}

// claim reserves a function name on this cache; wrapping an already claimed
// name is a configuration error.
func (c *Cache) claim(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.wrapped[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyWrapped, name)
	}
	c.wrapped[name] = struct{}{}
	return nil
}

// lookup finds the newest valid entry for (name, hash), decoding it into out.
// It reports false on a miss: no entry, only expired entries, or a corrupt
// newest entry (which is deleted). Stale files for the pair are deleted on
// the miss path only.
func (c *Cache) lookup(name, hash string, lifetime time.Duration, out any) bool {
	now := c.now()
	pair := name + "_" + hash

	if path, ok := c.freshHint(pair, now, lifetime); ok {
		data, err := os.ReadFile(path)
		if err == nil {
			if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
				c.collector.IncCacheEvent(name, telemetry.CacheHit)
				return true
			}
			logger.WithComponent("fscache").Warnf("deleting corrupt cache entry %s", filepath.Base(path))
			c.removeFile(path)
			c.dropHint(pair)
			c.collector.IncCacheEvent(name, telemetry.CacheCorrupt)
			c.collector.IncCacheEvent(name, telemetry.CacheMiss)
			return false
		}
		// The hinted file is gone; the index is only an accelerator.
		c.dropHint(pair)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		logger.WithComponent("fscache").Warnf("cache scan for %s failed: %v", name, err)
		c.collector.IncCacheEvent(name, telemetry.CacheMiss)
		return false
	}

	var (
		newestPath string
		newestAt   time.Time
		stale      []string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entryName, entryHash, sec, ok := parseFilename(entry.Name())
		if !ok || entryName != name || entryHash != hash {
			continue
		}
		writtenAt := time.Unix(sec, 0)
		path := filepath.Join(c.dir, entry.Name())
		if !writtenAt.Add(lifetime).After(now) {
			stale = append(stale, path)
			continue
		}
		if newestPath == "" || writtenAt.After(newestAt) {
			newestPath = path
			newestAt = writtenAt
		}
	}

	if newestPath != "" {
		data, err := os.ReadFile(newestPath)
		if err == nil {
			if jsonErr := json.Unmarshal(data, out); jsonErr == nil {
				c.setHint(pair, indexEntry{path: newestPath, writtenAt: newestAt, cachedAt: now})
				c.collector.IncCacheEvent(name, telemetry.CacheHit)
				return true
			}
			logger.WithComponent("fscache").Warnf("deleting corrupt cache entry %s", filepath.Base(newestPath))
			c.removeFile(newestPath)
			c.collector.IncCacheEvent(name, telemetry.CacheCorrupt)
		}
		// Unreadable (likely removed between list and open): miss, not error.
	}

	for _, path := range stale {
		c.removeFile(path)
	}
	if len(stale) > 0 {
		c.collector.IncCacheEvent(name, telemetry.CacheExpired)
	}
	c.collector.IncCacheEvent(name, telemetry.CacheMiss)
	return false
}

// store persists value as a new timestamped entry. Failures are logged and
// swallowed: the caller already holds the computed result.
func (c *Cache) store(name, hash string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.WithComponent("fscache").Errorf("cannot encode cache entry for %s: %v", name, err)
		c.collector.IncCacheEvent(name, telemetry.CacheWriteError)
		return
	}

	now := c.now()
	writtenAt := time.Unix(now.Unix(), 0)
	path := filepath.Join(c.dir, buildFilename(name, hash, writtenAt.Unix()))
	if err := c.writeAtomic(path, data); err != nil {
		logger.WithComponent("fscache").Errorf("cache write for %s failed: %v", name, err)
		c.collector.IncCacheEvent(name, telemetry.CacheWriteError)
		return
	}

	c.setHint(name+"_"+hash, indexEntry{path: path, writtenAt: writtenAt, cachedAt: now})
	logger.WithComponent("fscache").Debugf("cached result for %s in %s", name, filepath.Base(path))
}

// writeAtomic writes data via a temp file in the same directory and renames
// it into place, so readers never observe a partial entry.
func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(c.dir, filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}
	return nil
}

func (c *Cache) removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithComponent("fscache").Warnf("failed to remove cache entry %s: %v", filepath.Base(path), err)
	}
}

// freshHint returns the hinted path for pair when the hint itself is within
// the index TTL and the entry it points at is still within lifetime.
func (c *Cache) freshHint(pair string, now time.Time, lifetime time.Duration) (string, bool) {
	if c.indexTTL <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.index[pair]
	if !ok {
		return "", false
	}
	if now.Sub(e.cachedAt) > c.indexTTL {
		return "", false
	}
	if !e.writtenAt.Add(lifetime).After(now) {
		return "", false
	}
	return e.path, true
}

func (c *Cache) setHint(pair string, e indexEntry) {
	if c.indexTTL <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[pair] = e
}

func (c *Cache) dropHint(pair string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.index, pair)
}

// invalidateIndex discards every freshness hint; subsequent lookups scan the
// directory until new hints are built.
func (c *Cache) invalidateIndex() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = map[string]indexEntry{}
}
