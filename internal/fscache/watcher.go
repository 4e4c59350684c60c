package fscache

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/bassista/go_mirror/internal/logger"
)

// StartWatcher drops the freshness index whenever something touches the cache
// directory, so hints cannot outlive entries deleted by another process. The
// caller owns the context: cancel it to stop the goroutine and close the
// watcher cleanly. The index is only an accelerator, so the watcher is
// best-effort: lookups fall back to a directory scan with or without it.
func (c *Cache) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch cache dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Temp files from our own atomic writes have no .json suffix.
				if !strings.HasSuffix(event.Name, entrySuffix) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.WithComponent("fscache").Debugf("cache dir changed (%s), dropping freshness index", event.Op)
					c.invalidateIndex()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("fscache").Warnf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
