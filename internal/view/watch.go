package view

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads r whenever an .html file in dir changes, until ctx ends.
// The returned channel closes when the watcher goroutine exits.
func Watch(ctx context.Context, r *Renderer, dir string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.EqualFold(filepath.Ext(ev.Name), ".html") {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				pending = time.After(reloadDebounce)
			case <-pending:
				pending = nil
				if err := r.Reload(); err != nil {
					slog.Warn("Template reload failed, keeping previous templates", "error", err)
					continue
				}
				slog.Info("Templates reloaded", "dir", dir)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Template watcher error", "error", err)
			}
		}
	}()
	return done, nil
}
