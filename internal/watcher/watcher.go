// Package watcher reports changed article files in a directory.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler is called with the base name of a changed article file.
type Handler func(name string)

// Option configures Watch.
type Option func(*options)

type options struct {
	onReady func()
}

// OnReady registers fn to run once the directory is watched, before any
// change is delivered. It runs on the watching goroutine, so it never
// overlaps a Handler call. Changes made while it runs are delivered after.
func OnReady(fn func()) Option {
	return func(o *options) {
		o.onReady = fn
	}
}

// Watch watches dir (not its subdirectories) and calls fn for every created
// or written file with extension ext once it has been quiet for debounce.
// Calls to fn are sequential and happen on the watching goroutine, so fn
// never runs concurrently with itself. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, dir, ext string, debounce time.Duration, logger *slog.Logger, fn Handler, opts ...Option) error {
	var o options
	for _, opt := range opts {
		opt(&o)
	}


	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	if o.onReady != nil {
		o.onReady()
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(tickInterval(debounce))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case now := <-ticker.C:
			for _, name := range due(pending, now, debounce) {
				delete(pending, name)
				fn(name)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(ev.Name) != filepath.Clean(dir) || filepath.Ext(ev.Name) != ext {
				continue
			}
			name := filepath.Base(ev.Name)
			pending[name] = time.Now()
			logger.Debug("watcher: change", slog.String("file", name), slog.String("op", ev.Op.String()))

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// due returns the pending names whose last event is older than debounce, sorted.
func due(pending map[string]time.Time, now time.Time, debounce time.Duration) []string {
	var out []string
	for name, last := range pending {
		if now.Sub(last) >= debounce {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func tickInterval(debounce time.Duration) time.Duration {
	d := debounce / 4
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}
