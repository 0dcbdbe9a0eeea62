package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor or config agent
// produces when rewriting a document.
const DefaultDebounce = 500 * time.Millisecond

// ReconcilePath loads the documents at path and runs one pass. A missing
// path is logged and skipped; a path that fails to load skips the pass so a
// corrupt document never reads as "everything withdrawn".
func (r *Reconciler) ReconcilePath(ctx context.Context, path string) (Summary, error) {
	docs, err := LoadDocuments(path)
	if errors.Is(err, ErrNoDocuments) {
		r.log.Warnf("Config path %s does not exist, skipping reconciliation", path)
		return Summary{}, nil
	}
	if err != nil {
		return Summary{}, err
	}

	s := r.Reconcile(ctx, docs)
	if r.MetricsFile != "" && r.metrics != nil {
		if err := r.metrics.WriteFile(r.MetricsFile); err != nil {
			r.log.WithError(err).Warnf("Could not write metrics to %s", r.MetricsFile)
		}
	}
	return s, nil
}

// WatchOptions tunes Watch.
type WatchOptions struct {
	// Interval re-runs the pass periodically. Zero disables the timer.
	Interval time.Duration

	// Debounce delays a pass after a change event. Defaults to
	// DefaultDebounce.
	Debounce time.Duration
}

// Watch runs a pass immediately, then again whenever the documents at path
// change and on every Interval tick, until ctx is cancelled. Passes run on
// the calling goroutine, one at a time.
func (r *Reconciler) Watch(ctx context.Context, path string, opts WatchOptions) error {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir, match := watchTarget(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.log.Debugf("Watching %s for desired-state changes", dir)

	pass := func() {
		if _, err := r.ReconcilePath(ctx, path); err != nil {
			r.log.WithError(err).Warn("Skipping reconciliation pass")
		}
	}
	pass()

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) || !match(event.Name) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.WithError(err).Warn("Document watcher error")

		case <-timer.C:
			pass()

		case <-tick:
			pass()
		}
	}
}

// watchTarget picks the directory to watch and a filter for event paths.
// A single file is watched through its parent so atomic replacements are
// seen.
func watchTarget(path string) (string, func(string) bool) {
	clean := filepath.Clean(path)
	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return clean, func(name string) bool {
			return strings.HasSuffix(name, ".json")
		}
	}
	return filepath.Dir(clean), func(name string) bool {
		return filepath.Clean(name) == clean
	}
}
