// Package watch reruns a function when any of a set of files changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay coalesces the bursts of events editors produce on save.
const DefaultDelay = 100 * time.Millisecond

// Watcher runs Run once and again after every change to Files, until the
// context is done. Errors returned by Run are logged and do not stop the
// watch.
type Watcher struct {
	Files  []string
	Run    func(context.Context) error
	Delay  time.Duration
	Logger *slog.Logger
}

// Watch blocks until ctx is done or the file watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Directories are watched since editors often replace files by rename.
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range w.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := fw.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	delay := w.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			w.run(ctx)
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger().Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(delay)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	start := time.Now()
	if err := w.Run(ctx); err != nil {
		w.logger().Error("run failed", "error", err)
		return
	}
	w.logger().Info("run succeeded", "elapsed", time.Since(start))
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}
