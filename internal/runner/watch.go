package runner

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs the annotation pipeline on Python files as they change.
// Rapid save bursts from editors are debounced into one transform.
type Watcher struct {
	runner      *Runner
	debounceDur time.Duration
	logger      *zap.Logger
}

// NewWatcher wraps a runner for watch mode.
func NewWatcher(r *Runner) *Watcher {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		runner:      r,
		debounceDur: 500 * time.Millisecond,
		logger:      logger,
	}
}

// Watch blocks, processing changes under the given paths until the context
// is canceled. Directories are watched recursively at their current depth;
// new subdirectories are added as they appear.
func (w *Watcher) Watch(ctx context.Context, paths []string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, path := range paths {
		if err := addRecursive(fw, path); err != nil {
			return err
		}
	}
	w.logger.Info("watching for changes", zap.Strings("paths", paths))

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounceDur)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(fw, event.Name)
					continue
				}
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !IsPythonFile(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounceDur)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			changed := Fold(pending)
			pending = make(map[string]bool)
			if len(changed) == 0 {
				continue
			}
			w.logger.Debug("processing changed files", zap.Strings("files", changed))
			if _, err := w.runner.Run(ctx, changed); err != nil && err != ErrFilesFailed {
				return err
			}
		}
	}
}

// Fold turns the pending-change set into a sorted file list, dropping
// files that vanished between the event and the debounce firing.
func Fold(pending map[string]bool) []string {
	var files []string
	for path := range pending {
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fw.Add(filepath.Dir(root))
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name := info.Name(); name != "." && len(name) > 1 && name[0] == '.' {
				return filepath.SkipDir
			}
			return fw.Add(path)
		}
		return nil
	})
}
