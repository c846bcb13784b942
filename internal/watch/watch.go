// Package watch hot-reloads the filter engine when a configured filter list
// file changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"urlfilter/internal/logging"
)

const debounce = 200 * time.Millisecond

// ReloadFunc performs one engine reload. It returns an error describing why
// the reload was skipped; the watcher logs it and keeps watching.
type ReloadFunc func() error

// Watcher watches the paths derived from configured filter list sources
// (see watchDirs) and triggers a reload on any create/write/remove/rename
// event.
type Watcher struct {
	fsw    *fsnotify.Watcher
	reload ReloadFunc
	logger *logging.ComponentLogger
}

// New creates a Watcher over the path derived from each pattern in listPaths
// (the directory portion before the first wildcard segment, or the path
// itself when the pattern has no wildcard).
func New(listPaths []string, reload ReloadFunc, logger *logging.ComponentLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := watchDirs(listPaths)
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	return &Watcher{fsw: fsw, reload: reload, logger: logger}, nil
}

// watchDirs returns the deduplicated set of literal paths that should be
// watched for each pattern, taking the path prefix before the first
// component containing a glob metacharacter. A pattern with no
// metacharacter is returned unchanged, so a plain file path is watched as
// that file rather than its directory.
func watchDirs(listPaths []string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, pattern := range listPaths {
		dir := literalPrefixDir(pattern)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

func literalPrefixDir(pattern string) string {
	dir := pattern
	for containsMeta(dir) {
		dir = filepath.Dir(dir)
	}
	if dir == "" {
		dir = "."
	}
	return dir
}

func containsMeta(s string) bool {
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '{', '}':
			return true
		}
	}
	return false
}

// Run blocks, debouncing reload-triggering events, until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(debounce)

		case <-pending:
			pending = nil
			if err := w.reload(); err != nil {
				w.logger.Warnf("reload failed, keeping previous rule set: %v", err)
			} else {
				w.logger.Infof("reloaded filter lists")
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("watcher error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
