// Package watch keeps the index in sync with a set of directories.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"filesearch/internal/domain"
)

// Indexer is the part of the service the watcher drives.
type Indexer interface {
	Index(ctx context.Context, directories []string, exts []string) (domain.IngestReport, error)
	Remove(ctx context.Context, prefix string) (int, error)
}

// Watcher re-runs incremental indexing after file changes settle, and
// removes index entries for directories that disappear.
type Watcher struct {
	idx      Indexer
	roots    []string
	exts     []string
	debounce time.Duration
	log      *slog.Logger

	fw      *fsnotify.Watcher
	watched map[string]bool
}

// New watches roots (already resolved, absolute) recursively.
func New(idx Indexer, roots []string, exts []string, debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		idx:      idx,
		roots:    roots,
		exts:     exts,
		debounce: debounce,
		log:      log,
		fw:       fw,
		watched:  make(map[string]bool),
	}
	for _, root := range roots {
		w.addTree(root)
	}
	return w, nil
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || w.watched[p] {
			return nil
		}
		if err := w.fw.Add(p); err != nil {
			w.log.Warn("Failed to watch directory", "dir", p, "error", err)
			return nil
		}
		w.watched[p] = true
		return nil
	})
}

// Run indexes once, then follows changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	w.reindex(ctx)
	w.log.Info("File watcher started", "paths", w.roots)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.log.Info("File watcher stopped")
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.handle(ctx, event) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			w.reindex(ctx)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("File watcher error", "error", err)
		}
	}
}

// handle reacts to one event and reports whether a reindex should be scheduled.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) bool {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(event.Name)
		}
		return true
	case event.Op&fsnotify.Write != 0:
		return true
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if !w.watched[event.Name] {
			return false
		}
		prefix := event.Name + string(filepath.Separator)
		w.forget(event.Name, prefix)
		n, err := w.idx.Remove(ctx, prefix)
		if err != nil {
			w.log.Error("Failed to remove directory from index", "dir", event.Name, "error", err)
			return false
		}
		w.log.Info("Directory removed", "dir", event.Name, "count", n)
	}
	return false
}

// forget drops dir and every watched directory below it, so a recreated
// tree is watched again by addTree.
func (w *Watcher) forget(dir, prefix string) {
	for p := range w.watched {
		if p == dir || strings.HasPrefix(p, prefix) {
			delete(w.watched, p)
			_ = w.fw.Remove(p)
		}
	}
}

func (w *Watcher) reindex(ctx context.Context) {
	rep, err := w.idx.Index(ctx, w.roots, w.exts)
	if err != nil {
		w.log.Warn("Reindex interrupted", "error", err)
		return
	}
	if rep.Committed > 0 || rep.Failed > 0 {
		w.log.Info("Reindexed", "committed", rep.Committed, "failed", rep.Failed)
	}
}
