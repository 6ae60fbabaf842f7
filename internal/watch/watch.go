// Package watch turns filesystem events into scan triggers. Events are
// coalesced and funneled into the library's single active-scan path, so
// watch-driven and manual scans cannot race each other.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"

	"github.com/llehouerou/songbook/internal/library"
)

type Watcher struct {
	lib      *library.Library
	opts     library.ScanOptions
	interval time.Duration
	log      *slog.Logger
}

func New(lib *library.Library, opts library.ScanOptions, debounceInterval time.Duration) *Watcher {
	if debounceInterval <= 0 {
		debounceInterval = 500 * time.Millisecond
	}
	return &Watcher{lib: lib, opts: opts, interval: debounceInterval, log: slog.Default()}
}

// Run watches the enabled roots until ctx is cancelled. Each coalesced
// burst of relevant events triggers one merged scan.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	roots, err := w.lib.WatchRoots(ctx)
	if err != nil {
		return err
	}
	for _, root := range roots {
		if err := addRecursive(fsw, root); err != nil {
			w.log.Warn("watch root failed", "path", root, "error", err)
		}
	}

	debounced := debounce.New(w.interval)
	trigger := func() {
		w.lib.TriggerScan(ctx, w.opts)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watches.
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(fsw, ev.Name)
				}
			}
			if relevant(ev) {
				debounced(trigger)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// relevant filters events down to the ones that can change scan
// results: .abc files appearing, changing or vanishing, and directory
// renames/removals (which take files with them).
func relevant(ev fsnotify.Event) bool {
	if ev.Op.Has(fsnotify.Chmod) && ev.Op&^fsnotify.Chmod == 0 {
		return false
	}
	if strings.EqualFold(filepath.Ext(ev.Name), ".abc") {
		return true
	}
	// Directory events carry no extension; removals and renames of
	// directories matter, stat no longer works for removed names.
	return ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Create)
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable subtrees
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
