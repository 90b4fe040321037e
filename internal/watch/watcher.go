// Package watch re-runs a callback when files under a content root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitekit/internal/content"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
)

// DefaultDebounce coalesces editor save bursts into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is invoked after a quiet period following one or more changes.
type ChangeFunc func(ctx context.Context) error

// Watcher observes the content root and its collection directories.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange ChangeFunc
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New creates a watcher for root. A non-positive debounce uses DefaultDebounce.
func New(root string, debounce time.Duration, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watch: nil change callback")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve content root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{root: abs, debounce: debounce, onChange: onChange, logger: logger, fsw: fsw}, nil
}

// Run watches until ctx is done. Callback errors are logged and do not stop
// the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()
	waiting, err := w.start()
	if err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if waiting {
				if !w.rootAppeared(ev) {
					continue
				}
				waiting = false
			} else if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("Content change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			if ev.Has(fsnotify.Create) {
				w.maybeAddDir(ev.Name)
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Content watcher error", logfields.Error(err))
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.onChange(ctx); err != nil {
				w.logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

// start watches the content tree. A missing root is valid content, so the
// parent directory is watched until the root is created.
func (w *Watcher) start() (waiting bool, err error) {
	if _, err := os.Stat(w.root); errors.Is(err, os.ErrNotExist) {
		parent := filepath.Dir(w.root)
		if err := w.fsw.Add(parent); err != nil {
			return false, fmt.Errorf("failed to watch parent of missing content root %s: %w", w.root, err)
		}
		w.logger.Info("Content root does not exist yet, waiting for it", logfields.Path(w.root))
		return true, nil
	}
	if err := w.addTree(); err != nil {
		return false, err
	}
	w.logger.Info("Watching content", logfields.Path(w.root), slog.Int("dirs", len(w.fsw.WatchList())))
	return false, nil
}

// rootAppeared switches from the parent directory to the content tree once
// the root is created.
func (w *Watcher) rootAppeared(ev fsnotify.Event) bool {
	if ev.Name != w.root || !ev.Has(fsnotify.Create) {
		return false
	}
	if err := w.addTree(); err != nil {
		w.logger.Error("Failed to watch content root", logfields.Path(w.root), logfields.Error(err))
		return false
	}
	if err := w.fsw.Remove(filepath.Dir(w.root)); err != nil {
		w.logger.Debug("Failed to stop watching parent directory", logfields.Error(err))
	}
	w.logger.Info("Content root created", logfields.Path(w.root))
	return true
}

// addTree watches the root and every collection directory below it.
func (w *Watcher) addTree() error {
	if err := w.fsw.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch content root %s: %w", w.root, err)
	}
	dirs, err := content.ListCollectionDirectories(w.root)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d.Path); err != nil {
			return fmt.Errorf("failed to watch collection %s: %w", d.Name, err)
		}
	}
	return nil
}

// maybeAddDir starts watching a collection directory created at runtime.
func (w *Watcher) maybeAddDir(path string) {
	if filepath.Dir(path) != w.root || content.IsReservedName(filepath.Base(path)) {
		return
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("Failed to watch new collection", logfields.Path(path), logfields.Error(err))
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	// Metadata documents start with "_" and must still trigger a rescan.
	return !strings.HasPrefix(base, ".")
}
