package knowsearch

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CHANGE WATCHER: filesystem events → index mutations
// ═══════════════════════════════════════════════════════════════════════════════
// Watcher wraps github.com/fsnotify/fsnotify to watch a directory tree for
// changes. The watcher only advances on demand: Drain never blocks, so the
// caller (the TUI's keystroke loop, or a dedicated driver goroutine)
// controls cadence by deciding how often to call it, rather than reacting to
// events on a background thread.
// ═══════════════════════════════════════════════════════════════════════════════

// Watcher watches a root directory tree and applies incremental updates to
// facade as changes are drained.
type Watcher struct {
	fsw    *fsnotify.Watcher
	root   string
	facade *Facade
	logger *slog.Logger
}

// NewWatcher creates a watcher over root, recursively adding every
// non-dotfile subdirectory.
func NewWatcher(root string, facade *Facade, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{fsw: fsw, root: root, facade: facade, logger: logger}
	if err := w.addTreeRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTreeRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("failed to enumerate path while arming watcher", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Drain processes every filesystem event currently queued, without
// blocking, and returns once the queue is empty. The caller is responsible
// for calling it on whatever cadence it wants.
func (w *Watcher) Drain() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher reported an error", "error", err)
		default:
			return
		}
	}
}

func isDotfilePath(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if isDotfilePath(path) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.handleCreateOrModify(path)
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		w.handleRemove(path)
	}
}

// handleCreateOrModify reindexes path if needed, then checkpoints the whole
// index to disk.
func (w *Watcher) handleCreateOrModify(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Typical for a just-deleted path racing a stale Write event; not an
		// invariant violation, just nothing left to index.
		return
	}
	if info.IsDir() {
		if err := w.addTreeRecursive(path); err != nil {
			w.logger.Warn("failed to arm watcher on new directory", "path", path, "error", err)
		}
		return
	}

	needsReindex, err := w.facade.NeedsReindex(path)
	if err != nil {
		w.logger.Warn("needs_reindex check failed", "path", path, "error", err)
		return
	}
	if !needsReindex {
		return
	}

	chars, err := ContentsByFileType(path)
	if err != nil {
		w.logger.Warn("parse failed", "path", path, "error", err)
		return
	}
	if chars == nil {
		return
	}

	if err := w.facade.AddDocument(path, chars); err != nil {
		w.logger.Warn("add_document failed", "path", path, "error", err)
		return
	}
	if err := w.facade.Store(); err != nil {
		w.logger.Warn("checkpoint store failed", "path", path, "error", err)
	}
}

// handleRemove handles both a removed file and a removed directory in one
// pass: the exact path is retracted (a no-op if it was never indexed as a
// file), and every indexed path nested under it is swept too, since by the
// time the event arrives the filesystem entry is already gone and its
// former kind can't be re-queried.
func (w *Watcher) handleRemove(path string) {
	w.facade.RemoveDocument(path)

	prefix := path + string(filepath.Separator)
	for _, nested := range w.facade.PathsWithPrefix(prefix) {
		w.facade.RemoveDocument(nested)
	}

	if err := w.facade.Store(); err != nil {
		w.logger.Warn("checkpoint store failed", "path", path, "error", err)
	}
}
