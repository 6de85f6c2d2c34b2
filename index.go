package knowsearch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX FACADE: one capability set over either backend
// ═══════════════════════════════════════════════════════════════════════════════
// Facade presents a single operation set (add/remove/reindex, three search
// flavors, persistence, get-documents, delete-removed, reset, batched-add)
// over whichever concrete model (*ForwardIndex or *InvertedIndex) is
// active, and owns the single reader/writer lock that serializes access:
// parsing happens outside the lock (pipeline.go, watcher.go), while
// add/remove/delete-removed/store run inside it.
// ═══════════════════════════════════════════════════════════════════════════════

// Backend is the operation set both models implement.
type Backend interface {
	AddDocument(path string, chars []rune) error
	RemoveDocument(path string)
	NeedsReindex(path string) (bool, error)
	SearchSimple(query []rune) []ScoredPath
	SearchSingularExact(query []rune) ([]ScoredPath, bool)
	SearchPhrase(query []rune) ([]ScoredPath, bool)
	DeleteRemovedFiles()
	Reset()
	AddDocumentBatched(batch []PathContent) error
}

// BackendKind discriminates which concrete model a Facade wraps, needed to
// pick the right persistence codec (JSON for forward, binary+zstd for
// inverted) since Backend itself carries no format information.
type BackendKind int

const (
	// Forward selects the per-document model (supports phrase/exact search).
	Forward BackendKind = iota
	// Inverted selects the per-term model (simple search only).
	Inverted
)

func (k BackendKind) String() string {
	if k == Inverted {
		return "inverted"
	}
	return "forward"
}

var (
	// ErrNoPersistedPath is returned by Store when no path has been
	// established via StoreWithName or FromDisk.
	ErrNoPersistedPath = errors.New("knowsearch: no persisted path set")
	// ErrBackendKindMismatch is returned by FromDisk when the Facade's kind
	// is neither Forward nor Inverted. An artifact in the other backend's
	// format is not recognized as such; FromDisk returns its decode error.
	ErrBackendKindMismatch = errors.New("knowsearch: persisted index kind does not match active backend")
)

// Facade is the single entry point callers (the pipeline, the watcher, the
// CLI/TUI) use to interact with the active index.
type Facade struct {
	mu            sync.RWMutex
	backend       Backend
	kind          BackendKind
	persistedPath string
	logger        *slog.Logger
}

// NewFacade returns a Facade wrapping a freshly created backend of kind.
func NewFacade(kind BackendKind, logger *slog.Logger) *Facade {
	var backend Backend
	if kind == Inverted {
		backend = NewInvertedIndex()
	} else {
		backend = NewForwardIndex()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{backend: backend, kind: kind, logger: logger}
}

// Kind reports which backend is active.
func (f *Facade) Kind() BackendKind {
	return f.kind
}

// AddDocument inserts or re-inserts path under exclusive access.
func (f *Facade) AddDocument(path string, chars []rune) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.AddDocument(path, chars)
}

// RemoveDocument retracts path under exclusive access.
func (f *Facade) RemoveDocument(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend.RemoveDocument(path)
}

// AddDocumentBatched inserts every pair in batch under a single lock
// acquisition, so a multi-file ingest pays the locking cost once instead of
// once per file.
func (f *Facade) AddDocumentBatched(batch []PathContent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backend.AddDocumentBatched(batch)
}

// NeedsReindex is a read-only query.
func (f *Facade) NeedsReindex(path string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.NeedsReindex(path)
}

// SearchSimple ranks the active index against query.
func (f *Facade) SearchSimple(query []rune) []ScoredPath {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.backend.SearchSimple(query)
}

// SearchSingularExact falls back to SearchSimple when the active backend
// doesn't support it (always true for the inverted model).
func (f *Facade) SearchSingularExact(query []rune) []ScoredPath {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if results, ok := f.backend.SearchSingularExact(query); ok {
		return results
	}
	return f.backend.SearchSimple(query)
}

// SearchPhrase falls back to SearchSimple when unsupported.
func (f *Facade) SearchPhrase(query []rune) []ScoredPath {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if results, ok := f.backend.SearchPhrase(query); ok {
		return results
	}
	return f.backend.SearchSimple(query)
}

// DeleteRemovedFiles scans all stored paths and drops those whose backing
// file is gone. Synchronous read-then-write, run under exclusive access.
func (f *Facade) DeleteRemovedFiles() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend.DeleteRemovedFiles()
}

// Reset discards all indexed state but keeps the backend kind and
// persisted path.
func (f *Facade) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backend.Reset()
}

// GetDocuments is meaningful only on the forward backend; ok is false for
// an inverted Facade.
func (f *Facade) GetDocuments() (docs map[string]*Document, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fwd, ok := f.backend.(*ForwardIndex)
	if !ok {
		return nil, false
	}
	return fwd.GetDocuments(), true
}

// PathsWithPrefix returns every indexed path with the given prefix,
// regardless of backend. Used by the watcher to sweep documents nested
// under a removed directory.
func (f *Facade) PathsWithPrefix(prefix string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var paths []string
	switch backend := f.backend.(type) {
	case *ForwardIndex:
		for p := range backend.GetDocuments() {
			if strings.HasPrefix(p, prefix) {
				paths = append(paths, p)
			}
		}
	case *InvertedIndex:
		for _, p := range backend.Paths() {
			if strings.HasPrefix(p, prefix) {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// PersistedPath returns the path store()/from_disk() last established, or
// "" if none.
func (f *Facade) PersistedPath() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.persistedPath
}

// Store serializes the active model to its previously established path.
func (f *Facade) Store() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistedPath == "" {
		return ErrNoPersistedPath
	}
	return f.storeLocked(f.persistedPath)
}

// StoreWithName serializes the active model to path and remembers it as the
// persisted path for future Store calls.
func (f *Facade) StoreWithName(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.storeLocked(path); err != nil {
		return err
	}
	f.persistedPath = path
	return nil
}

func (f *Facade) storeLocked(path string) error {
	switch backend := f.backend.(type) {
	case *ForwardIndex:
		return saveForward(backend, path)
	case *InvertedIndex:
		return saveInverted(backend, path)
	default:
		return fmt.Errorf("knowsearch: unknown backend type %T", backend)
	}
}

// FromDisk replaces the active backend's content with what's stored at
// path. The artifact's format must match the Facade's configured kind. The
// in-memory persisted-path field is rebound to path.
func (f *Facade) FromDisk(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.kind {
	case Forward:
		loaded, err := loadForward(path)
		if err != nil {
			return err
		}
		f.backend = loaded
	case Inverted:
		loaded, err := loadInverted(path)
		if err != nil {
			return err
		}
		f.backend = loaded
	default:
		return ErrBackendKindMismatch
	}
	f.persistedPath = path
	return nil
}

// Close flushes the active index to its persisted path, if any, logging
// (but not returning) any error, since shutdown must proceed regardless.
func (f *Facade) Close() {
	f.mu.Lock()
	path := f.persistedPath
	f.mu.Unlock()
	if path == "" {
		return
	}
	if err := f.StoreWithName(path); err != nil {
		f.logger.Error("failed to flush index on shutdown", "path", path, "error", err)
	}
}
