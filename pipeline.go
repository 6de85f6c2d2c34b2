package knowsearch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INGESTION PIPELINE: parallel directory walk, reindex gating, batched apply
// ═══════════════════════════════════════════════════════════════════════════════
// IngestDirectory recursively walks root, skipping dotfiles and dot-dirs,
// deciding per file whether it needs (re)indexing, parsing it via the parser
// adapter, and finally applying every parsed (path, chars) pair to the
// Facade in a small number of batched writes instead of one call per file.
// The walk fans out across directories and files with
// golang.org/x/sync/errgroup rather than a hand-rolled WaitGroup so the
// concurrency cap (PipelineConfig.MaxConcurrency) is just a SetLimit call.
// ═══════════════════════════════════════════════════════════════════════════════

// PipelineConfig controls how aggressively IngestDirectoryWithConfig walks a
// directory and how it chunks the result before handing it to the Facade.
type PipelineConfig struct {
	// MaxConcurrency caps the number of directory/file goroutines running at
	// once. Zero or negative means unlimited.
	MaxConcurrency int
	// BatchSize caps how many parsed documents go into a single
	// AddDocumentBatched call. Zero or negative means one batch for the
	// entire walk.
	BatchSize int
}

// DefaultPipelineConfig returns the configuration IngestDirectory uses: an
// unlimited walk and a single batch covering everything collected.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{MaxConcurrency: 0, BatchSize: 0}
}

// IngestDirectory walks root with DefaultPipelineConfig and adds every file
// needing (re)indexing to facade.
func IngestDirectory(root string, facade *Facade, logger *slog.Logger) error {
	return IngestDirectoryWithConfig(root, facade, logger, DefaultPipelineConfig())
}

// IngestDirectoryWithConfig walks root in parallel and adds every file
// needing (re)indexing to facade, according to cfg. Parse failures and
// directory-read failures are logged and never abort the walk.
func IngestDirectoryWithConfig(root string, facade *Facade, logger *slog.Logger, cfg PipelineConfig) error {
	if logger == nil {
		logger = slog.Default()
	}

	var mu sync.Mutex
	var collected []PathContent

	g := new(errgroup.Group)
	if cfg.MaxConcurrency > 0 {
		g.SetLimit(cfg.MaxConcurrency)
	}
	walkParallel(g, root, facade, logger, &mu, &collected)
	_ = g.Wait() // walkParallel/processFile never return non-nil errors; failures are logged in place

	return applyBatched(facade, collected, cfg.BatchSize)
}

func applyBatched(facade *Facade, collected []PathContent, batchSize int) error {
	if len(collected) == 0 {
		return nil
	}
	if batchSize <= 0 {
		return facade.AddDocumentBatched(collected)
	}
	for start := 0; start < len(collected); start += batchSize {
		end := start + batchSize
		if end > len(collected) {
			end = len(collected)
		}
		if err := facade.AddDocumentBatched(collected[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func walkParallel(g *errgroup.Group, dir string, facade *Facade, logger *slog.Logger, mu *sync.Mutex, collected *[]PathContent) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("failed to enumerate directory", "path", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, entry.Name())

		var task func() error
		if entry.IsDir() {
			task = func() error {
				walkParallel(g, full, facade, logger, mu, collected)
				return nil
			}
		} else {
			task = func() error {
				processFile(full, facade, logger, mu, collected)
				return nil
			}
		}

		// Under a concurrency limit every slot may be held by a walker that is
		// itself spawning, so a task that finds no free slot runs inline.
		if !g.TryGo(task) {
			_ = task()
		}
	}
}

func processFile(path string, facade *Facade, logger *slog.Logger, mu *sync.Mutex, collected *[]PathContent) {
	needsReindex, err := facade.NeedsReindex(path)
	if err != nil {
		logger.Warn("needs_reindex check failed", "path", path, "error", err)
		return
	}
	if !needsReindex {
		return
	}

	chars, err := ContentsByFileType(path)
	if err != nil {
		logger.Warn("parse failed", "path", path, "error", err)
		return
	}
	if chars == nil {
		return
	}

	mu.Lock()
	*collected = append(*collected, PathContent{Path: path, Chars: chars})
	mu.Unlock()
}
