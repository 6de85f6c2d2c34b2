package knowsearch

import (
	"log/slog"
	"os"
)

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGING: ambient structured logging
// ═══════════════════════════════════════════════════════════════════════════════
// Every component takes a *slog.Logger rather than reaching for the bare
// "log" package, so failures during a parallel walk or a watcher drain carry
// structured fields (path, error) instead of an unstructured string.
// ═══════════════════════════════════════════════════════════════════════════════

// LogFileName is the log file created in the working directory.
const LogFileName = "knowledge_search.log"

// NewLogger opens LogFileName in the working directory (creating or
// appending to it) and returns a text-handler slog.Logger at INFO level and
// above. The caller owns the returned *os.File and should close it at
// shutdown.
func NewLogger() (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(LogFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler), f, nil
}
