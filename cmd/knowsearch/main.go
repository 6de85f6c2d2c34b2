// Command knowsearch indexes a directory tree and serves ranked full-text
// search over it through a small terminal UI, watching the tree afterward
// for changes.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"knowsearch"
)

func main() {
	app := &cli.App{
		Name:      "knowsearch",
		Usage:     "local incremental full-text search over a directory tree",
		ArgsUsage: "<directory>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run exits 1 on a usage error, 2 if the argument isn't a directory, 3 if
// the root path has no filename component to derive an index name from, and
// 0 on clean shutdown.
func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: knowsearch <directory>", 1)
	}
	arg := c.Args().Get(0)

	cwd, err := os.Getwd()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	root := arg
	if !filepath.IsAbs(root) {
		root = filepath.Join(cwd, root)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return cli.Exit(fmt.Sprintf("error: %s is not a directory", arg), 2)
	}

	logger, logFile, err := knowsearch.NewLogger()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logFile.Close()

	indexPath, err := knowsearch.IndexFilename(root, knowsearch.Forward)
	if err != nil {
		return cli.Exit(err.Error(), 3)
	}

	facade := knowsearch.NewFacade(knowsearch.Forward, logger)
	if err := facade.FromDisk(indexPath); err != nil {
		logger.Info("no existing index found, starting fresh", "path", indexPath, "reason", err)
	}

	start := time.Now()
	if err := knowsearch.IngestDirectory(root, facade, logger); err != nil {
		logger.Error("directory ingestion failed", "root", root, "error", err)
	}
	facade.DeleteRemovedFiles()
	if err := facade.StoreWithName(indexPath); err != nil {
		logger.Error("failed to persist index after initial ingest", "error", err)
	}
	logger.Info("initial indexing complete", "root", root, "elapsed_ms", time.Since(start).Milliseconds())

	watcher, err := knowsearch.NewWatcher(root, facade, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer watcher.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		facade.Close()
		logger.Info("shutdown signal received, index flushed")
		os.Exit(0)
	}()

	if err := runTUI(facade, watcher); err != nil {
		logger.Error("tui exited with an error", "error", err)
	}
	facade.Close()
	return nil
}
