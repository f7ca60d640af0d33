package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"msfcomp/internal/scan"
	"msfcomp/internal/store"
	"msfcomp/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestAppend bool
	watchInitial bool
)

// ingestCmd stores record files
var ingestCmd = &cobra.Command{
	Use:   "ingest [files or dirs...]",
	Short: "Parse record files and store them in SQLite",
	Long: `Each file becomes a batch in the record store. By default a file's
earlier batches are replaced so the store mirrors the file's current content;
use --append to keep history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

// watchCmd keeps the store in sync with directories
var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Watch directories and re-ingest record files when they change",
	Long: `Watches the given directories (default: workspace) and re-ingests any
record file that is created or modified. Removed files are dropped from the
store. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestAppend, "append", false, "Keep earlier batches for the same source")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "Ingest existing files before watching")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	paths, err := scan.ExpandPaths(args, cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(databasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	s := scan.New(cfg)
	out := cmd.OutOrStdout()
	for _, p := range paths {
		b, err := ingestFile(ctx, st, s, p, !ingestAppend)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s  valid=%d invalid=%d\n", b.ID, b.Source, b.Valid, b.Invalid)
	}
	return nil
}

// ingestFile scans path and stores it as one batch.
func ingestFile(ctx context.Context, st *store.Store, s *scan.Scanner, path string, replace bool) (store.Batch, error) {
	results, _, err := s.Collect(ctx, path)
	if err != nil {
		return store.Batch{}, err
	}

	var b store.Batch
	if replace {
		b, err = st.ReplaceSource(ctx, path, results)
	} else {
		b, err = st.SaveBatch(ctx, path, results)
	}
	if err != nil {
		return store.Batch{}, fmt.Errorf("failed to store %s: %w", path, err)
	}

	logger.Info("Ingested file",
		zap.String("path", path),
		zap.String("batch", b.ID),
		zap.Int("valid", b.Valid),
		zap.Int("invalid", b.Invalid))
	return b, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{workspace}
	}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(databasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	s := scan.New(cfg)

	if watchInitial {
		paths, err := scan.ExpandPaths(dirs, cfg)
		if err != nil {
			return err
		}
		for _, p := range paths {
			if _, err := ingestFile(ctx, st, s, p, true); err != nil {
				logger.Warn("Initial ingest failed", zap.String("path", p), zap.Error(err))
			}
		}
	}

	w, err := watch.New(dirs, cfg.HasRecordExtension, cfg.GetDebounce(), syncHandler(st, s))
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	logger.Info("Watching for changes", zap.Strings("dirs", dirs))

	<-ctx.Done()
	w.Stop()

	stats := w.Stats()
	logger.Info("Watcher stopped",
		zap.Int("handled", stats.Handled),
		zap.Int("errors", stats.Errors))
	return nil
}

// syncHandler mirrors file changes into the store.
func syncHandler(st *store.Store, s *scan.Scanner) watch.Handler {
	return func(ctx context.Context, path string, removed bool) error {
		if removed {
			n, err := st.DeleteSource(ctx, path)
			if err != nil {
				return err
			}
			logger.Info("Dropped removed file", zap.String("path", path), zap.Int("batches", n))
			return nil
		}
		_, err := ingestFile(ctx, st, s, path, true)
		return err
	}
}
