package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/internal/config"
	"github.com/omarfoud/pdf-text-searcher/internal/index"
	"github.com/omarfoud/pdf-text-searcher/internal/output"
	"github.com/omarfoud/pdf-text-searcher/internal/scanner"
	"github.com/omarfoud/pdf-text-searcher/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index current as documents change",
		Long: `Index the collection, then watch it and re-index after each burst of
changes. Editing .doctext.yaml reloads the configuration.

Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, collectionDir)
		},
	}
	return cmd
}

// watchSession holds the state a configuration reload replaces.
type watchSession struct {
	dir     string
	cfg     atomic.Pointer[config.Config]
	scanner atomic.Pointer[scanner.Scanner]
}

func (s *watchSession) collect(ctx context.Context) (index.Collection, error) {
	return s.scanner.Load().Collection(ctx)
}

func (s *watchSession) ignore(relPath string, isDir bool) bool {
	sc := s.scanner.Load()
	if isDir {
		return sc.ExcludedDir(relPath)
	}
	return sc.Excluded(relPath)
}

// reload re-reads the configuration. Settings that shape the index itself
// (stemmer, index location) need a restart.
func (s *watchSession) reload(context.Context) error {
	cfg, err := loadConfig(s.dir)
	if err != nil {
		return err
	}
	sc, err := newScanner(cfg)
	if err != nil {
		return err
	}
	s.cfg.Store(cfg)
	s.scanner.Store(sc)
	slog.Info("watch_config_reloaded", slog.String("source_dir", cfg.Source.Dir))
	return nil
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	out := output.New(cmd.OutOrStdout())

	session := &watchSession{dir: dir}
	if err := session.reload(ctx); err != nil {
		return err
	}
	cfg := session.cfg.Load()

	st, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ix, err := index.New(st,
		index.WithLockFile(cfg.LockPath()),
		index.WithWorkers(cfg.Index.Workers))
	if err != nil {
		return err
	}

	coll, err := session.collect(ctx)
	if err != nil {
		return err
	}
	report, err := ix.IndexAll(ctx, coll, index.Options{Prune: !cfg.Index.KeepRemoved})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	printReport(out, report)

	w, err := watcher.NewHybridWatcher(watcher.Options{
		DebounceWindow: cfg.WatchDebounce(),
		Ignore:         session.ignore,
		IndexDir:       indexDirName(cfg),
		ConfigFile:     config.ProjectConfigName,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(ctx, cfg.Source.Dir); err != nil {
		return err
	}
	out.Successf("Watching %s (%s)", cfg.Source.Dir, w.WatcherType())

	go func() {
		for err := range w.Errors() {
			out.Warningf("watch error: %v", err)
		}
	}()

	reindexer := watcher.NewReindexer(ix, session.collect, watcher.ReindexOptions{
		Prune:          !cfg.Index.KeepRemoved,
		OnConfigChange: session.reload,
		OnPass: func(report *index.Report, err error) {
			switch {
			case err == nil:
				printReport(out, report)
			case errors.Is(err, context.Canceled):
			default:
				out.Errorf("re-index failed: %v", err)
			}
		},
	})

	err = reindexer.Run(ctx, w.Events())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printReport(out *output.Writer, r *index.Report) {
	out.Successf("%d indexed, %d unchanged, %d removed, %d failed in %s",
		len(r.Succeeded), len(r.Skipped), len(r.Removed), len(r.Failed), r.Duration.Round(time.Millisecond))
	for _, id := range r.FailedIDs() {
		out.Warningf("%s: %v", id, r.Failed[id])
	}
}
