package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/internal/index"
	"github.com/omarfoud/pdf-text-searcher/internal/output"
	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

type indexOptions struct {
	force bool
	noTUI bool
	// prune is nil when the flag was not given; index.keep_removed decides.
	prune *bool
}

func newIndexCmd() *cobra.Command {
	var (
		opts  indexOptions
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the documents in the collection",
		Long: `Index every document under the collection root.

Unchanged documents are skipped by content hash. Documents whose files
were removed are purged unless index.keep_removed is set. A document that
cannot be read is reported and the run continues.

Press Ctrl+C to stop; documents indexed so far are kept.

Examples:
  doctext index
  doctext index -C ~/papers --no-tui
  doctext index --force
  doctext index --prune=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("prune") {
				opts.prune = &prune
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			_, err := runIndex(ctx, cmd, collectionDir, opts)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Discard the index and rebuild it from scratch")
	cmd.Flags().BoolVar(&prune, "prune", true, "Purge documents whose files were removed (default !index.keep_removed)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Plain progress output instead of the interactive display")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, dir string, opts indexOptions) (*index.Report, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg, opts.force)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	if opts.force {
		if err := st.Reset(ctx); err != nil {
			return nil, err
		}
	}

	sc, err := newScanner(cfg)
	if err != nil {
		return nil, err
	}
	coll, err := sc.Collection(ctx)
	if err != nil {
		return nil, err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithSourceDir(cfg.Source.Dir)))
	if err := renderer.Start(ctx); err != nil {
		return nil, err
	}

	ix, err := index.New(st,
		index.WithRenderer(renderer),
		index.WithLockFile(cfg.LockPath()),
		index.WithWorkers(cfg.Index.Workers))
	if err != nil {
		_ = renderer.Stop()
		return nil, err
	}

	pruneRemoved := !cfg.Index.KeepRemoved
	if opts.prune != nil {
		pruneRemoved = *opts.prune
	}

	report, err := ix.IndexAll(ctx, coll, index.Options{
		Force: opts.force,
		Prune: pruneRemoved,
	})
	_ = renderer.Stop()

	if errors.Is(err, context.Canceled) {
		output.New(cmd.ErrOrStderr()).Warningf("indexing cancelled after %d of %d documents", report.Processed(), report.Total)
		return report, nil
	}
	return report, err
}
