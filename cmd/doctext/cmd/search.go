package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

// searchFlags holds CLI flags for search.
type searchFlags struct {
	limit  int
	window int
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Long: `Rank documents against a query with BM25.

Terms are matched after the same normalization used at index time, so
"run" also finds "running". A document matches if it contains any term.
Quoted phrases must appear as consecutive terms.

Examples:
  doctext search run
  doctext search '"chase running" mice' -n 3
  doctext search races --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results (default search.top_k)")
	cmd.Flags().IntVarP(&opts.window, "window", "w", 0, "Snippet width in characters (default search.snippet_window)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchFlags) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (use text or json)", opts.format)
	}

	cfg, err := loadConfig(collectionDir)
	if err != nil {
		return err
	}
	st, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	engine, err := search.New(st, searchOptions(cfg))
	if err != nil {
		return err
	}

	topK := cfg.Search.TopK
	if cmd.Flags().Changed("limit") {
		topK = opts.limit
	}
	var searchOpts []search.SearchOption
	if opts.window > 0 {
		searchOpts = append(searchOpts, search.WithWindow(opts.window))
	}

	slog.Debug("search_started", slog.String("query", query), slog.Int("top_k", topK))
	results, err := engine.Search(ctx, query, topK, searchOpts...)
	if err != nil {
		return err
	}

	renderer := ui.NewResultsRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
	if opts.format == "json" {
		return renderer.RenderJSON(results)
	}
	return renderer.Render(query, results)
}
