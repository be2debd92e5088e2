package cmd

import (
	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(collectionDir)
			if err != nil {
				return err
			}
			st, err := openExistingStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			info := ui.StatusInfo{
				SourceDir:      cfg.Source.Dir,
				IndexPath:      cfg.IndexPath(),
				Documents:      stats.Documents,
				EmptyDocuments: stats.EmptyDocs,
				Terms:          stats.Terms,
				TotalTokens:    stats.TotalTokens,
				AvgLength:      stats.AverageLength,
				LastIndexed:    stats.LastIndexed,
				SizeBytes:      stats.SizeBytes,
				Analyzer:       stats.Analyzer,
			}
			renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
			if jsonOutput {
				return renderer.RenderJSON(info)
			}
			return renderer.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}
