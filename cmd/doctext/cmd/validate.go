package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/internal/output"
	"github.com/omarfoud/pdf-text-searcher/internal/search"
	"github.com/omarfoud/pdf-text-searcher/internal/validation"
)

func newValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <queries.yaml>",
		Short: "Run relevance checks against the index",
		Long: `Run the queries in a YAML file against the index and check that the
expected documents rank near the top. Exits non-zero when a Tier 1 or
negative check fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := validation.LoadQueries(args[0])
			if err != nil {
				return err
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
			result := validation.NewValidator(engine).RunAll(cmd.Context(), queries)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				printValidation(output.New(cmd.OutOrStdout()), result)
			}

			if !result.OK() {
				return fmt.Errorf("validation failed: %s", result.Summary())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func printValidation(out *output.Writer, r *validation.ValidationResult) {
	for _, group := range [][]validation.TestResult{r.Tier1, r.Tier2, r.Negative} {
		for _, tr := range group {
			label := fmt.Sprintf("%s %s (%q)", tr.Spec.ID, tr.Spec.Name, tr.Spec.Query)
			switch {
			case tr.Passed && tr.MatchedAt >= 0:
				out.Successf("%s: rank %d", label, tr.MatchedAt+1)
			case tr.Passed:
				out.Successf("%s", label)
			case tr.Error != "":
				out.Errorf("%s: %s", label, tr.Error)
			case tr.Spec.Tier == 2:
				out.Warningf("%s: expected %v, got %v", label, tr.Spec.Expected, tr.TopResults)
			default:
				out.Errorf("%s: expected %v, got %v", label, tr.Spec.Expected, tr.TopResults)
			}
		}
	}
	out.Newline()
	out.Status("", r.Summary())
}
