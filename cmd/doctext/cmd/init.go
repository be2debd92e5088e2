package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omarfoud/pdf-text-searcher/configs"
	"github.com/omarfoud/pdf-text-searcher/internal/config"
	"github.com/omarfoud/pdf-text-searcher/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.ProjectConfigName,
		Long: `Write a commented configuration file with the default settings into
the collection root so they can be edited.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, collectionDir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := output.New(cmd.OutOrStdout())
	path := filepath.Join(dir, config.ProjectConfigName)

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	out.Successf("Wrote %s", path)
	out.Status("", "Next, build the index:")
	out.Code("doctext index")
	return nil
}
