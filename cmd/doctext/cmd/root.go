// Package cmd provides the CLI commands for doctext.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	doterrors "github.com/omarfoud/pdf-text-searcher/internal/errors"
	"github.com/omarfoud/pdf-text-searcher/internal/logging"
	"github.com/omarfoud/pdf-text-searcher/pkg/version"
)

var (
	debugMode      bool
	collectionDir  string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the doctext CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctext",
		Short: "Full-text search over a local document collection",
		Long: `doctext indexes the text documents under a directory and answers
ranked keyword and phrase queries with highlighted snippets.

Start with 'doctext index' in the collection directory, then
'doctext search <query>'. 'doctext serve' exposes the same engine to
MCP clients and over HTTP.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("doctext version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.doctext/logs/")
	cmd.PersistentFlags().StringVarP(&collectionDir, "dir", "C", ".", "Collection root directory")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the default logger: warnings to stderr, or debug
// output to stderr and the log file with --debug.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	return installLogger(cfg)
}

func installLogger(cfg logging.Config) error {
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if loggingCleanup != nil {
		loggingCleanup()
	}
	loggingCleanup = cleanup
	if cfg.FilePath != "" {
		slog.Debug("logging_enabled",
			slog.String("log_file", cfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints any error with its hint.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, doterrors.FormatForCLI(err))
	}
	return err
}
