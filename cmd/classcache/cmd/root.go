// Package cmd provides the CLI commands for classcache.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/internal/logging"
	"github.com/Aman-CERP/classcache/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the classcache CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classcache",
		Short: "Live cache of CSS class names used in markup",
		Long: `classcache keeps an in-memory set of the CSS class names found in
class="..." attributes across a project's markup files.

The set stays current as files are created, edited and deleted, and as an
editor reports unsaved changes. Editors and agents query it over MCP with
'classcache serve'.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("classcache version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.classcache/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug file logging when --debug is set. serve
// installs its own file-only logger instead.
func startLogging(cmd *cobra.Command, _ []string) error {
	if !debugMode || cmd.Name() == "serve" {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("Debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Short()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and prints any error in CLI form.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, cerrors.FormatForCLI(err))
	}
	return err
}
