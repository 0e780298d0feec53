package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classcache/internal/config"
	"github.com/Aman-CERP/classcache/internal/logging"
	"github.com/Aman-CERP/classcache/internal/mcp"
	"github.com/Aman-CERP/classcache/internal/workspace"
)

var errWatchDisabled = errors.New("file watching is disabled (watch.enabled: false); only editor events update the cache")

func newServeCmd() *cobra.Command {
	var (
		transport string
		poll      bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the class cache over MCP",
		Long: `Start an MCP server on stdio backed by a live class cache of the project.

The cache is built in the background; tools answer immediately with whatever
has been scanned so far. File changes are followed unless watch.enabled is
false. Editors report unsaved text with the document_event tool.

Nothing but JSON-RPC is written to stdout. Logs go to ~/.classcache/logs/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args, transport, poll)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().BoolVar(&poll, "poll", false, "Poll the filesystem instead of using native events")

	return cmd
}

func runServe(ctx context.Context, args []string, transport string, poll bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupMCPMode(level, "")
	if err != nil {
		return err
	}
	defer cleanup()

	cache, disk, _, err := openWorkspace(root, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.Start(ctx); err != nil {
		return err
	}

	if cfg.Watch.IsEnabled() {
		wopts := workspace.WatcherOptions(cfg)
		wopts.ForcePolling = poll
		if _, err := cache.WatchDisk(ctx, disk, wopts); err != nil {
			slog.Warn("file watching unavailable", slog.String("error", err.Error()))
		}
	} else {
		slog.Info(errWatchDisabled.Error())
	}

	srv, err := mcp.NewServer(cache, root)
	if err != nil {
		return err
	}
	slog.Info("serving class cache", slog.String("root", root))

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
