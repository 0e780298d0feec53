package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/classcache/internal/async"
	"github.com/Aman-CERP/classcache/internal/ui"
	"github.com/Aman-CERP/classcache/internal/workspace"
)

// statsInterval is how often live counts are refreshed.
const statsInterval = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var (
		plain bool
		poll  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Build the cache and follow changes live",
		Long: `Scan the project's markup files, then watch the directory and keep the
class cache current as files change. Shows a live dashboard in a terminal
and one line per change otherwise.

Press q or Ctrl+C to stop.`,
		Example: `  classcache watch
  classcache watch ./site --plain`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, plain, poll)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain line output instead of the dashboard")
	cmd.Flags().BoolVar(&poll, "poll", false, "Poll the filesystem instead of using native events")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, plain, poll bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := resolveRoot(args)
	if err != nil {
		return err
	}

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithWatch(true),
		ui.WithProjectDir(root),
	))

	var disk *workspace.DiskSource
	hook := func(ev workspace.Event) {
		path := ev.ID.String()
		if disk != nil {
			if rel, ok := disk.Relative(ev.ID); ok {
				path = rel
			}
		}
		renderer.AddActivity(ui.ActivityEvent{Kind: ev.Kind.String(), Path: path, Time: time.Now()})
	}

	opts := []workspace.Option{workspace.WithApplyHook(hook)}
	if _, isTUI := renderer.(*ui.TUIRenderer); isTUI && !debugMode {
		// Log lines would tear the dashboard.
		opts = append(opts, workspace.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	}
	cache, d, cfg, err := openWorkspace(root, nil, opts...)
	if err != nil {
		return err
	}
	disk = d
	defer func() { _ = cache.Close() }()

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = renderer.Stop() }()

	if err := cache.Start(ctx); err != nil {
		return err
	}
	if !followInitialization(ctx, cache, renderer) {
		return nil
	}

	status := cache.Status()
	renderer.Complete(ui.CompletionStats{
		Files:         status.Init.FilesScanned,
		Classes:       status.Tokens,
		ReadFailures:  status.Init.ReadFailures,
		OpenDocuments: status.Init.OpenDocuments,
		Duration:      status.Init.Duration,
	})

	if cfg.Watch.IsEnabled() {
		wopts := workspace.WatcherOptions(cfg)
		wopts.ForcePolling = poll
		if _, err := cache.WatchDisk(ctx, disk, wopts); err != nil {
			renderer.AddError(ui.ErrorEvent{Err: err})
		}
	} else {
		renderer.AddError(ui.ErrorEvent{Err: errWatchDisabled, IsWarn: true})
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-renderer.Done():
			return nil
		case <-ticker.C:
			s := cache.Status()
			renderer.UpdateStats(ui.CacheStats{
				Documents:     s.Documents,
				Classes:       s.Tokens,
				OpenDocuments: s.OpenDocuments,
				Applied:       s.AppliedEvents,
			})
		}
	}
}

// followInitialization forwards progress until the cache is ready. It
// returns false if the user or ctx stopped the run first.
func followInitialization(ctx context.Context, cache *workspace.Cache, renderer ui.Renderer) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		renderer.UpdateProgress(progressEvent(cache.Progress().Snapshot()))
		select {
		case <-cache.Ready():
			renderer.UpdateProgress(progressEvent(cache.Progress().Snapshot()))
			return true
		case <-ctx.Done():
			return false
		case <-renderer.Done():
			return false
		case <-ticker.C:
		}
	}
}

func progressEvent(snap async.ProgressSnapshot) ui.ProgressEvent {
	ev := ui.ProgressEvent{
		Current:  snap.FilesRead + snap.ReadFailures,
		Total:    snap.FilesTotal,
		Failures: snap.ReadFailures,
	}
	switch async.Stage(snap.Stage) {
	case async.StageReading:
		ev.Stage = ui.StageReading
	case async.StageOpenDocuments:
		ev.Stage = ui.StageOpenDocuments
	default:
		ev.Stage = ui.StageListing
	}
	return ev
}
