package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/classcache/internal/config"
	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/internal/scanner"
	"github.com/Aman-CERP/classcache/internal/watcher"
)

// WatcherOptions derives watcher settings from cfg. A nil cfg yields the
// watcher defaults.
func WatcherOptions(cfg *config.Config) watcher.Options {
	opts := watcher.DefaultOptions()
	if cfg == nil {
		return opts
	}
	if d := cfg.Watch.DebounceDuration(); d > 0 {
		opts.DebounceWindow = d
	}
	if d := cfg.Watch.PollIntervalDuration(); d > 0 {
		opts.PollInterval = d
	}
	opts.RespectGitignore = cfg.Paths.GitignoreEnabled()
	return opts
}

// WatchDisk feeds file changes under disk's root into the cache. The
// returned function stops the watcher; Close also stops it.
func (c *Cache) WatchDisk(ctx context.Context, disk *DiskSource, opts watcher.Options) (stop func(), err error) {
	w, err := watcher.New(opts)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeWatchFailed, "failed to create file watcher", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	feed := make(chan Event, 64)
	unsubscribe := c.Subscribe(feed)

	var once sync.Once
	stop = func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, w)
			c.mu.Unlock()
			cancel()
			_ = w.Stop()
			unsubscribe()
		})
	}
	c.mu.Lock()
	c.watchers[w] = disk.Root()
	c.mu.Unlock()
	if !c.onClose(stop) {
		stop()
		return nil, closedError()
	}

	go func() {
		if err := w.Start(wctx, disk.Root()); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error("file watcher stopped",
				slog.String("root", disk.Root()),
				slog.String("error", err.Error()))
		}
	}()
	go c.forwardWatcher(wctx, w, disk, feed)

	c.logger.Info("watching workspace",
		slog.String("root", disk.Root()),
		slog.String("mode", w.WatcherType()))
	return stop, nil
}

func (c *Cache) forwardWatcher(ctx context.Context, w *watcher.HybridWatcher, disk *DiskSource, feed chan<- Event) {
	defer close(feed)
	batches, errs := w.Events(), w.Errors()
	for batches != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			for _, fe := range batch {
				ev, ok := translate(disk, fe)
				if !ok {
					continue
				}
				select {
				case feed <- ev:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

// translate maps a watcher event to a lifecycle event. Creates and
// modifications of files that would not be listed are dropped; deletes are
// always forwarded so directory removals reach the index.
func translate(disk *DiskSource, fe watcher.FileEvent) (Event, bool) {
	if fe.Operation == watcher.OpGitignoreChange {
		return Event{Kind: Rescan}, true
	}
	if fe.IsDir && (fe.Operation == watcher.OpCreate || fe.Operation == watcher.OpModify) {
		return Event{}, false
	}

	id, err := disk.IdentityOf(fe.Path)
	if err != nil {
		return Event{}, false
	}
	ev := Event{ID: id, LanguageID: scanner.DetectLanguage(fe.Path)}

	switch fe.Operation {
	case watcher.OpCreate:
		ev.Kind = FileCreated
	case watcher.OpModify:
		ev.Kind = FileChanged
	case watcher.OpDelete:
		return Event{Kind: FileDeleted, ID: id}, true
	case watcher.OpRename:
		return Event{Kind: FileRenamed, ID: id}, true
	default:
		return Event{}, false
	}
	if !disk.Matches(fe.Path) {
		return Event{}, false
	}
	return ev, true
}
