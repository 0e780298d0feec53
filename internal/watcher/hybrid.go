package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/classcache/internal/gitignore"
)

// HybridWatcher watches a tree with fsnotify, or by polling when fsnotify
// is unavailable, and delivers debounced batches of FileEvent.
type HybridWatcher struct {
	opts      Options
	fsWatcher *fsnotify.Watcher
	poller    *PollingWatcher
	debouncer *Debouncer

	mu       sync.RWMutex
	ignore   *gitignore.Matcher
	rootPath string
	stopped  bool

	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	droppedBatches atomic.Uint64
}

// New creates a watcher. It falls back to polling if fsnotify cannot be
// initialized or opts.ForcePolling is set.
func New(opts Options) (*HybridWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		ignore:    baseMatcher(opts),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
			return h, nil
		}
		slog.Info("fsnotify unavailable, falling back to polling",
			slog.String("error", err.Error()),
			slog.Duration("interval", opts.PollInterval))
	}
	h.poller = NewPollingWatcher(opts.PollInterval, h.ignored)
	return h, nil
}

func baseMatcher(opts Options) *gitignore.Matcher {
	m := gitignore.New()
	for _, p := range alwaysIgnored {
		m.AddPattern(p)
	}
	for _, p := range opts.IgnorePatterns {
		m.AddPattern(p)
	}
	return m
}

// Start watches path recursively. It blocks until ctx is done (returning
// ctx.Err()) or Stop is called (returning nil).
func (h *HybridWatcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", absPath)
	}

	h.mu.Lock()
	h.rootPath = absPath
	h.mu.Unlock()
	h.reloadIgnores()

	go h.forwardBatches(ctx)

	if h.fsWatcher != nil {
		return h.runFsnotify(ctx)
	}
	return h.runPolling(ctx)
}

func (h *HybridWatcher) runFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath, false); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) runPolling(ctx context.Context) error {
	go func() {
		events, errs := h.poller.Events(), h.poller.Errors()
		for events != nil || errs != nil {
			select {
			case <-h.stopCh:
				return
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				h.accept(ev.Path, ev.Operation, ev.IsDir)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				h.emitError(err)
			}
		}
	}()

	err := h.poller.Start(ctx, h.rootPath)
	if ctx.Err() != nil {
		_ = h.Stop()
	}
	return err
}

func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// chmod
		return
	}

	if !h.accept(rel, op, isDir) {
		return
	}
	if op == OpCreate && isDir {
		// Files written before the watch was added would otherwise be missed.
		if err := h.addRecursive(event.Name, true); err != nil {
			h.emitError(err)
		}
	}
}

// accept filters an event and queues it. It reports whether the event was
// queued.
func (h *HybridWatcher) accept(rel string, op Operation, isDir bool) bool {
	if rel == "" || rel == "." {
		return false
	}
	if path.Base(rel) == ".gitignore" && !isDir {
		if !h.opts.RespectGitignore || h.ignored(rel, false) {
			return false
		}
		h.reloadIgnores()
		h.debouncer.Add(FileEvent{Path: rel, Operation: OpGitignoreChange, Timestamp: time.Now()})
		return true
	}
	if h.ignored(rel, isDir) {
		return false
	}
	h.debouncer.Add(FileEvent{Path: rel, Operation: op, IsDir: isDir, Timestamp: time.Now()})
	return true
}

// addRecursive watches dir and every non-ignored directory below it. With
// emitFiles set, files found on the way are reported as created.
func (h *HybridWatcher) addRecursive(dir string, emitFiles bool) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(h.rootPath, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !d.IsDir() {
			if emitFiles {
				h.accept(rel, OpCreate, false)
			}
			return nil
		}
		if rel != "." && h.ignored(rel, true) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(p)
	})
}

func (h *HybridWatcher) ignored(rel string, isDir bool) bool {
	h.mu.RLock()
	m := h.ignore
	h.mu.RUnlock()
	return m.Match(rel, isDir)
}

// reloadIgnores rebuilds the matcher from the configured patterns and every
// .gitignore below the root.
func (h *HybridWatcher) reloadIgnores() {
	m := baseMatcher(h.opts)

	if h.opts.RespectGitignore {
		_ = filepath.WalkDir(h.rootPath, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("skipping directory in gitignore scan",
					slog.String("path", p),
					slog.String("error", err.Error()))
				return nil
			}
			rel, relErr := filepath.Rel(h.rootPath, p)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel != "." && m.Match(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ".gitignore" {
				return nil
			}
			base := path.Dir(rel)
			if base == "." {
				base = ""
			}
			if err := m.AddFromFile(p, base); err != nil {
				slog.Warn("failed to read .gitignore",
					slog.String("path", p),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	h.mu.Lock()
	h.ignore = m
	h.mu.Unlock()
}

func (h *HybridWatcher) forwardBatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case batch, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(batch) > 0 {
				h.emitBatch(batch)
			}
		}
	}
}

func (h *HybridWatcher) emitBatch(batch []FileEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}

	select {
	case h.events <- batch:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (h *HybridWatcher) emitError(err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// DroppedBatches returns the number of batches lost to a full buffer.
func (h *HybridWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// Stop releases resources and closes Events and Errors. Safe to call more
// than once.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	h.mu.Unlock()

	// The poller calls back into ignored, so it is stopped without h.mu held.
	h.debouncer.Stop()
	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.poller != nil {
		_ = h.poller.Stop()
	}

	h.mu.Lock()
	close(h.events)
	close(h.errors)
	h.mu.Unlock()
	return nil
}

// Events returns the channel of debounced batches.
func (h *HybridWatcher) Events() <-chan []FileEvent {
	return h.events
}

// Errors returns the channel of non-fatal watcher errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// IsHealthy reports whether the watcher is still running.
func (h *HybridWatcher) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.stopped
}

// WatcherType returns "fsnotify" or "polling".
func (h *HybridWatcher) WatcherType() string {
	if h.fsWatcher != nil {
		return "fsnotify"
	}
	return "polling"
}
