package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per update (for CI and pipes).
type PlainRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	lastStage Stage
	decile    int
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, lastStage: -1, decile: -1}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Reading progress is printed at most
// once per ten percent.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.lastStage {
		r.lastStage = event.Stage
		r.decile = -1
	}
	if event.Total <= 0 {
		return
	}

	decile := event.Current * 10 / event.Total
	if decile == r.decile {
		return
	}
	r.decile = decile

	_, _ = fmt.Fprintf(r.out, "[%s] %d/%d files", event.Stage.Icon(), event.Current, event.Total)
	if event.Failures > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d failed)", event.Failures)
	}
	_, _ = fmt.Fprintln(r.out)
}

// UpdateStats implements Renderer. Plain output only reports stats on
// completion.
func (r *PlainRenderer) UpdateStats(CacheStats) {}

// AddActivity implements Renderer.
func (r *PlainRenderer) AddActivity(event ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	_, _ = fmt.Fprintf(r.out, "%s %-12s %s\n", ts.Format("15:04:05"), event.Kind, event.Path)
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Ready: %d files, %d classes in %s",
		stats.Files, stats.Classes, stats.Duration.Round(time.Millisecond))
	if stats.ReadFailures > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d unreadable)", stats.ReadFailures)
	}
	_, _ = fmt.Fprintln(r.out)
}

// Done implements Renderer.
func (r *PlainRenderer) Done() <-chan struct{} {
	return nil
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

var _ Renderer = (*PlainRenderer)(nil)
