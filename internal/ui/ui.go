// Package ui renders cache initialization progress and live watch activity
// in the terminal.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a phase of the cache lifecycle shown to the user.
type Stage int

const (
	// StageListing enumerates markup files.
	StageListing Stage = iota
	// StageReading reads and scans the listed files.
	StageReading
	// StageOpenDocuments applies unsaved editor text.
	StageOpenDocuments
	// StageWatching follows workspace changes after initialization.
	StageWatching
	// StageComplete indicates the run is finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageListing:
		return "Listing"
	case StageReading:
		return "Reading"
	case StageOpenDocuments:
		return "Open documents"
	case StageWatching:
		return "Watching"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageListing:
		return "LIST"
	case StageReading:
		return "READ"
	case StageOpenDocuments:
		return "OPEN"
	case StageWatching:
		return "WATCH"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports initialization progress.
type ProgressEvent struct {
	Stage    Stage
	Current  int
	Total    int
	Failures int
}

// ActivityEvent is one workspace change applied to the cache.
type ActivityEvent struct {
	Kind string
	Path string
	Time time.Time
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CacheStats is the live cache size.
type CacheStats struct {
	Documents     int
	Classes       int
	OpenDocuments int
	Applied       uint64
}

// CompletionStats summarizes initialization.
type CompletionStats struct {
	Files         int
	Classes       int
	ReadFailures  int
	OpenDocuments int
	Duration      time.Duration
}

// Renderer displays cache progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates the initialization display.
	UpdateProgress(event ProgressEvent)

	// UpdateStats updates the live cache size.
	UpdateStats(stats CacheStats)

	// AddActivity records an applied workspace change.
	AddActivity(event ActivityEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks initialization as finished. Renderers configured for
	// watch mode keep running afterwards.
	Complete(stats CompletionStats)

	// Done is closed when the user quits an interactive renderer. It is
	// nil for renderers without user input.
	Done() <-chan struct{}

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Watch      bool
	ProjectDir string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithWatch keeps the renderer running after initialization completes.
func WithWatch(watch bool) ConfigOption {
	return func(c *Config) {
		c.Watch = watch
	}
}

// WithProjectDir sets the directory shown in the header.
func WithProjectDir(dir string) ConfigOption {
	return func(c *Config) {
		c.ProjectDir = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
