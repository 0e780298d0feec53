package watcher

import (
	"fmt"
	"time"
)

// Operation is the kind of change observed on a path.
type Operation int

const (
	// OpCreate reports a new file or directory.
	OpCreate Operation = iota
	// OpModify reports a content change.
	OpModify
	// OpDelete reports a removed path.
	OpDelete
	// OpRename reports that a path was moved away. The destination, if it
	// is inside the root, arrives as a separate OpCreate.
	OpRename
	// OpGitignoreChange reports that a .gitignore file changed. The set of
	// visible files may have changed anywhere below it.
	OpGitignoreChange
)

// String returns the upper-case name of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpGitignoreChange:
		return "GITIGNORE_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a single observed change.
type FileEvent struct {
	// Path is slash-separated and relative to the watched root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

func (e FileEvent) String() string {
	return fmt.Sprintf("%s %s", e.Operation, e.Path)
}

// Options configures a HybridWatcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	DebounceWindow time.Duration

	// PollInterval is the rescan interval of the polling fallback.
	PollInterval time.Duration

	// EventBufferSize bounds the number of undelivered batches.
	EventBufferSize int

	// IgnorePatterns use gitignore syntax and apply on top of .gitignore.
	IgnorePatterns []string

	// RespectGitignore loads .gitignore files below the root.
	RespectGitignore bool

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// alwaysIgnored directories never produce events and are never watched.
var alwaysIgnored = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"bower_components/",
	"jspm_packages/",
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:   200 * time.Millisecond,
		PollInterval:     5 * time.Second,
		EventBufferSize:  1000,
		RespectGitignore: true,
	}
}

// Validate rejects negative durations and sizes.
func (o Options) Validate() error {
	if o.DebounceWindow < 0 {
		return fmt.Errorf("debounce window must not be negative: %s", o.DebounceWindow)
	}
	if o.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative: %s", o.PollInterval)
	}
	if o.EventBufferSize < 0 {
		return fmt.Errorf("event buffer size must not be negative: %d", o.EventBufferSize)
	}
	return nil
}

// WithDefaults fills zero values from DefaultOptions.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
