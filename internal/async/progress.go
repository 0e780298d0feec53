// Package async tracks cache initialization running in the background.
package async

import (
	"sync"
	"time"
)

// Status is the overall initialization state.
type Status string

const (
	// StatusInitializing means the bulk scan is still running.
	StatusInitializing Status = "initializing"
	// StatusReady means the bulk scan finished and events are being applied.
	StatusReady Status = "ready"
	// StatusError means initialization failed.
	StatusError Status = "error"
)

// Stage is the current step of initialization.
type Stage string

const (
	// StageListing enumerates markup files.
	StageListing Stage = "listing"
	// StageReading reads and scans files from disk.
	StageReading Stage = "reading"
	// StageOpenDocuments applies unsaved editor text.
	StageOpenDocuments Stage = "open_documents"
)

// ProgressSnapshot is an immutable copy of a Progress.
type ProgressSnapshot struct {
	Status         string  `json:"status"`
	Stage          string  `json:"stage"`
	FilesTotal     int     `json:"files_total"`
	FilesRead      int     `json:"files_read"`
	ReadFailures   int     `json:"read_failures"`
	OpenDocuments  int     `json:"open_documents"`
	ProgressPct    float64 `json:"progress_pct"`
	ElapsedSeconds int     `json:"elapsed_seconds"`
	ErrorMessage   string  `json:"error_message,omitempty"`
}

// Progress is a thread-safe initialization tracker. It satisfies
// classindex.Progress.
type Progress struct {
	mu sync.RWMutex

	status        Status
	stage         Stage
	filesTotal    int
	filesRead     int
	readFailures  int
	openDocuments int
	startTime     time.Time
	errorMessage  string
}

// NewProgress returns a tracker in the listing stage.
func NewProgress() *Progress {
	return &Progress{
		status:    StatusInitializing,
		stage:     StageListing,
		startTime: time.Now(),
	}
}

// SetStage moves to stage and resets the file total.
func (p *Progress) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.filesTotal = total
}

// Listed records the number of files found and enters the reading stage.
func (p *Progress) Listed(total int) {
	p.SetStage(StageReading, total)
}

// FileDone counts one finished read.
func (p *Progress) FileDone(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ok {
		p.filesRead++
	} else {
		p.readFailures++
	}
}

// OpenDocumentsApplied records the number of unsaved documents applied.
func (p *Progress) OpenDocumentsApplied(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = StageOpenDocuments
	p.openDocuments = n
}

// SetError marks initialization as failed.
func (p *Progress) SetError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusError
	p.errorMessage = message
}

// SetReady marks initialization as complete.
func (p *Progress) SetReady() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusReady
}

// IsInitializing reports whether initialization is still running.
func (p *Progress) IsInitializing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusInitializing
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	done := p.filesRead + p.readFailures
	var pct float64
	switch {
	case p.status == StatusReady:
		pct = 100
	case p.filesTotal > 0:
		pct = float64(done) / float64(p.filesTotal) * 100.0
	}

	return ProgressSnapshot{
		Status:         string(p.status),
		Stage:          string(p.stage),
		FilesTotal:     p.filesTotal,
		FilesRead:      p.filesRead,
		ReadFailures:   p.readFailures,
		OpenDocuments:  p.openDocuments,
		ProgressPct:    pct,
		ElapsedSeconds: int(time.Since(p.startTime).Seconds()),
		ErrorMessage:   p.errorMessage,
	}
}
