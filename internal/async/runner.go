package async

import (
	"context"
	"sync"
)

// RunFunc performs initialization, reporting into progress.
type RunFunc func(ctx context.Context, progress *Progress) error

// Runner executes a RunFunc once in the background.
type Runner struct {
	progress *Progress
	fn       RunFunc

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
	running bool
	err     error
}

// NewRunner creates a runner for fn. progress may be nil.
func NewRunner(fn RunFunc, progress *Progress) *Runner {
	if progress == nil {
		progress = NewProgress()
	}
	return &Runner{
		progress: progress,
		fn:       fn,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Progress returns the tracker passed to the RunFunc.
func (r *Runner) Progress() *Progress {
	return r.progress
}

// IsRunning reports whether the RunFunc is executing.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start launches the RunFunc. Later calls are no-ops.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.running = true
	r.mu.Unlock()

	go r.run(ctx)
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-r.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	var err error
	if r.fn != nil {
		err = r.fn(ctx, r.progress)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		r.progress.SetError(err.Error())
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		return
	}
	r.progress.SetReady()
}

// Done is closed when the RunFunc has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.doneCh
}

// Stop cancels the RunFunc and waits for it. Safe to call before Start and
// more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.doneCh
	}
}

// Wait blocks until the RunFunc returns and reports its error.
func (r *Runner) Wait() error {
	<-r.doneCh
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
