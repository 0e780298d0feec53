package watcher

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path. The batch is flushed once no
// event has arrived for the window. Consecutive operations on one path merge:
//   - CREATE then MODIFY is CREATE
//   - CREATE then DELETE or RENAME cancels out
//   - DELETE or RENAME then CREATE is MODIFY
//   - anything else keeps the latest operation
//
// Batches preserve the order in which paths were first seen.
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*pendingEvent
	seq     uint64
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event FileEvent
	seq   uint64
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 16),
	}
}

// Add queues an event and restarts the window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		op, keep := merge(existing.event.Operation, event.Operation)
		if !keep {
			delete(d.pending, event.Path)
		} else {
			existing.event = event
			existing.event.Operation = op
		}
	} else {
		d.seq++
		d.pending[event.Path] = &pendingEvent{event: event, seq: d.seq}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// merge combines two operations on the same path. keep is false when the
// pair cancels out.
func merge(prev, next Operation) (op Operation, keep bool) {
	switch {
	case prev == OpCreate && next == OpModify:
		return OpCreate, true
	case prev == OpCreate && (next == OpDelete || next == OpRename):
		return 0, false
	case (prev == OpDelete || prev == OpRename) && next == OpCreate:
		return OpModify, true
	default:
		return next, true
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	queued := make([]*pendingEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		queued = append(queued, pe)
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].seq < queued[j].seq })

	events := make([]FileEvent, len(queued))
	for i, pe := range queued {
		events[i] = pe.event
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)))
	}
}

// Pending returns the number of queued paths.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Output returns the channel of coalesced batches.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes Output. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
