package ui

import (
	"strings"
	"sync"
	"time"
)

// sparkChars are the eight bar heights of a sparkline.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// ActivityLog keeps the most recent workspace changes and a per-second
// event rate for the last rateWindow seconds. It is safe for concurrent use.
type ActivityLog struct {
	mu     sync.Mutex
	recent []ActivityEvent
	limit  int

	buckets []int
	last    int64 // unix second of the newest bucket
	now     func() time.Time
}

const rateWindow = 60

// NewActivityLog keeps up to limit recent events.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = 5
	}
	return &ActivityLog{
		limit:   limit,
		buckets: make([]int, rateWindow),
		now:     time.Now,
	}
}

// Add records an event.
func (a *ActivityLog) Add(ev ActivityEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Time.IsZero() {
		ev.Time = a.now()
	}
	a.recent = append(a.recent, ev)
	if len(a.recent) > a.limit {
		a.recent = a.recent[len(a.recent)-a.limit:]
	}

	a.advance(ev.Time.Unix())
	a.buckets[len(a.buckets)-1]++
}

// advance shifts buckets so the newest one is sec. Must hold mu.
func (a *ActivityLog) advance(sec int64) {
	if a.last == 0 {
		a.last = sec
		return
	}
	shift := sec - a.last
	if shift <= 0 {
		return
	}
	if shift >= int64(len(a.buckets)) {
		clear(a.buckets)
	} else {
		n := int(shift)
		copy(a.buckets, a.buckets[n:])
		clear(a.buckets[len(a.buckets)-n:])
	}
	a.last = sec
}

// Recent returns the retained events, oldest first.
func (a *ActivityLog) Recent() []ActivityEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ActivityEvent, len(a.recent))
	copy(out, a.recent)
	return out
}

// Total returns the number of events in the rate window.
func (a *ActivityLog) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.advance(a.now().Unix())
	total := 0
	for _, n := range a.buckets {
		total += n
	}
	return total
}

// Sparkline renders the rate window, newest on the right, using at most
// width columns.
func (a *ActivityLog) Sparkline(width int) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.advance(a.now().Unix())
	buckets := a.buckets
	if width > 0 && width < len(buckets) {
		buckets = buckets[len(buckets)-width:]
	}
	return renderSpark(buckets)
}

func renderSpark(values []int) string {
	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		idx := 0
		if peak > 0 {
			idx = v * (len(sparkChars) - 1) / peak
		}
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}
