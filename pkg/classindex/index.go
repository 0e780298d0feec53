package classindex

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/Aman-CERP/classcache/pkg/tokens"
)

// Index maps document identities to the class tokens found in them.
//
// Index is safe for concurrent use. All methods may be called from multiple
// goroutines simultaneously.
type Index struct {
	mu      sync.RWMutex
	entries map[Identity]tokens.Set

	workers  int
	logger   *slog.Logger
	progress Progress
}

// Option configures an Index.
type Option func(*Index)

// WithWorkers bounds the number of concurrent disk reads during
// BulkInitialize. Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(i *Index) {
		i.workers = n
	}
}

// WithLogger sets the logger used for read failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Index) {
		i.logger = l
	}
}

// WithProgress reports BulkInitialize progress to p.
func WithProgress(p Progress) Option {
	return func(i *Index) {
		i.progress = p
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	i := &Index{
		entries: make(map[Identity]tokens.Set),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.workers < 1 {
		i.workers = runtime.NumCPU()
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}
	if i.progress == nil {
		i.progress = nopProgress{}
	}
	return i
}

// ScanAndStore extracts the tokens of text and makes them the entry for id,
// replacing any previous entry. Tokens from earlier content are not kept.
func (i *Index) ScanAndStore(id Identity, text string) {
	set := tokens.Extract(text)

	i.mu.Lock()
	i.entries[id] = set
	i.mu.Unlock()
}

// Remove deletes the entry for id. Removing an unknown id is a no-op.
func (i *Index) Remove(id Identity) {
	i.mu.Lock()
	delete(i.entries, id)
	i.mu.Unlock()
}

// AllTokens returns the union of the tokens of every document.
// The returned set belongs to the caller.
func (i *Index) AllTokens() tokens.Set {
	i.mu.RLock()
	defer i.mu.RUnlock()

	size := 0
	for _, set := range i.entries {
		size += set.Len()
	}
	out := make(tokens.Set, size)
	for _, set := range i.entries {
		out.Merge(set)
	}
	return out
}

// Tokens returns a copy of the tokens stored for id.
func (i *Index) Tokens(id Identity) (tokens.Set, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	set, ok := i.entries[id]
	if !ok {
		return nil, false
	}
	return set.Clone(), true
}

// Len returns the number of documents with an entry.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Identities returns the identities with an entry, sorted.
func (i *Index) Identities() []Identity {
	i.mu.RLock()
	ids := make([]Identity, 0, len(i.entries))
	for id := range i.entries {
		ids = append(ids, id)
	}
	i.mu.RUnlock()

	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Reset drops every entry.
func (i *Index) Reset() {
	i.mu.Lock()
	i.entries = make(map[Identity]tokens.Set)
	i.mu.Unlock()
}
