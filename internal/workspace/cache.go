package workspace

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/classcache/internal/async"
	"github.com/Aman-CERP/classcache/internal/config"
	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/internal/watcher"
	"github.com/Aman-CERP/classcache/pkg/classindex"
	"github.com/Aman-CERP/classcache/pkg/tokens"
)

// Cache is the extension-lifetime owner of a class index. All lifecycle
// events go through one queue and are applied by a single goroutine.
type Cache struct {
	index    *classindex.Index
	files    classindex.FileSource
	open     classindex.OpenDocumentSource
	markup   config.MarkupConfig
	workers  int
	logger   *slog.Logger
	progress *async.Progress
	runner   *async.Runner
	onApply  func(Event)

	mu       sync.Mutex
	queue    []Event
	started  bool
	closed   bool
	stats    classindex.InitStats
	cancel   context.CancelFunc
	stoppers []func()
	watchers map[*watcher.HybridWatcher]string

	notify   chan struct{}
	ready    chan struct{}
	closedCh chan struct{}
	wg       sync.WaitGroup

	docsMu sync.RWMutex
	docs   map[classindex.Identity]classindex.Document

	applied  atomic.Uint64
	filtered atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithOpenDocuments sets the editor documents applied after the disk scan.
func WithOpenDocuments(src classindex.OpenDocumentSource) Option {
	return func(c *Cache) {
		c.open = src
	}
}

// WithConfig applies the markup languages and worker count of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(c *Cache) {
		if cfg == nil {
			return
		}
		c.markup = cfg.Markup
		c.workers = cfg.Scan.Workers
	}
}

// WithLanguages sets the editor language IDs treated as markup.
func WithLanguages(ids ...string) Option {
	return func(c *Cache) {
		c.markup = config.MarkupConfig{Languages: ids}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithApplyHook calls fn on the dispatcher goroutine after each event is
// applied. fn must not block or call back into the cache's Sync.
func WithApplyHook(fn func(Event)) Option {
	return func(c *Cache) {
		c.onApply = fn
	}
}

// New creates a cache reading from files, which may be nil for an
// editor-only cache. Nothing runs until Start.
func New(files classindex.FileSource, opts ...Option) *Cache {
	c := &Cache{
		files:    files,
		markup:   config.NewConfig().Markup,
		logger:   slog.Default(),
		progress: async.NewProgress(),
		notify:   make(chan struct{}, 1),
		ready:    make(chan struct{}),
		closedCh: make(chan struct{}),
		docs:     make(map[classindex.Identity]classindex.Document),
		watchers: make(map[*watcher.HybridWatcher]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.open != nil {
		c.open = trackedOpen{cache: c, src: c.open}
	}
	c.index = classindex.New(
		classindex.WithWorkers(c.workers),
		classindex.WithLogger(c.logger),
		classindex.WithProgress(c.progress),
	)
	c.runner = async.NewRunner(c.initialize, c.progress)
	return c
}

// Start runs the bulk scan in the background and then begins applying
// queued events. Cancelling ctx stops the cache without resetting it.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return closedError()
	}
	if c.started {
		return nil
	}
	c.started = true

	ctx, c.cancel = context.WithCancel(ctx)
	c.runner.Start(ctx)
	c.wg.Add(1)
	go c.dispatch(ctx)
	return nil
}

func (c *Cache) initialize(ctx context.Context, _ *async.Progress) error {
	stats := c.index.BulkInitialize(ctx, c.files, c.open)

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()

	c.logger.Info("class cache initialized",
		slog.Int("files_listed", stats.FilesListed),
		slog.Int("files_scanned", stats.FilesScanned),
		slog.Int("read_failures", stats.ReadFailures),
		slog.Int("open_documents", stats.OpenDocuments),
		slog.Duration("duration", stats.Duration),
		slog.Bool("canceled", stats.Canceled))
	return ctx.Err()
}

// Ready is closed once the bulk scan has finished.
func (c *Cache) Ready() <-chan struct{} {
	return c.ready
}

// WaitReady blocks until the bulk scan has finished.
func (c *Cache) WaitReady(ctx context.Context) error {
	select {
	case <-c.closedCh:
		return closedError()
	default:
	}
	select {
	case <-c.ready:
		return nil
	case <-c.closedCh:
		return closedError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues an event. It returns false without error when the event
// is a document event for a non-markup language. Only DocumentOpened must
// name a markup language; later events for an open document are accepted
// whatever language they carry, since editors often omit it after open.
func (c *Cache) Submit(ev Event) (bool, error) {
	if ev.Kind < FileCreated || ev.Kind > Rescan {
		return false, cerrors.New(cerrors.ErrCodeUnknownEventKind, "unknown event kind: "+ev.Kind.String(), nil)
	}
	if ev.Kind != Rescan && ev.ID == "" {
		return false, cerrors.New(cerrors.ErrCodeInvalidURI, "event has no document identity", nil)
	}
	if ev.Kind.IsDocument() && !c.acceptsDocument(ev) {
		c.filtered.Add(1)
		return false, nil
	}
	ev.done = nil
	if !c.enqueue(ev) {
		return false, closedError()
	}
	return true, nil
}

// acceptsDocument is the submit-time language check. Events without a
// language for documents that are not open yet pass here; an open event
// for them may still be queued, so apply makes the final call.
func (c *Cache) acceptsDocument(ev Event) bool {
	if c.markup.IsMarkupLanguage(ev.LanguageID) {
		return true
	}
	if ev.Kind == DocumentOpened {
		return false
	}
	return ev.LanguageID == "" || c.isOpen(ev.ID)
}

// Sync waits until every event submitted before the call has been applied.
func (c *Cache) Sync(ctx context.Context) error {
	ev := Event{Kind: barrier, done: make(chan struct{})}
	if !c.enqueue(ev) {
		return closedError()
	}
	select {
	case <-ev.done:
		return nil
	case <-c.closedCh:
		return closedError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) enqueue(ev Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, ev)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return true
}

// Subscribe forwards events from feed until feed is closed, the returned
// function is called, or the cache is closed.
func (c *Cache) Subscribe(feed <-chan Event) (unsubscribe func()) {
	stop := make(chan struct{})
	var once sync.Once
	unsubscribe = func() { once.Do(func() { close(stop) }) }

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return unsubscribe
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-c.closedCh:
				return
			case ev, ok := <-feed:
				if !ok {
					return
				}
				if _, err := c.Submit(ev); err != nil {
					c.logger.Warn("dropping lifecycle event",
						slog.String("kind", ev.Kind.String()),
						slog.String("uri", ev.ID.String()),
						slog.String("error", err.Error()))
				}
			}
		}
	}()
	return unsubscribe
}

// onClose registers fn to run when the cache is closed. It reports false if
// the cache is already closed.
func (c *Cache) onClose(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.stoppers = append(c.stoppers, fn)
	return true
}

func (c *Cache) dispatch(ctx context.Context) {
	defer c.wg.Done()

	select {
	case <-c.runner.Done():
	case <-ctx.Done():
		return
	}
	if ctx.Err() != nil {
		return
	}
	close(c.ready)

	for {
		batch := c.drain()
		for _, ev := range batch {
			if ctx.Err() != nil {
				return
			}
			c.apply(ctx, ev)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-c.notify:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.queue
	c.queue = nil
	return batch
}

func (c *Cache) apply(ctx context.Context, ev Event) {
	if ev.Kind == barrier {
		close(ev.done)
		return
	}
	c.logger.Debug("applying lifecycle event",
		slog.String("kind", ev.Kind.String()),
		slog.String("uri", ev.ID.String()))

	switch ev.Kind {
	case FileCreated, FileChanged:
		if c.isOpen(ev.ID) {
			// The editor's text is authoritative while the document is open.
			break
		}
		c.scanFile(ctx, ev.ID)
	case FileDeleted, FileRenamed:
		c.removeTree(ev.ID)
	case DocumentOpened:
		c.storeDocument(ctx, ev)
	case DocumentChanged, DocumentSaved:
		if !c.tracksDocument(ev) {
			c.filtered.Add(1)
			return
		}
		c.storeDocument(ctx, ev)
	case DocumentClosed:
		if !c.tracksDocument(ev) {
			c.filtered.Add(1)
			return
		}
		c.untrack(ev.ID)
		if c.covers(ev.ID) {
			c.scanFile(ctx, ev.ID)
		} else {
			c.index.Remove(ev.ID)
		}
	case Rescan:
		c.rescan(ctx)
	}
	c.applied.Add(1)
	if c.onApply != nil {
		c.onApply(ev)
	}
}

// tracksDocument reports whether a follow-up document event applies: the
// document is open, or the event itself names a markup language.
func (c *Cache) tracksDocument(ev Event) bool {
	return c.isOpen(ev.ID) || c.markup.IsMarkupLanguage(ev.LanguageID)
}

// storeDocument records ev's document as open and indexes its text, or the
// file on disk for a FromDisk save.
func (c *Cache) storeDocument(ctx context.Context, ev Event) {
	c.trackOpen(classindex.Document{ID: ev.ID, LanguageID: ev.LanguageID, Text: ev.Text})
	if !ev.FromDisk {
		c.index.ScanAndStore(ev.ID, ev.Text)
		return
	}
	if _, ok := ev.ID.Path(); ok {
		c.scanFile(ctx, ev.ID)
	}
}

func (c *Cache) scanFile(ctx context.Context, id classindex.Identity) {
	if c.files == nil {
		return
	}
	// Failures are logged and reconciled by ScanFile.
	_ = c.index.ScanFile(ctx, c.files, id)
}

// removeTree removes id and, if id is a directory, everything below it.
func (c *Cache) removeTree(id classindex.Identity) {
	c.index.Remove(id)
	if _, ok := id.Path(); !ok {
		return
	}
	prefix := id.String() + "/"
	for _, other := range c.index.Identities() {
		if strings.HasPrefix(other.String(), prefix) {
			c.index.Remove(other)
		}
	}
}

// coverage is implemented by file sources that can tell whether a document
// belongs to the listed set.
type coverage interface {
	Covers(id classindex.Identity) bool
}

func (c *Cache) covers(id classindex.Identity) bool {
	if c.files == nil {
		return false
	}
	if _, ok := id.Path(); !ok {
		return false
	}
	if cv, ok := c.files.(coverage); ok {
		return cv.Covers(id)
	}
	return true
}

// rescan re-lists the files and reconciles the index with the listing.
// Open documents are left alone.
func (c *Cache) rescan(ctx context.Context) {
	if c.files == nil {
		return
	}
	if inv, ok := c.files.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}

	ids, err := c.files.ListMarkupFiles(ctx)
	listed := make(map[classindex.Identity]struct{}, len(ids))
	for _, id := range ids {
		listed[id] = struct{}{}
	}

	var removed, added int
	if err != nil {
		c.logger.Warn("rescan listing incomplete, keeping existing entries",
			slog.String("error", err.Error()))
	} else {
		for _, id := range c.index.Identities() {
			if _, isFile := id.Path(); !isFile || c.isOpen(id) {
				continue
			}
			if _, ok := listed[id]; !ok {
				c.index.Remove(id)
				removed++
			}
		}
	}
	for _, id := range ids {
		if _, known := c.index.Tokens(id); known || c.isOpen(id) {
			continue
		}
		c.scanFile(ctx, id)
		added++
	}
	c.logger.Info("rescanned workspace",
		slog.Int("listed", len(ids)),
		slog.Int("removed", removed),
		slog.Int("added", added))
}

// trackOpen records doc as open. An empty language keeps the one seen
// earlier; FromDisk saves leave the text empty.
func (c *Cache) trackOpen(doc classindex.Document) {
	c.docsMu.Lock()
	if prev, ok := c.docs[doc.ID]; ok && doc.LanguageID == "" {
		doc.LanguageID = prev.LanguageID
	}
	c.docs[doc.ID] = doc
	c.docsMu.Unlock()
}

func (c *Cache) untrack(id classindex.Identity) {
	c.docsMu.Lock()
	delete(c.docs, id)
	c.docsMu.Unlock()
}

func (c *Cache) isOpen(id classindex.Identity) bool {
	c.docsMu.RLock()
	defer c.docsMu.RUnlock()
	_, ok := c.docs[id]
	return ok
}

// trackedOpen filters the initial open documents to markup languages and
// records them as open.
type trackedOpen struct {
	cache *Cache
	src   classindex.OpenDocumentSource
}

func (t trackedOpen) OpenDocuments(ctx context.Context) []classindex.Document {
	var docs []classindex.Document
	for _, doc := range t.src.OpenDocuments(ctx) {
		if !t.cache.markup.IsMarkupLanguage(doc.LanguageID) {
			continue
		}
		t.cache.trackOpen(doc)
		docs = append(docs, doc)
	}
	return docs
}

// AllTokens returns the union of every document's tokens. It never blocks
// on I/O.
func (c *Cache) AllTokens() tokens.Set {
	return c.index.AllTokens()
}

// Tokens returns the tokens contributed by one document.
func (c *Cache) Tokens(id classindex.Identity) (tokens.Set, bool) {
	return c.index.Tokens(id)
}

// Index exposes the underlying index.
func (c *Cache) Index() *classindex.Index {
	return c.index
}

// Progress returns the initialization tracker.
func (c *Cache) Progress() *async.Progress {
	return c.progress
}

// Status is a point-in-time view of a Cache.
type Status struct {
	Ready          bool                   `json:"ready"`
	Closed         bool                   `json:"closed"`
	Documents      int                    `json:"documents"`
	Tokens         int                    `json:"tokens"`
	OpenDocuments  int                    `json:"open_documents"`
	PendingEvents  int                    `json:"pending_events"`
	AppliedEvents  uint64                 `json:"applied_events"`
	FilteredEvents uint64                 `json:"filtered_events"`
	Init           classindex.InitStats   `json:"init"`
	Progress       async.ProgressSnapshot `json:"progress"`
	Watchers       []WatcherStatus        `json:"watchers,omitempty"`
}

// WatcherStatus describes one running disk watcher.
type WatcherStatus struct {
	Root           string `json:"root"`
	Mode           string `json:"mode"`
	Healthy        bool   `json:"healthy"`
	DroppedBatches uint64 `json:"dropped_batches"`
}

// Status returns the current state.
func (c *Cache) Status() Status {
	c.mu.Lock()
	s := Status{
		Closed:        c.closed,
		PendingEvents: len(c.queue),
		Init:          c.stats,
	}
	for w, root := range c.watchers {
		s.Watchers = append(s.Watchers, WatcherStatus{
			Root:           root,
			Mode:           w.WatcherType(),
			Healthy:        w.IsHealthy(),
			DroppedBatches: w.DroppedBatches(),
		})
	}
	c.mu.Unlock()
	sort.Slice(s.Watchers, func(i, j int) bool { return s.Watchers[i].Root < s.Watchers[j].Root })

	select {
	case <-c.ready:
		s.Ready = !s.Closed
	default:
	}
	c.docsMu.RLock()
	s.OpenDocuments = len(c.docs)
	c.docsMu.RUnlock()

	s.Documents = c.index.Len()
	s.Tokens = c.index.AllTokens().Len()
	s.AppliedEvents = c.applied.Load()
	s.FilteredEvents = c.filtered.Load()
	s.Progress = c.progress.Snapshot()
	return s
}

// Close stops every feed and watcher, waits for the dispatcher and drops
// the index. Safe to call more than once.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closedCh)
	stoppers := c.stoppers
	c.stoppers = nil
	cancel := c.cancel
	c.mu.Unlock()

	for _, stop := range stoppers {
		stop()
	}
	if cancel != nil {
		cancel()
	}
	c.runner.Stop()
	c.wg.Wait()

	c.mu.Lock()
	c.queue = nil
	c.mu.Unlock()

	c.index.Reset()
	c.docsMu.Lock()
	c.docs = make(map[classindex.Identity]classindex.Document)
	c.docsMu.Unlock()

	c.logger.Info("class cache closed")
	return nil
}

func closedError() error {
	return cerrors.New(cerrors.ErrCodeCacheClosed, "class cache is closed", nil)
}
