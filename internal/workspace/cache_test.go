package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/pkg/classindex"
)

const (
	pageA    classindex.Identity = "file:///site/a.html"
	pageB    classindex.Identity = "file:///site/b.html"
	nested   classindex.Identity = "file:///site/docs/c.html"
	untitled classindex.Identity = "untitled:Untitled-1"
)

// memFiles is a mutable in-memory FileSource.
type memFiles struct {
	mu      sync.Mutex
	content map[classindex.Identity]string
	block   chan struct{}
}

func newMemFiles(content map[classindex.Identity]string) *memFiles {
	return &memFiles{content: content}
}

func (m *memFiles) set(id classindex.Identity, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[id] = text
}

func (m *memFiles) remove(id classindex.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, id)
}

func (m *memFiles) ListMarkupFiles(ctx context.Context) ([]classindex.Identity, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]classindex.Identity, 0, len(m.content))
	for id := range m.content {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memFiles) ReadFile(_ context.Context, id classindex.Identity) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.content[id]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(text), nil
}

func startCache(t *testing.T, files classindex.FileSource, opts ...Option) *Cache {
	t.Helper()
	c := New(files, opts...)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.WaitReady(context.Background()))
	return c
}

func submit(t *testing.T, c *Cache, ev Event) {
	t.Helper()
	accepted, err := c.Submit(ev)
	require.NoError(t, err)
	require.True(t, accepted, "event %s was filtered", ev.Kind)
}

func tokensOf(t *testing.T, c *Cache, id classindex.Identity) []string {
	t.Helper()
	set, ok := c.Tokens(id)
	require.True(t, ok, "%s is not indexed", id)
	return set.Sorted()
}

func syncCache(t *testing.T, c *Cache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Sync(ctx))
}

func TestCache_BulkScanThenOpenDocumentsWin(t *testing.T) {
	// Given: a file on disk and the same document open with unsaved text
	files := newMemFiles(map[classindex.Identity]string{
		pageA: `<div class="disk">`,
		pageB: `<div class="other">`,
	})
	open := classindex.OpenDocuments{
		{ID: pageA, LanguageID: "html", Text: `<div class="unsaved">`},
		{ID: "file:///site/main.go", LanguageID: "go", Text: `class="gocode"`},
	}

	// When: the cache starts
	c := startCache(t, files, WithOpenDocuments(open))

	// Then: unsaved text replaces disk content and non-markup documents are skipped
	assert.Equal(t, []string{"other", "unsaved"}, c.AllTokens().Sorted())
	status := c.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Documents)
	assert.Equal(t, 1, status.OpenDocuments)
	assert.Equal(t, 2, status.Init.FilesScanned)
	assert.Equal(t, "ready", status.Progress.Status)
}

func TestCache_EventsDuringStartupApplyAfterBulkScan(t *testing.T) {
	// Given: a cache whose listing blocks until released
	files := newMemFiles(map[classindex.Identity]string{pageA: `<p class="disk">`})
	files.block = make(chan struct{})
	c := New(files)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Start(context.Background()))

	// When: an edit arrives while the bulk scan is running
	submit(t, c, Event{Kind: DocumentChanged, ID: pageA, LanguageID: "html", Text: `<p class="edited">`})
	assert.Equal(t, 1, c.Status().PendingEvents)
	assert.False(t, c.Status().Ready)
	close(files.block)

	// Then: the edit is applied after the scan and wins
	require.NoError(t, c.WaitReady(context.Background()))
	syncCache(t, c)
	assert.Equal(t, []string{"edited"}, c.AllTokens().Sorted())
}

func TestCache_ReconciliationPolicy(t *testing.T) {
	tests := []struct {
		name   string
		disk   map[classindex.Identity]string
		events []Event
		mutate func(m *memFiles)
		want   []string
	}{
		{
			name:   "file created reads disk",
			disk:   map[classindex.Identity]string{},
			mutate: func(m *memFiles) { m.set(pageA, `<a class="new">`) },
			events: []Event{{Kind: FileCreated, ID: pageA}},
			want:   []string{"new"},
		},
		{
			name:   "file deleted removes",
			disk:   map[classindex.Identity]string{pageA: `<a class="gone">`, pageB: `<a class="kept">`},
			events: []Event{{Kind: FileDeleted, ID: pageA}},
			want:   []string{"kept"},
		},
		{
			name:   "file created but unreadable is removed",
			disk:   map[classindex.Identity]string{pageA: `<a class="stale">`},
			mutate: func(m *memFiles) { m.remove(pageA) },
			events: []Event{{Kind: FileCreated, ID: pageA}},
			want:   []string{},
		},
		{
			name: "opened then changed overwrites",
			disk: map[classindex.Identity]string{pageA: `<a class="disk">`},
			events: []Event{
				{Kind: DocumentOpened, ID: pageA, LanguageID: "html", Text: `<a class="one">`},
				{Kind: DocumentChanged, ID: pageA, LanguageID: "html", Text: `<a class="two">`},
			},
			want: []string{"two"},
		},
		{
			name:   "saved stores saved text",
			disk:   map[classindex.Identity]string{pageA: `<a class="disk">`},
			events: []Event{{Kind: DocumentSaved, ID: pageA, LanguageID: "html", Text: `<a class="saved">`}},
			want:   []string{"saved"},
		},
		{
			name:   "disk modification ignored while open",
			disk:   map[classindex.Identity]string{pageA: `<a class="disk">`},
			mutate: func(m *memFiles) { m.set(pageA, `<a class="rewritten">`) },
			events: []Event{
				{Kind: DocumentChanged, ID: pageA, LanguageID: "html", Text: `<a class="editor">`},
				{Kind: FileChanged, ID: pageA},
			},
			want: []string{"editor"},
		},
		{
			name: "closing drops unsaved edits",
			disk: map[classindex.Identity]string{pageA: `<a class="disk">`},
			events: []Event{
				{Kind: DocumentChanged, ID: pageA, LanguageID: "html", Text: `<a class="unsaved">`},
				{Kind: DocumentClosed, ID: pageA, LanguageID: "html"},
			},
			want: []string{"disk"},
		},
		{
			name: "closing an untitled document removes it",
			disk: map[classindex.Identity]string{},
			events: []Event{
				{Kind: DocumentOpened, ID: untitled, LanguageID: "html", Text: `<a class="draft">`},
				{Kind: DocumentClosed, ID: untitled, LanguageID: "html"},
			},
			want: []string{},
		},
		{
			name:   "renamed directory removes everything below it",
			disk:   map[classindex.Identity]string{nested: `<a class="nested">`, pageA: `<a class="top">`},
			events: []Event{{Kind: FileRenamed, ID: "file:///site/docs"}},
			want:   []string{"top"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a started cache over the disk content
			files := newMemFiles(tt.disk)
			c := startCache(t, files)

			// When: disk changes and the events are applied
			if tt.mutate != nil {
				tt.mutate(files)
			}
			for _, ev := range tt.events {
				submit(t, c, ev)
			}
			syncCache(t, c)

			// Then: the union reflects the policy
			assert.Equal(t, tt.want, c.AllTokens().Sorted())
		})
	}
}

func TestCache_FiltersNonMarkupDocuments(t *testing.T) {
	// Given: a cache configured for html and vue
	c := startCache(t, newMemFiles(map[classindex.Identity]string{}), WithLanguages("html", "vue"))

	// When: documents of several languages change
	accepted, err := c.Submit(Event{Kind: DocumentChanged, ID: "file:///x.css", LanguageID: "css", Text: `class="css"`})
	require.NoError(t, err)
	assert.False(t, accepted)
	submit(t, c, Event{Kind: DocumentChanged, ID: "file:///x.vue", LanguageID: "VUE", Text: `class="vue"`})
	syncCache(t, c)

	// Then: only markup documents reach the index
	assert.Equal(t, []string{"vue"}, c.AllTokens().Sorted())
	assert.Equal(t, uint64(1), c.Status().FilteredEvents)
}

func TestCache_FollowUpEventsWithoutLanguage(t *testing.T) {
	// Given: pageA opened as html with unsaved text
	files := newMemFiles(map[classindex.Identity]string{pageA: `<a class="disk">`})
	c := startCache(t, files)
	submit(t, c, Event{Kind: DocumentOpened, ID: pageA, LanguageID: "html", Text: `<a class="unsaved">`})
	syncCache(t, c)

	// When: the editor closes it without naming a language and the file changes on disk
	submit(t, c, Event{Kind: DocumentClosed, ID: pageA})
	files.set(pageA, `<a class="edited-on-disk">`)
	submit(t, c, Event{Kind: FileChanged, ID: pageA})
	syncCache(t, c)

	// Then: the document is closed and disk content is authoritative
	assert.Equal(t, []string{"edited-on-disk"}, tokensOf(t, c, pageA))
	assert.Equal(t, 0, c.Status().OpenDocuments)
	assert.Zero(t, c.Status().FilteredEvents)
}

func TestCache_ChangedAndSavedWithoutLanguageApplyToOpenDocument(t *testing.T) {
	c := startCache(t, newMemFiles(map[classindex.Identity]string{pageA: `<a class="disk">`}))
	submit(t, c, Event{Kind: DocumentOpened, ID: pageA, LanguageID: "html", Text: `<a class="one">`})
	syncCache(t, c)

	submit(t, c, Event{Kind: DocumentChanged, ID: pageA, Text: `<a class="two">`})
	syncCache(t, c)
	assert.Equal(t, []string{"two"}, tokensOf(t, c, pageA))

	submit(t, c, Event{Kind: DocumentSaved, ID: pageA, Text: `<a class="three">`})
	syncCache(t, c)
	assert.Equal(t, []string{"three"}, tokensOf(t, c, pageA))
	assert.Equal(t, 1, c.Status().OpenDocuments)
}

func TestCache_UnknownDocumentWithoutLanguageIsFilteredOnApply(t *testing.T) {
	// Given: a document that was never opened
	c := startCache(t, newMemFiles(map[classindex.Identity]string{pageA: `<a class="disk">`}))

	// When: a change without a language arrives for it
	submit(t, c, Event{Kind: DocumentChanged, ID: "file:///site/notes.txt", Text: `class="plain"`})
	syncCache(t, c)

	// Then: it never reaches the index
	assert.Equal(t, []string{"disk"}, c.AllTokens().Sorted())
	assert.Equal(t, uint64(1), c.Status().FilteredEvents)
	assert.Equal(t, 0, c.Status().OpenDocuments)
}

func TestCache_SavedFromDiskRereadsFile(t *testing.T) {
	// Given: pageA open with editor text
	files := newMemFiles(map[classindex.Identity]string{pageA: `<a class="disk">`})
	c := startCache(t, files)
	submit(t, c, Event{Kind: DocumentOpened, ID: pageA, LanguageID: "html", Text: `<a class="btn">`})
	syncCache(t, c)

	// When: the editor saves without sending text
	files.set(pageA, `<a class="btn saved">`)
	submit(t, c, Event{Kind: DocumentSaved, ID: pageA, FromDisk: true})
	syncCache(t, c)

	// Then: the saved file is indexed and the document stays open
	assert.Equal(t, []string{"btn", "saved"}, tokensOf(t, c, pageA))
	assert.Equal(t, 1, c.Status().OpenDocuments)
}

func TestCache_Submit_Validation(t *testing.T) {
	c := startCache(t, nil)

	tests := []struct {
		name string
		ev   Event
		code string
	}{
		{"zero kind", Event{ID: pageA}, cerrors.ErrCodeUnknownEventKind},
		{"internal kind", Event{Kind: barrier, ID: pageA}, cerrors.ErrCodeUnknownEventKind},
		{"missing id", Event{Kind: DocumentChanged, LanguageID: "html"}, cerrors.ErrCodeInvalidURI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, err := c.Submit(tt.ev)
			assert.False(t, accepted)
			assert.Equal(t, tt.code, cerrors.GetCode(err))
		})
	}
}

func TestCache_RescanReconcilesListing(t *testing.T) {
	// Given: a cache over two files, one also open in the editor
	files := newMemFiles(map[classindex.Identity]string{
		pageA: `<a class="a">`,
		pageB: `<a class="b">`,
	})
	c := startCache(t, files)
	submit(t, c, Event{Kind: DocumentOpened, ID: pageB, LanguageID: "html", Text: `<a class="b-open">`})

	// When: both files leave the listing, a new one appears, and a rescan runs
	files.remove(pageA)
	files.remove(pageB)
	files.set(nested, `<a class="c">`)
	submit(t, c, Event{Kind: Rescan})
	syncCache(t, c)

	// Then: the unlisted file is gone, the open document stays, the new file is added
	assert.Equal(t, []string{"b-open", "c"}, c.AllTokens().Sorted())
}

func TestCache_SubscribeForwardsFeedsInOrder(t *testing.T) {
	// Given: a cache and a feed
	c := startCache(t, nil)
	feed := make(chan Event)
	unsubscribe := c.Subscribe(feed)
	defer unsubscribe()

	// When: many edits of one document arrive through the feed
	for i := 0; i < 50; i++ {
		feed <- Event{Kind: DocumentChanged, ID: untitled, LanguageID: "html", Text: fmt.Sprintf(`<a class="v%d">`, i)}
	}

	// Then: the last edit wins
	require.Eventually(t, func() bool {
		set, ok := c.Tokens(untitled)
		return ok && set.Has("v49")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"v49"}, c.AllTokens().Sorted())
}

func TestCache_CloseTearsDown(t *testing.T) {
	// Given: a populated cache with a live feed
	c := New(newMemFiles(map[classindex.Identity]string{pageA: `<a class="x">`}))
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.WaitReady(context.Background()))
	feed := make(chan Event)
	c.Subscribe(feed)
	require.Equal(t, 1, c.AllTokens().Len())

	// When: it is closed twice
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// Then: the index is dropped and further use fails
	assert.Zero(t, c.AllTokens().Len())
	assert.True(t, c.Status().Closed)
	assert.False(t, c.Status().Ready)
	_, err := c.Submit(Event{Kind: DocumentChanged, ID: pageA, LanguageID: "html"})
	assert.Equal(t, cerrors.ErrCodeCacheClosed, cerrors.GetCode(err))
	assert.Equal(t, cerrors.ErrCodeCacheClosed, cerrors.GetCode(c.Sync(context.Background())))
	assert.Equal(t, cerrors.ErrCodeCacheClosed, cerrors.GetCode(c.Start(context.Background())))
	assert.Equal(t, cerrors.ErrCodeCacheClosed, cerrors.GetCode(c.WaitReady(context.Background())))
}

func TestCache_CloseDuringInitialization(t *testing.T) {
	// Given: a cache stuck listing files
	files := newMemFiles(map[classindex.Identity]string{pageA: `<a class="x">`})
	files.block = make(chan struct{})
	c := New(files)
	require.NoError(t, c.Start(context.Background()))

	// When: it is closed before the scan finishes
	done := make(chan struct{})
	go func() {
		_ = c.Close()
		close(done)
	}()

	// Then: Close returns without the listing being released
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on initialization")
	}
	assert.Equal(t, "error", c.Progress().Snapshot().Status)
}

func TestCache_ConcurrentQueriesDuringUpdates(t *testing.T) {
	// Given: a running cache
	c := startCache(t, nil)

	// When: writers submit edits while readers query
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := classindex.Identity(fmt.Sprintf("untitled:%d", w))
			for i := 0; i < 100; i++ {
				_, _ = c.Submit(Event{Kind: DocumentChanged, ID: id, LanguageID: "html", Text: `<a class="p q">`})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				set := c.AllTokens()
				// Every document contributes both tokens or none.
				assert.Equal(t, set.Has("p"), set.Has("q"))
			}
		}()
	}
	wg.Wait()
	syncCache(t, c)

	// Then: every writer's document is present
	assert.Equal(t, 4, c.Status().Documents)
}

func TestCache_ApplyHookSeesAppliedEvents(t *testing.T) {
	// Given: a cache with an apply hook
	var mu sync.Mutex
	var seen []EventKind
	hook := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Kind)
	}
	c := startCache(t, newMemFiles(map[classindex.Identity]string{}), WithApplyHook(hook))

	// When: an accepted and a filtered event are submitted
	submit(t, c, Event{Kind: DocumentOpened, ID: pageA, LanguageID: "html", Text: `<i class="x">`})
	accepted, err := c.Submit(Event{Kind: DocumentOpened, ID: "file:///site/main.go", LanguageID: "go"})
	require.NoError(t, err)
	assert.False(t, accepted)
	syncCache(t, c)

	// Then: only the applied event reaches the hook and barriers are hidden
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{DocumentOpened}, seen)
}
