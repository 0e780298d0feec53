package gitignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		expected bool
	}{
		{name: "exact filename", patterns: []string{"foo.html"}, path: "foo.html", expected: true},
		{name: "other filename", patterns: []string{"foo.html"}, path: "bar.html", expected: false},
		{name: "filename in subdir", patterns: []string{"foo.html"}, path: "a/b/foo.html", expected: true},
		{name: "extension wildcard", patterns: []string{"*.tmp.html"}, path: "pages/x.tmp.html", expected: true},
		{name: "question mark", patterns: []string{"page?.html"}, path: "page1.html", expected: true},
		{name: "character class", patterns: []string{"page[0-9].html"}, path: "page7.html", expected: true},
		{name: "negated class", patterns: []string{"page[!0-9].html"}, path: "page7.html", expected: false},
		{name: "negated class matches letter", patterns: []string{"page[!0-9].html"}, path: "pagex.html", expected: true},
		{name: "rooted pattern at root", patterns: []string{"/build"}, path: "build/index.html", expected: true},
		{name: "rooted pattern nested", patterns: []string{"/build"}, path: "src/build/index.html", expected: false},
		{name: "inner slash anchors", patterns: []string{"docs/api"}, path: "docs/api/a.html", expected: true},
		{name: "inner slash nested", patterns: []string{"docs/api"}, path: "x/docs/api/a.html", expected: false},
		{name: "double star prefix", patterns: []string{"**/generated"}, path: "a/b/generated/x.html", expected: true},
		{name: "double star middle", patterns: []string{"a/**/z.html"}, path: "a/b/c/z.html", expected: true},
		{name: "dir only matches dir", patterns: []string{"dist/"}, path: "dist", isDir: true, expected: true},
		{name: "dir only skips file", patterns: []string{"dist/"}, path: "dist", isDir: false, expected: false},
		{name: "dir only matches contents", patterns: []string{"dist/"}, path: "dist/index.html", expected: true},
		{name: "negation re-includes", patterns: []string{"*.html", "!keep.html"}, path: "keep.html", expected: false},
		{name: "negation order matters", patterns: []string{"!keep.html", "*.html"}, path: "keep.html", expected: true},
		{name: "comment ignored", patterns: []string{"# *.html"}, path: "a.html", expected: false},
		{name: "escaped hash", patterns: []string{`\#notes.html`}, path: "#notes.html", expected: true},
		{name: "escaped bang", patterns: []string{`\!x.html`}, path: "!x.html", expected: true},
		{name: "braces are literal", patterns: []string{"{a,b}.html"}, path: "a.html", expected: false},
		{name: "braces literal match", patterns: []string{"{a,b}.html"}, path: "{a,b}.html", expected: true},
		{name: "blank line", patterns: []string{"   "}, path: "a.html", expected: false},
		{name: "windows separators", patterns: []string{"dist/"}, path: `dist\index.html`, expected: filepath.Separator == '\\'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for _, p := range tt.patterns {
				m.AddPattern(p)
			}
			assert.Equal(t, tt.expected, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestMatcher_EscapedTrailingSpace(t *testing.T) {
	m := New()
	m.AddPattern(`name\ `)

	assert.True(t, m.Match("name ", false))
	assert.False(t, m.Match("name", false))
}

func TestMatcher_BaseScopesRules(t *testing.T) {
	// Given: a rule from site/.gitignore
	m := New()
	m.AddPatternWithBase("*.draft.html", "site")

	// Then: it only applies under site/
	assert.True(t, m.Match("site/a.draft.html", false))
	assert.True(t, m.Match("site/x/a.draft.html", false))
	assert.False(t, m.Match("other/a.draft.html", false))
	assert.False(t, m.Match("a.draft.html", false))
}

func TestMatcher_AddFromFile(t *testing.T) {
	// Given: a .gitignore on disk
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	content := "# build output\ndist/\n*.bak.html\n!important.bak.html\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	// When: loading it
	m := New()
	require.NoError(t, m.AddFromFile(path, ""))

	// Then: rules apply
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Match("dist/index.html", false))
	assert.True(t, m.Match("pages/old.bak.html", false))
	assert.False(t, m.Match("important.bak.html", false))
	assert.False(t, m.Match("index.html", false))
}

func TestMatcher_AddFromFile_Missing(t *testing.T) {
	m := New()
	err := m.AddFromFile(filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMatcher_AddFromReader(t *testing.T) {
	m := New()
	require.NoError(t, m.AddFromReader(strings.NewReader("# drafts\n*.tmp.html\n!keep.tmp.html\n"), "docs"))

	assert.True(t, m.Match("docs/a.tmp.html", false))
	assert.False(t, m.Match("docs/keep.tmp.html", false))
	assert.False(t, m.Match("a.tmp.html", false))
}

func TestMatcher_ConcurrentAccess(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.AddPattern("*.tmp")
		}()
		go func() {
			defer wg.Done()
			_ = m.Match("a/b.tmp", false)
		}()
	}
	wg.Wait()
	assert.True(t, m.Match("a/b.tmp", false))
}
