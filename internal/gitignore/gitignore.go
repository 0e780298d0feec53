package gitignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds gitignore rules and provides thread-safe matching.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// rule is one gitignore line translated to a doublestar glob.
type rule struct {
	glob     string // relative to base
	negation bool
	dirOnly  bool
	base     string // slash-separated directory of the .gitignore, "" for root
}

// New creates a new empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern adds a gitignore pattern relative to the root.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies under base.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	r, ok := compile(pattern)
	if !ok {
		return
	}
	r.base = strings.Trim(filepath.ToSlash(base), "/")

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// compile parses one gitignore line. ok is false for blanks and comments.
func compile(line string) (rule, bool) {
	var r rule

	// "\ " at the end keeps one trailing space.
	escapedSpace := strings.HasSuffix(line, `\ `)
	p := strings.TrimSpace(line)
	if escapedSpace {
		p = strings.TrimSuffix(p, `\`) + " "
	}
	if p == "" || strings.HasPrefix(p, "#") {
		return r, false
	}

	switch {
	case strings.HasPrefix(p, `\#`), strings.HasPrefix(p, `\!`):
		p = p[1:]
	case strings.HasPrefix(p, "!"):
		r.negation = true
		p = p[1:]
	}

	if strings.HasSuffix(p, "/") {
		r.dirOnly = true
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return r, false
	}

	// A slash anywhere but the end anchors the pattern to its base.
	anchored := strings.Contains(p, "/")
	p = strings.TrimPrefix(p, "/")
	p = escapeBraces(p)
	p = strings.ReplaceAll(p, "[!", "[^")
	if !anchored {
		p = "**/" + p
	}
	r.glob = p
	return r, true
}

// escapeBraces makes { and } literal; gitignore has no alternation.
func escapeBraces(p string) string {
	if !strings.ContainsAny(p, "{}") {
		return p
	}
	var sb strings.Builder
	for _, c := range p {
		if c == '{' || c == '}' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// AddFromFile reads patterns from a gitignore file that lives in base.
func (m *Matcher) AddFromFile(path, base string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open gitignore file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return m.AddFromReader(f, base)
}

// AddFromReader reads gitignore patterns from r for a file that lives in base.
func (m *Matcher) AddFromReader(r io.Reader, base string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read gitignore file: %w", err)
	}
	return nil
}

// Match reports whether path, relative to the root, is ignored.
// The last matching rule wins.
func (m *Matcher) Match(path string, isDir bool) bool {
	path = strings.Trim(filepath.ToSlash(path), "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if r.matches(path, isDir) {
			ignored = !r.negation
		}
	}
	return ignored
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

func (r rule) matches(path string, isDir bool) bool {
	rel := path
	if r.base != "" {
		if !strings.HasPrefix(path, r.base+"/") {
			return false
		}
		rel = path[len(r.base)+1:]
	}

	if ok, _ := doublestar.Match(r.glob, rel); ok && (!r.dirOnly || isDir) {
		return true
	}

	// A matching ancestor directory ignores everything beneath it.
	for i := 0; i < len(rel); i++ {
		if rel[i] != '/' {
			continue
		}
		if ok, _ := doublestar.Match(r.glob, rel[:i]); ok {
			return true
		}
	}
	return false
}
