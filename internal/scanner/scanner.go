package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/Aman-CERP/classcache/internal/gitignore"
)

// gitignoreCacheSize bounds the number of parsed .gitignore files kept.
const gitignoreCacheSize = 1000

// Scanner discovers markup files in a project directory.
type Scanner struct {
	// gitignoreCache holds parsed matchers by directory; nil entries mark
	// directories without a .gitignore.
	gitignoreCache *lru.Cache[string, *gitignore.Matcher]
	cacheMu        sync.Mutex
}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{gitignoreCache: cache}, nil
}

// Scan streams every matching file under opts.RootDir. The channel is
// closed when the walk ends; a walk error is sent as the last result.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	absRoot, o, err := prepare(opts)
	if err != nil {
		return nil, err
	}

	results := make(chan ScanResult, 64)
	go func() {
		defer close(results)
		s.walk(ctx, absRoot, o, results)
	}()
	return results, nil
}

// Collect runs Scan and gathers the files.
func (s *Scanner) Collect(ctx context.Context, opts *ScanOptions) ([]FileInfo, error) {
	results, err := s.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	var walkErr error
	for r := range results {
		if r.Error != nil {
			walkErr = r.Error
			continue
		}
		files = append(files, *r.File)
	}
	if walkErr == nil {
		walkErr = ctx.Err()
	}
	return files, walkErr
}

// Matches reports whether relPath (relative to the root) would be reported
// by Scan, ignoring size and content checks. It is used to filter watcher
// events without walking the tree.
func (s *Scanner) Matches(relPath string, opts *ScanOptions) bool {
	absRoot, o, err := prepare(opts)
	if err != nil {
		return false
	}
	rel := filepath.ToSlash(relPath)
	if rel == "" || rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}

	dirs := strings.Split(rel, "/")
	for i := 1; i < len(dirs); i++ {
		if s.excludeDir(strings.Join(dirs[:i], "/"), absRoot, o) {
			return false
		}
	}
	return s.includeFile(rel, absRoot, o)
}

func prepare(opts *ScanOptions) (string, ScanOptions, error) {
	var o ScanOptions
	if opts != nil {
		o = *opts
	}
	if o.RootDir == "" {
		o.RootDir = "."
	}
	if len(o.IncludePatterns) == 0 {
		o.IncludePatterns = DefaultIncludePatterns
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}

	absRoot, err := filepath.Abs(o.RootDir)
	if err != nil {
		return "", o, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := o.Fs.Stat(absRoot)
	if err != nil {
		return "", o, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return "", o, fmt.Errorf("root path is not a directory: %s", absRoot)
	}
	return absRoot, o, nil
}

func (s *Scanner) walk(ctx context.Context, absRoot string, opts ScanOptions, results chan<- ScanResult) {
	err := afero.Walk(opts.Fs, absRoot, func(path string, fi os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped.
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			if s.excludeDir(rel, absRoot, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.includeFile(rel, absRoot, opts) {
			return nil
		}

		info, err := fileInfo(opts.Fs, path, fi, opts.FollowSymlinks)
		if err != nil || info == nil {
			return nil
		}
		if info.Size() > opts.MaxFileSize || isBinaryFile(opts.Fs, path) {
			return nil
		}

		file := &FileInfo{
			Path:     rel,
			AbsPath:  path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Language: DetectLanguage(rel),
		}
		select {
		case results <- ScanResult{File: file}:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// fileInfo returns info for regular files, following symlinks if asked.
// Returns nil info for anything else.
func fileInfo(fsys afero.Fs, path string, info os.FileInfo, follow bool) (os.FileInfo, error) {
	if info.Mode()&os.ModeSymlink != 0 {
		if !follow {
			return nil, nil
		}
		target, err := fsys.Stat(path)
		if err != nil || !target.Mode().IsRegular() {
			return nil, err
		}
		return target, nil
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	return info, nil
}

func (s *Scanner) excludeDir(rel, absRoot string, opts ScanOptions) bool {
	for _, p := range defaultExcludeDirs {
		if matchDir(p, rel) {
			return true
		}
	}
	for _, p := range opts.ExcludePatterns {
		if matchDir(p, rel) {
			return true
		}
	}
	return opts.RespectGitignore && s.isGitignored(opts.Fs, rel, absRoot, true)
}

func (s *Scanner) includeFile(rel, absRoot string, opts ScanOptions) bool {
	if !matchAny(opts.IncludePatterns, rel) {
		return false
	}
	if matchAny(opts.ExcludePatterns, rel) {
		return false
	}
	return !(opts.RespectGitignore && s.isGitignored(opts.Fs, rel, absRoot, false))
}

// matchDir matches a directory against a glob written for its contents:
// "**/node_modules/**" matches the directory "a/node_modules" itself.
func matchDir(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}
	if trimmed := strings.TrimSuffix(pattern, "/**"); trimmed != pattern {
		ok, _ := doublestar.Match(trimmed, rel)
		return ok
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// isBinaryFile reports whether the first 512 bytes contain a NUL.
func isBinaryFile(fsys afero.Fs, path string) bool {
	f, err := fsys.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// isGitignored checks rel against the root .gitignore and every nested
// .gitignore on the way down to it.
func (s *Scanner) isGitignored(fsys afero.Fs, rel, absRoot string, isDir bool) bool {
	if m := s.gitignoreMatcher(fsys, absRoot, ""); m != nil && m.Match(rel, isDir) {
		return true
	}

	parts := strings.Split(rel, "/")
	dir := absRoot
	for i := 0; i < len(parts)-1; i++ {
		dir = filepath.Join(dir, parts[i])
		base := strings.Join(parts[:i+1], "/")
		if m := s.gitignoreMatcher(fsys, dir, base); m != nil && m.Match(rel, isDir) {
			return true
		}
	}
	return false
}

// gitignoreMatcher returns the parsed .gitignore of dir, or nil if it has none.
func (s *Scanner) gitignoreMatcher(fsys afero.Fs, dir, base string) *gitignore.Matcher {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if m, ok := s.gitignoreCache.Get(dir); ok {
		return m
	}

	var m *gitignore.Matcher
	path := filepath.Join(dir, ".gitignore")
	if f, err := fsys.Open(path); err == nil {
		m = gitignore.New()
		if err := m.AddFromReader(f, base); err != nil {
			m = nil
		}
		_ = f.Close()
	}
	s.gitignoreCache.Add(dir, m)
	return m
}

// InvalidateGitignoreCache drops every parsed .gitignore. Call it when a
// .gitignore file changes.
func (s *Scanner) InvalidateGitignoreCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.gitignoreCache.Purge()
}
