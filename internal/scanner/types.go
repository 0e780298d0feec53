// Package scanner discovers markup files in a project.
//
// It walks the project tree, skipping dependency directories, configured
// exclusions and .gitignore'd paths, and reports files that match the include
// globs. Globs use github.com/bmatcuk/doublestar/v4 syntax against
// slash-separated paths relative to the root.
package scanner

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path     string    // Relative to the root, slash-separated
	AbsPath  string    // Absolute path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modification time
	Language string    // Editor language ID, e.g. "html"
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the project root directory to scan.
	RootDir string

	// IncludePatterns selects files (empty = DefaultIncludePatterns).
	IncludePatterns []string

	// ExcludePatterns are skipped in addition to the default dependency
	// directories.
	ExcludePatterns []string

	// RespectGitignore enables .gitignore parsing.
	RespectGitignore bool

	// MaxFileSize is the maximum file size in bytes (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks includes symlinked files (default: false).
	FollowSymlinks bool

	// Fs is walked instead of the OS filesystem when set.
	Fs afero.Fs
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultIncludePatterns select HTML documents.
var DefaultIncludePatterns = []string{"**/*.html", "**/*.htm"}

// defaultExcludeDirs hold dependency and VCS directories. They are always
// skipped.
var defaultExcludeDirs = []string{
	"**/node_modules/**",
	"**/bower_components/**",
	"**/jspm_packages/**",
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
}

// languageMap maps file extensions to editor language IDs of markup
// formats that carry class attributes.
var languageMap = map[string]string{
	".html":       "html",
	".htm":        "html",
	".xhtml":      "html",
	".shtml":      "html",
	".vue":        "vue",
	".svelte":     "svelte",
	".astro":      "astro",
	".php":        "php",
	".erb":        "erb",
	".hbs":        "handlebars",
	".handlebars": "handlebars",
	".njk":        "nunjucks",
	".twig":       "twig",
	".jsx":        "javascriptreact",
	".tsx":        "typescriptreact",
}

// DetectLanguage returns the language ID for a markup file path, or "".
func DetectLanguage(path string) string {
	return languageMap[strings.ToLower(filepath.Ext(path))]
}
