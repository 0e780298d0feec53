package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Aman-CERP/classcache/internal/config"
	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/internal/scanner"
	"github.com/Aman-CERP/classcache/pkg/classindex"
)

// DiskSource lists markup files under a root with the scanner and reads
// them, both through an afero.Fs.
type DiskSource struct {
	root    string
	fs      afero.Fs
	scanner *scanner.Scanner
	opts    scanner.ScanOptions
}

// DiskOption configures a DiskSource.
type DiskOption func(*DiskSource)

// WithFs lists and reads files through fs instead of the OS filesystem.
func WithFs(fs afero.Fs) DiskOption {
	return func(d *DiskSource) {
		d.fs = fs
	}
}

// NewDiskSource creates a source rooted at root. A nil cfg means defaults.
func NewDiskSource(root string, cfg *config.Config, opts ...DiskOption) (*DiskSource, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidPath, "cannot resolve root: "+root, err)
	}
	sc, err := scanner.New()
	if err != nil {
		return nil, cerrors.InternalError("failed to create scanner", err)
	}

	d := &DiskSource{
		root:    abs,
		fs:      afero.NewOsFs(),
		scanner: sc,
		opts: scanner.ScanOptions{
			RootDir:          abs,
			IncludePatterns:  cfg.Paths.Include,
			ExcludePatterns:  cfg.Paths.Exclude,
			RespectGitignore: cfg.Paths.GitignoreEnabled(),
			MaxFileSize:      cfg.Scan.MaxFileSize,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.opts.Fs = d.fs
	return d, nil
}

// Root returns the absolute project root.
func (d *DiskSource) Root() string {
	return d.root
}

// ListMarkupFiles implements classindex.FileSource.
func (d *DiskSource) ListMarkupFiles(ctx context.Context) ([]classindex.Identity, error) {
	files, err := d.scanner.Collect(ctx, &d.opts)
	ids := make([]classindex.Identity, 0, len(files))
	for _, f := range files {
		id, idErr := classindex.IdentityFromPath(f.AbsPath)
		if idErr != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err != nil {
		return ids, fmt.Errorf("list markup files: %w", err)
	}
	return ids, nil
}

// ReadFile implements classindex.FileSource. Files larger than the
// configured limit fail with ErrCodeFileTooLarge.
func (d *DiskSource) ReadFile(ctx context.Context, id classindex.Identity) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := id.Path()
	if !ok {
		return nil, cerrors.New(cerrors.ErrCodeInvalidURI, "not a file document: "+id.String(), nil)
	}

	info, err := d.fs.Stat(path)
	if err != nil {
		return nil, cerrors.ClassifyReadError(path, err)
	}
	if info.IsDir() {
		return nil, cerrors.New(cerrors.ErrCodeFileRead, "path is a directory", nil).
			WithDetail("path", path)
	}
	if limit := d.maxFileSize(); info.Size() > limit {
		return nil, cerrors.New(cerrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds %d bytes", limit), nil).
			WithDetail("path", path).
			WithSuggestion("raise scan.max_file_size in .classcache.yaml")
	}

	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, cerrors.ClassifyReadError(path, err)
	}
	return data, nil
}

func (d *DiskSource) maxFileSize() int64 {
	if d.opts.MaxFileSize > 0 {
		return d.opts.MaxFileSize
	}
	return scanner.DefaultMaxFileSize
}

// Relative returns the slash-separated path of id below the root.
func (d *DiskSource) Relative(id classindex.Identity) (string, bool) {
	path, ok := id.Path()
	if !ok {
		return "", false
	}
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// IdentityOf returns the identity of a slash-separated path below the root.
func (d *DiskSource) IdentityOf(rel string) (classindex.Identity, error) {
	return classindex.IdentityFromPath(filepath.Join(d.root, filepath.FromSlash(rel)))
}

// Matches reports whether rel would be listed, without checking size or
// content.
func (d *DiskSource) Matches(rel string) bool {
	return d.scanner.Matches(rel, &d.opts)
}

// Invalidate drops cached .gitignore rules so the next listing rereads them.
func (d *DiskSource) Invalidate() {
	d.scanner.InvalidateGitignoreCache()
}

// Covers reports whether id is a file below the root that would be listed.
func (d *DiskSource) Covers(id classindex.Identity) bool {
	rel, ok := d.Relative(id)
	return ok && d.Matches(rel)
}
