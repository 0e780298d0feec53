package classindex

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
)

// Identity is the stable key of a document: its canonical URI.
//
// File documents use a percent-encoded file URL of the cleaned absolute
// path, so the same file read from disk and opened in an editor share one
// identity. Documents with other schemes keep their URI verbatim.
type Identity string

// String returns the identity as a URI string.
func (id Identity) String() string {
	return string(id)
}

// IdentityFromPath builds the identity of a file on disk.
func IdentityFromPath(path string) (Identity, error) {
	if path == "" {
		return "", cerrors.New(cerrors.ErrCodeInvalidPath, "empty path", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", cerrors.New(cerrors.ErrCodeInvalidPath, "cannot resolve path: "+path, err)
	}
	slashed := filepath.ToSlash(filepath.Clean(abs))
	if !strings.HasPrefix(slashed, "/") {
		// Windows volume paths become file:///C:/...
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return Identity(u.String()), nil
}

// ParseIdentity canonicalizes a document URI as sent by an editor.
// Bare absolute paths are accepted and treated as files.
func ParseIdentity(uri string) (Identity, error) {
	if uri == "" {
		return "", cerrors.New(cerrors.ErrCodeInvalidURI, "empty document uri", nil)
	}
	if filepath.IsAbs(uri) {
		return IdentityFromPath(uri)
	}

	u, err := url.Parse(uri)
	if err != nil {
		return "", cerrors.New(cerrors.ErrCodeInvalidURI, "invalid document uri: "+uri, err)
	}
	if u.Scheme == "" {
		return "", cerrors.New(cerrors.ErrCodeInvalidURI, "document uri has no scheme: "+uri, nil)
	}
	if !strings.EqualFold(u.Scheme, "file") {
		return Identity(uri), nil
	}
	return IdentityFromPath(filePathFromURL(u))
}

// Path returns the filesystem path for file identities.
func (id Identity) Path() (string, bool) {
	u, err := url.Parse(string(id))
	if err != nil || !strings.EqualFold(u.Scheme, "file") {
		return "", false
	}
	return filePathFromURL(u), true
}

func filePathFromURL(u *url.URL) string {
	p := u.Path
	if runtime.GOOS == "windows" && len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}
