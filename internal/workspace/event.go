package workspace

import (
	"strings"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
	"github.com/Aman-CERP/classcache/pkg/classindex"
)

// EventKind identifies a lifecycle event.
type EventKind int

const (
	// FileCreated: a file appeared on disk.
	FileCreated EventKind = iota + 1
	// FileChanged: a file's content changed on disk.
	FileChanged
	// FileDeleted: a file or directory was removed from disk.
	FileDeleted
	// FileRenamed: a file or directory was moved away from ID.
	FileRenamed
	// DocumentOpened: the editor opened a document.
	DocumentOpened
	// DocumentChanged: the editor's unsaved text changed.
	DocumentChanged
	// DocumentSaved: the editor wrote the document to disk.
	DocumentSaved
	// DocumentClosed: the editor closed a document.
	DocumentClosed
	// Rescan: the set of visible files may have changed, e.g. after a
	// .gitignore edit.
	Rescan

	// barrier is internal to Sync.
	barrier
)

var kindNames = map[EventKind]string{
	FileCreated:     "file_created",
	FileChanged:     "file_changed",
	FileDeleted:     "file_deleted",
	FileRenamed:     "file_renamed",
	DocumentOpened:  "opened",
	DocumentChanged: "changed",
	DocumentSaved:   "saved",
	DocumentClosed:  "closed",
	Rescan:          "rescan",
	barrier:         "barrier",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsDocument reports whether k comes from the editor.
func (k EventKind) IsDocument() bool {
	return k >= DocumentOpened && k <= DocumentClosed
}

// ParseEventKind maps a name from String back to its kind.
func ParseEventKind(name string) (EventKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name && k != barrier {
			return k, nil
		}
	}
	return 0, cerrors.New(cerrors.ErrCodeUnknownEventKind, "unknown event kind: "+name, nil).
		WithSuggestion("use one of: opened, changed, saved, closed")
}

// Event is one lifecycle notification. LanguageID and Text are only
// meaningful for document events.
type Event struct {
	Kind       EventKind
	ID         classindex.Identity
	LanguageID string
	Text       string
	// FromDisk marks a DocumentSaved event that carries no text; the saved
	// content is read from disk instead.
	FromDisk   bool

	done chan struct{}
}
