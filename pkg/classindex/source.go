package classindex

import "context"

// FileSource enumerates and reads markup files on disk.
type FileSource interface {
	// ListMarkupFiles returns every markup file in the workspace,
	// excluding dependency directories.
	ListMarkupFiles(ctx context.Context) ([]Identity, error)

	// ReadFile returns the raw bytes of a file. It may fail if the file
	// vanished or cannot be read.
	ReadFile(ctx context.Context, id Identity) ([]byte, error)
}

// Document is a document currently open in an editor.
type Document struct {
	ID         Identity
	LanguageID string
	Text       string
}

// OpenDocumentSource lists documents open in an editor with their live,
// possibly unsaved, text.
type OpenDocumentSource interface {
	OpenDocuments(ctx context.Context) []Document
}

// OpenDocuments is a fixed list of open documents.
type OpenDocuments []Document

// OpenDocuments implements OpenDocumentSource.
func (d OpenDocuments) OpenDocuments(context.Context) []Document {
	return d
}
