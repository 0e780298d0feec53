package mcp

import (
	"github.com/Aman-CERP/classcache/internal/async"
	"github.com/Aman-CERP/classcache/internal/workspace"
	"github.com/Aman-CERP/classcache/pkg/classindex"
)

// CSSClassesInput defines the input schema for the css_classes tool.
type CSSClassesInput struct {
	Prefix string `json:"prefix,omitempty" jsonschema:"only return classes starting with this text; a leading dot is ignored"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of items, default all"`
}

// CompletionItem is one editor completion suggestion.
type CompletionItem struct {
	Label      string `json:"label" jsonschema:"text shown in the completion list, e.g. .btn"`
	InsertText string `json:"insert_text" jsonschema:"text inserted on accept"`
	Kind       string  `json:"kind" jsonschema:"completion kind, always class"`
}

// CSSClassesOutput defines the output schema for the css_classes tool.
type CSSClassesOutput struct {
	Items []CompletionItem `json:"items" jsonschema:"completion items sorted by name"`
	Count int              `json:"count" jsonschema:"number of items returned"`
	Total int              `json:"total" jsonschema:"number of known classes before filtering"`
	Ready bool             `json:"ready" jsonschema:"false while the initial workspace scan is running"`
}

// DocumentEventInput defines the input schema for the document_event tool.
type DocumentEventInput struct {
	Kind       string  `json:"kind" jsonschema:"one of: opened, changed, saved, closed"`
	URI        string  `json:"uri" jsonschema:"document URI, e.g. file:///project/index.html"`
	LanguageID string  `json:"language_id" jsonschema:"editor language id, e.g. html"`
	Text       *string `json:"text,omitempty" jsonschema:"full document text; required for opened and changed, re-read from disk when omitted on saved"`
}

// DocumentEventOutput defines the output schema for the document_event tool.
type DocumentEventOutput struct {
	Accepted bool   `json:"accepted" jsonschema:"false when the language is not a markup language"`
	Identity string `json:"identity,omitempty" jsonschema:"canonical document identity"`
}

// CacheStatusInput defines the input schema for the cache_status tool.
type CacheStatusInput struct{}

// CacheStatusOutput defines the output schema for the cache_status tool.
type CacheStatusOutput struct {
	Version        string                    `json:"version"`
	Root           string                    `json:"root,omitempty"`
	Ready          bool                      `json:"ready"`
	Documents      int                       `json:"documents"`
	Classes        int                       `json:"classes"`
	OpenDocuments  int                       `json:"open_documents"`
	PendingEvents  int                       `json:"pending_events"`
	AppliedEvents  uint64                    `json:"applied_events"`
	FilteredEvents uint64                    `json:"filtered_events"`
	Init           classindex.InitStats      `json:"init"`
	Progress       async.ProgressSnapshot    `json:"progress"`
	Watchers       []workspace.WatcherStatus `json:"watchers,omitempty"`
}
