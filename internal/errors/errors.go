package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
)

// CacheError is the structured error type for classcache.
// It provides rich context for error handling, logging, and user presentation.
type CacheError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *CacheError) Is(target error) bool {
	if t, ok := target.(*CacheError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CacheError) WithDetail(key, value string) *CacheError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CacheError) WithSuggestion(suggestion string) *CacheError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CacheError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *CacheError {
	return &CacheError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a CacheError from an existing error.
// The error's message becomes the CacheError message.
func Wrap(code string, err error) *CacheError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *CacheError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CacheError {
	return New(ErrCodeInternal, message, cause)
}

// ClassifyReadError converts a failure to read a document into a CacheError
// carrying the path. CacheErrors pass through unchanged.
func ClassifyReadError(path string, err error) *CacheError {
	if err == nil {
		return nil
	}
	var ce *CacheError
	if stderrors.As(err, &ce) {
		return ce
	}

	var out *CacheError
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		out = New(ErrCodeFileNotFound, "file not found: "+path, err)
	case stderrors.Is(err, fs.ErrPermission):
		out = New(ErrCodeFilePermission, "permission denied: "+path, err).
			WithSuggestion("Check read permissions on the file")
	default:
		out = New(ErrCodeFileRead, "cannot read file: "+path, err)
	}
	return out.WithDetail("path", path)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var ce *CacheError
	if stderrors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CacheError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *CacheError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CacheError anywhere in the chain.
func GetCategory(err error) Category {
	var ce *CacheError
	if stderrors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
