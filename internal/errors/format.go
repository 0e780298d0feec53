package errors

import (
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI renders err for the terminal: the message, an optional hint
// and the code. Errors that are not a CacheError are reported as internal.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ce *CacheError
	if !stderrors.As(err, &ce) {
		ce = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString("Error: " + ce.Message + "\n")
	if ce.Suggestion != "" {
		sb.WriteString("  Hint: " + ce.Suggestion + "\n")
	}
	sb.WriteString("  Code: " + ce.Code + "\n")
	return sb.String()
}

// LogAttrs returns slog attributes describing err. A CacheError contributes
// its code, category, cause and details (as detail_<key>, sorted by key).
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	var ce *CacheError
	if !stderrors.As(err, &ce) {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error", ce.Message),
		slog.String("code", ce.Code),
		slog.String("category", string(ce.Category)),
	}
	if ce.Cause != nil {
		attrs = append(attrs, slog.String("cause", ce.Cause.Error()))
	}

	keys := make([]string, 0, len(ce.Details))
	for k := range ce.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("detail_"+k, ce.Details[k]))
	}
	return attrs
}
