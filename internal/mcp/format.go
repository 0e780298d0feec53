package mcp

import (
	"strings"

	"github.com/Aman-CERP/classcache/pkg/tokens"
)

// CompletionKindClass is the kind of every class completion item.
const CompletionKindClass = "class"

// CompletionItems converts tokens to sorted completion items. Tokens not
// starting with prefix are skipped; limit <= 0 means no limit.
func CompletionItems(set tokens.Set, prefix string, limit int) []CompletionItem {
	prefix = strings.TrimPrefix(prefix, ".")

	items := make([]CompletionItem, 0, set.Len())
	for _, tok := range set.Sorted() {
		if !strings.HasPrefix(tok, prefix) {
			continue
		}
		if limit > 0 && len(items) >= limit {
			break
		}
		items = append(items, CompletionItem{
			Label:      "." + tok,
			InsertText: "." + tok,
			Kind:       CompletionKindClass,
		})
	}
	return items
}

// FormatClassList renders one ".name" per line.
func FormatClassList(set tokens.Set) string {
	var sb strings.Builder
	for _, tok := range set.Sorted() {
		sb.WriteString(".")
		sb.WriteString(tok)
		sb.WriteString("\n")
	}
	return sb.String()
}
