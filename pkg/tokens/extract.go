// Package tokens extracts CSS class tokens from markup text.
//
// Extraction is a pure function: it keeps no state between calls and never
// fails. Malformed markup simply yields fewer tokens.
package tokens

import (
	"regexp"
	"strings"
)

// classAttr matches class="..." or class='...' with optional whitespace
// around '='. The value runs to the next occurrence of its opening quote.
// The attribute name is case-sensitive and not anchored to a word boundary.
var classAttr = regexp.MustCompile(`class\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Extract returns every distinct class token found in class attributes of text.
func Extract(text string) Set {
	out := make(Set)
	for _, m := range classAttr.FindAllStringSubmatch(text, -1) {
		value := m[1]
		if value == "" {
			value = m[2]
		}
		for _, tok := range strings.Fields(value) {
			out.Add(tok)
		}
	}
	return out
}
