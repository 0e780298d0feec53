package tokens

import "sort"

// Set is an unordered collection of distinct, non-empty class tokens.
type Set map[string]struct{}

// NewSet returns a set containing the given tokens. Empty strings are skipped.
func NewSet(tokens ...string) Set {
	s := make(Set, len(tokens))
	for _, tok := range tokens {
		s.Add(tok)
	}
	return s
}

// Add inserts tok. The empty string is never stored.
func (s Set) Add(tok string) {
	if tok == "" {
		return
	}
	s[tok] = struct{}{}
}

// Has reports whether tok is in the set.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Len returns the number of tokens.
func (s Set) Len() int {
	return len(s)
}

// Merge adds every token of other to s.
func (s Set) Merge(other Set) {
	for tok := range other {
		s[tok] = struct{}{}
	}
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Merge(s)
	return out
}

// Sorted returns the tokens in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold exactly the same tokens.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for tok := range s {
		if !other.Has(tok) {
			return false
		}
	}
	return true
}
