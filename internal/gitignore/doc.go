// Package gitignore matches paths against .gitignore rules.
//
// Each rule is translated to a github.com/bmatcuk/doublestar/v4 glob.
// Supported syntax: wildcards (*, ?, **), character classes, rooted
// patterns (/build), negation (!keep.html), directory-only patterns
// (build/) and nested .gitignore files scoped to their directory.
//
//	m := gitignore.New()
//	m.AddPattern("dist/")
//	m.AddFromFile("site/docs/.gitignore", "docs")
//	if m.Match("dist/index.html", false) {
//	    // ignored
//	}
package gitignore
