package scanner

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a directory or file is excluded from a scan.
//
// Patterns without a slash match a single path segment (the directory or file
// name), either literally or as a glob. Patterns containing a slash match the
// slash-separated path relative to the scan root. Matching never falls back to
// substring containment, so "bower_components" does not exclude
// "bower_components_backup".
type Matcher struct {
	names []string
	paths []string
}

// NewMatcher compiles exclusion patterns. Empty patterns are skipped.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimSuffix(strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./"), "/")
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclusion pattern %q", p)
		}
		if strings.Contains(p, "/") {
			m.paths = append(m.paths, p)
		} else {
			m.names = append(m.names, p)
		}
	}
	return m, nil
}

// Empty reports whether the matcher has no patterns.
func (m *Matcher) Empty() bool {
	return m == nil || (len(m.names) == 0 && len(m.paths) == 0)
}

// Match reports whether the entry with the given base name and slash-separated
// root-relative path is excluded.
func (m *Matcher) Match(name, rel string) bool {
	if m.Empty() {
		return false
	}
	for _, p := range m.names {
		if p == name {
			return true
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	for _, p := range m.paths {
		if p == rel {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
