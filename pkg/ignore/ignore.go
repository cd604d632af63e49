// Package ignore implements the glob exclusion sets applied during copies
// and archive extraction.
package ignore

import (
	"path/filepath"
	"strings"
)

// Set is an ordered list of glob patterns. A path is ignored when any
// pattern matches either its base name or its slash-separated path relative
// to the copy root.
type Set struct {
	patterns []string
}

// NewSet builds a Set from one or more pattern lists. Later lists are
// appended after earlier ones; order does not affect matching.
func NewSet(patternLists ...[]string) *Set {
	s := &Set{}
	for _, list := range patternLists {
		s.patterns = append(s.patterns, list...)
	}
	return s
}

// Patterns returns the patterns in the set.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	return s.patterns
}

// Empty reports whether the set has no patterns.
func (s *Set) Empty() bool {
	return s == nil || len(s.patterns) == 0
}

// Match reports whether relPath (slash-separated, relative to the copy root)
// is excluded by the set. Both the full relative path and every path element
// are tested, so a pattern like "__pycache__" excludes the directory at any
// depth, matching fnmatch-style ignore semantics.
func (s *Set) Match(relPath string) bool {
	if s.Empty() {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	base := relPath
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		base = relPath[idx+1:]
	}
	for _, pattern := range s.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		// Any ancestor element matching the pattern excludes the subtree.
		for _, elem := range strings.Split(relPath, "/") {
			if matched, _ := filepath.Match(pattern, elem); matched {
				return true
			}
		}
	}
	return false
}

// MatchLine reports whether a full text line matches any pattern in the set.
// Used for dependency-list filtering, where patterns are matched against the
// whole line rather than a path.
func (s *Set) MatchLine(line string) bool {
	if s.Empty() {
		return false
	}
	for _, pattern := range s.patterns {
		if matched, _ := filepath.Match(pattern, line); matched {
			return true
		}
	}
	return false
}
