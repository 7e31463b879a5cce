// Package filter provides extension-based file filtering.
//
// A Set holds the file extensions the agent cares about. Membership is
// case-insensitive and an empty set allows every file, so a zero-value
// or nil Set is a valid "match everything" filter.
package filter

import (
	"path/filepath"
	"strings"
)

// Set is a case-insensitive set of allowed file extensions.
//
// Extensions are stored in their normalized form: lower-case, with a
// leading dot. An empty Set allows all files.
type Set struct {
	exts map[string]struct{}
}

// NewSet creates a Set from the given extensions.
//
// Extensions may be given with or without a leading dot and in any
// case; "LOG", ".log" and "log" all normalize to ".log". Empty strings
// are ignored. NewSet(nil) returns an allow-all Set.
func NewSet(extensions []string) *Set {
	s := &Set{}
	for _, ext := range extensions {
		ext = normalize(ext)
		if ext == "." {
			continue
		}
		if s.exts == nil {
			s.exts = make(map[string]struct{}, len(extensions))
		}
		s.exts[ext] = struct{}{}
	}
	return s
}

// Allows reports whether the file at path passes the filter.
//
// A path with no extension only passes an empty Set.
func (s *Set) Allows(path string) bool {
	if s.Empty() {
		return true
	}
	_, ok := s.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Empty reports whether the Set allows all files.
func (s *Set) Empty() bool {
	return s == nil || len(s.exts) == 0
}

// Len returns the number of distinct extensions in the Set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exts)
}

// normalize lower-cases an extension and ensures a leading dot.
func normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
