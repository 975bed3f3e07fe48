package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns are the names browsers and editors use for files
// that are still being written.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.partial",
		"*.download",
		"*.crdownload",
		".~*",
		"~$*",
		".*.tmp-*", // atomic writes in progress
	}
}

// Filter decides which filesystem events in the watched directory matter.
type Filter struct {
	dir      string
	patterns []string
	excluded map[string]bool
}

// NewFilter builds a Filter for dir using the default patterns plus extra.
// Invalid patterns never match.
func NewFilter(dir string, extra []string) *Filter {
	patterns := DefaultIgnorePatterns()
	for _, p := range extra {
		patterns = append(patterns, strings.ToLower(p))
	}
	return &Filter{
		dir:      filepath.Clean(dir),
		patterns: patterns,
		excluded: make(map[string]bool),
	}
}

// Exclude marks exact paths, such as the history log, whose changes are
// never relevant.
func (f *Filter) Exclude(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		f.excluded[filepath.Clean(p)] = true
	}
}

// Ignored reports whether the base name of path matches an ignore pattern.
// Matching is case-insensitive.
func (f *Filter) Ignored(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, p := range f.patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Relevant reports whether an event on path should schedule an organize
// run: it must name a direct child of the watched directory that is neither
// excluded nor ignored.
func (f *Filter) Relevant(path string) bool {
	path = filepath.Clean(path)
	if filepath.Dir(path) != f.dir || f.excluded[path] {
		return false
	}
	return !f.Ignored(path)
}

// Patterns returns a copy of the active patterns.
func (f *Filter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}
