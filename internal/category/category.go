// Package category maps file extensions to the category folders files are sorted into.
package category

import "strings"

// DefaultCategory is used when no rule claims an extension.
const DefaultCategory = "Others"

// NoExtension is the sentinel extension reported for files without one.
const NoExtension = "no_ext"

// Rule assigns a set of extensions (with leading dot) to a category.
type Rule struct {
	Category   string   `toml:"name"`
	Extensions []string `toml:"extensions"`
}

// Rules is an ordered rule list with a fallback category.
// Lookups are case-insensitive on the extension.
type Rules struct {
	rules    []Rule
	fallback string
}

// DefaultRuleSet returns the built-in extension table.
func DefaultRuleSet() []Rule {
	return []Rule{
		{Category: "Documents", Extensions: []string{".pdf", ".docx", ".txt", ".xlsx", ".csv", ".pptx"}},
		{Category: "Images", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}},
		{Category: "Videos", Extensions: []string{".mp4", ".mkv", ".avi", ".mov"}},
		{Category: "Music", Extensions: []string{".mp3", ".wav", ".flac"}},
		{Category: "Scripts", Extensions: []string{".py", ".js", ".java", ".cpp"}},
	}
}

// DefaultRules returns the built-in table with DefaultCategory as fallback.
func DefaultRules() *Rules {
	return NewRules(DefaultRuleSet(), DefaultCategory)
}

// NewRules builds a rule list. Extensions are lower-cased once here so
// Classify never allocates per rule. An empty fallback means DefaultCategory.
func NewRules(rules []Rule, fallback string) *Rules {
	if fallback == "" {
		fallback = DefaultCategory
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		exts := make([]string, 0, len(r.Extensions))
		for _, ext := range r.Extensions {
			exts = append(exts, strings.ToLower(ext))
		}
		normalized = append(normalized, Rule{Category: r.Category, Extensions: exts})
	}
	return &Rules{rules: normalized, fallback: fallback}
}

// Classify returns the category of the first rule listing ext, or the fallback.
// ext must include the leading dot; a bare "pdf" never matches.
func (r *Rules) Classify(ext string) string {
	if !strings.HasPrefix(ext, ".") {
		return r.fallback
	}
	ext = strings.ToLower(ext)
	for _, rule := range r.rules {
		for _, candidate := range rule.Extensions {
			if candidate == ext {
				return rule.Category
			}
		}
	}
	return r.fallback
}

// Fallback returns the category used for unmatched extensions.
func (r *Rules) Fallback() string {
	return r.fallback
}

// Categories lists the configured category names in rule order.
func (r *Rules) Categories() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Category)
	}
	return names
}

// Extension returns the extension of a file name including the dot, or ""
// when there is none. Leading dots do not start an extension, so ".bashrc"
// and "..." have none while "archive.tar.gz" has ".gz".
func Extension(name string) string {
	stripped := strings.TrimLeft(name, ".")
	idx := strings.LastIndexByte(stripped, '.')
	if idx < 0 {
		return ""
	}
	return stripped[idx:]
}
