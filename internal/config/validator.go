package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "categories[0].name")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

func (r *ValidationResult) add(issues []ConfigValidationError) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			r.Errors = append(r.Errors, issue)
		} else {
			r.Warnings = append(r.Warnings, issue)
		}
	}
}

// ValidateConfig checks the configuration and returns all findings.
func ValidateConfig(cfg *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	result.add(ValidateSettings(cfg))
	result.add(ValidateCategories(cfg))
	result.add(ValidateIgnorePatterns(cfg))
	for _, key := range cfg.unknownKeys {
		result.add([]ConfigValidationError{{
			Field:    key,
			Message:  "unknown key is ignored",
			Severity: SeverityWarning,
		}})
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateSettings checks the scalar settings.
func ValidateSettings(cfg *Config) []ConfigValidationError {
	var issues []ConfigValidationError

	switch cfg.HistoryBackend {
	case BackendJSON, BackendSQLite:
	default:
		issues = append(issues, ConfigValidationError{
			Field:    "history_backend",
			Message:  fmt.Sprintf("unknown backend %q (want %q or %q)", cfg.HistoryBackend, BackendJSON, BackendSQLite),
			Severity: SeverityError,
		})
	}

	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		issues = append(issues, ConfigValidationError{
			Field:    "log_level",
			Message:  fmt.Sprintf("unknown level %q", cfg.LogLevel),
			Severity: SeverityError,
		})
	}

	switch cfg.LogFormat {
	case FormatConsole, FormatJSON:
	default:
		issues = append(issues, ConfigValidationError{
			Field:    "log_format",
			Message:  fmt.Sprintf("unknown format %q (want %q or %q)", cfg.LogFormat, FormatConsole, FormatJSON),
			Severity: SeverityError,
		})
	}

	if msg := folderNameProblem(cfg.DefaultCategory); msg != "" {
		issues = append(issues, ConfigValidationError{
			Field:    "default_category",
			Message:  msg,
			Severity: SeverityError,
		})
	}

	if cfg.LogKeep < -1 {
		issues = append(issues, ConfigValidationError{
			Field:    "log_keep",
			Message:  "must be -1 (keep all) or a positive count",
			Severity: SeverityError,
		})
	}

	if cfg.Watch.DebounceMS < 0 {
		issues = append(issues, ConfigValidationError{
			Field:    "watch.debounce_ms",
			Message:  "must not be negative",
			Severity: SeverityError,
		})
	}
	if cfg.Watch.StableMS < 0 {
		issues = append(issues, ConfigValidationError{
			Field:    "watch.stable_ms",
			Message:  "must not be negative",
			Severity: SeverityError,
		})
	}

	return issues
}

// ValidateCategories checks category names and extension lists. An
// extension may belong to only one category.
func ValidateCategories(cfg *Config) []ConfigValidationError {
	var issues []ConfigValidationError
	owner := make(map[string]string)
	names := make(map[string]bool)

	for i, rule := range cfg.Categories {
		field := formatField("categories", i)

		if msg := folderNameProblem(rule.Category); msg != "" {
			issues = append(issues, ConfigValidationError{
				Field:    field + ".name",
				Message:  msg,
				Severity: SeverityError,
			})
		} else if names[strings.ToLower(rule.Category)] {
			issues = append(issues, ConfigValidationError{
				Field:    field + ".name",
				Message:  fmt.Sprintf("category %q is listed more than once", rule.Category),
				Severity: SeverityWarning,
			})
		}
		names[strings.ToLower(rule.Category)] = true

		if len(rule.Extensions) == 0 {
			issues = append(issues, ConfigValidationError{
				Field:    field + ".extensions",
				Message:  "category has no extensions and will never match",
				Severity: SeverityWarning,
			})
		}

		for _, ext := range rule.Extensions {
			if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext[1:], `./\`) {
				issues = append(issues, ConfigValidationError{
					Field:    field + ".extensions",
					Message:  fmt.Sprintf("extension %q must be a single leading dot followed by a suffix", ext),
					Severity: SeverityError,
				})
				continue
			}
			lower := strings.ToLower(ext)
			if prev, ok := owner[lower]; ok && prev != rule.Category {
				issues = append(issues, ConfigValidationError{
					Field:    field + ".extensions",
					Message:  fmt.Sprintf("extension %q already belongs to category %q", ext, prev),
					Severity: SeverityError,
				})
				continue
			}
			owner[lower] = rule.Category
		}
	}

	return issues
}

// ValidateIgnorePatterns checks that every ignore glob compiles.
func ValidateIgnorePatterns(cfg *Config) []ConfigValidationError {
	var issues []ConfigValidationError
	for i, pattern := range cfg.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			issues = append(issues, ConfigValidationError{
				Field:    formatField("ignore_patterns", i),
				Message:  fmt.Sprintf("invalid glob %q: %v", pattern, err),
				Severity: SeverityError,
			})
		}
	}
	return issues
}

// folderNameProblem reports why name cannot be used as a category folder.
func folderNameProblem(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "category name cannot be empty"
	case name == "." || name == "..":
		return fmt.Sprintf("category name %q is not a folder name", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Sprintf("category name %q must not contain path separators", name)
	}
	return ""
}

func formatField(name string, index int) string {
	return fmt.Sprintf("%s[%d]", name, index)
}
