package scanner

import (
	"encoding/json"
	"fmt"
	"os"

	"tidyup/internal/fileops"
)

// DefaultExportName is the file name used when no export path is given.
const DefaultExportName = "scan_results.json"

// Marshal renders r as indented JSON. It has no side effects.
func Marshal(r *Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no scan results to export")
	}
	return json.MarshalIndent(r, "", "  ")
}

// Export writes r to path, replacing any previous export atomically.
func Export(r *Report, path string) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := fileops.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to export scan results: %w", err)
	}
	return nil
}

// Load reads a report previously written by Export.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid scan export %s: %w", path, err)
	}
	r.fillEmpty()
	return &r, nil
}

// fillEmpty replaces missing collections so a loaded report behaves like a
// fresh one.
func (r *Report) fillEmpty() {
	if r.FileTypes == nil {
		r.FileTypes = make(map[string]int)
	}
	if r.Categories == nil {
		r.Categories = make(map[string]CategoryStat)
	}
	if r.LargestFiles == nil {
		r.LargestFiles = []FileEntry{}
	}
	if r.OldestFiles == nil {
		r.OldestFiles = []AgedFile{}
	}
	if r.NewestFiles == nil {
		r.NewestFiles = []AgedFile{}
	}
	if r.EmptyFolders == nil {
		r.EmptyFolders = []string{}
	}
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Duplicates == nil {
		r.Duplicates = []DuplicateGroup{}
	}
}
