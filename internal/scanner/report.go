package scanner

import (
	"encoding/json"
	"fmt"
	"time"
)

// Report is the result of one scan. It is not modified after Scan returns.
type Report struct {
	Root         string                  `json:"root"`
	ScannedAt    time.Time               `json:"scanned_at"`
	TotalItems   int                     `json:"total_items"`
	TotalFiles   int                     `json:"total_files"`
	TotalFolders int                     `json:"total_folders"`
	TotalSize    int64                   `json:"total_size"`
	FileTypes    map[string]int          `json:"file_types"`
	Categories   map[string]CategoryStat `json:"categories"`
	LargestFiles []FileEntry             `json:"largest_files"`
	OldestFiles  []AgedFile              `json:"oldest_files"`
	NewestFiles  []AgedFile              `json:"newest_files"`
	EmptyFolders []string                `json:"empty_folders"`
	HiddenFiles  int                     `json:"hidden_files"`
	Errors       []Issue                 `json:"errors"`
	Duplicates   []DuplicateGroup        `json:"duplicate_candidates"`
	ScanTime     time.Duration           `json:"scan_time"`
}

// CategoryStat aggregates files sharing an extension.
type CategoryStat struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// FileEntry is one file in the size ranking.
type FileEntry struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Size          int64  `json:"size"`
	SizeFormatted string `json:"size_formatted"`
	Category      string `json:"category"`
}

// AgedFile is one file in the age rankings.
type AgedFile struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
}

// Issue records an item that could not be inspected.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// DuplicateGroup lists files sharing an exact byte size. Matching sizes
// suggest, but do not prove, identical content.
type DuplicateGroup struct {
	Size          int64    `json:"size"`
	SizeFormatted string   `json:"size_formatted"`
	Count         int      `json:"count"`
	Files         []string `json:"files"`
}

// CategoryBytes sums the byte totals of all categories.
func (r *Report) CategoryBytes() int64 {
	var total int64
	for _, c := range r.Categories {
		total += c.Size
	}
	return total
}

// Top returns at most n of the largest files.
func (r *Report) Top(n int) []FileEntry {
	if n <= 0 || n >= len(r.LargestFiles) {
		return r.LargestFiles
	}
	return r.LargestFiles[:n]
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with two decimals in binary units.
func FormatSize(bytes int64) string {
	size := float64(bytes)
	for _, unit := range sizeUnits {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f PB", size)
}

// MarshalJSON writes timestamps as UTC RFC 3339 text and the scan time as
// a duration string so a reload yields the same instants and duration.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		alias
		ScannedAt string `json:"scanned_at"`
		ScanTime  string `json:"scan_time"`
	}{
		alias:     alias(r),
		ScannedAt: r.ScannedAt.UTC().Format(time.RFC3339Nano),
		ScanTime:  r.ScanTime.String(),
	})
}

func (r *Report) UnmarshalJSON(data []byte) error {
	type alias Report
	aux := struct {
		*alias
		ScannedAt string `json:"scanned_at"`
		ScanTime  string `json:"scan_time"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.ScannedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, aux.ScannedAt)
		if err != nil {
			return fmt.Errorf("invalid scanned_at %q: %w", aux.ScannedAt, err)
		}
		r.ScannedAt = t
	}
	if aux.ScanTime != "" {
		d, err := time.ParseDuration(aux.ScanTime)
		if err != nil {
			return fmt.Errorf("invalid scan_time %q: %w", aux.ScanTime, err)
		}
		r.ScanTime = d
	}
	return nil
}

func (a AgedFile) MarshalJSON() ([]byte, error) {
	type alias AgedFile
	return json.Marshal(struct {
		alias
		Modified string `json:"modified"`
	}{
		alias:    alias(a),
		Modified: a.Modified.UTC().Format(time.RFC3339Nano),
	})
}
