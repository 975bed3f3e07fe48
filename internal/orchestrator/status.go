package orchestrator

import (
	"sort"

	"tidyup/internal/organizer"
)

// StatusResult previews what organizing a directory would do.
type StatusResult struct {
	Directory  string              `json:"directory"`
	ByCategory map[string][]string `json:"by_category"` // category -> planned destination paths
	Skipped    map[string]string   `json:"skipped"`     // file -> reason
	Invalid    string              `json:"invalid,omitempty"`
	Total      int                 `json:"total"` // files that would move
}

// Categories returns the planned categories in name order.
func (r *StatusResult) Categories() []string {
	names := make([]string, 0, len(r.ByCategory))
	for name := range r.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status plans an organize run for dir without touching the filesystem or
// the history. Planned names include collision suffixes.
func (o *Orchestrator) Status(dir string) *StatusResult {
	result := &StatusResult{
		Directory:  dir,
		ByCategory: make(map[string][]string),
		Skipped:    make(map[string]string),
	}

	for ev := range o.engine(organizer.WithDryRun()).Organize(dir) {
		switch ev.Kind {
		case organizer.EventMoved:
			result.ByCategory[ev.Category] = append(result.ByCategory[ev.Category], ev.Destination)
			result.Total++
		case organizer.EventSkipped:
			result.Skipped[ev.File] = ev.Reason
		case organizer.EventInvalid:
			result.Invalid = ev.Message
		}
	}
	return result
}
