package organizer

import (
	"fmt"

	"tidyup/internal/history"
)

// EventKind tags what an Event describes.
type EventKind string

const (
	EventMoved   EventKind = "moved"
	EventSkipped EventKind = "skipped"
	EventError   EventKind = "error"
	EventInvalid EventKind = "invalid"
	EventEmpty   EventKind = "empty"
	EventDone    EventKind = "done"
)

// Skip reasons.
const (
	ReasonNoExtension = "no extension"
	ReasonIgnored     = "ignored"
)

// Event is one step of an organize run. Which fields are set depends on Kind:
//   - moved:   File, Category, Source, Destination
//   - skipped: File, Reason
//   - error:   File (empty for run-level failures), Message
//   - invalid, empty: Message
//   - done:    Moved, Skipped, Errors, RunID
type Event struct {
	Kind        EventKind     `json:"status"`
	File        string        `json:"file,omitempty"`
	Category    string        `json:"category,omitempty"`
	Source      string        `json:"source,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Message     string        `json:"message,omitempty"`
	Moved       int           `json:"moved,omitempty"`
	Skipped     int           `json:"skipped,omitempty"`
	Errors      int           `json:"errors,omitempty"`
	RunID       history.RunID `json:"run_id,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventMoved:
		return fmt.Sprintf("Moved %s -> %s/", e.File, e.Category)
	case EventSkipped:
		return fmt.Sprintf("Skipped %s: %s", e.File, e.Reason)
	case EventError:
		if e.File == "" {
			return "Error: " + e.Message
		}
		return fmt.Sprintf("Error moving %s: %s", e.File, e.Message)
	case EventInvalid, EventEmpty:
		return e.Message
	case EventDone:
		return fmt.Sprintf("Done: %d moved, %d skipped, %d errors (run %s)", e.Moved, e.Skipped, e.Errors, e.RunID)
	default:
		return string(e.Kind)
	}
}
