package orchestrator

import (
	"fmt"
	"time"

	"tidyup/internal/history"
	"tidyup/internal/organizer"
)

// Summary contains statistics from one organize run.
type Summary struct {
	Directory  string
	Moved      int
	Skipped    int
	Errors     int
	RunID      history.RunID
	Invalid    string            // set when the target could not be organized
	Empty      bool              // no eligible files were found
	Cancelled  bool              // the run was stopped before finishing
	RecordErr  string            // moves happened but could not be recorded for undo
	ByCategory map[string]int    // files moved per category
	Failures   []organizer.Event // error events, in order
	Duration   time.Duration
}

func newSummary(dir string) *Summary {
	return &Summary{
		Directory:  dir,
		ByCategory: make(map[string]int),
	}
}

// add folds one event into the summary. Counts come from the individual
// events so that cancelled runs, which have no done event, still add up.
func (s *Summary) add(ev organizer.Event) {
	switch ev.Kind {
	case organizer.EventMoved:
		s.Moved++
		s.ByCategory[ev.Category]++
	case organizer.EventSkipped:
		s.Skipped++
	case organizer.EventError:
		s.Errors++
		s.Failures = append(s.Failures, ev)
	case organizer.EventInvalid:
		s.Invalid = ev.Message
	case organizer.EventEmpty:
		s.Empty = true
	case organizer.EventDone:
		s.RunID = ev.RunID
	}
}

// recorded notes the outcome of saving the run to history. It is also
// called for a cancelled run, which never produces a done event.
func (s *Summary) recorded(id history.RunID, err error) {
	if err != nil {
		s.RecordErr = err.Error()
		return
	}
	s.RunID = id
}

// HasErrors returns true if the run failed as a whole or any file failed.
func (s *Summary) HasErrors() bool {
	return s.Errors > 0 || s.Invalid != "" || s.RecordErr != ""
}

// PrintSummary returns a one-line summary.
func (s *Summary) PrintSummary() string {
	switch {
	case s.Invalid != "":
		return s.Invalid
	case s.Empty:
		return fmt.Sprintf("No files to organize in %s", s.Directory)
	}
	line := fmt.Sprintf("Moved %d, skipped %d, errors %d", s.Moved, s.Skipped, s.Errors)
	if s.Cancelled {
		line += " (cancelled)"
	}
	if s.RecordErr != "" {
		line += "; history not recorded: " + s.RecordErr
	}
	return line
}
