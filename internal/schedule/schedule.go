// Package schedule stores the daily organize schedule and runs it.
//
// The schedule artifact is a small JSON document:
//
//	{
//	  "folder": "/home/me/Downloads",
//	  "times": ["08:30", "23:00"]
//	}
//
// Times are 24-hour local wall-clock times.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"tidyup/internal/fileops"
)

// ScheduleErrorType represents the type of schedule error.
type ScheduleErrorType string

const (
	FileNotFound    ScheduleErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ScheduleErrorType = "INVALID_JSON"
	ValidationError ScheduleErrorType = "VALIDATION_ERROR"
)

// ScheduleError represents an error loading, saving or validating a schedule.
type ScheduleError struct {
	Type    ScheduleErrorType
	Path    string
	Message string
}

func (e *ScheduleError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("no schedule found at %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid schedule file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("invalid schedule: %s", e.Message)
	default:
		return fmt.Sprintf("schedule error: %s", e.Message)
	}
}

// ErrDuplicateTime is returned by AddTime when the time is already scheduled.
var ErrDuplicateTime = errors.New("time already scheduled")

const timeLayout = "15:04"

// Schedule names a folder to organize at fixed times every day.
type Schedule struct {
	Folder string   `json:"folder"`
	Times  []string `json:"times"`
}

// NormalizeTime parses a 24-hour HH:MM time and returns it zero-padded.
// A one-digit hour such as "9:05" is accepted.
func NormalizeTime(s string) (string, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return "", &ScheduleError{Type: ValidationError, Message: fmt.Sprintf("time %q is not in 24-hour HH:MM format", s)}
	}
	return t.Format(timeLayout), nil
}

// AddTime adds a time, keeping Times sorted and free of duplicates.
func (s *Schedule) AddTime(t string) error {
	norm, err := NormalizeTime(t)
	if err != nil {
		return err
	}
	if slices.Contains(s.Times, norm) {
		return fmt.Errorf("%s: %w", norm, ErrDuplicateTime)
	}
	s.Times = append(s.Times, norm)
	slices.Sort(s.Times)
	return nil
}

// RemoveTime removes a time and reports whether it was scheduled.
func (s *Schedule) RemoveTime(t string) bool {
	norm, err := NormalizeTime(t)
	if err != nil {
		return false
	}
	i := slices.Index(s.Times, norm)
	if i < 0 {
		return false
	}
	s.Times = slices.Delete(s.Times, i, i+1)
	return true
}

// Validate checks that the folder is an existing directory and that at
// least one well-formed time is scheduled.
func (s *Schedule) Validate() error {
	if s.Folder == "" {
		return &ScheduleError{Type: ValidationError, Message: "folder is required"}
	}
	info, err := os.Stat(s.Folder)
	if err != nil {
		return &ScheduleError{Type: ValidationError, Path: s.Folder, Message: fmt.Sprintf("folder not found: %s", s.Folder)}
	}
	if !info.IsDir() {
		return &ScheduleError{Type: ValidationError, Path: s.Folder, Message: fmt.Sprintf("not a directory: %s", s.Folder)}
	}
	if len(s.Times) == 0 {
		return &ScheduleError{Type: ValidationError, Message: "no times scheduled"}
	}
	for _, t := range s.Times {
		if _, err := NormalizeTime(t); err != nil {
			return err
		}
	}
	return nil
}

// Next returns the first scheduled time strictly after now, in now's
// location. It returns the zero time when no valid time is scheduled.
func (s *Schedule) Next(now time.Time) time.Time {
	var next time.Time
	for _, raw := range s.Times {
		t, err := time.Parse(timeLayout, raw)
		if err != nil {
			continue
		}
		for day := 0; day <= 1; day++ {
			at := time.Date(now.Year(), now.Month(), now.Day()+day, t.Hour(), t.Minute(), 0, 0, now.Location())
			if !at.After(now) {
				continue
			}
			if next.IsZero() || at.Before(next) {
				next = at
			}
			break
		}
	}
	return next
}

// Load reads and validates the schedule at path.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ScheduleError{Type: FileNotFound, Path: path}
		}
		return nil, err
	}

	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &ScheduleError{Type: InvalidJSON, Path: path, Message: err.Error()}
	}
	for i, t := range s.Times {
		if norm, err := NormalizeTime(t); err == nil {
			s.Times[i] = norm
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save validates s and writes it to path atomically.
func Save(path string, s *Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return fileops.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
