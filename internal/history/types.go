// Package history records organize runs so they can be reversed later.
// Each run is an ordered list of moves plus an undone flag that flips once.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimestampFormat is the layout used when writing run timestamps.
const TimestampFormat = time.RFC3339Nano

// legacyTimestampFormat is the naive local-time ISO form older logs contain.
const legacyTimestampFormat = "2006-01-02T15:04:05"

var (
	// ErrNothingToUndo is returned when no run is eligible for reversal.
	ErrNothingToUndo = errors.New("no history available to undo")
	// ErrRunNotFound is returned when a run id is not in the log.
	ErrRunNotFound = errors.New("run not found")
)

// RunID uniquely identifies one organize run.
type RunID string

// MoveRecord is one physical move; From is where the file was, To is where it went.
type MoveRecord struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RunRecord is one organize invocation that moved at least one file.
type RunRecord struct {
	RunID     RunID
	Timestamp time.Time
	Moves     []MoveRecord
	Undone    bool
}

type runJSON struct {
	RunID     RunID        `json:"run_id"`
	Timestamp string       `json:"timestamp"`
	Moves     []MoveRecord `json:"moves"`
	Undone    bool         `json:"undone"`
}

// MarshalJSON writes the timestamp as RFC 3339 UTC text and never emits a null move list.
func (r RunRecord) MarshalJSON() ([]byte, error) {
	moves := r.Moves
	if moves == nil {
		moves = []MoveRecord{}
	}
	return json.Marshal(runJSON{
		RunID:     r.RunID,
		Timestamp: r.Timestamp.UTC().Format(TimestampFormat),
		Moves:     moves,
		Undone:    r.Undone,
	})
}

// UnmarshalJSON accepts RFC 3339 timestamps and the legacy naive form.
// Unknown fields are ignored.
func (r *RunRecord) UnmarshalJSON(data []byte) error {
	var rj runJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}
	ts, err := ParseTimestamp(rj.Timestamp)
	if err != nil {
		return err
	}
	r.RunID = rj.RunID
	r.Timestamp = ts
	r.Moves = rj.Moves
	if r.Moves == nil {
		r.Moves = []MoveRecord{}
	}
	r.Undone = rj.Undone
	return nil
}

// ParseTimestamp parses a run timestamp written by this or an older version.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampFormat, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimestampFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run timestamp %q: %w", s, err)
	}
	return t, nil
}

// Store persists run records in order.
// Implementations assume at most one organize or undo in flight per log.
type Store interface {
	// AppendRun records a new, not-undone run and returns its id.
	AppendRun(moves []MoveRecord) (RunID, error)
	// MostRecentUndoable returns the newest run with Undone=false, or nil.
	MostRecentUndoable() (*RunRecord, error)
	// MarkUndone flips the run's undone flag.
	MarkUndone(id RunID) error
	// ListRuns returns every run, oldest first.
	ListRuns() ([]RunRecord, error)
	Close() error
}

// Clock abstracts time retrieval so tests are deterministic.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts run id generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
