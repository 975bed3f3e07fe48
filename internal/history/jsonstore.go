package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"tidyup/internal/fileops"
)

// errMalformed marks a log file that exists but cannot be parsed.
var errMalformed = errors.New("malformed history log")

// JSONStore keeps the whole run log as one JSON array in a single file.
// Every mutation reads the file, changes it in memory, and atomically
// replaces it, so a crash mid-write leaves the previous log intact.
type JSONStore struct {
	path string
	opts storeOptions
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on the first append.
func NewJSONStore(path string, opts ...Option) *JSONStore {
	return &JSONStore{path: path, opts: buildOptions(opts)}
}

// Path returns the log file location.
func (s *JSONStore) Path() string {
	return s.path
}

// AppendRun records a new run. A malformed existing log is moved aside to
// <path>.corrupt-<unix> before a fresh log is started; an unreadable one is
// left alone and the error returned.
func (s *JSONStore) AppendRun(moves []MoveRecord) (RunID, error) {
	runs, err := s.readAll()
	if err != nil {
		if !errors.Is(err, errMalformed) {
			return "", err
		}
		if perr := s.preserveCorrupt(); perr != nil {
			return "", perr
		}
		runs = nil
	}

	record := RunRecord{
		RunID:     RunID(s.opts.ids.New()),
		Timestamp: s.opts.clock.Now(),
		Moves:     append([]MoveRecord(nil), moves...),
	}
	runs = append(runs, record)

	if err := s.writeAll(runs); err != nil {
		return "", err
	}
	s.opts.logger.Info("recorded run",
		zap.String("run_id", string(record.RunID)),
		zap.Int("moves", len(moves)),
		zap.String("history", s.path),
	)
	return record.RunID, nil
}

// MostRecentUndoable scans from the newest run backward. An absent,
// unreadable, or malformed log counts as empty history.
func (s *JSONStore) MostRecentUndoable() (*RunRecord, error) {
	runs, err := s.readAll()
	if err != nil {
		s.opts.logger.Warn("history unavailable", zap.String("history", s.path), zap.Error(err))
		return nil, nil
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if !runs[i].Undone {
			run := runs[i]
			return &run, nil
		}
	}
	return nil, nil
}

// MarkUndone flips the undone flag of the run with the given id.
func (s *JSONStore) MarkUndone(id RunID) error {
	runs, err := s.readAll()
	if err != nil {
		return err
	}
	for i := range runs {
		if runs[i].RunID == id {
			runs[i].Undone = true
			return s.writeAll(runs)
		}
	}
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// ListRuns returns every recorded run, oldest first.
func (s *JSONStore) ListRuns() ([]RunRecord, error) {
	return s.readAll()
}

// Close is a no-op; the file is only open during individual operations.
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) readAll() ([]RunRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var runs []RunRecord
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return runs, nil
}

func (s *JSONStore) writeAll(runs []RunRecord) error {
	if runs == nil {
		runs = []RunRecord{}
	}
	data, err := json.MarshalIndent(runs, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode history log: %w", err)
	}
	if err := fileops.WriteFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history log: %w", err)
	}
	return nil
}

func (s *JSONStore) preserveCorrupt() error {
	backup := s.path + ".corrupt-" + strconv.FormatInt(s.opts.clock.Now().Unix(), 10)
	if err := os.Rename(s.path, backup); err != nil {
		return fmt.Errorf("failed to preserve malformed history log: %w", err)
	}
	s.opts.logger.Warn("malformed history log moved aside",
		zap.String("history", s.path),
		zap.String("backup", backup),
	)
	return nil
}
