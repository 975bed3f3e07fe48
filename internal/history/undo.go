package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"tidyup/internal/fileops"
)

// UndoFailure describes one move that could not be reversed.
type UndoFailure struct {
	From    string `json:"from"` // original location the file should return to
	To      string `json:"to"`   // where the organize run put it
	Message string `json:"message"`
}

// UndoResult reports the outcome of reversing one run.
type UndoResult struct {
	RunID     RunID         `json:"run_id"`
	Attempted int           `json:"attempted"`
	Restored  int           `json:"restored"`
	Failed    int           `json:"failed"`
	Failures  []UndoFailure `json:"failures,omitempty"`
}

// Partial reports whether some moves could not be reversed. The run is
// still marked undone in that case, so those files are not retried later.
func (r *UndoResult) Partial() bool {
	return r.Failed > 0
}

// Undoer reverses recorded runs against the filesystem.
type Undoer struct {
	store  Store
	logger *zap.Logger
}

// NewUndoer creates an Undoer over store. A nil logger discards output.
func NewUndoer(store Store, logger *zap.Logger) *Undoer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Undoer{store: store, logger: logger}
}

// UndoLast reverses the most recent run that is not yet undone.
// It returns ErrNothingToUndo, with no side effects, when there is none or
// when the history cannot be read.
func (u *Undoer) UndoLast() (*UndoResult, error) {
	run, err := u.store.MostRecentUndoable()
	if err != nil {
		u.logger.Warn("history unavailable", zap.Error(err))
		return nil, ErrNothingToUndo
	}
	if run == nil {
		return nil, ErrNothingToUndo
	}
	return u.reverse(run)
}

// UndoRun reverses a specific run. It returns ErrRunNotFound for unknown ids
// and ErrNothingToUndo when the run was already undone.
func (u *Undoer) UndoRun(id RunID) (*UndoResult, error) {
	runs, err := u.store.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	for i := range runs {
		if runs[i].RunID != id {
			continue
		}
		if runs[i].Undone {
			return nil, fmt.Errorf("%w: run %s already undone", ErrNothingToUndo, id)
		}
		return u.reverse(&runs[i])
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// reverse moves every file back in reverse order, best effort, then marks
// the run undone regardless of per-file failures.
func (u *Undoer) reverse(run *RunRecord) (*UndoResult, error) {
	result := &UndoResult{RunID: run.RunID}
	log := u.logger.With(zap.String("run_id", string(run.RunID)))

	for i := len(run.Moves) - 1; i >= 0; i-- {
		m := run.Moves[i]
		result.Attempted++

		if err := restore(m); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, UndoFailure{From: m.From, To: m.To, Message: err.Error()})
			log.Warn("failed to undo move", zap.String("from", m.To), zap.String("to", m.From), zap.Error(err))
			continue
		}
		result.Restored++
		log.Info("restored file", zap.String("from", m.To), zap.String("to", m.From))
	}

	if err := u.store.MarkUndone(run.RunID); err != nil {
		return result, fmt.Errorf("failed to mark run undone: %w", err)
	}
	log.Info("undo complete", zap.Int("restored", result.Restored), zap.Int("failed", result.Failed))
	return result, nil
}

func restore(m MoveRecord) error {
	if _, err := os.Lstat(m.To); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &fileops.MoveError{Type: fileops.SourceNotFound, Path: m.To, Err: err}
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.From), 0755); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", filepath.Dir(m.From), err)
	}
	return fileops.Move(m.To, m.From)
}
