package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupMovedFiles creates files at their "moved" locations and returns the records.
func setupMovedFiles(t *testing.T, root string, names ...string) []MoveRecord {
	t.Helper()
	var moves []MoveRecord
	for _, name := range names {
		from := filepath.Join(root, name)
		to := filepath.Join(root, "Sorted", name)
		if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(to, []byte(name), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		moves = append(moves, MoveRecord{From: from, To: to})
	}
	return moves
}

func TestUndoLast_RestoresFiles(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			s := newStore(t)
			moves := setupMovedFiles(t, root, "a.txt", "b.pdf")
			id, err := s.AppendRun(moves)
			if err != nil {
				t.Fatalf("AppendRun failed: %v", err)
			}

			u := NewUndoer(s, nil)
			result, err := u.UndoLast()
			if err != nil {
				t.Fatalf("UndoLast failed: %v", err)
			}
			if result.RunID != id || result.Restored != 2 || result.Failed != 0 || result.Partial() {
				t.Errorf("unexpected result: %+v", result)
			}
			for _, m := range moves {
				if _, err := os.Stat(m.From); err != nil {
					t.Errorf("file not restored to %s", m.From)
				}
				if _, err := os.Stat(m.To); !os.IsNotExist(err) {
					t.Errorf("file still at %s", m.To)
				}
			}

			if _, err := u.UndoLast(); !errors.Is(err, ErrNothingToUndo) {
				t.Errorf("second undo: expected ErrNothingToUndo, got %v", err)
			}
		})
	}
}

func TestUndoLast_NothingToUndo(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			u := NewUndoer(newStore(t), nil)
			result, err := u.UndoLast()
			if !errors.Is(err, ErrNothingToUndo) {
				t.Errorf("expected ErrNothingToUndo, got %v", err)
			}
			if result != nil {
				t.Errorf("expected nil result, got %+v", result)
			}
		})
	}
}

func TestUndoLast_RecreatesMissingParent(t *testing.T) {
	root := t.TempDir()
	to := filepath.Join(root, "Documents", "a.txt")
	os.MkdirAll(filepath.Dir(to), 0755)
	os.WriteFile(to, []byte("x"), 0644)
	from := filepath.Join(root, "gone", "deeper", "a.txt")

	s := NewJSONStore(filepath.Join(root, "h.json"), testOptions()...)
	s.AppendRun([]MoveRecord{{From: from, To: to}})

	result, err := NewUndoer(s, nil).UndoLast()
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if result.Restored != 1 {
		t.Fatalf("expected 1 restored, got %+v", result)
	}
	if _, err := os.Stat(from); err != nil {
		t.Errorf("file not restored: %v", err)
	}
}

func TestUndoLast_PartialFailureStillMarksUndone(t *testing.T) {
	root := t.TempDir()
	moves := setupMovedFiles(t, root, "keep.txt", "lost.txt")
	// lost.txt vanished after the organize run.
	os.Remove(moves[1].To)

	s := NewJSONStore(filepath.Join(root, "h.json"), testOptions()...)
	s.AppendRun(moves)

	result, err := NewUndoer(s, nil).UndoLast()
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if !result.Partial() || result.Failed != 1 || result.Restored != 1 || result.Attempted != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Failures) != 1 || result.Failures[0].To != moves[1].To {
		t.Errorf("failure details wrong: %+v", result.Failures)
	}

	run, _ := s.MostRecentUndoable()
	if run != nil {
		t.Errorf("run should be marked undone despite failures, got %+v", run)
	}
}

func TestUndoLast_DoesNotOverwriteOriginalLocation(t *testing.T) {
	root := t.TempDir()
	moves := setupMovedFiles(t, root, "a.txt")
	os.WriteFile(moves[0].From, []byte("newer"), 0644)

	s := NewJSONStore(filepath.Join(root, "h.json"), testOptions()...)
	s.AppendRun(moves)

	result, err := NewUndoer(s, nil).UndoLast()
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("expected collision failure, got %+v", result)
	}
	data, _ := os.ReadFile(moves[0].From)
	if string(data) != "newer" {
		t.Error("existing file at original location was overwritten")
	}
}

func TestUndoLast_ReverseOrder(t *testing.T) {
	root := t.TempDir()
	// Two moves chained through the same path: a -> b, then c -> a.
	// Reversal must undo c -> a before a -> b or the paths collide.
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "Documents", "a.txt")
	c := filepath.Join(root, "c.txt")
	os.MkdirAll(filepath.Dir(b), 0755)
	os.WriteFile(b, []byte("first"), 0644)
	os.WriteFile(a, []byte("second"), 0644)

	s := NewJSONStore(filepath.Join(root, "h.json"), testOptions()...)
	s.AppendRun([]MoveRecord{{From: a, To: b}, {From: c, To: a}})

	result, err := NewUndoer(s, nil).UndoLast()
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if result.Restored != 2 {
		t.Fatalf("expected both restored, got %+v", result)
	}
	if data, _ := os.ReadFile(c); string(data) != "second" {
		t.Errorf("c.txt = %q, want second", data)
	}
	if data, _ := os.ReadFile(a); string(data) != "first" {
		t.Errorf("a.txt = %q, want first", data)
	}
}

func TestUndoRun(t *testing.T) {
	root := t.TempDir()
	s := NewJSONStore(filepath.Join(root, "h.json"), testOptions()...)
	first, _ := s.AppendRun(setupMovedFiles(t, root, "one.txt"))
	s.AppendRun(setupMovedFiles(t, root, "two.txt"))
	u := NewUndoer(s, nil)

	result, err := u.UndoRun(first)
	if err != nil {
		t.Fatalf("UndoRun failed: %v", err)
	}
	if result.Restored != 1 {
		t.Errorf("expected 1 restored, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, "one.txt")); err != nil {
		t.Error("one.txt not restored")
	}
	if _, err := os.Stat(filepath.Join(root, "Sorted", "two.txt")); err != nil {
		t.Error("two.txt should be untouched")
	}

	if _, err := u.UndoRun(first); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo for repeated undo, got %v", err)
	}
	if _, err := u.UndoRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
