package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"tidyup/internal/history"
	"tidyup/internal/orchestrator"
	"tidyup/internal/organizer"
	"tidyup/internal/scanner"
)

func TestEvent_Text(t *testing.T) {
	out, buf, errBuf := newTestOutput(Config{})

	out.Event(organizer.Event{Kind: organizer.EventMoved, File: "a.pdf", Category: "Documents"})
	out.Event(organizer.Event{Kind: organizer.EventSkipped, File: "README", Reason: organizer.ReasonNoExtension})
	out.Event(organizer.Event{Kind: organizer.EventError, File: "b.mp3", Message: "denied"})
	out.Event(organizer.Event{Kind: organizer.EventDone, Moved: 1})
	out.Event(organizer.Event{Kind: organizer.EventInvalid, Message: "path does not exist: /x"})

	want := "Moved a.pdf -> Documents/\nSkipped README: no extension\nError moving b.mp3: denied\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
	if !strings.Contains(errBuf.String(), "path does not exist") {
		t.Errorf("invalid event should go to stderr, got %q", errBuf.String())
	}
}

func TestEvent_JSON(t *testing.T) {
	out, buf, _ := newTestOutput(Config{JSON: true})

	out.Event(organizer.Event{Kind: organizer.EventMoved, File: "a.pdf", Category: "Documents"})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if decoded["status"] != "moved" || decoded["file"] != "a.pdf" || decoded["category"] != "Documents" {
		t.Errorf("unexpected event JSON: %v", decoded)
	}
}

func TestSummary_Text(t *testing.T) {
	out, buf, _ := newTestOutput(Config{Verbose: true})

	out.Summary(&orchestrator.Summary{
		Moved:      2,
		Skipped:    1,
		RunID:      "run-9",
		ByCategory: map[string]int{"Images": 2},
		Duration:   1500 * time.Millisecond,
	})

	for _, want := range []string{"Moved 2, skipped 1, errors 0", "run-9", "Images", "1.5s"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in %q", want, buf.String())
		}
	}
}

func TestSummary_InvalidPrintsNothingInText(t *testing.T) {
	out, buf, _ := newTestOutput(Config{})
	out.Summary(&orchestrator.Summary{Invalid: "bad"})
	if buf.Len() != 0 {
		t.Errorf("expected no summary, got %q", buf.String())
	}
}

func TestSummary_JSON(t *testing.T) {
	out, buf, _ := newTestOutput(Config{JSON: true})
	out.Summary(&orchestrator.Summary{Directory: "/in", Empty: true})

	var decoded summaryJSON
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Status != "empty" || decoded.Directory != "/in" {
		t.Errorf("unexpected summary JSON: %+v", decoded)
	}
}

func TestStatus_Text(t *testing.T) {
	out, buf, _ := newTestOutput(Config{})
	out.Status(&orchestrator.StatusResult{
		Directory:  "/in",
		ByCategory: map[string][]string{"Images": {"/in/Images/a.png"}},
		Skipped:    map[string]string{"README": organizer.ReasonNoExtension},
		Total:      1,
	})

	for _, want := range []string{"Planned moves in /in", "Images (1)", "/in/Images/a.png", "skip README", "Total: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in %q", want, buf.String())
		}
	}
}

func TestUndoResult_Partial(t *testing.T) {
	out, buf, _ := newTestOutput(Config{})
	out.UndoResult(&history.UndoResult{
		RunID:     "run-1",
		Attempted: 3,
		Restored:  2,
		Failed:    1,
		Failures:  []history.UndoFailure{{From: "/in/a.pdf", To: "/in/Documents/a.pdf", Message: "missing"}},
	})

	for _, want := range []string{"Restored 2 of 3", "will not be retried", "/in/Documents/a.pdf -> /in/a.pdf: missing"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in %q", want, buf.String())
		}
	}
}

func TestUndoResult_Complete(t *testing.T) {
	out, buf, _ := newTestOutput(Config{})
	out.UndoResult(&history.UndoResult{RunID: "run-1", Attempted: 2, Restored: 2})
	if buf.String() != "Restored 2 of 2 file(s) from run run-1\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestHistory(t *testing.T) {
	runs := []history.RunRecord{
		{RunID: "run-1", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Moves: []history.MoveRecord{{From: "a", To: "b"}}, Undone: true},
		{RunID: "run-2", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}

	out, buf, _ := newTestOutput(Config{})
	out.History(runs)
	text := buf.String()
	if !strings.Contains(text, "run-1") || !strings.Contains(text, "undone") || !strings.Contains(text, "active") {
		t.Errorf("unexpected history text %q", text)
	}
	if strings.Index(text, "run-1") > strings.Index(text, "run-2") {
		t.Error("runs should print oldest first")
	}

	out, buf, _ = newTestOutput(Config{JSON: true})
	out.History(runs)
	var decoded []runJSON
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 || decoded[0].Timestamp != "2024-01-01T00:00:00Z" || decoded[0].Moves != 1 {
		t.Errorf("unexpected history JSON %+v", decoded)
	}
}

func TestHistory_Empty(t *testing.T) {
	out, buf, _ := newTestOutput(Config{})
	out.History(nil)
	if buf.String() != "No runs recorded\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestReport_Text(t *testing.T) {
	r := &scanner.Report{
		Root:         "/data",
		TotalFiles:   3,
		TotalFolders: 1,
		TotalSize:    2048,
		Categories:   map[string]scanner.CategoryStat{"pdf": {Count: 2, Size: 2000}, "other": {Count: 1, Size: 48}},
		LargestFiles: []scanner.FileEntry{
			{Name: "a.pdf", Path: "/data/a.pdf", Size: 1000, SizeFormatted: "1000.00 B"},
			{Name: "b.pdf", Path: "/data/b.pdf", Size: 1000, SizeFormatted: "1000.00 B"},
		},
		Duplicates:   []scanner.DuplicateGroup{{Size: 1000, SizeFormatted: "1000.00 B", Count: 2, Files: []string{"/data/a.pdf", "/data/b.pdf"}}},
		EmptyFolders: []string{"/data/empty"},
		Errors:       []scanner.Issue{{Path: "/data/x", Message: "permission denied"}},
	}

	out, buf, _ := newTestOutput(Config{})
	out.Report(r, 1)
	text := buf.String()

	for _, want := range []string{"Scan of /data", "2.00 KB", "Largest files", "/data/a.pdf", "Possible duplicates", "Empty folders (1)", "permission denied"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in report", want)
		}
	}
	if strings.Contains(text, "other") {
		t.Error("top=1 should only list the biggest category")
	}
}

func TestLimit(t *testing.T) {
	if got := limit([]int{1, 2, 3}, 2); len(got) != 2 {
		t.Errorf("limit = %v", got)
	}
	if got := limit([]int{1, 2, 3}, 0); len(got) != 3 {
		t.Errorf("limit with 0 = %v", got)
	}
}
