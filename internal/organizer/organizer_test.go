package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tidyup/internal/category"
	"tidyup/internal/history"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *history.JSONStore) {
	t.Helper()
	store := history.NewJSONStore(filepath.Join(t.TempDir(), "history.json"))
	return NewEngine(category.DefaultRules(), store, opts...), store
}

func collect(e *Engine, dir string) []Event {
	var events []Event
	for ev := range e.Organize(dir) {
		events = append(events, ev)
	}
	return events
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
}

func eventsOf(events []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func lastEvent(t *testing.T, events []Event) Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("Expected at least one event")
	}
	return events[len(events)-1]
}

func TestOrganize_NonexistentPath(t *testing.T) {
	e, _ := newTestEngine(t)
	events := collect(e, filepath.Join(t.TempDir(), "missing"))

	if len(events) != 1 || events[0].Kind != EventInvalid {
		t.Fatalf("Expected a single invalid event, got %+v", events)
	}
	if !strings.Contains(events[0].Message, "does not exist") {
		t.Errorf("Unexpected message: %q", events[0].Message)
	}
}

func TestOrganize_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "note.txt")

	e, _ := newTestEngine(t)
	events := collect(e, filepath.Join(dir, "note.txt"))

	if len(events) != 1 || events[0].Kind != EventInvalid {
		t.Fatalf("Expected a single invalid event, got %+v", events)
	}
	if !strings.Contains(events[0].Message, "not a directory") {
		t.Errorf("Unexpected message: %q", events[0].Message)
	}
}

func TestOrganize_EmptyDirectory(t *testing.T) {
	e, store := newTestEngine(t)
	events := collect(e, t.TempDir())

	if len(events) != 1 || events[0].Kind != EventEmpty {
		t.Fatalf("Expected a single empty event, got %+v", events)
	}
	runs, _ := store.ListRuns()
	if len(runs) != 0 {
		t.Errorf("Expected no runs recorded, got %d", len(runs))
	}
}

func TestOrganize_OnlySubdirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, nested, "deep.pdf")

	e, _ := newTestEngine(t)
	events := collect(e, dir)

	if len(events) != 1 || events[0].Kind != EventEmpty {
		t.Fatalf("Expected a single empty event, got %+v", events)
	}
	if _, err := os.Stat(filepath.Join(nested, "deep.pdf")); err != nil {
		t.Errorf("Nested file must not be touched: %v", err)
	}
}

func TestOrganize_MovesByCategory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.JPG", "c.xyz", "song.mp3", "main.py")

	e, store := newTestEngine(t)
	events := collect(e, dir)

	want := map[string]string{
		"a.pdf":    "Documents",
		"b.JPG":    "Images",
		"c.xyz":    "Others",
		"song.mp3": "Music",
		"main.py":  "Scripts",
	}
	moved := eventsOf(events, EventMoved)
	if len(moved) != len(want) {
		t.Fatalf("Expected %d moved events, got %d: %+v", len(want), len(moved), events)
	}
	for _, ev := range moved {
		if ev.Category != want[ev.File] {
			t.Errorf("%s: expected category %s, got %s", ev.File, want[ev.File], ev.Category)
		}
		dest := filepath.Join(dir, want[ev.File], ev.File)
		if ev.Destination != dest {
			t.Errorf("%s: expected destination %s, got %s", ev.File, dest, ev.Destination)
		}
		if _, err := os.Stat(dest); err != nil {
			t.Errorf("%s not at destination: %v", ev.File, err)
		}
		if _, err := os.Stat(filepath.Join(dir, ev.File)); !os.IsNotExist(err) {
			t.Errorf("%s still present in source directory", ev.File)
		}
	}

	done := lastEvent(t, events)
	if done.Kind != EventDone || done.Moved != 5 || done.Skipped != 0 || done.Errors != 0 {
		t.Errorf("Unexpected done event: %+v", done)
	}
	if done.RunID == "" {
		t.Error("Expected run id on done event")
	}

	run, err := store.MostRecentUndoable()
	if err != nil || run == nil {
		t.Fatalf("Expected recorded run, got %v, %v", run, err)
	}
	if run.RunID != done.RunID || len(run.Moves) != 5 {
		t.Errorf("Recorded run mismatch: %+v", run)
	}
}

func TestOrganize_PreservesContent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "report.pdf")

	e, _ := newTestEngine(t)
	collect(e, dir)

	data, err := os.ReadFile(filepath.Join(dir, "Documents", "report.pdf"))
	if err != nil {
		t.Fatalf("Failed to read moved file: %v", err)
	}
	if string(data) != "content of report.pdf" {
		t.Errorf("Content changed: %q", data)
	}
}

func TestOrganize_SkipsFilesWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "README", ".bashrc", "a.txt")

	e, store := newTestEngine(t)
	events := collect(e, dir)

	skipped := eventsOf(events, EventSkipped)
	if len(skipped) != 2 {
		t.Fatalf("Expected 2 skipped events, got %+v", events)
	}
	for _, ev := range skipped {
		if ev.Reason != ReasonNoExtension {
			t.Errorf("%s: expected reason %q, got %q", ev.File, ReasonNoExtension, ev.Reason)
		}
		if _, err := os.Stat(filepath.Join(dir, ev.File)); err != nil {
			t.Errorf("Skipped file %s was moved: %v", ev.File, err)
		}
	}

	done := lastEvent(t, events)
	if done.Kind != EventDone || done.Moved != 1 || done.Skipped != 2 {
		t.Errorf("Unexpected done event: %+v", done)
	}
	run, _ := store.MostRecentUndoable()
	if run == nil || len(run.Moves) != 1 {
		t.Errorf("Expected one recorded move, got %+v", run)
	}
}

func TestOrganize_OnlySkippedRecordsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "Makefile")

	e, store := newTestEngine(t)
	events := collect(e, dir)

	if len(events) != 1 || events[0].Kind != EventSkipped {
		t.Fatalf("Expected only a skipped event, got %+v", events)
	}
	runs, _ := store.ListRuns()
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestOrganize_RenamesOnCollision(t *testing.T) {
	dir := t.TempDir()
	docs := filepath.Join(dir, "Documents")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, docs, "a.pdf", "a_1.pdf")
	writeFiles(t, dir, "a.pdf")

	e, _ := newTestEngine(t)
	events := collect(e, dir)

	moved := eventsOf(events, EventMoved)
	if len(moved) != 1 {
		t.Fatalf("Expected one moved event, got %+v", events)
	}
	want := filepath.Join(docs, "a_2.pdf")
	if moved[0].Destination != want {
		t.Errorf("Expected destination %s, got %s", want, moved[0].Destination)
	}
	data, _ := os.ReadFile(filepath.Join(docs, "a.pdf"))
	if string(data) != "content of a.pdf" {
		t.Fatalf("Existing file was overwritten")
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("Renamed file missing: %v", err)
	}
}

func TestOrganize_SecondRunFindsNothing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.png")

	e, store := newTestEngine(t)
	collect(e, dir)
	events := collect(e, dir)

	if len(events) != 1 || events[0].Kind != EventEmpty {
		t.Fatalf("Expected empty event on second run, got %+v", events)
	}
	runs, _ := store.ListRuns()
	if len(runs) != 1 {
		t.Errorf("Expected exactly one run, got %d", len(runs))
	}
}

func TestOrganize_ExcludesHistoryFile(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "history.json")
	store := history.NewJSONStore(historyPath)
	writeFiles(t, dir, "a.pdf")

	e := NewEngine(category.DefaultRules(), store, WithExcludes(historyPath))
	collect(e, dir)
	writeFiles(t, dir, "b.pdf")
	collect(e, dir)

	if _, err := os.Stat(historyPath); err != nil {
		t.Fatalf("History log was moved: %v", err)
	}
	runs, err := store.ListRuns()
	if err != nil || len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d (%v)", len(runs), err)
	}
}

func TestOrganize_IgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "download.part", "keep.tmp")

	e, _ := newTestEngine(t, WithIgnorePatterns([]string{"*.part", "*.tmp"}))
	events := collect(e, dir)

	skipped := eventsOf(events, EventSkipped)
	if len(skipped) != 2 {
		t.Fatalf("Expected 2 skipped events, got %+v", events)
	}
	for _, ev := range skipped {
		if ev.Reason != ReasonIgnored {
			t.Errorf("%s: expected reason %q, got %q", ev.File, ReasonIgnored, ev.Reason)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "download.part")); err != nil {
		t.Errorf("Ignored file moved: %v", err)
	}
}

func TestOrganize_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.png")

	e, store := newTestEngine(t, WithDryRun())
	events := collect(e, dir)

	if n := len(eventsOf(events, EventMoved)); n != 2 {
		t.Fatalf("Expected 2 planned moves, got %d", n)
	}
	done := lastEvent(t, events)
	if done.Kind != EventDone || done.RunID != "" {
		t.Errorf("Dry run must not record a run: %+v", done)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.pdf")); err != nil {
		t.Errorf("Dry run moved a file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Documents")); !os.IsNotExist(err) {
		t.Error("Dry run created a category folder")
	}
	runs, _ := store.ListRuns()
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestOrganize_DryRunPlansDistinctNames(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "x.pdf", "x_1.pdf")
	docs := filepath.Join(dir, "Documents")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, docs, "x.pdf")

	e, _ := newTestEngine(t, WithDryRun())
	moved := eventsOf(collect(e, dir), EventMoved)

	if len(moved) != 2 {
		t.Fatalf("Expected 2 planned moves, got %+v", moved)
	}
	if moved[0].Destination == moved[1].Destination {
		t.Errorf("Two files planned for %s", moved[0].Destination)
	}
	if got := filepath.Base(moved[1].Destination); got != "x_1_1.pdf" {
		t.Errorf("Expected x_1_1.pdf for the second file, got %s", got)
	}
}

func TestOrganize_Symlinks(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, outside, "target.pdf")
	if err := os.MkdirAll(filepath.Join(outside, "folder.pdf"), 0755); err != nil {
		t.Fatal(err)
	}

	links := map[string]string{
		"linked.pdf":   filepath.Join(outside, "target.pdf"),
		"dir-link.pdf": filepath.Join(outside, "folder.pdf"),
		"dangling.pdf": filepath.Join(outside, "missing.pdf"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(dir, name)); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
	}

	e, _ := newTestEngine(t)
	events := collect(e, dir)

	moved := eventsOf(events, EventMoved)
	if len(moved) != 1 || moved[0].File != "linked.pdf" {
		t.Fatalf("Expected only the file symlink to move, got %+v", events)
	}
	info, err := os.Lstat(filepath.Join(dir, "Documents", "linked.pdf"))
	if err != nil {
		t.Fatalf("Link not moved: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Error("Expected the link itself to be moved")
	}
	if _, err := os.Stat(filepath.Join(outside, "target.pdf")); err != nil {
		t.Errorf("Link target must stay in place: %v", err)
	}
	for _, name := range []string{"dir-link.pdf", "dangling.pdf"} {
		if _, err := os.Lstat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should be left alone: %v", name, err)
		}
	}
}

func TestOrganize_StopEarlyRecordsPartialRun(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.pdf", "c.pdf")

	e, store := newTestEngine(t)
	var seen int
	for ev := range e.Organize(dir) {
		if ev.Kind == EventMoved {
			seen++
		}
		if seen == 1 {
			break
		}
	}

	run, err := store.MostRecentUndoable()
	if err != nil || run == nil {
		t.Fatalf("Expected partial run to be recorded, got %v, %v", run, err)
	}
	if len(run.Moves) != 1 {
		t.Errorf("Expected 1 recorded move, got %d", len(run.Moves))
	}
	if _, err := os.Stat(filepath.Join(dir, "b.pdf")); err != nil {
		t.Errorf("Unpulled file was moved: %v", err)
	}
}

func TestOrganize_LazyUntilPulled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf")

	e, _ := newTestEngine(t)
	stream := e.Organize(dir)

	if _, err := os.Stat(filepath.Join(dir, "a.pdf")); err != nil {
		t.Fatalf("File moved before the stream was consumed: %v", err)
	}
	for range stream {
	}
	if _, err := os.Stat(filepath.Join(dir, "Documents", "a.pdf")); err != nil {
		t.Errorf("File not moved after consuming the stream: %v", err)
	}
}

type failingStore struct{ history.Store }

func (failingStore) AppendRun([]history.MoveRecord) (history.RunID, error) {
	return "", errors.New("disk full")
}

func TestOrganize_HistoryFailureReported(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf")

	e := NewEngine(category.DefaultRules(), failingStore{})
	events := collect(e, dir)

	errs := eventsOf(events, EventError)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "failed to record history") {
		t.Fatalf("Expected a history error event, got %+v", events)
	}
	done := lastEvent(t, events)
	if done.Kind != EventDone || done.Moved != 1 || done.RunID != "" {
		t.Errorf("Unexpected done event: %+v", done)
	}
}

func TestOrganize_RecordHook(t *testing.T) {
	tests := []struct {
		name    string
		store   history.Store
		wantErr bool
	}{
		{"recorded", history.NewJSONStore(filepath.Join(t.TempDir(), "history.json")), false},
		{"store fails", failingStore{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, "a.pdf", "b.pdf")

			var (
				calls int
				gotID history.RunID
				err   error
			)
			e := NewEngine(category.DefaultRules(), tt.store, WithRecordHook(func(id history.RunID, recErr error) {
				calls++
				gotID, err = id, recErr
			}))
			for range e.Organize(dir) {
				break
			}

			if calls != 1 {
				t.Fatalf("Expected one record attempt, got %d", calls)
			}
			if (err != nil) != tt.wantErr || (gotID == "") != tt.wantErr {
				t.Errorf("hook got id=%q err=%v", gotID, err)
			}
		})
	}
}

func TestOrganize_ThenUndoRestoresEverything(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.pdf", "b.png", "c.xyz", "d.mp4"}
	writeFiles(t, dir, names...)
	docs := filepath.Join(dir, "Documents")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, docs, "a.pdf")

	e, store := newTestEngine(t)
	collect(e, dir)

	result, err := history.NewUndoer(store, nil).UndoLast()
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if result.Restored != len(names) || result.Partial() {
		t.Errorf("Expected %d restored, got %+v", len(names), result)
	}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s not restored: %v", name, err)
			continue
		}
		if string(data) != "content of "+name {
			t.Errorf("%s restored with wrong content", name)
		}
	}
	if _, err := os.Stat(filepath.Join(docs, "a.pdf")); err != nil {
		t.Errorf("Pre-existing file disturbed by undo: %v", err)
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: EventMoved, File: "a.pdf", Category: "Documents"}, "Moved a.pdf -> Documents/"},
		{Event{Kind: EventSkipped, File: "README", Reason: ReasonNoExtension}, "Skipped README: no extension"},
		{Event{Kind: EventError, File: "a.pdf", Message: "denied"}, "Error moving a.pdf: denied"},
		{Event{Kind: EventError, Message: "failed to record history"}, "Error: failed to record history"},
		{Event{Kind: EventDone, Moved: 2, Skipped: 1, RunID: "r1"}, "Done: 2 moved, 1 skipped, 0 errors (run r1)"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// genFileSet generates distinct file names drawn from a small stem pool so
// that collisions with pre-existing destination files are common.
func genFileSet() gopter.Gen {
	exts := []string{".pdf", ".png", ".mp3", ".xyz", ".py", ""}
	return gen.SliceOfN(6, gen.IntRange(0, 35)).Map(func(ids []int) []string {
		seen := make(map[string]bool)
		var names []string
		for _, id := range ids {
			name := fmt.Sprintf("f%d%s", id%6, exts[id/6])
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		sort.Strings(names)
		return names
	})
}

func TestOrganize_NoFileLost_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25

	properties := gopter.NewProperties(parameters)

	properties.Property("every file is moved, skipped or reported, and moves land on fresh names", prop.ForAll(
		func(names []string, preexisting []string) bool {
			dir, err := os.MkdirTemp("", "tidyup-organize-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			rules := category.DefaultRules()
			occupied := make(map[string]bool)
			for _, name := range preexisting {
				ext := category.Extension(name)
				if ext == "" {
					continue
				}
				catDir := filepath.Join(dir, rules.Classify(ext))
				if err := os.MkdirAll(catDir, 0755); err != nil {
					return false
				}
				path := filepath.Join(catDir, name)
				if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
					return false
				}
				occupied[path] = true
			}
			for _, name := range names {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
					return false
				}
			}

			store := history.NewJSONStore(filepath.Join(dir, "history.json"))
			e := NewEngine(rules, store, WithExcludes(filepath.Join(dir, "history.json")))

			accounted := make(map[string]bool)
			for ev := range e.Organize(dir) {
				switch ev.Kind {
				case EventMoved:
					if occupied[ev.Destination] {
						t.Logf("%s overwrote %s", ev.File, ev.Destination)
						return false
					}
					occupied[ev.Destination] = true
					data, err := os.ReadFile(ev.Destination)
					if err != nil || string(data) != ev.File {
						return false
					}
					accounted[ev.File] = true
				case EventSkipped, EventError:
					accounted[ev.File] = true
				}
			}

			for _, name := range names {
				if !accounted[name] {
					t.Logf("%s not accounted for", name)
					return false
				}
			}
			return true
		},
		genFileSet(),
		genFileSet(),
	))

	properties.TestingRun(t)
}
