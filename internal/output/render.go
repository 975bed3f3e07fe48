package output

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"tidyup/internal/history"
	"tidyup/internal/orchestrator"
	"tidyup/internal/organizer"
	"tidyup/internal/scanner"
)

const timeLayout = "2006-01-02 15:04:05"

type styles struct {
	heading lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	faint   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
		err:     r.NewStyle().Foreground(lipgloss.Color("196")),
		faint:   r.NewStyle().Faint(true),
	}
}

func (o *Output) heading(title string) {
	fmt.Fprintln(o.config.Writer, o.styles.heading.Render(title))
}

// Event prints one organize event.
func (o *Output) Event(ev organizer.Event) {
	if o.config.JSON {
		_ = o.JSON(ev)
		return
	}
	switch ev.Kind {
	case organizer.EventMoved:
		o.clearProgress()
		fmt.Fprintln(o.config.Writer, o.styles.success.Render(ev.String()))
		if ev.Destination != "" {
			o.Verbose("  %s -> %s", ev.Source, ev.Destination)
		}
	case organizer.EventSkipped:
		o.clearProgress()
		fmt.Fprintln(o.config.Writer, o.styles.warn.Render(ev.String()))
	case organizer.EventError:
		o.clearProgress()
		fmt.Fprintln(o.config.Writer, o.styles.err.Render(ev.String()))
	case organizer.EventInvalid:
		o.Error("%s", ev.Message)
	case organizer.EventEmpty:
		o.Info("%s", ev.Message)
	case organizer.EventDone:
		// The run summary covers the totals.
	}
}

type summaryJSON struct {
	Status     string         `json:"status"`
	Directory  string         `json:"directory"`
	Moved      int            `json:"moved"`
	Skipped    int            `json:"skipped"`
	Errors     int            `json:"errors"`
	RunID      string         `json:"run_id,omitempty"`
	ByCategory map[string]int `json:"by_category,omitempty"`
	Message    string         `json:"message,omitempty"`
	Cancelled  bool           `json:"cancelled,omitempty"`
	RecordErr  string         `json:"record_error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Summary prints the totals of an organize run.
func (o *Output) Summary(s *orchestrator.Summary) {
	if o.config.JSON {
		status := "summary"
		if s.Invalid != "" {
			status = "invalid"
		} else if s.Empty {
			status = "empty"
		}
		_ = o.JSON(summaryJSON{
			Status:     status,
			Directory:  s.Directory,
			Moved:      s.Moved,
			Skipped:    s.Skipped,
			Errors:     s.Errors,
			RunID:      string(s.RunID),
			ByCategory: s.ByCategory,
			Message:    s.Invalid,
			Cancelled:  s.Cancelled,
			RecordErr:  s.RecordErr,
			DurationMS: s.Duration.Milliseconds(),
		})
		return
	}
	if s.Invalid != "" || s.Empty {
		return
	}

	fmt.Fprintln(o.config.Writer)
	o.heading("Summary")
	fmt.Fprintf(o.config.Writer, "  %s\n", s.PrintSummary())
	if s.RunID != "" {
		fmt.Fprintf(o.config.Writer, "  Run %s (undo with: tidyup undo)\n", s.RunID)
	}
	if o.config.Verbose {
		for _, cat := range sortedKeys(s.ByCategory) {
			fmt.Fprintf(o.config.Writer, "    %-12s %d\n", cat, s.ByCategory[cat])
		}
		fmt.Fprintf(o.config.Writer, "  Took %s\n", s.Duration.Round(time.Millisecond))
	}
}

// Status prints a dry-run plan.
func (o *Output) Status(r *orchestrator.StatusResult) {
	if o.config.JSON {
		_ = o.JSON(r)
		return
	}
	if r.Invalid != "" {
		o.Error("%s", r.Invalid)
		return
	}

	o.heading(fmt.Sprintf("Planned moves in %s", r.Directory))
	if r.Total == 0 {
		fmt.Fprintln(o.config.Writer, "  Nothing to move")
	}
	for _, cat := range r.Categories() {
		paths := r.ByCategory[cat]
		fmt.Fprintf(o.config.Writer, "  %s (%d)\n", cat, len(paths))
		for _, p := range paths {
			fmt.Fprintf(o.config.Writer, "    %s\n", p)
		}
	}
	for _, name := range sortedKeys(r.Skipped) {
		fmt.Fprintln(o.config.Writer, o.styles.warn.Render(fmt.Sprintf("  skip %s: %s", name, r.Skipped[name])))
	}
	fmt.Fprintf(o.config.Writer, "Total: %d file(s) would move\n", r.Total)
}

// UndoResult prints the outcome of an undo. A partial undo is called out
// explicitly because the failed files cannot be retried.
func (o *Output) UndoResult(r *history.UndoResult) {
	if o.config.JSON {
		_ = o.JSON(r)
		return
	}
	fmt.Fprintf(o.config.Writer, "Restored %d of %d file(s) from run %s\n", r.Restored, r.Attempted, r.RunID)
	if !r.Partial() {
		return
	}
	fmt.Fprintln(o.config.Writer, o.styles.warn.Render(fmt.Sprintf(
		"%d file(s) could not be restored. The run is marked undone and these will not be retried:", r.Failed)))
	for _, f := range r.Failures {
		fmt.Fprintf(o.config.Writer, "  %s -> %s: %s\n", f.To, f.From, f.Message)
	}
}

type runJSON struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp"`
	Moves     int    `json:"moves"`
	Undone    bool   `json:"undone"`
}

// History prints recorded runs, newest last.
func (o *Output) History(runs []history.RunRecord) {
	if o.config.JSON {
		out := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			out = append(out, runJSON{
				RunID:     string(r.RunID),
				Timestamp: r.Timestamp.Format(history.TimestampFormat),
				Moves:     len(r.Moves),
				Undone:    r.Undone,
			})
		}
		_ = o.JSON(out)
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(o.config.Writer, "No runs recorded")
		return
	}

	o.heading("Runs")
	for _, r := range runs {
		state := o.styles.success.Render("active")
		if r.Undone {
			state = o.styles.faint.Render("undone")
		}
		fmt.Fprintf(o.config.Writer, "  %s  %s  %4d move(s)  %s\n",
			r.Timestamp.Local().Format(timeLayout), r.RunID, len(r.Moves), state)
		if o.config.Verbose {
			for _, m := range r.Moves {
				fmt.Fprintf(o.config.Writer, "      %s -> %s\n", m.From, m.To)
			}
		}
	}
}

// Report prints a scan report, listing at most top entries per ranking.
func (o *Output) Report(r *scanner.Report, top int) {
	if o.config.JSON {
		_ = o.JSON(r)
		return
	}
	if top <= 0 {
		top = scanner.RankCap
	}
	w := o.config.Writer

	o.heading(fmt.Sprintf("Scan of %s", r.Root))
	fmt.Fprintf(w, "  Files:        %d\n", r.TotalFiles)
	fmt.Fprintf(w, "  Folders:      %d\n", r.TotalFolders)
	fmt.Fprintf(w, "  Total size:   %s\n", scanner.FormatSize(r.TotalSize))
	fmt.Fprintf(w, "  Hidden files: %d\n", r.HiddenFiles)
	fmt.Fprintf(w, "  Scan time:    %s\n", r.ScanTime.Round(time.Millisecond))

	if len(r.Categories) > 0 {
		fmt.Fprintln(w)
		o.heading("By extension")
		cats := sortedKeys(r.Categories)
		sort.SliceStable(cats, func(i, j int) bool {
			return r.Categories[cats[i]].Size > r.Categories[cats[j]].Size
		})
		for _, name := range limit(cats, top) {
			c := r.Categories[name]
			fmt.Fprintf(w, "  %-10s %6d file(s)  %s\n", name, c.Count, scanner.FormatSize(c.Size))
		}
	}

	if len(r.LargestFiles) > 0 {
		fmt.Fprintln(w)
		o.heading("Largest files")
		for _, f := range r.Top(top) {
			fmt.Fprintf(w, "  %10s  %s\n", f.SizeFormatted, f.Path)
		}
	}

	if len(r.OldestFiles) > 0 {
		fmt.Fprintln(w)
		o.heading("Oldest files")
		for _, f := range limit(r.OldestFiles, top) {
			fmt.Fprintf(w, "  %s  %s\n", f.Modified.Local().Format(timeLayout), f.Path)
		}
		fmt.Fprintln(w)
		o.heading("Newest files")
		for _, f := range limit(r.NewestFiles, top) {
			fmt.Fprintf(w, "  %s  %s\n", f.Modified.Local().Format(timeLayout), f.Path)
		}
	}

	if len(r.Duplicates) > 0 {
		fmt.Fprintln(w)
		o.heading("Possible duplicates (same size)")
		for _, g := range limit(r.Duplicates, top) {
			fmt.Fprintf(w, "  %s x %d\n", g.SizeFormatted, g.Count)
			for _, p := range g.Files {
				fmt.Fprintf(w, "    %s\n", p)
			}
		}
	}

	if len(r.EmptyFolders) > 0 {
		fmt.Fprintln(w)
		o.heading(fmt.Sprintf("Empty folders (%d)", len(r.EmptyFolders)))
		for _, p := range limit(r.EmptyFolders, top) {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w)
		o.heading(fmt.Sprintf("Errors (%d)", len(r.Errors)))
		for _, e := range r.Errors {
			fmt.Fprintln(w, o.styles.err.Render(fmt.Sprintf("  %s: %s", e.Path, e.Message)))
		}
	}
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
