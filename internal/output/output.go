// Package output handles CLI output formatting including verbose mode, JSON
// mode and progress indicators.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"tidyup/internal/scanner"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	JSON      bool      // Emit machine-readable JSON instead of text
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	IsTTY     bool      // Whether output is a terminal
}

// Output handles formatted output with verbose and progress support.
type Output struct {
	config     Config
	styles     styles
	bar        *progressbar.ProgressBar
	progressMu sync.Mutex
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
		styles: newStyles(lipgloss.NewRenderer(config.Writer)),
	}
}

// DefaultConfig returns a Config with sensible defaults and TTY detection.
func DefaultConfig() Config {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	return Config{
		Verbose:   false,
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		IsTTY:     isTTY,
	}
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose || o.config.JSON {
		return
	}
	o.clearProgress()
	fmt.Fprint(o.config.Writer, line(format, args...))
}

// Info prints an informational message. JSON mode suppresses it so the
// output stays parseable.
func (o *Output) Info(format string, args ...interface{}) {
	if o.config.JSON {
		return
	}
	o.clearProgress()
	fmt.Fprint(o.config.Writer, line(format, args...))
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...interface{}) {
	o.clearProgress()
	fmt.Fprint(o.config.ErrWriter, o.styles.err.Render(strings.TrimSuffix(line(format, args...), "\n"))+"\n")
}

// JSON writes v as one line of JSON.
func (o *Output) JSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.config.Writer, string(data))
	return err
}

// IsJSON returns whether JSON mode is enabled.
func (o *Output) IsJSON() bool {
	return o.config.JSON
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

func line(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return msg
}

func (o *Output) progressEnabled() bool {
	return o.config.IsTTY && !o.config.Verbose && !o.config.JSON
}

// StartProgress begins a progress bar for total items.
func (o *Output) StartProgress(total int, description string) {
	if !o.progressEnabled() {
		return
	}
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.config.ErrWriter),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
	)
}

// UpdateProgress moves the progress bar to current.
func (o *Output) UpdateProgress(current int) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.bar == nil {
		return
	}
	_ = o.bar.Set(current)
}

// EndProgress finishes and clears the progress bar.
func (o *Output) EndProgress() {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.bar == nil {
		return
	}
	_ = o.bar.Finish()
	o.bar = nil
}

func (o *Output) clearProgress() {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	if o.bar != nil {
		_ = o.bar.Clear()
	}
}

// ScanProgress returns a scanner callback that drives a progress bar,
// starting it on the first callback once the item total is known.
func (o *Output) ScanProgress() scanner.ProgressFunc {
	started := false
	return func(p scanner.Progress) {
		if !started {
			o.StartProgress(p.Total, "Scanning")
			started = true
		}
		o.UpdateProgress(p.Current)
		o.Verbose("[%d/%d] %s", p.Current, p.Total, p.Item)
	}
}
