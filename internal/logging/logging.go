package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options controls the console handler.
type Options struct {
	Verbose bool
	NoColor bool
}

// NewHandler creates the console slog handler.
// Colour is disabled when w is not a terminal.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	noColor := opts.NoColor
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		noColor = true
	}

	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
}

// Summary holds the counters printed at the end of a run.
type Summary struct {
	Synced        int
	Uploaded      int
	Declined      int
	Mismatched    int
	Skipped       int
	Failed        int
	BytesUploaded int64
}

// PrintSummary prints a summary of the sync operation
func PrintSummary(w io.Writer, s Summary, quiet bool, duration time.Duration) {
	if quiet && s.Failed == 0 && s.Mismatched == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Summary ===")
	fmt.Fprintf(w, "Uploaded: %d files (%s)\n", s.Uploaded, humanize.Bytes(uint64(s.BytesUploaded)))
	fmt.Fprintf(w, "Already synced: %d files\n", s.Synced)
	fmt.Fprintf(w, "Skipped: %d entries\n", s.Skipped)
	if s.Declined > 0 {
		fmt.Fprintf(w, "Declined: %d files\n", s.Declined)
	}
	if s.Mismatched > 0 {
		fmt.Fprintf(w, "Mismatched, not uploaded: %d files\n", s.Mismatched)
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, "Errors: %d\n", s.Failed)
	}
	fmt.Fprintf(w, "Duration: %s\n", duration.Round(time.Millisecond))
}
