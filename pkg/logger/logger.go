package logger

import (
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// Logger receives the observable events of a sync run.
type Logger interface {
	Descend(subdir string)
	Skip(path, reason string)
	Synced(path, reason string)
	Mismatch(path, detail string)
	Upload(localPath, remotePath string, size int64, mode string)
	Uploaded(remotePath string, size int64)
	Error(operation, path string, err error)
	Debug(message string, args ...any)
	Elapsed(operation string, d time.Duration)
}

// SyncLogger writes events to a slog.Logger.
type SyncLogger struct {
	Log      *slog.Logger
	IsDryRun bool
	IsQuiet  bool
}

var _ Logger = (*SyncLogger)(nil)

func (l *SyncLogger) log() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

func (l *SyncLogger) info(msg string, args ...any) {
	if l.IsQuiet {
		return
	}
	if l.IsDryRun {
		msg = "(dryrun) " + msg
	}
	l.log().Info(msg, args...)
}

func (l *SyncLogger) Descend(subdir string) {
	if subdir == "" {
		subdir = "."
	}
	l.info("descending", "dir", subdir)
}

func (l *SyncLogger) Skip(path, reason string) {
	l.info("skip", "path", path, "reason", reason)
}

func (l *SyncLogger) Synced(path, reason string) {
	l.info("already synced", "path", path, "reason", reason)
}

// Mismatch is logged even in quiet mode: it is an outcome that needs attention.
func (l *SyncLogger) Mismatch(path, detail string) {
	l.log().Warn("mismatch", "path", path, "detail", detail)
}

func (l *SyncLogger) Upload(localPath, remotePath string, size int64, mode string) {
	l.info("upload", "from", localPath, "to", remotePath, "size", humanize.Bytes(uint64(size)), "mode", mode)
}

func (l *SyncLogger) Uploaded(remotePath string, size int64) {
	l.info("uploaded", "path", remotePath, "size", humanize.Bytes(uint64(size)))
}

func (l *SyncLogger) Error(operation, path string, err error) {
	l.log().Error(operation+" failed", "path", path, "error", err)
}

func (l *SyncLogger) Debug(message string, args ...any) {
	l.log().Debug(message, args...)
}

func (l *SyncLogger) Elapsed(operation string, d time.Duration) {
	l.log().Debug("elapsed", "op", operation, "took", d.Round(time.Millisecond))
}

// Stopwatch logs the time until the returned func is called.
//
//	defer logger.Stopwatch(l, "list_directory")()
func Stopwatch(l Logger, operation string) func() {
	start := time.Now()
	return func() {
		l.Elapsed(operation, time.Since(start))
	}
}

// NullLogger discards everything.
type NullLogger struct{}

var _ Logger = NullLogger{}

func (NullLogger) Descend(string)                       {}
func (NullLogger) Skip(string, string)                  {}
func (NullLogger) Synced(string, string)                {}
func (NullLogger) Mismatch(string, string)              {}
func (NullLogger) Upload(string, string, int64, string) {}
func (NullLogger) Uploaded(string, int64)               {}
func (NullLogger) Error(string, string, error)          {}
func (NullLogger) Debug(string, ...any)                 {}
func (NullLogger) Elapsed(string, time.Duration)        {}
