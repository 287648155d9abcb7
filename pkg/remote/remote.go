// Package remote defines the hierarchical remote store consumed by the sync
// engine: directory listings made of file and directory records, uploads in
// add or overwrite mode, and downloads.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotFound reports that a remote path does not exist.
	ErrNotFound = errors.New("remote: not found")

	// ErrConflict reports that an add-mode upload hit an existing entry.
	ErrConflict = errors.New("remote: conflict")
)

// Entry is one item of a directory listing: either *FileRecord or *DirectoryRecord.
type Entry interface {
	EntryName() string
	isEntry()
}

// FileRecord describes a remote file.
type FileRecord struct {
	Name           string
	Size           int64
	ClientModified time.Time // UTC, second precision
	ContentHash    string    // hex, see package contenthash
}

func (f *FileRecord) EntryName() string { return f.Name }
func (*FileRecord) isEntry()            {}

// DirectoryRecord describes a remote directory.
type DirectoryRecord struct {
	Name string
}

func (d *DirectoryRecord) EntryName() string { return d.Name }
func (*DirectoryRecord) isEntry()            {}

// Listing maps entry names to entries for one remote directory.
type Listing map[string]Entry

type WriteMode int

const (
	// ModeAdd creates a new file and fails with ErrConflict if one exists.
	ModeAdd WriteMode = iota
	// ModeOverwrite replaces whatever is stored at the path.
	ModeOverwrite
)

func (m WriteMode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// Store is a remote hierarchical file store. Paths are normalized with Join.
type Store interface {
	// List returns the entries directly under path.
	// A missing directory yields an error matching ErrNotFound.
	List(ctx context.Context, path string) (Listing, error)

	// Upload writes size bytes from r to path.
	Upload(ctx context.Context, r io.Reader, size int64, path string, mode WriteMode, clientModified time.Time) (*FileRecord, error)

	// Download returns the bytes stored at path.
	Download(ctx context.Context, path string) ([]byte, *FileRecord, error)
}

// Error is a failed remote operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("remote.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("remote.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with operation and path context.
func NewError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}

// NormalizeTime truncates t to whole seconds in UTC.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
