package walker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrRootNotExist is returned when the source root is missing.
	ErrRootNotExist = errors.New("does not exist on your filesystem")

	// ErrRootNotDir is returned when the source root is not a directory.
	ErrRootNotDir = errors.New("is not a directory on your filesystem")
)

// Entry is a snapshot of one local directory entry.
type Entry struct {
	Name    string // NFC-normalized
	RelPath string // relative to root, OS separators, original bytes
	Path    string // absolute path
	Size    int64
	ModTime time.Time // UTC, second precision
	IsDir   bool
	Symlink bool // the entry itself is a symbolic link
}

// Walker lists local directories under a validated root.
type Walker struct {
	root string
}

// NewWalker creates a new walker after checking root is an existing directory.
// A leading "~" is expanded to the home directory.
func NewWalker(root string) (*Walker, error) {
	expanded, err := ExpandHome(root)
	if err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s %w", absRoot, ErrRootNotExist)
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s %w", absRoot, ErrRootNotDir)
	}

	return &Walker{root: absRoot}, nil
}

// Root returns the absolute source root.
func (w *Walker) Root() string {
	return w.root
}

// ReadDir lists the directory at rel (relative to root) and returns its files
// and subdirectories, each sorted by name.
//
// Symlinks are resolved and marked with Symlink; a link to a directory is
// reported among dirs so the caller can decide not to follow it.
// Entries that vanish or cannot be stat'ed while listing are skipped.
func (w *Walker) ReadDir(rel string) (files, dirs []Entry, err error) {
	dir := filepath.Join(w.root, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read directory: %w", err)
	}

	for _, de := range entries {
		full := filepath.Join(dir, de.Name())

		var info os.FileInfo
		symlink := de.Type()&os.ModeSymlink != 0
		if symlink {
			info, err = os.Stat(full)
		} else {
			info, err = de.Info()
		}
		if err != nil {
			continue
		}

		entry := Entry{
			Name:    norm.NFC.String(de.Name()),
			RelPath: filepath.Join(rel, de.Name()),
			Path:    full,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC().Truncate(time.Second),
			IsDir:   info.IsDir(),
			Symlink: symlink,
		}

		switch {
		case info.IsDir():
			dirs = append(dirs, entry)
		case info.Mode().IsRegular():
			files = append(files, entry)
		}
	}

	return files, dirs, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand home: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
