// Package prune decides which local entries are considered for sync at all,
// based on their names.
package prune

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultGeneratedFiles are name patterns of compiled artifacts skipped by default.
var DefaultGeneratedFiles = []string{"*.pyc", "*.pyo"}

// DefaultGeneratedDirs are directory names holding compiled artifacts.
var DefaultGeneratedDirs = []string{"__pycache__"}

const (
	ReasonDot           = "dot file/directory"
	ReasonTemporary     = "temporary"
	ReasonGeneratedFile = "generated file"
	ReasonGeneratedDir  = "generated directory"
	ReasonExcluded      = "excluded by pattern"
	ReasonPending       = "pending confirmation"
)

// Decision is the pruning verdict for one entry.
type Decision struct {
	Keep   bool
	Reason string
}

// Options configures a Policy.
type Options struct {
	// GeneratedFiles are doublestar patterns matched against file names.
	GeneratedFiles []string
	// GeneratedDirs are exact directory names.
	GeneratedDirs []string
	// Excludes are doublestar patterns matched against slash-separated relative paths.
	Excludes []string
}

// Policy applies the pruning rules. The zero value is not usable; use New.
type Policy struct {
	generatedFiles []string
	generatedDirs  mapset.Set[string]
	excludes       []string
}

// New validates the patterns in opts and builds a Policy.
// Nil GeneratedFiles or GeneratedDirs select the defaults; empty non-nil slices disable them.
func New(opts Options) (*Policy, error) {
	files := opts.GeneratedFiles
	if files == nil {
		files = DefaultGeneratedFiles
	}
	dirs := opts.GeneratedDirs
	if dirs == nil {
		dirs = DefaultGeneratedDirs
	}

	for _, pattern := range append(append([]string{}, files...), opts.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
	}

	return &Policy{
		generatedFiles: files,
		generatedDirs:  mapset.NewSet(dirs...),
		excludes:       opts.Excludes,
	}, nil
}

// Decide returns whether the entry at relPath is eligible.
// relPath is relative to the source root; its last element is the entry name.
// First matching rule wins.
func (p *Policy) Decide(relPath string, isDir bool) Decision {
	relPath = path.Clean(filepath.ToSlash(relPath))
	name := path.Base(relPath)

	switch {
	case strings.HasPrefix(name, "."):
		return skip(ReasonDot)
	case strings.HasPrefix(name, "@") || strings.HasSuffix(name, "~"):
		return skip(ReasonTemporary)
	case !isDir && p.matchAny(p.generatedFiles, name):
		return skip(ReasonGeneratedFile)
	case isDir && p.generatedDirs.Contains(name):
		return skip(ReasonGeneratedDir)
	case p.matchAny(p.excludes, relPath):
		return skip(ReasonExcluded)
	}

	return Decision{Keep: true, Reason: ReasonPending}
}

func (p *Policy) matchAny(patterns []string, s string) bool {
	for _, pattern := range patterns {
		if doublestar.MatchUnvalidated(pattern, s) {
			return true
		}
	}
	return false
}

func skip(reason string) Decision {
	return Decision{Keep: false, Reason: reason}
}
