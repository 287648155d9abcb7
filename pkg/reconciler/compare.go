package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuya-takeyama/strict-box-sync/internal/walker"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

const (
	reasonNew          = "not found remotely"
	reasonRemoteDir    = "remote entry is a directory"
	reasonRemoteFile   = "remote entry is a file"
	reasonStatsMatch   = "time and size match"
	reasonHashMatch    = "content hash matches"
	reasonHashMismatch = "content hash differs"
	reasonNotConfirmed = "not confirmed"
	reasonSymlinkDir   = "symlinked directory"
)

// MetadataComparison holds both sides of a (mtime, size) check, whole-second UTC.
type MetadataComparison struct {
	LocalTime  time.Time
	RemoteTime time.Time
	LocalSize  int64
	RemoteSize int64
}

func CompareMetadata(local walker.Entry, rec *remote.FileRecord) MetadataComparison {
	return MetadataComparison{
		LocalTime:  remote.NormalizeTime(local.ModTime),
		RemoteTime: remote.NormalizeTime(rec.ClientModified),
		LocalSize:  local.Size,
		RemoteSize: rec.Size,
	}
}

func (c MetadataComparison) TimeMatch() bool { return c.LocalTime.Equal(c.RemoteTime) }
func (c MetadataComparison) SizeMatch() bool { return c.LocalSize == c.RemoteSize }
func (c MetadataComparison) Match() bool     { return c.TimeMatch() && c.SizeMatch() }

// String describes what differs, e.g. "time mismatch (local ..., remote ...)".
func (c MetadataComparison) String() string {
	var parts []string
	if !c.TimeMatch() {
		parts = append(parts, fmt.Sprintf("time mismatch (local %s, remote %s)",
			c.LocalTime.Format(time.RFC3339), c.RemoteTime.Format(time.RFC3339)))
	}
	if !c.SizeMatch() {
		parts = append(parts, fmt.Sprintf("size mismatch (local %d, remote %d)", c.LocalSize, c.RemoteSize))
	}
	if len(parts) == 0 {
		return reasonStatsMatch
	}
	return strings.Join(parts, ", ")
}

// Classification is the decision for one kept local file.
type Classification struct {
	Decision       Decision
	Reason         string
	OfferOverwrite bool
}

// Classify compares a local file with its remote entry (nil when absent).
// hash is called only when the metadata check is inconclusive.
func Classify(local walker.Entry, entry remote.Entry, hash func() (string, error)) (Classification, error) {
	if entry == nil {
		return Classification{Decision: DecisionUploadNew, Reason: reasonNew}, nil
	}

	switch md := entry.(type) {
	case *remote.DirectoryRecord:
		return Classification{Decision: DecisionFlagMismatch, Reason: reasonRemoteDir}, nil

	case *remote.FileRecord:
		cmp := CompareMetadata(local, md)
		if cmp.Match() {
			return Classification{Decision: DecisionAlreadySynced, Reason: reasonStatsMatch}, nil
		}

		localHash, err := hash()
		if err != nil {
			return Classification{Decision: DecisionFlagMismatch, Reason: cmp.String()}, fmt.Errorf("hash %s: %w", local.Path, err)
		}
		if localHash == md.ContentHash {
			return Classification{
				Decision: DecisionAlreadySynced,
				Reason:   fmt.Sprintf("%s, %s", cmp, reasonHashMatch),
			}, nil
		}
		return Classification{
			Decision:       DecisionFlagMismatch,
			Reason:         fmt.Sprintf("%s, %s", cmp, reasonHashMismatch),
			OfferOverwrite: true,
		}, nil

	default:
		return Classification{}, fmt.Errorf("unexpected remote entry %T", entry)
	}
}
