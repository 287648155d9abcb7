package dropbox

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

const (
	tagFile    = "file"
	tagFolder  = "folder"
	timeLayout = "2006-01-02T15:04:05Z"
)

type listFolderArg struct {
	Path           string `json:"path"`
	Recursive      bool   `json:"recursive"`
	IncludeDeleted bool   `json:"include_deleted"`
}

type listFolderContinueArg struct {
	Cursor string `json:"cursor"`
}

type listFolderResult struct {
	Entries []metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

type uploadArg struct {
	Path           string `json:"path"`
	Mode           string `json:"mode"`
	Autorename     bool   `json:"autorename"`
	ClientModified string `json:"client_modified"`
	Mute           bool   `json:"mute"`
}

type downloadArg struct {
	Path string `json:"path"`
}

type metadata struct {
	Tag            string `json:".tag"`
	Name           string `json:"name"`
	PathDisplay    string `json:"path_display,omitempty"`
	ClientModified string `json:"client_modified,omitempty"`
	Size           int64  `json:"size,omitempty"`
	ContentHash    string `json:"content_hash,omitempty"`
}

// entry converts listing metadata. Deleted entries yield nil.
func (m *metadata) entry() (remote.Entry, error) {
	switch m.Tag {
	case tagFolder:
		return &remote.DirectoryRecord{Name: m.Name}, nil
	case tagFile:
		return m.fileRecord()
	default:
		return nil, nil
	}
}

func (m *metadata) fileRecord() (*remote.FileRecord, error) {
	modified, err := time.Parse(time.RFC3339, m.ClientModified)
	if err != nil {
		return nil, fmt.Errorf("parse client_modified of %s: %w", m.Name, err)
	}
	return &remote.FileRecord{
		Name:           m.Name,
		Size:           m.Size,
		ClientModified: remote.NormalizeTime(modified),
		ContentHash:    m.ContentHash,
	}, nil
}

// APIError is an error response of the Dropbox API.
type APIError struct {
	StatusCode int    `json:"-"`
	Summary    string `json:"error_summary"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dropbox api error: %d %s", e.StatusCode, e.Summary)
}

// Is maps endpoint error summaries onto the remote sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case remote.ErrNotFound:
		return strings.Contains(e.Summary, "not_found")
	case remote.ErrConflict:
		return strings.Contains(e.Summary, "/conflict")
	}
	return false
}
