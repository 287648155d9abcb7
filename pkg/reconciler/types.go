package reconciler

import (
	"context"

	"github.com/yuya-takeyama/strict-box-sync/pkg/executor"
)

type Decision string

const (
	DecisionAlreadySynced   Decision = "already_synced"
	DecisionUploadNew       Decision = "upload_new"
	DecisionUploadOverwrite Decision = "upload_overwrite"
	DecisionSkipPruned      Decision = "skip_pruned"
	DecisionFlagMismatch    Decision = "flag_mismatch"
)

// Confirmer gates every mutating action. See package confirm.
type Confirmer interface {
	Decide(message string, def bool) (bool, error)
}

// Uploader performs a confirmed upload. See package executor.
type Uploader interface {
	Upload(ctx context.Context, item executor.Item) executor.Result
}

// Outcome is the result of reconciling one local entry.
type Outcome struct {
	Path       string   `json:"path"` // slash-separated, relative to the source root
	RemotePath string   `json:"remote_path"`
	IsDir      bool     `json:"is_dir,omitempty"`
	Size       int64    `json:"size,omitempty"`
	Decision   Decision `json:"decision"`
	Reason     string   `json:"reason,omitempty"`
	Confirmed  bool     `json:"confirmed,omitempty"`
	Uploaded   bool     `json:"uploaded,omitempty"`
	Err        error    `json:"-"`
}

// Report collects the outcomes of a run in walk order.
type Report struct {
	Outcomes     []Outcome
	ListFailures int
	ReadFailures int
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

type Counts struct {
	Synced        int
	Uploaded      int
	Declined      int
	Mismatched    int
	Skipped       int
	Failed        int
	BytesUploaded int64
}

func (r *Report) Counts() Counts {
	var c Counts
	for _, o := range r.Outcomes {
		if o.Err != nil {
			c.Failed++
			continue
		}
		switch o.Decision {
		case DecisionAlreadySynced:
			c.Synced++
		case DecisionSkipPruned:
			c.Skipped++
		case DecisionFlagMismatch:
			c.Mismatched++
		case DecisionUploadNew, DecisionUploadOverwrite:
			if !o.Confirmed {
				c.Declined++
			}
		}
		if o.Uploaded {
			c.Uploaded++
			c.BytesUploaded += o.Size
		}
	}
	return c
}

// Failed reports whether any upload or hash computation failed.
func (r *Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}
