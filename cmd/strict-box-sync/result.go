package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/yuya-takeyama/strict-box-sync/internal/config"
	"github.com/yuya-takeyama/strict-box-sync/pkg/reconciler"
)

// SyncResult represents the actual execution results
type SyncResult struct {
	Files   []ResultFile  `json:"files"`
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ResultFile struct {
	Action string `json:"action"` // "synced", "created", "updated", "create", "update", "declined", "mismatch", "skipped"
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

type ErrorFile struct {
	Action string `json:"action"` // "create", "update", "compare"
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Synced   int `json:"synced"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Planned  int `json:"planned"`
	Declined int `json:"declined"`
	Mismatch int `json:"mismatch"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// targetFormatter renders remote paths the way the destination was given.
func targetFormatter(cfg *config.Config) func(string) string {
	if !cfg.IsS3() {
		return func(p string) string { return p }
	}
	base := strings.TrimSuffix(cfg.Destination, "/")
	return func(p string) string { return base + p }
}

func buildSyncResult(report *reconciler.Report, root string, target func(string) string) SyncResult {
	result := SyncResult{
		Files:  []ResultFile{},
		Errors: []ErrorFile{},
	}

	for _, o := range report.Outcomes {
		source := filepath.Join(root, filepath.FromSlash(o.Path))

		if o.Err != nil {
			result.Errors = append(result.Errors, ErrorFile{
				Action: errorAction(o.Decision),
				Source: source,
				Target: target(o.RemotePath),
				Error:  o.Err.Error(),
			})
			result.Summary.Failed++
			continue
		}

		action := resultAction(o)
		switch action {
		case "synced":
			result.Summary.Synced++
		case "created":
			result.Summary.Created++
		case "updated":
			result.Summary.Updated++
		case "create", "update":
			result.Summary.Planned++
		case "declined":
			result.Summary.Declined++
		case "mismatch":
			result.Summary.Mismatch++
		case "skipped":
			result.Summary.Skipped++
		}

		result.Files = append(result.Files, ResultFile{
			Action: action,
			Source: source,
			Target: target(o.RemotePath),
			Reason: o.Reason,
		})
	}

	return result
}

// resultAction names what happened to an outcome without an error.
// Confirmed uploads that did not happen were skipped by a dry run and keep
// the present tense.
func resultAction(o reconciler.Outcome) string {
	switch o.Decision {
	case reconciler.DecisionAlreadySynced:
		return "synced"
	case reconciler.DecisionSkipPruned:
		return "skipped"
	case reconciler.DecisionFlagMismatch:
		return "mismatch"
	case reconciler.DecisionUploadNew, reconciler.DecisionUploadOverwrite:
		verb := "create"
		if o.Decision == reconciler.DecisionUploadOverwrite {
			verb = "update"
		}
		switch {
		case !o.Confirmed:
			return "declined"
		case o.Uploaded:
			return verb + "d"
		default:
			return verb
		}
	default:
		return "unknown"
	}
}

func errorAction(d reconciler.Decision) string {
	switch d {
	case reconciler.DecisionUploadNew:
		return "create"
	case reconciler.DecisionUploadOverwrite:
		return "update"
	default:
		return "compare"
	}
}

func writeSyncResult(path string, result SyncResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
