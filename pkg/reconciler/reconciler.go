// Package reconciler walks a local tree against a remote store and decides,
// per entry, whether it is already synced, new, changed or to be skipped.
package reconciler

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"github.com/yuya-takeyama/strict-box-sync/internal/walker"
	"github.com/yuya-takeyama/strict-box-sync/pkg/contenthash"
	"github.com/yuya-takeyama/strict-box-sync/pkg/executor"
	"github.com/yuya-takeyama/strict-box-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-box-sync/pkg/prune"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

type Options struct {
	Walker          *walker.Walker
	Store           remote.Store
	Prune           *prune.Policy
	Confirm         Confirmer
	Uploader        Uploader
	Logger          logger.Logger
	DestinationRoot string

	// HashFile defaults to contenthash.HashFile.
	HashFile func(path string) (string, error)
}

type Reconciler struct {
	walker   *walker.Walker
	store    remote.Store
	prune    *prune.Policy
	confirm  Confirmer
	uploader Uploader
	logger   logger.Logger
	destRoot string
	hashFile func(path string) (string, error)
}

func New(opts Options) *Reconciler {
	r := &Reconciler{
		walker:   opts.Walker,
		store:    opts.Store,
		prune:    opts.Prune,
		confirm:  opts.Confirm,
		uploader: opts.Uploader,
		logger:   opts.Logger,
		destRoot: remote.Clean(opts.DestinationRoot),
		hashFile: opts.HashFile,
	}
	if r.logger == nil {
		r.logger = logger.NullLogger{}
	}
	if r.hashFile == nil {
		r.hashFile = contenthash.HashFile
	}
	return r
}

// pendingDir is a directory waiting on the worklist.
type pendingDir struct {
	local  string // relative, OS separators
	remote string // relative, "/" separators, NFC names
}

// Run walks the source tree depth-first, pre-order.
//
// Per-entry failures are recorded in the report and the walk goes on. Only
// confirmation errors (quit, closed input) and context cancellation stop it;
// they are returned together with the partial report.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	stack := []pendingDir{{}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next, err := r.visit(ctx, dir, report)
		if err != nil {
			return report, err
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}

	return report, nil
}

// visit reconciles the files of one directory and returns the subdirectories
// confirmed for descent.
//
// A subdirectory is pruned, then confirmed. Symlinked directories are never
// descended. A confirmed directory whose name is a file remotely is flagged
// as a mismatch instead of being walked.
func (r *Reconciler) visit(ctx context.Context, dir pendingDir, report *Report) ([]pendingDir, error) {
	r.logger.Descend(dir.remote)

	listing := r.listRemote(ctx, dir, report)

	files, dirs, err := r.walker.ReadDir(dir.local)
	if err != nil {
		report.ReadFailures++
		r.logger.Error("read directory", filepath.Join(r.walker.Root(), dir.local), err)
		return nil, nil
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := r.reconcileFile(ctx, dir, f, listing)
		report.add(out)
		if err != nil {
			return nil, err
		}
	}

	var next []pendingDir
	for _, d := range dirs {
		child := pendingDir{local: d.RelPath, remote: path.Join(dir.remote, d.Name)}
		out := Outcome{
			Path:       filepath.ToSlash(d.RelPath),
			RemotePath: remote.Join(r.destRoot, child.remote),
			IsDir:      true,
		}

		if dec := r.prune.Decide(d.RelPath, true); !dec.Keep {
			out.Decision = DecisionSkipPruned
			out.Reason = dec.Reason
			r.logger.Skip(out.Path, dec.Reason)
			report.add(out)
			continue
		}

		if d.Symlink {
			out.Decision = DecisionSkipPruned
			out.Reason = reasonSymlinkDir
			r.logger.Skip(out.Path, reasonSymlinkDir)
			report.add(out)
			continue
		}

		ok, err := r.confirm.Decide(fmt.Sprintf("Descend into %s", out.Path), true)
		if err != nil {
			return nil, err
		}
		if !ok {
			out.Decision = DecisionSkipPruned
			out.Reason = reasonNotConfirmed
			r.logger.Skip(out.Path, reasonNotConfirmed)
			report.add(out)
			continue
		}

		if _, ok := listing[d.Name].(*remote.FileRecord); ok {
			out.Decision = DecisionFlagMismatch
			out.Reason = reasonRemoteFile
			r.logger.Mismatch(out.Path, reasonRemoteFile)
			report.add(out)
			continue
		}
		next = append(next, child)
	}

	return next, nil
}

// listRemote fetches the listing once per visit. A failure is logged and
// the directory is treated as empty remotely.
func (r *Reconciler) listRemote(ctx context.Context, dir pendingDir, report *Report) remote.Listing {
	remotePath := remote.Join(r.destRoot, dir.remote)
	stop := logger.Stopwatch(r.logger, "list "+remotePath)
	listing, err := remote.ListDirectory(ctx, r.store, r.destRoot, dir.remote)
	stop()
	if err != nil {
		report.ListFailures++
		r.logger.Error("list", remotePath, err)
		return remote.Listing{}
	}
	return listing
}

func (r *Reconciler) reconcileFile(ctx context.Context, dir pendingDir, f walker.Entry, listing remote.Listing) (Outcome, error) {
	out := Outcome{
		Path:       filepath.ToSlash(f.RelPath),
		RemotePath: remote.Join(r.destRoot, dir.remote, f.Name),
		Size:       f.Size,
	}

	if dec := r.prune.Decide(f.RelPath, false); !dec.Keep {
		out.Decision = DecisionSkipPruned
		out.Reason = dec.Reason
		r.logger.Skip(out.Path, dec.Reason)
		return out, nil
	}

	cls, err := Classify(f, listing[f.Name], func() (string, error) {
		defer logger.Stopwatch(r.logger, "hash "+out.Path)()
		return r.hashFile(f.Path)
	})
	out.Decision = cls.Decision
	out.Reason = cls.Reason
	if err != nil {
		out.Err = err
		r.logger.Error("hash", out.Path, err)
		return out, nil
	}

	switch cls.Decision {
	case DecisionAlreadySynced:
		r.logger.Synced(out.Path, cls.Reason)
		return out, nil

	case DecisionUploadNew:
		return r.confirmUpload(ctx, out, f, remote.ModeAdd, fmt.Sprintf("Upload new file %s", out.RemotePath), true)

	case DecisionFlagMismatch:
		r.logger.Mismatch(out.Path, cls.Reason)
		if !cls.OfferOverwrite {
			return out, nil
		}
		return r.confirmUpload(ctx, out, f, remote.ModeOverwrite, fmt.Sprintf("Overwrite %s", out.RemotePath), false)
	}

	return out, nil
}

func (r *Reconciler) confirmUpload(ctx context.Context, out Outcome, f walker.Entry, mode remote.WriteMode, message string, def bool) (Outcome, error) {
	ok, err := r.confirm.Decide(message, def)
	if err != nil {
		return out, err
	}
	if !ok {
		r.logger.Debug("upload not confirmed", "path", out.Path, "mode", mode.String())
		return out, nil
	}

	out.Confirmed = true
	if mode == remote.ModeOverwrite {
		out.Decision = DecisionUploadOverwrite
	}

	res := r.uploader.Upload(ctx, executor.Item{
		LocalPath:  f.Path,
		RemotePath: out.RemotePath,
		Size:       f.Size,
		ModTime:    f.ModTime,
		Mode:       mode,
	})
	if res.Error != nil {
		out.Err = res.Error
		return out, nil
	}
	// No record means a dry run.
	out.Uploaded = res.Record != nil
	return out, nil
}
