package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/yuya-takeyama/strict-box-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

// Item is one confirmed upload.
type Item struct {
	LocalPath  string
	RemotePath string
	Size       int64
	ModTime    time.Time
	Mode       remote.WriteMode
}

type Result struct {
	Item   Item
	Record *remote.FileRecord // nil on dry run or error
	Error  error
}

type Executor struct {
	store  remote.Store
	logger logger.Logger
	dryRun bool
}

func NewExecutor(store remote.Store, l logger.Logger, dryRun bool) *Executor {
	if l == nil {
		l = logger.NullLogger{}
	}
	return &Executor{
		store:  store,
		logger: l,
		dryRun: dryRun,
	}
}

// Upload sends item to the store. Failures are logged and returned in the Result.
func (e *Executor) Upload(ctx context.Context, item Item) Result {
	e.logger.Upload(item.LocalPath, item.RemotePath, item.Size, item.Mode.String())
	if e.dryRun {
		return Result{Item: item}
	}

	record, err := e.uploadFile(ctx, item)
	if err != nil {
		e.logger.Error("upload", item.RemotePath, err)
		return Result{Item: item, Error: err}
	}

	e.logger.Uploaded(item.RemotePath, item.Size)
	return Result{Item: item, Record: record}
}

func (e *Executor) uploadFile(ctx context.Context, item Item) (*remote.FileRecord, error) {
	file, err := os.Open(item.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	defer logger.Stopwatch(e.logger, fmt.Sprintf("upload %s (%s)", item.RemotePath, humanize.Bytes(uint64(item.Size))))()

	record, err := e.store.Upload(ctx, file, item.Size, item.RemotePath, item.Mode, item.ModTime)
	if err != nil {
		return nil, fmt.Errorf("failed to upload: %w", err)
	}
	return record, nil
}
