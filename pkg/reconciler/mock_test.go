package reconciler

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yuya-takeyama/strict-box-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

type uploadCall struct {
	path string
	mode remote.WriteMode
	data string
}

// mockStore is a mock implementation of remote.Store for testing
type mockStore struct {
	mu         sync.Mutex
	listFunc   func(ctx context.Context, path string) (remote.Listing, error)
	uploadFunc func(ctx context.Context, path string, mode remote.WriteMode) error

	listCalls   []string
	uploadCalls []uploadCall
}

func (m *mockStore) List(ctx context.Context, path string) (remote.Listing, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, path)
	m.mu.Unlock()

	if m.listFunc != nil {
		return m.listFunc(ctx, path)
	}
	return nil, remote.NewError("list", path, remote.ErrNotFound)
}

func (m *mockStore) Upload(ctx context.Context, r io.Reader, size int64, path string, mode remote.WriteMode, clientModified time.Time) (*remote.FileRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.uploadCalls = append(m.uploadCalls, uploadCall{path: path, mode: mode, data: string(data)})
	m.mu.Unlock()

	if m.uploadFunc != nil {
		if err := m.uploadFunc(ctx, path, mode); err != nil {
			return nil, err
		}
	}
	return &remote.FileRecord{Name: remote.Base(path), Size: size, ClientModified: remote.NormalizeTime(clientModified)}, nil
}

func (m *mockStore) Download(ctx context.Context, path string) ([]byte, *remote.FileRecord, error) {
	return nil, nil, fmt.Errorf("Download not implemented")
}

// mockConfirmer records prompts and answers them with decideFunc,
// or with the default answer when it is nil.
type mockConfirmer struct {
	decideFunc func(message string, def bool) (bool, error)
	prompts    []string
}

func (m *mockConfirmer) Decide(message string, def bool) (bool, error) {
	m.prompts = append(m.prompts, message)
	if m.decideFunc != nil {
		return m.decideFunc(message, def)
	}
	return def, nil
}

// mockLogger is a mock implementation of logger.Logger for testing
type mockLogger struct {
	logger.NullLogger
	skipCalls     []string
	syncedCalls   []string
	mismatchCalls []string
	errorCalls    []errorCall
}

type errorCall struct {
	operation string
	path      string
	err       error
}

func (m *mockLogger) Skip(path, reason string) {
	m.skipCalls = append(m.skipCalls, path+": "+reason)
}

func (m *mockLogger) Synced(path, reason string) {
	m.syncedCalls = append(m.syncedCalls, path)
}

func (m *mockLogger) Mismatch(path, detail string) {
	m.mismatchCalls = append(m.mismatchCalls, path)
}

func (m *mockLogger) Error(operation, path string, err error) {
	m.errorCalls = append(m.errorCalls, errorCall{operation, path, err})
}

// hashRecorder wraps a hash func and records which paths were hashed.
type hashRecorder struct {
	hashFunc func(path string) (string, error)
	paths    []string
}

func (h *hashRecorder) hash(path string) (string, error) {
	h.paths = append(h.paths, path)
	return h.hashFunc(path)
}
