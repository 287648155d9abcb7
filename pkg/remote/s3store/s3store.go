// Package s3store implements remote.Store on an S3 bucket, treating
// "/"-delimited key prefixes as directories.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/strict-box-sync/pkg/contenthash"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

const (
	MetaContentHash    = "content-hash"
	MetaClientModified = "client-modified"

	DefaultConcurrency = 32

	timeLayout = "2006-01-02T15:04:05Z"
)

// API is the subset of *s3.Client used by Store.
type API interface {
	s3.ListObjectsV2APIClient
	s3.HeadObjectAPIClient
	manager.UploadAPIClient
	manager.DownloadAPIClient
}

// Store maps remote paths onto keys under bucket/prefix.
type Store struct {
	client      API
	uploader    *manager.Uploader
	downloader  *manager.Downloader
	bucket      string
	prefix      string
	concurrency int
}

var _ remote.Store = (*Store)(nil)

// New creates a store. concurrency bounds the HeadObject calls made per listing.
func New(client API, bucket, prefix string, concurrency int) *Store {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Store{
		client:      client,
		uploader:    manager.NewUploader(client),
		downloader:  manager.NewDownloader(client),
		bucket:      bucket,
		prefix:      normalizePrefix(prefix),
		concurrency: concurrency,
	}
}

// key returns the object key for a remote path.
func (s *Store) key(path string) string {
	return s.prefix + strings.TrimPrefix(remote.Clean(path), "/")
}

// dirPrefix returns the key prefix holding the children of a remote path.
func (s *Store) dirPrefix(path string) string {
	k := s.key(path)
	if k == "" || strings.HasSuffix(k, "/") {
		return k
	}
	return k + "/"
}

// List returns the objects and common prefixes directly under path.
// A prefix holding nothing is reported as not found.
func (s *Store) List(ctx context.Context, path string) (remote.Listing, error) {
	listPrefix := s.dirPrefix(path)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(listPrefix),
		Delimiter: aws.String("/"),
	})

	listing := remote.Listing{}
	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, remote.NewError("list", path, mapError(err))
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), listPrefix), "/")
			if name != "" {
				listing[name] = &remote.DirectoryRecord{Name: name}
			}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.TrimPrefix(key, listPrefix) == "" {
				continue
			}
			keys = append(keys, key)
		}
	}

	if len(keys) == 0 && len(listing) == 0 {
		return nil, remote.NewError("list", path, remote.ErrNotFound)
	}

	records := make([]*remote.FileRecord, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			record, err := s.head(gctx, key)
			if err != nil {
				return err
			}
			record.Name = strings.TrimPrefix(key, listPrefix)
			records[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, remote.NewError("list", path, err)
	}

	for _, record := range records {
		listing[record.Name] = record
	}
	return listing, nil
}

func (s *Store) head(ctx context.Context, key string) (*remote.FileRecord, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head object %s: %w", key, mapError(err))
	}

	record := &remote.FileRecord{
		Size:           aws.ToInt64(out.ContentLength),
		ClientModified: remote.NormalizeTime(aws.ToTime(out.LastModified)),
		ContentHash:    out.Metadata[MetaContentHash],
	}
	if v, ok := out.Metadata[MetaClientModified]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			record.ClientModified = remote.NormalizeTime(t)
		}
	}
	return record, nil
}

// Upload stores the bytes of r at path with the content hash and client
// modification time as object metadata. In add mode the write is conditional
// on the key not existing yet.
func (s *Store) Upload(ctx context.Context, r io.Reader, size int64, path string, mode remote.WriteMode, clientModified time.Time) (*remote.FileRecord, error) {
	path = remote.Clean(path)
	key := s.key(path)

	hash, body, err := hashBody(r)
	if err != nil {
		return nil, remote.NewError("upload", path, err)
	}

	modified := remote.NormalizeTime(clientModified)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
		Metadata: map[string]string{
			MetaContentHash:    hash,
			MetaClientModified: modified.Format(timeLayout),
		},
	}
	if contentType := guessContentType(path); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if mode == remote.ModeAdd {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return nil, remote.NewError("upload", path, mapError(err))
	}

	return &remote.FileRecord{
		Name:           remote.Base(path),
		Size:           size,
		ClientModified: modified,
		ContentHash:    hash,
	}, nil
}

// Download fetches the object at path.
func (s *Store) Download(ctx context.Context, path string) ([]byte, *remote.FileRecord, error) {
	path = remote.Clean(path)
	key := s.key(path)

	record, err := s.head(ctx, key)
	if err != nil {
		return nil, nil, remote.NewError("download", path, err)
	}
	record.Name = remote.Base(path)

	buf := manager.NewWriteAtBuffer(make([]byte, 0, record.Size))
	if _, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, nil, remote.NewError("download", path, mapError(err))
	}

	return buf.Bytes(), record, nil
}

// hashBody computes the content hash of r and returns a reader positioned at
// the start of the same bytes. Seekable readers are rewound, others buffered.
func hashBody(r io.Reader) (string, io.Reader, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return "", nil, fmt.Errorf("seek body: %w", err)
		}
		hash, err := contenthash.HashReader(rs, 0)
		if err != nil {
			return "", nil, err
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return "", nil, fmt.Errorf("rewind body: %w", err)
		}
		return hash, rs, nil
	}

	var buf bytes.Buffer
	tee := contenthash.NewTeeReader(r)
	if _, err := io.Copy(&buf, tee); err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	hash, err := tee.Hash()
	if err != nil {
		return "", nil, err
	}
	return hash, bytes.NewReader(buf.Bytes()), nil
}

// mapError attaches the remote sentinels to S3 error codes.
func mapError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %w", remote.ErrNotFound, err)
	case "PreconditionFailed", "ConditionalRequestConflict":
		return fmt.Errorf("%w: %w", remote.ErrConflict, err)
	}
	return err
}
