// Package dropbox implements remote.Store on top of the Dropbox API v2.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"

	"github.com/yuya-takeyama/strict-box-sync/pkg/contenthash"
	"github.com/yuya-takeyama/strict-box-sync/pkg/remote"
)

const (
	DefaultAPIURL     = "https://api.dropboxapi.com/2"
	DefaultContentURL = "https://content.dropboxapi.com/2"

	HeaderAPIArg    = "Dropbox-API-Arg"
	HeaderAPIResult = "Dropbox-API-Result"

	endpointListFolder         = "/files/list_folder"
	endpointListFolderContinue = "/files/list_folder/continue"
	endpointUpload             = "/files/upload"
	endpointDownload           = "/files/download"
)

// ErrNoToken is returned by New without an access token.
var ErrNoToken = errors.New("dropbox: access token missing")

// Options configures a Client. Empty URLs fall back to the public endpoints.
type Options struct {
	Token      string
	APIURL     string
	ContentURL string
	UserAgent  string
}

// Client talks to the RPC and content endpoints of the Dropbox API.
type Client struct {
	api     *req.Client
	content *req.Client
}

var _ remote.Store = (*Client)(nil)

// New creates a Dropbox client authenticated with opts.Token.
func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.ContentURL == "" {
		opts.ContentURL = DefaultContentURL
	}

	return &Client{
		api:     newHTTPClient(opts, opts.APIURL),
		content: newHTTPClient(opts, opts.ContentURL),
	}, nil
}

func newHTTPClient(opts Options, baseURL string) *req.Client {
	c := req.C().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetCommonBearerAuthToken(opts.Token).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	if opts.UserAgent != "" {
		c.SetUserAgent(opts.UserAgent)
	}
	return c
}

// List returns the entries directly under path, following pagination cursors.
func (c *Client) List(ctx context.Context, path string) (remote.Listing, error) {
	var page listFolderResult
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(&listFolderArg{Path: apiPath(path)}).
		SetSuccessResult(&page).
		Post(endpointListFolder)
	if err := handleAPIError(resp, err); err != nil {
		return nil, remote.NewError("list", path, err)
	}

	listing := remote.Listing{}
	for {
		for i := range page.Entries {
			entry, err := page.Entries[i].entry()
			if err != nil {
				return nil, remote.NewError("list", path, err)
			}
			if entry != nil {
				listing[entry.EntryName()] = entry
			}
		}
		if !page.HasMore {
			return listing, nil
		}

		cursor := page.Cursor
		page = listFolderResult{}
		resp, err := c.api.R().
			SetContext(ctx).
			SetBody(&listFolderContinueArg{Cursor: cursor}).
			SetSuccessResult(&page).
			Post(endpointListFolderContinue)
		if err := handleAPIError(resp, err); err != nil {
			return nil, remote.NewError("list", path, err)
		}
	}
}

// Upload sends the bytes of r to path. The content hash of the bytes actually
// sent is checked against the one Dropbox reports back.
func (c *Client) Upload(ctx context.Context, r io.Reader, size int64, path string, mode remote.WriteMode, clientModified time.Time) (*remote.FileRecord, error) {
	path = remote.Clean(path)
	arg, err := headerArg(&uploadArg{
		Path:           path,
		Mode:           mode.String(),
		Autorename:     false,
		ClientModified: remote.NormalizeTime(clientModified).Format(timeLayout),
		Mute:           true,
	})
	if err != nil {
		return nil, remote.NewError("upload", path, err)
	}

	tee := contenthash.NewTeeReader(r)
	var meta metadata
	resp, err := c.content.R().
		SetContext(ctx).
		SetHeader(HeaderAPIArg, arg).
		SetContentType("application/octet-stream").
		SetBody(tee).
		SetSuccessResult(&meta).
		Post(endpointUpload)
	if err := handleAPIError(resp, err); err != nil {
		return nil, remote.NewError("upload", path, err)
	}

	record, err := meta.fileRecord()
	if err != nil {
		return nil, remote.NewError("upload", path, err)
	}

	sent, err := tee.Hash()
	if err != nil {
		return nil, remote.NewError("upload", path, err)
	}
	if record.Size != size {
		return record, remote.NewError("upload", path,
			fmt.Errorf("size mismatch: sent %d bytes, stored %d", size, record.Size))
	}
	if record.ContentHash != sent {
		return record, remote.NewError("upload", path,
			fmt.Errorf("content hash mismatch: sent %s, stored %s", sent, record.ContentHash))
	}

	return record, nil
}

// Download fetches the bytes at path together with their metadata.
func (c *Client) Download(ctx context.Context, path string) ([]byte, *remote.FileRecord, error) {
	path = remote.Clean(path)
	arg, err := headerArg(&downloadArg{Path: path})
	if err != nil {
		return nil, nil, remote.NewError("download", path, err)
	}

	resp, err := c.content.R().
		SetContext(ctx).
		SetHeader(HeaderAPIArg, arg).
		Post(endpointDownload)
	if err := handleAPIError(resp, err); err != nil {
		return nil, nil, remote.NewError("download", path, err)
	}

	var meta metadata
	if err := json.Unmarshal([]byte(resp.GetHeader(HeaderAPIResult)), &meta); err != nil {
		return nil, nil, remote.NewError("download", path, fmt.Errorf("decode %s: %w", HeaderAPIResult, err))
	}
	if meta.Tag == "" {
		meta.Tag = tagFile
	}
	record, err := meta.fileRecord()
	if err != nil {
		return nil, nil, remote.NewError("download", path, err)
	}

	return resp.Bytes(), record, nil
}

// handleAPIError turns a transport failure or an error status into an error.
func handleAPIError(resp *req.Response, requestErr error) error {
	if requestErr != nil {
		return fmt.Errorf("http request: %w", requestErr)
	}
	if !resp.IsErrorState() {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.GetStatusCode()}
	if err := json.Unmarshal(resp.Bytes(), apiErr); err != nil || apiErr.Summary == "" {
		apiErr.Summary = strings.TrimSpace(resp.String())
	}
	return apiErr
}

// apiPath converts a normalized path to the form list_folder expects,
// which names the root "".
func apiPath(path string) string {
	path = remote.Clean(path)
	if path == "/" {
		return ""
	}
	return path
}

// headerArg encodes v as JSON that is safe to send in an HTTP header:
// everything outside printable ASCII is written as \uXXXX.
func headerArg(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", HeaderAPIArg, err)
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for _, r := range string(b) {
		switch {
		case r < 0x7f:
			sb.WriteRune(r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String(), nil
}
