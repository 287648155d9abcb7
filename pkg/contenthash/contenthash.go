// Package contenthash computes the block-wise content hash used by the remote
// store to identify file contents.
//
// The stream is split into 4 MiB blocks, each block is hashed with SHA-256,
// and the concatenation of the block digests is hashed again with SHA-256.
// The result is hex encoded. An empty stream hashes to SHA-256 of nothing.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

const (
	// BlockSize is the hashing block size. It must match the remote store.
	BlockSize = 4 * 1024 * 1024

	// Size is the length in bytes of a content hash digest.
	Size = sha256.Size

	bufferSize = 64 * 1024 // 64KB read buffer
)

// Hasher is a streaming content hasher. It implements hash.Hash.
type Hasher struct {
	block    hash.Hash
	blockPos int
	digests  []byte
}

var _ hash.Hash = (*Hasher)(nil)

// New returns an empty Hasher.
func New() *Hasher {
	return &Hasher{block: sha256.New()}
}

// Write feeds p into the current block, closing blocks at BlockSize boundaries.
// It never returns an error.
func (h *Hasher) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		n := BlockSize - h.blockPos
		if n > len(p) {
			n = len(p)
		}
		h.block.Write(p[:n])
		h.blockPos += n
		p = p[n:]

		if h.blockPos == BlockSize {
			h.digests = h.block.Sum(h.digests)
			h.block.Reset()
			h.blockPos = 0
		}
	}
	return written, nil
}

// Sum appends the content hash of everything written so far to b.
// It does not change the hasher state.
func (h *Hasher) Sum(b []byte) []byte {
	overall := sha256.New()
	overall.Write(h.digests)
	if h.blockPos > 0 {
		overall.Write(h.block.Sum(nil))
	}
	return overall.Sum(b)
}

// Reset discards all written data.
func (h *Hasher) Reset() {
	h.block.Reset()
	h.blockPos = 0
	h.digests = h.digests[:0]
}

// Size returns the digest length.
func (h *Hasher) Size() int { return Size }

// BlockSize returns the block size of the inner digest, not the 4 MiB content block.
func (h *Hasher) BlockSize() int { return h.block.BlockSize() }

// HexDigest returns the hex encoded content hash.
func (h *Hasher) HexDigest() string {
	return hex.EncodeToString(h.Sum(nil))
}

// HashFile calculates the content hash of the file at path.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return HashReader(file, bufferSize)
}

// HashReader calculates the content hash of r, reading chunkSize bytes at a time.
// The chunk size does not affect the result.
func HashReader(r io.Reader, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = bufferSize
	}
	h := New()
	buffer := make([]byte, chunkSize)

	for {
		n, err := r.Read(buffer)
		if n > 0 {
			h.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return h.HexDigest(), nil
}

// TeeReader hashes everything read through it.
type TeeReader struct {
	reader io.Reader
	hasher *Hasher
	done   bool
}

// NewTeeReader wraps r.
func NewTeeReader(r io.Reader) *TeeReader {
	return &TeeReader{
		reader: r,
		hasher: New(),
	}
}

// Read implements io.Reader
func (t *TeeReader) Read(p []byte) (n int, err error) {
	n, err = t.reader.Read(p)
	if n > 0 {
		t.hasher.Write(p[:n])
	}
	if err == io.EOF {
		t.done = true
	}
	return n, err
}

// Hash returns the content hash of the bytes read (only valid after EOF)
func (t *TeeReader) Hash() (string, error) {
	if !t.done {
		return "", fmt.Errorf("content hash not yet calculated (read not complete)")
	}
	return t.hasher.HexDigest(), nil
}
