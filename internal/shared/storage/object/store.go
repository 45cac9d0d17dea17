package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ChunkSize is the unit in which uploads are streamed and size-checked.
const ChunkSize = 1 << 20

var (
	// ErrNotFound is returned by Open when the key has no backing object.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge is returned by Put when the stream exceeds maxBytes.
	ErrTooLarge = errors.New("object exceeds maximum size")
	// ErrInvalidKey is returned for keys that escape the store root.
	ErrInvalidKey = errors.New("invalid storage key")
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Put streams r under key. When maxBytes > 0 and the stream is longer,
	// nothing is left behind and ErrTooLarge is returned.
	Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// CopyChunked copies r into w one chunk at a time. The running total is
// checked before each write so at most maxBytes ever reach w.
func CopyChunked(ctx context.Context, w io.Writer, r io.Reader, maxBytes int64) (int64, error) {
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if maxBytes > 0 && total+int64(n) > maxBytes {
				return total, ErrTooLarge
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}

// CleanKey normalizes a slash-separated storage key and rejects traversal.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.Contains(trimmed, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + trimmed)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	return clean, nil
}
