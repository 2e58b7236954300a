package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("blob not found")

// Info describes a stored blob.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Store keeps document payloads under caller-chosen keys. Keys are
// slash-separated relative paths.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) error

	// LocalPath makes the blob available on the local filesystem and
	// returns its path together with a cleanup func. Backends that already
	// hold files on disk return the file itself and a no-op cleanup.
	LocalPath(ctx context.Context, key string) (string, func(), error)
}
