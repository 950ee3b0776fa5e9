// Package storage provides the file stores biovault reads media from and
// writes transient artifacts to.
//
// [Local] is the per-process transient area: every fetched or derived media
// file lives there for the duration of one request and is removed through
// [Local.Delete]. [S3Store] serves s3://bucket/key references from Amazon S3
// or any S3-compatible store and implements [Source].
package storage

import (
	"context"
	"io"
)

// Source opens named objects for reading.
//
// Open returns the object body and its size in bytes, or -1 when the size
// is unknown. A missing object produces an error wrapping os.ErrNotExist.
// Implementations must be safe for concurrent use.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}
