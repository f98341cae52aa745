// Package datasource defines the contract between the sync layer and the
// object stores it reads from: discovery of eligible files and retrieval of
// their byte streams. Implementations live in subpackages (s3, file).
package datasource

import (
	"context"
	"io"
	"time"

	"s3tap/internal/config"
)

// FileInfo identifies one discoverable file.
type FileInfo struct {
	Key          string
	LastModified time.Time
}

// Bucket lists files matching a table spec and opens them for reading.
//
// List returns files whose modification time is strictly after since, in no
// guaranteed order. Open returns a stream positioned at the start of the
// file; the caller owns closing it.
type Bucket interface {
	List(ctx context.Context, spec config.TableSpec, since time.Time) ([]FileInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
