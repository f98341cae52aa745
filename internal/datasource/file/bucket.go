// Package file implements a local filesystem-backed bucket. It treats a
// directory tree as the object store, with slash-separated relative paths as
// keys and file mtimes as last-modified timestamps. It exists for tests and
// for runs against already-downloaded exports.
package file

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"s3tap/internal/config"
	"s3tap/internal/datasource"
)

// Bucket is a directory-tree data source.
type Bucket struct{ root string }

// New returns a Bucket rooted at dir.
func New(dir string) *Bucket { return &Bucket{root: dir} }

// List walks the tree and returns files under spec.SearchPrefix whose
// relative path matches spec.SearchPattern and whose mtime is strictly after
// since. Order follows the directory walk and carries no contract.
func (b *Bucket) List(ctx context.Context, spec config.TableSpec, since time.Time) ([]datasource.FileInfo, error) {
	re, err := spec.Pattern()
	if err != nil {
		return nil, err
	}

	var out []datasource.FileInfo
	err = filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, spec.SearchPrefix) || !re.MatchString(key) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().After(since) {
			return nil
		}
		out = append(out, datasource.FileInfo{Key: key, LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.root, err)
	}
	return out, nil
}

// Open opens the file for key relative to the bucket root.
//
// If the context is already canceled at the time of the call, Open returns
// the context error immediately without touching the filesystem. Filesystem
// errors are wrapped with the path while still permitting errors.Is/As
// checks by callers (e.g., errors.Is(err, os.ErrNotExist)).
func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	path := filepath.Join(b.root, filepath.FromSlash(key))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
