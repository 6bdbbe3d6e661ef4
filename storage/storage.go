// Package storage keeps uploaded images in buckets and hands back their
// public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrTooLarge     = errors.New("file too large")
	ErrInvalidType  = errors.New("invalid file type")
	ErrUploadFailed = errors.New("upload failed")
)

// Bucket is a named object store with publicly resolvable objects.
type Bucket interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	URL(key string) string
}

// DiskBucket stores objects under <dir>/<name> and serves them under
// <baseURL>/<name>.
type DiskBucket struct {
	name    string
	dir     string
	baseURL string
}

func NewDiskBucket(dir, baseURL, name string) *DiskBucket {
	return &DiskBucket{
		name:    name,
		dir:     filepath.Join(dir, name),
		baseURL: strings.TrimRight(baseURL, "/") + "/" + name,
	}
}

func (b *DiskBucket) Name() string { return b.name }

func (b *DiskBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return fmt.Errorf("invalid object key %q", key)
	}

	file := filepath.Join(b.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}

	// write aside and rename, so a half written file is never served
	tmp, err := os.CreateTemp(filepath.Dir(file), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), file)
}

func (b *DiskBucket) URL(key string) string {
	return b.baseURL + "/" + key
}
