package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/airbusgeo/ee-ingester/service"
)

// Bucket implements service.Bucket on a local directory.
// Objects are addressed as file://<dir>/<blob>
type Bucket struct {
	dir string
}

// New creates a bucket on the directory
func New(dir string) (*Bucket, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("local.New: %w", err)
	}
	return &Bucket{dir: abs}, nil
}

// Name implements service.Bucket
func (b *Bucket) Name() string {
	return b.dir
}

// Prefix implements service.Bucket
func (b *Bucket) Prefix() string {
	return "file://" + filepath.ToSlash(b.dir) + "/"
}

// Exists implements service.Bucket
func (b *Bucket) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(b.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Create implements service.Bucket
func (b *Bucket) Create(ctx context.Context) error {
	return os.MkdirAll(b.dir, 0755)
}

// file returns the path of the blob. A blob outside of the directory is a fatal error.
func (b *Bucket) file(blob string) (string, error) {
	file := filepath.Join(b.dir, filepath.FromSlash(blob))
	if !service.PathWithin(b.dir, file) {
		return "", service.MakeFatal(fmt.Errorf("blob %s is outside of %s", blob, b.dir))
	}
	return file, nil
}

// UploadFile implements service.Bucket
func (b *Bucket) UploadFile(ctx context.Context, blob string, f *os.File) error {
	dst, err := b.file(blob)
	if err != nil {
		return fmt.Errorf("UploadFile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("UploadFile.MkdirAll: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("UploadFile.Create: %w", err)
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		return fmt.Errorf("UploadFile.Copy: %w", err)
	}
	return out.Close()
}

// Delete implements service.Bucket
func (b *Bucket) Delete(ctx context.Context, blob string) error {
	file, err := b.file(blob)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := os.Remove(file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return service.ErrFileNotFound{File: file}
		}
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}
