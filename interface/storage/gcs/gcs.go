package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/ee-ingester/service"
	"google.golang.org/api/option"
)

// Bucket implements service.Bucket on Google Cloud Storage
type Bucket struct {
	client  *storage.Client
	handle  *storage.BucketHandle
	name    string
	project string
}

// New creates a handle on the bucket. project is used to create the bucket if it does not exist.
func New(ctx context.Context, name, project string, opts ...option.ClientOption) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("gcs.New: missing bucket name")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewClient: %w", err)
	}
	return &Bucket{client: client, handle: client.Bucket(name), name: name, project: project}, nil
}

// Name implements service.Bucket
func (b *Bucket) Name() string {
	return b.name
}

// Prefix implements service.Bucket
func (b *Bucket) Prefix() string {
	return "gs://" + b.name + "/"
}

// Exists implements service.Bucket
func (b *Bucket) Exists(ctx context.Context) (bool, error) {
	if _, err := b.handle.Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrBucketNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("Exists[%s]: %w", b.name, err)
	}
	return true, nil
}

// Create implements service.Bucket
func (b *Bucket) Create(ctx context.Context) error {
	if b.project == "" {
		return fmt.Errorf("Create[%s]: a project is required to create a bucket", b.name)
	}
	if err := b.handle.Create(ctx, b.project, nil); err != nil {
		return fmt.Errorf("Create[%s]: %w", b.name, err)
	}
	return nil
}

// UploadFile implements service.Bucket
func (b *Bucket) UploadFile(ctx context.Context, blob string, f *os.File) error {
	w := b.handle.Object(blob).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return service.MakeTemporary(fmt.Errorf("UploadFile[%s].Copy: %w", blob, err))
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile[%s].Close: %w", blob, err)
	}
	return nil
}

// Delete implements service.Bucket
func (b *Bucket) Delete(ctx context.Context, blob string) error {
	if err := b.handle.Object(blob).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return service.ErrFileNotFound{File: b.Prefix() + blob}
		}
		return fmt.Errorf("Delete[%s]: %w", blob, err)
	}
	return nil
}

// Close the client
func (b *Bucket) Close() error {
	return b.client.Close()
}
