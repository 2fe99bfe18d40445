package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/ee-ingester/service/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrFileNotFound is an error returned by Bucket.Delete
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

// Bucket is a container of an object storage
type Bucket interface {
	// Name of the bucket
	Name() string
	// Prefix of the uri of all the objects of the bucket (e.g. "gs://<name>/")
	Prefix() string
	// Exists returns true if the bucket exists
	Exists(ctx context.Context) (bool, error)
	// Create the bucket
	Create(ctx context.Context) error
	// UploadFile uploads the local file to the blob
	UploadFile(ctx context.Context, blob string, f *os.File) error
	// Delete the blob
	// Raise ErrFileNotFound
	Delete(ctx context.Context, blob string) error
}

// EnsureBucket creates the bucket if it does not exist
func EnsureBucket(ctx context.Context, bucket Bucket) error {
	exists, err := bucket.Exists(ctx)
	if err != nil {
		return fmt.Errorf("EnsureBucket.Exists: %w", err)
	}
	if exists {
		return nil
	}
	log.Logger(ctx).Sugar().Infof("Bucket %s does not exist, creating", bucket.Name())
	if err := bucket.Create(ctx); err != nil {
		return fmt.Errorf("EnsureBucket.Create: %w", err)
	}
	return nil
}

// StagedObject is a local file uploaded to the staging bucket
type StagedObject struct {
	URI        string `json:"uri"`
	SourceFile string `json:"source_file"`
}

// URIs returns the uris of the objects, in the same order
func URIs(objects []StagedObject) []string {
	uris := make([]string, len(objects))
	for i, o := range objects {
		uris[i] = o.URI
	}
	return uris
}

// Stager uploads local files to a bucket to be ingested by the catalog service
type Stager struct {
	bucket      Bucket
	concurrency int
}

// NewStager creates a stager on the bucket.
// concurrency is the maximum number of parallel uploads or deletions (<=1: sequential)
func NewStager(bucket Bucket, concurrency int) *Stager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Stager{bucket: bucket, concurrency: concurrency}
}

// Bucket returns the staging bucket
func (s *Stager) Bucket() Bucket {
	if s == nil {
		return nil
	}
	return s.bucket
}

func (s *Stager) initialized() error {
	if s == nil || s.bucket == nil {
		return MakeFatal(ErrNotInitialized)
	}
	return nil
}

// Stage uploads the files to the bucket under the prefix (else, files are staged to the bucket root).
// The blob of a file is its base name: files sharing the same base name are rejected before any upload.
// The returned objects are in the same order as the files.
// If an upload fails, the files already staged are removed.
func (s *Stager) Stage(ctx context.Context, files []string, prefix string) ([]StagedObject, error) {
	if err := s.initialized(); err != nil {
		return nil, fmt.Errorf("Stage: %w", err)
	}
	blobs := make([]string, len(files))
	sources := map[string]string{}
	for i, file := range files {
		blobs[i] = strings.TrimPrefix(path.Join(prefix, filepath.Base(file)), "/")
		if other, ok := sources[blobs[i]]; ok {
			return nil, fmt.Errorf("Stage: %s and %s would be staged to the same blob %s", other, file, blobs[i])
		}
		sources[blobs[i]] = file
	}
	objects := make([]StagedObject, len(files))
	done := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, file := range files {
		i, file := i, file
		blob := blobs[i]
		uri := s.bucket.Prefix() + blob
		g.Go(func() error {
			log.Logger(ctx).Debug("Uploading", zap.String("file", file), zap.String("uri", uri))
			if err := s.upload(gctx, file, blob); err != nil {
				return fmt.Errorf("Stage[%s]: %w", file, err)
			}
			objects[i] = StagedObject{URI: uri, SourceFile: file}
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var staged []string
		for i := range objects {
			if done[i] {
				staged = append(staged, objects[i].URI)
			}
		}
		if len(staged) > 0 {
			if e := s.Remove(context.WithoutCancel(ctx), staged); e != nil {
				log.Logger(ctx).Warn("Stage: failed to remove staged files", zap.Error(e))
			}
		}
		return nil, err
	}
	return objects, nil
}

func (s *Stager) upload(ctx context.Context, file, blob string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("upload.Open: %w", err)
	}
	defer f.Close()
	if err := s.bucket.UploadFile(ctx, blob, f); err != nil {
		return fmt.Errorf("upload.UploadFile: %w", err)
	}
	return nil
}

// Blob returns the path of the blob in the bucket from its uri.
// Raise ErrURIMismatch if the uri is not in the bucket
func (s *Stager) Blob(uri string) (string, error) {
	if err := s.initialized(); err != nil {
		return "", err
	}
	prefix := s.bucket.Prefix()
	if !strings.HasPrefix(uri, prefix) || len(uri) == len(prefix) {
		return "", MakeFatal(ErrURIMismatch{URI: uri, Prefix: prefix})
	}
	return uri[len(prefix):], nil
}

// Remove deletes the objects from the bucket.
// uris must be full paths "<scheme>://<bucket>/<blob>", otherwise nothing is deleted.
// Objects that do not exist are ignored.
func (s *Stager) Remove(ctx context.Context, uris []string) error {
	if err := s.initialized(); err != nil {
		return fmt.Errorf("Remove: %w", err)
	}
	blobs := make([]string, len(uris))
	for i, uri := range uris {
		blob, err := s.Blob(uri)
		if err != nil {
			return fmt.Errorf("Remove: %w", err)
		}
		blobs[i] = blob
	}
	log.Logger(ctx).Sugar().Debugf("Deleting %v from %s", blobs, s.bucket.Prefix())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, blob := range blobs {
		blob := blob
		g.Go(func() error {
			if err := s.bucket.Delete(gctx, blob); err != nil {
				if errors.As(err, &ErrFileNotFound{}) {
					return nil
				}
				return fmt.Errorf("Remove[%s]: %w", blob, err)
			}
			return nil
		})
	}
	return g.Wait()
}
