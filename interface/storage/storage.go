package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbusgeo/ee-ingester/interface/storage/gcs"
	"github.com/airbusgeo/ee-ingester/interface/storage/local"
	"github.com/airbusgeo/ee-ingester/interface/storage/s3"
	"github.com/airbusgeo/ee-ingester/service"
	"google.golang.org/api/option"
)

// Options to open a bucket
type Options struct {
	// Project of the GCS bucket (needed to create it)
	Project string
	// Google client options (credentials...)
	GoogleOptions []option.ClientOption
	S3            s3.Config
}

// Open returns the bucket identified by the uri:
//   - gs://bucket or bucket: Google Cloud Storage
//   - s3://bucket: AWS S3
//   - file:///path/to/dir: local directory
func Open(ctx context.Context, uri string, opts Options) (service.Bucket, error) {
	protocol, name := "gs", strings.TrimSuffix(uri, "/")
	if i := strings.Index(uri, "://"); i != -1 {
		protocol, name = uri[:i], strings.TrimSuffix(uri[i+3:], "/")
	}
	if name == "" {
		return nil, fmt.Errorf("storage.Open: missing bucket name in '%s'", uri)
	}
	switch protocol {
	case "gs":
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("storage.Open: '%s' is not a bucket", uri)
		}
		b, err := gcs.New(ctx, name, opts.Project, opts.GoogleOptions...)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "s3":
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("storage.Open: '%s' is not a bucket", uri)
		}
		b, err := s3.New(ctx, name, opts.S3)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "file":
		b, err := local.New(name)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("storage.Open: protocol '%s' not supported", protocol)
}
