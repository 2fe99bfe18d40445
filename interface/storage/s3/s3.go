package s3

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/airbusgeo/ee-ingester/service"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Config of the connection to an S3 (or S3-compatible) service. Empty fields fallback to the aws defaults.
type Config struct {
	Region    string
	Endpoint  string // Custom endpoint for S3-compatible services (path-style is used)
	AccessKey string
	SecretKey string
}

// Bucket implements service.Bucket on AWS S3
type Bucket struct {
	client   *s3.Client
	uploader *manager.Uploader
	name     string
	region   string
}

// New creates a handle on the bucket
func New(ctx context.Context, name string, cfg Config) (*Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("s3.New: missing bucket name")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3.LoadDefaultConfig: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Bucket{
		client:   client,
		uploader: manager.NewUploader(client),
		name:     name,
		region:   awsCfg.Region,
	}, nil
}

// Name implements service.Bucket
func (b *Bucket) Name() string {
	return b.name
}

// Prefix implements service.Bucket
func (b *Bucket) Prefix() string {
	return "s3://" + b.name + "/"
}

// Exists implements service.Bucket
func (b *Bucket) Exists(ctx context.Context) (bool, error) {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.name)})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("Exists[%s]: %w", b.name, err)
	}
	return true, nil
}

// Create implements service.Bucket
func (b *Bucket) Create(ctx context.Context) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(b.name)}
	if b.region != "" && b.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("Create[%s]: %w", b.name, err)
	}
	return nil
}

// UploadFile implements service.Bucket
func (b *Bucket) UploadFile(ctx context.Context, blob string, f *os.File) error {
	if _, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(blob),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("UploadFile[%s]: %w", blob, err)
	}
	return nil
}

// Delete implements service.Bucket
// S3 does not report missing objects on deletion.
func (b *Bucket) Delete(ctx context.Context, blob string) error {
	if _, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(blob),
	}); err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return service.ErrFileNotFound{File: b.Prefix() + blob}
		}
		return fmt.Errorf("Delete[%s]: %w", blob, err)
	}
	return nil
}
