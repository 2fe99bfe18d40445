package workflow

import (
	"context"
	"fmt"
	"io"

	"github.com/airbusgeo/ee-ingester/catalog"
	"github.com/airbusgeo/ee-ingester/config"
	"github.com/airbusgeo/ee-ingester/interface/catalog/earthengine"
	"github.com/airbusgeo/ee-ingester/interface/database/pg"
	"github.com/airbusgeo/ee-ingester/interface/messaging/pubsub"
	"github.com/airbusgeo/ee-ingester/interface/storage"
	"github.com/airbusgeo/ee-ingester/interface/storage/s3"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/cespare/xxhash/v2"
	"google.golang.org/api/option"
)

// DefaultBucket returns the name of the staging bucket used when none is configured
func DefaultBucket(home string) string {
	return fmt.Sprintf("eeutil-%x", xxhash.Sum64String(home))
}

// Open initializes a session on Earth Engine and the staging bucket, with the optional journal and publisher.
// If withBucket is false, the staging bucket is not opened (Stage and Remove will return ErrNotInitialized).
// The returned function releases the resources of the session.
func Open(ctx context.Context, cfg config.Config, withBucket bool) (*Workflow, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Logger(ctx).Sugar().Warnf("close: %v", err)
			}
		}
	}
	fail := func(err error) (*Workflow, func(), error) {
		closeAll()
		return nil, func() {}, err
	}

	creds, err := earthengine.FindCredentials(ctx, cfg.CredentialPath, []byte(cfg.CredentialJSON))
	if err != nil {
		return fail(fmt.Errorf("Open.%w", err))
	}
	project := cfg.Project
	if project == "" {
		project = creds.ProjectID
	}
	googleOpts := []option.ClientOption{option.WithCredentials(creds)}

	cat := catalog.New(earthengine.NewWithCredentials(ctx, project, creds), cfg.Home)

	var stager *service.Stager
	if withBucket {
		uri := cfg.StagingURI
		if uri == "" {
			home, err := cat.Home(ctx)
			if err != nil {
				return fail(fmt.Errorf("Open.%w", err))
			}
			uri = DefaultBucket(home)
			log.Logger(ctx).Sugar().Warnf("No bucket provided, using default %s", uri)
		}
		bucket, err := storage.Open(ctx, uri, storage.Options{
			Project:       project,
			GoogleOptions: googleOpts,
			S3:            s3.Config{Region: cfg.S3Region, Endpoint: cfg.S3Endpoint},
		})
		if err != nil {
			return fail(fmt.Errorf("Open.%w", err))
		}
		if c, ok := bucket.(io.Closer); ok {
			closers = append(closers, c)
		}
		if err := service.EnsureBucket(ctx, bucket); err != nil {
			return fail(fmt.Errorf("Open.%w", err))
		}
		stager = service.NewStager(bucket, cfg.UploadConcurrency)
	}

	opts := Options{
		Strict:       cfg.Strict,
		PollInterval: cfg.PollInterval,
		WorkDir:      cfg.WorkDir,
	}
	if cfg.DbConnection != "" {
		journal, err := pg.New(ctx, cfg.DbConnection)
		if err != nil {
			return fail(fmt.Errorf("Open.%w", err))
		}
		closers = append(closers, journal)
		opts.Journal = journal
	}
	if cfg.PsTopic != "" {
		publisher, err := pubsub.NewPublisher(ctx, cfg.PsProject, cfg.PsTopic, googleOpts...)
		if err != nil {
			return fail(fmt.Errorf("Open.%w", err))
		}
		closers = append(closers, publisher)
		opts.Publisher = publisher
	}
	return New(cat, stager, opts), closeAll, nil
}
