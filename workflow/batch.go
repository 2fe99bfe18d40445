package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"go.uber.org/zap"
)

// DefaultTimeout of the ingestion of an upload
const DefaultTimeout = 300 * time.Second

// UploadOptions of UploadSingle and UploadBatch
type UploadOptions struct {
	// Prefix is the folder of the bucket where the files are staged (default: bucket root)
	Prefix string
	// Public makes the assets readable by everyone
	Public bool
	// Timeout of the wait for the ingestion (0: do not wait)
	Timeout time.Duration
	// Cleanup removes the staged files from the bucket at the end of the upload
	Cleanup bool
	// Bands [optional] describes the bands of the assets
	Bands []common.Band
}

// DefaultUploadOptions waits DefaultTimeout and cleans the bucket
func DefaultUploadOptions() UploadOptions {
	return UploadOptions{Timeout: DefaultTimeout, Cleanup: true}
}

// cleanup removes the staged objects. It runs even if ctx is cancelled.
// A fatal error (precondition) takes precedence over err.
func (wf *Workflow) cleanup(ctx context.Context, staged []service.StagedObject, err *error) {
	ctx = context.WithoutCancel(ctx)
	if rerr := wf.stager.Remove(ctx, service.URIs(staged)); rerr != nil {
		switch {
		case *err == nil:
			*err = fmt.Errorf("cleanup.%w", rerr)
		case service.Fatal(rerr):
			*err = service.MergeErrors(true, fmt.Errorf("cleanup.%w", rerr), *err)
		default:
			log.Logger(ctx).Error("cleanup failed", zap.Error(rerr))
		}
	}
}

// UploadSingle stages the file and ingests it into the asset.
// Submission and wait errors are logged and do not prevent the ACL from being set, nor the staged file from being removed.
// The ACL is set as soon as the ingestion has been submitted, whatever the outcome of the ingestion.
// Staging and cleanup errors are returned.
func (wf *Workflow) UploadSingle(ctx context.Context, file, asset string, tag common.TemporalTag, opts UploadOptions) (outcome Outcome, err error) {
	staged, err := wf.stager.Stage(ctx, []string{file}, opts.Prefix)
	if err != nil {
		return Outcome{}, fmt.Errorf("UploadSingle.%w", err)
	}
	if opts.Cleanup {
		defer wf.cleanup(ctx, staged, &err)
	}
	if len(staged) != 1 {
		return Outcome{}, fmt.Errorf("UploadSingle: %d objects staged for %s", len(staged), file)
	}

	lg := log.Logger(ctx).With(zap.String("asset", asset))
	taskID, serr := wf.SubmitIngestion(ctx, staged[0].URI, asset, tag, opts.Bands)
	if serr != nil {
		lg.Error("UploadSingle", zap.Error(serr))
		return Outcome{Rejected: []string{asset}}, nil
	}
	outcome = newOutcome([]string{taskID})
	if opts.Timeout > 0 {
		status, werr := wf.waitForTask(ctx, taskID, opts.Timeout)
		outcome.States[taskID] = status.State
		if werr != nil {
			lg.Error("UploadSingle", zap.String("taskID", taskID), zap.Error(werr))
		}
	}
	if opts.Public {
		if aerr := wf.SetACL(ctx, asset, common.ACLPublic(), false); aerr != nil {
			lg.Error("UploadSingle", zap.Error(aerr))
		}
	}
	return outcome, nil
}

// UploadBatch stages all the files, ingests files[i] into assets[i] and waits for all the ingestions.
// tags [optional] must have the same length as files. assets must be unique.
// Submission, wait and ACL errors are logged: an asset whose submission failed is reported as rejected in the
// outcome, the other ones are still submitted, waited for and made public if requested.
// The staged files are removed whatever the outcome of the ingestions. Staging and cleanup errors are returned.
// It returns the assets, in the same order as the files.
func (wf *Workflow) UploadBatch(ctx context.Context, files, assets []string, tags []common.TemporalTag, opts UploadOptions) (_ []string, outcome Outcome, err error) {
	if len(files) != len(assets) {
		return assets, Outcome{}, fmt.Errorf("UploadBatch: %d files for %d assets", len(files), len(assets))
	}
	if len(tags) != 0 && len(tags) != len(files) {
		return assets, Outcome{}, fmt.Errorf("UploadBatch: %d tags for %d files", len(tags), len(files))
	}
	seen := service.StringSet{}
	for _, asset := range assets {
		if seen.Exists(asset) {
			return assets, Outcome{}, fmt.Errorf("UploadBatch: duplicate asset %s", asset)
		}
		seen.Push(asset)
	}
	staged, err := wf.stager.Stage(ctx, files, opts.Prefix)
	if err != nil {
		return assets, Outcome{}, fmt.Errorf("UploadBatch.%w", err)
	}
	if opts.Cleanup {
		defer wf.cleanup(ctx, staged, &err)
	}

	taskIDs := make([]string, 0, len(staged))
	submitted := make([]string, 0, len(staged))
	var rejected []string
	for i, obj := range staged {
		tag := common.NoTemporalTag
		if len(tags) != 0 {
			tag = tags[i]
		}
		taskID, serr := wf.SubmitIngestion(ctx, obj.URI, assets[i], tag, opts.Bands)
		if serr != nil {
			log.Logger(ctx).Error("UploadBatch", zap.String("asset", assets[i]), zap.Error(serr))
			rejected = append(rejected, assets[i])
			continue
		}
		taskIDs = append(taskIDs, taskID)
		submitted = append(submitted, assets[i])
	}

	outcome = newOutcome(taskIDs)
	if opts.Timeout > 0 && len(taskIDs) > 0 {
		o, werr := wf.WaitForTasks(ctx, taskIDs, opts.Timeout)
		if werr != nil {
			log.Logger(ctx).Error("UploadBatch", zap.Error(werr))
		}
		outcome = o
	}
	outcome.Rejected = rejected

	if opts.Public {
		for _, asset := range submitted {
			if aerr := wf.SetACL(ctx, asset, common.ACLPublic(), false); aerr != nil {
				log.Logger(ctx).Error("UploadBatch", zap.String("asset", asset), zap.Error(aerr))
			}
		}
	}
	return assets, outcome, nil
}
