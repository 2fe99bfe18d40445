package catalog

import (
	"context"

	"github.com/airbusgeo/ee-ingester/common"
)

// Service is the interface of a remote catalog of geospatial assets.
// All the paths are absolute.
type Service interface {
	// NewTaskID returns a new identifier to submit a task
	NewTaskID(ctx context.Context) (string, error)
	// StartIngestion submits the ingestion as taskID and returns immediately.
	// It returns the identifier assigned by the service (that may differ from taskID)
	StartIngestion(ctx context.Context, taskID string, req common.IngestionRequest) (string, error)
	// TaskStatus returns the current status of the task
	TaskStatus(ctx context.Context, taskID string) (common.TaskStatus, error)

	// Info returns the metadata of the asset or nil if it does not exist
	Info(ctx context.Context, path string) (*common.Asset, error)
	// List returns the children of a folder or a collection
	List(ctx context.Context, path string) ([]common.Asset, error)
	// ACL returns the access control list of the asset
	ACL(ctx context.Context, path string) (common.ACL, error)
	// SetACL replaces the access control list of the asset (owners are left unchanged)
	SetACL(ctx context.Context, path string, acl common.ACL) error
	// SetProperties sets (or overrides) the properties of the asset
	SetProperties(ctx context.Context, path string, properties map[string]interface{}) error
	// CreateAsset creates an empty asset (folder or collection)
	CreateAsset(ctx context.Context, assetType common.AssetType, path string, overwrite bool) error
	// Copy the asset
	Copy(ctx context.Context, src, dst string) error
	// Delete the asset
	Delete(ctx context.Context, path string) error
	// AssetRoots returns the root folders of the user
	AssetRoots(ctx context.Context) ([]string, error)
	// Quota returns the quota of the root folder
	Quota(ctx context.Context, root string) (common.Quota, error)
}
