package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/service/log"
)

// ErrAssetNotFound is returned when an asset is expected to exist
type ErrAssetNotFound struct {
	Asset string
}

func (e ErrAssetNotFound) Error() string {
	return fmt.Sprintf("asset not found: %s", e.Asset)
}

// Quota returns the usage quota of the home directory
func (c *Catalog) Quota(ctx context.Context) (common.Quota, error) {
	home, err := c.cachedHome(ctx)
	if err != nil {
		return common.Quota{}, fmt.Errorf("Quota.%w", err)
	}
	return c.Service.Quota(ctx, home)
}

// Info returns the metadata of the asset or nil if it does not exist
func (c *Catalog) Info(ctx context.Context, asset string) (*common.Asset, error) {
	p, err := c.Path(ctx, asset)
	if err != nil {
		return nil, err
	}
	return c.Service.Info(ctx, p)
}

// Exists checks whether the asset exists
func (c *Catalog) Exists(ctx context.Context, asset string) (bool, error) {
	info, err := c.Info(ctx, asset)
	if err != nil {
		return false, fmt.Errorf("Exists.%w", err)
	}
	return info != nil, nil
}

// Ls lists the assets of the folder p. If abspath, the absolute paths are returned, otherwise the base names.
func (c *Catalog) Ls(ctx context.Context, p string, abspath bool) ([]string, error) {
	folder, err := c.Path(ctx, p)
	if err != nil {
		return nil, err
	}
	assets, err := c.Service.List(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("Ls.%w", err)
	}
	names := make([]string, len(assets))
	for i, a := range assets {
		if abspath {
			names[i] = a.ID
		} else {
			names[i] = path.Base(a.ID)
		}
	}
	return names, nil
}

// ACL returns the access control list of the asset or folder
func (c *Catalog) ACL(ctx context.Context, asset string) (common.ACL, error) {
	p, err := c.Path(ctx, asset)
	if err != nil {
		return common.ACL{}, err
	}
	return c.Service.ACL(ctx, p)
}

// ParseACLChange parses "public", "private" or a json ACL
func ParseACLChange(s string) (common.ACLChange, error) {
	switch s {
	case common.ACLNamePublic:
		return common.ACLPublic(), nil
	case common.ACLNamePrivate:
		return common.ACLPrivate(), nil
	}
	var change common.ACLChange
	if err := json.Unmarshal([]byte(s), &change); err != nil {
		return change, fmt.Errorf("ParseACLChange: %w", err)
	}
	return change, nil
}

// SetACL modifies the ACL of the asset.
// If overwrite, the fields that are not specified by the change are reset, otherwise they are left unchanged.
// Owners are never modified.
func (c *Catalog) SetACL(ctx context.Context, asset string, change common.ACLChange, overwrite bool) error {
	p, err := c.Path(ctx, asset)
	if err != nil {
		return err
	}
	acl := common.ACL{}
	if !overwrite {
		if acl, err = c.Service.ACL(ctx, p); err != nil {
			return fmt.Errorf("SetACL.%w", err)
		}
	}
	acl.Owners = nil
	acl = change.Apply(acl)
	if b, err := json.Marshal(acl); err == nil {
		log.Logger(ctx).Sugar().Debugf("Setting ACL to %s on %s", b, asset)
	}
	if err := c.Service.SetACL(ctx, p, acl); err != nil {
		return fmt.Errorf("SetACL.%w", err)
	}
	return nil
}

// SetProperties sets the properties of the asset
func (c *Catalog) SetProperties(ctx context.Context, asset string, properties map[string]interface{}) error {
	p, err := c.Path(ctx, asset)
	if err != nil {
		return err
	}
	return c.Service.SetProperties(ctx, p, properties)
}

// CreateFolder creates a folder or an image collection, readable by everyone if public
func (c *Catalog) CreateFolder(ctx context.Context, folder string, imageCollection, overwrite, public bool) error {
	p, err := c.Path(ctx, folder)
	if err != nil {
		return err
	}
	assetType := common.AssetTypeFolder
	if imageCollection {
		assetType = common.AssetTypeImageCollection
	}
	if err := c.Service.CreateAsset(ctx, assetType, p, overwrite); err != nil {
		return fmt.Errorf("CreateFolder.%w", err)
	}
	if public {
		return c.SetACL(ctx, "/"+p, common.ACLPublic(), false)
	}
	return nil
}

// Copy the asset src to dst
func (c *Catalog) Copy(ctx context.Context, src, dst string) error {
	srcPath, err := c.Path(ctx, src)
	if err != nil {
		return err
	}
	dstPath, err := c.Path(ctx, dst)
	if err != nil {
		return err
	}
	return c.Service.Copy(ctx, srcPath, dstPath)
}

// Remove deletes the asset. If recursive, the whole content of folders and collections is deleted first.
func (c *Catalog) Remove(ctx context.Context, asset string, recursive bool) error {
	p, err := c.Path(ctx, asset)
	if err != nil {
		return err
	}
	if recursive {
		info, err := c.Service.Info(ctx, p)
		if err != nil {
			return fmt.Errorf("Remove.%w", err)
		}
		if info == nil {
			return ErrAssetNotFound{Asset: p}
		}
		if info.Type.Container() {
			children, err := c.Ls(ctx, "/"+p, true)
			if err != nil {
				return fmt.Errorf("Remove.%w", err)
			}
			for _, child := range children {
				if err := c.Remove(ctx, "/"+child, true); err != nil {
					return err
				}
			}
		}
	}
	log.Logger(ctx).Sugar().Debugf("Deleting asset %s", p)
	if err := c.Service.Delete(ctx, p); err != nil {
		return fmt.Errorf("Remove.%w", err)
	}
	return nil
}
