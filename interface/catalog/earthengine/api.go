package earthengine

import (
	"encoding/json"
)

// Subset of the resources of the Earth Engine v1 REST API

type imageSource struct {
	URIs []string `json:"uris"`
}

type tileset struct {
	ID      string        `json:"id,omitempty"`
	Sources []imageSource `json:"sources"`
}

type tilesetBand struct {
	ID               string `json:"id"`
	TilesetID        string `json:"tilesetId,omitempty"`
	TilesetBandIndex int    `json:"tilesetBandIndex,omitempty"`
	PyramidingPolicy string `json:"pyramidingPolicy,omitempty"`
}

type imageManifest struct {
	Name       string                 `json:"name"`
	Tilesets   []tileset              `json:"tilesets"`
	Bands      []tilesetBand          `json:"bands,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	StartTime  string                 `json:"startTime,omitempty"`
	EndTime    string                 `json:"endTime,omitempty"`
}

type importImageRequest struct {
	ImageManifest *imageManifest `json:"imageManifest"`
	RequestID     string         `json:"requestId,omitempty"`
	Overwrite     bool           `json:"overwrite,omitempty"`
}

type rpcStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operation struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Done     bool            `json:"done"`
	Error    *rpcStatus      `json:"error,omitempty"`
}

type folderQuota struct {
	SizeBytes    int64 `json:"sizeBytes,string"`
	MaxSizeBytes int64 `json:"maxSizeBytes,string"`
	AssetCount   int64 `json:"assetCount,string"`
	MaxAssets    int64 `json:"maxAssets,string"`
}

type asset struct {
	Type       string                 `json:"type,omitempty"`
	Name       string                 `json:"name,omitempty"`
	UpdateTime string                 `json:"updateTime,omitempty"`
	SizeBytes  int64                  `json:"sizeBytes,string,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Quota      *folderQuota           `json:"quota,omitempty"`
}

type listAssetsResponse struct {
	Assets        []asset `json:"assets"`
	NextPageToken string  `json:"nextPageToken"`
}

type updateAssetRequest struct {
	Asset      asset  `json:"asset"`
	UpdateMask string `json:"updateMask"`
}

type copyAssetRequest struct {
	DestinationName string `json:"destinationName"`
	Overwrite       bool   `json:"overwrite,omitempty"`
}

type binding struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

type policy struct {
	Bindings []binding `json:"bindings,omitempty"`
	Etag     string    `json:"etag,omitempty"`
}

type setIamPolicyRequest struct {
	Policy policy `json:"policy"`
}
