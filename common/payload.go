package common

import (
	"time"
)

// Source of a tileset: a staged object
type Source struct {
	PrimaryPath string `json:"primaryPath"`
}

// Tileset groups the sources of an image
type Tileset struct {
	ID      string   `json:"id,omitempty"`
	Sources []Source `json:"sources"`
}

// Band describes a band of the ingested image
type Band struct {
	ID               string `json:"id"`
	TilesetID        string `json:"tileset_id,omitempty"`
	TilesetBandIndex int    `json:"tileset_band_index,omitempty"`
	PyramidingPolicy string `json:"pyramiding_policy,omitempty"`
}

// IngestionRequest is the payload sent to the catalog service to start an ingestion
type IngestionRequest struct {
	ID         string                 `json:"id"`
	Tilesets   []Tileset              `json:"tilesets"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Bands      []Band                 `json:"bands,omitempty"`
}

// SourceURI returns the primary path of the first source
func (r IngestionRequest) SourceURI() string {
	for _, ts := range r.Tilesets {
		for _, s := range ts.Sources {
			return s.PrimaryPath
		}
	}
	return ""
}

// TaskStatus is the status of a task, as returned by the catalog service
type TaskStatus struct {
	ID           string    `json:"id"`
	State        TaskState `json:"state"`
	Description  string    `json:"description,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Progress     float64   `json:"progress,omitempty"`
}

// Asset is an entity of the catalog
type Asset struct {
	ID         string                 `json:"id"`
	Type       AssetType              `json:"type"`
	UpdateTime time.Time              `json:"update_time,omitempty"`
	SizeBytes  int64                  `json:"size_bytes,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ACL of an asset
type ACL struct {
	Owners          []string `json:"owners,omitempty"`
	Writers         []string `json:"writers,omitempty"`
	Readers         []string `json:"readers,omitempty"`
	AllUsersCanRead bool     `json:"all_users_can_read"`
}

// ACLChange lists the fields of an ACL to be modified (nil fields are left unchanged)
type ACLChange struct {
	Writers         *[]string `json:"writers,omitempty"`
	Readers         *[]string `json:"readers,omitempty"`
	AllUsersCanRead *bool     `json:"all_users_can_read,omitempty"`
}

// Apply the change to the acl
func (c ACLChange) Apply(acl ACL) ACL {
	if c.Writers != nil {
		acl.Writers = *c.Writers
	}
	if c.Readers != nil {
		acl.Readers = *c.Readers
	}
	if c.AllUsersCanRead != nil {
		acl.AllUsersCanRead = *c.AllUsersCanRead
	}
	return acl
}

// ACLPublic returns the change making an asset readable by everyone
func ACLPublic() ACLChange {
	b := true
	return ACLChange{AllUsersCanRead: &b}
}

// ACLPrivate returns the change making an asset readable only by the explicit readers
func ACLPrivate() ACLChange {
	b := false
	return ACLChange{AllUsersCanRead: &b}
}

// Quota of an asset root
type Quota struct {
	AssetCount   int64 `json:"asset_count"`
	MaxAssets    int64 `json:"max_assets"`
	SizeBytes    int64 `json:"size_bytes"`
	MaxSizeBytes int64 `json:"max_size_bytes"`
}

// Result is the event published when a task reaches a terminal state
type Result struct {
	TaskID  string    `json:"task_id"`
	Asset   string    `json:"asset"`
	State   TaskState `json:"state"`
	Message string    `json:"message"`
}
