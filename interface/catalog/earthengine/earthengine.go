package earthengine

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

const (
	// LegacyProject hosts the assets of the legacy "users/*" roots
	LegacyProject = "projects/earthengine-legacy"

	EarthEngineScope   = "https://www.googleapis.com/auth/earthengine"
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	DefaultEndpoint = "https://earthengine.googleapis.com/v1/"
)

// Scopes required to ingest assets (Earth Engine and Cloud Storage)
var Scopes = []string{EarthEngineScope, CloudPlatformScope}

// Service implements catalog.Service on the Earth Engine REST API
type Service struct {
	client   *http.Client
	endpoint string
	project  string // projects/<id>
}

// New returns a client of Earth Engine.
// project is the cloud project hosting the assets and the tasks. If empty, the legacy project is used.
// client must authenticate the requests. endpoint defaults to DefaultEndpoint.
func New(project string, client *http.Client, endpoint string) *Service {
	if project == "" {
		project = LegacyProject
	} else if !strings.HasPrefix(project, "projects/") {
		project = "projects/" + project
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	} else if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Service{client: client, endpoint: endpoint, project: project}
}

// NewWithCredentials returns a client of Earth Engine authenticated with creds
func NewWithCredentials(ctx context.Context, project string, creds *google.Credentials) *Service {
	return New(project, oauth2.NewClient(ctx, creds.TokenSource), "")
}

// call sends a request on the resource name (with an optional custom method, e.g. "name:copy").
// in and out are json-encoded, out may be nil. The errors of the service are *googleapi.Error.
func (s *Service) call(ctx context.Context, method, name string, query url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}
	u := s.endpoint + (&url.URL{Path: name}).EscapedPath()
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// FindCredentials returns the credentials, from the first defined of:
// credentialJSON (content of a service-account key), credentialPath (path to a key file) or the application default credentials.
func FindCredentials(ctx context.Context, credentialPath string, credentialJSON []byte) (*google.Credentials, error) {
	switch {
	case len(credentialJSON) > 0:
		creds, err := google.CredentialsFromJSON(ctx, credentialJSON, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("FindCredentials.FromJSON: %w", err)
		}
		return creds, nil
	case credentialPath != "":
		creds, err := credentialsFromFile(ctx, credentialPath)
		if err != nil {
			return nil, fmt.Errorf("FindCredentials[%s]: %w", credentialPath, err)
		}
		return creds, nil
	}
	creds, err := google.FindDefaultCredentials(ctx, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("FindCredentials.Default: %w", err)
	}
	return creds, nil
}

// AssetName returns the full resource name of the asset
func AssetName(path string) string {
	if strings.HasPrefix(path, "projects/") {
		return path
	}
	return LegacyProject + "/assets/" + strings.TrimPrefix(path, "/")
}

// AssetID returns the path of the asset from its resource name
func AssetID(name string) string {
	return strings.TrimPrefix(name, LegacyProject+"/assets/")
}

// splitName returns the parent project and the asset id, as expected by assets.create
func splitName(name string) (string, string, error) {
	parts := strings.SplitN(name, "/assets/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid asset name: %s", name)
	}
	return parts[0], parts[1], nil
}

func (s *Service) operationName(taskID string) string {
	if strings.HasPrefix(taskID, "projects/") {
		return taskID
	}
	return s.project + "/operations/" + taskID
}

var taskIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewTaskID implements catalog.Service
func (s *Service) NewTaskID(ctx context.Context) (string, error) {
	u := uuid.New()
	return taskIDEncoding.EncodeToString(u[:])[:24], nil
}

// StartIngestion implements catalog.Service
func (s *Service) StartIngestion(ctx context.Context, taskID string, req common.IngestionRequest) (string, error) {
	manifest, err := newImageManifest(AssetName(req.ID), req)
	if err != nil {
		return "", fmt.Errorf("StartIngestion.%w", err)
	}
	var op operation
	if err := s.call(ctx, "POST", s.project+"/image:import", nil, &importImageRequest{
		ImageManifest: manifest,
		RequestID:     taskID,
	}, &op); err != nil {
		return "", fmt.Errorf("StartIngestion.Import: %w", err)
	}
	if op.Name == "" {
		return taskID, nil
	}
	return op.Name[strings.LastIndex(op.Name, "/")+1:], nil
}

type operationMetadata struct {
	State       string  `json:"state"`
	Description string  `json:"description"`
	Progress    float64 `json:"progress"`
}

// TaskStatus implements catalog.Service
func (s *Service) TaskStatus(ctx context.Context, taskID string) (common.TaskStatus, error) {
	var op operation
	if err := s.call(ctx, "GET", s.operationName(taskID), nil, nil, &op); err != nil {
		return common.TaskStatus{}, fmt.Errorf("TaskStatus[%s]: %w", taskID, err)
	}
	return operationStatus(taskID, op)
}

func operationStatus(taskID string, op operation) (common.TaskStatus, error) {
	status := common.TaskStatus{ID: taskID}
	var metadata operationMetadata
	if len(op.Metadata) > 0 {
		if err := json.Unmarshal(op.Metadata, &metadata); err != nil {
			return status, fmt.Errorf("TaskStatus[%s].Metadata: %w", taskID, err)
		}
	}
	status.State = taskState(metadata.State)
	status.Description = metadata.Description
	status.Progress = metadata.Progress
	if op.Error != nil {
		status.ErrorMessage = op.Error.Message
		if op.Done && !status.State.Terminal() {
			status.State = common.StateFAILED
		}
	} else if op.Done && !status.State.Terminal() {
		status.State = common.StateCOMPLETED
	}
	return status, nil
}

// taskState maps the states of the operations. Unknown states are considered not yet started.
func taskState(state string) common.TaskState {
	switch state {
	case "RUNNING", "CANCELLING":
		return common.StateRUNNING
	case "SUCCEEDED", "COMPLETED":
		return common.StateCOMPLETED
	case "FAILED":
		return common.StateFAILED
	case "CANCELLED":
		return common.StateCANCELLED
	}
	return common.StatePENDING
}

func newImageManifest(name string, req common.IngestionRequest) (*imageManifest, error) {
	manifest := &imageManifest{Name: name}
	for _, ts := range req.Tilesets {
		t := tileset{ID: ts.ID}
		for _, src := range ts.Sources {
			t.Sources = append(t.Sources, imageSource{URIs: []string{src.PrimaryPath}})
		}
		manifest.Tilesets = append(manifest.Tilesets, t)
	}
	for _, b := range req.Bands {
		manifest.Bands = append(manifest.Bands, tilesetBand{
			ID:               b.ID,
			TilesetID:        b.TilesetID,
			TilesetBandIndex: b.TilesetBandIndex,
			PyramidingPolicy: b.PyramidingPolicy,
		})
	}

	properties := map[string]interface{}{}
	for k, v := range req.Properties {
		switch k {
		case common.PropTimeStart, common.PropTimeEnd:
			ms, err := millis(v)
			if err != nil {
				return nil, fmt.Errorf("newImageManifest[%s]: %w", k, err)
			}
			t := time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
			if k == common.PropTimeStart {
				manifest.StartTime = t
			} else {
				manifest.EndTime = t
			}
		default:
			properties[k] = v
		}
	}
	if len(properties) > 0 {
		manifest.Properties = properties
	}
	return manifest, nil
}

func millis(v interface{}) (int64, error) {
	switch ms := v.(type) {
	case int64:
		return ms, nil
	case int:
		return int64(ms), nil
	case float64:
		return int64(ms), nil
	case json.Number:
		return ms.Int64()
	case time.Time:
		return common.FormatDate(ms), nil
	}
	return 0, fmt.Errorf("unsupported timestamp %v (%T)", v, v)
}

// Info implements catalog.Service
func (s *Service) Info(ctx context.Context, path string) (*common.Asset, error) {
	var a asset
	if err := s.call(ctx, "GET", AssetName(path), nil, nil, &a); err != nil {
		if service.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("Info[%s]: %w", path, err)
	}
	info := toAsset(a)
	return &info, nil
}

func toAsset(a asset) common.Asset {
	info := common.Asset{ID: AssetID(a.Name), SizeBytes: a.SizeBytes, Properties: a.Properties}
	if t, err := common.AssetTypeString(a.Type); err == nil {
		info.Type = t
	}
	if a.UpdateTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, a.UpdateTime); err == nil {
			info.UpdateTime = t
		}
	}
	return info
}

// List implements catalog.Service
func (s *Service) List(ctx context.Context, path string) ([]common.Asset, error) {
	var assets []common.Asset
	query := url.Values{}
	for {
		var resp listAssetsResponse
		if err := s.call(ctx, "GET", AssetName(path)+":listAssets", query, nil, &resp); err != nil {
			return nil, fmt.Errorf("List[%s]: %w", path, err)
		}
		for _, a := range resp.Assets {
			assets = append(assets, toAsset(a))
		}
		if resp.NextPageToken == "" {
			return assets, nil
		}
		query.Set("pageToken", resp.NextPageToken)
	}
}

// ACL implements catalog.Service
func (s *Service) ACL(ctx context.Context, path string) (common.ACL, error) {
	var p policy
	if err := s.call(ctx, "POST", AssetName(path)+":getIamPolicy", nil, struct{}{}, &p); err != nil {
		return common.ACL{}, fmt.Errorf("ACL[%s]: %w", path, err)
	}
	return policyToACL(p), nil
}

// SetACL implements catalog.Service
func (s *Service) SetACL(ctx context.Context, path string, acl common.ACL) error {
	name := AssetName(path)
	var current policy
	if err := s.call(ctx, "POST", name+":getIamPolicy", nil, struct{}{}, &current); err != nil {
		return fmt.Errorf("SetACL[%s].GetIamPolicy: %w", path, err)
	}
	acl.Owners = policyToACL(current).Owners
	p := aclToPolicy(acl)
	p.Etag = current.Etag
	if err := s.call(ctx, "POST", name+":setIamPolicy", nil, &setIamPolicyRequest{Policy: p}, nil); err != nil {
		return fmt.Errorf("SetACL[%s]: %w", path, err)
	}
	return nil
}

// SetProperties implements catalog.Service
func (s *Service) SetProperties(ctx context.Context, path string, properties map[string]interface{}) error {
	if len(properties) == 0 {
		return nil
	}
	if err := s.call(ctx, "PATCH", AssetName(path), nil, &updateAssetRequest{
		Asset:      asset{Properties: properties},
		UpdateMask: propertiesMask(properties),
	}, nil); err != nil {
		return fmt.Errorf("SetProperties[%s]: %w", path, err)
	}
	return nil
}

func propertiesMask(properties map[string]interface{}) string {
	paths := make([]string, 0, len(properties))
	for k := range properties {
		paths = append(paths, fmt.Sprintf("properties.%q", k))
	}
	sort.Strings(paths)
	return strings.Join(paths, ",")
}

// CreateAsset implements catalog.Service
func (s *Service) CreateAsset(ctx context.Context, assetType common.AssetType, path string, overwrite bool) error {
	if !assetType.Container() {
		return fmt.Errorf("CreateAsset[%s]: cannot create an empty %s", path, assetType)
	}
	parent, id, err := splitName(AssetName(path))
	if err != nil {
		return fmt.Errorf("CreateAsset.%w", err)
	}
	log.Logger(ctx).Sugar().Debugf("Creating %s %s", assetType, path)
	query := url.Values{"assetId": []string{id}}
	if overwrite {
		query.Set("overwrite", strconv.FormatBool(overwrite))
	}
	if err := s.call(ctx, "POST", parent+"/assets", query, &asset{Type: assetType.String()}, nil); err != nil {
		return fmt.Errorf("CreateAsset[%s]: %w", path, err)
	}
	return nil
}

// Copy implements catalog.Service
func (s *Service) Copy(ctx context.Context, src, dst string) error {
	if err := s.call(ctx, "POST", AssetName(src)+":copy", nil, &copyAssetRequest{
		DestinationName: AssetName(dst),
	}, nil); err != nil {
		return fmt.Errorf("Copy[%s->%s]: %w", src, dst, err)
	}
	return nil
}

// Delete implements catalog.Service
func (s *Service) Delete(ctx context.Context, path string) error {
	if err := s.call(ctx, "DELETE", AssetName(path), nil, nil, nil); err != nil {
		return fmt.Errorf("Delete[%s]: %w", path, err)
	}
	return nil
}

// AssetRoots implements catalog.Service
// With a cloud project, the only root is the asset folder of the project.
func (s *Service) AssetRoots(ctx context.Context) ([]string, error) {
	if s.project != LegacyProject {
		return []string{s.project + "/assets"}, nil
	}
	assets, err := s.List(ctx, LegacyProject+"/assets")
	if err != nil {
		return nil, fmt.Errorf("AssetRoots.%w", err)
	}
	roots := make([]string, len(assets))
	for i, a := range assets {
		roots[i] = a.ID
	}
	return roots, nil
}

// Quota implements catalog.Service
func (s *Service) Quota(ctx context.Context, root string) (common.Quota, error) {
	var a asset
	if err := s.call(ctx, "GET", AssetName(root), nil, nil, &a); err != nil {
		return common.Quota{}, fmt.Errorf("Quota[%s]: %w", root, err)
	}
	if a.Quota == nil {
		return common.Quota{}, fmt.Errorf("Quota[%s]: no quota for this asset", root)
	}
	return common.Quota{
		AssetCount:   a.Quota.AssetCount,
		MaxAssets:    a.Quota.MaxAssets,
		SizeBytes:    a.Quota.SizeBytes,
		MaxSizeBytes: a.Quota.MaxSizeBytes,
	}, nil
}
