// Package catalogtest provides an in-memory catalog.Service with scripted ingestion tasks
package catalogtest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/interface/catalog"
)

var _ catalog.Service = (*Service)(nil)

// Service implements catalog.Service in memory
type Service struct {
	mu sync.Mutex

	Roots  []string
	Assets map[string]*common.Asset
	ACLs   map[string]common.ACL
	// StatesByAsset scripts the successive states returned by TaskStatus for the ingestion of an asset.
	// The last state is repeated. Defaults to DefaultStates, then to COMPLETED.
	StatesByAsset map[string][]common.TaskState
	DefaultStates []common.TaskState
	// MessagesByAsset is the error message reported for a failed ingestion
	MessagesByAsset map[string]string

	// SubmitErr is returned by the next StartIngestion calls
	SubmitErr error
	// SubmitErrByAsset is returned by StartIngestion for the asset
	SubmitErrByAsset map[string]error
	// StatusErr is returned by the next TaskStatus calls
	StatusErr error

	Requests map[string]common.IngestionRequest
	// Submitted lists the task ids in the order of submission
	Submitted []string
	Polls     map[string]int
	// Calls records the mutating calls: "Method path"
	Calls []string

	nextID int
}

// New returns an empty catalog with a single root
func New(root string) *Service {
	s := &Service{
		Roots:            []string{root},
		Assets:           map[string]*common.Asset{},
		ACLs:             map[string]common.ACL{},
		StatesByAsset:    map[string][]common.TaskState{},
		MessagesByAsset:  map[string]string{},
		SubmitErrByAsset: map[string]error{},
		Requests:         map[string]common.IngestionRequest{},
		Polls:            map[string]int{},
	}
	s.Assets[root] = &common.Asset{ID: root, Type: common.AssetTypeFolder}
	return s
}

// Put adds the asset to the catalog
func (s *Service) Put(asset common.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Assets[asset.ID] = &asset
}

// CallsTo returns the number of calls to the method
func (s *Service) CallsTo(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if strings.HasPrefix(c, method+" ") {
			n++
		}
	}
	return n
}

func (s *Service) record(method, p string) {
	s.Calls = append(s.Calls, method+" "+p)
}

// NewTaskID implements catalog.Service
func (s *Service) NewTaskID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("TASK%d", s.nextID), nil
}

// StartIngestion implements catalog.Service
func (s *Service) StartIngestion(ctx context.Context, taskID string, req common.IngestionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("StartIngestion", req.ID)
	if s.SubmitErr != nil {
		return "", s.SubmitErr
	}
	if err := s.SubmitErrByAsset[req.ID]; err != nil {
		return "", err
	}
	if _, ok := s.Requests[taskID]; ok {
		return "", fmt.Errorf("task %s already exists", taskID)
	}
	s.Requests[taskID] = req
	s.Submitted = append(s.Submitted, taskID)
	s.Assets[req.ID] = &common.Asset{ID: req.ID, Type: common.AssetTypeImage, Properties: req.Properties}
	return taskID, nil
}

// TaskStatus implements catalog.Service
func (s *Service) TaskStatus(ctx context.Context, taskID string) (common.TaskStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return common.TaskStatus{}, err
	}
	if s.StatusErr != nil {
		return common.TaskStatus{}, s.StatusErr
	}
	req, ok := s.Requests[taskID]
	if !ok {
		return common.TaskStatus{}, fmt.Errorf("task %s not found", taskID)
	}
	states := s.StatesByAsset[req.ID]
	if len(states) == 0 {
		states = s.DefaultStates
	}
	if len(states) == 0 {
		states = []common.TaskState{common.StateCOMPLETED}
	}
	i := s.Polls[taskID]
	s.Polls[taskID]++
	if i >= len(states) {
		i = len(states) - 1
	}
	status := common.TaskStatus{ID: taskID, State: states[i]}
	if status.State.Failed() {
		status.ErrorMessage = s.MessagesByAsset[req.ID]
	}
	return status, nil
}

// Info implements catalog.Service
func (s *Service) Info(ctx context.Context, p string) (*common.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.Assets[p]
	if !ok {
		return nil, nil
	}
	asset := *a
	return &asset, nil
}

func (s *Service) children(p string) []string {
	var ids []string
	for id := range s.Assets {
		if path.Dir(id) == p && id != p {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// List implements catalog.Service
func (s *Service) List(ctx context.Context, p string) ([]common.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Assets[p]; !ok {
		return nil, fmt.Errorf("asset %s not found", p)
	}
	var assets []common.Asset
	for _, id := range s.children(p) {
		assets = append(assets, *s.Assets[id])
	}
	return assets, nil
}

// ACL implements catalog.Service
func (s *Service) ACL(ctx context.Context, p string) (common.ACL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Assets[p]; !ok {
		return common.ACL{}, fmt.Errorf("asset %s not found", p)
	}
	return s.ACLs[p], nil
}

// SetACL implements catalog.Service
func (s *Service) SetACL(ctx context.Context, p string, acl common.ACL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetACL", p)
	if _, ok := s.Assets[p]; !ok {
		return fmt.Errorf("asset %s not found", p)
	}
	acl.Owners = s.ACLs[p].Owners
	s.ACLs[p] = acl
	return nil
}

// SetProperties implements catalog.Service
func (s *Service) SetProperties(ctx context.Context, p string, properties map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetProperties", p)
	a, ok := s.Assets[p]
	if !ok {
		return fmt.Errorf("asset %s not found", p)
	}
	if a.Properties == nil {
		a.Properties = map[string]interface{}{}
	}
	for k, v := range properties {
		a.Properties[k] = v
	}
	return nil
}

// CreateAsset implements catalog.Service
func (s *Service) CreateAsset(ctx context.Context, assetType common.AssetType, p string, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateAsset", p)
	if _, ok := s.Assets[p]; ok && !overwrite {
		return fmt.Errorf("asset %s already exists", p)
	}
	s.Assets[p] = &common.Asset{ID: p, Type: assetType}
	return nil
}

// Copy implements catalog.Service
func (s *Service) Copy(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Copy", src)
	a, ok := s.Assets[src]
	if !ok {
		return fmt.Errorf("asset %s not found", src)
	}
	asset := *a
	asset.ID = dst
	s.Assets[dst] = &asset
	return nil
}

// Delete implements catalog.Service
func (s *Service) Delete(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Delete", p)
	if _, ok := s.Assets[p]; !ok {
		return fmt.Errorf("asset %s not found", p)
	}
	if len(s.children(p)) > 0 {
		return fmt.Errorf("asset %s is not empty", p)
	}
	delete(s.Assets, p)
	delete(s.ACLs, p)
	return nil
}

// AssetRoots implements catalog.Service
func (s *Service) AssetRoots(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.Roots...), nil
}

// Quota implements catalog.Service
func (s *Service) Quota(ctx context.Context, root string) (common.Quota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := common.Quota{MaxAssets: 10000, MaxSizeBytes: 250 << 30}
	for id, a := range s.Assets {
		if strings.HasPrefix(id, root+"/") {
			q.AssetCount++
			q.SizeBytes += a.SizeBytes
		}
	}
	return q, nil
}
