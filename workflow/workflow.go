package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/airbusgeo/ee-ingester/catalog"
	"github.com/airbusgeo/ee-ingester/common"
	db "github.com/airbusgeo/ee-ingester/interface/database"
	"github.com/airbusgeo/ee-ingester/interface/messaging"
	"github.com/airbusgeo/ee-ingester/service"
	"github.com/airbusgeo/ee-ingester/service/log"
	"go.uber.org/zap"
)

// DefaultPollInterval between two polls of the status of the tasks
const DefaultPollInterval = 5 * time.Second

// Clock measures the elapsed time and schedules the polls
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options of a Workflow
type Options struct {
	// Strict makes the terminal failures and the timeouts return an error
	Strict bool
	// PollInterval between two polls (default: DefaultPollInterval)
	PollInterval time.Duration
	// Clock (default: system clock)
	Clock Clock
	// Journal records the tasks [optional]
	Journal db.TaskBackend
	// Publisher of the results of the tasks [optional]
	Publisher messaging.Publisher
	// WorkDir where the remote sources are downloaded (default: os.TempDir())
	WorkDir string
}

// Workflow is a session on a catalog service and a staging bucket
type Workflow struct {
	*catalog.Catalog
	stager *service.Stager

	strict       bool
	pollInterval time.Duration
	clock        Clock
	journal      db.TaskBackend
	publisher    messaging.Publisher
	workDir      string

	mu     sync.Mutex
	assets map[string]string // taskID -> asset
}

// New creates a Workflow. stager may be nil if nothing has to be staged.
func New(cat *catalog.Catalog, stager *service.Stager, opts Options) *Workflow {
	wf := &Workflow{
		Catalog:      cat,
		stager:       stager,
		strict:       opts.Strict,
		pollInterval: opts.PollInterval,
		clock:        opts.Clock,
		journal:      opts.Journal,
		publisher:    opts.Publisher,
		workDir:      opts.WorkDir,
		assets:       map[string]string{},
	}
	if wf.pollInterval <= 0 {
		wf.pollInterval = DefaultPollInterval
	}
	if wf.clock == nil {
		wf.clock = systemClock{}
	}
	return wf
}

// Stager returns the stager of the session
func (wf *Workflow) Stager() *service.Stager {
	return wf.stager
}

// Strict returns true if the terminal failures and the timeouts are returned as errors
func (wf *Workflow) Strict() bool {
	return wf.strict
}

// Journal returns the task journal or nil
func (wf *Workflow) Journal() db.TaskBackend {
	return wf.journal
}

func (wf *Workflow) track(ctx context.Context, taskID, asset, uri string) {
	wf.mu.Lock()
	wf.assets[taskID] = asset
	wf.mu.Unlock()

	if wf.journal == nil {
		return
	}
	err := wf.journal.CreateTask(ctx, db.Task{ID: taskID, Asset: asset, URI: uri, State: common.StatePENDING})
	if err != nil {
		log.Logger(ctx).Warn("unable to journal the task", zap.String("taskID", taskID), zap.Error(err))
	}
}

func (wf *Workflow) assetOf(ctx context.Context, taskID string) string {
	wf.mu.Lock()
	asset, ok := wf.assets[taskID]
	wf.mu.Unlock()
	if ok || wf.journal == nil {
		return asset
	}
	if task, err := wf.journal.Task(ctx, taskID); err == nil {
		return task.Asset
	}
	return ""
}

func (wf *Workflow) record(ctx context.Context, status common.TaskStatus) {
	if wf.journal == nil {
		return
	}
	if err := wf.journal.UpdateTask(ctx, status.ID, status.State, status.ErrorMessage); err != nil {
		log.Logger(ctx).Debug("unable to journal the task status", zap.String("taskID", status.ID), zap.Error(err))
	}
}

// publish the result of a task that reached a terminal state
func (wf *Workflow) publish(ctx context.Context, status common.TaskStatus) {
	if wf.publisher == nil {
		return
	}
	result := common.Result{
		TaskID:  status.ID,
		Asset:   wf.assetOf(ctx, status.ID),
		State:   status.State,
		Message: status.ErrorMessage,
	}
	b, err := json.Marshal(result)
	if err == nil {
		err = wf.publisher.Publish(ctx, b)
	}
	if err != nil {
		log.Logger(ctx).Warn("unable to publish the result", zap.String("taskID", status.ID), zap.Error(err))
	}
}
