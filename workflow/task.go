package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
	"github.com/airbusgeo/ee-ingester/service/log"
	"go.uber.org/zap"
)

// ErrTaskFailed is returned in strict mode when a task ends in FAILED or CANCELLED state
type ErrTaskFailed struct {
	Status common.TaskStatus
}

func (e ErrTaskFailed) Error() string {
	if e.Status.ErrorMessage != "" {
		return fmt.Sprintf("task %s ended with state %s: %s", e.Status.ID, e.Status.State, e.Status.ErrorMessage)
	}
	return fmt.Sprintf("task %s ended with state %s", e.Status.ID, e.Status.State)
}

// ErrTimeout is returned in strict mode when tasks are not completed before the timeout
type ErrTimeout struct {
	TaskIDs []string
	Timeout time.Duration
}

func (e ErrTimeout) Error() string {
	return fmt.Sprintf("tasks %v timed out after %v", e.TaskIDs, e.Timeout)
}

// Outcome of a set of ingestion tasks
type Outcome struct {
	// TaskIDs in the order of submission
	TaskIDs []string `json:"task_ids"`
	// States is the last state observed for each task
	States map[string]common.TaskState `json:"states"`
	// Rejected lists the assets whose ingestion could not be submitted
	Rejected []string `json:"rejected,omitempty"`
}

func newOutcome(taskIDs []string) Outcome {
	o := Outcome{TaskIDs: append([]string{}, taskIDs...), States: map[string]common.TaskState{}}
	for _, id := range taskIDs {
		o.States[id] = common.StatePENDING
	}
	return o
}

// AllCompleted returns true if every ingestion has been submitted and completed
func (o Outcome) AllCompleted() bool {
	if len(o.Rejected) > 0 {
		return false
	}
	for _, id := range o.TaskIDs {
		if o.States[id] != common.StateCOMPLETED {
			return false
		}
	}
	return true
}

// Failed returns the tasks that ended in FAILED or CANCELLED state
func (o Outcome) Failed() []string {
	var ids []string
	for _, id := range o.TaskIDs {
		if o.States[id].Failed() {
			ids = append(ids, id)
		}
	}
	return ids
}

// Running returns the tasks that did not reach a terminal state
func (o Outcome) Running() []string {
	var ids []string
	for _, id := range o.TaskIDs {
		if !o.States[id].Terminal() {
			ids = append(ids, id)
		}
	}
	return ids
}

// SubmitIngestion starts the ingestion of the staged object uri into the asset and returns immediately.
// tag [optional] sets time_start and time_end of the asset
// bands [optional] describes the bands of the asset
// Returns the id assigned to the task by the catalog service. Submission errors are never retried.
func (wf *Workflow) SubmitIngestion(ctx context.Context, uri, asset string, tag common.TemporalTag, bands []common.Band) (string, error) {
	p, err := wf.Path(ctx, asset)
	if err != nil {
		return "", fmt.Errorf("SubmitIngestion.%w", err)
	}
	req := common.NewIngestionRequest(uri, p, tag, bands)
	id, err := wf.Service.NewTaskID(ctx)
	if err != nil {
		return "", fmt.Errorf("SubmitIngestion.NewTaskID: %w", err)
	}
	lg := log.Logger(ctx).With(zap.String("taskID", id), zap.String("asset", p), zap.String("uri", uri))
	lg.Sugar().Debugf("Ingesting %s to %s: %s", uri, asset, id)
	if b, err := json.Marshal(req); err == nil {
		lg.Sugar().Infof("Ingestion params: %s", b)
	}
	taskID, err := wf.Service.StartIngestion(ctx, id, req)
	if err != nil {
		return "", fmt.Errorf("SubmitIngestion.StartIngestion: %w", err)
	}
	wf.track(ctx, taskID, p, uri)
	return taskID, nil
}

// IngestAsset submits the ingestion and, if waitTimeout > 0, waits for its completion
func (wf *Workflow) IngestAsset(ctx context.Context, uri, asset string, tag common.TemporalTag, waitTimeout time.Duration, bands []common.Band) (string, error) {
	taskID, err := wf.SubmitIngestion(ctx, uri, asset, tag, bands)
	if err != nil {
		return "", fmt.Errorf("IngestAsset.%w", err)
	}
	if waitTimeout > 0 {
		if _, err := wf.WaitForTask(ctx, taskID, waitTimeout); err != nil {
			return taskID, fmt.Errorf("IngestAsset.%w", err)
		}
	}
	return taskID, nil
}

// PollTaskState retrieves the current status of the task.
// FAILED and CANCELLED are logged and, in strict mode, returned as ErrTaskFailed.
func (wf *Workflow) PollTaskState(ctx context.Context, taskID string) (common.TaskStatus, error) {
	status, err := wf.Service.TaskStatus(ctx, taskID)
	if err != nil {
		return status, fmt.Errorf("PollTaskState.%w", err)
	}
	if status.ID == "" {
		status.ID = taskID
	}
	wf.record(ctx, status)
	if status.State.Failed() {
		lg := log.Logger(ctx).With(zap.String("taskID", taskID))
		if status.ErrorMessage != "" {
			lg = lg.With(zap.String("error", status.ErrorMessage))
		}
		lg.Sugar().Errorf("Task ended with state %s", status.State)
		if wf.strict {
			return status, ErrTaskFailed{Status: status}
		}
	}
	return status, nil
}

// WaitForTask polls the task until it reaches a terminal state or the timeout elapses.
// Returns true if the task is COMPLETED. In strict mode, failures and timeout are returned as errors.
func (wf *Workflow) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (bool, error) {
	status, err := wf.waitForTask(ctx, taskID, timeout)
	return status.State == common.StateCOMPLETED, err
}

func (wf *Workflow) waitForTask(ctx context.Context, taskID string, timeout time.Duration) (common.TaskStatus, error) {
	var status common.TaskStatus
	start := wf.clock.Now()
	for {
		var err error
		status, err = wf.PollTaskState(ctx, taskID)
		if status.State.Terminal() {
			wf.publish(ctx, status)
		}
		if err != nil || status.State.Terminal() {
			return status, err
		}
		if wf.clock.Now().Sub(start) >= timeout {
			break
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-wf.clock.After(wf.pollInterval):
		}
	}
	log.Logger(ctx).Sugar().Infof("Task %s timed out after %v", taskID, timeout)
	if wf.strict {
		return status, ErrTimeout{TaskIDs: []string{taskID}, Timeout: timeout}
	}
	return status, nil
}

// WaitForTasks polls all the tasks until they all reach a terminal state or the timeout elapses.
// A task that reached a terminal state is not polled anymore.
// In strict mode, the first failure and the timeout are returned as errors.
func (wf *Workflow) WaitForTasks(ctx context.Context, taskIDs []string, timeout time.Duration) (Outcome, error) {
	outcome := newOutcome(taskIDs)
	pending := outcome.TaskIDs
	start := wf.clock.Now()
	for {
		var running []string
		for _, id := range pending {
			status, err := wf.PollTaskState(ctx, id)
			if err != nil && !status.State.Terminal() {
				return outcome, fmt.Errorf("WaitForTasks.%w", err)
			}
			outcome.States[id] = status.State
			if status.State.Terminal() {
				wf.publish(ctx, status)
			} else {
				running = append(running, id)
			}
			if err != nil {
				return outcome, fmt.Errorf("WaitForTasks.%w", err)
			}
		}
		if pending = running; len(pending) == 0 {
			return outcome, nil
		}
		if wf.clock.Now().Sub(start) >= timeout {
			break
		}
		select {
		case <-ctx.Done():
			return outcome, ctx.Err()
		case <-wf.clock.After(wf.pollInterval):
		}
	}
	log.Logger(ctx).Sugar().Infof("Tasks timed out after %v", timeout)
	if wf.strict {
		return outcome, ErrTimeout{TaskIDs: outcome.TaskIDs, Timeout: timeout}
	}
	return outcome, nil
}
