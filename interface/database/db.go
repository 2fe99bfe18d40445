package db

import (
	"context"
	"fmt"
	"time"

	"github.com/airbusgeo/ee-ingester/common"
)

// Task is an ingestion task, as recorded in the journal
type Task struct {
	ID      string           `json:"id"`
	Asset   string           `json:"asset"`
	URI     string           `json:"uri"`
	State   common.TaskState `json:"state"`
	Message string           `json:"message,omitempty"`
	Created time.Time        `json:"created"`
	Updated time.Time        `json:"updated"`
}

type ErrAlreadyExists struct {
	Type, ID string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Type, e.ID)
}

type ErrNotFound struct {
	Type, ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Type, e.ID)
}

// TaskBackend journals the ingestion tasks submitted to the catalog service
type TaskBackend interface {
	// CreateTask records a newly submitted task, may return ErrAlreadyExists
	CreateTask(ctx context.Context, task Task) error
	// UpdateTask sets the state observed for the task, may return ErrNotFound
	UpdateTask(ctx context.Context, id string, state common.TaskState, message string) error
	// Task returns the task, may return ErrNotFound
	Task(ctx context.Context, id string) (Task, error)
	// Tasks returns the tasks whose asset fits the pattern
	// pattern [optional=""] asset pattern (* and ? wildcards)
	// state [optional=nil] filter on the state
	Tasks(ctx context.Context, pattern string, state *common.TaskState) ([]Task, error)
}
