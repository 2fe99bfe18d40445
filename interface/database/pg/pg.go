package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/airbusgeo/ee-ingester/common"
	db "github.com/airbusgeo/ee-ingester/interface/database"
	"github.com/lib/pq"
)

// Backend implements TaskBackend
type Backend struct {
	*sql.DB
}

/* http://www.postgresql.org/docs/9.3/static/errcodes-appendix.html */
const (
	noError         = "00000"
	uniqueViolation = "23505"

	notPqError = "X"
)

func pqErrorCode(err error) pq.ErrorCode {
	if err == nil {
		return noError
	}
	var pqerr *pq.Error
	if errors.As(err, &pqerr) {
		return pqerr.Code
	}
	return notPqError
}

// New creates a new backend using Postgres
func New(ctx context.Context, dbConnection string) (*Backend, error) {
	sqldb, err := sql.Open("postgres", dbConnection)
	if err != nil {
		return nil, fmt.Errorf("sql.open: %w", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("sql.ping: %w", err)
	}
	return &Backend{sqldb}, nil
}

// likePattern converts a pattern with * and ? wildcards to a LIKE pattern
func likePattern(pattern string) string {
	return strings.NewReplacer("_", "\\_", "%", "\\%", "*", "%", "?", "_").Replace(pattern)
}

// CreateTask implements TaskBackend
func (b Backend) CreateTask(ctx context.Context, task db.Task) error {
	_, err := b.ExecContext(ctx, "insert into task(id, asset, uri, status, message) values($1, $2, $3, $4, $5)",
		task.ID, task.Asset, task.URI, task.State, task.Message)
	switch pqErrorCode(err) {
	case noError:
		return nil
	case uniqueViolation:
		return db.ErrAlreadyExists{Type: "task", ID: task.ID}
	default:
		return fmt.Errorf("CreateTask.exec: %w", err)
	}
}

// UpdateTask implements TaskBackend
func (b Backend) UpdateTask(ctx context.Context, id string, state common.TaskState, message string) error {
	res, err := b.ExecContext(ctx, "update task set status=$1, message=$2, updated=now() where id=$3", state, message, id)
	if err != nil {
		return fmt.Errorf("UpdateTask.exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateTask.RowsAffected: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound{Type: "task", ID: id}
	}
	return nil
}

// Task implements TaskBackend
func (b Backend) Task(ctx context.Context, id string) (db.Task, error) {
	var t db.Task
	err := b.QueryRowContext(ctx, "select id, asset, uri, status, message, created, updated from task where id=$1", id).
		Scan(&t.ID, &t.Asset, &t.URI, &t.State, &t.Message, &t.Created, &t.Updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return t, db.ErrNotFound{Type: "task", ID: id}
	case err != nil:
		return t, fmt.Errorf("Task.QueryRowContext: %w", err)
	}
	return t, nil
}

// Tasks implements TaskBackend
func (b Backend) Tasks(ctx context.Context, pattern string, state *common.TaskState) ([]db.Task, error) {
	var (
		wheres []string
		args   []interface{}
	)
	if pattern != "" {
		args = append(args, likePattern(pattern))
		wheres = append(wheres, fmt.Sprintf("asset LIKE $%d", len(args)))
	}
	if state != nil {
		args = append(args, *state)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	query := "select id, asset, uri, status, message, created, updated from task"
	if len(wheres) > 0 {
		query += " where " + strings.Join(wheres, " and ")
	}
	rows, err := b.QueryContext(ctx, query+" ORDER BY created, id", args...)
	if err != nil {
		return nil, fmt.Errorf("tasks.QueryContext: %w", err)
	}
	defer rows.Close()
	tasks := make([]db.Task, 0)
	for rows.Next() {
		var t db.Task
		if err := rows.Scan(&t.ID, &t.Asset, &t.URI, &t.State, &t.Message, &t.Created, &t.Updated); err != nil {
			return nil, fmt.Errorf("tasks.Scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tasks.rows.err: %w", err)
	}
	return tasks, nil
}
