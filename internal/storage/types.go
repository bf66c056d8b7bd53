package storage

import (
	"context"
	"errors"
	"time"

	"taskbot/internal/task"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
type Config struct {
	Driver      string // "sqlite" (default) | "memory"
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the bot and the reminder jobs.
//
// Listing methods never return completed tasks unless asked to.
// MarkCompleted is idempotent; an unknown id is not an error.
type Store interface {
	CreateTask(ctx context.Context, recipientID int64, text string, dueAt *time.Time) (int64, error)
	// ListIncompleteScheduled returns every incomplete task with a due time, past or future.
	ListIncompleteScheduled(ctx context.Context) ([]task.Task, error)
	// ListTasksInRange returns incomplete tasks due in [start, end), ordered by due time.
	ListTasksInRange(ctx context.Context, start, end time.Time) ([]task.Task, error)
	MarkCompleted(ctx context.Context, id int64) error
	// ListUserTasks orders by due time ascending with backlog tasks last.
	ListUserTasks(ctx context.Context, recipientID int64, includeCompleted bool) ([]task.Task, error)
	UpsertUser(ctx context.Context, id int64, username string) error
	Close() error
}
