package reminder

import (
	"context"
	"fmt"
	"time"

	"taskbot/internal/task"
	"taskbot/internal/task/scheduler"
	logx "taskbot/pkg/logx"
)

// ScheduledLister lists every incomplete task that has a due time.
type ScheduledLister interface {
	ListIncompleteScheduled(ctx context.Context) ([]task.Task, error)
}

// Registrar installs one-shot jobs.
type Registrar interface {
	Register(id string, fireAt time.Time, p scheduler.Payload) error
}

// Reconcile registers a reminder job for every incomplete task with a due
// time, past or future. Past-due jobs fire as soon as the scheduler runs.
// It returns how many jobs were registered and stops at the first failure.
func Reconcile(ctx context.Context, store ScheduledLister, sched Registrar, log logx.Logger) (int, error) {
	tasks, err := store.ListIncompleteScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile: list tasks: %w", err)
	}
	n, overdue := 0, 0
	now := time.Now()
	for _, t := range tasks {
		if t.DueAt == nil || t.Completed {
			continue
		}
		if err := sched.Register(task.ReminderJobID(t.ID), *t.DueAt, PayloadFor(t)); err != nil {
			return n, fmt.Errorf("reconcile task %d: %w", t.ID, err)
		}
		if t.DueAt.Before(now) {
			overdue++
		}
		n++
	}
	if !log.IsZero() {
		log.Info("reminders reconciled", logx.Int("registered", n), logx.Int("overdue", overdue))
	}
	return n, nil
}

// PayloadFor builds the reminder payload for a stored task.
func PayloadFor(t task.Task) scheduler.Payload {
	return scheduler.Payload{RecipientID: t.RecipientID, TaskID: t.ID, Text: t.Text}
}
