// Package task holds the domain records shared by extraction, storage and
// the reminder scheduler.
package task

import (
	"strconv"
	"time"
)

// TimeLayout is the canonical naive datetime wire format ("YYYY-MM-DD HH:MM:SS").
// It is used both for the prompt anchor and for the extraction response, and is
// always interpreted in the single process-wide location.
const TimeLayout = "2006-01-02 15:04:05"

// DigestJobID is the scheduler id of the recurring daily digest.
const DigestJobID = "daily_digest"

// Draft is the result of one extraction call. It is never persisted directly;
// the store assigns identity when the task is created.
type Draft struct {
	Text  string
	DueAt *time.Time // nil: no temporal cue (backlog task)
}

// HasDue reports whether the draft carries a reminder time.
func (d Draft) HasDue() bool { return d.DueAt != nil }

// Task is a persisted task as reported by the store.
//
// Completed transitions false->true exactly once (reminder delivery or manual
// completion) and never reverts.
type Task struct {
	ID          int64
	RecipientID int64
	Text        string
	DueAt       *time.Time
	Completed   bool
	CreatedAt   time.Time
}

// ReminderJobID returns the scheduler id of the one-shot reminder for a task.
func ReminderJobID(taskID int64) string {
	return "reminder:" + strconv.FormatInt(taskID, 10)
}

// FormatDue renders t with TimeLayout in loc. Nil renders as "".
func FormatDue(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	if loc != nil {
		return t.In(loc).Format(TimeLayout)
	}
	return t.Format(TimeLayout)
}
