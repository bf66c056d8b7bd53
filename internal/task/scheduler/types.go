package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNotRunning is wrapped by RegistrationError when the scheduler is stopped.
var ErrNotRunning = errors.New("scheduler: not running")

// RegistrationError is returned when a job cannot be registered.
type RegistrationError struct {
	ID  string
	Err error
}

func (e *RegistrationError) Error() string {
	return "scheduler: register " + e.ID + ": " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Payload is what a one-shot reminder job carries to its callback.
type Payload struct {
	RecipientID int64
	TaskID      int64
	Text        string
}

// FireFunc handles a fired one-shot job.
type FireFunc func(ctx context.Context, p Payload) error

// Job is a recurring job body.
type Job func(ctx context.Context) error

const (
	DefaultOnceTimeout      = 30 * time.Second
	DefaultRecurringTimeout = 2 * time.Minute
)

// Config controls the scheduler.
type Config struct {
	// Location is the single process-wide zone for cron specs. Nil means UTC.
	Location *time.Location

	// Callback budgets. Zero uses the defaults above.
	OnceTimeout      time.Duration
	RecurringTimeout time.Duration
}

type JobKind string

const (
	KindOnce      JobKind = "once"
	KindRecurring JobKind = "recurring"
)

// JobInfo describes one pending job.
type JobInfo struct {
	ID      string
	Kind    JobKind
	FireAt  time.Time // next run for recurring jobs; zero before Start
	Spec    string    // recurring only
	Payload Payload   // once only
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Once      int
	Recurring int
	InFlight  int64
	Fired     uint64
	Failed    uint64
	Jobs      []JobInfo
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateStopped
)

type onceEntry struct {
	id      string
	at      time.Time
	payload Payload
	ver     uint64
	timer   *time.Timer
}

type recurringDef struct {
	id      string
	spec    string // normalized cron spec
	source  string // spec as registered
	job     Job
	entryID cron.EntryID
}
