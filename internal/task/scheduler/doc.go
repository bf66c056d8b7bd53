// Package scheduler keeps the in-memory job table: one-shot reminder jobs
// keyed by id and recurring cron jobs.
//
// The table holds no state across restarts; callers rebuild it from the store
// before Start. A one-shot job is removed from the table the moment it fires,
// before its callback runs, so it never fires twice.
package scheduler
