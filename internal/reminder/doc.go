// Package reminder holds the scheduled job bodies: one-shot reminder
// delivery, the daily digest and startup reconciliation of the job table
// against the store.
package reminder
