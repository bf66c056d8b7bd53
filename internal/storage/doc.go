// Package storage is the durable record store for users and tasks.
//
// Drivers:
//   - "sqlite": SQLite database file (modernc.org/sqlite, pure Go)
//   - "memory": process-local maps, for tests and throwaway runs
package storage
