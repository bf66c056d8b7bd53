package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Times are stored as unix milliseconds.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

const taskColumns = `id, recipient_id, text, due_at, completed, created_at`

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	log.Info("sqlite store opened", logx.String("path", path))
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) CreateTask(ctx context.Context, recipientID int64, text string, dueAt *time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(recipient_id, text, due_at, completed, created_at) VALUES(?,?,?,0,?)`,
		recipientID, text, nullTime(dueAt), time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) ListIncompleteScheduled(ctx context.Context) ([]task.Task, error) {
	return s.query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE completed = 0 AND due_at IS NOT NULL ORDER BY due_at, id`)
}

func (s *sqliteStore) ListTasksInRange(ctx context.Context, start, end time.Time) ([]task.Task, error) {
	return s.query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE completed = 0 AND due_at >= ? AND due_at < ?
		 ORDER BY due_at, id`,
		start.UnixMilli(), end.UnixMilli(),
	)
}

func (s *sqliteStore) MarkCompleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = 1 WHERE id = ? AND completed = 0`, id)
	if err != nil {
		return fmt.Errorf("mark completed %d: %w", id, err)
	}
	return nil
}

func (s *sqliteStore) ListUserTasks(ctx context.Context, recipientID int64, includeCompleted bool) ([]task.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE recipient_id = ?`
	if !includeCompleted {
		q += ` AND completed = 0`
	}
	q += ` ORDER BY due_at IS NULL, due_at, id`
	return s.query(ctx, q, recipientID)
}

func (s *sqliteStore) UpsertUser(ctx context.Context, id int64, username string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, created_at) VALUES(?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username=excluded.username`,
		id, nullStr(username), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", id, err)
	}
	return nil
}

func (s *sqliteStore) query(ctx context.Context, q string, args ...any) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		var (
			t         task.Task
			due       sql.NullInt64
			completed int
			created   int64
		)
		if err := rows.Scan(&t.ID, &t.RecipientID, &t.Text, &due, &completed, &created); err != nil {
			return nil, err
		}
		if due.Valid {
			at := time.UnixMilli(due.Int64)
			t.DueAt = &at
		}
		t.Completed = completed != 0
		t.CreatedAt = time.UnixMilli(created)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
