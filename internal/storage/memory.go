package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskbot/internal/task"
)

// Memory is an in-process Store. The zero value is not usable; use NewMemory.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]task.Task
	users  map[int64]string
	closed bool
}

func NewMemory() *Memory {
	return &Memory{tasks: map[int64]task.Task{}, users: map[int64]string{}}
}

func (m *Memory) CreateTask(_ context.Context, recipientID int64, text string, dueAt *time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	m.nextID++
	t := task.Task{ID: m.nextID, RecipientID: recipientID, Text: text, CreatedAt: time.Now()}
	if dueAt != nil {
		at := *dueAt
		t.DueAt = &at
	}
	m.tasks[t.ID] = t
	return t.ID, nil
}

func (m *Memory) ListIncompleteScheduled(_ context.Context) ([]task.Task, error) {
	return m.filter(func(t task.Task) bool { return !t.Completed && t.DueAt != nil })
}

func (m *Memory) ListTasksInRange(_ context.Context, start, end time.Time) ([]task.Task, error) {
	return m.filter(func(t task.Task) bool {
		return !t.Completed && t.DueAt != nil && !t.DueAt.Before(start) && t.DueAt.Before(end)
	})
}

func (m *Memory) MarkCompleted(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if t, ok := m.tasks[id]; ok {
		t.Completed = true
		m.tasks[id] = t
	}
	return nil
}

func (m *Memory) ListUserTasks(_ context.Context, recipientID int64, includeCompleted bool) ([]task.Task, error) {
	return m.filter(func(t task.Task) bool {
		return t.RecipientID == recipientID && (includeCompleted || !t.Completed)
	})
}

func (m *Memory) UpsertUser(_ context.Context, id int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.users[id] = username
	return nil
}

// Task returns a copy of one task, for tests and diagnostics.
func (m *Memory) Task(id int64) (task.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	return t, ok
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// filter returns matching tasks ordered like the sqlite driver: due time
// ascending, backlog last, then id.
func (m *Memory) filter(keep func(task.Task) bool) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []task.Task
	for _, t := range m.tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueAt == nil && b.DueAt == nil:
		case a.DueAt == nil:
			return false
		case b.DueAt == nil:
			return true
		case !a.DueAt.Equal(*b.DueAt):
			return a.DueAt.Before(*b.DueAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}
