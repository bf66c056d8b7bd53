package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "taskbot/pkg/logx"
)

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "db", "tasks.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	mem, err := Open(Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	t.Cleanup(func() {
		_ = sq.Close()
		_ = mem.Close()
	})
	return map[string]Store{"sqlite": sq, "memory": mem}
}

func at(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.FixedZone("UTC+3", 3*60*60))
	if err != nil {
		panic(err)
	}
	return &t
}

func TestStoreTaskLifecycle(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id1, err := st.CreateTask(ctx, 10, "позже", at("2025-03-05 18:00:00"))
			if err != nil {
				t.Fatal(err)
			}
			id2, _ := st.CreateTask(ctx, 10, "бэклог", nil)
			id3, _ := st.CreateTask(ctx, 10, "раньше", at("2025-03-05 09:00:00"))
			_, _ = st.CreateTask(ctx, 20, "чужая", at("2025-03-04 09:00:00"))
			if id1 == id2 || id2 == id3 {
				t.Fatalf("ids not unique: %d %d %d", id1, id2, id3)
			}

			got, err := st.ListUserTasks(ctx, 10, false)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 3 || got[0].ID != id3 || got[1].ID != id1 || got[2].ID != id2 {
				t.Fatalf("unexpected order: %+v", got)
			}
			if got[2].DueAt != nil {
				t.Fatalf("backlog task has due time %v", got[2].DueAt)
			}
			if !got[0].DueAt.Equal(*at("2025-03-05 09:00:00")) {
				t.Fatalf("due time not preserved: %v", got[0].DueAt)
			}

			if err := st.MarkCompleted(ctx, id3); err != nil {
				t.Fatal(err)
			}
			if err := st.MarkCompleted(ctx, id3); err != nil {
				t.Fatalf("second MarkCompleted: %v", err)
			}
			if err := st.MarkCompleted(ctx, 9999); err != nil {
				t.Fatalf("MarkCompleted on unknown id: %v", err)
			}

			open, _ := st.ListUserTasks(ctx, 10, false)
			all, _ := st.ListUserTasks(ctx, 10, true)
			if len(open) != 2 || len(all) != 3 {
				t.Fatalf("open=%d all=%d, want 2/3", len(open), len(all))
			}
			for _, tk := range all {
				if tk.ID == id3 && !tk.Completed {
					t.Fatal("completed flag not persisted")
				}
			}

			sched, err := st.ListIncompleteScheduled(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(sched) != 2 {
				t.Fatalf("scheduled = %+v, want the two open tasks with a time", sched)
			}
		})
	}
}

func TestStoreListTasksInRange(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, _ = st.CreateTask(ctx, 1, "до", at("2025-03-04 23:59:59"))
			a, _ := st.CreateTask(ctx, 1, "полночь", at("2025-03-05 00:00:00"))
			b, _ := st.CreateTask(ctx, 2, "вечер", at("2025-03-05 23:59:59"))
			_, _ = st.CreateTask(ctx, 1, "после", at("2025-03-06 00:00:00"))
			done, _ := st.CreateTask(ctx, 1, "сделано", at("2025-03-05 12:00:00"))
			_ = st.MarkCompleted(ctx, done)

			start := *at("2025-03-05 00:00:00")
			got, err := st.ListTasksInRange(ctx, start, start.Add(24*time.Hour))
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 2 || got[0].ID != a || got[1].ID != b {
				t.Fatalf("unexpected range result: %+v", got)
			}
		})
	}
}

func TestStoreUpsertUser(t *testing.T) {
	t.Parallel()
	for name, st := range openDrivers(t) {
		st := st
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.UpsertUser(ctx, 5, "old"); err != nil {
				t.Fatal(err)
			}
			if err := st.UpsertUser(ctx, 5, "new"); err != nil {
				t.Fatal(err)
			}
			if err := st.UpsertUser(ctx, 6, ""); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	st, err := Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	id, _ := st.CreateTask(ctx, 1, "пережить рестарт", at("2025-01-01 10:00:00"))
	_ = st.Close()

	st, err = Open(Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	got, err := st.ListIncompleteScheduled(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != id || got[0].Text != "пережить рестарт" {
		t.Fatalf("unexpected tasks after reopen: %+v", got)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
