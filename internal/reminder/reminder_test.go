package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskbot/internal/storage"
	"taskbot/internal/task"
	"taskbot/internal/task/scheduler"
	logx "taskbot/pkg/logx"
)

var msk = time.FixedZone("UTC+3", 3*60*60)

func due(s string) *time.Time {
	t, err := time.ParseInLocation(task.TimeLayout, s, msk)
	if err != nil {
		panic(err)
	}
	return &t
}

type failingStore struct{ err error }

func (f failingStore) MarkCompleted(context.Context, int64) error { return f.err }

func TestDeliverSendsAndCompletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	id, _ := st.CreateTask(ctx, 42, "Купить молоко", due("2025-01-01 11:00:00"))
	snd := &fakeSender{}

	err := NewDeliverer(snd, st, logx.Nop()).Deliver(ctx, scheduler.Payload{RecipientID: 42, TaskID: id, Text: "Купить молоко"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	msgs := snd.messages()
	if len(msgs) != 1 || msgs[0].chatID != 42 || msgs[0].text != "⏰ Напоминание!\n\nКупить молоко" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if tk, _ := st.Task(id); !tk.Completed {
		t.Fatal("task not completed after delivery")
	}
}

func TestDeliverCompletesEvenWhenSendFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	id, _ := st.CreateTask(ctx, 7, "x", due("2025-01-01 11:00:00"))
	snd := &fakeSender{failTo: map[int64]bool{7: true}}

	if err := NewDeliverer(snd, st, logx.Nop()).Deliver(ctx, scheduler.Payload{RecipientID: 7, TaskID: id, Text: "x"}); err != nil {
		t.Fatalf("send failure must not surface: %v", err)
	}
	if tk, _ := st.Task(id); !tk.Completed {
		t.Fatal("task not completed after failed send")
	}
}

func TestDeliverMissingTaskIsNoop(t *testing.T) {
	t.Parallel()
	snd := &fakeSender{}
	if err := NewDeliverer(snd, storage.NewMemory(), logx.Nop()).Deliver(context.Background(), scheduler.Payload{RecipientID: 1, TaskID: 404, Text: "x"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliverReturnsStoreError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	err := NewDeliverer(&fakeSender{}, failingStore{err: boom}, logx.Nop()).Deliver(context.Background(), scheduler.Payload{TaskID: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestDigestGroupsTodayPerRecipient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_, _ = st.CreateTask(ctx, 1, "обед", due("2025-03-05 13:00:00"))
	_, _ = st.CreateTask(ctx, 1, "зарядка", due("2025-03-05 07:30:00"))
	_, _ = st.CreateTask(ctx, 1, "созвон", due("2025-03-05 10:00:00"))
	_, _ = st.CreateTask(ctx, 1, "ужин", due("2025-03-05 19:00:00"))
	_, _ = st.CreateTask(ctx, 1, "почта", due("2025-03-05 09:15:00"))
	done, _ := st.CreateTask(ctx, 1, "уже сделано", due("2025-03-05 08:00:00"))
	_ = st.MarkCompleted(ctx, done)
	_, _ = st.CreateTask(ctx, 1, "завтра", due("2025-03-06 09:00:00"))
	_, _ = st.CreateTask(ctx, 1, "бэклог", nil)

	snd := &fakeSender{}
	today := time.Date(2025, 3, 5, 8, 0, 0, 0, msk)
	if err := NewDigest(snd, st, msk, logx.Nop()).Run(ctx, today); err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := snd.messages()
	if len(msgs) != 1 || msgs[0].chatID != 1 {
		t.Fatalf("want one message to recipient 1, got %+v", msgs)
	}
	want := "📋 План на сегодня:\n\n" +
		"• 07:30 — зарядка\n" +
		"• 09:15 — почта\n" +
		"• 10:00 — созвон\n" +
		"• 13:00 — обед\n" +
		"• 19:00 — ужин\n"
	if msgs[0].text != want {
		t.Fatalf("digest =\n%s\nwant\n%s", msgs[0].text, want)
	}
}

func TestDigestSendFailureDoesNotStopOthers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_, _ = st.CreateTask(ctx, 1, "a", due("2025-03-05 10:00:00"))
	_, _ = st.CreateTask(ctx, 2, "b", due("2025-03-05 11:00:00"))
	_, _ = st.CreateTask(ctx, 3, "c", due("2025-03-05 12:00:00"))

	snd := &fakeSender{failTo: map[int64]bool{2: true}}
	if err := NewDigest(snd, st, msk, logx.Nop()).Run(ctx, time.Date(2025, 3, 5, 8, 0, 0, 0, msk)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := map[int64]bool{}
	for _, m := range snd.messages() {
		got[m.chatID] = true
	}
	if len(got) != 2 || !got[1] || !got[3] {
		t.Fatalf("recipients served = %v, want 1 and 3", got)
	}
}

func TestDigestUsesCalendarDayInZone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	_, _ = st.CreateTask(ctx, 1, "рано утром", due("2025-03-05 00:30:00"))

	snd := &fakeSender{}
	// 2025-03-04 21:45 UTC is already 2025-03-05 in UTC+3.
	if err := NewDigest(snd, st, msk, logx.Nop()).Run(ctx, time.Date(2025, 3, 4, 21, 45, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if msgs := snd.messages(); len(msgs) != 1 || !strings.Contains(msgs[0].text, "• 00:30 — рано утром") {
		t.Fatalf("unexpected digest %+v", msgs)
	}
}

func TestRenderDigestBacklogLast(t *testing.T) {
	t.Parallel()
	got := RenderDigest([]task.Task{
		{Text: "без времени"},
		{Text: "с временем", DueAt: due("2025-03-05 09:00:00")},
	}, msk)
	want := "📋 План на сегодня:\n\n• 09:00 — с временем\n• — — без времени\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRestartReconciliationFiresPastDueOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	past := time.Now().Add(-10 * time.Minute)
	future := time.Now().Add(time.Hour)
	overdue, _ := st.CreateTask(ctx, 5, "просрочено", &past)
	later, _ := st.CreateTask(ctx, 5, "позже", &future)
	_, _ = st.CreateTask(ctx, 5, "бэклог", nil)

	snd := &fakeSender{}
	d := NewDeliverer(snd, st, logx.Nop())
	sched := scheduler.New(scheduler.Config{Location: msk}, d.Deliver, logx.Nop(), nil)

	n, err := Reconcile(ctx, st, sched, logx.Nop())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if n != 2 {
		t.Fatalf("registered %d jobs, want 2", n)
	}
	sched.Start(ctx)
	defer func() {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = sched.Stop(sctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if tk, _ := st.Task(overdue); tk.Completed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("past-due task was not delivered after restart")
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	msgs := snd.messages()
	if len(msgs) != 1 || msgs[0].text != "⏰ Напоминание!\n\nпросрочено" {
		t.Fatalf("want exactly one reminder, got %+v", msgs)
	}
	pending := sched.Pending()
	if len(pending) != 1 || pending[0].ID != task.ReminderJobID(later) {
		t.Fatalf("pending = %+v, want only the future reminder", pending)
	}
}

func TestReconcileStopsOnRegistrationError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := storage.NewMemory()
	at := time.Now().Add(time.Hour)
	_, _ = st.CreateTask(ctx, 1, "a", &at)

	sched := scheduler.New(scheduler.Config{}, nil, logx.Nop(), nil)
	sched.Start(ctx)
	_ = sched.Stop(ctx)

	_, err := Reconcile(ctx, st, sched, logx.Nop())
	if !errors.Is(err, scheduler.ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
}
