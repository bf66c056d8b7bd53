package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskbot/internal/task"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

const digestHeader = "📋 План на сегодня:\n\n"

// RangeLister lists incomplete tasks due in [start, end).
type RangeLister interface {
	ListTasksInRange(ctx context.Context, start, end time.Time) ([]task.Task, error)
}

// Digest sends each recipient the list of their incomplete tasks due today.
type Digest struct {
	sender transport.Sender
	store  RangeLister
	loc    *time.Location
	now    func() time.Time
	log    logx.Logger
}

func NewDigest(sender transport.Sender, store RangeLister, loc *time.Location, log logx.Logger) *Digest {
	if loc == nil {
		loc = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Digest{sender: sender, store: store, loc: loc, now: time.Now, log: log}
}

// Job adapts the digest to a recurring scheduler job running for the current day.
func (d *Digest) Job(ctx context.Context) error {
	return d.Run(ctx, d.now())
}

// Run sends one message per recipient that has incomplete tasks due on the
// calendar day of today (in the digest zone). A failed send is logged and the
// remaining recipients are still served.
func (d *Digest) Run(ctx context.Context, today time.Time) error {
	start := startOfDay(today.In(d.loc))
	tasks, err := d.store.ListTasksInRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("digest: list tasks: %w", err)
	}

	byRecipient := map[int64][]task.Task{}
	var order []int64
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if _, ok := byRecipient[t.RecipientID]; !ok {
			order = append(order, t.RecipientID)
		}
		byRecipient[t.RecipientID] = append(byRecipient[t.RecipientID], t)
	}

	sent, failed := 0, 0
	for _, rid := range order {
		msg := RenderDigest(byRecipient[rid], d.loc)
		if _, err := d.sender.SendText(ctx, transport.ChatTarget{ChatID: rid}, msg, nil); err != nil {
			failed++
			d.log.Warn("digest send failed", logx.Int64("recipient", rid), logx.Err(err))
			continue
		}
		sent++
	}
	d.log.Info("digest done",
		logx.String("day", start.Format(time.DateOnly)),
		logx.Int("tasks", len(tasks)),
		logx.Int("sent", sent),
		logx.Int("failed", failed),
	)
	return nil
}

// RenderDigest renders one recipient's digest. Tasks are ordered by due time;
// tasks without one go last and render "—" in place of the time.
func RenderDigest(tasks []task.Task, loc *time.Location) string {
	sorted := append([]task.Task(nil), tasks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DueAt, sorted[j].DueAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})

	var b strings.Builder
	b.WriteString(digestHeader)
	for _, t := range sorted {
		hm := "—"
		if t.DueAt != nil {
			hm = t.DueAt.In(loc).Format("15:04")
		}
		fmt.Fprintf(&b, "• %s — %s\n", hm, t.Text)
	}
	return b.String()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
