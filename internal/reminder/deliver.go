package reminder

import (
	"context"
	"fmt"
	"time"

	"taskbot/internal/task/scheduler"
	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

const reminderHeader = "⏰ Напоминание!\n\n"

// markTimeout bounds MarkCompleted when the delivery context is already spent.
const markTimeout = 5 * time.Second

// Completer marks a task as done.
type Completer interface {
	MarkCompleted(ctx context.Context, id int64) error
}

// Deliverer sends a fired reminder and completes its task.
type Deliverer struct {
	sender transport.Sender
	store  Completer
	log    logx.Logger
}

func NewDeliverer(sender transport.Sender, store Completer, log logx.Logger) *Deliverer {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Deliverer{sender: sender, store: store, log: log}
}

// Deliver sends the reminder text and then marks the task completed whether or
// not the send succeeded. A failed send is logged; only a store failure is
// returned. There is no transaction between the two steps.
func (d *Deliverer) Deliver(ctx context.Context, p scheduler.Payload) error {
	log := d.log.With(logx.Int64("task_id", p.TaskID), logx.Int64("recipient", p.RecipientID))

	_, err := d.sender.SendText(ctx, transport.ChatTarget{ChatID: p.RecipientID}, reminderHeader+p.Text, nil)
	if err != nil {
		log.Warn("reminder send failed", logx.Err(err))
	} else {
		log.Info("reminder sent")
	}

	mctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
		defer cancel()
	}
	if err := d.store.MarkCompleted(mctx, p.TaskID); err != nil {
		return fmt.Errorf("complete task %d: %w", p.TaskID, err)
	}
	return nil
}
