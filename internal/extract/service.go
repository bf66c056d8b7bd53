// Package extract turns free-form user text into a validated task draft using
// a chat completion model.
package extract

import (
	"context"
	"time"

	"taskbot/internal/prompt"
	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

// Completer is the chat completion capability the service depends on.
type Completer interface {
	Complete(ctx context.Context, instruction, userText string) (string, error)
}

type Option func(*Service)

// WithClock overrides the time source used as the prompt anchor.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is stateless and safe for concurrent use.
type Service struct {
	completer Completer
	loc       *time.Location
	zone      string
	now       func() time.Time
	log       logx.Logger
}

func NewService(c Completer, loc *time.Location, log logx.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		completer: c,
		loc:       loc,
		zone:      prompt.ZoneLabel(loc),
		now:       time.Now,
		log:       log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Extract asks the model to interpret userText relative to the current time
// and normalizes the answer. Errors from the completer and from Normalize are
// returned unchanged.
func (s *Service) Extract(ctx context.Context, userText string) (task.Draft, error) {
	start := time.Now()
	now := s.now().In(s.loc)

	raw, err := s.completer.Complete(ctx, prompt.Build(now, s.zone), userText)
	if err != nil {
		return task.Draft{}, err
	}
	d, err := Normalize(raw, s.loc)
	if err != nil {
		s.log.Debug("extract rejected", logx.Duration("took", time.Since(start)), logx.Err(err))
		return task.Draft{}, err
	}
	s.log.Debug("extract ok", logx.Duration("took", time.Since(start)), logx.Bool("has_due", d.HasDue()))
	return d, nil
}
