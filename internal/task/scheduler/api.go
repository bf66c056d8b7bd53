package scheduler

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "taskbot/pkg/logx"
)

// Register installs a one-shot job, replacing any pending job with the same id.
// Before Start the job is held, not rejected, and armed by Start; only a
// stopped scheduler returns ErrNotRunning.
func (s *Service) Register(id string, fireAt time.Time, p Payload) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &RegistrationError{ID: id, Err: errors.New("id required")}
	}
	if fireAt.IsZero() {
		return &RegistrationError{ID: id, Err: errors.New("fire time required")}
	}

	s.mu.Lock()
	if s.state == stateStopped {
		s.mu.Unlock()
		return &RegistrationError{ID: id, Err: ErrNotRunning}
	}
	replaced := s.removeOnceLocked(id)
	s.seq++
	e := &onceEntry{id: id, at: fireAt, payload: p, ver: s.seq}
	s.once[id] = e
	if s.state == stateRunning {
		s.armLocked(e)
	}
	s.mu.Unlock()

	s.log.Debug("job registered", logx.String("id", id), logx.String("at", fireAt.In(s.loc).Format(time.DateTime)), logx.Bool("replaced", replaced))
	if replaced {
		s.publish(EventJobReplaced, map[string]any{"id": id, "kind": string(KindOnce)})
	}
	return nil
}

// RegisterRecurring installs a recurring job (daily "HH:MM" or a cron spec in
// the scheduler zone), replacing any job with the same id. Like Register, it
// holds jobs until Start and fails with ErrNotRunning only after Stop.
func (s *Service) RegisterRecurring(id, spec string, job Job) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &RegistrationError{ID: id, Err: errors.New("id required")}
	}
	if job == nil {
		return &RegistrationError{ID: id, Err: errors.New("job required")}
	}
	tr, err := ParseTrigger(spec)
	if err != nil {
		return &RegistrationError{ID: id, Err: err}
	}
	if _, err := s.parser.Parse(tr.Cron); err != nil {
		return &RegistrationError{ID: id, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateStopped {
		return &RegistrationError{ID: id, Err: ErrNotRunning}
	}
	replaced := s.removeRecurringLocked(id)
	d := &recurringDef{id: id, spec: tr.Cron, source: spec, job: job}
	s.recurring[id] = d
	if s.state == stateRunning {
		if err := s.addCronLocked(d); err != nil {
			delete(s.recurring, id)
			return &RegistrationError{ID: id, Err: err}
		}
	}

	args := []logx.Field{logx.String("id", id), logx.String("spec", tr.Cron), logx.Bool("replaced", replaced)}
	if next := s.previewNextRunsLocked(tr.Cron, 3); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("recurring registered", args...)
	return nil
}

// Cancel removes a pending one-shot or recurring job. It reports whether
// anything was removed.
func (s *Service) Cancel(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeOnceLocked(id)
	removed = s.removeRecurringLocked(id) || removed
	s.mu.Unlock()

	if removed {
		s.log.Debug("job cancelled", logx.String("id", id))
	}
	return removed
}

// Pending lists pending jobs ordered by next fire time.
func (s *Service) Pending() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Running:   s.state == stateRunning,
		Timezone:  s.loc.String(),
		Once:      len(s.once),
		Recurring: len(s.recurring),
		Jobs:      s.pendingLocked(),
	}
	if s.sup != nil && s.state == stateRunning {
		snap.InFlight = s.sup.Counters().Active
	}
	s.mu.Unlock()
	snap.Fired = s.fired.Load()
	snap.Failed = s.failed.Load()
	return snap
}

func (s *Service) pendingLocked() []JobInfo {
	out := make([]JobInfo, 0, len(s.once)+len(s.recurring))
	for _, e := range s.once {
		out = append(out, JobInfo{ID: e.id, Kind: KindOnce, FireAt: e.at, Payload: e.payload})
	}
	for _, d := range s.recurring {
		it := JobInfo{ID: d.id, Kind: KindRecurring, Spec: d.source}
		if s.c != nil && d.entryID != 0 {
			it.FireAt = s.c.Entry(d.entryID).Next
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Service) removeOnceLocked(id string) bool {
	e, ok := s.once[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		_ = e.timer.Stop()
	}
	delete(s.once, id)
	return true
}

func (s *Service) removeRecurringLocked(id string) bool {
	d, ok := s.recurring[id]
	if !ok {
		return false
	}
	if s.c != nil && d.entryID != 0 {
		s.c.Remove(d.entryID)
	}
	delete(s.recurring, id)
	return true
}

func (s *Service) addCronLocked(d *recurringDef) error {
	id, job := d.id, d.job
	eid, err := s.c.AddJob(d.spec, cron.FuncJob(func() {
		s.mu.Lock()
		if s.state != stateRunning {
			s.mu.Unlock()
			return
		}
		s.dispatchLocked(id, s.cfg.RecurringTimeout, job)
		s.mu.Unlock()
		s.publish(EventJobFired, map[string]any{"id": id, "kind": string(KindRecurring)})
	}))
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

// previewNextRunsLocked returns upcoming run times for a cron spec, for debug logs.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	t := time.Now().In(s.loc)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format(time.DateTime))
	}
	return b.String()
}
