package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Trigger is a parsed recurring schedule.
//
// Supported forms:
//   - daily HH:MM: "08:00" (in the scheduler zone)
//   - cron: "0 8 * * *", "*/5 * * * *", "0 0 8 * * *" (with seconds), "@daily", "@every 1h"
//
// The "cron:" prefix forces cron parsing.
type Trigger struct {
	Cron   string
	Source string // "daily" | "cron"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*$`)

// ParseTrigger normalizes raw into a cron expression. The expression is not
// validated here; the scheduler's cron parser does that.
func ParseTrigger(raw string) (Trigger, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Trigger{}, fmt.Errorf("schedule required")
	}
	if strings.HasPrefix(strings.ToLower(s), "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return Trigger{}, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return Trigger{Cron: expr, Source: "cron"}, nil
	}
	if reHHMM.MatchString(s) {
		h, m, err := parseHHMM(s)
		if err != nil {
			return Trigger{}, err
		}
		return Trigger{Cron: fmt.Sprintf("%d %d * * *", m, h), Source: "daily"}, nil
	}
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return Trigger{Cron: s, Source: "cron"}, nil
	}
	return Trigger{}, fmt.Errorf("invalid schedule %q (use HH:MM like '08:00' or cron like '0 8 * * *')", raw)
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
