package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reOffset = regexp.MustCompile(`^(?i:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ParseLocation resolves a timezone setting to a fixed offset. Offsets
// ("+03:00", "UTC+3", "-0430") are used as is. An IANA name is accepted only
// when its offset does not change over the coming year, and is pinned to that
// offset. Empty means DefaultTimezone.
func ParseLocation(raw string) (*time.Location, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		s = DefaultTimezone
	}
	if strings.EqualFold(s, "UTC") || strings.EqualFold(s, "GMT") || s == "Z" {
		return time.UTC, nil
	}
	if m := reOffset.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[2])
		mins := 0
		if m[3] != "" {
			mins, _ = strconv.Atoi(m[3])
		}
		if h > 14 || mins > 59 {
			return nil, fmt.Errorf("invalid utc offset %q", raw)
		}
		off := h*3600 + mins*60
		if m[1] == "-" {
			off = -off
		}
		name := "UTC" + m[1] + strconv.Itoa(h)
		if mins != 0 {
			name = fmt.Sprintf("UTC%s%02d:%02d", m[1], h, mins)
		}
		return time.FixedZone(name, off), nil
	}
	loc, err := time.LoadLocation(s)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", raw, err)
	}
	return pinOffset(raw, loc, time.Now())
}

// pinOffset samples loc monthly for a year from now and fails on any shift.
func pinOffset(raw string, loc *time.Location, now time.Time) (*time.Location, error) {
	name, off := now.In(loc).Zone()
	for i := 1; i <= 12; i++ {
		if _, o := now.AddDate(0, i, 0).In(loc).Zone(); o != off {
			return nil, fmt.Errorf("timezone %q observes daylight saving; use a fixed offset such as %q", raw, formatOffset(off))
		}
	}
	return time.FixedZone(name, off), nil
}

func formatOffset(off int) string {
	sign := "+"
	if off < 0 {
		sign, off = "-", -off
	}
	return fmt.Sprintf("%s%02d:%02d", sign, off/3600, off%3600/60)
}
