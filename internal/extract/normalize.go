package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"taskbot/internal/task"
)

const (
	keyTask     = "task"
	keyDatetime = "datetime"
)

var datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// Normalize turns raw model output into a validated draft.
//
// Naive datetimes are interpreted in loc (UTC when nil). Decoding is strict
// first; only on failure is the bounded repair pass applied.
func Normalize(raw string, loc *time.Location) (task.Draft, error) {
	if loc == nil {
		loc = time.UTC
	}

	body := stripFence(raw)
	v, err := decodeStrict(body)
	if err != nil {
		fixed, ok := repair(body)
		if !ok {
			return task.Draft{}, &MalformedResponseError{Raw: raw, Err: err}
		}
		v, err = decodeStrict(fixed)
		if err != nil {
			return task.Draft{}, &MalformedResponseError{Raw: raw, Err: err}
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return task.Draft{}, &SchemaError{Reason: fmt.Sprintf("expected object, got %s", kindOf(v))}
	}
	if err := checkKeys(obj); err != nil {
		return task.Draft{}, err
	}

	text, err := taskText(obj[keyTask])
	if err != nil {
		return task.Draft{}, err
	}
	due, err := dueAt(obj[keyDatetime], loc)
	if err != nil {
		return task.Draft{}, err
	}
	return task.Draft{Text: text, DueAt: due}, nil
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		// optional language tag: ```json
		s = strings.TrimLeftFunc(rest, unicode.IsLetter)
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeStrict(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

func checkKeys(obj map[string]any) error {
	for _, k := range []string{keyTask, keyDatetime} {
		if _, ok := obj[k]; !ok {
			return &SchemaError{Field: k, Reason: "missing"}
		}
	}
	if len(obj) == 2 {
		return nil
	}
	extra := make([]string, 0, len(obj))
	for k := range obj {
		if k != keyTask && k != keyDatetime {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return &SchemaError{Reason: "unexpected keys: " + strings.Join(extra, ", ")}
}

func taskText(v any) (string, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	default:
		return "", &SchemaError{Field: keyTask, Reason: "expected string, got " + kindOf(v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &SchemaError{Field: keyTask, Reason: "empty"}
	}
	return s, nil
}

// dueAt accepts null as "no time". Any string must match the layout exactly.
func dueAt(v any, loc *time.Location) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &SchemaError{Field: keyDatetime, Reason: "expected string or null, got " + kindOf(v)}
	}
	if !datetimeRe.MatchString(s) {
		return nil, &SchemaError{Field: keyDatetime, Reason: fmt.Sprintf("%q does not match YYYY-MM-DD HH:MM:SS", s)}
	}
	t, err := time.ParseInLocation(task.TimeLayout, s, loc)
	if err != nil {
		return nil, &SchemaError{Field: keyDatetime, Reason: err.Error()}
	}
	return &t, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
