package extract

import (
	"errors"
	"testing"
	"time"
)

var msk = time.FixedZone("UTC+3", 3*60*60)

func TestNormalizeWellFormed(t *testing.T) {
	t.Parallel()
	d, err := Normalize(`{"task": "Купить хлеба", "datetime": "2025-12-30 09:00:00"}`, msk)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d.Text != "Купить хлеба" {
		t.Fatalf("text = %q", d.Text)
	}
	want := time.Date(2025, 12, 30, 9, 0, 0, 0, msk)
	if d.DueAt == nil || !d.DueAt.Equal(want) {
		t.Fatalf("due = %v, want %v", d.DueAt, want)
	}
}

func TestNormalizeNullDatetime(t *testing.T) {
	t.Parallel()
	d, err := Normalize(`{"task": "Позвонить маме", "datetime": null}`, msk)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d.HasDue() {
		t.Fatalf("unexpected due %v", d.DueAt)
	}
}

func TestNormalizeKeepsTaskTextVerbatim(t *testing.T) {
	t.Parallel()
	d, err := Normalize(`{"task": " Купить хлеба ", "datetime": null}`, msk)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d.Text != " Купить хлеба " {
		t.Fatalf("text = %q, want %q", d.Text, " Купить хлеба ")
	}
}

func TestNormalizeRepairs(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		raw  string
		text string
		due  bool
	}{
		{"fence", "```json\n{\"task\": \"x\", \"datetime\": null}\n```", "x", false},
		{"bare fence", "```{\"task\": \"x\", \"datetime\": null}```", "x", false},
		{"trailing comma", `{"task": "x", "datetime": null,}`, "x", false},
		{"missing brace", `{"task": "x", "datetime": "2025-01-01 10:00:00"`, "x", true},
		{"missing quote and brace", `{"task": "x", "datetime": "2025-01-01 10:00:00`, "x", true},
		{"surplus closer", `{"task": "x", "datetime": null}}`, "x", false},
		{"leading prose", `Вот ответ: {"task": "x", "datetime": null}`, "x", false},
		{"single quotes", `{'task': 'x', 'datetime': None}`, "x", false},
		{"unquoted keys", `{task: "x", datetime: null}`, "x", false},
		{"inner quotes", `{"task": "прочитать "Войну и мир"", "datetime": null}`, `прочитать "Войну и мир"`, false},
		{"raw newline", "{\"task\": \"x\ny\", \"datetime\": null,}", "x\ny", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := Normalize(tc.raw, msk)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if d.Text != tc.text || d.HasDue() != tc.due {
				t.Fatalf("got %+v, want text=%q due=%v", d, tc.text, tc.due)
			}
		})
	}
}

func TestNormalizeMalformedKeepsRaw(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"Не могу разобрать задачу",
		`{"task": "x", "datetime":`,
		"",
	} {
		_, err := Normalize(raw, msk)
		var me *MalformedResponseError
		if !errors.As(err, &me) {
			t.Fatalf("Normalize(%q) err = %v, want MalformedResponseError", raw, err)
		}
		if me.Raw != raw {
			t.Fatalf("raw = %q, want %q", me.Raw, raw)
		}
	}
}

func TestNormalizeSchema(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"missing datetime": `{"task": "x"}`,
		"missing task":     `{"datetime": null}`,
		"extra key":        `{"task": "x", "datetime": null, "priority": 1}`,
		"array":            `["x", null]`,
		"empty task":       `{"task": "   ", "datetime": null}`,
		"null task":        `{"task": null, "datetime": null}`,
		"object task":      `{"task": {"a": 1}, "datetime": null}`,
		"iso datetime":     `{"task": "x", "datetime": "2025-01-01T10:00:00"}`,
		"no seconds":       `{"task": "x", "datetime": "2025-01-01 10:00"}`,
		"impossible date":  `{"task": "x", "datetime": "2025-02-30 10:00:00"}`,
		"number datetime":  `{"task": "x", "datetime": 20250101}`,
		"empty datetime":   `{"task": "x", "datetime": ""}`,
		"padded datetime":  `{"task": "x", "datetime": " 2025-01-01 10:00:00 "}`,
	}
	for name, raw := range cases {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Normalize(raw, msk)
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want SchemaError", err)
			}
		})
	}
}

func TestNormalizeStringifiesScalarTask(t *testing.T) {
	t.Parallel()
	d, err := Normalize(`{"task": 42, "datetime": null}`, msk)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if d.Text != "42" {
		t.Fatalf("text = %q", d.Text)
	}
}

func TestRepairRejectsNonJSON(t *testing.T) {
	t.Parallel()
	if _, ok := repair("просто текст"); ok {
		t.Fatal("repair accepted input without a JSON container")
	}
	if got, ok := repair(`{"a": [1, 2,], }`); !ok || got != `{"a": [1, 2]}` {
		t.Fatalf("repair = %q, %v", got, ok)
	}
}
