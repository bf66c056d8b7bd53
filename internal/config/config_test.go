package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  poll_timeout: 10s
logging:
  level: debug
  console: true
ai:
  completion:
    api_key: "sk-test"
    model: deepseek/deepseek-chat
    temperature: 0.3
scheduler:
  timezone: "+03:00"
  digest_at: "08:00"
storage:
  driver: memory
access:
  allowed_user_ids: [42, 43]
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func newTestManager(path string, env map[string]string) *ConfigManager {
	m := NewConfigManager(path)
	m.getenv = func(k string) string { return env[k] }
	return m
}

func TestLoadYAML(t *testing.T) {
	m := newTestManager(writeFile(t, "config.yaml", sampleYAML), nil)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.AI.Completion.APIKey != "sk-test" {
		t.Fatalf("secrets not decoded: %+v", cfg)
	}
	if cfg.AI.Completion.Temperature == nil || *cfg.AI.Completion.Temperature != 0.3 {
		t.Fatalf("temperature=%v", cfg.AI.Completion.Temperature)
	}
	if got := cfg.Access.AllowedUserIDs; len(got) != 2 || got[0] != 42 {
		t.Fatalf("allowed=%v", got)
	}
	if !cfg.Scheduler.DigestOn() {
		t.Fatalf("digest should default to on")
	}
	if m.Get() != cfg {
		t.Fatalf("Load must commit the config")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	m := newTestManager(writeFile(t, "config.json", `{"telegram":{"token":"x"},"bogus":1}`), nil)
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("want unknown field error, got %v", err)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := newTestManager(writeFile(t, "config.json", `{} {}`), nil)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("want trailing data error")
	}
}

func TestEnvFillsEmptySecrets(t *testing.T) {
	env := map[string]string{
		EnvBotToken:       "env-token",
		EnvAIKey:          "env-key",
		EnvOpenAIKey:      "env-openai",
		EnvAllowedUserIDs: "7, 8",
	}
	m := newTestManager(writeFile(t, "config.json", `{"ai":{"completion":{"api_key":"file-key"}}}`), env)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token=%q", cfg.Telegram.Token)
	}
	if cfg.AI.Completion.APIKey != "file-key" {
		t.Fatalf("file value must win, got %q", cfg.AI.Completion.APIKey)
	}
	if cfg.AI.Transcription.APIKey != "env-openai" {
		t.Fatalf("transcription key=%q", cfg.AI.Transcription.APIKey)
	}
	if got := cfg.Access.AllowedUserIDs; len(got) != 2 || got[1] != 8 {
		t.Fatalf("allowed=%v", got)
	}
}

func TestEnvBadUserList(t *testing.T) {
	m := newTestManager(writeFile(t, "config.json", `{}`), map[string]string{EnvAllowedUserIDs: "1,x"})
	if _, err := m.Parse(); err == nil {
		t.Fatalf("want error for bad id list")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t"},
			AI:       AIConfig{Completion: CompletionConfig{APIKey: "k"}},
		}
	}
	if err := Validate(base()); err != nil {
		t.Fatalf("minimal config: %v", err)
	}

	cases := map[string]func(*Config){
		"token":     func(c *Config) { c.Telegram.Token = "" },
		"api_key":   func(c *Config) { c.AI.Completion.APIKey = " " },
		"timezone":  func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
		"digest_at": func(c *Config) { c.Scheduler.DigestAt = "25:00" },
		"timeout":   func(c *Config) { c.AI.Completion.Timeout = "soon" },
		"driver":    func(c *Config) { c.Storage.Driver = "postgres" },
		"level":     func(c *Config) { c.Logging.Level = "loud" },
		"log chat":  func(c *Config) { c.Logging.Telegram.Enabled = true },
		"temperature": func(c *Config) {
			v := 3.0
			c.AI.Completion.Temperature = &v
		},
	}
	for name, mutate := range cases {
		c := base()
		mutate(c)
		if err := Validate(c); err == nil {
			t.Errorf("%s: want validation error", name)
		}
	}

	off := false
	c := base()
	c.Scheduler.DigestEnabled = &off
	c.Scheduler.DigestAt = "garbage"
	if err := Validate(c); err != nil {
		t.Fatalf("disabled digest should skip digest_at: %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	ref := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in     string
		offset int
		name   string
	}{
		{"", 3 * 3600, "UTC+3"},
		{"+03:00", 3 * 3600, "UTC+3"},
		{"UTC+3", 3 * 3600, "UTC+3"},
		{"-0430", -(4*3600 + 30*60), "UTC-04:30"},
		{"UTC", 0, "UTC"},
	}
	for _, tc := range cases {
		loc, err := ParseLocation(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		name, off := ref.In(loc).Zone()
		if off != tc.offset || name != tc.name {
			t.Errorf("%q: got %s/%d want %s/%d", tc.in, name, off, tc.name, tc.offset)
		}
	}
	if _, err := ParseLocation("+15:00"); err == nil {
		t.Errorf("want error for out of range offset")
	}
	if _, err := ParseLocation("Nowhere/City"); err == nil {
		t.Errorf("want error for unknown zone")
	}
}

func TestParseLocationRejectsDaylightSaving(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	if _, err := pinOffset("Europe/Berlin", berlin, now); err == nil {
		t.Fatal("want error for zone with daylight saving")
	}

	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	loc, err := pinOffset("Europe/Moscow", moscow, now)
	if err != nil {
		t.Fatalf("pinOffset: %v", err)
	}
	summer := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if _, off := summer.In(loc).Zone(); off != 3*3600 {
		t.Fatalf("offset = %d, want %d", off, 3*3600)
	}
	if loc.String() == "Europe/Moscow" {
		t.Fatalf("location not pinned to a fixed zone")
	}
}

func TestFormatOffset(t *testing.T) {
	for off, want := range map[int]string{
		3 * 3600:          "+03:00",
		-(4*3600 + 30*60): "-04:30",
		0:                 "+00:00",
		5*3600 + 45*60:    "+05:45",
	} {
		if got := formatOffset(off); got != want {
			t.Errorf("formatOffset(%d) = %q, want %q", off, got, want)
		}
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	a := &Config{Telegram: TelegramConfig{Token: "secret-1"}}
	b := *a
	b.Telegram.Token = "secret-2"
	b.Logging.Level = "debug"
	b.Access.AllowedUserIDs = []int64{1}

	changed, attrs := SummarizeConfigChange(a, &b)
	want := []string{"access", "logging", "telegram"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Fatalf("changed=%v want %v", changed, want)
	}
	if len(attrs) == 0 {
		t.Fatalf("expected attrs")
	}
	if got := RestartRequired(changed); len(got) != 1 || got[0] != "telegram" {
		t.Fatalf("restart required=%v", got)
	}

	if changed, _ := SummarizeConfigChange(a, a); len(changed) != 0 {
		t.Fatalf("identical configs reported %v", changed)
	}
}

func TestPublishKeepsNewest(t *testing.T) {
	m := NewConfigManager("unused.json")
	ch := m.Subscribe(1)
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	if got := <-ch; got != second {
		t.Fatalf("slow subscriber should receive newest config")
	}
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "config.json", `{"telegram":{"token":"a"},"ai":{"completion":{"api_key":"k"}}}`)
	m := newTestManager(path, nil)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	ch := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"b"},"ai":{"completion":{"api_key":"k"}}}`), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Telegram.Token != "b" {
			t.Fatalf("token=%q", cfg.Telegram.Token)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("no reload published")
	}

	cancel()
	<-done
}
