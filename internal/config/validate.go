package config

import (
	"errors"
	"fmt"
	"strings"

	"taskbot/internal/task/scheduler"
)

// Validate checks a parsed config. Secrets must be present after the
// environment overlay.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add("telegram.token: required (or set %s)", EnvBotToken)
	}
	if cfg.Telegram.SendRatePerSec < 0 {
		add("telegram.send_rate_per_sec: must be >= 0")
	}
	if strings.TrimSpace(cfg.AI.Completion.APIKey) == "" {
		add("ai.completion.api_key: required (or set %s)", EnvAIKey)
	}
	if t := cfg.AI.Completion.Temperature; t != nil && (*t < 0 || *t > 2) {
		add("ai.completion.temperature: must be within [0, 2]")
	}
	if cfg.AI.Completion.MaxTokens < 0 || cfg.AI.Completion.MaxInputTokens < 0 {
		add("ai.completion: token limits must be >= 0")
	}

	durations := map[string]string{
		"telegram.poll_timeout":    cfg.Telegram.PollTimeout,
		"ai.completion.timeout":    cfg.AI.Completion.Timeout,
		"ai.transcription.timeout": cfg.AI.Transcription.Timeout,
		"storage.busy_timeout":     cfg.Storage.BusyTimeout,
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := ParseLocation(cfg.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}
	if cfg.Scheduler.DigestOn() {
		if _, err := scheduler.ParseTrigger(cfg.Scheduler.DigestAt); err != nil && strings.TrimSpace(cfg.Scheduler.DigestAt) != "" {
			errs = append(errs, fmt.Errorf("scheduler.digest_at: %w", err))
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "sqlite", "sqlite3", "memory":
	default:
		add("storage.driver: unknown driver %q", cfg.Storage.Driver)
	}

	if !knownLevel(cfg.Logging.Level) {
		add("logging.level: unknown level %q", cfg.Logging.Level)
	}
	if lt := cfg.Logging.Telegram; lt.Enabled {
		if lt.ChatID == 0 {
			add("logging.telegram.chat_id: required when enabled")
		}
		if !knownLevel(lt.MinLevel) {
			add("logging.telegram.min_level: unknown level %q", lt.MinLevel)
		}
	}
	return errors.Join(errs...)
}

func knownLevel(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		return true
	}
	return false
}
