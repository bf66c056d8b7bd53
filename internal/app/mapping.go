package app

import (
	"fmt"
	"strings"
	"time"

	"taskbot/internal/ai"
	"taskbot/internal/config"
	"taskbot/internal/storage"
	"taskbot/internal/transport/telegram/adapter"
	logx "taskbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    lc.Telegram.Enabled,
			ChatID:     lc.Telegram.ChatID,
			MinLevel:   lc.Telegram.MinLevel,
			RatePerSec: lc.Telegram.RatePerSec,
		},
	}
}

func mapAdapterConfig(cfg *config.Config) (adapter.Config, error) {
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return adapter.Config{}, err
	}
	return adapter.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    poll,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		path := strings.TrimSpace(sc.Path)
		if path == "" {
			path = config.DefaultStoragePath
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	case "memory":
		return storage.Config{Driver: "memory"}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapCompletionConfig(cfg *config.Config) (ai.CompletionConfig, error) {
	cc := cfg.AI.Completion
	timeout, err := config.ParseDurationOrDefault("ai.completion.timeout", cc.Timeout, ai.DefaultCompletionTimeout)
	if err != nil {
		return ai.CompletionConfig{}, err
	}
	temp := ai.DefaultTemperature
	if cc.Temperature != nil {
		temp = *cc.Temperature
	}
	return ai.CompletionConfig{
		BaseURL:        cc.BaseURL,
		APIKey:         cc.APIKey,
		Model:          cc.Model,
		MaxTokens:      cc.MaxTokens,
		Temperature:    temp,
		Timeout:        timeout,
		MaxInputTokens: cc.MaxInputTokens,
	}, nil
}

func mapTranscriptionConfig(cfg *config.Config) (ai.TranscriptionConfig, error) {
	tc := cfg.AI.Transcription
	timeout, err := config.ParseDurationOrDefault("ai.transcription.timeout", tc.Timeout, ai.DefaultTranscriptionTimeout)
	if err != nil {
		return ai.TranscriptionConfig{}, err
	}
	return ai.TranscriptionConfig{
		BaseURL: tc.BaseURL,
		APIKey:  tc.APIKey,
		Model:   tc.Model,
		Timeout: timeout,
	}, nil
}

func digestSpec(cfg *config.Config) string {
	if s := strings.TrimSpace(cfg.Scheduler.DigestAt); s != "" {
		return s
	}
	return config.DefaultDigestAt
}

func language(cfg *config.Config) string {
	if s := strings.TrimSpace(cfg.AI.Transcription.Language); s != "" {
		return s
	}
	return config.DefaultLanguage
}
