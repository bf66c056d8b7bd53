package config

// Config is the on-disk configuration (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Secrets may be left empty and supplied through the environment
// (see applyEnv).
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	AI        AIConfig        `json:"ai"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Storage   StorageConfig   `json:"storage"`
	Access    AccessConfig    `json:"access"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	// SendRatePerSec throttles outbound messages (default 25).
	SendRatePerSec float64 `json:"send_rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards log lines to an operator chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type AIConfig struct {
	Completion    CompletionConfig    `json:"completion"`
	Transcription TranscriptionConfig `json:"transcription"`
}

// CompletionConfig configures the OpenAI-compatible chat completion endpoint.
//
// Defaults: base_url https://openrouter.ai/api/v1, model deepseek/deepseek-chat,
// max_tokens 300, temperature 0.3, timeout 30s, max_input_tokens 0 (off).
type CompletionConfig struct {
	BaseURL        string   `json:"base_url,omitempty"`
	APIKey         string   `json:"api_key,omitempty"`
	Model          string   `json:"model,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Timeout        string   `json:"timeout,omitempty"`
	MaxInputTokens int      `json:"max_input_tokens,omitempty"`
}

// TranscriptionConfig configures speech-to-text for voice messages. Voice
// messages are refused when no api key is available.
//
// Defaults: base_url https://api.openai.com/v1, model whisper-1, timeout 60s,
// language "ru".
type TranscriptionConfig struct {
	BaseURL  string `json:"base_url,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
	Model    string `json:"model,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
	Language string `json:"language,omitempty"`
}

// SchedulerConfig controls reminders and the daily digest.
//
// Timezone is either a fixed offset ("+03:00", "UTC+3") or an IANA name.
// Every naive datetime the bot handles is interpreted in this zone.
type SchedulerConfig struct {
	Timezone      string `json:"timezone,omitempty"`  // default "+03:00"
	DigestAt      string `json:"digest_at,omitempty"` // HH:MM or cron; default "08:00"
	DigestEnabled *bool  `json:"digest_enabled,omitempty"`
}

// StorageConfig controls the task store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/tasks.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"` // sqlite (default) | memory
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// AccessConfig restricts who may use the bot. An empty list allows everyone.
type AccessConfig struct {
	AllowedUserIDs []int64 `json:"allowed_user_ids,omitempty"`
}

const (
	DefaultTimezone    = "+03:00"
	DefaultDigestAt    = "08:00"
	DefaultStoragePath = "./data/tasks.db"
	DefaultLanguage    = "ru"
)

// DigestOn reports whether the daily digest is enabled (default true).
func (s SchedulerConfig) DigestOn() bool {
	return s.DigestEnabled == nil || *s.DigestEnabled
}
