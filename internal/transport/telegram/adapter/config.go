package adapter

import "time"

// Config configures the Telegram adapter.
type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout; default 10s

	// Outbound sends are throttled to stay under Telegram's flood limits.
	SendRatePerSec float64 // default 25
	SendBurst      int     // default 5

	// Offline builds the bot without contacting Telegram (no getMe). Used in tests.
	Offline bool
}

const (
	defaultPollTimeout = 10 * time.Second
	defaultSendRate    = 25
	defaultSendBurst   = 5
)
