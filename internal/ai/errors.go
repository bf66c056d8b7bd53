package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyResponse is returned when the completion capability answers without
// usable content.
var ErrEmptyResponse = errors.New("ai: empty response from model")

// ErrMissingAPIKey is returned by constructors when no credentials are configured.
var ErrMissingAPIKey = errors.New("ai: api key is not set")

// TransportError is a network, auth or protocol failure talking to a capability.
type TransportError struct {
	Op         string // "completion" | "transcription"
	StatusCode int    // 0 when no HTTP response was received
	Message    string // provider error message or a short body excerpt
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("ai ")
	b.WriteString(e.Op)
	b.WriteString(": transport error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimited reports whether the provider throttled the request.
func (e *TransportError) RateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "rate limit")
}

// NotFoundError is returned when the audio resource to transcribe does not exist.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string { return "ai transcription: audio file not found: " + e.Path }

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is (or wraps) a throttled TransportError.
func IsRateLimited(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.RateLimited()
}
