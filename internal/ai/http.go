package ai

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultDialTimeout         = 10 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultIdleConnTimeout     = 90 * time.Second
)

// newHTTPClient builds a client with explicit dial/TLS timeouts and an overall
// request timeout, so one slow provider call cannot hold a worker forever.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: defaultTLSHandshakeTimeout,
			IdleConnTimeout:     defaultIdleConnTimeout,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			ForceAttemptHTTP2:   true,
		},
	}
}

// apiError is the OpenAI-style error envelope.
type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// statusError converts a non-2xx response into a TransportError, preferring
// the provider's error message over the raw body.
func statusError(op string, resp *http.Response) *TransportError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(body))
	var env apiError
	if json.Unmarshal(body, &env) == nil && env.Error != nil && env.Error.Message != "" {
		msg = env.Error.Message
	}
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}

func joinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}
