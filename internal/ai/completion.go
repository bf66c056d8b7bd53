package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	logx "taskbot/pkg/logx"
)

const (
	DefaultCompletionBaseURL = "https://openrouter.ai/api/v1"
	DefaultCompletionModel   = "deepseek/deepseek-chat"
	DefaultMaxTokens         = 300
	DefaultTemperature       = 0.3
	DefaultCompletionTimeout = 30 * time.Second
)

// CompletionConfig configures the chat completion client.
type CompletionConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// MaxInputTokens clips the user text before sending. 0 disables clipping.
	MaxInputTokens int
}

// CompletionClient calls an OpenAI-compatible /chat/completions endpoint.
// It is safe for concurrent use.
type CompletionClient struct {
	cfg    CompletionConfig
	http   *http.Client
	log    logx.Logger
	budget *tokenBudget
}

func NewCompletionClient(cfg CompletionConfig, log logx.Logger) (*CompletionClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("completion client: %w", ErrMissingAPIKey)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultCompletionBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultCompletionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCompletionTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &CompletionClient{cfg: cfg, http: newHTTPClient(cfg.Timeout), log: log}
	if cfg.MaxInputTokens > 0 {
		c.budget = newTokenBudget(cfg.MaxInputTokens, log)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one instruction+user exchange and returns the raw model text.
func (c *CompletionClient) Complete(ctx context.Context, instruction, userText string) (string, error) {
	if c.budget != nil {
		userText = c.budget.clip(userText)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: userText},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.BaseURL, "/chat/completions"), bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Op: "completion", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "completion", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", statusError("completion", resp)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "completion", StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	c.log.Debug("completion ok", logx.String("model", c.cfg.Model), logx.Duration("took", time.Since(start)), logx.Int("choices", len(out.Choices)))

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil {
		return "", ErrEmptyResponse
	}
	content := *out.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
