package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "taskbot/pkg/logx"
)

const (
	DefaultTranscriptionBaseURL = "https://api.openai.com/v1"
	DefaultTranscriptionModel   = "whisper-1"
	DefaultTranscriptionTimeout = 60 * time.Second
)

// TranscriptionConfig configures the speech-to-text client. Credentials and
// endpoint are independent from the completion client.
type TranscriptionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// TranscriptionClient calls an OpenAI-compatible /audio/transcriptions endpoint.
type TranscriptionClient struct {
	cfg  TranscriptionConfig
	http *http.Client
	log  logx.Logger
}

func NewTranscriptionClient(cfg TranscriptionConfig, log logx.Logger) (*TranscriptionClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("transcription client: %w", ErrMissingAPIKey)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultTranscriptionBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultTranscriptionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTranscriptionTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &TranscriptionClient{cfg: cfg, http: newHTTPClient(cfg.Timeout), log: log}, nil
}

// Transcribe uploads the audio file at path and returns the trimmed transcript.
// An empty transcript is a valid result.
func (c *TranscriptionClient) Transcribe(ctx context.Context, path, languageHint string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Path: path, Err: err}
		}
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	_ = mw.WriteField("model", c.cfg.Model)
	_ = mw.WriteField("response_format", "json")
	if lang := strings.TrimSpace(languageHint); lang != "" {
		_ = mw.WriteField("language", lang)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.BaseURL, "/audio/transcriptions"), &body)
	if err != nil {
		return "", &TransportError{Op: "transcription", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "transcription", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", statusError("transcription", resp)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "transcription", StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	text := strings.TrimSpace(out.Text)
	c.log.Debug("transcription ok", logx.Duration("took", time.Since(start)), logx.Int("chars", len(text)))
	return text, nil
}
