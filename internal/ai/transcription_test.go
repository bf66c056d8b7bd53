package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	logx "taskbot/pkg/logx"
)

func TestTranscribeUploadsFile(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("language") != "ru" || r.FormValue("model") != DefaultTranscriptionModel {
			t.Errorf("unexpected form: %v", r.MultipartForm.Value)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			if string(b) != "OggS" {
				t.Errorf("file body = %q", b)
			}
		}
		_, _ = w.Write([]byte(`{"text":"  через час купить молоко \n"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "voice.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := NewTranscriptionClient(TranscriptionConfig{BaseURL: srv.URL, APIKey: "k"}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Transcribe(context.Background(), path, "ru")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "через час купить молоко" {
		t.Fatalf("got %q", got)
	}
}

func TestTranscribeEmptyIsValid(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "silence.ogg")
	_ = os.WriteFile(path, []byte{0}, 0o600)

	c, _ := NewTranscriptionClient(TranscriptionConfig{BaseURL: srv.URL, APIKey: "k"}, logx.Nop())
	got, err := c.Transcribe(context.Background(), path, "")
	if err != nil || got != "" {
		t.Fatalf("got (%q, %v), want empty transcript without error", got, err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	t.Parallel()
	c, _ := NewTranscriptionClient(TranscriptionConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k"}, logx.Nop())
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.ogg"), "ru")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestTranscribeProviderFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "v.ogg")
	_ = os.WriteFile(path, []byte{1}, 0o600)

	c, _ := NewTranscriptionClient(TranscriptionConfig{BaseURL: srv.URL, APIKey: "k"}, logx.Nop())
	_, err := c.Transcribe(context.Background(), path, "ru")
	var te *TransportError
	if !errors.As(err, &te) || te.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v, want TransportError 502", err)
	}
}
