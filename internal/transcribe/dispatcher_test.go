package transcribe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrepadez/ostt/internal/domain"
)

func testAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFFfakeaudio"), 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return path
}

func testDispatcher(openaiURL, deepgramURL string) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		AttemptTimeout:   5 * time.Second,
		MaxRetries:       3,
		BackoffBase:      time.Millisecond,
		OpenAIEndpoint:   openaiURL,
		DeepgramEndpoint: deepgramURL,
	}, nil)
}

func TestDispatcherOpenAISuccess(t *testing.T) {
	t.Parallel()

	var gotAuth, gotModel, gotPrompt string
	var gotFile bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotPrompt = r.FormValue("prompt")
		_, _, err := r.FormFile("file")
		gotFile = err == nil
		w.Write([]byte(`{"text":" hello world "}`))
	}))
	defer server.Close()

	d := testDispatcher(server.URL, "")
	result, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "whisper",
		APIKey:    "sk-test",
		Keywords:  []string{"ostt", "ffmpeg"},
		Duration:  3 * time.Second,
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	if result.Text != "hello world" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.ModelUsed != "whisper" {
		t.Fatalf("unexpected model used %q", result.ModelUsed)
	}
	if result.Duration != 3*time.Second {
		t.Fatalf("duration not echoed back: %v", result.Duration)
	}
	if result.Retries != 0 {
		t.Fatalf("expected 0 retries, got %d", result.Retries)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Fatalf("wire model name %q, want whisper-1", gotModel)
	}
	if gotPrompt != "ostt, ffmpeg" {
		t.Fatalf("keywords not attached: %q", gotPrompt)
	}
	if !gotFile {
		t.Fatalf("audio file missing from multipart payload")
	}
}

func TestDispatcherDeepgramSuccess(t *testing.T) {
	t.Parallel()

	var gotAuth, gotModel string
	var gotKeywords []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotModel = r.URL.Query().Get("model")
		gotKeywords = r.URL.Query()["keyterm"]
		w.Write([]byte(`{
			"metadata": {"duration": 2.5},
			"results": {"channels": [{"alternatives": [{"transcript": "nova says hi"}]}]}
		}`))
	}))
	defer server.Close()

	d := testDispatcher("", server.URL)
	result, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "nova-3",
		APIKey:    "dg-test",
		Keywords:  []string{"nova"},
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	if result.Text != "nova says hi" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Duration != 2500*time.Millisecond {
		t.Fatalf("provider duration not used: %v", result.Duration)
	}
	if gotAuth != "Token dg-test" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotModel != "nova-3" {
		t.Fatalf("unexpected model param %q", gotModel)
	}
	if len(gotKeywords) != 1 || gotKeywords[0] != "nova" {
		t.Fatalf("keyterm not attached: %v", gotKeywords)
	}
}

func TestDispatcherRetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"text":"finally"}`))
	}))
	defer server.Close()

	d := testDispatcher(server.URL, "")
	result, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "gpt-4o-transcribe",
		APIKey:    "sk-test",
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}

	if result.Text != "finally" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Retries != 3 {
		t.Fatalf("expected exactly 3 retries, got %d", result.Retries)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls.Load())
	}
}

func TestDispatcherRejectedIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	d := testDispatcher(server.URL, "")
	_, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "whisper",
		APIKey:    "sk-bad",
	})

	var terr *domain.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if terr.Kind != domain.FailureRejected || terr.Retryable {
		t.Fatalf("expected non-retryable rejection, got %+v", terr)
	}
	if calls.Load() != 1 {
		t.Fatalf("rejected failure was retried %d times", calls.Load()-1)
	}
}

func TestDispatcherExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := testDispatcher(server.URL, "")
	_, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "whisper",
		APIKey:    "sk-test",
	})

	var terr *domain.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if terr.Kind != domain.FailureTransient {
		t.Fatalf("expected transient failure, got %s", terr.Kind)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 attempts (1 + 3 retries), got %d", calls.Load())
	}
}

func TestDispatcherRateLimitIsTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"text":"after backoff"}`))
	}))
	defer server.Close()

	d := testDispatcher(server.URL, "")
	result, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "whisper",
		APIKey:    "sk-test",
	})
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if result.Retries != 1 {
		t.Fatalf("expected 1 retry after rate limit, got %d", result.Retries)
	}
}

func TestDispatcherUnknownModelRejected(t *testing.T) {
	t.Parallel()

	d := testDispatcher("", "")
	_, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "imaginary-model",
		APIKey:    "sk-test",
	})

	var terr *domain.TranscriptionError
	if !errors.As(err, &terr) || terr.Kind != domain.FailureRejected {
		t.Fatalf("expected rejected failure for unknown model, got %v", err)
	}
}

func TestDispatcherMissingKeyRejected(t *testing.T) {
	t.Parallel()

	d := testDispatcher("", "")
	_, err := d.Transcribe(context.Background(), domain.TranscriptionRequest{
		AudioPath: testAudioFile(t),
		ModelID:   "whisper",
	})

	var terr *domain.TranscriptionError
	if !errors.As(err, &terr) || terr.Kind != domain.FailureRejected {
		t.Fatalf("expected rejected failure without a key, got %v", err)
	}
}
