package ports

import (
	"context"
	"io"
	"time"

	"github.com/andrepadez/ostt/internal/domain"
)

// CaptureConfig describes how the microphone should be captured and where
// the encoded recording is written.
type CaptureConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	OutputPath  string
}

// CaptureSession is a live capture child process. Read returns the raw
// s16le level stream; the encoded recording goes to OutputPath.
type CaptureSession interface {
	io.Reader
	// Finalize asks the backend to flush and close the output file,
	// waiting up to timeout for a clean exit.
	Finalize(timeout time.Duration) error
	// Kill terminates the backend immediately.
	Kill() error
	// Done is closed once the backend process has exited. A non-nil
	// value means the process exited abnormally.
	Done() <-chan error
}

// CaptureBackend spawns capture sessions.
type CaptureBackend interface {
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// Transcriber sends a finished recording to a provider and returns the
// normalized result or a classified *domain.TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, req domain.TranscriptionRequest) (domain.TranscriptionResult, error)
}

// SecretStore holds provider credentials and the global model selection.
type SecretStore interface {
	GetAPIKey(providerID string) (string, bool, error)
	SaveAPIKey(providerID, apiKey string) error
	ClearAPIKey(providerID string) error
	AuthorizedProviders() ([]string, error)
	SelectedModel() (string, bool, error)
	SaveSelectedModel(modelID string) error
}

// KeywordStore is the ordered bias-keyword list.
type KeywordStore interface {
	Load() ([]string, error)
	Add(keyword string) error
	Remove(index int) error
}

// HistorySink records successful transcripts.
type HistorySink interface {
	Append(ctx context.Context, rec domain.TranscriptRecord) error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(text string) error
}

// Notifier raises a best-effort desktop notification.
type Notifier interface {
	Notify(title, body string) error
}
