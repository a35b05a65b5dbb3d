package domain

import "time"

// SessionStatus models the lifecycle of one recording session.
type SessionStatus string

const (
	SessionIdle       SessionStatus = "idle"
	SessionCapturing  SessionStatus = "capturing"
	SessionFinalizing SessionStatus = "finalizing"
	SessionFinished   SessionStatus = "finished"
	SessionCancelled  SessionStatus = "cancelled"
	SessionFailed     SessionStatus = "failed"
)

// FailureReason provides a structured reason for a failed session.
type FailureReason string

const (
	FailureNone      FailureReason = ""
	FailureTruncated FailureReason = "truncated"
	FailureBackend   FailureReason = "backend_exited"
	FailureTooShort  FailureReason = "too_short"
	FailureEmpty     FailureReason = "empty_audio"
)

// AmplitudeSample is one normalized loudness value in [0,1].
// Samples are consumed append-only by the render loop, in arrival order.
type AmplitudeSample float64

// FinishedSession describes a recording that produced an audio file.
type FinishedSession struct {
	Path      string
	StartedAt time.Time
	Duration  time.Duration
	// Truncated is set when the capture backend did not finalize in time
	// and the file on disk may be missing the tail of the recording.
	Truncated bool
}

// FailureKind classifies transcription dispatch failures.
type FailureKind string

const (
	// FailureRejected covers credential and request errors; retrying
	// the same request cannot succeed.
	FailureRejected FailureKind = "rejected"
	// FailureTransient covers network errors, timeouts, rate limits and
	// server-side failures that may clear on retry.
	FailureTransient FailureKind = "transient"
)

// TranscriptionRequest carries everything needed for one dispatch.
// Constructed once per finished session; immutable.
type TranscriptionRequest struct {
	AudioPath string
	ModelID   string
	APIKey    string
	Keywords  []string
	Duration  time.Duration
}

// TranscriptionError is a classified dispatch failure.
type TranscriptionError struct {
	Kind      FailureKind
	Message   string
	Retryable bool
}

func (e *TranscriptionError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// TranscriptionResult is the normalized outcome of a successful dispatch.
type TranscriptionResult struct {
	Text      string
	Duration  time.Duration
	ModelUsed string
	// Retries counts dispatch attempts beyond the first.
	Retries int
}

// TranscriptRecord is what the history sink persists on success.
type TranscriptRecord struct {
	ID        string
	Text      string
	ModelID   string
	Duration  time.Duration
	CreatedAt time.Time
}
