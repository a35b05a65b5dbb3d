package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrepadez/ostt/internal/audio"
	"github.com/andrepadez/ostt/internal/domain"
	"github.com/andrepadez/ostt/internal/ports"
)

var (
	ErrAlreadyRecording = errors.New("a recording session is already active")
	ErrNoActiveSession  = errors.New("no active recording session")
	// ErrTooShort means the recording was stopped before it reached the
	// minimum viable duration and has been discarded.
	ErrTooShort = errors.New("recording too short to transcribe")
	// ErrEmptyRecording means the backend produced no audio data.
	ErrEmptyRecording = errors.New("recording produced no audio")
)

// RecorderConfig controls capture and finalize behavior.
type RecorderConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	// FrameSize is the s16le byte window reduced to one amplitude sample.
	FrameSize int
	// RingCapacity bounds the amplitude queue between capture and render.
	RingCapacity int
	// StopTimeout bounds the graceful finalize handshake.
	StopTimeout time.Duration
	// MinDuration is the shortest recording worth transcribing; stops
	// below it are discarded.
	MinDuration time.Duration
}

func (c *RecorderConfig) applyDefaults() {
	if c.FrameSize < 512 {
		c.FrameSize = 3200 // 100ms at 16kHz mono s16le
	}
	if c.RingCapacity <= 0 {
		c.RingCapacity = 256
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 4 * time.Second
	}
	if c.MinDuration <= 0 {
		c.MinDuration = 500 * time.Millisecond
	}
}

// Recorder owns at most one recording session at a time. The capture loop
// drains the backend's level stream into a bounded ring; the render loop
// polls Sample without ever blocking on the backend.
type Recorder struct {
	backend ports.CaptureBackend
	cfg     RecorderConfig
	log     *zap.Logger

	mu sync.Mutex
	// starting reserves the session slot while the backend is spawning,
	// before the session is installed.
	starting bool
	session  *recordingSession
}

type recordingSession struct {
	status     domain.SessionStatus
	reason     domain.FailureReason
	outputPath string
	startedAt  time.Time

	capture ports.CaptureSession
	cancel  context.CancelFunc
	levels  *levelRing
	// loopDone is closed when the capture loop has exited.
	loopDone chan struct{}
}

func NewRecorder(backend ports.CaptureBackend, cfg RecorderConfig, log *zap.Logger) *Recorder {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{backend: backend, cfg: cfg, log: log}
}

// Start spawns the capture backend writing to outputPath and begins the
// capture loop. Fails with ErrAlreadyRecording if a session is active.
func (r *Recorder) Start(ctx context.Context, outputPath string) error {
	r.mu.Lock()
	if r.starting || (r.session != nil && r.session.active()) {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.starting = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.starting = false
		r.mu.Unlock()
	}()

	sessionCtx, cancel := context.WithCancel(ctx)
	capture, err := r.backend.Start(sessionCtx, ports.CaptureConfig{
		SampleRate:  r.cfg.SampleRate,
		Channels:    r.cfg.Channels,
		InputFormat: r.cfg.InputFormat,
		InputDevice: r.cfg.InputDevice,
		OutputPath:  outputPath,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to spawn capture backend: %w", err)
	}

	session := &recordingSession{
		status:     domain.SessionCapturing,
		outputPath: outputPath,
		startedAt:  time.Now(),
		capture:    capture,
		cancel:     cancel,
		levels:     newLevelRing(r.cfg.RingCapacity),
		loopDone:   make(chan struct{}),
	}

	r.mu.Lock()
	r.session = session
	r.mu.Unlock()

	go r.captureLoop(session)

	r.log.Info("recording started", zap.String("output", outputPath))
	return nil
}

// Sample returns the next pending amplitude sample in arrival order, or
// false when none is available. Never blocks; called once per render tick.
func (r *Recorder) Sample() (domain.AmplitudeSample, bool) {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return 0, false
	}
	return session.levels.pop()
}

// Status reports the current session status, or SessionIdle when no
// session exists.
func (r *Recorder) Status() (domain.SessionStatus, domain.FailureReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return domain.SessionIdle, domain.FailureNone
	}
	return r.session.status, r.session.reason
}

// Elapsed is the wall-clock duration of the active session.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || !r.session.active() {
		return 0
	}
	return time.Since(r.session.startedAt)
}

// Stop finalizes the active session. On a clean finalize the session is
// Finished; if the backend does not exit within StopTimeout it is killed,
// the session is Failed with a truncation reason, and whatever audio made
// it to disk is still returned for best-effort recovery.
func (r *Recorder) Stop() (domain.FinishedSession, error) {
	r.mu.Lock()
	session := r.session
	if session == nil || session.status != domain.SessionCapturing {
		r.mu.Unlock()
		return domain.FinishedSession{}, ErrNoActiveSession
	}
	session.status = domain.SessionFinalizing
	r.mu.Unlock()

	duration := time.Since(session.startedAt)
	finalizeErr := session.capture.Finalize(r.cfg.StopTimeout)
	<-session.loopDone
	session.cancel()

	truncated := errors.Is(finalizeErr, audio.ErrFinalizeTimeout)

	size := fileSize(session.outputPath)

	switch {
	case truncated && size > 0:
		r.setOutcome(session, domain.SessionFailed, domain.FailureTruncated)
		r.log.Warn("capture backend unresponsive, keeping partial recording",
			zap.String("output", session.outputPath), zap.Int64("bytes", size))
		return domain.FinishedSession{
			Path:      session.outputPath,
			StartedAt: session.startedAt,
			Duration:  duration,
			Truncated: true,
		}, nil
	case truncated:
		r.setOutcome(session, domain.SessionFailed, domain.FailureTruncated)
		return domain.FinishedSession{}, fmt.Errorf("stop failed: %w", finalizeErr)
	case finalizeErr != nil:
		r.setOutcome(session, domain.SessionFailed, domain.FailureBackend)
		return domain.FinishedSession{}, fmt.Errorf("stop failed: %w", finalizeErr)
	case size == 0:
		r.setOutcome(session, domain.SessionFailed, domain.FailureEmpty)
		return domain.FinishedSession{}, ErrEmptyRecording
	case duration < r.cfg.MinDuration:
		_ = os.Remove(session.outputPath)
		r.setOutcome(session, domain.SessionFailed, domain.FailureTooShort)
		return domain.FinishedSession{}, ErrTooShort
	}

	r.setOutcome(session, domain.SessionFinished, domain.FailureNone)
	r.log.Info("recording finished",
		zap.String("output", session.outputPath),
		zap.Duration("duration", duration),
		zap.Int64("bytes", size))
	return domain.FinishedSession{
		Path:      session.outputPath,
		StartedAt: session.startedAt,
		Duration:  duration,
	}, nil
}

// Cancel force-terminates the backend, deletes the partial file and
// resets to Idle. Safe from any state; a no-op when nothing is active.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	session := r.session
	if session == nil || !session.active() {
		r.mu.Unlock()
		return
	}
	session.status = domain.SessionCancelled
	r.mu.Unlock()

	_ = session.capture.Kill()
	<-session.loopDone
	session.cancel()
	_ = os.Remove(session.outputPath)

	r.mu.Lock()
	if r.session == session {
		r.session = nil
	}
	r.mu.Unlock()

	r.log.Info("recording cancelled", zap.String("output", session.outputPath))
}

// captureLoop drains the backend level stream until it closes, reducing
// each frame window to one amplitude sample. An unexpected stream end
// while capturing marks the session failed but preserves partial output.
func (r *Recorder) captureLoop(session *recordingSession) {
	defer close(session.loopDone)

	frame := make([]byte, r.cfg.FrameSize)
	for {
		n, err := io.ReadFull(session.capture, frame)
		if n > 0 {
			session.levels.push(domain.AmplitudeSample(audio.FrameLevel(frame[:n])))
		}
		if err != nil {
			if !isStreamEnd(err) {
				r.log.Warn("capture stream error", zap.Error(err))
			}
			break
		}
	}

	r.mu.Lock()
	unexpected := session.status == domain.SessionCapturing
	r.mu.Unlock()

	var exitErr error
	if unexpected {
		// The stream ended while a session was supposed to be live; give
		// the reaper a moment to surface the exit error for the log.
		select {
		case exitErr = <-session.capture.Done():
		case <-time.After(250 * time.Millisecond):
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if session.status == domain.SessionCapturing {
		session.status = domain.SessionFailed
		session.reason = domain.FailureBackend
		r.log.Error("capture backend exited unexpectedly",
			zap.String("output", session.outputPath),
			zap.Error(exitErr))
	}
}

// setOutcome records the terminal status of a session. The session stays
// observable through Status until a new one starts or Cancel resets it.
func (r *Recorder) setOutcome(session *recordingSession, status domain.SessionStatus, reason domain.FailureReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.status = status
	session.reason = reason
}

func (s *recordingSession) active() bool {
	return s.status == domain.SessionCapturing || s.status == domain.SessionFinalizing
}

func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
