package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/andrepadez/ostt/internal/ports"
)

// ErrFinalizeTimeout is returned by Finalize when the backend did not exit
// cleanly within the allowed window and had to be killed. The output file
// may be truncated but is left on disk.
var ErrFinalizeTimeout = errors.New("capture backend did not finalize in time")

// pipeDrainDelay bounds how long cmd.Wait may keep draining the stderr
// pipe after the process exits. A wrapper command can fork a helper that
// inherits the pipe's write end and outlives the process; without the
// bound, Wait blocks until that helper exits too.
const pipeDrainDelay = 500 * time.Millisecond

// FFMPEGCapture records microphone audio using an ffmpeg child process.
// The process encodes to the configured output file while mirroring raw
// s16le PCM on stdout for level metering.
type FFMPEGCapture struct {
	command string
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("capture output path is required")
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-map", "0:a",
		"-f", "wav",
		"-y", cfg.OutputPath,
		"-map", "0:a",
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.WaitDelay = pipeDrainDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		waitErr <- err
		done <- err
		close(waitErr)
		close(done)
	}()

	// ffmpeg reports bad devices and bad arguments by exiting almost
	// immediately, so give it a moment before declaring the session live.
	select {
	case err := <-waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegSession{
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
		done:    done,
	}, nil
}

type ffmpegSession struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error
	done    <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) Done() <-chan error {
	return s.done
}

// Finalize signals ffmpeg to flush and close its outputs, then waits for
// a clean exit. On timeout the process is killed and ErrFinalizeTimeout
// is returned; whatever was written to the output file stays on disk.
func (s *ffmpegSession) Finalize(timeout time.Duration) error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		case <-time.After(timeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			s.reap()
			s.stopErr = ErrFinalizeTimeout
		}

		s.closeStdout()

		if s.stopErr != nil && !errors.Is(s.stopErr, ErrFinalizeTimeout) && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})

	return s.stopErr
}

// Kill terminates the backend without the finalize handshake.
func (s *ffmpegSession) Kill() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Kill()
		}
		s.reap()
		s.closeStdout()
	})
	return nil
}

// reap waits for Wait to return after a kill, bounded by pipeDrainDelay.
// Past the bound the reaper goroutine is left to finish on its own so a
// stop can never block on a pipe-holding helper.
func (s *ffmpegSession) reap() {
	select {
	case <-s.waitErr:
	case <-time.After(2 * pipeDrainDelay):
	}
}

func (s *ffmpegSession) closeStdout() {
	if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		if s.stopErr == nil {
			s.stopErr = closeErr
		}
	}
}

// ffmpeg exits non-zero when interrupted even after a clean flush, so an
// ExitError after a requested stop is not a failure. ErrWaitDelay only
// means a straggler held the pipes past the process's own exit.
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
