package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andrepadez/ostt/internal/ports"
)

func testCaptureConfig(t *testing.T) ports.CaptureConfig {
	t.Helper()
	return ports.CaptureConfig{OutputPath: filepath.Join(t.TempDir(), "out.wav")}
}

func TestFFMPEGCaptureStartReadAndFinalize(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh",
		"#!/usr/bin/env bash\ntrap 'exit 0' INT\nprintf 'hello'\nwhile :; do sleep 0.1; done\n")
	capture := NewFFMPEGCapture(script)

	session, err := capture.Start(context.Background(), testCaptureConfig(t))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Finalize(3 * time.Second); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, testCaptureConfig(t))
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFFMPEGCaptureFinalizeTimeoutIsBounded(t *testing.T) {
	t.Parallel()

	// The backend ignores the interrupt and forks a long-lived helper
	// that inherits the stderr pipe, so reaping must not wait for the
	// helper to exit.
	script := writeScript(t, "stuck.sh",
		"#!/usr/bin/env bash\ntrap '' INT\nprintf 'data'\nsleep 10\n")
	capture := NewFFMPEGCapture(script)

	session, err := capture.Start(context.Background(), testCaptureConfig(t))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	start := time.Now()
	err = session.Finalize(300 * time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrFinalizeTimeout) {
		t.Fatalf("expected ErrFinalizeTimeout, got %v", err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("finalize blocked %v past its timeout", elapsed)
	}
}

func TestFFMPEGCaptureKillIsBounded(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stuck.sh",
		"#!/usr/bin/env bash\ntrap '' INT TERM\nprintf 'data'\nsleep 10\n")
	capture := NewFFMPEGCapture(script)

	session, err := capture.Start(context.Background(), testCaptureConfig(t))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	start := time.Now()
	if err := session.Kill(); err != nil {
		t.Fatalf("kill failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("kill blocked %v", elapsed)
	}
}

func TestNormalizeExitErrIgnoresExitError(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeExitErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
