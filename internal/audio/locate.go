package audio

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrFFmpegNotFound is returned when no usable ffmpeg binary exists on the
// host. Recording cannot proceed, but callers must surface this to the user
// with install guidance instead of crashing.
var ErrFFmpegNotFound = errors.New(
	"ffmpeg not found: install it with your package manager " +
		"(apt install ffmpeg / brew install ffmpeg) or set OSTT_FFMPEG_COMMAND",
)

// wellKnownDirs are checked before falling back to PATH so that a capture
// backend is still found when ostt runs outside a login shell.
var wellKnownDirs = []string{
	"/usr/bin",
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/usr/local/opt/ffmpeg/bin",
}

// FindFFmpeg locates the ffmpeg executable. An explicit command (from
// config) wins; otherwise well-known install paths are tried in order,
// then the process search path.
func FindFFmpeg(command string) (string, error) {
	if command != "" && command != "ffmpeg" {
		if isExecutable(command) {
			return command, nil
		}
		if path, err := exec.LookPath(command); err == nil {
			return path, nil
		}
		return "", ErrFFmpegNotFound
	}

	for _, dir := range wellKnownDirs {
		candidate := filepath.Join(dir, "ffmpeg")
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}
	return "", ErrFFmpegNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
