// Package config resolves runtime configuration from an optional YAML
// file, environment overrides and sensible defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config stores runtime configuration for ostt.
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	Recording     RecordingConfig     `yaml:"recording"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	History       HistoryConfig       `yaml:"history"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type AudioConfig struct {
	FFmpegCommand string `yaml:"ffmpeg_command"`
	InputFormat   string `yaml:"input_format"`
	InputDevice   string `yaml:"input_device"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
}

type RecordingConfig struct {
	OutputDir     string `yaml:"output_dir"`
	StopTimeoutMS int    `yaml:"stop_timeout_ms"`
	MinDurationMS int    `yaml:"min_duration_ms"`
	RingCapacity  int    `yaml:"ring_capacity"`
	FrameSize     int    `yaml:"frame_size"`
	RenderTickMS  int    `yaml:"render_tick_ms"`
}

// StopTimeout bounds the graceful finalize handshake.
func (c RecordingConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMS) * time.Millisecond
}

// MinDuration is the shortest recording worth transcribing.
func (c RecordingConfig) MinDuration() time.Duration {
	return time.Duration(c.MinDurationMS) * time.Millisecond
}

// RenderTick is the UI redraw interval.
func (c RecordingConfig) RenderTick() time.Duration {
	return time.Duration(c.RenderTickMS) * time.Millisecond
}

type TranscriptionConfig struct {
	AttemptTimeoutMS int `yaml:"attempt_timeout_ms"`
	MaxRetries       int `yaml:"max_retries"`
	BackoffBaseMS    int `yaml:"backoff_base_ms"`
}

// AttemptTimeout bounds each individual dispatch request.
func (c TranscriptionConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutMS) * time.Millisecond
}

// BackoffBase is the delay before the first retry.
func (c TranscriptionConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DefaultPath is the conventional config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".config", "ostt", "config.yaml"), nil
}

// Load reads the config file at path (missing files are fine), applies
// OSTT_* environment overrides and fills defaults.
func Load(path string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	dataDir := filepath.Join(home, ".local", "share", "ostt")

	var cfg Config
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.Audio.FFmpegCommand = envOr("OSTT_FFMPEG_COMMAND", cfg.Audio.FFmpegCommand)
	cfg.Audio.InputFormat = envOr("OSTT_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOr("OSTT_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrInt("OSTT_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrInt("OSTT_CHANNELS", cfg.Audio.Channels)
	cfg.Recording.OutputDir = envOr("OSTT_OUTPUT_DIR", cfg.Recording.OutputDir)
	cfg.Transcription.MaxRetries = envOrInt("OSTT_MAX_RETRIES", cfg.Transcription.MaxRetries)
	cfg.History.Path = envOr("OSTT_HISTORY_DB", cfg.History.Path)
	cfg.Logging.Path = envOr("OSTT_LOG_FILE", cfg.Logging.Path)
	cfg.Logging.Level = envOr("OSTT_LOG_LEVEL", cfg.Logging.Level)

	if cfg.Audio.InputFormat == "" {
		cfg.Audio.InputFormat = "pulse"
	}
	if cfg.Audio.InputDevice == "" {
		cfg.Audio.InputDevice = "default"
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Recording.OutputDir == "" {
		cfg.Recording.OutputDir = filepath.Join(dataDir, "recordings")
	}
	if cfg.Recording.StopTimeoutMS <= 0 {
		cfg.Recording.StopTimeoutMS = 4000
	}
	if cfg.Recording.MinDurationMS <= 0 {
		cfg.Recording.MinDurationMS = 500
	}
	if cfg.Recording.RingCapacity <= 0 {
		cfg.Recording.RingCapacity = 256
	}
	if cfg.Recording.FrameSize <= 0 {
		// One amplitude sample per 100ms of s16le audio.
		cfg.Recording.FrameSize = cfg.Audio.SampleRate * cfg.Audio.Channels * 2 / 10
	}
	if cfg.Recording.RenderTickMS <= 0 {
		cfg.Recording.RenderTickMS = 50
	}
	if cfg.Transcription.AttemptTimeoutMS <= 0 {
		cfg.Transcription.AttemptTimeoutMS = 60000
	}
	if cfg.Transcription.MaxRetries <= 0 {
		cfg.Transcription.MaxRetries = 3
	}
	if cfg.Transcription.BackoffBaseMS <= 0 {
		cfg.Transcription.BackoffBaseMS = 500
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(dataDir, "history.db")
	}
	if cfg.Logging.Path == "" {
		cfg.Logging.Path = filepath.Join(dataDir, "ostt.log")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
