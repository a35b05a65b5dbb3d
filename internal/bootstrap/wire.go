// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"

	"github.com/andrepadez/ostt/internal/audio"
	"github.com/andrepadez/ostt/internal/config"
	"github.com/andrepadez/ostt/internal/history"
	"github.com/andrepadez/ostt/internal/keywords"
	"github.com/andrepadez/ostt/internal/logging"
	"github.com/andrepadez/ostt/internal/secrets"
	"github.com/andrepadez/ostt/internal/transcribe"
	"github.com/andrepadez/ostt/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Log        *zap.Logger
	Recorder   *usecase.Recorder
	Dispatcher *transcribe.Dispatcher
	Secrets    *secrets.Store
	Keywords   *keywords.Manager
	History    *history.Store
	Clipboard  *SystemClipboard
	Notifier   *DesktopNotifier

	// CaptureErr is audio.ErrFFmpegNotFound when no capture backend was
	// located. Only recording needs the backend; other commands still
	// work, so Build succeeds and the record command surfaces this with
	// install guidance.
	CaptureErr error
}

// Build wires every dependency the interactive commands need.
func Build(ctx context.Context, configPath string) (Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return Services{}, err
	}

	log := logging.New(cfg.Logging.Path, cfg.Logging.Level)

	ffmpegPath, captureErr := audio.FindFFmpeg(cfg.Audio.FFmpegCommand)

	secretsDir, err := secrets.DefaultDir()
	if err != nil {
		return Services{}, err
	}
	secretStore, err := secrets.NewStore(secretsDir)
	if err != nil {
		return Services{}, err
	}

	keywordsDir, err := keywords.DefaultDir()
	if err != nil {
		return Services{}, err
	}

	historyStore, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return Services{}, fmt.Errorf("failed to open history store: %w", err)
	}

	var recorder *usecase.Recorder
	if captureErr == nil {
		recorder = usecase.NewRecorder(
			audio.NewFFMPEGCapture(ffmpegPath),
			usecase.RecorderConfig{
				SampleRate:   cfg.Audio.SampleRate,
				Channels:     cfg.Audio.Channels,
				InputFormat:  cfg.Audio.InputFormat,
				InputDevice:  cfg.Audio.InputDevice,
				FrameSize:    cfg.Recording.FrameSize,
				RingCapacity: cfg.Recording.RingCapacity,
				StopTimeout:  cfg.Recording.StopTimeout(),
				MinDuration:  cfg.Recording.MinDuration(),
			},
			log,
		)
	}

	dispatcher := transcribe.NewDispatcher(transcribe.DispatcherConfig{
		AttemptTimeout: cfg.Transcription.AttemptTimeout(),
		MaxRetries:     cfg.Transcription.MaxRetries,
		BackoffBase:    cfg.Transcription.BackoffBase(),
	}, log)

	return Services{
		Config:     cfg,
		Log:        log,
		Recorder:   recorder,
		Dispatcher: dispatcher,
		Secrets:    secretStore,
		Keywords:   keywords.NewManager(keywordsDir),
		History:    historyStore,
		Clipboard:  &SystemClipboard{},
		Notifier:   &DesktopNotifier{},
		CaptureErr: captureErr,
	}, nil
}

// Close releases held resources.
func (s Services) Close() {
	if s.History != nil {
		_ = s.History.Close()
	}
	if s.Log != nil {
		_ = s.Log.Sync()
	}
}

// SystemClipboard writes through the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) SetText(text string) error {
	return clipboard.WriteAll(text)
}

// DesktopNotifier raises best-effort desktop notifications.
type DesktopNotifier struct{}

func (DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}
