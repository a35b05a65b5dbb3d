package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/andrepadez/ostt/internal/domain"
	"github.com/andrepadez/ostt/internal/ports"
	"github.com/andrepadez/ostt/internal/transcribe"
	"github.com/andrepadez/ostt/internal/usecase"
)

// controllerState models the recording screen's control loop.
type controllerState string

const (
	stateIdle         controllerState = "idle"
	stateRecording    controllerState = "recording"
	stateCancelling   controllerState = "cancelling"
	stateStopping     controllerState = "stopping"
	stateTranscribing controllerState = "transcribing"
	stateSucceeded    controllerState = "succeeded"
	stateFailed       controllerState = "failed"
)

// recorderAPI is the slice of the recorder the screen drives.
type recorderAPI interface {
	Start(ctx context.Context, outputPath string) error
	Sample() (domain.AmplitudeSample, bool)
	Status() (domain.SessionStatus, domain.FailureReason)
	Elapsed() time.Duration
	Stop() (domain.FinishedSession, error)
	Cancel()
}

type (
	tickMsg         time.Time
	cancelDoneMsg   struct{}
	stopDoneMsg     struct {
		session domain.FinishedSession
		err     error
	}
	dispatchDoneMsg struct {
		result domain.TranscriptionResult
		err    error
	}
)

// RecordOptions configures the recording screen.
type RecordOptions struct {
	OutputDir  string
	RenderTick time.Duration
}

// RecordModel is the interactive recording screen: a single cooperative
// event loop consuming key events, render ticks and async command
// results. All blocking work (stop handshake, cancel, network dispatch)
// runs in commands, never on the tick.
type RecordModel struct {
	recorder    recorderAPI
	transcriber ports.Transcriber
	secrets     ports.SecretStore
	keywords    ports.KeywordStore
	history     ports.HistorySink
	clipboard   ports.Clipboard
	notifier    ports.Notifier
	log         *zap.Logger
	opts        RecordOptions

	ctx     context.Context
	state   controllerState
	wave    *waveform
	elapsed time.Duration
	session domain.FinishedSession
	result  domain.TranscriptionResult

	banner    string
	bannerErr bool

	width    int
	quitting bool
}

func NewRecordModel(
	recorder recorderAPI,
	transcriber ports.Transcriber,
	secrets ports.SecretStore,
	keywords ports.KeywordStore,
	history ports.HistorySink,
	clipboard ports.Clipboard,
	notifier ports.Notifier,
	log *zap.Logger,
	opts RecordOptions,
) *RecordModel {
	if opts.RenderTick <= 0 {
		opts.RenderTick = 50 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RecordModel{
		recorder:    recorder,
		transcriber: transcriber,
		secrets:     secrets,
		keywords:    keywords,
		history:     history,
		clipboard:   clipboard,
		notifier:    notifier,
		log:         log,
		opts:        opts,
		ctx:         context.Background(),
		state:       stateIdle,
		wave:        newWaveform(60),
		width:       72,
	}
}

func (m *RecordModel) Init() tea.Cmd {
	return m.tick()
}

func (m *RecordModel) tick() tea.Cmd {
	return tea.Tick(m.opts.RenderTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *RecordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.wave.setWidth(max(20, msg.Width-12))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick()

	case cancelDoneMsg:
		m.state = stateIdle
		m.setBanner("recording discarded", false)
		return m, nil

	case stopDoneMsg:
		return m.handleStopDone(msg)

	case dispatchDoneMsg:
		return m.handleDispatchDone(msg)
	}
	return m, nil
}

func (m *RecordModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.recorder.Cancel()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case stateIdle, stateSucceeded, stateFailed:
		switch key {
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter", " ", "r":
			return m.startRecording()
		}

	case stateRecording:
		switch key {
		case "enter", " ", "s":
			m.state = stateStopping
			return m, m.stopCmd()
		case "esc", "c":
			m.state = stateCancelling
			return m, m.cancelCmd()
		}
	}
	// Stopping/Transcribing ignore input; cancellation of an in-flight
	// dispatch is not supported.
	return m, nil
}

func (m *RecordModel) startRecording() (tea.Model, tea.Cmd) {
	if err := os.MkdirAll(m.opts.OutputDir, 0o755); err != nil {
		m.setBanner(fmt.Sprintf("cannot create output directory: %v", err), true)
		return m, nil
	}

	outputPath := filepath.Join(m.opts.OutputDir,
		fmt.Sprintf("recording-%s.wav", time.Now().Format("20060102-150405")))

	if err := m.recorder.Start(m.ctx, outputPath); err != nil {
		// Spawn failures keep the controller in Idle with a banner.
		m.setBanner(err.Error(), true)
		m.log.Error("failed to start recording", zap.Error(err))
		return m, nil
	}

	m.state = stateRecording
	m.banner = ""
	m.result = domain.TranscriptionResult{}
	m.wave.reset()
	return m, nil
}

func (m *RecordModel) stopCmd() tea.Cmd {
	return func() tea.Msg {
		session, err := m.recorder.Stop()
		return stopDoneMsg{session: session, err: err}
	}
}

func (m *RecordModel) cancelCmd() tea.Cmd {
	return func() tea.Msg {
		m.recorder.Cancel()
		return cancelDoneMsg{}
	}
}

func (m *RecordModel) handleTick() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	// Drain whatever the capture loop produced since the last tick, in
	// arrival order. A stalled backend just leaves the window stale.
	for {
		sample, ok := m.recorder.Sample()
		if !ok {
			break
		}
		m.wave.push(float64(sample))
	}

	if m.state == stateRecording {
		m.elapsed = m.recorder.Elapsed()

		if status, reason := m.recorder.Status(); status == domain.SessionFailed {
			m.state = stateFailed
			m.setBanner(fmt.Sprintf("capture backend failed (%s); partial audio kept", reason), true)
		}
	}

	return m, m.tick()
}

func (m *RecordModel) handleStopDone(msg stopDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, usecase.ErrTooShort):
			m.state = stateIdle
			m.setBanner("recording discarded: too short to transcribe", false)
		case errors.Is(msg.err, usecase.ErrEmptyRecording):
			m.state = stateFailed
			m.setBanner("recording produced no audio", true)
		default:
			m.state = stateFailed
			m.setBanner(msg.err.Error(), true)
		}
		return m, nil
	}

	m.session = msg.session
	m.state = stateTranscribing
	if msg.session.Truncated {
		m.setBanner("stop timed out; transcribing partial audio", true)
	}
	return m, m.dispatchCmd(msg.session)
}

// dispatchCmd resolves the selected model and credentials at call time,
// performs the network transcription and hands successful transcripts to
// the history sink. Runs entirely off the render loop.
func (m *RecordModel) dispatchCmd(session domain.FinishedSession) tea.Cmd {
	return func() tea.Msg {
		model := transcribe.DefaultModel
		if id, ok, err := m.secrets.SelectedModel(); err == nil && ok {
			if parsed, found := transcribe.ModelFromID(id); found {
				model = parsed
			}
		}

		apiKey, ok, err := m.secrets.GetAPIKey(string(model.Provider()))
		if err != nil {
			return dispatchDoneMsg{err: err}
		}
		if !ok {
			return dispatchDoneMsg{err: &domain.TranscriptionError{
				Kind:    domain.FailureRejected,
				Message: fmt.Sprintf("no API key for %s; run: ostt auth %s <key>", model.Provider().DisplayName(), model.Provider()),
			}}
		}

		biasWords, err := m.keywords.Load()
		if err != nil {
			m.log.Warn("failed to load keywords", zap.Error(err))
		}

		result, err := m.transcriber.Transcribe(m.ctx, domain.TranscriptionRequest{
			AudioPath: session.Path,
			ModelID:   model.ID(),
			APIKey:    apiKey,
			Keywords:  biasWords,
			Duration:  session.Duration,
		})
		if err != nil {
			return dispatchDoneMsg{err: err}
		}

		if err := m.history.Append(m.ctx, domain.TranscriptRecord{
			Text:      result.Text,
			ModelID:   result.ModelUsed,
			Duration:  result.Duration,
			CreatedAt: session.StartedAt,
		}); err != nil {
			m.log.Error("failed to record transcript history", zap.Error(err))
		}
		if m.clipboard != nil {
			if err := m.clipboard.SetText(result.Text); err != nil {
				m.log.Warn("failed to copy transcript to clipboard", zap.Error(err))
			}
		}
		if m.notifier != nil {
			_ = m.notifier.Notify("ostt", "transcription ready")
		}

		return dispatchDoneMsg{result: result}
	}
}

func (m *RecordModel) handleDispatchDone(msg dispatchDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = stateFailed
		var terr *domain.TranscriptionError
		if errors.As(msg.err, &terr) {
			m.setBanner("transcription failed: "+terr.Message, true)
		} else {
			m.setBanner("transcription failed: "+msg.err.Error(), true)
		}
		m.log.Error("transcription dispatch failed", zap.Error(msg.err))
		return m, nil
	}

	m.result = msg.result
	m.state = stateSucceeded
	m.setBanner("transcript copied to clipboard", false)
	m.log.Info("transcription succeeded",
		zap.String("model", msg.result.ModelUsed),
		zap.Int("retries", msg.result.Retries),
		zap.Duration("duration", msg.result.Duration))
	return m, nil
}

func (m *RecordModel) setBanner(text string, isErr bool) {
	m.banner = text
	m.bannerErr = isErr
}

func (m *RecordModel) View() string {
	if m.quitting {
		return ""
	}

	var view string
	view += titleStyle.Render("ostt - speech to text") + "\n\n"
	view += stateStyle.Render(m.stateLine()) + "\n\n"
	view += waveStyle.Render(m.wave.render()) + "\n"
	view += meterStyle.Render(renderMeter(m.wave.latest(), 30)) +
		dimStyle.Render(fmt.Sprintf("  %s", formatDuration(m.elapsed))) + "\n\n"

	if m.state == stateSucceeded && m.result.Text != "" {
		view += okStyle.Render(m.result.Text) + "\n\n"
	}
	if m.banner != "" {
		if m.bannerErr {
			view += errorStyle.Render(m.banner) + "\n\n"
		} else {
			view += okStyle.Render(m.banner) + "\n\n"
		}
	}

	view += helpStyle.Render(m.helpLine()) + "\n"
	return view
}

func (m *RecordModel) stateLine() string {
	switch m.state {
	case stateIdle:
		return "● idle"
	case stateRecording:
		return "● recording"
	case stateCancelling:
		return "● cancelling…"
	case stateStopping:
		return "● finishing recording…"
	case stateTranscribing:
		return "● transcribing…"
	case stateSucceeded:
		return "● done"
	case stateFailed:
		return "● failed"
	}
	return string(m.state)
}

func (m *RecordModel) helpLine() string {
	switch m.state {
	case stateRecording:
		return "enter/space stop · esc cancel · ctrl+c abort"
	case stateStopping, stateTranscribing, stateCancelling:
		return "please wait…"
	default:
		return "enter/space record · q quit"
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
