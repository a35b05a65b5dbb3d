package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/andrepadez/ostt/internal/domain"
)

// DispatcherConfig controls timeout and retry behavior for dispatch.
type DispatcherConfig struct {
	// AttemptTimeout bounds each individual request.
	AttemptTimeout time.Duration
	// MaxRetries caps how often a transient failure is retried.
	MaxRetries int
	// BackoffBase is the delay before the first retry; it doubles on
	// each subsequent attempt.
	BackoffBase time.Duration

	// Endpoint overrides for tests; empty means the catalog endpoint.
	OpenAIEndpoint   string
	DeepgramEndpoint string
}

func (c *DispatcherConfig) applyDefaults() {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 60 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
}

// Dispatcher performs one atomic transcription call per finished
// recording. Transient failures are retried with doubling backoff up to
// the configured cap; rejected failures are surfaced immediately.
type Dispatcher struct {
	cfg    DispatcherConfig
	client *resty.Client
	log    *zap.Logger

	sleep func(context.Context, time.Duration) error
}

func NewDispatcher(cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.AttemptTimeout).
		SetRetryCount(0)
	return &Dispatcher{
		cfg:    cfg,
		client: client,
		log:    log,
		sleep:  sleepCtx,
	}
}

// Transcribe resolves the model, uploads the audio file and returns a
// normalized result or a classified *domain.TranscriptionError.
func (d *Dispatcher) Transcribe(ctx context.Context, req domain.TranscriptionRequest) (domain.TranscriptionResult, error) {
	model, ok := ModelFromID(req.ModelID)
	if !ok {
		return domain.TranscriptionResult{}, rejected(fmt.Sprintf("unknown model %q", req.ModelID))
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return domain.TranscriptionResult{}, rejected(fmt.Sprintf("no API key configured for %s", model.Provider().DisplayName()))
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return domain.TranscriptionResult{}, rejected(fmt.Sprintf("audio file unavailable: %v", err))
	}

	var lastErr *domain.TranscriptionError
	for attempt := 0; ; attempt++ {
		result, terr := d.attempt(ctx, model, req)
		if terr == nil {
			result.Retries = attempt
			result.ModelUsed = model.ID()
			if result.Duration <= 0 {
				result.Duration = req.Duration
			}
			return result, nil
		}

		lastErr = terr
		if !terr.Retryable || attempt >= d.cfg.MaxRetries {
			break
		}

		delay := d.cfg.BackoffBase << attempt
		d.log.Warn("transcription attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.String("error", terr.Message))
		if err := d.sleep(ctx, delay); err != nil {
			return domain.TranscriptionResult{}, transient(fmt.Sprintf("dispatch aborted: %v", err))
		}
	}

	return domain.TranscriptionResult{}, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, model Model, req domain.TranscriptionRequest) (domain.TranscriptionResult, *domain.TranscriptionError) {
	switch model.Provider() {
	case ProviderOpenAI:
		return d.attemptOpenAI(ctx, model, req)
	case ProviderDeepgram:
		return d.attemptDeepgram(ctx, model, req)
	default:
		return domain.TranscriptionResult{}, rejected(fmt.Sprintf("unsupported provider %q", model.Provider()))
	}
}

type openAIResponse struct {
	Text string `json:"text"`
}

func (d *Dispatcher) attemptOpenAI(ctx context.Context, model Model, req domain.TranscriptionRequest) (domain.TranscriptionResult, *domain.TranscriptionError) {
	r := d.client.R().
		SetContext(ctx).
		SetAuthToken(req.APIKey).
		SetFile("file", req.AudioPath).
		SetFormData(map[string]string{
			"model":           model.WireName(),
			"response_format": "json",
		})
	if len(req.Keywords) > 0 {
		// The prompt field biases recognition toward domain terms.
		r.SetFormData(map[string]string{"prompt": strings.Join(req.Keywords, ", ")})
	}

	resp, err := r.Post(d.endpointFor(model))
	if err != nil {
		return domain.TranscriptionResult{}, transient(fmt.Sprintf("request failed: %v", err))
	}
	if terr := classifyStatus(resp.StatusCode(), resp.Body()); terr != nil {
		return domain.TranscriptionResult{}, terr
	}

	var parsed openAIResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return domain.TranscriptionResult{}, transient(fmt.Sprintf("malformed response: %v", err))
	}
	return domain.TranscriptionResult{Text: strings.TrimSpace(parsed.Text)}, nil
}

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Dispatcher) attemptDeepgram(ctx context.Context, model Model, req domain.TranscriptionRequest) (domain.TranscriptionResult, *domain.TranscriptionError) {
	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return domain.TranscriptionResult{}, rejected(fmt.Sprintf("failed to read audio file: %v", err))
	}

	params := url.Values{}
	params.Set("model", model.WireName())
	params.Set("smart_format", "true")
	// nova-3 replaced the keywords parameter with keyterm.
	biasParam := "keywords"
	if model.WireName() == "nova-3" {
		biasParam = "keyterm"
	}
	for _, kw := range req.Keywords {
		params.Add(biasParam, kw)
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Token "+req.APIKey).
		SetHeader("Content-Type", contentTypeFor(req.AudioPath)).
		SetQueryParamsFromValues(params).
		SetBody(audio).
		Post(d.endpointFor(model))
	if err != nil {
		return domain.TranscriptionResult{}, transient(fmt.Sprintf("request failed: %v", err))
	}
	if terr := classifyStatus(resp.StatusCode(), resp.Body()); terr != nil {
		return domain.TranscriptionResult{}, terr
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return domain.TranscriptionResult{}, transient(fmt.Sprintf("malformed response: %v", err))
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return domain.TranscriptionResult{}, transient("response carried no transcript")
	}

	return domain.TranscriptionResult{
		Text:     strings.TrimSpace(parsed.Results.Channels[0].Alternatives[0].Transcript),
		Duration: time.Duration(parsed.Metadata.Duration * float64(time.Second)),
	}, nil
}

func (d *Dispatcher) endpointFor(model Model) string {
	switch model.Provider() {
	case ProviderOpenAI:
		if d.cfg.OpenAIEndpoint != "" {
			return d.cfg.OpenAIEndpoint
		}
	case ProviderDeepgram:
		if d.cfg.DeepgramEndpoint != "" {
			return d.cfg.DeepgramEndpoint
		}
	}
	return model.Endpoint()
}

// classifyStatus maps an HTTP status to the failure taxonomy. Rate limits
// clear on their own, so 429 stays retryable; other 4xx are request or
// credential problems that retrying cannot fix.
func classifyStatus(status int, body []byte) *domain.TranscriptionError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return transient(fmt.Sprintf("rate limited (HTTP %d)", status))
	case status >= 400 && status < 500:
		return rejected(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	default:
		return transient(fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(body))))
	}
}

func rejected(msg string) *domain.TranscriptionError {
	return &domain.TranscriptionError{Kind: domain.FailureRejected, Message: msg, Retryable: false}
}

func transient(msg string) *domain.TranscriptionError {
	return &domain.TranscriptionError{Kind: domain.FailureTransient, Message: msg, Retryable: true}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
