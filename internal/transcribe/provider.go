package transcribe

// Provider identifies a transcription service.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderDeepgram Provider = "deepgram"
)

// DisplayName is the human-readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderDeepgram:
		return "Deepgram"
	default:
		return string(p)
	}
}

// AllProviders lists every supported provider.
func AllProviders() []Provider {
	return []Provider{ProviderOpenAI, ProviderDeepgram}
}
