package transcribe

// Model enumerates the supported transcription models. The set is closed:
// each model maps to exactly one provider, one endpoint and one wire-format
// model name, which may differ from its public id.
type Model int

const (
	ModelGPT4oTranscribe Model = iota
	ModelGPT4oMiniTranscribe
	ModelWhisper
	ModelNova3
	ModelNova2

	modelCount
)

type modelInfo struct {
	id          string
	description string
	provider    Provider
	endpoint    string
	wireName    string
}

var modelTable = [modelCount]modelInfo{
	ModelGPT4oTranscribe: {
		id:          "gpt-4o-transcribe",
		description: "GPT-4o Transcribe (latest, best accuracy)",
		provider:    ProviderOpenAI,
		endpoint:    "https://api.openai.com/v1/audio/transcriptions",
		wireName:    "gpt-4o-transcribe",
	},
	ModelGPT4oMiniTranscribe: {
		id:          "gpt-4o-mini-transcribe",
		description: "GPT-4o Mini Transcribe (faster, lighter)",
		provider:    ProviderOpenAI,
		endpoint:    "https://api.openai.com/v1/audio/transcriptions",
		wireName:    "gpt-4o-mini-transcribe",
	},
	ModelWhisper: {
		id:          "whisper",
		description: "Whisper (legacy)",
		provider:    ProviderOpenAI,
		endpoint:    "https://api.openai.com/v1/audio/transcriptions",
		wireName:    "whisper-1",
	},
	ModelNova3: {
		id:          "nova-3",
		description: "Nova 3 (latest, fastest)",
		provider:    ProviderDeepgram,
		endpoint:    "https://api.deepgram.com/v1/listen",
		wireName:    "nova-3",
	},
	ModelNova2: {
		id:          "nova-2",
		description: "Nova 2 (previous generation)",
		provider:    ProviderDeepgram,
		endpoint:    "https://api.deepgram.com/v1/listen",
		wireName:    "nova-2",
	},
}

// ID is the public model identifier.
func (m Model) ID() string { return modelTable[m].id }

// Description is a human-readable summary for selection UIs.
func (m Model) Description() string { return modelTable[m].description }

// Provider returns the provider serving this model.
func (m Model) Provider() Provider { return modelTable[m].provider }

// Endpoint is the API URL requests for this model are sent to.
func (m Model) Endpoint() string { return modelTable[m].endpoint }

// WireName is the model name sent on the wire, which can differ from ID.
func (m Model) WireName() string { return modelTable[m].wireName }

// ModelFromID parses a public model id.
func ModelFromID(id string) (Model, bool) {
	for m := Model(0); m < modelCount; m++ {
		if modelTable[m].id == id {
			return m, true
		}
	}
	return 0, false
}

// AllModels lists every model in catalog order.
func AllModels() []Model {
	models := make([]Model, 0, modelCount)
	for m := Model(0); m < modelCount; m++ {
		models = append(models, m)
	}
	return models
}

// ModelsForProvider filters the catalog by provider.
func ModelsForProvider(p Provider) []Model {
	var models []Model
	for m := Model(0); m < modelCount; m++ {
		if modelTable[m].provider == p {
			models = append(models, m)
		}
	}
	return models
}

// DefaultModel is used when no model has been selected yet.
const DefaultModel = ModelGPT4oMiniTranscribe
