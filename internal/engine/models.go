package engine

import "maps"

type (
	ModelID  string
	Provider string
)

// Model describes one selectable backend model.
type Model struct {
	ID               ModelID  `json:"id"`
	Name             string   `json:"name"`
	Provider         Provider `json:"provider"`
	APIModel         string   `json:"api_model"`
	ContextWindow    int64    `json:"context_window"`
	DefaultMaxTokens int64    `json:"default_max_tokens"`
	CanReason        bool     `json:"can_reason"`
}

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"

	// ForTests
	ProviderMock Provider = "__mock"
)

// Providers in order of popularity
var ProviderPopularity = map[Provider]int{
	ProviderAnthropic: 1,
	ProviderOpenAI:    2,
	ProviderGemini:    3,
}

const (
	Claude37Sonnet ModelID = "claude-3.7-sonnet"
	Claude35Haiku  ModelID = "claude-3.5-haiku"
	GPT41          ModelID = "gpt-4.1"
	GPT41Mini      ModelID = "gpt-4.1-mini"
	Gemini25       ModelID = "gemini-2.5"
	Gemini20Flash  ModelID = "gemini-2.0-flash"
)

var AnthropicModels = map[ModelID]Model{
	Claude37Sonnet: {
		ID:               Claude37Sonnet,
		Name:             "Claude 3.7 Sonnet",
		Provider:         ProviderAnthropic,
		APIModel:         "claude-3-7-sonnet-20250219",
		ContextWindow:    200_000,
		DefaultMaxTokens: 50_000,
		CanReason:        true,
	},
	Claude35Haiku: {
		ID:               Claude35Haiku,
		Name:             "Claude 3.5 Haiku",
		Provider:         ProviderAnthropic,
		APIModel:         "claude-3-5-haiku-20241022",
		ContextWindow:    200_000,
		DefaultMaxTokens: 4096,
	},
}

var OpenAIModels = map[ModelID]Model{
	GPT41: {
		ID:               GPT41,
		Name:             "GPT 4.1",
		Provider:         ProviderOpenAI,
		APIModel:         "gpt-4.1",
		ContextWindow:    1_047_576,
		DefaultMaxTokens: 20_000,
	},
	GPT41Mini: {
		ID:               GPT41Mini,
		Name:             "GPT 4.1 mini",
		Provider:         ProviderOpenAI,
		APIModel:         "gpt-4.1-mini",
		ContextWindow:    200_000,
		DefaultMaxTokens: 20_000,
	},
}

var GeminiModels = map[ModelID]Model{
	Gemini25: {
		ID:               Gemini25,
		Name:             "Gemini 2.5 Pro",
		Provider:         ProviderGemini,
		APIModel:         "gemini-2.5-pro-exp-03-25",
		ContextWindow:    1_000_000,
		DefaultMaxTokens: 50_000,
		CanReason:        true,
	},
	Gemini20Flash: {
		ID:               Gemini20Flash,
		Name:             "Gemini 2.0 Flash",
		Provider:         ProviderGemini,
		APIModel:         "gemini-2.0-flash",
		ContextWindow:    1_000_000,
		DefaultMaxTokens: 6000,
	},
}

var SupportedModels = map[ModelID]Model{
	// ForTests
	"__mock-model": {
		ID:       "__mock-model",
		Name:     "Mock Model",
		Provider: ProviderMock,
	},
}

func init() {
	maps.Copy(SupportedModels, AnthropicModels)
	maps.Copy(SupportedModels, OpenAIModels)
	maps.Copy(SupportedModels, GeminiModels)
}

// DefaultModel returns the default model for a provider, preferring the
// most capable entry in the catalog.
func DefaultModel(provider Provider) (Model, bool) {
	switch provider {
	case ProviderAnthropic:
		return AnthropicModels[Claude37Sonnet], true
	case ProviderOpenAI:
		return OpenAIModels[GPT41], true
	case ProviderGemini:
		return GeminiModels[Gemini25], true
	case ProviderMock:
		return SupportedModels["__mock-model"], true
	}
	return Model{}, false
}

// ModelsForProvider lists the catalog entries belonging to provider.
func ModelsForProvider(provider Provider) []Model {
	var out []Model
	for _, m := range SupportedModels {
		if m.Provider == provider {
			out = append(out, m)
		}
	}
	return out
}
