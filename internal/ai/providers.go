package ai

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"learnpilot-rag/internal/config"
)

const (
	ProviderGroq       = "groq"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// NewGroq talks to the Groq OpenAI-compatible endpoint. A missing key
// yields an unavailable backend, never a startup failure.
func NewGroq(apiKey, baseURL, model string) *Backend {
	if apiKey == "" {
		log.Warn().Str("provider", ProviderGroq).Msg("api key not set, provider unavailable")
		return NewBackend(ProviderGroq, model, nil)
	}
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		log.Warn().Err(err).Str("provider", ProviderGroq).Msg("init failed, provider unavailable")
		return NewBackend(ProviderGroq, model, nil)
	}
	return NewBackend(ProviderGroq, model, llm)
}

func NewGemini(ctx context.Context, apiKey, model string) *Backend {
	if apiKey == "" {
		log.Warn().Str("provider", ProviderGemini).Msg("api key not set, provider unavailable")
		return NewBackend(ProviderGemini, model, nil)
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		log.Warn().Err(err).Str("provider", ProviderGemini).Msg("init failed, provider unavailable")
		return NewBackend(ProviderGemini, model, nil)
	}
	return NewBackend(ProviderGemini, model, llm)
}

func NewOpenRouter(apiKey, baseURL, model string) *Backend {
	if apiKey == "" {
		log.Warn().Str("provider", ProviderOpenRouter).Msg("api key not set, provider unavailable")
		return NewBackend(ProviderOpenRouter, model, nil)
	}
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		log.Warn().Err(err).Str("provider", ProviderOpenRouter).Msg("init failed, provider unavailable")
		return NewBackend(ProviderOpenRouter, model, nil)
	}
	return NewBackend(ProviderOpenRouter, model, llm)
}

// NewOllama needs no credentials; a local daemon is assumed reachable.
func NewOllama(serverURL, model string) *Backend {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		log.Warn().Err(err).Str("provider", ProviderOllama).Msg("init failed, provider unavailable")
		return NewBackend(ProviderOllama, model, nil)
	}
	return NewBackend(ProviderOllama, model, llm)
}

// NewOCRFromConfig builds the vision client used for image transcription.
// Returns nil when the configured provider has no credentials, which
// turns image uploads into a clean failure instead of a crash.
func NewOCRFromConfig(ctx context.Context, ocrCfg config.OCRConfig, providers config.ProvidersConfig) *OCRClient {
	var backend *Backend
	switch ocrCfg.Provider {
	case ProviderOllama:
		backend = NewOllama(providers.OllamaURL, ocrCfg.Model)
	case ProviderGemini:
		backend = NewGemini(ctx, providers.GeminiAPIKey, ocrCfg.Model)
	case ProviderGroq:
		backend = NewGroq(providers.GroqAPIKey, providers.GroqBaseURL, ocrCfg.Model)
	case ProviderOpenRouter:
		backend = NewOpenRouter(providers.OpenRouterAPIKey, providers.OpenRouterURL, ocrCfg.Model)
	default:
		log.Warn().Str("provider", ocrCfg.Provider).Msg("unknown ocr provider, image transcription disabled")
		return nil
	}
	if !backend.Available() {
		return nil
	}
	return NewOCRClient(backend.llm, ocrCfg.Model)
}

// BuildChain constructs backends in the configured fallback order.
// Unknown names are skipped with a warning so a config typo degrades
// the chain instead of killing the service.
func BuildChain(ctx context.Context, cfg config.ProvidersConfig) []*Backend {
	chain := make([]*Backend, 0, len(cfg.Order))
	for _, name := range cfg.Order {
		switch name {
		case ProviderGroq:
			chain = append(chain, NewGroq(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel))
		case ProviderGemini:
			chain = append(chain, NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel))
		case ProviderOpenRouter:
			chain = append(chain, NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterURL, cfg.OpenRouterModel))
		case ProviderOllama:
			chain = append(chain, NewOllama(cfg.OllamaURL, cfg.OllamaModel))
		default:
			log.Warn().Str("provider", name).Msg("unknown provider in chain, skipping")
		}
	}
	return chain
}
