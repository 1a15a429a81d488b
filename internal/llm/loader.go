package llm

import (
	"context"
	"errors"
	"fmt"

	"review-service/internal/gemini"
	"review-service/internal/ollama"
	"review-service/internal/openai"

	"go.uber.org/zap"
)

// ErrNoProviders means no model handle could be acquired
var ErrNoProviders = errors.New("no model providers available")

// prober is implemented by providers that can verify the model is actually present
type prober interface {
	Probe(ctx context.Context) error
}

type closer interface {
	Close() error
}

// Load builds a model handle from the configured providers. Providers that fail
// to construct or probe are skipped and logged. It returns ErrNoProviders when
// nothing could be loaded; callers treat that as degraded mode, not a fatal error.
func Load(ctx context.Context, configs []ProviderConfig, maxFailures int, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(configs) == 0 {
		return nil, ErrNoProviders
	}

	providers := make([]Generator, 0, len(configs))
	for i, providerCfg := range configs {
		provider, err := newProvider(providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		if p, ok := provider.(prober); ok {
			if err := p.Probe(ctx); err != nil {
				logger.Error("Provider probe failed",
					zap.String("type", string(providerCfg.Type)),
					zap.String("model", providerCfg.ModelName),
					zap.Error(err))
				if c, ok := provider.(closer); ok {
					c.Close()
				}
				continue
			}
		}

		concurrency := providerCfg.MaxConcurrency
		if concurrency <= 0 && providerCfg.Type == ProviderOllama {
			concurrency = 1
		}

		providers = append(providers, NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, concurrency, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", providerCfg.RequestsPerMinute),
			zap.Int("max_concurrency", concurrency),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	return NewMultiProviderClient(providers, maxFailures, logger)
}

func newProvider(cfg ProviderConfig, logger *zap.Logger) (Generator, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch cfg.Type {
	case ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:     cfg.APIKey,
			ModelName:  cfg.ModelName,
			MaxTokens:  maxTokens,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}, logger)
	case ProviderGroq, ProviderOpenRouter, ProviderOpenAI:
		if cfg.Type != ProviderOpenAI && cfg.APIKey == "" {
			return nil, fmt.Errorf("%s API key is required", cfg.Type)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			switch cfg.Type {
			case ProviderGroq:
				baseURL = openai.GroqBaseURL
			case ProviderOpenRouter:
				baseURL = openai.OpenRouterBaseURL
			}
		}
		return openai.NewClient(openai.Config{
			Name:       string(cfg.Type),
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			ModelName:  cfg.ModelName,
			MaxTokens:  maxTokens,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}, logger)
	case ProviderOllama:
		return ollama.NewClient(ollama.Config{
			Host:       cfg.BaseURL,
			ModelName:  cfg.ModelName,
			MaxTokens:  maxTokens,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
