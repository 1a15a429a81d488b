package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ProviderType represents the type of model provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOpenAI     ProviderType = "openai" // any OpenAI-compatible endpoint (llama.cpp, vLLM, ...)
	ProviderOllama     ProviderType = "ollama"
)

const (
	defaultRequestsPerMinute = 60
	defaultRemoteConcurrency = 4
	defaultMaxTokens         = 300
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type       ProviderType  `yaml:"type"`
	APIKey     string        `yaml:"api_key"`
	ModelName  string        `yaml:"model_name"`
	BaseURL    string        `yaml:"base_url"`
	MaxTokens  int           `yaml:"max_tokens"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Rate limiting per provider
	RequestsPerMinute int `yaml:"requests_per_minute"`
	// Concurrent in-flight generations; the local runtime is serialized by default
	MaxConcurrency int `yaml:"max_concurrency"`
}

// Generator is a loaded model handle. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	return &RateLimiter{
		tokens:     requestsPerMinute,
		maxTokens:  requestsPerMinute,
		refillRate: time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.refill(now)
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		wait := rl.refillRate - now.Sub(rl.lastRefill)
		rl.mu.Unlock()

		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// refill must be called with mu held
func (rl *RateLimiter) refill(now time.Time) {
	if rl.tokens >= rl.maxTokens {
		rl.lastRefill = now
		return
	}
	n := int(now.Sub(rl.lastRefill) / rl.refillRate)
	if n <= 0 {
		return
	}
	rl.tokens += n
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(n) * rl.refillRate)
}

// RateLimitedProvider wraps a provider with rate limiting and a concurrency cap
type RateLimitedProvider struct {
	provider Generator
	limiter  *RateLimiter
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps a provider with rate limiting.
// maxConcurrency of 1 serializes calls into the underlying runtime.
func NewRateLimitedProvider(provider Generator, requestsPerMinute, maxConcurrency int, logger *zap.Logger) *RateLimitedProvider {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultRemoteConcurrency
	}
	return &RateLimitedProvider{
		provider: provider,
		limiter:  NewRateLimiter(requestsPerMinute),
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("concurrency slot wait cancelled: %w", err)
	}
	defer p.sem.Release(1)

	return p.provider.Generate(ctx, prompt)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	return p.provider.GetModelInfo()
}

// ErrAllProvidersFailed is returned when no provider produced output
var ErrAllProvidersFailed = errors.New("all providers failed")

// MultiProviderClient manages multiple model providers with failover
type MultiProviderClient struct {
	providers    []Generator
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// NewMultiProviderClient builds a failover client over already constructed providers
func NewMultiProviderClient(providers []Generator, maxFailures int, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}

	if maxFailures <= 0 {
		maxFailures = 3
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}, nil
}

// getCurrentProvider returns the current provider and its index
func (c *MultiProviderClient) getCurrentProvider() (Generator, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.currentIndex], c.currentIndex
}

// switchToNextProvider moves off providerIndex unless another caller already did
func (c *MultiProviderClient) switchToNextProvider(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.currentIndex != providerIndex {
		return
	}
	c.currentIndex = (c.currentIndex + 1) % len(c.providers)

	c.logger.Info("Switching provider",
		zap.Int("from_index", providerIndex),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

// recordFailure records a failure and reports whether the provider should be switched out
func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++

	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		c.failureCount[providerIndex] = 0
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Generate tries every provider once, starting from the current one
func (c *MultiProviderClient) Generate(ctx context.Context, prompt string) (string, error) {
	_, start := c.getCurrentProvider()

	var lastErr error
	for attempts := 0; attempts < len(c.providers); attempts++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		providerIndex := (start + attempts) % len(c.providers)
		provider := c.providers[providerIndex]

		c.logger.Debug("Attempting generation",
			zap.Int("provider_index", providerIndex),
			zap.Int("attempt", attempts+1))

		out, err := provider.Generate(ctx, prompt)
		if err == nil {
			c.resetFailureCount(providerIndex)
			return out, nil
		}
		lastErr = err

		c.logger.Error("Provider failed",
			zap.Int("provider_index", providerIndex),
			zap.Error(err))

		// Switching only moves where later requests start
		if c.recordFailure(providerIndex) || isRateLimitError(err) {
			c.switchToNextProvider(providerIndex)
		}
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var errs []error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetModelInfo returns information about the current provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	provider, index := c.getCurrentProvider()
	info := provider.GetModelInfo()

	c.mu.RLock()
	failures := c.failureCount[index]
	c.mu.RUnlock()

	info["provider_index"] = index
	info["total_providers"] = len(c.providers)
	info["failure_count"] = failures
	return info
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = i == c.currentIndex
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
