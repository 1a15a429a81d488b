// Package openai talks to any OpenAI-compatible chat completions endpoint
// (Groq, OpenRouter, llama.cpp server, vLLM).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Client is an OpenAI-compatible chat completions client
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	modelName  string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config holds configuration for the client
type Config struct {
	Name       string // provider label for logs and model info
	BaseURL    string
	APIKey     string
	ModelName  string
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", cfg.Name)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%s model name is required", cfg.Name)
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 300
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger.Info("Chat completions client initialized",
		zap.String("provider", cfg.Name),
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		name:       cfg.Name,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		modelName:  cfg.ModelName,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close is a no-op; the HTTP client holds no resources of its own
func (c *Client) Close() error {
	return nil
}

// Generate sends the prompt as a single user message and returns the reply text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       c.modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      false,
		Temperature: 0,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying chat completions request",
				zap.String("provider", c.name),
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := c.do(ctx, reqBody)
		if err != nil {
			lastErr = err
			c.logger.Error("Chat completions error",
				zap.String("provider", c.name),
				zap.Error(err),
				zap.Int("attempt", attempt+1))
			continue
		}

		return content, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", c.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API returned status %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.name, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", c.name)
	}

	return parsed.Choices[0].Message.Content, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    c.name,
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
