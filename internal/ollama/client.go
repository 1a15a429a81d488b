// Package ollama runs generation against a local Ollama daemon.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultHost = "http://127.0.0.1:11434"

// Client wraps the Ollama HTTP API
type Client struct {
	host       string
	modelName  string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for the Ollama client
type Config struct {
	Host       string // Default: $OLLAMA_HOST or http://127.0.0.1:11434
	ModelName  string
	MaxTokens  int
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewClient creates a new Ollama client. It does not contact the daemon; see Probe.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = os.Getenv("OLLAMA_HOST")
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 300
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}

	logger.Info("Ollama client initialized",
		zap.String("host", cfg.Host),
		zap.String("model", cfg.ModelName))

	return &Client{
		host:       strings.TrimRight(cfg.Host, "/"),
		modelName:  cfg.ModelName,
		maxTokens:  cfg.MaxTokens,
		httpClient: cfg.HTTPClient,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Probe checks that the daemon is reachable and the model has been pulled
func (c *Client) Probe(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"model": c.modelName})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/show", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama model %q not available: status %d", c.modelName, resp.StatusCode)
	}
	return nil
}

// Close is a no-op
func (c *Client) Close() error {
	return nil
}

// Generate runs a single non-streaming greedy generation
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.modelName,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: 0,
			TopK:        1,
			NumPredict:  c.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := c.generate(ctx, body)
		if err != nil {
			lastErr = err
			c.logger.Error("Ollama generate error", zap.Error(err), zap.Int("attempt", attempt+1))
			continue
		}
		return out, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) generate(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ollama unexpected response: %s", string(raw))
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, parsed.Error)
	}

	return parsed.Response, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": "ollama",
		"model":    c.modelName,
		"host":     c.host,
	}
}
