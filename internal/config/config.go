package config

import (
	"fmt"
	"os"
	"time"

	"review-service/internal/llm"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           string `yaml:"port"`
		InternalAPIKey string `yaml:"internal_api_key"` // empty disables the check
	} `yaml:"server"`

	Log struct {
		Mode string `yaml:"mode"` // "development" or "production"
	} `yaml:"log"`

	Model struct {
		Timeout                 time.Duration        `yaml:"timeout"`
		MaxFailuresBeforeSwitch int                  `yaml:"max_failures_before_switch"`
		Providers               []llm.ProviderConfig `yaml:"providers"`
	} `yaml:"model"`

	Policy struct {
		Path string `yaml:"path"`
	} `yaml:"policy"`

	Review struct {
		FallbackSuffix   string `yaml:"fallback_suffix"`
		StripHTML        *bool  `yaml:"strip_html"`
		SoftenRejections bool   `yaml:"soften_rejections"`
	} `yaml:"review"`
}

// Addr is the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// StripHTML reports whether submissions are converted to plain text before review
func (c *Config) StripHTML() bool {
	return c.Review.StripHTML == nil || *c.Review.StripHTML
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	return config, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}

	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}

	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}

	if c.Model.Timeout == 0 {
		c.Model.Timeout = 20 * time.Second
	}

	if c.Model.MaxFailuresBeforeSwitch == 0 {
		c.Model.MaxFailuresBeforeSwitch = 3
	}

	if c.Policy.Path == "" {
		c.Policy.Path = "configs/policy.yml"
	}

	// Expand environment variables in secrets and endpoints
	for i := range c.Model.Providers {
		c.Model.Providers[i].APIKey = os.ExpandEnv(c.Model.Providers[i].APIKey)
		c.Model.Providers[i].BaseURL = os.ExpandEnv(c.Model.Providers[i].BaseURL)
	}
	c.Server.InternalAPIKey = os.ExpandEnv(c.Server.InternalAPIKey)
}
