// Package config loads the engine configuration from YAML with environment
// variable interpolation. The loaded Config is immutable after Validate and
// safe to share across goroutines.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/provider"
)

// ProviderConfig holds credentials and endpoint overrides for one provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// StorageConfig selects plan persistence. An empty PlanDB keeps plans in
// memory.
type StorageConfig struct {
	PlanDB string `yaml:"plan_db,omitempty"`
}

// ServerConfig holds the HTTP listen address for the serve command.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration document.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Agents    []core.AgentConfig        `yaml:"agents"`
	Prompts   map[string]string         `yaml:"prompts,omitempty"`
	Retry     provider.RetryConfig      `yaml:"retry"`
	Storage   StorageConfig             `yaml:"storage,omitempty"`
	Server    ServerConfig              `yaml:"server,omitempty"`
}

// Default returns a runnable configuration: a counselor agent on Anthropic
// with an OpenAI fallback, plus the specialist roles, keys taken from the
// environment.
func Default() *Config {
	agents := []core.AgentConfig{
		{
			ID:          "counselor",
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-0",
			Temperature: 0.7,
			MaxTokens:   4096,
			Fallback:    &core.FallbackConfig{Provider: "openai", Model: "gpt-4o"},
		},
	}
	for _, id := range []string{"strategic", "timeline", "essay", "research", "activity"} {
		agents = append(agents, core.AgentConfig{
			ID:          id,
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-0",
			Temperature: 0.5,
			MaxTokens:   2048,
			Fallback:    &core.FallbackConfig{Provider: "openai", Model: "gpt-4o-mini"},
		})
	}

	return &Config{
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKey: os.Getenv("ANTHROPIC_API_KEY")},
			"openai":    {APIKey: os.Getenv("OPENAI_API_KEY")},
		},
		Agents: agents,
		Retry:  provider.DefaultRetryConfig(),
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads and validates a YAML config file. `${VAR}` references anywhere
// in the document are replaced with the environment variable's value before
// parsing; unset variables become empty strings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML config bytes with env interpolation and validates the
// result. Omitted retry fields fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{Retry: provider.DefaultRetryConfig()}
	if err := yaml.Unmarshal(interpolateEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envRefRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func interpolateEnv(data []byte) []byte {
	return envRefRe.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := string(ref[2 : len(ref)-1])
		return []byte(os.Getenv(name))
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = provider.DefaultRetryConfig().MaxAttempts
	}
	if c.Retry.AttemptTimeout <= 0 {
		c.Retry.AttemptTimeout = provider.DefaultRetryConfig().AttemptTimeout
	}
	if c.Retry.BackoffBase <= 0 {
		c.Retry.BackoffBase = provider.DefaultRetryConfig().BackoffBase
	}
	if c.Retry.BackoffMultiplier <= 0 {
		c.Retry.BackoffMultiplier = provider.DefaultRetryConfig().BackoffMultiplier
	}
	if c.Retry.MaxBackoff <= 0 {
		c.Retry.MaxBackoff = provider.DefaultRetryConfig().MaxBackoff
	}
	for i := range c.Agents {
		if c.Agents[i].MaxTokens <= 0 {
			c.Agents[i].MaxTokens = 4096
		}
	}
}

// Validate checks cross-references: every agent (and fallback) must name a
// configured provider, ids must be unique, and at least one agent must
// exist.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent is required")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("config: at least one provider is required")
	}

	seen := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("config: agent with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("config: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true

		if _, ok := c.Providers[a.Provider]; !ok {
			return fmt.Errorf("config: agent %q references unknown provider %q", a.ID, a.Provider)
		}
		if a.Model == "" {
			return fmt.Errorf("config: agent %q has no model", a.ID)
		}
		if a.Fallback != nil {
			if _, ok := c.Providers[a.Fallback.Provider]; !ok {
				return fmt.Errorf("config: agent %q fallback references unknown provider %q", a.ID, a.Fallback.Provider)
			}
			if a.Fallback.Model == "" {
				return fmt.Errorf("config: agent %q fallback has no model", a.ID)
			}
		}
		if a.Temperature < 0 || a.Temperature > 2 {
			return fmt.Errorf("config: agent %q temperature %v out of range", a.ID, a.Temperature)
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry max_attempts must be at least 1")
	}
	if c.Retry.AttemptTimeout < time.Second {
		return fmt.Errorf("config: retry attempt_timeout must be at least 1s")
	}

	return nil
}

// AgentConfigs returns the agent list for registry construction.
func (c *Config) AgentConfigs() []core.AgentConfig {
	out := make([]core.AgentConfig, len(c.Agents))
	copy(out, c.Agents)
	return out
}
