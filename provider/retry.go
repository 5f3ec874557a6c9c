package provider

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// RetryConfig holds the per-provider retry policy for model calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per provider.
	MaxAttempts int `yaml:"max_attempts"`

	// AttemptTimeout is the hard wall-clock limit per attempt. Exceeding it
	// counts as a transient failure, never a silent hang.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// UnmarshalYAML accepts durations in Go syntax ("60s", "1m30s").
func (c *RetryConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxAttempts       int     `yaml:"max_attempts"`
		AttemptTimeout    string  `yaml:"attempt_timeout"`
		BackoffBase       string  `yaml:"backoff_base"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		MaxBackoff        string  `yaml:"max_backoff"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.MaxAttempts = raw.MaxAttempts
	c.BackoffMultiplier = raw.BackoffMultiplier

	for _, field := range []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"attempt_timeout", raw.AttemptTimeout, &c.AttemptTimeout},
		{"backoff_base", raw.BackoffBase, &c.BackoffBase},
		{"max_backoff", raw.MaxBackoff, &c.MaxBackoff},
	} {
		if field.src == "" {
			continue
		}
		d, err := time.ParseDuration(field.src)
		if err != nil {
			return fmt.Errorf("retry %s: %w", field.name, err)
		}
		*field.dst = d
	}
	return nil
}

// DefaultRetryConfig returns sensible retry defaults for model calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		AttemptTimeout:    60 * time.Second,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}
