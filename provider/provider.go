package provider

import (
	"context"

	"github.com/collegecompass/compass/core"
)

// Request is the normalized model input the adapter hands to a backend.
type Request struct {
	// Model is the provider-specific model identifier.
	Model string
	// System is the resolved system prompt for the agent role.
	System string
	// Messages is the conversation history, oldest first.
	Messages []core.Turn
	// Temperature controls randomness.
	Temperature float64
	// MaxTokens limits response length. 0 uses the provider default.
	MaxTokens int64
}

// Response is the completed text payload from a single backend call.
type Response struct {
	Text         string
	FinishReason string
	Usage        core.TokenUsage
}

// Provider is the capability interface every backend implements.
type Provider interface {
	// Name returns the provider identifier (e.g. "anthropic", "openai").
	Name() string

	// Invoke performs one generation call. Implementations must respect
	// context cancellation and return errors classified via this package's
	// Transient/Fatal wrappers where the distinction is known.
	Invoke(ctx context.Context, req Request) (*Response, error)
}
