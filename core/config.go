package core

// FallbackConfig names the provider/model pair substituted after the primary
// provider is exhausted. The adapter never chains beyond one fallback hop.
type FallbackConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
}

// AgentConfig binds a reasoning role to a provider configuration and prompt
// template. Instances are built once at startup and never mutated afterwards,
// so they are safe to share across goroutines without locking.
type AgentConfig struct {
	ID             string          `json:"id" yaml:"id"`
	Provider       string          `json:"provider" yaml:"provider"`
	Model          string          `json:"model" yaml:"model"`
	Temperature    float64         `json:"temperature" yaml:"temperature"`
	MaxTokens      int64           `json:"max_tokens" yaml:"max_tokens"`
	PromptTemplate string          `json:"prompt_template" yaml:"prompt_template"`
	Fallback       *FallbackConfig `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}
