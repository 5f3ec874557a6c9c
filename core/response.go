package core

import "time"

// TokenUsage captures token consumption for one provider call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RawAgentResponse is the completed text payload from a provider call plus
// the accounting metadata every call must record: which provider actually
// served the request, observed latency, and whether failover was used.
// It is transient; only the message log persists the text.
type RawAgentResponse struct {
	ResponseID   string        `json:"response_id"`
	AgentID      string        `json:"agent_id"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Text         string        `json:"text"`
	Latency      time.Duration `json:"latency"`
	Usage        TokenUsage    `json:"usage"`
	Attempts     int           `json:"attempts"`
	FailoverUsed bool          `json:"failover_used"`
}
