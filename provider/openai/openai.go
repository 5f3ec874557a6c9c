// Package openai implements provider.Provider over the OpenAI Chat
// Completions API using the official client.
package openai

import (
	"context"
	"fmt"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Name is the provider identifier agent configs reference.
const Name = "openai"

// Options configures the OpenAI binding.
type Options struct {
	APIKey string
}

// Provider wraps the OpenAI Chat Completions API behind provider.Provider.
type Provider struct {
	client *openai.Client
}

// New creates an OpenAI provider using the official client. Without an
// explicit APIKey the client falls back to the OPENAI_API_KEY env var.
func New(optFns ...func(o *Options)) *Provider {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := openai.NewClient(clientOpts...)
	return &Provider{client: &client}
}

// NewFromClient creates a provider from an existing client.
func NewFromClient(client *openai.Client) *Provider {
	return &Provider{client: client}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return Name }

// Invoke implements provider.Provider.
func (p *Provider) Invoke(ctx context.Context, req provider.Request) (*provider.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    buildMessages(req),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	ch0 := resp.Choices[0]

	return &provider.Response{
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: core.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// buildMessages converts the system prompt plus conversation turns into
// OpenAI chat messages.
func buildMessages(req provider.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, t := range req.Messages {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Content))
		default:
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	return messages
}
