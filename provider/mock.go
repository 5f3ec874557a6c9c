package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/collegecompass/compass/core"
)

// MockProvider is a lightweight in-memory Provider useful for tests. Canned
// responses are keyed by the last user message; scripted errors are consumed
// in order before any response is served, which makes retry and failover
// paths deterministic to exercise.
type MockProvider struct {
	mu        sync.Mutex
	name      string
	responses map[string]string
	errs      []error
	calls     int
}

// NewMockProvider constructs a MockProvider with the given name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name, responses: make(map[string]string)}
}

// AddResponse registers a deterministic canned completion for an input message.
func (m *MockProvider) AddResponse(message, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[message] = response
}

// FailWith queues errors returned by subsequent Invoke calls, in order.
func (m *MockProvider) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// Calls returns the number of Invoke calls observed.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name implements Provider.
func (m *MockProvider) Name() string { return m.name }

// Invoke implements Provider.
func (m *MockProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			input = req.Messages[i].Content
			break
		}
	}

	text, ok := m.responses[input]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", input)
	}

	return &Response{
		Text:         text,
		FinishReason: "stop",
		Usage: core.TokenUsage{
			PromptTokens:     len(input),
			CompletionTokens: len(text),
			TotalTokens:      len(input) + len(text),
		},
	}, nil
}
