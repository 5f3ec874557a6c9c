package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/collegecompass/compass/core"
)

const maxFollowUps = 3

const followUpPrompt = `Based on the conversation so far, suggest up to 3 short follow-up questions the student might naturally ask next. Respond with a JSON array of strings and nothing else, for example: ["How do I register?", "When is the deadline?"]`

const summaryPrompt = `Summarize this counseling conversation in 3-5 sentences for the student's records. Cover the topics discussed and any recommendations made. Plain text only.`

// FollowUps suggests questions the student might ask next, parsed from a
// JSON response. Any failure, provider or parse, degrades to an empty list;
// follow-ups are decoration, never worth failing a turn for.
func (o *Orchestrator) FollowUps(ctx context.Context, sess *core.Session) []string {
	text, err := o.auxiliaryCall(ctx, sess, followUpPrompt)
	if err != nil {
		o.logger.Warn("follow-up generation failed", "session_id", sess.ID, "error", err)
		return nil
	}

	questions := parseJSONStrings(text)
	if len(questions) > maxFollowUps {
		questions = questions[:maxFollowUps]
	}
	return questions
}

// Summarize produces a plain-text summary of the session through the
// primary agent's provider configuration.
func (o *Orchestrator) Summarize(ctx context.Context, sess *core.Session) (string, error) {
	text, err := o.auxiliaryCall(ctx, sess, summaryPrompt)
	if err != nil {
		return "", fmt.Errorf("summarize session %s: %w", sess.ID, err)
	}
	return strings.TrimSpace(text), nil
}

// auxiliaryCall runs a side request over the session history without
// appending to it.
func (o *Orchestrator) auxiliaryCall(ctx context.Context, sess *core.Session, prompt string) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("session is required")
	}

	cfg, err := o.registry.Config(sess.PrimaryAgent)
	if err != nil {
		return "", err
	}

	history := append(sess.History(), core.NewTurn(core.RoleUser, prompt))
	raw, err := o.invoker.Invoke(ctx, cfg, "You are a helpful college counseling assistant.", history)
	if err != nil {
		return "", err
	}
	return raw.Text, nil
}

// parseJSONStrings pulls a JSON string array out of model output, tolerating
// surrounding prose or code fences.
func parseJSONStrings(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	var out []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil
	}

	kept := out[:0]
	for _, q := range out {
		if q = strings.TrimSpace(q); q != "" {
			kept = append(kept, q)
		}
	}
	return kept
}
