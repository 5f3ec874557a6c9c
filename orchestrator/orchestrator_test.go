package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collegecompass/compass/agent"
	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/testutil"
	"github.com/collegecompass/compass/provider"
)

// scriptedInvoker returns queued responses or errors, recording the configs
// it was invoked with.
type scriptedInvoker struct {
	responses []*core.RawAgentResponse
	errs      []error
	calls     []core.AgentConfig
}

func (s *scriptedInvoker) Invoke(_ context.Context, cfg core.AgentConfig, _ string, _ []core.Turn) (*core.RawAgentResponse, error) {
	s.calls = append(s.calls, cfg)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.responses) == 0 {
		return nil, errors.New("scripted invoker: no response queued")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedInvoker) queue(agentID, text string) {
	raw := testutil.RawResponse(agentID, text)
	raw.ResponseID = fmt.Sprintf("resp-%d", len(s.responses)+1)
	s.responses = append(s.responses, raw)
	s.errs = append(s.errs, nil)
}

func testRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	var configs []core.AgentConfig
	for _, id := range agent.Roles() {
		configs = append(configs, core.AgentConfig{
			ID:       id,
			Provider: "anthropic",
			Model:    "claude-sonnet-4-0",
		})
	}
	registry, err := agent.NewRegistry(configs, nil)
	require.NoError(t, err)
	return registry
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	o := New(testRegistry(t), &scriptedInvoker{})

	_, err := o.HandleTurn(t.Context(), testutil.Session(agent.RoleCounselor), "   ")
	assert.Error(t, err)
}

func TestHandleTurnRejectsClosedSession(t *testing.T) {
	o := New(testRegistry(t), &scriptedInvoker{})

	sess := testutil.Session(agent.RoleCounselor)
	sess.Close()

	_, err := o.HandleTurn(t.Context(), sess, "hello")
	assert.Error(t, err)
}

func TestHandleTurnAppendsTurnsInOrder(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, "Focus on your math grade this semester.")

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleCounselor)

	result, err := o.HandleTurn(t.Context(), sess, "What should I work on?")
	require.NoError(t, err)

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "What should I work on?", history[0].Content)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, result.Prose, history[1].Content)

	require.Len(t, result.Turns, 2)
	assert.Equal(t, history[0].Content, result.Turns[0].Content)
	assert.Equal(t, "resp-1", result.ResponseID)
	assert.False(t, result.Degraded)
}

func TestHandleTurnExtractsItems(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor,
		"Here is one idea. <actionable id=\"a1\">Join the math olympiad team</actionable>\n[system]\nactionable:\n[1]\ncategory: Extracurricular Activities\nyear: \"11th\"\n[/system]")

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleCounselor)

	result, err := o.HandleTurn(t.Context(), sess, "Any ideas?")
	require.NoError(t, err)

	assert.Equal(t, "Here is one idea. Join the math olympiad team", result.Prose)
	require.Len(t, result.Items, 1)
	assert.Equal(t, core.CategoryExtracurricular, result.Items[0].Category)

	// The displayed turn carries the stripped prose, never raw markup.
	history := sess.History()
	assert.NotContains(t, history[1].Content, "[system]")
	assert.NotContains(t, history[1].Content, "<actionable")
}

func TestHandleTurnReturnsApologyOnExhaustion(t *testing.T) {
	invoker := &scriptedInvoker{
		errs: []error{fmt.Errorf("%w: all attempts failed", provider.ErrProviderExhausted)},
	}

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleCounselor)

	result, err := o.HandleTurn(t.Context(), sess, "hello?")
	require.NoError(t, err, "exhaustion is a normal outcome, not an error")

	assert.True(t, result.Degraded)
	assert.Equal(t, apologyText, result.Prose)
	assert.Empty(t, result.Items)
	assert.NotEmpty(t, result.ResponseID)

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, apologyText, history[1].Content)
	assert.True(t, sess.IsOpen(), "the conversation continues after an apology")
}

func TestHandleTurnSurfacesUnexpectedErrors(t *testing.T) {
	invoker := &scriptedInvoker{errs: []error{errors.New("wiring broken")}}

	o := New(testRegistry(t), invoker)

	_, err := o.HandleTurn(t.Context(), testutil.Session(agent.RoleCounselor), "hello")
	assert.Error(t, err)
}

func TestHandleTurnConsultsTimelineOnDeadlineMention(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, "You should watch the application deadline for State University.")
	invoker.queue(agent.RoleTimeline, "Regular decision closes January 1.")

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleCounselor)

	result, err := o.HandleTurn(t.Context(), sess, "When should I apply?")
	require.NoError(t, err)

	assert.Equal(t, agent.RoleTimeline, result.Consulted)
	assert.Contains(t, result.Prose, "Regular decision closes January 1.")
	require.Len(t, invoker.calls, 2)
	assert.Equal(t, agent.RoleTimeline, invoker.calls[1].ID)

	hint, ok := sess.GetScratch("last_consult")
	require.True(t, ok)
	assert.Equal(t, agent.RoleTimeline, hint)
}

func TestHandleTurnConsultFailureDegradesToPrimaryAnswer(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, "Mind the essay prompts for your list.")
	invoker.errs = append(invoker.errs, fmt.Errorf("%w: all attempts failed", provider.ErrProviderExhausted))

	o := New(testRegistry(t), invoker)

	result, err := o.HandleTurn(t.Context(), testutil.Session(agent.RoleCounselor), "What next?")
	require.NoError(t, err)

	assert.Empty(t, result.Consulted)
	assert.Equal(t, "Mind the essay prompts for your list.", result.Prose)
}

func TestHandleTurnNoConsultForOwnSpecialty(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleTimeline, "The deadline is January 1.")

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleTimeline)

	result, err := o.HandleTurn(t.Context(), sess, "When is it due?")
	require.NoError(t, err)

	// "deadline" maps to the timeline role, which is already primary. The
	// profile deadline hint is skipped for the same reason.
	assert.Empty(t, result.Consulted)
	assert.Len(t, invoker.calls, 1)
}

func TestHandleTurnSerializesPerSession(t *testing.T) {
	invoker := &scriptedInvoker{}
	for i := 0; i < 4; i++ {
		invoker.queue(agent.RoleCounselor, "ok")
	}

	o := New(testRegistry(t), invoker)
	sess := testutil.Session(agent.RoleCounselor)

	for i := 0; i < 4; i++ {
		_, err := o.HandleTurn(t.Context(), sess, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	history := sess.History()
	require.Len(t, history, 8)
	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("message %d", i), history[2*i].Content)
	}
}

func TestFollowUpsParsesJSON(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, `Here you go: ["How do I register?", "When is the deadline?"]`)

	o := New(testRegistry(t), invoker)

	questions := o.FollowUps(t.Context(), testutil.Session(agent.RoleCounselor))
	assert.Equal(t, []string{"How do I register?", "When is the deadline?"}, questions)
}

func TestFollowUpsDegradeToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		invoker *scriptedInvoker
	}{
		{"provider failure", &scriptedInvoker{errs: []error{errors.New("boom")}}},
		{"unparseable output", func() *scriptedInvoker {
			inv := &scriptedInvoker{}
			inv.queue(agent.RoleCounselor, "no json here")
			return inv
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(testRegistry(t), tt.invoker)
			assert.Empty(t, o.FollowUps(t.Context(), testutil.Session(agent.RoleCounselor)))
		})
	}
}

func TestFollowUpsCapped(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, `["q1","q2","q3","q4","q5"]`)

	o := New(testRegistry(t), invoker)

	questions := o.FollowUps(t.Context(), testutil.Session(agent.RoleCounselor))
	assert.Len(t, questions, maxFollowUps)
}

func TestSummarize(t *testing.T) {
	invoker := &scriptedInvoker{}
	invoker.queue(agent.RoleCounselor, "  The student asked about SAT timing.  ")

	o := New(testRegistry(t), invoker)

	summary, err := o.Summarize(t.Context(), testutil.Session(agent.RoleCounselor))
	require.NoError(t, err)
	assert.Equal(t, "The student asked about SAT timing.", summary)
}

func TestRouteConsultProfileDeadlineHint(t *testing.T) {
	profile := testutil.Profile()

	role, topic, ok := routeConsult("State University has rolling admissions.", agent.RoleCounselor, profile)
	require.True(t, ok)
	assert.Equal(t, agent.RoleTimeline, role)
	assert.Equal(t, "State University", topic)

	_, _, ok = routeConsult("Nothing relevant here.", agent.RoleCounselor, profile)
	assert.False(t, ok)
}
