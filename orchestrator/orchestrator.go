package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/collegecompass/compass/agent"
	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/extract"
	"github.com/collegecompass/compass/internal/util"
	"github.com/collegecompass/compass/logging"
	"github.com/collegecompass/compass/provider"
)

// apologyText is the deterministic payload shown when every configured
// provider for the selected agent has failed. The conversation continues.
const apologyText = "I'm sorry, I'm having trouble reaching my counseling services right now. Please try again in a moment."

// Invoker executes one agent call with retry and failover.
type Invoker interface {
	Invoke(ctx context.Context, cfg core.AgentConfig, system string, history []core.Turn) (*core.RawAgentResponse, error)
}

// TurnResult is everything one handled turn produced. Turns holds the exact
// turns appended to the session during this call, in order, for the caller
// to hand to its message log keyed by (SessionID, ResponseID).
type TurnResult struct {
	SessionID  string
	ResponseID string
	AgentID    string
	Provider   string
	Model      string

	Prose           string
	Items           []core.ActionableItem
	Inconsistencies []string

	// Consulted names the specialist role that contributed to the answer,
	// if any.
	Consulted string
	// Degraded marks the apology payload after provider exhaustion.
	Degraded bool

	Usage        core.TokenUsage
	Latency      time.Duration
	FailoverUsed bool

	Turns []core.Turn
}

// Options configures an Orchestrator.
type Options struct {
	Logger    logging.Logger
	Extractor *extract.Extractor
}

// Orchestrator handles conversation turns. Turns for one session serialize
// through a per-session lock; turns for different sessions run in parallel.
type Orchestrator struct {
	registry  *agent.Registry
	invoker   Invoker
	extractor *extract.Extractor
	logger    logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs an Orchestrator over a registry and an invoker.
func New(registry *agent.Registry, invoker Invoker, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.New(func(o *extract.Options) {
			o.Logger = opts.Logger
		})
	}
	return &Orchestrator{
		registry:  registry,
		invoker:   invoker,
		extractor: opts.Extractor,
		logger:    opts.Logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[sessionID] = l
	}
	return l
}

// HandleTurn processes one student message: append the user turn, invoke the
// session's primary agent, extract actionable items, optionally consult a
// specialist, append the assistant turn.
//
// Provider exhaustion is a normal outcome: the result carries the apology
// payload with Degraded set and an empty item list, and no error is
// returned. Only unexpected failures surface as errors.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *core.Session, message string) (*TurnResult, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message must not be empty")
	}
	if !sess.IsOpen() {
		return nil, fmt.Errorf("session %s is closed", sess.ID)
	}

	lock := o.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := o.registry.Config(sess.PrimaryAgent)
	if err != nil {
		return nil, err
	}
	instr, err := o.registry.Instruction(sess.PrimaryAgent)
	if err != nil {
		return nil, err
	}
	system, err := instr.Resolve(sess.Profile, sess.Scratch)
	if err != nil {
		return nil, fmt.Errorf("resolve instruction for %s: %w", sess.PrimaryAgent, err)
	}

	userTurn := core.NewTurn(core.RoleUser, message)
	sess.AppendTurn(userTurn)

	raw, err := o.invoker.Invoke(ctx, cfg, system, sess.History())
	if err != nil {
		if errors.Is(err, provider.ErrProviderExhausted) {
			return o.degradedResult(sess, userTurn), nil
		}
		return nil, err
	}

	extraction := o.extractor.Extract(raw.Text)

	result := &TurnResult{
		SessionID:       sess.ID,
		ResponseID:      raw.ResponseID,
		AgentID:         raw.AgentID,
		Provider:        raw.Provider,
		Model:           raw.Model,
		Prose:           extraction.Prose,
		Items:           extraction.Items,
		Inconsistencies: extraction.Inconsistencies,
		Usage:           raw.Usage,
		Latency:         raw.Latency,
		FailoverUsed:    raw.FailoverUsed,
	}

	if role, topic, ok := routeConsult(extraction.Prose, sess.PrimaryAgent, sess.Profile); ok && o.registry.Has(role) {
		o.consult(ctx, sess, result, role, topic)
	}

	assistantTurn := core.NewTurn(core.RoleAssistant, result.Prose)
	sess.AppendTurn(assistantTurn)
	result.Turns = []core.Turn{userTurn, assistantTurn}

	return result, nil
}

// consult asks the specialist role for an authoritative addition on the
// detected topic. Consult failures degrade to the primary answer alone.
func (o *Orchestrator) consult(ctx context.Context, sess *core.Session, result *TurnResult, role, topic string) {
	cfg, err := o.registry.Config(role)
	if err != nil {
		return
	}
	instr, err := o.registry.Instruction(role)
	if err != nil {
		return
	}
	system, err := instr.Resolve(sess.Profile, sess.Scratch)
	if err != nil {
		o.logger.Warn("consult instruction failed", "role", role, "error", err)
		return
	}

	history := append(sess.History(),
		core.NewTurn(core.RoleAssistant, result.Prose),
		core.NewTurn(core.RoleUser, fmt.Sprintf(
			"The answer above mentioned %q. As the specialist for %s, add any authoritative detail the student needs. Be brief.",
			topic, agent.Specialty[role])))

	raw, err := o.invoker.Invoke(ctx, cfg, system, history)
	if err != nil {
		o.logger.Warn("specialist consult failed", "role", role, "topic", topic, "error", err)
		return
	}

	extraction := o.extractor.Extract(raw.Text)
	if extraction.Prose != "" {
		result.Prose = result.Prose + "\n\n" + extraction.Prose
	}
	result.Items = append(result.Items, extraction.Items...)
	result.Inconsistencies = append(result.Inconsistencies, extraction.Inconsistencies...)
	result.Consulted = role
	result.Usage.PromptTokens += raw.Usage.PromptTokens
	result.Usage.CompletionTokens += raw.Usage.CompletionTokens
	result.Usage.TotalTokens += raw.Usage.TotalTokens
	result.Latency += raw.Latency

	sess.SetScratch("last_consult", role)
}

func (o *Orchestrator) degradedResult(sess *core.Session, userTurn core.Turn) *TurnResult {
	o.logger.Warn("providers exhausted, returning apology",
		"session_id", sess.ID, "agent", sess.PrimaryAgent)

	assistantTurn := core.NewTurn(core.RoleAssistant, apologyText)
	sess.AppendTurn(assistantTurn)

	return &TurnResult{
		SessionID:  sess.ID,
		ResponseID: util.NewID(),
		AgentID:    sess.PrimaryAgent,
		Prose:      apologyText,
		Degraded:   true,
		Turns:      []core.Turn{userTurn, assistantTurn},
	}
}
