// Package compass wires the counseling engine together: agent registry,
// provider adapter with failover, conversation orchestrator, actionable-item
// extraction, and the versioned plan integrator.
//
// Everything is explicitly constructed from a Config; there are no
// process-wide singletons. The Engine is safe for concurrent use.
package compass

import (
	"context"
	"fmt"

	"github.com/collegecompass/compass/agent"
	"github.com/collegecompass/compass/config"
	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/logging"
	"github.com/collegecompass/compass/orchestrator"
	"github.com/collegecompass/compass/plan"
	plansqlite "github.com/collegecompass/compass/plan/sqlite"
	"github.com/collegecompass/compass/provider"
	"github.com/collegecompass/compass/provider/anthropic"
	"github.com/collegecompass/compass/provider/openai"
	"github.com/collegecompass/compass/session"
)

// Options configures Engine construction. Every field is optional; the zero
// value wires in-memory stores and the providers named in the config.
type Options struct {
	Logger       logging.Logger
	SessionStore core.SessionStore
	MessageLog   core.MessageLog
	PlanStore    core.PlanStore
	// Providers overrides the providers built from config, keyed by name.
	Providers []provider.Provider
}

// Engine is the assembled counseling core.
type Engine struct {
	cfg          *config.Config
	logger       logging.Logger
	registry     *agent.Registry
	adapter      *provider.Adapter
	orchestrator *orchestrator.Orchestrator
	integrator   *plan.Integrator

	sessions core.SessionStore
	log      core.MessageLog
	plans    core.PlanStore
}

// New assembles an Engine from configuration.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := Options{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}

	providers := opts.Providers
	if providers == nil {
		var err error
		providers, err = buildProviders(cfg)
		if err != nil {
			return nil, err
		}
	}

	adapter := provider.NewAdapter(providers, func(o *provider.AdapterOptions) {
		o.Retry = cfg.Retry
		o.Logger = opts.Logger
	})

	registry, err := agent.NewRegistry(cfg.AgentConfigs(), cfg.Prompts)
	if err != nil {
		return nil, fmt.Errorf("build agent registry: %w", err)
	}

	plans := opts.PlanStore
	if plans == nil {
		if cfg.Storage.PlanDB != "" {
			store, err := plansqlite.New(cfg.Storage.PlanDB)
			if err != nil {
				return nil, fmt.Errorf("open plan store: %w", err)
			}
			plans = store
		} else {
			plans = plan.NewMemoryStore()
		}
	}

	sessions := opts.SessionStore
	log := opts.MessageLog
	if sessions == nil {
		memory := session.NewInMemoryStore()
		sessions = memory
		if log == nil {
			log = memory
		}
	}
	if log == nil {
		return nil, fmt.Errorf("a message log is required when injecting a session store")
	}

	return &Engine{
		cfg:      cfg,
		logger:   opts.Logger,
		registry: registry,
		adapter:  adapter,
		orchestrator: orchestrator.New(registry, adapter, func(o *orchestrator.Options) {
			o.Logger = opts.Logger
		}),
		integrator: plan.NewIntegrator(plans, func(o *plan.IntegratorOptions) {
			o.Logger = opts.Logger
		}),
		sessions: sessions,
		log:      log,
		plans:    plans,
	}, nil
}

func buildProviders(cfg *config.Config) ([]provider.Provider, error) {
	var out []provider.Provider
	for name, pc := range cfg.Providers {
		switch name {
		case anthropic.Name:
			out = append(out, anthropic.New(func(o *anthropic.Options) {
				o.APIKey = pc.APIKey
			}))
		case openai.Name:
			out = append(out, openai.New(func(o *openai.Options) {
				o.APIKey = pc.APIKey
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q in config", name)
		}
	}
	return out, nil
}

// Registry exposes the agent registry, for listing roles.
func (e *Engine) Registry() *agent.Registry { return e.registry }

// StartSession opens a session with a fixed primary agent. An empty
// primaryAgent defaults to the counselor role.
func (e *Engine) StartSession(ctx context.Context, studentID, primaryAgent string, profile *core.StudentProfile) (*core.Session, error) {
	if primaryAgent == "" {
		primaryAgent = agent.RoleCounselor
	}
	if !e.registry.Has(primaryAgent) {
		return nil, fmt.Errorf("unknown agent: %s", primaryAgent)
	}
	return e.sessions.Create(ctx, studentID, primaryAgent, profile)
}

// Session resolves a session by id.
func (e *Engine) Session(ctx context.Context, sessionID string) (*core.Session, error) {
	return e.sessions.Get(ctx, sessionID)
}

// CloseSession ends a session. Its turns remain readable.
func (e *Engine) CloseSession(ctx context.Context, sessionID string) error {
	return e.sessions.Close(ctx, sessionID)
}

// SendMessage handles one conversation turn and writes the appended turns to
// the durable message log keyed by (session id, response id).
func (e *Engine) SendMessage(ctx context.Context, sessionID, message string) (*orchestrator.TurnResult, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := e.orchestrator.HandleTurn(ctx, sess, message)
	if err != nil {
		return nil, err
	}

	if err := e.log.Append(ctx, result.SessionID, result.ResponseID, result.Turns); err != nil {
		// The turn already happened; a log failure must not lose the answer.
		e.logger.Error("message log append failed",
			"session_id", result.SessionID,
			"response_id", result.ResponseID,
			"error", err)
	}

	return result, nil
}

// FollowUps suggests next questions for a session; failures degrade to none.
func (e *Engine) FollowUps(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.orchestrator.FollowUps(ctx, sess), nil
}

// Summarize produces a plain-text summary of a session.
func (e *Engine) Summarize(ctx context.Context, sessionID string) (string, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return e.orchestrator.Summarize(ctx, sess)
}

// AcceptItems integrates the items a student accepted from one response into
// their plan. The session supplies the profile snapshot used for grade
// assignment.
func (e *Engine) AcceptItems(ctx context.Context, sessionID, responseID string, items []core.ActionableItem) (*core.PlanVersion, []plan.Rejection, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	source := core.ItemSource{SessionID: sessionID, ResponseID: responseID}
	return e.integrator.Integrate(ctx, sess.StudentID, sess.Profile, items, source, sess.StudentID)
}

// RevertPlan rolls a student's plan back to an earlier version by creating a
// new version with that active-entry set.
func (e *Engine) RevertPlan(ctx context.Context, studentID string, toVersion int, actor string) (*core.PlanVersion, error) {
	return e.integrator.Revert(ctx, studentID, toVersion, actor)
}

// RemovePlanItem marks one plan entry inactive.
func (e *Engine) RemovePlanItem(ctx context.Context, studentID, entryID, actor string) (*core.PlanVersion, error) {
	return e.integrator.Remove(ctx, studentID, entryID, actor)
}

// ActivePlan returns the student's current active entries.
func (e *Engine) ActivePlan(ctx context.Context, studentID string) ([]core.PlanEntry, error) {
	return e.plans.ActiveEntries(ctx, studentID)
}

// PlanVersions returns the student's version history, oldest first.
func (e *Engine) PlanVersions(ctx context.Context, studentID string) ([]core.PlanVersion, error) {
	return e.plans.Versions(ctx, studentID)
}

// ExportPlan builds the grade-grouped export of the student's active plan.
func (e *Engine) ExportPlan(ctx context.Context, studentID string) (*plan.Export, error) {
	return plan.BuildExport(ctx, e.plans, studentID)
}

// Close releases resources held by owned stores.
func (e *Engine) Close() error {
	if closer, ok := e.plans.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
