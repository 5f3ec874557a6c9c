package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/util"
	"github.com/collegecompass/compass/logging"
)

// AdapterOptions configures an Adapter instance.
type AdapterOptions struct {
	// Retry is the default retry policy applied when no per-provider
	// override exists.
	Retry RetryConfig
	// RetryOverrides maps provider names to their own retry policy.
	RetryOverrides map[string]RetryConfig
	// Logger receives call accounting; defaults to NoOpLogger.
	Logger logging.Logger
}

// Adapter executes model calls through registered providers with bounded
// retries, exponential backoff, a hard per-attempt timeout, and exactly one
// fallback hop. Every call, successful or not, records latency and which
// provider actually served the request.
//
// The provider set is fixed at construction; Adapter is safe for concurrent
// use without additional locking.
type Adapter struct {
	mu        sync.RWMutex
	providers map[string]Provider
	retry     RetryConfig
	overrides map[string]RetryConfig
	logger    logging.Logger
}

// NewAdapter constructs an Adapter over the given providers.
func NewAdapter(providers []Provider, optFns ...func(o *AdapterOptions)) *Adapter {
	opts := AdapterOptions{
		Retry:  DefaultRetryConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Adapter{
		providers: byName,
		retry:     opts.Retry,
		overrides: opts.RetryOverrides,
		logger:    opts.Logger,
	}
}

// Register adds or replaces a provider. Intended for test wiring before the
// adapter is shared across goroutines.
func (a *Adapter) Register(p Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[p.Name()] = p
}

func (a *Adapter) provider(name string) (Provider, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.providers[name]
	return p, ok
}

func (a *Adapter) retryFor(name string) RetryConfig {
	if cfg, ok := a.overrides[name]; ok {
		return cfg
	}
	return a.retry
}

// Invoke executes one agent call: retries on the configured primary, then
// exactly one additional attempt cycle on the configured fallback. It fails
// with ErrProviderExhausted only when every configured provider failed.
//
// The returned RawAgentResponse always carries the provider that actually
// served the request, total latency across all attempts, and whether
// failover was triggered.
func (a *Adapter) Invoke(ctx context.Context, cfg core.AgentConfig, system string, history []core.Turn) (*core.RawAgentResponse, error) {
	started := time.Now()

	req := Request{
		Model:       cfg.Model,
		System:      system,
		Messages:    history,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	resp, attempts, err := a.tryProvider(ctx, cfg.Provider, req)
	failover := false
	servedBy := cfg.Provider
	model := cfg.Model

	if err != nil && cfg.Fallback != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("primary provider exhausted, failing over",
			"agent_id", cfg.ID,
			"provider", cfg.Provider,
			"fallback", cfg.Fallback.Provider,
			"error", err)

		failover = true
		servedBy = cfg.Fallback.Provider
		model = cfg.Fallback.Model

		fbReq := req
		fbReq.Model = cfg.Fallback.Model
		var fbAttempts int
		resp, fbAttempts, err = a.tryProvider(ctx, cfg.Fallback.Provider, fbReq)
		attempts += fbAttempts
	}

	latency := time.Since(started)

	if err != nil {
		logging.LogProviderCall(a.logger, cfg.ID, servedBy, model, latency, 0, failover, err)
		return nil, fmt.Errorf("%w: %s", ErrProviderExhausted, err)
	}

	raw := &core.RawAgentResponse{
		ResponseID:   util.NewID(),
		AgentID:      cfg.ID,
		Provider:     servedBy,
		Model:        model,
		Text:         resp.Text,
		Latency:      latency,
		Usage:        resp.Usage,
		Attempts:     attempts,
		FailoverUsed: failover,
	}

	logging.LogProviderCall(a.logger, cfg.ID, servedBy, model, latency, resp.Usage.TotalTokens, failover, nil)

	return raw, nil
}

// tryProvider runs the bounded retry loop against one provider and reports
// how many attempts were consumed.
func (a *Adapter) tryProvider(ctx context.Context, name string, req Request) (*Response, int, error) {
	p, ok := a.provider(name)
	if !ok {
		return nil, 0, NewFatalError(fmt.Errorf("unknown provider: %s", name))
	}

	retry := a.retryFor(name)
	var lastErr error

	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		resp, err := a.attempt(ctx, p, req, retry.AttemptTimeout)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err

		if IsFatal(err) || errors.Is(err, context.Canceled) {
			return nil, attempt, err
		}

		if attempt < retry.MaxAttempts {
			backoff := calculateBackoff(retry, attempt)
			a.logger.Debug("provider attempt failed, retrying",
				"provider", name,
				"attempt", attempt,
				"max_attempts", retry.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, attempt, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, retry.MaxAttempts, lastErr
}

// attempt performs a single call under the hard per-attempt timeout. A
// deadline hit is reported as transient so the retry/failover policy
// applies; the in-flight call is left to finish on its own and discarded.
func (a *Adapter) attempt(ctx context.Context, p Provider, req Request, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := p.Invoke(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewTransientError(fmt.Errorf("provider %s timed out: %w", p.Name(), err))
		}
		return nil, err
	}
	return resp, nil
}

// calculateBackoff computes exponential backoff with +/- 25% jitter to
// prevent synchronized retries.
func calculateBackoff(cfg RetryConfig, attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= cfg.BackoffMultiplier
	}

	backoff := time.Duration(float64(cfg.BackoffBase) * multiplier)
	if backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
