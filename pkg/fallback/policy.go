// Package fallback implements the shared degradation policy: bounded retries
// for retryable failures, immediate static substitution for credential and
// configuration failures, and the built-in recommendation catalog used as
// the substitute. Every agent routes remote failures through this package so
// retry semantics are identical across the system.
package fallback

import (
	"math/rand"
	"sync"
	"time"

	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/agent/middleware/metrics"
)

// ActionKind discriminates the policy decision.
type ActionKind int8

const (
	// ActionRetry schedules another attempt after a backoff delay.
	ActionRetry ActionKind = iota
	// ActionDegrade substitutes a static recommendation for the answer.
	ActionDegrade
	// ActionPropagate returns the error unchanged. Reserved for error types
	// the policy should never see (in-agent branch signals).
	ActionPropagate
)

// Action is the policy decision for one observed failure.
type Action struct {
	Kind  ActionKind
	After time.Duration // backoff delay, set for ActionRetry
}

// Policy decides, for every classified error type and retry count, whether
// to retry, degrade, or propagate. The decision function is total: no error
// type falls through to an undefined outcome.
type Policy struct {
	configs  map[llmerrors.ErrorType]llmerrors.RetryConfig
	recorder metrics.Recorder

	mu   sync.Mutex
	rng  *rand.Rand
	seen map[llmerrors.ErrorType]bool // once-per-process log gate
}

// NewPolicy creates a policy using the default per-type retry table.
func NewPolicy() *Policy {
	return NewPolicyWithConfigs(llmerrors.DefaultRetryConfigs)
}

// NewPolicyWithConfigs creates a policy with a custom retry table. Types
// absent from the table fall back to the Unknown entry.
func NewPolicyWithConfigs(configs map[llmerrors.ErrorType]llmerrors.RetryConfig) *Policy {
	return &Policy{
		configs:  configs,
		recorder: metrics.Nop(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		seen:     make(map[llmerrors.ErrorType]bool),
	}
}

// SetRecorder routes retry counts to a metrics recorder. The default is the
// no-op recorder.
func (p *Policy) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.Nop()
	}
	p.recorder = r
}

// recordRetry counts one scheduled retry for the named agent.
func (p *Policy) recordRetry(agentName string, errType llmerrors.ErrorType) {
	p.recorder.IncRetry(agentName, errType.String())
}

// Decide returns the action for an error of the given type observed after
// retriesSoFar completed retries.
func (p *Policy) Decide(errType llmerrors.ErrorType, retriesSoFar int) Action {
	switch errType {
	case llmerrors.ErrorTypeAuth, llmerrors.ErrorTypeAccess, llmerrors.ErrorTypeBadPrompt:
		return Action{Kind: ActionDegrade}
	case llmerrors.ErrorTypeNoMatch, llmerrors.ErrorTypeNotFound:
		// In-agent branch signals. An agent that routes these here has a
		// state machine bug; surface the error instead of masking it.
		return Action{Kind: ActionPropagate}
	}

	cfg, ok := p.configs[errType]
	if !ok {
		cfg = p.configs[llmerrors.ErrorTypeUnknown]
	}
	if retriesSoFar >= cfg.MaxRetries {
		return Action{Kind: ActionDegrade}
	}
	return Action{Kind: ActionRetry, After: p.backoff(cfg, retriesSoFar)}
}

// backoff computes the exponential delay for the next attempt.
func (p *Policy) backoff(cfg llmerrors.RetryConfig, retriesSoFar int) time.Duration {
	delay := cfg.InitialDelay
	for i := 0; i < retriesSoFar; i++ {
		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	if cfg.Jitter && delay > 0 {
		p.mu.Lock()
		delay = delay/2 + time.Duration(p.rng.Int63n(int64(delay/2)+1))
		p.mu.Unlock()
	}
	return delay
}

// shouldLog reports whether a failure of this type has been logged yet this
// process, flipping the gate. Used to log credential failures exactly once.
func (p *Policy) shouldLog(errType llmerrors.ErrorType) bool {
	if errType != llmerrors.ErrorTypeAuth && errType != llmerrors.ErrorTypeAccess {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[errType] {
		return false
	}
	p.seen[errType] = true
	return true
}
