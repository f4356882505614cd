package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"careerpath/pkg/agent/llmerrors"
)

func TestDecideIsTotal(t *testing.T) {
	policy := NewPolicy()

	// Every error type resolves to a defined action at every retry count.
	for et := llmerrors.ErrorTypeTransient; et <= llmerrors.ErrorTypeNotFound; et++ {
		for retries := 0; retries < 10; retries++ {
			action := policy.Decide(et, retries)
			assert.Contains(t, []ActionKind{ActionRetry, ActionDegrade, ActionPropagate}, action.Kind)
		}
	}
}

func TestDecideNonRetryableDegradesImmediately(t *testing.T) {
	policy := NewPolicy()

	for _, et := range []llmerrors.ErrorType{llmerrors.ErrorTypeAuth, llmerrors.ErrorTypeAccess, llmerrors.ErrorTypeBadPrompt} {
		action := policy.Decide(et, 0)
		assert.Equal(t, ActionDegrade, action.Kind, "%s must degrade without retrying", et)
	}
}

func TestDecideBranchSignalsPropagate(t *testing.T) {
	policy := NewPolicy()

	assert.Equal(t, ActionPropagate, policy.Decide(llmerrors.ErrorTypeNoMatch, 0).Kind)
	assert.Equal(t, ActionPropagate, policy.Decide(llmerrors.ErrorTypeNotFound, 0).Kind)
}

func TestDecideRetryBudgetIsBounded(t *testing.T) {
	policy := NewPolicy()

	for _, et := range []llmerrors.ErrorType{llmerrors.ErrorTypeTransient, llmerrors.ErrorTypeRateLimit, llmerrors.ErrorTypeProtocol, llmerrors.ErrorTypeUnknown} {
		budget := llmerrors.DefaultRetryConfigs[et].MaxRetries
		for retries := 0; retries < budget; retries++ {
			assert.Equal(t, ActionRetry, policy.Decide(et, retries).Kind)
		}
		assert.Equal(t, ActionDegrade, policy.Decide(et, budget).Kind,
			"%s must degrade once the budget is spent", et)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	policy := NewPolicyWithConfigs(map[llmerrors.ErrorType]llmerrors.RetryConfig{
		llmerrors.ErrorTypeTransient: {
			MaxRetries:    10,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      400 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	})

	first := policy.Decide(llmerrors.ErrorTypeTransient, 0)
	assert.Equal(t, 100*time.Millisecond, first.After)

	second := policy.Decide(llmerrors.ErrorTypeTransient, 1)
	assert.Equal(t, 200*time.Millisecond, second.After)

	capped := policy.Decide(llmerrors.ErrorTypeTransient, 5)
	assert.Equal(t, 400*time.Millisecond, capped.After)
}

func TestBackoffJitterStaysWithinDelay(t *testing.T) {
	policy := NewPolicy()
	cfg := llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeTransient]

	for i := 0; i < 50; i++ {
		action := policy.Decide(llmerrors.ErrorTypeTransient, 0)
		assert.GreaterOrEqual(t, action.After, cfg.InitialDelay/2)
		assert.LessOrEqual(t, action.After, cfg.InitialDelay)
	}
}

func TestAuthLoggedOnce(t *testing.T) {
	policy := NewPolicy()

	assert.True(t, policy.shouldLog(llmerrors.ErrorTypeAuth))
	assert.False(t, policy.shouldLog(llmerrors.ErrorTypeAuth))

	// Other types are never gated.
	assert.True(t, policy.shouldLog(llmerrors.ErrorTypeTransient))
	assert.True(t, policy.shouldLog(llmerrors.ErrorTypeTransient))
}
