package career

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
)

func fastPolicy() *fallback.Policy {
	return fallback.NewPolicyWithConfigs(map[llmerrors.ErrorType]llmerrors.RetryConfig{
		llmerrors.ErrorTypeTransient: {MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1.0},
		llmerrors.ErrorTypeAuth:      {MaxRetries: 0},
	})
}

func newTestAgent(t *testing.T, client llm.Client) *Agent {
	t.Helper()
	cfg := config.Default()
	cfg.ModelID = "test-model"
	a, err := New(client, fastPolicy(), cfg)
	require.NoError(t, err)
	return a
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, nil, config.Default())
	require.Error(t, err)
	assert.True(t, agent.IsConfigError(err))
}

func TestAnalyzeUngrounded(t *testing.T) {
	mock := agent.NewMockClient([]llm.CompletionResponse{
		{Content: "Learn Go and distributed systems.", StopReason: "end_turn"},
	}, nil)
	a := newTestAgent(t, mock)

	result, err := a.Analyze(context.Background(), agent.Query{Text: "what should I learn?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.KindUngrounded, result.Kind)
	assert.Equal(t, "Learn Go and distributed systems.", result.Text)
	assert.Empty(t, result.Citations)
}

func TestAnalyzeDegradesOnAuthFailure(t *testing.T) {
	mock := agent.NewMockClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad credentials"),
	})
	a := newTestAgent(t, mock)

	query := agent.Query{Text: "help me plan", Goal: "Data Scientist"}
	result, err := a.Analyze(context.Background(), query, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.KindDegraded, result.Kind)
	assert.Contains(t, result.Text, "Kaggle")
	assert.Contains(t, result.Reason, "auth")
	assert.Contains(t, result.Reason, fallback.CatalogVersion)
	// Non-retryable: exactly one attempt.
	assert.Equal(t, 1, mock.Calls())
}

func TestAnalyzeRetriesTransientThenSucceeds(t *testing.T) {
	mock := agent.NewMockClient(
		[]llm.CompletionResponse{{Content: "answer", StopReason: "end_turn"}},
		[]error{llmerrors.NewError(llmerrors.ErrorTypeTransient, "blip")},
	)
	a := newTestAgent(t, mock)

	result, err := a.Analyze(context.Background(), agent.Query{Text: "q"}, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.KindUngrounded, result.Kind)
	assert.Equal(t, 2, mock.Calls())
}

func TestAnalyzeCancellationYieldsNoResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := agent.NewMockClient(nil, []error{
		llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, context.Canceled, "canceled"),
	})
	a := newTestAgent(t, mock)

	_, err := a.Analyze(ctx, agent.Query{Text: "q"}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeIncludesSessionHistory(t *testing.T) {
	session := agent.NewSession()
	session.Append(agent.Query{Text: "earlier question"}, agent.Ungrounded("earlier answer"))

	mock := agent.NewMockClient([]llm.CompletionResponse{{Content: "followup"}}, nil)
	a := newTestAgent(t, mock)

	result, err := a.Analyze(context.Background(), agent.Query{Text: "and then?"}, session)
	require.NoError(t, err)
	assert.Equal(t, agent.KindUngrounded, result.Kind)
}
