package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/middleware/metrics"
	"careerpath/pkg/config"
)

func TestCreateClientUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "watsonx"
	cfg.ModelID = "some-model"

	factory := NewClientFactory(cfg, metrics.Nop(), nil)
	_, err := factory.CreateClient(context.Background(), "career")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "provider")
}

func TestCreateClientMissingModelID(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderOllama

	factory := NewClientFactory(cfg, metrics.Nop(), nil)
	_, err := factory.CreateClient(context.Background(), "career")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "model")
}

func TestCreateClientMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := config.Default()
	cfg.Provider = config.ProviderAnthropic
	cfg.ModelID = "claude-sonnet-4-5"

	factory := NewClientFactory(cfg, metrics.Nop(), nil)
	_, err := factory.CreateClient(context.Background(), "career")
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestCreateClientOllama(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = config.ProviderOllama
	cfg.ModelID = "llama3"

	factory := NewClientFactory(cfg, metrics.Nop(), nil)
	client, err := factory.CreateClient(context.Background(), "career")
	require.NoError(t, err)
	// Middleware preserves the underlying model name.
	assert.Equal(t, "llama3", client.GetModelName())
}

func TestMockClientScripting(t *testing.T) {
	mock := NewMockClient(nil, nil)
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("q")})
	_, err := mock.Complete(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, 1, mock.Calls())
}
