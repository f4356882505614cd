package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderBedrock, cfg.Provider)
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.InDelta(t, 0.2, cfg.Temperature, 0.001)
	assert.Equal(t, 10000, cfg.MaxTokens)
	assert.Equal(t, 5, cfg.KBMaxResults)
	assert.InDelta(t, 0.7, cfg.SimilarityThreshold, 0.001)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: ollama
model_id: llama3
ollama_host: http://127.0.0.1:11434
kb_max_results: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3", cfg.ModelID)
	assert.Equal(t, 3, cfg.KBMaxResults)
	// Untouched fields keep defaults.
	assert.InDelta(t, 0.7, cfg.SimilarityThreshold, 0.001)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("INFERENCE_PROFILE_ARN", "llama3")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("KB_MAX_RESULTS", "7")
	t.Setenv("KB_SIMILARITY_THRESHOLD", "0.9")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "llama3", cfg.ModelID)
	assert.InDelta(t, 0.5, cfg.Temperature, 0.001)
	assert.Equal(t, 7, cfg.KBMaxResults)
	assert.InDelta(t, 0.9, cfg.SimilarityThreshold, 0.001)
}

func TestEnvModelIDDeploymentName(t *testing.T) {
	// The deployment scripts export the model-specific variable name.
	t.Setenv("INFERENCE_PROFILE_ARN_SONNET", "arn:aws:bedrock:us-east-2::inference-profile/sonnet")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:bedrock:us-east-2::inference-profile/sonnet", cfg.ModelID)

	// The generalized name takes precedence when both are set.
	t.Setenv("INFERENCE_PROFILE_ARN", "arn:aws:bedrock:us-east-2::inference-profile/other")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:bedrock:us-east-2::inference-profile/other", cfg.ModelID)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Provider = "watsonx" }},
		{"empty region", func(c *Config) { c.Region = "" }},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"negative top-k", func(c *Config) { c.KBMaxResults = -1 }},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.5 }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	key, err := GetAPIKey(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)

	// Bedrock and ollama use no API key.
	key, err = GetAPIKey(ProviderBedrock)
	require.NoError(t, err)
	assert.Empty(t, key)

	t.Setenv("OPENAI_API_KEY", "")
	_, err = GetAPIKey(ProviderOpenAI)
	assert.Error(t, err)
}
