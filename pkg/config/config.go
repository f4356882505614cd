// Package config provides configuration loading and validation for the
// career path recommender.
//
// The configuration is an immutable snapshot constructed once per process:
// Load resolves defaults, then the optional YAML config file, then
// environment variables, validates the result, and returns a Config VALUE.
// Nothing reads ambient process state after startup; every component
// receives the snapshot at construction and never mutates it.
//
// Required-field policy: Load only rejects values that are malformed for
// every consumer (for example a similarity threshold outside [0, 1]). A
// field that is required by one specific agent (the model inference
// identifier for the knowledge-grounded agent, say) is checked by that
// agent's constructor, which fails fast with a ConfigError so the
// orchestrator can exclude the agent before dispatch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider identifiers for the supported model backends.
const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Defaults mirroring the deployed system's environment contract.
const (
	DefaultRegion              = "us-east-2"
	DefaultProvider            = ProviderBedrock
	DefaultTemperature         = 0.2
	DefaultMaxTokens           = 10000
	DefaultKBMaxResults        = 5
	DefaultSimilarityThreshold = 0.7
	DefaultRequestTimeout      = 60 * time.Second
	DefaultOllamaHost          = "http://localhost:11434"
	DefaultStoragePath         = "careerpath.db"
)

// DefaultCredentialsFile is the dotenv file loaded before config resolution
// when present. It typically carries AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY.
const DefaultCredentialsFile = "aws_credentials.env"

// Config is the immutable configuration snapshot read by every component.
type Config struct {
	// Provider selects the model backend: bedrock (default), anthropic,
	// openai, or ollama.
	Provider string `yaml:"provider"`

	// Region is the AWS region hosting the Bedrock runtime and knowledge base.
	Region string `yaml:"region"`

	// ModelID is the model identifier. For Bedrock this is the inference
	// profile ARN; newer Anthropic models on Bedrock cannot be invoked by
	// bare model ID.
	ModelID string `yaml:"model_id"`

	// KnowledgeBaseID names the knowledge collection for grounded retrieval.
	// Optional: when empty the course catalog agent answers ungrounded.
	KnowledgeBaseID string `yaml:"knowledge_base_id"`

	// KBMaxResults caps the semantic search result count (top-K).
	KBMaxResults int `yaml:"kb_max_results"`

	// SimilarityThreshold is the minimum relevance score a retrieved passage
	// must meet to count as a citation. Inclusive: score == threshold matches.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// Temperature and MaxTokens bound every generation call.
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// RequestTimeout is the wall-clock timeout applied to each remote call.
	// Expiry is classified as a transient error.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PostingsPath points at the scraped job postings JSON file consumed by
	// the job market agent. Optional.
	PostingsPath string `yaml:"postings_path"`

	// StoragePath is the SQLite transcript store location used by the CLI.
	StoragePath string `yaml:"storage_path"`

	// OllamaHost is the local Ollama server URL for the ollama provider.
	OllamaHost string `yaml:"ollama_host"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		Provider:            DefaultProvider,
		Region:              DefaultRegion,
		KBMaxResults:        DefaultKBMaxResults,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Temperature:         DefaultTemperature,
		MaxTokens:           DefaultMaxTokens,
		RequestTimeout:      DefaultRequestTimeout,
		StoragePath:         DefaultStoragePath,
		OllamaHost:          DefaultOllamaHost,
	}
}

// Load builds the configuration snapshot: defaults, then the optional YAML
// file at cfgPath, then environment variables. A missing cfgPath is only an
// error when it was explicitly provided.
func Load(cfgPath string) (Config, error) {
	// Credentials env file first so subsequent env lookups see its values.
	// godotenv never overrides variables already set in the environment.
	if credFile := envOr("CREDENTIALS_FILE", DefaultCredentialsFile); fileExists(credFile) {
		if err := godotenv.Load(credFile); err != nil {
			return Config{}, fmt.Errorf("failed to load credentials file %s: %w", credFile, err)
		}
	}

	cfg := Default()

	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", cfgPath, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file/default values with the deployed environment
// contract. Variable names match the original deployment scripts.
func applyEnv(cfg *Config) {
	setString(&cfg.Provider, "LLM_PROVIDER")
	setString(&cfg.Region, "AWS_REGION")
	// The deployment scripts export the model-specific name; the generalized
	// name wins when both are set.
	setString(&cfg.ModelID, "INFERENCE_PROFILE_ARN_SONNET")
	setString(&cfg.ModelID, "INFERENCE_PROFILE_ARN")
	setString(&cfg.KnowledgeBaseID, "BEDROCK_KB_ID")
	setString(&cfg.PostingsPath, "JOB_POSTINGS_PATH")
	setString(&cfg.StoragePath, "STORAGE_PATH")
	setString(&cfg.OllamaHost, "OLLAMA_HOST")

	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Temperature = float32(f)
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("KB_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.KBMaxResults = n
		}
	}
	if v := os.Getenv("KB_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SimilarityThreshold = f
		}
	}
}

// Validate rejects values malformed for every consumer. Per-agent required
// fields are validated by agent constructors instead (fail fast there, so
// the orchestrator can substitute before dispatch).
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderBedrock, ProviderAnthropic, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q (expected %s, %s, %s or %s)",
			c.Provider, ProviderBedrock, ProviderAnthropic, ProviderOpenAI, ProviderOllama)
	}
	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.KBMaxResults <= 0 {
		return fmt.Errorf("kb_max_results must be positive, got %d", c.KBMaxResults)
	}
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0, got %v", c.SimilarityThreshold)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	return nil
}

// GetAPIKey returns the API key for a direct-API provider from the
// environment. Bedrock uses the AWS credential chain and ollama needs no
// key, so both return an empty key without error.
func GetAPIKey(provider string) (string, error) {
	switch provider {
	case ProviderAnthropic:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	case ProviderOpenAI:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	case ProviderBedrock, ProviderOllama:
		return "", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
