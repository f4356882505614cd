package agent

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"careerpath/pkg/agent/internal/llmimpl/anthropic"
	"careerpath/pkg/agent/internal/llmimpl/bedrock"
	"careerpath/pkg/agent/internal/llmimpl/ollama"
	"careerpath/pkg/agent/internal/llmimpl/openaiofficial"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/middleware/logging"
	"careerpath/pkg/agent/middleware/metrics"
	"careerpath/pkg/agent/middleware/timeout"
	"careerpath/pkg/config"
	"careerpath/pkg/logx"
)

// ClientFactory creates LLM clients with the standard middleware chain.
// Retry handling is deliberately absent from the chain: retries are owned by
// the fallback policy so every agent shares the same semantics.
type ClientFactory struct {
	cfg      config.Config
	recorder metrics.Recorder
	logger   *logx.Logger
}

// NewClientFactory creates a client factory for the given configuration.
// Pass metrics.Nop() to disable metrics collection.
func NewClientFactory(cfg config.Config, recorder metrics.Recorder, logger *logx.Logger) *ClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	if logger == nil {
		logger = logx.NewLogger("llm")
	}
	return &ClientFactory{cfg: cfg, recorder: recorder, logger: logger}
}

// CreateClient builds a client for the configured provider, wrapped in the
// timeout, metrics and logging middleware. agentName labels the metrics.
// Misconfiguration (unknown provider, missing model or credentials) is
// reported as a *ConfigError so callers can degrade instead of retrying.
func (f *ClientFactory) CreateClient(ctx context.Context, agentName string) (llm.Client, error) {
	raw, err := f.createRawClient(ctx, agentName)
	if err != nil {
		return nil, err
	}

	requestTimeout := f.cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}

	return llm.Chain(raw,
		timeout.Middleware(requestTimeout),
		metrics.Middleware(f.recorder, agentName),
		logging.Middleware(f.logger),
	), nil
}

func (f *ClientFactory) createRawClient(ctx context.Context, agentName string) (llm.Client, error) {
	if f.cfg.ModelID == "" {
		return nil, NewConfigError(agentName, "model_id", "model identifier is required")
	}

	switch f.cfg.Provider {
	case config.ProviderBedrock:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.Region))
		if err != nil {
			return nil, NewConfigError(agentName, "region", "failed to load AWS configuration: "+err.Error())
		}
		return bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), f.cfg.ModelID), nil

	case config.ProviderAnthropic:
		apiKey, err := config.GetAPIKey(f.cfg.Provider)
		if err != nil {
			return nil, NewConfigError(agentName, "api_key", err.Error())
		}
		return anthropic.NewClient(apiKey, f.cfg.ModelID), nil

	case config.ProviderOpenAI:
		apiKey, err := config.GetAPIKey(f.cfg.Provider)
		if err != nil {
			return nil, NewConfigError(agentName, "api_key", err.Error())
		}
		return openaiofficial.NewClient(apiKey, f.cfg.ModelID), nil

	case config.ProviderOllama:
		return ollama.NewClient(f.cfg.OllamaHost, f.cfg.ModelID), nil

	default:
		return nil, NewConfigError(agentName, "provider", "unsupported provider: "+f.cfg.Provider)
	}
}
