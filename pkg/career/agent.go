// Package career implements the general career guidance agent. It answers
// directly from the model without retrieval grounding; remote failure
// degrades to the static recommendation catalog.
package career

import (
	"context"
	"fmt"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
	"careerpath/pkg/logx"
)

// AgentName is the registry identifier for this agent.
const AgentName = "career"

const systemPrompt = "You are a career advisor for students and early-career " +
	"professionals. Give practical, specific guidance: skills to learn, " +
	"courses to take, and projects to build. Keep answers concise."

// Agent answers career questions ungrounded.
type Agent struct {
	client llm.Client
	policy *fallback.Policy
	logger *logx.Logger

	provider    string
	modelID     string
	temperature float32
	maxTokens   int
}

// New creates the career agent. The client must already carry the middleware
// chain; a nil client is a construction failure.
func New(client llm.Client, policy *fallback.Policy, cfg config.Config) (*Agent, error) {
	if client == nil {
		return nil, agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if policy == nil {
		policy = fallback.NewPolicy()
	}
	return &Agent{
		client:      client,
		policy:      policy,
		logger:      logx.NewLogger(AgentName),
		provider:    cfg.Provider,
		modelID:     cfg.ModelID,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return AgentName }

// Analyze implements agent.Agent: one direct generation attempt under the
// fallback policy, degrading to a static recommendation on terminal failure.
func (a *Agent) Analyze(ctx context.Context, query agent.Query, session *agent.Session) (agent.Result, error) {
	req := a.buildRequest(query, session)

	resp, err := fallback.Run(ctx, a.policy, a.logger, func(ctx context.Context) (llm.CompletionResponse, error) {
		return a.client.Complete(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return agent.Result{}, ctx.Err()
		}
		return a.degrade(query, err), nil
	}

	return agent.Ungrounded(resp.Content), nil
}

func (a *Agent) buildRequest(query agent.Query, session *agent.Session) llm.CompletionRequest {
	messages := []llm.CompletionMessage{llm.NewSystemMessage(systemPrompt)}
	if history := session.History(6); history != "" {
		messages = append(messages, llm.NewSystemMessage("Conversation so far:\n"+history))
	}
	text := query.Text
	if query.Goal != "" {
		text = fmt.Sprintf("Career goal: %s\n\n%s", query.Goal, query.Text)
	}
	messages = append(messages, llm.NewUserMessage(text))

	req := llm.NewCompletionRequest(messages)
	req.Temperature = a.temperature
	req.MaxTokens = a.maxTokens
	return req
}

func (a *Agent) degrade(query agent.Query, err error) agent.Result {
	category := fallback.DetectCategory(query.Goal, query.Text)
	text := fallback.Recommendation(category, query.Goal)
	cause := fmt.Sprintf("%s failure during direct generation", llmerrors.TypeOf(err))
	a.logger.Info("degrading to static recommendation (%s): %v", category, err)
	return agent.Degraded(text, fallback.DegradedReason(cause))
}

// ModelInfo implements agent.InfoReporter.
func (a *Agent) ModelInfo() agent.ModelInfo {
	return agent.ModelInfo{
		Provider:    a.provider,
		ModelID:     a.modelID,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}
}

// CheckConfiguration implements agent.ConfigChecker.
func (a *Agent) CheckConfiguration() error {
	if a.client == nil {
		return agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if a.modelID == "" {
		return agent.NewConfigError(AgentName, "model_id", "model inference identifier is required")
	}
	return nil
}
