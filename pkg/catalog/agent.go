// Package catalog implements the course catalog agent. When a knowledge
// collection is configured it answers grounded, citing retrieved catalog
// passages; an empty retrieval falls through to direct generation, and
// remote failure degrades to the static recommendation catalog.
package catalog

import (
	"context"
	"fmt"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
	"careerpath/pkg/knowledge"
	"careerpath/pkg/logx"
)

// AgentName is the registry identifier for this agent.
const AgentName = "catalog"

const directPrompt = "You are a course catalog advisor. Recommend specific " +
	"courses and learning paths for the student's question. Be concrete " +
	"about course names, topics, and sequencing."

// analysisState drives the retrieve-then-direct flow. Transitions:
// Start -> TryRetrieve (collection configured) or TryDirect;
// TryRetrieve -> Done (grounded), TryDirect (no match), or Degrade (failure);
// TryDirect -> Done (ungrounded) or Degrade (failure).
type analysisState int8

const (
	stateStart analysisState = iota
	stateTryRetrieve
	stateTryDirect
	stateDegrade
	stateDone
)

// Agent answers course questions, grounded when a knowledge collection is
// available.
type Agent struct {
	client    llm.Client
	retriever knowledge.Retriever
	policy    *fallback.Policy
	logger    *logx.Logger

	provider     string
	modelID      string
	collectionID string
	temperature  float32
	maxTokens    int
}

// New creates the catalog agent. A model identifier is structurally required
// here: without it neither the grounded nor the direct path can run, so
// construction fails fast with a ConfigError. The retriever may be nil when
// no knowledge collection is configured; the agent then answers ungrounded.
func New(client llm.Client, retriever knowledge.Retriever, policy *fallback.Policy, cfg config.Config) (*Agent, error) {
	if cfg.ModelID == "" {
		return nil, agent.NewConfigError(AgentName, "model_id", "model inference identifier is required")
	}
	if client == nil {
		return nil, agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if cfg.KnowledgeBaseID != "" && retriever == nil {
		return nil, agent.NewConfigError(AgentName, "retriever", "knowledge collection configured but no retriever supplied")
	}
	if policy == nil {
		policy = fallback.NewPolicy()
	}
	return &Agent{
		client:       client,
		retriever:    retriever,
		policy:       policy,
		logger:       logx.NewLogger(AgentName),
		provider:     cfg.Provider,
		modelID:      cfg.ModelID,
		collectionID: cfg.KnowledgeBaseID,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return AgentName }

// Analyze implements agent.Agent by walking the state machine. Exactly one
// result kind comes out of every completed walk.
func (a *Agent) Analyze(ctx context.Context, query agent.Query, session *agent.Session) (agent.Result, error) {
	var result agent.Result
	var lastErr error

	state := stateStart
	for state != stateDone {
		if ctx.Err() != nil {
			return agent.Result{}, ctx.Err()
		}

		switch state {
		case stateStart:
			if a.grounded() {
				state = stateTryRetrieve
			} else {
				state = stateTryDirect
			}

		case stateTryRetrieve:
			grounded, err := a.tryRetrieve(ctx, query)
			switch {
			case err == nil:
				result = agent.Grounded(grounded.Text, grounded.Citations)
				state = stateDone
			case ctx.Err() != nil:
				return agent.Result{}, ctx.Err()
			case llmerrors.IsNoMatch(err), llmerrors.Is(err, llmerrors.ErrorTypeNotFound):
				a.logger.Debug("retrieval empty (%s), answering ungrounded", llmerrors.TypeOf(err))
				state = stateTryDirect
			default:
				lastErr = err
				state = stateDegrade
			}

		case stateTryDirect:
			resp, err := a.tryDirect(ctx, query, session)
			switch {
			case err == nil:
				result = agent.Ungrounded(resp.Content)
				state = stateDone
			case ctx.Err() != nil:
				return agent.Result{}, ctx.Err()
			default:
				lastErr = err
				state = stateDegrade
			}

		case stateDegrade:
			result = a.degrade(query, lastErr)
			state = stateDone
		}
	}

	return result, nil
}

func (a *Agent) grounded() bool {
	return a.collectionID != "" && a.retriever != nil
}

func (a *Agent) tryRetrieve(ctx context.Context, query agent.Query) (*knowledge.Grounded, error) {
	return fallback.Run(ctx, a.policy, a.logger, func(ctx context.Context) (*knowledge.Grounded, error) {
		return a.retriever.RetrieveAndGenerate(ctx, query.Text, a.collectionID)
	})
}

func (a *Agent) tryDirect(ctx context.Context, query agent.Query, session *agent.Session) (llm.CompletionResponse, error) {
	messages := []llm.CompletionMessage{llm.NewSystemMessage(directPrompt)}
	if history := session.History(6); history != "" {
		messages = append(messages, llm.NewSystemMessage("Conversation so far:\n"+history))
	}
	messages = append(messages, llm.NewUserMessage(query.Text))

	req := llm.NewCompletionRequest(messages)
	req.Temperature = a.temperature
	req.MaxTokens = a.maxTokens

	return fallback.Run(ctx, a.policy, a.logger, func(ctx context.Context) (llm.CompletionResponse, error) {
		return a.client.Complete(ctx, req)
	})
}

func (a *Agent) degrade(query agent.Query, err error) agent.Result {
	category := fallback.DetectCategory(query.Goal, query.Text)
	text := fallback.Recommendation(category, query.Goal)
	cause := fmt.Sprintf("%s failure during course lookup", llmerrors.TypeOf(err))
	a.logger.Info("degrading to static recommendation (%s): %v", category, err)
	return agent.Degraded(text, fallback.DegradedReason(cause))
}

// ModelInfo implements agent.InfoReporter.
func (a *Agent) ModelInfo() agent.ModelInfo {
	return agent.ModelInfo{
		Provider:         a.provider,
		ModelID:          a.modelID,
		KnowledgeBaseID:  a.collectionID,
		GroundingEnabled: a.grounded(),
		Temperature:      a.temperature,
		MaxTokens:        a.maxTokens,
	}
}

// CheckConfiguration implements agent.ConfigChecker.
func (a *Agent) CheckConfiguration() error {
	if a.modelID == "" {
		return agent.NewConfigError(AgentName, "model_id", "model inference identifier is required")
	}
	if a.client == nil {
		return agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if a.collectionID != "" && a.retriever == nil {
		return agent.NewConfigError(AgentName, "retriever", "knowledge collection configured but no retriever supplied")
	}
	return nil
}
