package jobmarket

import (
	"context"
	"fmt"
	"strings"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
	"careerpath/pkg/logx"
)

// AgentName is the registry identifier for this agent.
const AgentName = "jobmarket"

const systemPrompt = "You are a job market analyst. Summarize the supplied " +
	"job postings for the user's question: in-demand skills, common " +
	"requirements, and hiring trends. Ground every claim in the postings."

// maxPostingsInPrompt caps how many postings are rendered into one prompt.
const maxPostingsInPrompt = 25

// Agent summarizes scraped job postings with one LLM call.
type Agent struct {
	client llm.Client
	source Source
	policy *fallback.Policy
	logger *logx.Logger

	provider    string
	modelID     string
	temperature float32
	maxTokens   int
}

// New creates the job market agent. A posting source is structurally
// required; construction fails fast without one.
func New(client llm.Client, source Source, policy *fallback.Policy, cfg config.Config) (*Agent, error) {
	if client == nil {
		return nil, agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if source == nil {
		return nil, agent.NewConfigError(AgentName, "source", "postings source is required (set postings_path)")
	}
	if policy == nil {
		policy = fallback.NewPolicy()
	}
	return &Agent{
		client:      client,
		source:      source,
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

// Analyze implements agent.Agent. No postings is the no-data branch: the
// agent degrades with a reason instead of failing, since the scraper may
// simply not have run yet.
func (a *Agent) Analyze(ctx context.Context, query agent.Query, _ *agent.Session) (agent.Result, error) {
	postings, err := a.source.Postings(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return agent.Result{}, ctx.Err()
		}
		return a.degrade(query, fmt.Sprintf("postings source failure: %v", err)), nil
	}
	if len(postings) == 0 {
		a.logger.Info("no postings available, degrading")
		return a.degrade(query, "no job postings available"), nil
	}

	req := a.buildRequest(query, postings)
	resp, err := fallback.Run(ctx, a.policy, a.logger, func(ctx context.Context) (llm.CompletionResponse, error) {
		return a.client.Complete(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return agent.Result{}, ctx.Err()
		}
		return a.degrade(query, fmt.Sprintf("%s failure during market summary", llmerrors.TypeOf(err))), nil
	}

	return agent.Ungrounded(resp.Content), nil
}

func (a *Agent) buildRequest(query agent.Query, postings []Posting) llm.CompletionRequest {
	if len(postings) > maxPostingsInPrompt {
		postings = postings[:maxPostingsInPrompt]
	}

	var b strings.Builder
	for i, p := range postings {
		fmt.Fprintf(&b, "%d. %s at %s", i+1, p.Title, p.Company)
		if p.Location != "" {
			fmt.Fprintf(&b, " (%s)", p.Location)
		}
		b.WriteString("\n")
		if len(p.Skills) > 0 {
			fmt.Fprintf(&b, "   Skills: %s\n", strings.Join(p.Skills, ", "))
		}
		if p.Description != "" {
			fmt.Fprintf(&b, "   %s\n", p.Description)
		}
	}

	text := query.Text
	if query.Goal != "" {
		text = fmt.Sprintf("Career goal: %s\n\n%s", query.Goal, query.Text)
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(systemPrompt),
		llm.NewUserMessage(fmt.Sprintf("Job postings:\n\n%s\nQuestion: %s", b.String(), text)),
	})
	req.Temperature = a.temperature
	req.MaxTokens = a.maxTokens
	return req
}

func (a *Agent) degrade(query agent.Query, cause string) agent.Result {
	category := fallback.DetectCategory(query.Goal, query.Text)
	text := fallback.Recommendation(category, query.Goal)
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
	if a.source == nil {
		return agent.NewConfigError(AgentName, "source", "postings source is required (set postings_path)")
	}
	return nil
}
