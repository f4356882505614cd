// Package matching implements the career matching agent: it fans out to the
// career, catalog, and job market agents concurrently, then synthesizes one
// structured recommendation from their combined output.
package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
	"careerpath/pkg/logx"
	"careerpath/pkg/utils"
)

// AgentName is the registry identifier for this agent.
const AgentName = "match"

// fanOutLimit bounds concurrent upstream analyses.
const fanOutLimit = 3

// upstreamTokenBudget caps how many tokens of each upstream answer are
// rendered into the synthesis prompt.
const upstreamTokenBudget = 2500

const systemPrompt = "You are a career planning synthesizer. Combine the " +
	"analyst reports into one actionable plan. Respond with ONLY a JSON " +
	"object of the form {\"courses\": [...], \"projects\": [...], " +
	"\"frameworks\": [...]} where each array holds short strings. No prose " +
	"outside the JSON."

// Plan is the structured recommendation produced by synthesis.
type Plan struct {
	Courses    []string `json:"courses"`
	Projects   []string `json:"projects"`
	Frameworks []string `json:"frameworks"`
}

// upstream pairs an agent name with its completed result.
type upstream struct {
	name   string
	result agent.Result
}

// Agent synthesizes the other agents' results into a structured plan.
type Agent struct {
	client    llm.Client
	upstreams []agent.Agent
	policy    *fallback.Policy
	logger    *logx.Logger
	counter   *utils.TokenCounter

	provider    string
	modelID     string
	temperature float32
	maxTokens   int
}

// New creates the matching agent over its upstream agents. At least one
// upstream is structurally required.
func New(client llm.Client, upstreams []agent.Agent, policy *fallback.Policy, cfg config.Config) (*Agent, error) {
	if client == nil {
		return nil, agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if len(upstreams) == 0 {
		return nil, agent.NewConfigError(AgentName, "upstreams", "at least one upstream agent is required")
	}
	if policy == nil {
		policy = fallback.NewPolicy()
	}

	// Tokenizer failure only costs counting accuracy; the counter falls back
	// to character estimation when nil.
	counter, err := utils.NewTokenCounter()
	if err != nil {
		counter = nil
	}

	return &Agent{
		client:      client,
		upstreams:   upstreams,
		policy:      policy,
		logger:      logx.NewLogger(AgentName),
		counter:     counter,
		provider:    cfg.Provider,
		modelID:     cfg.ModelID,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name implements agent.Agent.
func (a *Agent) Name() string { return AgentName }

// Analyze implements agent.Agent: bounded-parallel upstream fan-out, then
// one synthesis call. Any upstream degradation makes the combined result
// Degraded, never Failed; whatever text was produced is still delivered.
func (a *Agent) Analyze(ctx context.Context, query agent.Query, session *agent.Session) (agent.Result, error) {
	results, err := a.fanOut(ctx, query, session)
	if err != nil {
		return agent.Result{}, err
	}

	text, synthErr := a.synthesize(ctx, query, results)
	if synthErr != nil {
		if ctx.Err() != nil {
			return agent.Result{}, ctx.Err()
		}
		return a.degradeOnSynthesis(query, results, synthErr), nil
	}

	if reasons := degradedUpstreams(results); len(reasons) > 0 {
		reason := fmt.Sprintf("partial analysis: %s", strings.Join(reasons, "; "))
		return agent.Degraded(text, fallback.DegradedReason(reason)), nil
	}
	return agent.Ungrounded(text), nil
}

// fanOut runs every upstream concurrently. A cancelled context aborts the
// whole group and surfaces ctx.Err(); individual agent degradation does not,
// since agents report it inside their Result.
func (a *Agent) fanOut(ctx context.Context, query agent.Query, session *agent.Session) ([]upstream, error) {
	results := make([]upstream, len(a.upstreams))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, up := range a.upstreams {
		g.Go(func() error {
			result, err := up.Analyze(gctx, query, session)
			if err != nil {
				return err
			}
			results[i] = upstream{name: up.Name(), result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// synthesize issues the structured-output call under the fallback policy.
// Malformed model output is a protocol error and shares the retry budget of
// other protocol failures.
func (a *Agent) synthesize(ctx context.Context, query agent.Query, results []upstream) (string, error) {
	req := a.buildRequest(query, results)

	plan, err := fallback.Run(ctx, a.policy, a.logger, func(ctx context.Context) (Plan, error) {
		resp, err := a.client.Complete(ctx, req)
		if err != nil {
			return Plan{}, err
		}
		return parsePlan(resp.Content)
	})
	if err != nil {
		return "", err
	}
	return renderPlan(plan), nil
}

func (a *Agent) buildRequest(query agent.Query, results []upstream) llm.CompletionRequest {
	var reports strings.Builder
	for _, up := range results {
		text := up.result.Text
		if text == "" {
			continue
		}
		text = a.counter.TruncateToTokenLimit(text, upstreamTokenBudget)
		fmt.Fprintf(&reports, "## Report from %s\n%s\n\n", up.name, text)
	}

	goal := query.Goal
	if goal == "" {
		goal = query.Text
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(systemPrompt),
		llm.NewUserMessage(fmt.Sprintf("Career goal: %s\n\n%sBuild the plan.", goal, reports.String())),
	})
	req.Temperature = a.temperature
	req.MaxTokens = a.maxTokens
	return req
}

// parsePlan decodes the model's JSON output, tolerating surrounding prose
// and markdown fences. A plan with no content at all is a protocol error.
func parsePlan(content string) (Plan, error) {
	raw := extractJSON(content)
	if raw == "" {
		return Plan{}, llmerrors.NewError(llmerrors.ErrorTypeProtocol, "no JSON object in synthesis output")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return Plan{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeProtocol, err, "malformed JSON in synthesis output")
	}
	if len(plan.Courses) == 0 && len(plan.Projects) == 0 && len(plan.Frameworks) == 0 {
		return Plan{}, llmerrors.NewError(llmerrors.ErrorTypeProtocol, "synthesis output carries no recommendations")
	}
	return plan, nil
}

// extractJSON returns the first top-level JSON object in content.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

func renderPlan(plan Plan) string {
	var b strings.Builder
	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, item := range items {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}
	writeSection("Recommended courses", plan.Courses)
	writeSection("Portfolio projects", plan.Projects)
	writeSection("Frameworks and tools", plan.Frameworks)
	return strings.TrimRight(b.String(), "\n")
}

// degradedUpstreams lists human-readable reasons for every upstream that did
// not complete normally.
func degradedUpstreams(results []upstream) []string {
	var reasons []string
	for _, up := range results {
		switch up.result.Kind {
		case agent.KindDegraded:
			reasons = append(reasons, fmt.Sprintf("%s degraded (%s)", up.name, up.result.Reason))
		case agent.KindFailed:
			reasons = append(reasons, fmt.Sprintf("%s failed (%v)", up.name, up.result.Err))
		}
	}
	return reasons
}

// degradeOnSynthesis assembles a degraded result after the synthesis call
// itself gave up: upstream texts are delivered raw, or the static catalog
// when nothing usable came back.
func (a *Agent) degradeOnSynthesis(query agent.Query, results []upstream, err error) agent.Result {
	var b strings.Builder
	for _, up := range results {
		if up.result.Usable() && up.result.Text != "" {
			fmt.Fprintf(&b, "From %s:\n%s\n\n", up.name, up.result.Text)
		}
	}
	text := strings.TrimRight(b.String(), "\n")
	if text == "" {
		category := fallback.DetectCategory(query.Goal, query.Text)
		text = fallback.Recommendation(category, query.Goal)
	}

	cause := fmt.Sprintf("%s failure during synthesis", llmerrors.TypeOf(err))
	a.logger.Info("synthesis degraded: %v", err)
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

// CheckConfiguration implements agent.ConfigChecker. Readiness requires the
// synthesis client plus at least one buildable upstream.
func (a *Agent) CheckConfiguration() error {
	if a.client == nil {
		return agent.NewConfigError(AgentName, "client", "LLM client is required")
	}
	if len(a.upstreams) == 0 {
		return agent.NewConfigError(AgentName, "upstreams", "at least one upstream agent is required")
	}
	return nil
}
