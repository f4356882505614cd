// Package orchestrator routes user queries to registered agents. It owns
// agent construction: an agent that cannot be built (missing model id,
// missing credentials source, absent postings file) is remembered with its
// ConfigError, and queries routed to it receive a degraded response instead
// of an error. Only cancellation surfaces as an error to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/middleware/metrics"
	"careerpath/pkg/career"
	"careerpath/pkg/catalog"
	"careerpath/pkg/config"
	"careerpath/pkg/fallback"
	"careerpath/pkg/jobmarket"
	"careerpath/pkg/knowledge"
	"careerpath/pkg/knowledge/bedrockkb"
	"careerpath/pkg/logx"
	"careerpath/pkg/matching"
)

// Modes route a query to one agent by name.
const (
	ModeCareer    = career.AgentName
	ModeCatalog   = catalog.AgentName
	ModeJobMarket = jobmarket.AgentName
	ModeMatch     = matching.AgentName
)

// Response is what the orchestrator hands back to callers. Mode reflects the
// result kind actually delivered, which may be "degraded" even when the
// request asked for a grounded agent.
type Response struct {
	Agent     string               `json:"agent"`
	Mode      string               `json:"mode"`
	Text      string               `json:"text"`
	Citations []knowledge.Citation `json:"citations,omitempty"`
	Reason    string               `json:"reason,omitempty"`
}

// Orchestrator owns the registry and the per-agent construction outcomes.
type Orchestrator struct {
	registry *Registry
	broken   map[string]*agent.ConfigError
	recorder metrics.Recorder
	logger   *logx.Logger
}

// New builds every agent from the configuration snapshot and registers the
// ones that construct cleanly. Construction failures are not fatal: the
// affected mode degrades at query time.
func New(ctx context.Context, cfg config.Config, recorder metrics.Recorder) (*Orchestrator, error) {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	o := &Orchestrator{
		registry: NewRegistry(),
		broken:   make(map[string]*agent.ConfigError),
		recorder: recorder,
		logger:   logx.NewLogger("orchestrator"),
	}

	policy := fallback.NewPolicy()
	policy.SetRecorder(recorder)
	factory := agent.NewClientFactory(cfg, recorder, o.logger)

	careerAgent := o.buildCareer(ctx, factory, policy, cfg)
	catalogAgent := o.buildCatalog(ctx, factory, policy, cfg)
	jobAgent := o.buildJobMarket(ctx, factory, policy, cfg)
	o.buildMatching(ctx, factory, policy, cfg, careerAgent, catalogAgent, jobAgent)

	return o, nil
}

// Ask routes one query. The error return is non-nil only for cancellation;
// every other outcome, including a missing or unbuildable agent, produces a
// usable (possibly degraded) response.
func (o *Orchestrator) Ask(ctx context.Context, mode string, query agent.Query, session *agent.Session) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	target, ok := o.registry.Get(mode)
	if !ok {
		if cfgErr, broken := o.broken[mode]; broken {
			o.recorder.IncDegraded(mode, "config")
			return o.degradedResponse(mode, query, cfgErr.Error()), nil
		}
		return o.degradedResponse(mode, query, fmt.Sprintf("unknown mode %q (available: %v)", mode, o.registry.Names())), nil
	}

	result, err := target.Analyze(ctx, query, session)
	if err != nil {
		// Cancellation: no result was produced and none is synthesized.
		return Response{}, err
	}

	if result.Kind == agent.KindFailed {
		// Failed never escapes to callers; substitute the static catalog.
		o.recorder.IncDegraded(mode, "failed")
		return o.degradedResponse(mode, query, fmt.Sprintf("analysis failed: %v", result.Err)), nil
	}
	if result.Kind == agent.KindDegraded {
		o.recorder.IncDegraded(mode, "runtime")
	}

	return Response{
		Agent:     target.Name(),
		Mode:      result.Kind.String(),
		Text:      result.Text,
		Citations: result.Citations,
		Reason:    result.Reason,
	}, nil
}

// Registry exposes the agent registry for diagnostics.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// ConstructionFailures reports the agents that could not be built, keyed by
// mode.
func (o *Orchestrator) ConstructionFailures() map[string]*agent.ConfigError {
	out := make(map[string]*agent.ConfigError, len(o.broken))
	for k, v := range o.broken {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) degradedResponse(mode string, query agent.Query, cause string) Response {
	category := fallback.DetectCategory(query.Goal, query.Text)
	return Response{
		Agent:  mode,
		Mode:   agent.KindDegraded.String(),
		Text:   fallback.Recommendation(category, query.Goal),
		Reason: fallback.DegradedReason(cause),
	}
}

// recordFailure stores a construction failure for query-time degradation.
// Non-config errors are wrapped so the degraded reason stays descriptive.
func (o *Orchestrator) recordFailure(mode string, err error) {
	var cfgErr *agent.ConfigError
	if !errors.As(err, &cfgErr) {
		cfgErr = agent.NewConfigError(mode, "construction", err.Error())
	}
	o.logger.Warn("agent %s unavailable: %v", mode, err)
	o.broken[mode] = cfgErr
}

func (o *Orchestrator) buildCareer(ctx context.Context, factory *agent.ClientFactory, policy *fallback.Policy, cfg config.Config) *career.Agent {
	client, err := factory.CreateClient(ctx, career.AgentName)
	if err != nil {
		o.recordFailure(ModeCareer, err)
		return nil
	}
	a, err := career.New(client, policy, cfg)
	if err != nil {
		o.recordFailure(ModeCareer, err)
		return nil
	}
	o.mustRegister(a)
	return a
}

func (o *Orchestrator) buildCatalog(ctx context.Context, factory *agent.ClientFactory, policy *fallback.Policy, cfg config.Config) *catalog.Agent {
	client, err := factory.CreateClient(ctx, catalog.AgentName)
	if err != nil {
		o.recordFailure(ModeCatalog, err)
		return nil
	}

	var retriever knowledge.Retriever
	if cfg.KnowledgeBaseID != "" {
		retriever, err = buildRetriever(ctx, cfg, client)
		if err != nil {
			o.recordFailure(ModeCatalog, err)
			return nil
		}
	}

	a, err := catalog.New(client, retriever, policy, cfg)
	if err != nil {
		o.recordFailure(ModeCatalog, err)
		return nil
	}
	o.mustRegister(a)
	return a
}

func (o *Orchestrator) buildJobMarket(ctx context.Context, factory *agent.ClientFactory, policy *fallback.Policy, cfg config.Config) *jobmarket.Agent {
	client, err := factory.CreateClient(ctx, jobmarket.AgentName)
	if err != nil {
		o.recordFailure(ModeJobMarket, err)
		return nil
	}

	var source jobmarket.Source
	if cfg.PostingsPath != "" {
		source = jobmarket.NewFileSource(cfg.PostingsPath)
	}

	a, err := jobmarket.New(client, source, policy, cfg)
	if err != nil {
		o.recordFailure(ModeJobMarket, err)
		return nil
	}
	o.mustRegister(a)
	return a
}

func (o *Orchestrator) buildMatching(ctx context.Context, factory *agent.ClientFactory, policy *fallback.Policy, cfg config.Config, upstreams ...agent.Agent) {
	client, err := factory.CreateClient(ctx, matching.AgentName)
	if err != nil {
		o.recordFailure(ModeMatch, err)
		return
	}

	available := make([]agent.Agent, 0, len(upstreams))
	for _, up := range upstreams {
		if up != nil {
			available = append(available, up)
		}
	}

	a, err := matching.New(client, available, policy, cfg)
	if err != nil {
		o.recordFailure(ModeMatch, err)
		return
	}
	o.mustRegister(a)
}

func (o *Orchestrator) mustRegister(a agent.Agent) {
	if err := o.registry.Register(a); err != nil {
		// Names are compile-time constants; a collision is a bug.
		panic(err)
	}
}

// buildRetriever wires the Bedrock knowledge base retriever. The knowledge
// base is a Bedrock service regardless of which provider generates answers,
// so the AWS credential chain is loaded here even for non-Bedrock providers.
func buildRetriever(ctx context.Context, cfg config.Config, generator llm.Client) (knowledge.Retriever, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, agent.NewConfigError(catalog.AgentName, "region", "failed to load AWS configuration: "+err.Error())
	}
	runtime := bedrockagentruntime.NewFromConfig(awsCfg)
	return bedrockkb.NewRetriever(runtime, generator, cfg.KBMaxResults, cfg.SimilarityThreshold), nil
}
