package agent

import (
	"context"

	"careerpath/pkg/knowledge"
)

// Query is a free-text user question plus an optional structured hint.
// Immutable once created.
type Query struct {
	// Text is the user's question verbatim.
	Text string
	// Goal is the declared career goal, when the caller knows it. Used for
	// static-recommendation category detection during degradation.
	Goal string
}

// Request carries the per-call resolved model parameters. Constructed per
// analysis call and never retained.
type Request struct {
	ModelID      string
	CollectionID string
	Temperature  float32
	MaxTokens    int
}

// ResultKind tags the variant of a Result.
type ResultKind int8

const (
	// KindGrounded is generated text backed by citations above the
	// similarity threshold.
	KindGrounded ResultKind = iota
	// KindUngrounded is direct model output without retrieval grounding.
	KindUngrounded
	// KindDegraded is a built-in static recommendation substituted after a
	// remote failure or missing configuration.
	KindDegraded
	// KindFailed records an unrecoverable error. The orchestrator never
	// surfaces this variant to callers; the fallback policy converts it to
	// Degraded first.
	KindFailed
)

// String returns the external mode label for the result kind.
func (k ResultKind) String() string {
	switch k {
	case KindGrounded:
		return "grounded"
	case KindUngrounded:
		return "ungrounded"
	case KindDegraded:
		return "degraded"
	case KindFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Result is the tagged union produced by every agent analysis. Exactly one
// variant per call; Degraded and Failed are mutually exclusive with
// Grounded and Ungrounded.
type Result struct {
	Kind      ResultKind
	Text      string
	Citations []knowledge.Citation // non-empty only for KindGrounded
	Reason    string               // set for KindDegraded
	Err       error                // set for KindFailed
}

// Grounded builds a citation-backed result. Citations must already be
// threshold-filtered and deduplicated by the retriever.
func Grounded(text string, citations []knowledge.Citation) Result {
	return Result{Kind: KindGrounded, Text: text, Citations: citations}
}

// Ungrounded builds a direct-generation result without citations.
func Ungrounded(text string) Result {
	return Result{Kind: KindUngrounded, Text: text}
}

// Degraded builds a static-substitute result with a human-readable reason.
func Degraded(text, reason string) Result {
	return Result{Kind: KindDegraded, Text: text, Reason: reason}
}

// Failed records an unrecoverable error as a result variant.
func Failed(err error) Result {
	return Result{Kind: KindFailed, Err: err}
}

// Usable reports whether the result carries text a caller can show.
func (r Result) Usable() bool {
	return r.Kind != KindFailed
}

// Agent is the uniform contract every reasoning agent implements.
//
// Analyze returns exactly one Result per completed call. The error return
// is non-nil only for context cancellation: a cancelled call produces no
// Result at all, and triggers no fallback retry.
type Agent interface {
	// Name returns the stable agent identifier used for registry lookup.
	Name() string

	// Analyze answers the query, consulting the session log for
	// conversational context when present.
	Analyze(ctx context.Context, query Query, session *Session) (Result, error)
}

// ModelInfo reports an agent's resolved model configuration.
type ModelInfo struct {
	Provider         string  `json:"provider"`
	ModelID          string  `json:"model_id"`
	KnowledgeBaseID  string  `json:"knowledge_base_id,omitempty"`
	GroundingEnabled bool    `json:"grounding_enabled"`
	Temperature      float32 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
}

// InfoReporter is implemented by agents that can report their model
// configuration for diagnostics.
type InfoReporter interface {
	ModelInfo() ModelInfo
}

// ConfigChecker is implemented by agents that can re-verify their resolved
// configuration after construction. A nil return means the agent is ready;
// otherwise the *ConfigError names the missing piece.
type ConfigChecker interface {
	CheckConfiguration() error
}
