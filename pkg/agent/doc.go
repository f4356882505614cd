// Package agent defines the polymorphic agent contract shared by every
// reasoning agent in the recommender: the Query and Session inputs, the
// Result tagged union every analysis produces, construction-time
// configuration errors, and the provider-keyed LLM client factory.
//
// Concrete agents live in their own packages (career, catalog, jobmarket,
// matching) and are selected by the orchestrator through an explicit
// registry.
package agent
