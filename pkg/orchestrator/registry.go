package orchestrator

import (
	"fmt"
	"sort"

	"careerpath/pkg/agent"
)

// Registry is the explicit agent registry: every routable agent is
// registered by name at startup, and lookup is the only way a query reaches
// an agent. No reflection, no implicit discovery.
type Registry struct {
	agents map[string]agent.Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]agent.Agent)}
}

// Register adds an agent under its Name. Duplicate names are a programming
// error and rejected.
func (r *Registry) Register(a agent.Agent) error {
	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.agents[name] = a
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (agent.Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns the registered agent names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
