package agent

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid required setting detected at
// agent construction time. Agents that structurally require a setting fail
// fast with this error instead of failing on first use, so the orchestrator
// can exclude an unusable agent from selection before any user-facing
// latency is spent.
type ConfigError struct {
	Agent   string // agent name, when known
	Field   string // offending configuration field
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("configuration error (%s): %s: %s", e.Agent, e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a construction-time configuration error.
func NewConfigError(agentName, field, message string) *ConfigError {
	return &ConfigError{Agent: agentName, Field: field, Message: message}
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
