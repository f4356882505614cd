// Package llmerrors provides structured error classification and retry
// configuration for remote model-inference and knowledge-retrieval calls.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents different categories of remote-call errors.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient ErrorType = iota
	// ErrorTypeRateLimit represents throttling errors (429, quota exceeded).
	ErrorTypeRateLimit
	// ErrorTypeProtocol represents a malformed or unexpectedly shaped response.
	// Treated like a transient failure for retry purposes but logged distinctly.
	ErrorTypeProtocol
	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401, bad or missing credentials).
	ErrorTypeAuth
	// ErrorTypeAccess represents permission errors (403, model not enabled for the account).
	ErrorTypeAccess
	// ErrorTypeBadPrompt represents malformed request errors (400, prompt too
	// long, model requires an inference profile). Retrying cannot help.
	ErrorTypeBadPrompt

	// In-agent branch signals. These never reach the fallback policy: the
	// agent's own state machine handles them as a normal path.

	// ErrorTypeNoMatch means the search executed but nothing cleared the
	// similarity threshold. It signals that ungrounded fallback applies.
	ErrorTypeNoMatch
	// ErrorTypeNotFound means the named knowledge collection does not exist.
	ErrorTypeNotFound
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeProtocol:
		return "protocol"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeAccess:
		return "access"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeNoMatch:
		return "no_match"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Default retry bounds per error type.
const (
	DefaultTransientRetries = 3
	DefaultRateLimitRetries = 4
	DefaultProtocolRetries  = 2
	DefaultUnknownRetries   = 1
)

// RetryConfig defines exponential backoff configuration for each error type.
type RetryConfig struct {
	MaxRetries    int           // Maximum number of retry attempts
	InitialDelay  time.Duration // Initial delay for exponential backoff
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Multiplier for exponential backoff
	Jitter        bool          // Add random jitter to prevent thundering herd
}

// DefaultRetryConfigs provides default retry configurations for each error type.
//
//nolint:gochecknoglobals // Configuration map - acceptable for package defaults
var DefaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeTransient: {
		MaxRetries:    DefaultTransientRetries,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeRateLimit: {
		MaxRetries:    DefaultRateLimitRetries,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeProtocol: {
		MaxRetries:    DefaultProtocolRetries,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeUnknown: {
		MaxRetries:    DefaultUnknownRetries,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	},
	ErrorTypeAuth: {
		MaxRetries: 0,
	},
	ErrorTypeAccess: {
		MaxRetries: 0,
	},
	ErrorTypeBadPrompt: {
		MaxRetries: 0,
	},
	ErrorTypeNoMatch: {
		MaxRetries: 0,
	},
	ErrorTypeNotFound: {
		MaxRetries: 0,
	},
}

// Error represents a classified remote-call error with retry metadata.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote call error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("remote call error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("remote call error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeAccess, ErrorTypeBadPrompt, ErrorTypeNoMatch, ErrorTypeNotFound:
		return false
	default:
		return true
	}
}

// GetRetryConfig returns the retry configuration for this error type.
func (e *Error) GetRetryConfig() RetryConfig {
	if config, exists := DefaultRetryConfigs[e.Type]; exists {
		return config
	}
	return DefaultRetryConfigs[ErrorTypeUnknown]
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsNoMatch reports whether err signals an empty retrieval result.
// This is an in-agent branch, not a failure.
func IsNoMatch(err error) bool {
	return Is(err, ErrorTypeNoMatch)
}

// NewError creates a new classified error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}
