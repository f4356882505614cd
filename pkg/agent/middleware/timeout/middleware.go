// Package timeout provides per-request timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"careerpath/pkg/agent/llm"
)

// Middleware returns a middleware function that wraps an LLM client with
// per-request timeout logic. Every remote call carries a fixed wall-clock
// timeout; expiry surfaces as context.DeadlineExceeded, which provider
// clients classify as a transient error.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()

				return next.Complete(timeoutCtx, req)
			},
			func() string {
				return next.GetModelName()
			},
		)
	}
}
