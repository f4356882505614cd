// Package logging provides request logging middleware for LLM clients.
package logging

import (
	"context"
	"time"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/logx"
)

// Middleware returns a middleware function that logs each completion at
// debug level and classified failures at warn level. Protocol errors are
// logged distinctly to aid diagnosis of malformed provider responses.
func Middleware(logger *logx.Logger) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				if err != nil {
					errType := llmerrors.TypeOf(err)
					if errType == llmerrors.ErrorTypeProtocol {
						logger.Warn("malformed response from %s after %v: %v", next.GetModelName(), duration, err)
					} else {
						logger.Debug("completion failed (%s) on %s after %v: %v", errType, next.GetModelName(), duration, err)
					}
					return resp, err
				}

				logger.Debug("completion on %s in %v (%d chars, stop=%s)",
					next.GetModelName(), duration, len(resp.Content), resp.StopReason)
				return resp, nil
			},
			func() string {
				return next.GetModelName()
			},
		)
	}
}
