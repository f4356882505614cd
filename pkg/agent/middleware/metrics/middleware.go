package metrics

import (
	"context"
	"time"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
)

// Middleware returns a middleware function that records request metrics for
// every completion issued through the wrapped client. agentName labels the
// metrics with the owning agent.
func Middleware(recorder Recorder, agentName string) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				errorType := ""
				if err != nil {
					errorType = llmerrors.TypeOf(err).String()
				}
				recorder.ObserveRequest(next.GetModelName(), agentName, err == nil, errorType, duration)

				return resp, err
			},
			func() string {
				return next.GetModelName()
			},
		)
	}
}
