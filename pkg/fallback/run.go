package fallback

import (
	"context"
	"time"

	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/logx"
)

// Run executes op under the policy: retryable failures are re-attempted with
// backoff until the per-type budget is spent, then the last error is
// returned for the caller to degrade on. Non-retryable failures return
// immediately. Cancellation is cooperative: it is checked before every
// backoff sleep, and once the context is done no further attempt is made and
// ctx.Err() is returned.
//
// NoMatch and NotFound errors pass straight through; they are in-agent
// branches, not failures.
func Run[T any](ctx context.Context, policy *Policy, logger *logx.Logger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		errType := llmerrors.TypeOf(err)
		action := policy.Decide(errType, attempt)

		switch action.Kind {
		case ActionRetry:
			policy.recordRetry(logger.Component(), errType)
			logger.Debug("attempt %d failed (%s), retrying in %v: %v", attempt+1, errType, action.After, err)
			select {
			case <-time.After(action.After):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		case ActionDegrade:
			if policy.shouldLog(errType) {
				logger.Warn("giving up after %d attempt(s) (%s): %v", attempt+1, errType, err)
			}
			return zero, err
		default:
			return zero, err
		}
	}
}
