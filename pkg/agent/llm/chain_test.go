package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoClient(name string) Client {
	return WrapClient(
		func(_ context.Context, in CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: in.Messages[0].Content, StopReason: "end_turn"}, nil
		},
		func() string { return name },
	)
}

func tagMiddleware(tag string) Middleware {
	return func(next Client) Client {
		return WrapClient(
			func(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
				resp, err := next.Complete(ctx, in)
				resp.Content += tag
				return resp, err
			},
			next.GetModelName,
		)
	}
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	client := Chain(echoClient("base"), tagMiddleware("-outer"), tagMiddleware("-inner"))

	resp, err := client.Complete(context.Background(), NewCompletionRequest(
		[]CompletionMessage{NewUserMessage("hello")},
	))
	require.NoError(t, err)
	// First middleware listed is outermost.
	assert.Equal(t, "hello-inner-outer", resp.Content)
	assert.Equal(t, "base", client.GetModelName())
}

func TestChainWithoutMiddleware(t *testing.T) {
	client := Chain(echoClient("base"))
	resp, err := client.Complete(context.Background(), NewCompletionRequest(
		[]CompletionMessage{NewUserMessage("hi")},
	))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
}

func TestRequestValidate(t *testing.T) {
	valid := NewCompletionRequest([]CompletionMessage{NewUserMessage("q")})
	assert.NoError(t, valid.Validate())

	empty := CompletionRequest{Temperature: 0.2}
	assert.Error(t, empty.Validate())

	hot := NewCompletionRequest([]CompletionMessage{NewUserMessage("q")})
	hot.Temperature = 3.0
	assert.Error(t, hot.Validate())
}

func TestRequestDefaults(t *testing.T) {
	req := NewCompletionRequest([]CompletionMessage{NewSystemMessage("sys"), NewUserMessage("q")})
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.InDelta(t, TemperatureDefault, req.Temperature, 0.001)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, RoleUser, req.Messages[1].Role)
}
