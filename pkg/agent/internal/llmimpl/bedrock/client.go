// Package bedrock provides an AWS Bedrock client implementation for the LLM
// interface, invoking models through the Converse API. Newer Anthropic
// models on Bedrock must be invoked via an inference profile ARN rather
// than a bare model ID; the caller supplies whichever identifier its
// account requires.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client used
// here. It matches *bedrockruntime.Client so callers can pass either the
// real client or a mock in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client wraps the Bedrock runtime to implement llm.Client.
type Client struct {
	runtime RuntimeClient
	modelID string
}

// NewClient creates a Bedrock-backed LLM client (raw client, middleware
// applied at a higher level). modelID is the model or inference profile
// identifier.
func NewClient(runtime RuntimeClient, modelID string) llm.Client {
	return &Client{
		runtime: runtime,
		modelID: modelID,
	}
}

// Complete implements the llm.Client interface via the Converse API.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := in.Validate(); err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "invalid completion request")
	}

	system, messages, err := splitMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "message conversion error")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(c.modelID),
		Messages: messages,
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(in.MaxTokens)),
			Temperature: aws.Float32(in.Temperature),
		},
	}
	if system != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		}
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return llm.CompletionResponse{}, classifyError(err)
	}

	text, err := extractText(out)
	if err != nil {
		return llm.CompletionResponse{}, err
	}

	return llm.CompletionResponse{
		Content:    text,
		StopReason: string(out.StopReason),
	}, nil
}

// GetModelName returns the model identifier for this client.
func (c *Client) GetModelName() string {
	return c.modelID
}

// splitMessages extracts system content and converts the remaining
// conversation into Bedrock messages, merging consecutive same-role turns
// to satisfy the Converse alternation requirement.
func splitMessages(messages []llm.CompletionMessage) (string, []brtypes.Message, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var out []brtypes.Message

	appendText := func(role brtypes.ConversationRole, text string) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			// Merge into the previous turn instead of violating alternation.
			if block, ok := out[n-1].Content[0].(*brtypes.ContentBlockMemberText); ok {
				block.Value = block.Value + "\n\n" + text
				return
			}
		}
		out = append(out, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		})
	}

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			appendText(brtypes.ConversationRoleAssistant, msg.Content)
		default:
			appendText(brtypes.ConversationRoleUser, msg.Content)
		}
	}

	if len(out) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if out[0].Role != brtypes.ConversationRoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got %s", out[0].Role)
	}

	return strings.Join(systemParts, "\n\n"), out, nil
}

// extractText pulls the generated text out of a Converse response.
func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", llmerrors.NewError(llmerrors.ErrorTypeProtocol, "converse response carries no message content")
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text.WriteString(tb.Value)
		}
	}
	if text.Len() == 0 {
		return "", llmerrors.NewError(llmerrors.ErrorTypeProtocol, "converse response carries no text blocks")
	}
	return text.String(), nil
}

// classifyError maps AWS SDK errors into the shared taxonomy.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "request canceled")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication failed - check AWS credentials")
		case "AccessDeniedException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAccess, err, "access denied - check IAM permissions on the inference profile")
		case "ThrottlingException", "TooManyRequestsException", "ServiceQuotaExceededException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "request throttled")
		case "ServiceUnavailableException", "InternalServerException", "ModelTimeoutException", "ModelNotReadyException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "bedrock service error")
		case "ValidationException":
			if strings.Contains(apiErr.ErrorMessage(), "on-demand throughput") {
				return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err,
					"model requires an inference profile - set the inference profile ARN as the model identifier")
			}
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "request rejected by bedrock")
		case "ResourceNotFoundException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "model identifier not found")
		}
	}

	// Network-level failures surface without an API error code.
	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") || strings.Contains(errStr, "EOF") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network error")
	}

	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified bedrock error")
}
