package bedrockkb

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bartypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
)

type fakeRuntime struct {
	out *bedrockagentruntime.RetrieveOutput
	err error

	gotKnowledgeBaseID string
	gotTopK            int32
}

func (f *fakeRuntime) Retrieve(_ context.Context, params *bedrockagentruntime.RetrieveInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.gotKnowledgeBaseID = aws.ToString(params.KnowledgeBaseId)
	if params.RetrievalConfiguration != nil && params.RetrievalConfiguration.VectorSearchConfiguration != nil {
		f.gotTopK = aws.ToInt32(params.RetrievalConfiguration.VectorSearchConfiguration.NumberOfResults)
	}
	return f.out, f.err
}

type fakeGenerator struct {
	content   string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) Complete(_ context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	for _, msg := range in.Messages {
		if msg.Role == llm.RoleUser {
			f.gotPrompt = msg.Content
		}
	}
	if f.err != nil {
		return llm.CompletionResponse{}, f.err
	}
	return llm.CompletionResponse{Content: f.content, StopReason: "end_turn"}, nil
}

func (f *fakeGenerator) GetModelName() string { return "fake-model" }

func retrievalResult(uri string, score float64, text string) bartypes.KnowledgeBaseRetrievalResult {
	return bartypes.KnowledgeBaseRetrievalResult{
		Content: &bartypes.RetrievalResultContent{Text: aws.String(text)},
		Location: &bartypes.RetrievalResultLocation{
			S3Location: &bartypes.RetrievalResultS3Location{Uri: aws.String(uri)},
		},
		Score: aws.Float64(score),
	}
}

func TestRetrieveAndGenerateGrounded(t *testing.T) {
	runtime := &fakeRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []bartypes.KnowledgeBaseRetrievalResult{
			retrievalResult("s3://kb/db-course.pdf", 0.88, "CS201 covers relational databases."),
			retrievalResult("s3://kb/ml-course.pdf", 0.75, "CS301 covers machine learning."),
		},
	}}
	generator := &fakeGenerator{content: "Take CS201 [Source 1]."}

	r := NewRetriever(runtime, generator, 5, 0.7)
	grounded, err := r.RetrieveAndGenerate(context.Background(), "database courses?", "kb-123")
	require.NoError(t, err)

	assert.Equal(t, "Take CS201 [Source 1].", grounded.Text)
	require.Len(t, grounded.Citations, 2)
	assert.Equal(t, "s3://kb/db-course.pdf", grounded.Citations[0].DocumentID)
	assert.Equal(t, "db-course.pdf", grounded.Citations[0].Title)
	assert.Equal(t, 0.88, grounded.Citations[0].Score)

	assert.Equal(t, "kb-123", runtime.gotKnowledgeBaseID)
	assert.Equal(t, int32(5), runtime.gotTopK)
	// Passages are rendered into the grounding prompt.
	assert.Contains(t, generator.gotPrompt, "CS201 covers relational databases.")
	assert.Contains(t, generator.gotPrompt, "database courses?")
}

func TestThresholdIsInclusive(t *testing.T) {
	runtime := &fakeRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []bartypes.KnowledgeBaseRetrievalResult{
			retrievalResult("s3://kb/exact.pdf", 0.7, "exactly at threshold"),
			retrievalResult("s3://kb/below.pdf", 0.699, "just below"),
		},
	}}
	generator := &fakeGenerator{content: "answer"}

	r := NewRetriever(runtime, generator, 5, 0.7)
	grounded, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-123")
	require.NoError(t, err)

	require.Len(t, grounded.Citations, 1)
	assert.Equal(t, "s3://kb/exact.pdf", grounded.Citations[0].DocumentID)
}

func TestNothingAboveThresholdIsNoMatch(t *testing.T) {
	runtime := &fakeRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []bartypes.KnowledgeBaseRetrievalResult{
			retrievalResult("s3://kb/weak.pdf", 0.3, "barely related"),
		},
	}}
	generator := &fakeGenerator{content: "should not be called"}

	r := NewRetriever(runtime, generator, 5, 0.7)
	_, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-123")
	require.Error(t, err)
	assert.True(t, llmerrors.IsNoMatch(err))
	// No generation call without passages.
	assert.Empty(t, generator.gotPrompt)
}

func TestDuplicateDocumentsAreDeduplicated(t *testing.T) {
	runtime := &fakeRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []bartypes.KnowledgeBaseRetrievalResult{
			retrievalResult("s3://kb/same.pdf", 0.72, "chunk one"),
			retrievalResult("s3://kb/same.pdf", 0.91, "chunk two"),
		},
	}}
	generator := &fakeGenerator{content: "answer"}

	r := NewRetriever(runtime, generator, 5, 0.7)
	grounded, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-123")
	require.NoError(t, err)

	require.Len(t, grounded.Citations, 1)
	assert.Equal(t, 0.91, grounded.Citations[0].Score)
}

func TestMissingKnowledgeBaseIsNotFound(t *testing.T) {
	runtime := &fakeRuntime{err: &smithy.GenericAPIError{
		Code: "ResourceNotFoundException", Message: "no such knowledge base",
	}}
	r := NewRetriever(runtime, &fakeGenerator{}, 5, 0.7)

	_, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-gone")
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeNotFound))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		code string
		want llmerrors.ErrorType
	}{
		{"AccessDeniedException", llmerrors.ErrorTypeAccess},
		{"ExpiredTokenException", llmerrors.ErrorTypeAuth},
		{"ThrottlingException", llmerrors.ErrorTypeRateLimit},
		{"InternalServerException", llmerrors.ErrorTypeTransient},
		{"ValidationException", llmerrors.ErrorTypeBadPrompt},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			runtime := &fakeRuntime{err: &smithy.GenericAPIError{Code: tt.code, Message: "boom"}}
			r := NewRetriever(runtime, &fakeGenerator{}, 5, 0.7)

			_, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-123")
			require.Error(t, err)
			assert.Equal(t, tt.want, llmerrors.TypeOf(err))
		})
	}
}

func TestGenerationFailurePropagates(t *testing.T) {
	runtime := &fakeRuntime{out: &bedrockagentruntime.RetrieveOutput{
		RetrievalResults: []bartypes.KnowledgeBaseRetrievalResult{
			retrievalResult("s3://kb/doc.pdf", 0.9, "passage"),
		},
	}}
	generator := &fakeGenerator{err: llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "throttled")}

	r := NewRetriever(runtime, generator, 5, 0.7)
	_, err := r.RetrieveAndGenerate(context.Background(), "q", "kb-123")
	require.Error(t, err)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeRateLimit))
}
