// Package bedrockkb implements the knowledge.Retriever contract on top of an
// AWS Bedrock knowledge base. Retrieval and generation are separate calls:
// the Retrieve API reports per-passage similarity scores, which the managed
// retrieve-and-generate flow hides, and the threshold filter needs them.
package bedrockkb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	bartypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	smithy "github.com/aws/smithy-go"

	"careerpath/pkg/agent/llm"
	"careerpath/pkg/agent/llmerrors"
	"careerpath/pkg/knowledge"
)

// AgentRuntimeClient mirrors the subset of the Bedrock agent runtime client
// used here. It matches *bedrockagentruntime.Client so tests can substitute
// a mock.
type AgentRuntimeClient interface {
	Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
}

// Retriever performs scored semantic search against a Bedrock knowledge base
// and grounds one generation call on the surviving passages.
type Retriever struct {
	runtime   AgentRuntimeClient
	generator llm.Client

	maxResults int
	threshold  float64
}

// NewRetriever creates a retriever. maxResults caps the semantic search
// (top-K); threshold is the inclusive minimum similarity score.
func NewRetriever(runtime AgentRuntimeClient, generator llm.Client, maxResults int, threshold float64) *Retriever {
	return &Retriever{
		runtime:    runtime,
		generator:  generator,
		maxResults: maxResults,
		threshold:  threshold,
	}
}

// RetrieveAndGenerate implements knowledge.Retriever.
func (r *Retriever) RetrieveAndGenerate(ctx context.Context, query, collectionID string) (*knowledge.Grounded, error) {
	citations, err := r.retrieve(ctx, query, collectionID)
	if err != nil {
		return nil, err
	}
	if len(citations) == 0 {
		return nil, llmerrors.NewError(llmerrors.ErrorTypeNoMatch,
			fmt.Sprintf("no passage cleared similarity threshold %.2f", r.threshold))
	}

	text, err := r.generate(ctx, query, citations)
	if err != nil {
		return nil, err
	}

	return &knowledge.Grounded{Text: text, Citations: citations}, nil
}

// retrieve runs the scored search, applies the inclusive threshold, and
// deduplicates citations by document.
func (r *Retriever) retrieve(ctx context.Context, query, collectionID string) ([]knowledge.Citation, error) {
	out, err := r.runtime.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: aws.String(collectionID),
		RetrievalQuery:  &bartypes.KnowledgeBaseQuery{Text: aws.String(query)},
		RetrievalConfiguration: &bartypes.KnowledgeBaseRetrievalConfiguration{
			VectorSearchConfiguration: &bartypes.KnowledgeBaseVectorSearchConfiguration{
				NumberOfResults: aws.Int32(int32(r.maxResults)),
			},
		},
	})
	if err != nil {
		return nil, classifyError(err)
	}

	citations := make([]knowledge.Citation, 0, len(out.RetrievalResults))
	for i := range out.RetrievalResults {
		result := &out.RetrievalResults[i]
		score := aws.ToFloat64(result.Score)
		if score < r.threshold {
			continue
		}
		citations = append(citations, knowledge.Citation{
			DocumentID: documentID(result),
			Title:      documentTitle(result),
			Excerpt:    excerpt(result),
			Score:      score,
		})
	}

	return knowledge.DedupeCitations(citations), nil
}

// generate conditions one completion on the retrieved passages.
func (r *Retriever) generate(ctx context.Context, query string, citations []knowledge.Citation) (string, error) {
	var sources strings.Builder
	for i, c := range citations {
		fmt.Fprintf(&sources, "[Source %d] %s\n%s\n\n", i+1, c.Title, c.Excerpt)
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage("You are a course catalog advisor. Answer using only the " +
			"provided source passages. Cite sources as [Source N]. If the sources do " +
			"not cover the question, say so rather than guessing."),
		llm.NewUserMessage(fmt.Sprintf("Sources:\n\n%sQuestion: %s", sources.String(), query)),
	})

	resp, err := r.generator.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func documentID(result *bartypes.KnowledgeBaseRetrievalResult) string {
	if result.Location != nil && result.Location.S3Location != nil {
		return aws.ToString(result.Location.S3Location.Uri)
	}
	return ""
}

// documentTitle derives a display title from the S3 object key.
func documentTitle(result *bartypes.KnowledgeBaseRetrievalResult) string {
	uri := documentID(result)
	if uri == "" {
		return ""
	}
	if i := strings.LastIndexByte(uri, '/'); i >= 0 && i+1 < len(uri) {
		return uri[i+1:]
	}
	return uri
}

func excerpt(result *bartypes.KnowledgeBaseRetrievalResult) string {
	if result.Content != nil {
		return aws.ToString(result.Content.Text)
	}
	return ""
}

// classifyError maps agent runtime errors into the shared taxonomy.
func classifyError(err error) *llmerrors.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "retrieval timeout")
	}
	if errors.Is(err, context.Canceled) {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "retrieval canceled")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeNotFound, err, "knowledge base not found")
		case "UnrecognizedClientException", "InvalidSignatureException", "ExpiredTokenException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAuth, err, "authentication failed - check AWS credentials")
		case "AccessDeniedException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeAccess, err, "access denied - check IAM permissions on the knowledge base")
		case "ThrottlingException", "ServiceQuotaExceededException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeRateLimit, err, "retrieval throttled")
		case "InternalServerException", "ServiceUnavailableException", "DependencyFailedException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "knowledge base service error")
		case "ValidationException":
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeBadPrompt, err, "retrieval request rejected")
		}
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") || strings.Contains(errStr, "EOF") {
		return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeTransient, err, "network error")
	}

	return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeUnknown, err, "unclassified retrieval error")
}
