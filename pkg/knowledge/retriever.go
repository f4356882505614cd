package knowledge

import (
	"context"
)

// Retriever is the contract for retrieval-augmented generation against a
// named knowledge collection.
//
// Implementations run a semantic search restricted to the configured top-K
// results, drop passages below the configured similarity threshold
// (inclusive: score == threshold counts as a match), and condition one
// generation call on the surviving passages.
//
// Error contract: a search that executed but cleared nothing above the
// threshold returns an ErrorTypeNoMatch, the expected trigger for an
// agent's ungrounded fallback branch, not a hard failure. A missing
// collection returns ErrorTypeNotFound. Credential, throttling, and
// malformed-response failures use the shared llmerrors taxonomy.
type Retriever interface {
	RetrieveAndGenerate(ctx context.Context, query, collectionID string) (*Grounded, error)
}
