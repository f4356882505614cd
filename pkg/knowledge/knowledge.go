// Package knowledge defines the retrieval-grounding contract: semantic
// search over a named knowledge collection followed by generation
// conditioned on the retrieved passages.
package knowledge

// Citation references a retrieved source chunk backing a grounded answer.
type Citation struct {
	// DocumentID identifies the source document (an S3 URI for Bedrock
	// knowledge bases). Citation sets are deduplicated by this field.
	DocumentID string `json:"document_id"`

	// Title is an optional display title for the source.
	Title string `json:"title,omitempty"`

	// Excerpt is the retrieved passage text, when available.
	Excerpt string `json:"excerpt,omitempty"`

	// Score is the similarity score reported by the search.
	Score float64 `json:"score"`
}

// Grounded is a retrieval-grounded generation result: text conditioned on
// the cited passages. Citations is non-empty by construction; a search that
// clears nothing above the threshold yields an ErrorTypeNoMatch instead.
type Grounded struct {
	Text      string
	Citations []Citation
}

// DedupeCitations collapses citations sharing a DocumentID, keeping the
// highest score and preserving first-seen order.
func DedupeCitations(citations []Citation) []Citation {
	if len(citations) <= 1 {
		return citations
	}

	index := make(map[string]int, len(citations))
	out := make([]Citation, 0, len(citations))
	for _, c := range citations {
		if i, seen := index[c.DocumentID]; seen {
			if c.Score > out[i].Score {
				// Keep the richer metadata along with the better score.
				out[i] = c
			}
			continue
		}
		index[c.DocumentID] = len(out)
		out = append(out, c)
	}
	return out
}
