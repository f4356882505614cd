package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeCitationsKeepsHighestScore(t *testing.T) {
	in := []Citation{
		{DocumentID: "s3://kb/a.pdf", Score: 0.71},
		{DocumentID: "s3://kb/b.pdf", Score: 0.90},
		{DocumentID: "s3://kb/a.pdf", Score: 0.85, Excerpt: "better chunk"},
	}

	out := DedupeCitations(in)
	assert.Len(t, out, 2)

	// First-seen order preserved, best score retained.
	assert.Equal(t, "s3://kb/a.pdf", out[0].DocumentID)
	assert.Equal(t, 0.85, out[0].Score)
	assert.Equal(t, "better chunk", out[0].Excerpt)
	assert.Equal(t, "s3://kb/b.pdf", out[1].DocumentID)
}

func TestDedupeCitationsNoDuplicates(t *testing.T) {
	in := []Citation{
		{DocumentID: "a", Score: 0.8},
		{DocumentID: "b", Score: 0.7},
	}
	out := DedupeCitations(in)
	assert.Equal(t, in, out)
}

func TestDedupeCitationsEmpty(t *testing.T) {
	assert.Empty(t, DedupeCitations(nil))
	assert.Len(t, DedupeCitations([]Citation{{DocumentID: "a"}}), 1)
}
