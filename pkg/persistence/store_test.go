package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpath/pkg/agent"
	"careerpath/pkg/knowledge"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLoadExchanges(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.EnsureSession("sess-1"))

	first := agent.Exchange{
		Query: agent.Query{Text: "which course?", Goal: "Data Scientist"},
		Result: agent.Result{
			Kind: agent.KindGrounded,
			Text: "Take CS201.",
			Citations: []knowledge.Citation{
				{DocumentID: "s3://kb/catalog.pdf", Title: "catalog.pdf", Score: 0.82},
			},
		},
		At: time.Now().UTC(),
	}
	second := agent.Exchange{
		Query:  agent.Query{Text: "anything else?"},
		Result: agent.Result{Kind: agent.KindDegraded, Text: "static advice", Reason: "auth failure"},
		At:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveExchange("sess-1", first))
	require.NoError(t, store.SaveExchange("sess-1", second))

	loaded, err := store.LoadExchanges("sess-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "which course?", loaded[0].Query.Text)
	assert.Equal(t, "Data Scientist", loaded[0].Query.Goal)
	assert.Equal(t, agent.KindGrounded, loaded[0].Result.Kind)
	require.Len(t, loaded[0].Result.Citations, 1)
	assert.Equal(t, "s3://kb/catalog.pdf", loaded[0].Result.Citations[0].DocumentID)

	assert.Equal(t, agent.KindDegraded, loaded[1].Result.Kind)
	assert.Equal(t, "auth failure", loaded[1].Result.Reason)
}

func TestCloseNilStore(t *testing.T) {
	// The CLI drops the store and keeps running when persistence fails; its
	// deferred Close must not panic on the nil that is left behind.
	var store *Store
	assert.NoError(t, store.Close())
}

func TestCloseIsIdempotentAfterDrop(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store = nil
	assert.NoError(t, store.Close())
}

func TestLoadUnknownSessionIsEmpty(t *testing.T) {
	store := openTestStore(t)
	loaded, err := store.LoadExchanges("no-such-session")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.EnsureSession("sess-1"))
	require.NoError(t, store.EnsureSession("sess-1"))

	sessions, err := store.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, sessions)
}

func TestSessionsIsolated(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.EnsureSession("a"))
	require.NoError(t, store.EnsureSession("b"))

	require.NoError(t, store.SaveExchange("a", agent.Exchange{
		Query:  agent.Query{Text: "only in a"},
		Result: agent.Result{Kind: agent.KindUngrounded, Text: "answer"},
		At:     time.Now().UTC(),
	}))

	loaded, err := store.LoadExchanges("b")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
