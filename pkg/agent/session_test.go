package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAppendAndLen(t *testing.T) {
	s := NewSession()
	assert.NotEmpty(t, s.ID())
	assert.Zero(t, s.Len())

	s.Append(Query{Text: "q1"}, Ungrounded("a1"))
	s.Append(Query{Text: "q2"}, Grounded("a2", nil))
	assert.Equal(t, 2, s.Len())
}

func TestSessionWithID(t *testing.T) {
	s := NewSessionWithID("abc-123")
	assert.Equal(t, "abc-123", s.ID())
}

func TestExchangesReturnsCopy(t *testing.T) {
	s := NewSession()
	s.Append(Query{Text: "q"}, Ungrounded("a"))

	exchanges := s.Exchanges()
	require.Len(t, exchanges, 1)
	exchanges[0].Query.Text = "mutated"
	assert.Equal(t, "q", s.Exchanges()[0].Query.Text)
}

func TestHistoryRendersRecentExchanges(t *testing.T) {
	s := NewSession()
	s.Append(Query{Text: "first"}, Ungrounded("one"))
	s.Append(Query{Text: "second"}, Ungrounded("two"))
	s.Append(Query{Text: "third"}, Ungrounded("three"))

	history := s.History(2)
	assert.NotContains(t, history, "first")
	assert.Contains(t, history, "User: second")
	assert.Contains(t, history, "Assistant: three")
}

func TestHistorySkipsFailedResults(t *testing.T) {
	s := NewSession()
	s.Append(Query{Text: "broken"}, Failed(assert.AnError))

	history := s.History(5)
	assert.Contains(t, history, "User: broken")
	assert.NotContains(t, history, "Assistant:")
}

func TestHistoryNilAndEmpty(t *testing.T) {
	var nilSession *Session
	assert.Empty(t, nilSession.History(5))
	assert.Empty(t, NewSession().History(5))
	s := NewSession()
	s.Append(Query{Text: "q"}, Ungrounded("a"))
	assert.Empty(t, s.History(0))
}

func TestResultKindString(t *testing.T) {
	assert.Equal(t, "grounded", KindGrounded.String())
	assert.Equal(t, "ungrounded", KindUngrounded.String())
	assert.Equal(t, "degraded", KindDegraded.String())
	assert.Equal(t, "failed", KindFailed.String())
}

func TestResultUsable(t *testing.T) {
	assert.True(t, Ungrounded("a").Usable())
	assert.True(t, Degraded("a", "r").Usable())
	assert.False(t, Failed(assert.AnError).Usable())
}
