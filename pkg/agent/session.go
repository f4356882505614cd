package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Exchange is one (Query, Result) pair in a conversation.
type Exchange struct {
	Query  Query
	Result Result
	At     time.Time
}

// Session is the append-only conversation log for a single interactive
// conversation. It is owned by exactly one caller; no locking is needed
// because nothing else writes after construction.
type Session struct {
	id        string
	exchanges []Exchange
}

// NewSession creates an empty session with a fresh identifier.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// NewSessionWithID resumes a session under an existing identifier.
func NewSessionWithID(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Append records a completed exchange. Append-only: existing entries are
// never modified.
func (s *Session) Append(query Query, result Result) {
	s.exchanges = append(s.exchanges, Exchange{Query: query, Result: result, At: time.Now().UTC()})
}

// Len returns the number of recorded exchanges.
func (s *Session) Len() int {
	return len(s.exchanges)
}

// Exchanges returns a copy of the recorded exchanges.
func (s *Session) Exchanges() []Exchange {
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// History renders the most recent n exchanges as conversational context for
// a prompt. Returns "" for an empty or nil session.
func (s *Session) History(n int) string {
	if s == nil || len(s.exchanges) == 0 || n <= 0 {
		return ""
	}

	start := len(s.exchanges) - n
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, ex := range s.exchanges[start:] {
		fmt.Fprintf(&b, "User: %s\n", ex.Query.Text)
		if ex.Result.Usable() && ex.Result.Text != "" {
			fmt.Fprintf(&b, "Assistant: %s\n", ex.Result.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
