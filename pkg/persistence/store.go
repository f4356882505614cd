// Package persistence provides the SQLite-backed transcript store. Each
// interactive conversation is saved exchange by exchange so a session can be
// resumed across CLI runs. The store is a plain value owned by the caller;
// there is no package-level connection.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver registration

	"careerpath/pkg/agent"
	"careerpath/pkg/knowledge"
	"careerpath/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exchanges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	query_text  TEXT NOT NULL,
	query_goal  TEXT NOT NULL DEFAULT '',
	result_kind TEXT NOT NULL,
	result_text TEXT NOT NULL,
	citations   TEXT NOT NULL DEFAULT '[]',
	reason      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id);
`

// Store persists conversation transcripts in SQLite.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, logger: logx.NewLogger("persistence")}, nil
}

// Close releases the database connection. Safe on a nil receiver so a caller
// that dropped the store after a persistence failure can still defer it.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSession records the session row if it does not exist yet.
func (s *Store) EnsureSession(sessionID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", sessionID, err)
	}
	return nil
}

// SaveExchange appends one completed exchange to the transcript.
func (s *Store) SaveExchange(sessionID string, ex agent.Exchange) error {
	citations, err := json.Marshal(ex.Result.Citations)
	if err != nil {
		return fmt.Errorf("failed to encode citations: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO exchanges (session_id, query_text, query_goal, result_kind, result_text, citations, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		ex.Query.Text,
		ex.Query.Goal,
		ex.Result.Kind.String(),
		ex.Result.Text,
		string(citations),
		ex.Result.Reason,
		ex.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

// LoadExchanges returns a session's transcript in insertion order. Failed
// results are never persisted, so every loaded exchange is usable.
func (s *Store) LoadExchanges(sessionID string) ([]agent.Exchange, error) {
	rows, err := s.db.Query(
		`SELECT query_text, query_goal, result_kind, result_text, citations, reason, created_at
		 FROM exchanges WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchanges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []agent.Exchange
	for rows.Next() {
		var queryText, queryGoal, kind, text, citationsJSON, reason, createdAt string
		if err := rows.Scan(&queryText, &queryGoal, &kind, &text, &citationsJSON, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}

		var citations []knowledge.Citation
		if err := json.Unmarshal([]byte(citationsJSON), &citations); err != nil {
			s.logger.Warn("dropping malformed citations for session %s: %v", sessionID, err)
			citations = nil
		}

		at, _ := time.Parse(time.RFC3339Nano, createdAt)

		out = append(out, agent.Exchange{
			Query: agent.Query{Text: queryText, Goal: queryGoal},
			Result: agent.Result{
				Kind:      parseKind(kind),
				Text:      text,
				Citations: citations,
				Reason:    reason,
			},
			At: at,
		})
	}
	return out, rows.Err()
}

// Sessions lists stored session IDs, newest first.
func (s *Store) Sessions() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func parseKind(kind string) agent.ResultKind {
	switch kind {
	case "grounded":
		return agent.KindGrounded
	case "ungrounded":
		return agent.KindUngrounded
	case "degraded":
		return agent.KindDegraded
	default:
		return agent.KindFailed
	}
}
