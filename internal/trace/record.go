package trace

import (
	"context"
	"fmt"
	"time"
)

// Session is one recorded engine run.
type Session struct {
	ID        string
	BaseURL   string
	StartedAt time.Time
}

// Record is one flattened lifecycle event row.
type Record struct {
	SessionID  string
	Seq        int64
	Type       string
	RequestID  string
	Method     string
	URL        string
	Status     int
	Error      string
	RecordedAt time.Time
}

// BeginSession registers a session row. Duplicate IDs are ignored so
// re-opening a trace file for the same session is safe.
func (s *Store) BeginSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, base_url, started_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.BaseURL, sess.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// WriteRecord inserts one event row. The (session, seq) key makes
// duplicate writes idempotent: the engine's clock never reuses a seq.
func (s *Store) WriteRecord(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(session_id, seq, type, request_id, method, url, status, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		r.SessionID,
		r.Seq,
		r.Type,
		r.RequestID,
		r.Method,
		r.URL,
		r.Status,
		r.Error,
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, base_url, started_at FROM sessions ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started string
		if err := rows.Scan(&sess.ID, &sess.BaseURL, &started); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse session timestamp: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// ReadSession returns every event of a session in seq order.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]Record, error) {
	return s.readRecords(ctx, `
		SELECT session_id, seq, type, request_id, method, url, status, error, recorded_at
		FROM events WHERE session_id = ? ORDER BY seq
	`, sessionID)
}

// ReadRequest returns a single request's events in seq order.
func (s *Store) ReadRequest(ctx context.Context, sessionID, requestID string) ([]Record, error) {
	return s.readRecords(ctx, `
		SELECT session_id, seq, type, request_id, method, url, status, error, recorded_at
		FROM events WHERE session_id = ? AND request_id = ? ORDER BY seq
	`, sessionID, requestID)
}

func (s *Store) readRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var recorded string
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.Type, &r.RequestID,
			&r.Method, &r.URL, &r.Status, &r.Error, &recorded); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("parse record timestamp: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
