package trace

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gohx/gohx/internal/engine"
)

// Recorder flattens lifecycle events into trace rows for one session.
// It satisfies the engine's Recorder interface and runs synchronously
// on the engine loop, so writes must stay cheap (one INSERT each).
type Recorder struct {
	store     *Store
	sessionID string
	now       func() time.Time
}

// NewRecorder begins a session and returns its recorder.
func NewRecorder(ctx context.Context, store *Store, baseURL string) (*Recorder, error) {
	r := &Recorder{
		store:     store,
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
	err := store.BeginSession(ctx, Session{ID: r.sessionID, BaseURL: baseURL, StartedAt: r.now()})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// SessionID returns the recorder's session key.
func (r *Recorder) SessionID() string { return r.sessionID }

// Record persists one lifecycle event.
func (r *Recorder) Record(ev *engine.Event) error {
	rec := Record{
		SessionID:  r.sessionID,
		Seq:        ev.Seq,
		Type:       string(ev.Type),
		URL:        ev.URL,
		RecordedAt: r.now(),
	}
	if ev.Request != nil {
		rec.RequestID = ev.Request.ID
		rec.Method = ev.Request.Method
		rec.URL = ev.Request.URL
	}
	if ev.Response != nil {
		rec.Status = ev.Response.Status
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	return r.store.WriteRecord(context.Background(), rec)
}
