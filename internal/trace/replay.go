package trace

import (
	"context"
	"fmt"
	"sort"
)

// Violation is one ordering or completeness defect found in a trace.
type Violation struct {
	RequestID string `json:"request_id,omitempty"`
	Seq       int64  `json:"seq"`
	Message   string `json:"message"`
}

// Report summarizes a session verification pass.
type Report struct {
	SessionID  string
	Events     int
	Requests   int
	Violations []Violation
}

// Clean reports whether the trace held every invariant.
func (r Report) Clean() bool { return len(r.Violations) == 0 }

// requestOrder is the mandatory per-request event order. Error-class
// events terminate a request wherever they appear; optional events
// (response-error, history-restore, refresh) interleave freely.
var requestOrder = map[string]int{
	"before-request": 1,
	"after-request":  2,
	"before-swap":    3,
	"after-swap":     4,
	"after-settle":   5,
}

// Verify replays a recorded session against the engine's ordering
// guarantees: seq strictly increases across the session, and each
// request's lifecycle events appear in protocol order with no event
// after a terminal one.
func Verify(ctx context.Context, store *Store, sessionID string) (Report, error) {
	records, err := store.ReadSession(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("verify session: %w", err)
	}

	report := Report{SessionID: sessionID, Events: len(records)}

	var lastSeq int64
	byRequest := make(map[string][]Record)
	for _, rec := range records {
		if rec.Seq <= lastSeq {
			report.Violations = append(report.Violations, Violation{
				RequestID: rec.RequestID,
				Seq:       rec.Seq,
				Message:   fmt.Sprintf("seq %d not after %d", rec.Seq, lastSeq),
			})
		}
		lastSeq = rec.Seq
		if rec.RequestID != "" {
			byRequest[rec.RequestID] = append(byRequest[rec.RequestID], rec)
		}
	}
	report.Requests = len(byRequest)

	ids := make([]string, 0, len(byRequest))
	for id := range byRequest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		report.Violations = append(report.Violations, verifyRequest(id, byRequest[id])...)
	}
	return report, nil
}

func verifyRequest(id string, recs []Record) []Violation {
	var out []Violation
	lastRank := 0
	terminated := false
	for _, rec := range recs {
		if terminated {
			out = append(out, Violation{RequestID: id, Seq: rec.Seq,
				Message: fmt.Sprintf("%s after terminal event", rec.Type)})
			continue
		}
		switch rec.Type {
		case "send-error", "timeout":
			terminated = true
		case "response-error", "history-restore", "refresh", "diagnostic":
			// free to interleave
		default:
			rank, known := requestOrder[rec.Type]
			if !known {
				continue
			}
			if rank <= lastRank {
				out = append(out, Violation{RequestID: id, Seq: rec.Seq,
					Message: fmt.Sprintf("%s out of order", rec.Type)})
			}
			lastRank = rank
		}
	}
	if lastRank == 1 && !terminated {
		// before-request with no completion event at all
		out = append(out, Violation{RequestID: id,
			Message: "request never completed"})
	}
	return out
}
