package engine

import (
	"fmt"

	"github.com/gohx/gohx/internal/request"
)

// Strategy defines how overlapping requests within one sync scope are
// resolved.
type Strategy string

const (
	// StrategyDrop discards new requests while one is in flight.
	StrategyDrop Strategy = "drop"

	// StrategyAbort (the default, a.k.a. replace) cancels the
	// in-flight request; the new request becomes active.
	StrategyAbort Strategy = "abort"

	// StrategyQueueFirst retains only the first arrival while active;
	// later arrivals are dropped until the queue drains.
	StrategyQueueFirst Strategy = "queue first"

	// StrategyQueueLast retains only the most recent arrival; each new
	// one replaces the previously queued request.
	StrategyQueueLast Strategy = "queue last"

	// StrategyQueueAll appends every arrival to an unbounded FIFO,
	// serializing execution in submission order.
	StrategyQueueAll Strategy = "queue all"
)

// ParseStrategy normalizes an hx-sync strategy token. Empty input
// yields the provided default; "replace" is an alias for abort.
func ParseStrategy(raw string, def Strategy) (Strategy, error) {
	switch Strategy(raw) {
	case "":
		return def, nil
	case "replace":
		return StrategyAbort, nil
	case StrategyDrop, StrategyAbort, StrategyQueueFirst, StrategyQueueLast, StrategyQueueAll:
		return Strategy(raw), nil
	case "queue":
		// bare "queue" means queue last, per convention
		return StrategyQueueLast, nil
	default:
		return "", fmt.Errorf("unknown sync strategy %q", raw)
	}
}

// Verdict is the coordinator's decision for one submission.
type Verdict struct {
	// Admit is true when the request becomes active now.
	Admit bool

	// Queued is true when the request was retained for later.
	Queued bool

	// Cancelled is the previously active request this submission
	// displaced (abort strategy); the engine must cancel its
	// transport and discard its eventual response.
	Cancelled *request.Descriptor
}

// scopeState is the per-scope machine: idle (active == nil), active,
// or active with a pending queue.
type scopeState struct {
	active   *request.Descriptor
	queue    []*request.Descriptor
	strategy Strategy
}

// Coordinator governs overlapping requests per sync scope.
//
// CRITICAL: mutated only inside the engine loop's transition
// functions, never across a suspension point. At most one request is
// active per scope; "queue all" serializes its backlog through the
// same single active slot.
type Coordinator struct {
	scopes map[string]*scopeState
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{scopes: make(map[string]*scopeState)}
}

// Submit runs the admission transition for a request under a strategy.
func (c *Coordinator) Submit(d *request.Descriptor, strategy Strategy) Verdict {
	s, ok := c.scopes[d.SyncScope]
	if !ok {
		s = &scopeState{}
		c.scopes[d.SyncScope] = s
	}
	s.strategy = strategy

	if s.active == nil {
		s.active = d
		return Verdict{Admit: true}
	}

	switch strategy {
	case StrategyDrop:
		return Verdict{}

	case StrategyAbort:
		cancelled := s.active
		s.active = d
		return Verdict{Admit: true, Cancelled: cancelled}

	case StrategyQueueFirst:
		if len(s.queue) > 0 {
			return Verdict{}
		}
		s.queue = append(s.queue, d)
		return Verdict{Queued: true}

	case StrategyQueueLast:
		s.queue = s.queue[:0]
		s.queue = append(s.queue, d)
		return Verdict{Queued: true}

	case StrategyQueueAll:
		s.queue = append(s.queue, d)
		return Verdict{Queued: true}

	default:
		return Verdict{}
	}
}

// IsActive reports whether the given request is still the scope's
// active request. A response arriving for a non-active request was
// cancelled or superseded and must be discarded without side effects.
func (c *Coordinator) IsActive(d *request.Descriptor) bool {
	s, ok := c.scopes[d.SyncScope]
	return ok && s.active != nil && s.active.ID == d.ID
}

// Complete runs the completion transition. Returns the next queued
// request to activate, or nil when the scope returns to idle. The
// returned request is already recorded as active.
func (c *Coordinator) Complete(d *request.Descriptor) *request.Descriptor {
	s, ok := c.scopes[d.SyncScope]
	if !ok || s.active == nil || s.active.ID != d.ID {
		return nil
	}
	s.active = nil
	if len(s.queue) == 0 {
		delete(c.scopes, d.SyncScope)
		return nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.active = next
	return next
}

// ActiveCount returns the number of scopes with an in-flight request.
func (c *Coordinator) ActiveCount() int {
	n := 0
	for _, s := range c.scopes {
		if s.active != nil {
			n++
		}
	}
	return n
}
