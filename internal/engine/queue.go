package engine

import (
	"sync"

	"github.com/gohx/gohx/internal/dom"
	"github.com/gohx/gohx/internal/request"
	"github.com/gohx/gohx/internal/transport"
)

// loopEventKind distinguishes loop event kinds.
type loopEventKind int

const (
	// kindDOM is a runtime event delivered to the document.
	kindDOM loopEventKind = iota + 1
	// kindTimer is a debounce window expiry.
	kindTimer
	// kindResponse is a transport completion (success or error).
	kindResponse
	// kindSettle is a deferred after-settle notification.
	kindSettle
	// kindHistoryBack / kindHistoryForward are traversal requests.
	kindHistoryBack
	kindHistoryForward
)

// loopEvent wraps everything the Run loop processes.
type loopEvent struct {
	kind  loopEventKind
	dom   dom.Event
	token int64
	req   *request.Descriptor
	resp  *transport.Response
	err   error
}

// eventQueue is a thread-safe FIFO for loop events.
//
// Unbounded: server-triggered event cascades may enqueue arbitrarily
// many follow-on events without blocking the transport goroutines that
// deliver completions.
//
// A buffered signal channel (size 1) coalesces wakeups so the Run loop
// can wait context-aware.
type eventQueue struct {
	mu     sync.Mutex
	events []loopEvent
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]loopEvent, 0, 32),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Safe from any goroutine. Returns false after Close.
func (q *eventQueue) Enqueue(e loopEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front event without blocking.
func (q *eventQueue) TryDequeue() (loopEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return loopEvent{}, false
	}
	e := q.events[0]

	// nil the slot so the descriptor/response pointers are collectable
	q.events[0] = loopEvent{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns the wakeup channel for select-based waiting.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops the queue and wakes all waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
