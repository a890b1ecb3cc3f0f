package engine

import (
	"github.com/gohx/gohx/internal/request"
	"github.com/gohx/gohx/internal/swap"
	"github.com/gohx/gohx/internal/transport"
)

// EventType tags lifecycle notifications.
type EventType string

const (
	// EventBeforeRequest fires before send. Listeners may mutate the
	// descriptor's headers and parameters, or veto the send entirely
	// by setting Cancel.
	EventBeforeRequest EventType = "before-request"

	// EventAfterRequest fires on a completed exchange, any status.
	EventAfterRequest EventType = "after-request"

	// EventBeforeSwap fires before DOM mutation; veto-capable.
	EventBeforeSwap EventType = "before-swap"

	// EventAfterSwap fires after the mutation.
	EventAfterSwap EventType = "after-swap"

	// EventAfterSettle fires once the configured settle delay elapsed;
	// the DOM is stable for focus and measurement.
	EventAfterSettle EventType = "after-settle"

	// EventResponseError fires for non-2xx responses (which still swap
	// by default; configure SwapOnlyOnSuccess to suppress that).
	EventResponseError EventType = "response-error"

	// EventSendError fires on network failure. No retry is performed;
	// retries are the listener's responsibility.
	EventSendError EventType = "send-error"

	// EventTimeout fires when the transport timeout expired; the
	// request is treated as cancelled, no swap occurs.
	EventTimeout EventType = "timeout"

	// EventHistoryRestore fires when back/forward restored content
	// from the snapshot cache without a network request.
	EventHistoryRestore EventType = "history-restore"

	// EventRefresh fires when the server requested a full page reload;
	// the embedder owns actual reloads.
	EventRefresh EventType = "refresh"

	// EventDiagnostic carries bind-, build-, swap- and history-level
	// EngineError diagnostics.
	EventDiagnostic EventType = "diagnostic"
)

// Event is one lifecycle notification, consumed synchronously by
// listeners on the engine loop.
type Event struct {
	Type EventType

	// Seq is the logical clock stamp; strictly increasing across all
	// events the engine emits.
	Seq int64

	// Request correlates the event to an attempt, when one exists.
	Request *request.Descriptor

	// Response is set on after-request, response-error, before-swap
	// and after-swap.
	Response *transport.Response

	// Err is set on error-class events and diagnostics.
	Err error

	// Skips lists per-fragment swap skips (after-swap).
	Skips []swap.Skip

	// URL is set on history-restore and refresh events.
	URL string

	// Cancel vetoes the operation when set by a listener on a
	// veto-capable event (before-request, before-swap).
	Cancel bool
}

// Listener observes lifecycle events. Listeners run synchronously on
// the engine loop: they must not block.
type Listener func(*Event)

// bus fans lifecycle events out to listeners in subscription order.
type bus struct {
	listeners []Listener
}

func (b *bus) subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// emit delivers the event to every listener and reports whether a
// listener vetoed it.
func (b *bus) emit(e *Event) bool {
	for _, l := range b.listeners {
		l(e)
	}
	return !e.Cancel
}
