// Package engine is the single-writer protocol engine event loop.
//
// The engine processes runtime events (user interactions, debounce
// timer expiries, transport completions, history traversals) in FIFO
// order on one goroutine. Trigger evaluation, request building, swap
// application and history bookkeeping all happen inside that loop; the
// HTTP transport is the only concurrent activity, completing by
// enqueueing a response event back onto the same loop.
//
// Thread-safety model:
//   - Dispatch(), NavigateBack(), NavigateForward(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - everything else: loop-internal, never called concurrently
//
// INVARIANTS:
//   - at most one request is active per sync scope (unless draining a
//     "queue all" backlog, which still serializes execution)
//   - lifecycle events for one request fire in strict order:
//     before-request, after-request|error, before-swap, after-swap,
//     after-settle
//   - events from different requests interleave only across the
//     transport suspension point, never mid-swap
package engine
