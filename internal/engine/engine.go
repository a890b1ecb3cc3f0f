package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
	"github.com/gohx/gohx/internal/history"
	"github.com/gohx/gohx/internal/request"
	"github.com/gohx/gohx/internal/swap"
	"github.com/gohx/gohx/internal/transport"
	"github.com/gohx/gohx/internal/trigger"
)

// Recorder persists lifecycle events (see internal/trace). Record runs
// synchronously on the engine loop; a failing recorder is logged and
// ignored.
type Recorder interface {
	Record(ev *Event) error
}

// Engine drives one document: it resolves triggers, builds and sends
// requests, swaps responses in, and maintains history state.
//
// All state transitions happen on the Run loop. Dispatch, NavigateBack
// and NavigateForward are the only methods safe to call concurrently;
// they enqueue work for the loop rather than acting directly.
type Engine struct {
	cfg  Config
	doc  *dom.Document
	log  *slog.Logger
	now  func() time.Time

	queue    *eventQueue
	clock    *Clock
	resolver *trigger.Resolver
	builder  *request.Builder
	swapper  *swap.Engine
	history  *history.Manager
	client   *transport.Transport
	coord    *Coordinator
	bus      bus
	recorder Recorder

	// cancels maps in-flight request IDs to their transport cancel
	// functions. Loop-owned.
	cancels map[string]context.CancelFunc
}

// EngineOption configures an Engine at construction.
type EngineOption func(*Engine)

// WithTransport substitutes the HTTP transport (tests use one pointed
// at an httptest server's client).
func WithTransport(t *transport.Transport) EngineOption {
	return func(e *Engine) { e.client = t }
}

// WithListener subscribes a lifecycle listener at construction.
func WithListener(l Listener) EngineOption {
	return func(e *Engine) { e.bus.subscribe(l) }
}

// WithRecorder attaches a lifecycle event recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger substitutes the engine's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithNowFunc substitutes the clock for throttle and debounce
// bookkeeping (tests).
func WithNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
		e.history.SetNowFunc(now)
	}
}

// New creates an engine over a parsed document.
func New(doc *dom.Document, cfg Config, opts ...EngineOption) *Engine {
	cfg = cfg.normalize()
	e := &Engine{
		cfg:      cfg,
		doc:      doc,
		log:      slog.Default(),
		now:      time.Now,
		queue:    newEventQueue(),
		clock:    NewClock(),
		resolver: trigger.NewResolver(),
		builder:  request.NewBuilder(doc),
		swapper:  swap.NewEngine(doc),
		history:  history.NewManager(doc, cfg.HistoryCapacity, cfg.BaseURL),
		coord:    NewCoordinator(),
		cancels:  make(map[string]context.CancelFunc),
	}
	if cfg.Timeout > 0 {
		e.client = transport.New(transport.WithTimeout(cfg.Timeout))
	} else {
		e.client = transport.New()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe adds a lifecycle listener. Not safe once Run has started;
// subscribe before, or from inside another listener's callback.
func (e *Engine) Subscribe(l Listener) {
	e.bus.subscribe(l)
}

// Document returns the live document the engine mutates.
func (e *Engine) Document() *dom.Document { return e.doc }

// History returns the engine's history manager.
func (e *Engine) History() *history.Manager { return e.history }

// Dispatch delivers a runtime event to the engine. Safe from any
// goroutine; returns false once the engine has shut down.
func (e *Engine) Dispatch(ev dom.Event) bool {
	return e.queue.Enqueue(loopEvent{kind: kindDOM, dom: ev})
}

// NavigateBack requests a history back traversal.
func (e *Engine) NavigateBack() bool {
	return e.queue.Enqueue(loopEvent{kind: kindHistoryBack})
}

// NavigateForward requests a history forward traversal.
func (e *Engine) NavigateForward() bool {
	return e.queue.Enqueue(loopEvent{kind: kindHistoryForward})
}

// Run binds the document and processes events until ctx is cancelled.
// It always returns ctx's error.
func (e *Engine) Run(ctx context.Context) error {
	e.bindDocument()

	for {
		for {
			le, ok := e.queue.TryDequeue()
			if !ok {
				break
			}
			e.process(ctx, le)
		}

		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-e.queue.Wait():
		}
	}
}

func (e *Engine) shutdown() {
	for id, cancel := range e.cancels {
		cancel()
		delete(e.cancels, id)
	}
	e.queue.Close()
}

func (e *Engine) process(ctx context.Context, le loopEvent) {
	switch le.kind {
	case kindDOM:
		e.processDOM(ctx, le.dom)
	case kindTimer:
		e.processTimer(ctx, le.token)
	case kindResponse:
		e.processResponse(ctx, le)
	case kindSettle:
		e.emit(&Event{Type: EventAfterSettle, Request: le.req})
	case kindHistoryBack:
		e.processHistory(ctx, e.history.Back)
	case kindHistoryForward:
		e.processHistory(ctx, e.history.Forward)
	}
}

// emit stamps, delivers and records one lifecycle event, returning
// false when a listener vetoed it.
func (e *Engine) emit(ev *Event) bool {
	ev.Seq = e.clock.Next()
	ok := e.bus.emit(ev)
	if e.recorder != nil {
		if err := e.recorder.Record(ev); err != nil {
			e.log.Warn("trace record failed", "type", ev.Type, "error", err)
		}
	}
	return ok
}

func (e *Engine) diagnostic(code ErrorCode, requestID string, err error) {
	e.log.Warn("engine diagnostic", "code", code, "request", requestID, "error", err)
	e.emit(&Event{
		Type: EventDiagnostic,
		Err:  &EngineError{Code: code, Message: err.Error(), RequestID: requestID},
	})
}

func (e *Engine) processDOM(ctx context.Context, ev dom.Event) {
	if ev.Target == nil {
		return
	}
	// write the value before evaluation so parameter collection and
	// changed-comparison see the post-event control state
	if ev.HasValue {
		dom.SetControlValue(ev.Target, ev.Value)
	}

	for _, dec := range e.resolver.Resolve(ev, e.now()) {
		switch {
		case dec.Pending != nil:
			e.scheduleFlush(dec.Pending)
		case dec.Intent != nil:
			e.fire(ctx, dec.Intent)
		}
	}
}

// scheduleFlush arms a debounce timer. The token round-trips through
// the resolver: superseded tokens flush to nothing, which is how a
// later event silently replaces an earlier pending fire.
func (e *Engine) scheduleFlush(p *trigger.Pending) {
	token := p.Token
	delay := p.Fire.Sub(e.now())
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		e.queue.Enqueue(loopEvent{kind: kindTimer, token: token})
	})
}

func (e *Engine) processTimer(ctx context.Context, token int64) {
	if intent := e.resolver.Flush(token, e.now()); intent != nil {
		e.fire(ctx, intent)
	}
}

// fire turns a qualified trigger intent into a request submission.
func (e *Engine) fire(ctx context.Context, intent *trigger.Intent) {
	d, err := e.builder.Build(intent.Owner, request.Context{
		CurrentURL:   e.history.CurrentURL(),
		TriggerEvent: intent.Event.Name,
	})
	if err != nil {
		e.diagnostic(ErrCodeRequestBuild, "", err)
		return
	}

	strategy, err := ParseStrategy(d.SyncStrategy, e.cfg.DefaultSyncStrategy)
	if err != nil {
		e.diagnostic(ErrCodeRequestBuild, d.ID, err)
		strategy = e.cfg.DefaultSyncStrategy
	}
	e.submit(ctx, d, strategy)
}

func (e *Engine) submit(ctx context.Context, d *request.Descriptor, strategy Strategy) {
	v := e.coord.Submit(d, strategy)
	if v.Cancelled != nil {
		e.cancelSend(v.Cancelled)
	}
	if v.Admit {
		e.startSend(ctx, d)
	}
}

func (e *Engine) cancelSend(d *request.Descriptor) {
	if cancel, ok := e.cancels[d.ID]; ok {
		cancel()
		delete(e.cancels, d.ID)
	}
}

// startSend emits before-request and, unless vetoed, launches the
// transport goroutine. The goroutine's only side effect is enqueueing
// the completion; every consequence of the response happens back on
// the loop.
func (e *Engine) startSend(ctx context.Context, d *request.Descriptor) {
	ev := &Event{Type: EventBeforeRequest, Request: d}
	if !e.emit(ev) {
		e.log.Debug("request vetoed", "request", d.ID, "url", d.URL)
		e.finishRequest(ctx, d)
		return
	}

	sctx, cancel := context.WithCancel(ctx)
	e.cancels[d.ID] = cancel

	e.log.Debug("sending request",
		"request", d.ID, "method", d.Method, "url", d.URL, "scope", d.SyncScope)

	go func() {
		resp, err := e.client.Send(sctx, d)
		e.queue.Enqueue(loopEvent{kind: kindResponse, req: d, resp: resp, err: err})
	}()
}

// finishRequest runs the scope completion transition and activates the
// next queued request, if any.
func (e *Engine) finishRequest(ctx context.Context, d *request.Descriptor) {
	if next := e.coord.Complete(d); next != nil {
		e.startSend(ctx, next)
	}
}

func (e *Engine) processResponse(ctx context.Context, le loopEvent) {
	d := le.req
	e.cancelSend(d) // release the context

	if !e.coord.IsActive(d) {
		// cancelled or superseded while in flight; the replacement
		// owns the scope now
		e.log.Debug("discarding superseded response", "request", d.ID)
		return
	}
	defer e.finishRequest(ctx, d)

	if le.err != nil {
		switch {
		case errors.Is(le.err, transport.ErrTimeout):
			e.emit(&Event{Type: EventTimeout, Request: d, Err: le.err})
		case errors.Is(le.err, context.Canceled):
			// engine shutdown mid-flight; nothing to report
		default:
			e.emit(&Event{Type: EventSendError, Request: d, Err: le.err})
		}
		return
	}

	resp := le.resp
	e.emit(&Event{Type: EventAfterRequest, Request: d, Response: resp})

	if resp.Directives.Refresh {
		e.emit(&Event{Type: EventRefresh, Request: d, URL: d.URL})
		return
	}
	e.applyResponse(ctx, d, resp)
}

func (e *Engine) applyResponse(ctx context.Context, d *request.Descriptor, resp *transport.Response) {
	if !resp.OK() {
		e.emit(&Event{
			Type:     EventResponseError,
			Request:  d,
			Response: resp,
			Err:      &EngineError{Code: ErrCodeSwap, Message: http.StatusText(resp.Status), RequestID: d.ID},
		})
		if e.cfg.SwapOnlyOnSuccess {
			return
		}
	}

	dir, target, err := e.resolveSwap(d, resp)
	if err != nil {
		e.diagnostic(ErrCodeSwap, d.ID, err)
		return
	}

	if !e.emit(&Event{Type: EventBeforeSwap, Request: d, Response: resp}) {
		e.log.Debug("swap vetoed", "request", d.ID)
		return
	}

	nav, navigate := e.resolveNavigation(d, resp)

	// capture the departing content under the departing URL before the
	// mutation; SnapshotAfterSwap flips this to a post-swap capture
	if navigate && !d.NoHistoryCache && !e.cfg.SnapshotAfterSwap {
		if err := e.history.Snapshot(); err != nil {
			e.diagnostic(ErrCodeHistory, d.ID, err)
		}
	}

	res, err := e.swapper.Apply(target, resp.Body, dir)
	if err != nil {
		e.diagnostic(ErrCodeSwap, d.ID, err)
		return
	}
	for _, skip := range res.Skipped {
		e.log.Warn("swap fragment skipped", "request", d.ID, "oob", skip.OOB, "reason", skip.Reason)
	}

	// fragments brought in by the response become interactive before
	// after-swap listeners run
	e.bindDocument()
	e.emit(&Event{Type: EventAfterSwap, Request: d, Response: resp, Skips: res.Skipped})

	if navigate {
		e.history.Navigate(nav.url, nav.replace)
		if !d.NoHistoryCache && e.cfg.SnapshotAfterSwap {
			if err := e.history.Snapshot(); err != nil {
				e.diagnostic(ErrCodeHistory, d.ID, err)
			}
		}
	}
	if d.HistoryRestore {
		e.emit(&Event{Type: EventHistoryRestore, Request: d, URL: e.history.CurrentURL()})
	}

	// server-requested events re-enter through the front door so their
	// consequences interleave with user events in queue order
	if d.Source != nil {
		for _, t := range resp.Directives.Triggers {
			ev := dom.NewEvent(t.Name, d.Source)
			ev.Detail = t.Detail
			e.queue.Enqueue(loopEvent{kind: kindDOM, dom: ev})
		}
	}

	if dir.Settle > 0 {
		time.AfterFunc(dir.Settle, func() {
			e.queue.Enqueue(loopEvent{kind: kindSettle, req: d})
		})
	} else {
		e.emit(&Event{Type: EventAfterSettle, Request: d})
	}
}

// resolveSwap merges element configuration with response directive
// overrides. Response headers win.
func (e *Engine) resolveSwap(d *request.Descriptor, resp *transport.Response) (swap.Directive, *html.Node, error) {
	rawStyle := d.SwapStyle
	if resp.Directives.Reswap != "" {
		rawStyle = resp.Directives.Reswap
	}
	dir, err := swap.ParseDirective(rawStyle, e.cfg.DefaultSwapStyle)
	if err != nil {
		return swap.Directive{}, nil, err
	}

	selectExpr := d.SelectExpr
	if resp.Directives.Reselect != "" {
		selectExpr = resp.Directives.Reselect
	}
	dir, err = dir.WithSelect(selectExpr)
	if err != nil {
		return swap.Directive{}, nil, err
	}

	target := d.Target
	if resp.Directives.Retarget != "" {
		target, err = dom.ResolveTarget(e.doc, d.Source, resp.Directives.Retarget)
		if err != nil {
			return swap.Directive{}, nil, fmt.Errorf("retarget %q: %w", resp.Directives.Retarget, err)
		}
		if target == nil {
			return swap.Directive{}, nil, fmt.Errorf("retarget %q matched nothing", resp.Directives.Retarget)
		}
	}
	return dir, target, nil
}

type navigation struct {
	url     string
	replace bool
}

// resolveNavigation decides the URL update for a completed swap.
// Response headers take precedence over element directives; replace
// outranks push at each level; "false" at the winning level suppresses
// navigation entirely.
func (e *Engine) resolveNavigation(d *request.Descriptor, resp *transport.Response) (navigation, bool) {
	if d.HistoryRestore {
		// traversal already moved the current URL
		return navigation{}, false
	}
	if v := resp.Directives.ReplaceURL; v != "" {
		if v == "false" {
			return navigation{}, false
		}
		return navigation{url: v, replace: true}, true
	}
	if v := resp.Directives.PushURL; v != "" {
		if v == "false" {
			return navigation{}, false
		}
		return navigation{url: v}, true
	}
	if v := d.ReplaceURL; v != "" {
		switch v {
		case "false":
			return navigation{}, false
		case "true":
			return navigation{url: d.URL, replace: true}, true
		default:
			return navigation{url: v, replace: true}, true
		}
	}
	if v := d.PushURL; v != "" {
		switch v {
		case "false":
			return navigation{}, false
		case "true":
			return navigation{url: d.URL}, true
		default:
			return navigation{url: v}, true
		}
	}
	return navigation{}, false
}

// processHistory runs one traversal: move the stack, restore from the
// snapshot cache, and on a miss refetch the URL into the history root.
func (e *Engine) processHistory(ctx context.Context, move func() (string, bool)) {
	// save the departing content first so traversal in the opposite
	// direction can restore it without a request
	if err := e.history.Snapshot(); err != nil {
		e.diagnostic(ErrCodeHistory, "", err)
	}

	url, ok := move()
	if !ok {
		return
	}

	restored, err := e.history.Restore(url)
	if err != nil {
		e.diagnostic(ErrCodeHistory, "", err)
	}
	if restored {
		e.bindDocument()
		e.emit(&Event{Type: EventHistoryRestore, URL: url})
		return
	}

	e.log.Debug("history cache miss, refetching", "url", url)
	e.refetchHistory(ctx, url)
}

// refetchHistory issues the cache-miss fallback: a GET for the
// traversed URL whose response replaces the history root. The request
// runs in a dedicated scope under abort so rapid traversals supersede
// each other instead of interleaving.
func (e *Engine) refetchHistory(ctx context.Context, url string) {
	d := &request.Descriptor{
		ID:             uuid.NewString(),
		Method:         http.MethodGet,
		URL:            url,
		Header:         make(http.Header),
		Target:         e.history.Root(),
		SyncScope:      "history",
		NoHistoryCache: true,
		HistoryRestore: true,
	}
	d.Header.Set(request.HeaderRequest, "true")
	d.Header.Set(request.HeaderHistoryRestore, "true")
	d.Header.Set(request.HeaderCurrentURL, url)

	e.submit(ctx, d, StrategyAbort)
}
