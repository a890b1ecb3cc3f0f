package trigger

import (
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gohx/gohx/internal/dom"
)

// Default returns the implicit trigger spec for an element kind when no
// hx-trigger attribute is present: forms submit, form controls change,
// everything else activates on click.
func Default(el *html.Node) Spec {
	switch {
	case el.DataAtom == atom.Form:
		return Spec{Event: "submit", raw: "submit"}
	case dom.IsFormElement(el) && !isButtonLike(el):
		return Spec{Event: "change", raw: "change"}
	default:
		return Spec{Event: "click", raw: "click"}
	}
}

func isButtonLike(el *html.Node) bool {
	if el.DataAtom != atom.Input {
		return false
	}
	switch dom.AttrOr(el, "type", "text") {
	case "button", "submit", "reset", "image":
		return true
	}
	return false
}

// Intent is a qualifying request intent produced by the resolver: the
// declaring element (acting context) plus the event that satisfied one
// of its specs.
type Intent struct {
	Owner *html.Node
	Spec  *Spec
	Event dom.Event
}

// Pending identifies a scheduled debounce flush. The engine owns the
// timer; when it expires it calls Resolver.Flush with the token. A
// superseded token flushes to nothing.
type Pending struct {
	Token int64
	Fire  time.Time
}

// Decision is the outcome of evaluating one event against one binding.
type Decision struct {
	// Intent is set when the event fires immediately.
	Intent *Intent
	// Pending is set when the fire is deferred (delay modifier).
	Pending *Pending
}

// Resolver owns the trigger bindings of a document and their runtime
// state (debounce windows, changed-values, once latches, throttle
// windows).
//
// The resolver is not safe for concurrent use; it is driven solely by
// the engine's single-writer loop.
type Resolver struct {
	bindings map[*html.Node][]*binding
	// remote bindings listen for events on elements other than their
	// owner (from: modifier); checked against every event's target.
	remote []*binding

	nextToken int64
}

type binding struct {
	owner *html.Node
	spec  Spec

	fired     bool   // once latch
	lastValue string // changed comparison
	hasLast   bool
	lastFire  time.Time // throttle window start
	hasFired  bool

	pendingToken int64 // 0 = no pending debounce
	pendingEvent dom.Event
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{bindings: make(map[*html.Node][]*binding)}
}

// Bind attaches parsed specs to an element. Specs with a from: modifier
// are indexed for remote matching.
func (r *Resolver) Bind(el *html.Node, specs []Spec) {
	for i := range specs {
		b := &binding{owner: el, spec: specs[i]}
		if b.spec.From != nil || b.spec.FromDocument {
			r.remote = append(r.remote, b)
			continue
		}
		r.bindings[el] = append(r.bindings[el], b)
	}
}

// Unbind drops every binding owned by elements no longer inside root.
// Called after swaps remove subtrees from the tracked tree.
func (r *Resolver) Unbind(root *html.Node) {
	for el := range r.bindings {
		if !dom.Contains(root, el) {
			delete(r.bindings, el)
		}
	}
	kept := r.remote[:0]
	for _, b := range r.remote {
		if dom.Contains(root, b.owner) {
			kept = append(kept, b)
		}
	}
	r.remote = kept
}

// Bound reports whether the element already has bindings registered.
func (r *Resolver) Bound(el *html.Node) bool {
	_, ok := r.bindings[el]
	return ok
}

// Resolve evaluates a runtime event against every binding listening for
// it and returns the resulting decisions. An event inside an open delay
// window does not fire; it resets the window and supersedes the
// previously pending fire silently.
func (r *Resolver) Resolve(ev dom.Event, now time.Time) []Decision {
	var out []Decision
	for _, b := range r.bindings[ev.Target] {
		if d, ok := r.evaluate(b, ev, now); ok {
			out = append(out, d)
		}
	}
	for _, b := range r.remote {
		if b.spec.FromDocument || (b.spec.From != nil && b.spec.From.Matches(ev.Target)) {
			if d, ok := r.evaluate(b, ev, now); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

func (r *Resolver) evaluate(b *binding, ev dom.Event, now time.Time) (Decision, bool) {
	s := &b.spec
	if s.Event != ev.Name {
		return Decision{}, false
	}
	if s.Filter != nil && !s.Filter.Match(ev.Detail) {
		return Decision{}, false
	}
	if s.Once && b.fired {
		return Decision{}, false
	}
	if s.Throttle > 0 && b.hasFired && now.Sub(b.lastFire) < s.Throttle {
		// inside the throttle window: discarded, not queued
		return Decision{}, false
	}

	if s.Delay > 0 {
		// debounce: replace any pending fire with this event
		r.nextToken++
		b.pendingToken = r.nextToken
		b.pendingEvent = ev
		return Decision{Pending: &Pending{Token: b.pendingToken, Fire: now.Add(s.Delay)}}, true
	}

	intent, ok := r.commit(b, ev, now)
	if !ok {
		return Decision{}, false
	}
	return Decision{Intent: intent}, true
}

// Flush completes a debounce window. Returns the intent to fire, or nil
// when the token was superseded by a later event or suppressed by the
// changed modifier.
func (r *Resolver) Flush(token int64, now time.Time) *Intent {
	for _, bs := range r.bindings {
		for _, b := range bs {
			if b.pendingToken == token {
				return r.flushBinding(b, now)
			}
		}
	}
	for _, b := range r.remote {
		if b.pendingToken == token {
			return r.flushBinding(b, now)
		}
	}
	return nil
}

func (r *Resolver) flushBinding(b *binding, now time.Time) *Intent {
	ev := b.pendingEvent
	b.pendingToken = 0
	b.pendingEvent = dom.Event{}
	intent, ok := r.commit(b, ev, now)
	if !ok {
		return nil
	}
	return intent
}

// commit applies fire-time suppression (changed) and records fire state.
func (r *Resolver) commit(b *binding, ev dom.Event, now time.Time) (*Intent, bool) {
	if b.spec.Changed {
		value := ev.Value
		if !ev.HasValue {
			value = dom.ControlValue(ev.Target)
		}
		if b.hasLast && b.lastValue == value {
			return nil, false
		}
		b.lastValue = value
		b.hasLast = true
	}
	b.fired = true
	b.hasFired = true
	b.lastFire = now
	return &Intent{Owner: b.owner, Spec: &b.spec, Event: ev}, true
}
