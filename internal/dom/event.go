package dom

import "golang.org/x/net/html"

// Event is a runtime event delivered to the engine: a user interaction
// (click, input, submit), a server-dispatched custom event, or a
// history pop. Events are immutable values; construct and deliver, never
// mutate after construction.
type Event struct {
	// Name is the event type ("click", "input", "submit", custom names).
	Name string

	// Target is the element the event originated on.
	Target *html.Node

	// Value carries the input value for value-bearing events. The
	// engine writes it into the target control before trigger
	// evaluation so parameter collection sees the post-event state.
	Value string

	// HasValue distinguishes an intentional empty value from no value.
	HasValue bool

	// Detail holds arbitrary event properties, consulted by bracketed
	// trigger filters and available to listeners.
	Detail map[string]string
}

// NewEvent constructs a plain event.
func NewEvent(name string, target *html.Node) Event {
	return Event{Name: name, Target: target}
}

// NewValueEvent constructs an event carrying an input value.
func NewValueEvent(name string, target *html.Node, value string) Event {
	return Event{Name: name, Target: target, Value: value, HasValue: true}
}
