// Package trigger parses trigger specifications off markup and resolves
// runtime events against them.
//
// A trigger specification is the comma-separated value of the hx-trigger
// attribute. Each entry names an event and optional modifiers:
//
//	keyup changed delay:300ms
//	click[ctrlKey] once
//	search from:#filter throttle:1s
//
// Specs are parsed once per element at bind time. A malformed entry is
// reported once and treated as inert; it never prevents the element's
// other entries from binding.
package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/gohx/gohx/internal/dom"
)

// Spec is one parsed trigger entry bound to an element.
type Spec struct {
	// Event is the runtime event name this spec listens for.
	Event string

	// Filter is an optional bracketed predicate on event detail.
	Filter *Filter

	// Changed suppresses a fire when the observed value equals the
	// value at the previous fire.
	Changed bool

	// Once disables the spec after its first fire.
	Once bool

	// Delay debounces: evaluation is deferred and reset by recurring
	// events; only the last event of a burst survives.
	Delay time.Duration

	// Throttle fires at most once per window, leading edge; events
	// inside the window are discarded.
	Throttle time.Duration

	// From rebinds listening to other elements while the acting
	// context stays with the declaring element. Nil means the
	// declaring element itself. FromDocument listens to every element.
	From         *dom.Selector
	FromDocument bool

	raw string
}

// Filter is a bracketed event-detail predicate: [key] is truthy
// presence, [key=value] is equality.
type Filter struct {
	Key   string
	Value string
	Eq    bool
}

// Match evaluates the filter against event detail.
func (f *Filter) Match(detail map[string]string) bool {
	v, ok := detail[f.Key]
	if !ok {
		return false
	}
	if f.Eq {
		return v == f.Value
	}
	return v != "" && v != "false" && v != "0"
}

// String returns the original spec text.
func (s Spec) String() string { return s.raw }

// ParseAll parses a full hx-trigger attribute value. Malformed entries
// are returned as errors alongside the specs that did parse; callers
// report each error once and bind the rest.
func ParseAll(value string) ([]Spec, []error) {
	var specs []Spec
	var errs []error
	for _, entry := range splitTop(value) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		spec, err := parseEntry(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

// splitTop splits on commas that are not inside brackets, so filter
// expressions may contain commas.
func splitTop(value string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, value[start:])
	return parts
}

func parseEntry(entry string) (Spec, error) {
	fields := strings.Fields(entry)
	head := fields[0]
	spec := Spec{raw: entry}

	// event name with optional [filter]
	if i := strings.IndexByte(head, '['); i >= 0 {
		if !strings.HasSuffix(head, "]") {
			return Spec{}, fmt.Errorf("trigger %q: unterminated filter", entry)
		}
		f, err := parseFilter(head[i+1 : len(head)-1])
		if err != nil {
			return Spec{}, fmt.Errorf("trigger %q: %w", entry, err)
		}
		spec.Filter = f
		head = head[:i]
	}
	if head == "" {
		return Spec{}, fmt.Errorf("trigger %q: missing event name", entry)
	}
	spec.Event = head

	i := 1
	for i < len(fields) {
		mod := fields[i]
		switch {
		case mod == "changed":
			spec.Changed = true
		case mod == "once":
			spec.Once = true
		case strings.HasPrefix(mod, "delay:"):
			d, err := time.ParseDuration(strings.TrimPrefix(mod, "delay:"))
			if err != nil {
				return Spec{}, fmt.Errorf("trigger %q: bad delay: %w", entry, err)
			}
			spec.Delay = d
		case strings.HasPrefix(mod, "throttle:"):
			d, err := time.ParseDuration(strings.TrimPrefix(mod, "throttle:"))
			if err != nil {
				return Spec{}, fmt.Errorf("trigger %q: bad throttle: %w", entry, err)
			}
			spec.Throttle = d
		case strings.HasPrefix(mod, "from:"):
			expr := strings.TrimPrefix(mod, "from:")
			// "from:closest div" style expressions consume the
			// following fields up to the next known modifier
			for i+1 < len(fields) && !isModifier(fields[i+1]) {
				i++
				expr += " " + fields[i]
			}
			if expr == "document" || expr == "body" {
				spec.FromDocument = true
				break
			}
			sel, err := dom.CompileSelector(strings.TrimPrefix(expr, "closest "))
			if err != nil {
				return Spec{}, fmt.Errorf("trigger %q: bad from selector: %w", entry, err)
			}
			spec.From = sel
		default:
			return Spec{}, fmt.Errorf("trigger %q: unknown modifier %q", entry, mod)
		}
		i++
	}
	if spec.Delay > 0 && spec.Throttle > 0 {
		return Spec{}, fmt.Errorf("trigger %q: delay and throttle are mutually exclusive", entry)
	}
	return spec, nil
}

func isModifier(field string) bool {
	if field == "changed" || field == "once" {
		return true
	}
	for _, p := range []string{"delay:", "throttle:", "from:"} {
		if strings.HasPrefix(field, p) {
			return true
		}
	}
	return false
}

func parseFilter(body string) (*Filter, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty filter")
	}
	if eq := strings.IndexByte(body, '='); eq >= 0 {
		key := strings.TrimSpace(body[:eq])
		if key == "" {
			return nil, fmt.Errorf("filter missing key")
		}
		return &Filter{Key: key, Value: strings.Trim(strings.TrimSpace(body[eq+1:]), `'"`), Eq: true}, nil
	}
	return &Filter{Key: body}, nil
}
