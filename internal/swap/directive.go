// Package swap places response content into the document.
//
// It implements the swap strategies, out-of-band fragment handling,
// content selection and preserved-element relocation. The swap engine
// is the sole writer of document subtrees in the repository.
package swap

import (
	"fmt"
	"strings"
	"time"

	"github.com/gohx/gohx/internal/dom"
)

// Style is a swap strategy.
type Style string

const (
	// StyleInner replaces the target's contents (the default).
	StyleInner Style = "innerHTML"
	// StyleOuter replaces the target element itself, tag included.
	StyleOuter Style = "outerHTML"
	// StyleBeforeBegin inserts before the target element.
	StyleBeforeBegin Style = "beforebegin"
	// StyleAfterBegin prepends inside the target.
	StyleAfterBegin Style = "afterbegin"
	// StyleBeforeEnd appends inside the target.
	StyleBeforeEnd Style = "beforeend"
	// StyleAfterEnd inserts after the target element.
	StyleAfterEnd Style = "afterend"
	// StyleDelete removes the target; response content is ignored.
	StyleDelete Style = "delete"
	// StyleNone discards the response content for the primary target.
	// Out-of-band fragments in the response still apply.
	StyleNone Style = "none"
)

var validStyles = map[Style]bool{
	StyleInner: true, StyleOuter: true,
	StyleBeforeBegin: true, StyleAfterBegin: true,
	StyleBeforeEnd: true, StyleAfterEnd: true,
	StyleDelete: true, StyleNone: true,
}

// Directive is the parsed swap configuration for one response.
type Directive struct {
	Style Style

	// Settle delays the after-settle notification past the mutation.
	Settle time.Duration

	// Select extracts a subtree of the response as the content; nil
	// uses the whole response body.
	Select *dom.Selector
}

// ParseDirective parses an hx-swap value ("outerHTML settle:20ms").
// Empty input yields the given default style.
func ParseDirective(raw string, def Style) (Directive, error) {
	d := Directive{Style: def}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return d, nil
	}
	style := Style(fields[0])
	if !validStyles[style] {
		return Directive{}, fmt.Errorf("unknown swap style %q", fields[0])
	}
	d.Style = style
	for _, mod := range fields[1:] {
		switch {
		case strings.HasPrefix(mod, "settle:"):
			dur, err := time.ParseDuration(strings.TrimPrefix(mod, "settle:"))
			if err != nil {
				return Directive{}, fmt.Errorf("bad settle duration: %w", err)
			}
			d.Settle = dur
		default:
			return Directive{}, fmt.Errorf("unknown swap modifier %q", mod)
		}
	}
	return d, nil
}

// WithSelect attaches a content selector to the directive.
func (d Directive) WithSelect(expr string) (Directive, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return d, nil
	}
	sel, err := dom.CompileSelector(expr)
	if err != nil {
		return Directive{}, fmt.Errorf("bad content selector: %w", err)
	}
	d.Select = sel
	return d, nil
}
