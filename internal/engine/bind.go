package engine

import (
	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
	"github.com/gohx/gohx/internal/request"
	"github.com/gohx/gohx/internal/trigger"
)

// bindDocument walks the live tree and binds trigger specs for every
// request-declaring element not yet bound. Called once at startup and
// again after every swap, so fragments brought in by responses become
// interactive.
//
// Binding parses each element's directives exactly once; the hot path
// (event to request) never re-parses attribute strings. Trigger state
// (once latches, changed values, open debounce windows) survives
// rebinds because bound elements are skipped.
func (e *Engine) bindDocument() {
	e.resolver.Unbind(e.doc.Root())

	dom.Walk(e.doc.Root(), func(el *html.Node) bool {
		if _, _, _, ok := request.ActionAttr(el); !ok {
			return true
		}
		if e.resolver.Bound(el) {
			return true
		}
		e.bindElement(el)
		return true
	})
}

// bindElement parses and attaches the element's trigger specs. A
// malformed spec is reported once and left inert; the element's other
// specs still bind.
func (e *Engine) bindElement(el *html.Node) {
	raw, ok := dom.Attr(el, "hx-trigger")
	if !ok {
		e.resolver.Bind(el, []trigger.Spec{trigger.Default(el)})
		return
	}

	specs, errs := trigger.ParseAll(raw)
	for _, err := range errs {
		e.log.Warn("inert trigger spec",
			"element", dom.SelectorPath(el),
			"error", err,
		)
		e.emit(&Event{
			Type: EventDiagnostic,
			Err: &EngineError{
				Code:    ErrCodeTriggerSpec,
				Message: err.Error(),
				Detail:  map[string]string{"element": dom.SelectorPath(el)},
			},
		})
	}
	if len(specs) == 0 && len(errs) == 0 {
		specs = []trigger.Spec{trigger.Default(el)}
	}
	if len(specs) > 0 {
		e.resolver.Bind(el, specs)
	}
}
