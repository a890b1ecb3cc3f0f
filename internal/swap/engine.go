package swap

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

// Attributes read off markup by the swap engine.
const (
	AttrOOB      = "hx-swap-oob"
	AttrPreserve = "hx-preserve"
)

// Skip records one fragment whose swap was skipped. Skips are
// per-fragment: other fragments in the same response still apply.
type Skip struct {
	// OOB is true for out-of-band fragments, false for the primary.
	OOB    bool
	Reason string
}

// Result reports what one Apply did.
type Result struct {
	// Swapped is true when the primary content was placed.
	Swapped bool
	// OOBApplied counts out-of-band fragments placed.
	OOBApplied int
	// Skipped lists fragments that could not be placed.
	Skipped []Skip
}

// Engine mutates a document per swap directives.
type Engine struct {
	doc *dom.Document
}

// NewEngine creates a swap engine over a document.
func NewEngine(doc *dom.Document) *Engine {
	return &Engine{doc: doc}
}

// Apply places response content at the target per the directive.
//
// Out-of-band fragments are extracted first and applied independently
// to their own targets; a missing or invalid OOB target skips only that
// fragment. The primary swap then applies the remaining content,
// filtered by the directive's content selector when present.
//
// Apply never returns an error for per-fragment failures; those are
// reported in Result.Skipped. The only error is unparseable content.
func (e *Engine) Apply(target *html.Node, content string, d Directive) (*Result, error) {
	res := &Result{}

	parseCtx := target
	if parseCtx != nil && (d.Style == StyleOuter || d.Style == StyleBeforeBegin || d.Style == StyleAfterEnd) {
		parseCtx = target.Parent
	}
	nodes, err := dom.ParseFragment(content, parseCtx)
	if err != nil {
		return nil, fmt.Errorf("parse response content: %w", err)
	}

	nodes = e.applyOOB(nodes, res)

	if d.Style == StyleNone {
		// fire-and-forget: primary content is discarded, no mutation
		return res, nil
	}

	if d.Select != nil {
		nodes = selectContent(nodes, d.Select)
		if nodes == nil {
			res.Skipped = append(res.Skipped, Skip{Reason: fmt.Sprintf("content selector %q matched nothing in response", d.Select)})
			return res, nil
		}
	}

	if target == nil || !dom.Contains(e.doc.Root(), target) {
		// raced with a prior removal; skip the primary only
		res.Skipped = append(res.Skipped, Skip{Reason: "target no longer present in document"})
		return res, nil
	}

	e.place(target, nodes, d.Style)
	res.Swapped = true
	return res, nil
}

// place performs the strategy mutation with preservation handling.
func (e *Engine) place(target *html.Node, nodes []*html.Node, style Style) {
	switch style {
	case StyleInner:
		relocatePreserved(target, nodes, false)
		dom.ReplaceChildren(target, nodes)
	case StyleOuter:
		relocatePreserved(target, nodes, true)
		dom.ReplaceNode(target, nodes)
	case StyleBeforeBegin:
		dom.InsertBefore(target, nodes)
	case StyleAfterBegin:
		dom.PrependChildren(target, nodes)
	case StyleBeforeEnd:
		dom.AppendChildren(target, nodes)
	case StyleAfterEnd:
		dom.InsertAfter(target, nodes)
	case StyleDelete:
		dom.Detach(target)
	}
}

// applyOOB extracts top-level out-of-band fragments and applies each to
// its own target. Returns the remaining (primary) nodes.
func (e *Engine) applyOOB(nodes []*html.Node, res *Result) []*html.Node {
	var primary []*html.Node
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			primary = append(primary, n)
			continue
		}
		oob, ok := dom.Attr(n, AttrOOB)
		if !ok {
			primary = append(primary, n)
			continue
		}
		e.applyOOBFragment(n, oob, res)
	}
	return primary
}

func (e *Engine) applyOOBFragment(frag *html.Node, directive string, res *Result) {
	style, targetExpr, err := parseOOBDirective(frag, directive)
	if err != nil {
		res.Skipped = append(res.Skipped, Skip{OOB: true, Reason: err.Error()})
		return
	}
	sel, err := dom.CompileSelector(targetExpr)
	if err != nil {
		res.Skipped = append(res.Skipped, Skip{OOB: true, Reason: fmt.Sprintf("bad oob target %q: %v", targetExpr, err)})
		return
	}
	target := sel.Query(e.doc.Root())
	if target == nil {
		res.Skipped = append(res.Skipped, Skip{OOB: true, Reason: fmt.Sprintf("oob target %q matched nothing", targetExpr)})
		return
	}
	// the marker must not leak into the document
	dom.RemoveAttr(frag, AttrOOB)
	e.place(target, []*html.Node{frag}, style)
	res.OOBApplied++
}

// parseOOBDirective interprets hx-swap-oob values: "true" (outerHTML on
// the element with the fragment's id), "<style>" (that style, same id
// addressing), or "<style>:<selector>" (explicit target).
func parseOOBDirective(frag *html.Node, directive string) (Style, string, error) {
	directive = strings.TrimSpace(directive)
	style := StyleOuter
	targetExpr := ""

	if directive != "" && directive != "true" {
		styleText := directive
		if i := strings.IndexByte(directive, ':'); i >= 0 {
			styleText = directive[:i]
			targetExpr = strings.TrimSpace(directive[i+1:])
		}
		s := Style(styleText)
		if !validStyles[s] {
			return "", "", fmt.Errorf("unknown oob swap style %q", styleText)
		}
		style = s
	}

	if targetExpr == "" {
		id, ok := dom.Attr(frag, "id")
		if !ok || id == "" {
			return "", "", fmt.Errorf("oob fragment has neither explicit target nor id")
		}
		targetExpr = "#" + id
	}
	return style, targetExpr, nil
}

// selectContent extracts the nodes matching the content selector from a
// parsed fragment, searching both the top level and subtrees.
func selectContent(nodes []*html.Node, sel *dom.Selector) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		if sel.Matches(n) {
			out = append(out, n)
			continue
		}
		out = append(out, sel.QueryAll(n)...)
	}
	return out
}

// relocatePreserved moves live preserved elements from the region a
// swap is about to destroy into the incoming content, at the position
// of the matching-id placeholder. The original node object moves; its
// state (uncommitted input values) moves with it.
func relocatePreserved(target *html.Node, incoming []*html.Node, includeTarget bool) {
	preserved := make(map[string]*html.Node)
	collect := func(n *html.Node) bool {
		if dom.HasAttr(n, AttrPreserve) {
			if id, ok := dom.Attr(n, "id"); ok && id != "" {
				preserved[id] = n
			}
		}
		return true
	}
	if includeTarget {
		dom.Walk(target, collect)
	} else {
		for c := target.FirstChild; c != nil; c = c.NextSibling {
			dom.Walk(c, collect)
		}
	}
	if len(preserved) == 0 {
		return
	}
	for _, root := range incoming {
		dom.Walk(root, func(placeholder *html.Node) bool {
			if !dom.HasAttr(placeholder, AttrPreserve) {
				return true
			}
			id, ok := dom.Attr(placeholder, "id")
			if !ok {
				return true
			}
			live, ok := preserved[id]
			if !ok || live == placeholder {
				return true
			}
			dom.Detach(live)
			if placeholder == root {
				// top-level placeholder: splice into the incoming slice
				for i, n := range incoming {
					if n == root {
						incoming[i] = live
						break
					}
				}
			} else {
				dom.ReplaceNode(placeholder, []*html.Node{live})
			}
			delete(preserved, id)
			return false
		})
	}
}
