package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ResolveTarget resolves an extended target expression relative to an
// element. Supported forms:
//
//	this            - the element itself
//	document        - the document's body
//	closest <sel>   - nearest matching ancestor (inclusive)
//	find <sel>      - first matching descendant of the element
//	next <sel>      - first match after the element in document order
//	previous <sel>  - last match before the element in document order
//	<sel>           - first match anywhere in the document
//
// Returns nil (without error) when the expression is valid but nothing
// matches; the caller decides whether a missing target is fatal.
func ResolveTarget(doc *Document, el *html.Node, expr string) (*html.Node, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "" || expr == "this":
		return el, nil
	case expr == "document" || expr == "body":
		return doc.Body(), nil
	}

	if rest, ok := strings.CutPrefix(expr, "closest "); ok {
		sel, err := CompileSelector(rest)
		if err != nil {
			return nil, err
		}
		return sel.Closest(el), nil
	}
	if rest, ok := strings.CutPrefix(expr, "find "); ok {
		sel, err := CompileSelector(rest)
		if err != nil {
			return nil, err
		}
		return sel.Query(el), nil
	}
	if rest, ok := strings.CutPrefix(expr, "next "); ok {
		return resolveDirectional(doc, el, rest, true)
	}
	if rest, ok := strings.CutPrefix(expr, "previous "); ok {
		return resolveDirectional(doc, el, rest, false)
	}

	sel, err := CompileSelector(expr)
	if err != nil {
		return nil, err
	}
	return sel.Query(doc.Root()), nil
}

func resolveDirectional(doc *Document, el *html.Node, rest string, forward bool) (*html.Node, error) {
	sel, err := CompileSelector(rest)
	if err != nil {
		return nil, err
	}
	all := sel.QueryAll(doc.Root())
	if forward {
		for _, n := range all {
			if n != el && precedes(el, n) {
				return n, nil
			}
		}
		return nil, nil
	}
	var prev *html.Node
	for _, n := range all {
		if n == el || precedes(el, n) {
			break
		}
		prev = n
	}
	return prev, nil
}

// precedes reports whether a comes strictly before b in document order.
// Both nodes must share a root.
func precedes(a, b *html.Node) bool {
	if a == b {
		return false
	}
	root := a
	for root.Parent != nil {
		root = root.Parent
	}
	result := false
	var visit func(n *html.Node) bool
	visit = func(n *html.Node) bool {
		if n == a {
			result = true
			return false
		}
		if n == b {
			result = false
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(root)
	return result
}

// SelectorPath builds a stable CSS selector for a node, used for the
// outgoing HX-Target and element-identification headers. Elements with
// an id get "#id"; otherwise a tag:nth-of-type chain from the nearest
// id-bearing ancestor (or body).
func SelectorPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if id, ok := Attr(cur, "id"); ok && id != "" {
			parts = append(parts, "#"+id)
			break
		}
		idx := 1
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode && sib.Data == cur.Data {
				idx++
			}
		}
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", TagName(cur), idx))
	}
	// parts were collected leaf-first
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
