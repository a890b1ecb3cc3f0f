package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document wraps a parsed HTML tree.
//
// The zero value is not usable; construct with Parse or ParseString.
type Document struct {
	root *html.Node // the html.DocumentNode
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses a full HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the document's body element, or nil if absent.
func (d *Document) Body() *html.Node {
	return findElement(d.root, func(n *html.Node) bool {
		return n.DataAtom == atom.Body
	})
}

// Render serializes the whole document back to HTML.
func (d *Document) Render() (string, error) {
	return RenderNode(d.root)
}

// RenderNode serializes a single node (and its subtree).
func RenderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return buf.String(), nil
}

// InnerHTML serializes the children of n, without n's own tag.
func InnerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render child: %w", err)
		}
	}
	return buf.String(), nil
}

// ParseFragment parses response content in the context of a target
// element. The context determines how the parser treats partial markup
// (e.g. bare <tr> rows are only valid inside a table context).
//
// Returns the top-level nodes of the fragment, detached and ready to be
// inserted into another tree.
func ParseFragment(content string, context *html.Node) ([]*html.Node, error) {
	ctx := context
	if ctx == nil || ctx.Type != html.ElementNode {
		ctx = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	// ParseFragment attaches children to an internal context node; detach
	// them so they can be re-parented by the caller.
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nodes, nil
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or a default.
func AttrOr(n *html.Node, name, def string) string {
	if v, ok := Attr(n, name); ok {
		return v
	}
	return def
}

// HasAttr reports whether the attribute is present, regardless of value.
func HasAttr(n *html.Node, name string) bool {
	_, ok := Attr(n, name)
	return ok
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes the named attribute if present.
func RemoveAttr(n *html.Node, name string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// Walk visits n and every element beneath it in document order.
// Returning false from visit stops the walk.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	walk(n, visit)
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n.Type == html.ElementNode {
		if !visit(n) {
			return false
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// findElement returns the first element under root satisfying pred.
func findElement(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Contains reports whether node is root or a descendant of root.
func Contains(root, node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == root {
			return true
		}
	}
	return false
}

// TagName returns the lowercase tag name of an element node.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}
