package dom

import "golang.org/x/net/html"

// Mutation primitives used by the swap engine. These are the only
// functions in the repository that restructure a live document.

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceChildren removes every child of target and appends the given
// nodes in order.
func ReplaceChildren(target *html.Node, nodes []*html.Node) {
	for c := target.FirstChild; c != nil; {
		next := c.NextSibling
		target.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		Detach(n)
		target.AppendChild(n)
	}
}

// ReplaceNode substitutes target with the given nodes at the same
// position in its parent. The target is detached.
func ReplaceNode(target *html.Node, nodes []*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		Detach(n)
		parent.InsertBefore(n, target)
	}
	parent.RemoveChild(target)
}

// InsertBefore places nodes immediately before target among its
// siblings.
func InsertBefore(target *html.Node, nodes []*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		Detach(n)
		parent.InsertBefore(n, target)
	}
}

// InsertAfter places nodes immediately after target among its siblings.
func InsertAfter(target *html.Node, nodes []*html.Node) {
	parent := target.Parent
	if parent == nil {
		return
	}
	ref := target.NextSibling
	for _, n := range nodes {
		Detach(n)
		if ref == nil {
			parent.AppendChild(n)
		} else {
			parent.InsertBefore(n, ref)
		}
	}
}

// PrependChildren inserts nodes at the start of target's children.
func PrependChildren(target *html.Node, nodes []*html.Node) {
	ref := target.FirstChild
	for _, n := range nodes {
		Detach(n)
		if ref == nil {
			target.AppendChild(n)
		} else {
			target.InsertBefore(n, ref)
		}
	}
}

// AppendChildren inserts nodes at the end of target's children.
func AppendChildren(target *html.Node, nodes []*html.Node) {
	for _, n := range nodes {
		Detach(n)
		target.AppendChild(n)
	}
}
