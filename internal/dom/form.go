package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FormValue is one name/value pair collected off the document. Order is
// preserved and names may repeat (multi-select, repeated checkboxes).
type FormValue struct {
	Name  string
	Value string
	// File marks values originating from file inputs; their presence
	// forces multipart encoding.
	File bool
}

// IsFormElement reports whether the element contributes form values
// directly (input, select, textarea).
func IsFormElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Input, atom.Select, atom.Textarea:
		return true
	}
	return false
}

// IsFormOwner reports whether the element owns a set of form controls
// (form, or fieldset treated as a grouping container).
func IsFormOwner(n *html.Node) bool {
	return n.DataAtom == atom.Form || n.DataAtom == atom.Fieldset
}

// ClosestForm returns the form the element belongs to, or nil.
func ClosestForm(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.DataAtom == atom.Form {
			return cur
		}
	}
	return nil
}

// CollectValues gathers the form values an element contributes.
//
// For a form (or fieldset) every enabled, named control inside it is
// collected in document order. For a bare control, only that control.
// For anything else, nothing. Unchecked checkboxes and radios are
// skipped, as are disabled controls and unnamed controls.
func CollectValues(n *html.Node) []FormValue {
	if n == nil {
		return nil
	}
	if IsFormOwner(n) {
		var out []FormValue
		Walk(n, func(c *html.Node) bool {
			if c != n && IsFormElement(c) {
				out = append(out, controlValues(c)...)
			}
			return true
		})
		return out
	}
	if IsFormElement(n) {
		return controlValues(n)
	}
	return nil
}

func controlValues(n *html.Node) []FormValue {
	if HasAttr(n, "disabled") {
		return nil
	}
	name := AttrOr(n, "name", "")
	if name == "" {
		return nil
	}
	switch n.DataAtom {
	case atom.Input:
		typ := strings.ToLower(AttrOr(n, "type", "text"))
		switch typ {
		case "checkbox", "radio":
			if !HasAttr(n, "checked") {
				return nil
			}
			return []FormValue{{Name: name, Value: AttrOr(n, "value", "on")}}
		case "file":
			v, ok := Attr(n, "value")
			if !ok {
				return nil
			}
			return []FormValue{{Name: name, Value: v, File: true}}
		case "submit", "button", "image", "reset":
			// buttons contribute only when they triggered the request;
			// the request builder handles that case separately
			return nil
		default:
			return []FormValue{{Name: name, Value: AttrOr(n, "value", "")}}
		}
	case atom.Textarea:
		return []FormValue{{Name: name, Value: textContent(n)}}
	case atom.Select:
		var out []FormValue
		Walk(n, func(opt *html.Node) bool {
			if opt.DataAtom == atom.Option && HasAttr(opt, "selected") {
				v, ok := Attr(opt, "value")
				if !ok {
					v = textContent(opt)
				}
				out = append(out, FormValue{Name: name, Value: v})
			}
			return true
		})
		return out
	}
	return nil
}

// SetControlValue updates a control's current value in the document,
// mirroring what user input does to the live DOM. Used by the engine
// when dispatching input events and by history restoration tests.
func SetControlValue(n *html.Node, value string) {
	switch n.DataAtom {
	case atom.Textarea:
		// replace text children
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	default:
		SetAttr(n, "value", value)
	}
}

// ControlValue reads a control's current value.
func ControlValue(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.DataAtom == atom.Textarea {
		return textContent(n)
	}
	return AttrOr(n, "value", "")
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			visit(gc)
		}
	}
	visit(n)
	return sb.String()
}

// TextContent returns the concatenated text beneath a node.
func TextContent(n *html.Node) string {
	return textContent(n)
}
