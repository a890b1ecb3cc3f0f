package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector covering the subset the protocol
// needs: tag names, #id, .class, [attr], [attr=value], compounds of
// those, the descendant combinator, and comma-separated alternatives.
//
// Selectors are compiled once at bind time (directives are parsed off
// markup exactly once per element); matching is allocation-free.
type Selector struct {
	raw  string
	alts [][]simpleSelector // outer: comma alternatives, inner: descendant chain
}

// simpleSelector is one compound step of a descendant chain.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	key string
	val string // empty means presence-only when hasVal is false
	has bool
}

// CompileSelector parses a selector expression.
// Returns an error for empty input or malformed steps.
func CompileSelector(expr string) (*Selector, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty selector")
	}
	sel := &Selector{raw: expr}
	for _, alt := range strings.Split(expr, ",") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			return nil, fmt.Errorf("selector %q: empty alternative", expr)
		}
		var chain []simpleSelector
		for _, step := range strings.Fields(alt) {
			ss, err := parseSimple(step)
			if err != nil {
				return nil, fmt.Errorf("selector %q: %w", expr, err)
			}
			chain = append(chain, ss)
		}
		sel.alts = append(sel.alts, chain)
	}
	return sel, nil
}

// MustSelector compiles or panics. For package-internal constants only.
func MustSelector(expr string) *Selector {
	s, err := CompileSelector(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the original selector text.
func (s *Selector) String() string { return s.raw }

func parseSimple(step string) (simpleSelector, error) {
	var ss simpleSelector
	rest := step
	// leading tag name
	i := 0
	for i < len(rest) && rest[i] != '#' && rest[i] != '.' && rest[i] != '[' {
		i++
	}
	if i > 0 {
		tag := strings.ToLower(rest[:i])
		if tag != "*" {
			ss.tag = tag
		}
		rest = rest[i:]
	}
	for rest != "" {
		switch rest[0] {
		case '#':
			j := segmentEnd(rest[1:])
			if j == 0 {
				return ss, fmt.Errorf("malformed id in %q", step)
			}
			ss.id = rest[1 : 1+j]
			rest = rest[1+j:]
		case '.':
			j := segmentEnd(rest[1:])
			if j == 0 {
				return ss, fmt.Errorf("malformed class in %q", step)
			}
			ss.classes = append(ss.classes, rest[1:1+j])
			rest = rest[1+j:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return ss, fmt.Errorf("unterminated attribute in %q", step)
			}
			body := rest[1:end]
			rest = rest[end+1:]
			if body == "" {
				return ss, fmt.Errorf("empty attribute in %q", step)
			}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				val := strings.Trim(body[eq+1:], `'"`)
				ss.attrs = append(ss.attrs, attrMatch{key: body[:eq], val: val, has: true})
			} else {
				ss.attrs = append(ss.attrs, attrMatch{key: body})
			}
		default:
			return ss, fmt.Errorf("unexpected %q in %q", rest[0], step)
		}
	}
	return ss, nil
}

// segmentEnd returns the length of the identifier prefix of s.
func segmentEnd(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '#' || c == '.' || c == '[' {
			return i
		}
	}
	return len(s)
}

func (ss *simpleSelector) matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if ss.tag != "" && TagName(n) != ss.tag {
		return false
	}
	if ss.id != "" {
		id, ok := Attr(n, "id")
		if !ok || id != ss.id {
			return false
		}
	}
	if len(ss.classes) > 0 {
		have := strings.Fields(AttrOr(n, "class", ""))
		for _, want := range ss.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, am := range ss.attrs {
		v, ok := Attr(n, am.key)
		if !ok {
			return false
		}
		if am.has && v != am.val {
			return false
		}
	}
	return true
}

// Matches reports whether n satisfies the selector, checking ancestor
// chains for descendant combinators.
func (s *Selector) Matches(n *html.Node) bool {
	for _, chain := range s.alts {
		if matchChain(chain, n) {
			return true
		}
	}
	return false
}

func matchChain(chain []simpleSelector, n *html.Node) bool {
	last := &chain[len(chain)-1]
	if !last.matches(n) {
		return false
	}
	// remaining steps must match some ancestors, outermost first
	rest := chain[:len(chain)-1]
	anc := n.Parent
	for i := len(rest) - 1; i >= 0; i-- {
		found := false
		for ; anc != nil; anc = anc.Parent {
			if rest[i].matches(anc) {
				found = true
				anc = anc.Parent
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Query returns the first element under root matching the selector, in
// document order, or nil.
func (s *Selector) Query(root *html.Node) *html.Node {
	return findElement(root, s.Matches)
}

// QueryAll returns every element under root matching the selector.
func (s *Selector) QueryAll(root *html.Node) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if s.Matches(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Closest returns the nearest ancestor of n (including n itself)
// matching the selector, or nil.
func (s *Selector) Closest(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && s.Matches(cur) {
			return cur
		}
	}
	return nil
}
