package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

// Standard request headers the engine attaches to every request. The
// server branches on these to return fragments instead of full pages.
const (
	HeaderRequest     = "HX-Request"
	HeaderTrigger     = "HX-Trigger"
	HeaderTriggerName = "HX-Trigger-Name"
	HeaderTarget      = "HX-Target"
	HeaderCurrentURL  = "HX-Current-URL"

	// HeaderHistoryRestore marks cache-miss history refetches so the
	// server can return a full page for the traversed URL.
	HeaderHistoryRestore = "HX-History-Restore-Request"
)

// methodAttrs maps directive attributes to HTTP methods, checked in
// this order.
var methodAttrs = []struct {
	attr   string
	method string
}{
	{"hx-get", http.MethodGet},
	{"hx-post", http.MethodPost},
	{"hx-put", http.MethodPut},
	{"hx-patch", http.MethodPatch},
	{"hx-delete", http.MethodDelete},
}

// BuildError is a build-level failure (§ error taxonomy): the request
// was not sent and no partial request was issued.
type BuildError struct {
	Reason string
	Source *html.Node
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("request build failed: %s (element %s)", e.Reason, dom.SelectorPath(e.Source))
}

// Builder assembles request descriptors from fired triggers.
type Builder struct {
	doc *dom.Document

	// AllowOverride controls whether later parameter sources replace
	// earlier same-named keys (default true: later wins).
	AllowOverride bool
}

// NewBuilder creates a builder over a document.
func NewBuilder(doc *dom.Document) *Builder {
	return &Builder{doc: doc, AllowOverride: true}
}

// Context carries per-build state owned by the engine.
type Context struct {
	// CurrentURL is the engine's notion of the browser URL, sent in
	// HX-Current-URL and used to resolve relative request URLs.
	CurrentURL string

	// TriggerEvent is the runtime event name that fired.
	TriggerEvent string
}

// ActionAttr returns the directive attribute and method of an element,
// or false when the element declares no request.
func ActionAttr(el *html.Node) (attr, method, target string, ok bool) {
	for _, ma := range methodAttrs {
		if v, found := dom.Attr(el, ma.attr); found {
			return ma.attr, ma.method, v, true
		}
	}
	return "", "", "", false
}

// InheritedAttr walks the element's ancestor chain for an attribute,
// nearest declaration wins. Directive attributes like hx-target and
// hx-swap inherit so containers can configure whole regions.
func InheritedAttr(el *html.Node, name string) (string, bool) {
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			break
		}
		if v, ok := dom.Attr(cur, name); ok {
			return v, ok
		}
	}
	return "", false
}

// Build produces the descriptor for a fired trigger, or a *BuildError
// when the element's configuration cannot produce a sendable request.
func (b *Builder) Build(source *html.Node, bctx Context) (*Descriptor, error) {
	_, method, action, ok := ActionAttr(source)
	if !ok {
		return nil, &BuildError{Reason: "no method directive", Source: source}
	}

	targetExpr, _ := InheritedAttr(source, "hx-target")
	target, err := dom.ResolveTarget(b.doc, source, targetExpr)
	if err != nil {
		return nil, &BuildError{Reason: fmt.Sprintf("bad target %q: %v", targetExpr, err), Source: source}
	}
	if target == nil {
		return nil, &BuildError{Reason: fmt.Sprintf("target %q matched nothing", targetExpr), Source: source}
	}

	params, err := b.collectParams(source)
	if err != nil {
		return nil, err
	}
	params = filterParams(params, dom.AttrOr(source, "hx-params", "*"))

	enc := b.pickEncoding(source, params)

	reqURL, err := resolveURL(bctx.CurrentURL, action)
	if err != nil {
		return nil, &BuildError{Reason: fmt.Sprintf("bad url %q: %v", action, err), Source: source}
	}
	if method == http.MethodGet && len(params) > 0 {
		reqURL = appendQuery(reqURL, params)
	}

	d := &Descriptor{
		ID:           uuid.NewString(),
		Method:       method,
		URL:          reqURL,
		Params:       params,
		Header:       make(http.Header),
		Encoding:     enc,
		Source:       source,
		Target:       target,
		TriggerEvent: bctx.TriggerEvent,
		SyncStrategy: "",
	}

	if v, ok := InheritedAttr(source, "hx-swap"); ok {
		d.SwapStyle = v
	}
	if v, ok := dom.Attr(source, "hx-select"); ok {
		d.SelectExpr = v
	}
	if v, ok := InheritedAttr(source, "hx-push-url"); ok {
		d.PushURL = v
	}
	if v, ok := InheritedAttr(source, "hx-replace-url"); ok {
		d.ReplaceURL = v
	}
	if dom.AttrOr(source, "hx-history", "") == "false" {
		d.NoHistoryCache = true
	}
	b.resolveSync(source, d)

	d.Header.Set(HeaderRequest, "true")
	d.Header.Set(HeaderTarget, d.TargetSelector())
	d.Header.Set(HeaderTrigger, triggerID(source))
	if name := dom.AttrOr(source, "name", ""); name != "" {
		d.Header.Set(HeaderTriggerName, name)
	}
	if bctx.TriggerEvent != "" {
		d.Header.Set("HX-Trigger-Event", bctx.TriggerEvent)
	}
	if bctx.CurrentURL != "" {
		d.Header.Set(HeaderCurrentURL, bctx.CurrentURL)
	}

	return d, nil
}

// resolveSync reads hx-sync ("<target>:<strategy>" or bare strategy)
// and records the resolved scope key. Relative scope expressions
// ("this", "closest …") resolve against the element declaring the
// attribute, which may be an ancestor of the trigger source. Without
// hx-sync the element is its own scope under the default strategy.
func (b *Builder) resolveSync(source *html.Node, d *Descriptor) {
	declarer := source
	raw, ok := "", false
	for cur := source; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		if v, found := dom.Attr(cur, "hx-sync"); found {
			raw, ok, declarer = v, true, cur
			break
		}
	}
	if !ok {
		d.SyncScope = dom.SelectorPath(source)
		return
	}
	expr, strategy := raw, ""
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		expr, strategy = strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	scopeEl, err := dom.ResolveTarget(b.doc, declarer, expr)
	if err != nil || scopeEl == nil {
		scopeEl = declarer
	}
	d.SyncScope = dom.SelectorPath(scopeEl)
	d.SyncStrategy = strategy
}

// collectParams gathers in spec order: triggering element, then
// hx-include elements, then hx-vals literals. Later sources win on
// same-named keys when AllowOverride is set.
func (b *Builder) collectParams(source *html.Node) ([]Param, error) {
	var params []Param

	for _, fv := range dom.CollectValues(paramRoot(source)) {
		params = append(params, Param{Name: fv.Name, Value: fv.Value, File: fv.File})
	}
	// a named button carries its own value when it triggered
	if name := dom.AttrOr(source, "name", ""); name != "" && isSubmitter(source) {
		params = append(params, Param{Name: name, Value: dom.AttrOr(source, "value", "")})
	}

	if include, ok := InheritedAttr(source, "hx-include"); ok {
		incParams, err := b.collectIncludes(source, include)
		if err != nil {
			return nil, err
		}
		params = b.merge(params, incParams)
	}

	if vals, ok := InheritedAttr(source, "hx-vals"); ok {
		valParams, err := parseVals(vals)
		if err != nil {
			return nil, &BuildError{Reason: fmt.Sprintf("bad hx-vals: %v", err), Source: source}
		}
		params = b.merge(params, valParams)
	}

	return params, nil
}

// paramRoot widens a submit control to its owning form so a button
// that triggers a submission carries every field, not just its own.
func paramRoot(source *html.Node) *html.Node {
	if isSubmitter(source) {
		if form := dom.ClosestForm(source); form != nil {
			return form
		}
	}
	return source
}

func isSubmitter(n *html.Node) bool {
	if dom.TagName(n) == "button" {
		return true
	}
	if dom.TagName(n) == "input" {
		t := dom.AttrOr(n, "type", "text")
		return t == "submit" || t == "image"
	}
	return false
}

func (b *Builder) collectIncludes(source *html.Node, include string) ([]Param, error) {
	var out []Param
	for _, expr := range strings.Split(include, ",") {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		el, err := dom.ResolveTarget(b.doc, source, expr)
		if err != nil {
			return nil, &BuildError{Reason: fmt.Sprintf("bad include %q: %v", expr, err), Source: source}
		}
		if el == nil {
			return nil, &BuildError{Reason: fmt.Sprintf("include %q matched nothing", expr), Source: source}
		}
		for _, fv := range dom.CollectValues(el) {
			out = append(out, Param{Name: fv.Name, Value: fv.Value, File: fv.File})
		}
	}
	return out, nil
}

// merge appends later-source params; under AllowOverride a later key
// replaces every earlier value of that key (later wins).
func (b *Builder) merge(earlier, later []Param) []Param {
	if !b.AllowOverride {
		return append(earlier, later...)
	}
	replaced := make(map[string]bool, len(later))
	for _, p := range later {
		replaced[p.Name] = true
	}
	out := earlier[:0]
	for _, p := range earlier {
		if !replaced[p.Name] {
			out = append(out, p)
		}
	}
	return append(out, later...)
}

// parseVals decodes an hx-vals JSON object into params. Scalars become
// plain values; arrays become repeated keys; objects stay structured
// (serialized as JSON text under URL encoding, kept intact under JSON
// encoding).
func parseVals(raw string) ([]Param, error) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	var out []Param
	// deterministic order for repeatable requests
	for _, k := range sortedKeys(m) {
		switch v := m[k].(type) {
		case []any:
			for _, item := range v {
				out = append(out, Param{Name: k, Value: scalarString(item), Structured: item})
			}
		case map[string]any:
			text, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			out = append(out, Param{Name: k, Value: string(text), Structured: v})
		default:
			out = append(out, Param{Name: k, Value: scalarString(v), Structured: v})
		}
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case json.Number:
		return t.String()
	default:
		text, _ := json.Marshal(t)
		return string(text)
	}
}

// filterParams applies the hx-params directive: "*" all, "none" none,
// "not a,b" all except, "a,b" allow-list.
func filterParams(params []Param, directive string) []Param {
	directive = strings.TrimSpace(directive)
	switch directive {
	case "", "*":
		return params
	case "none":
		return nil
	}
	if rest, ok := strings.CutPrefix(directive, "not "); ok {
		deny := nameSet(rest)
		var out []Param
		for _, p := range params {
			if !deny[p.Name] {
				out = append(out, p)
			}
		}
		return out
	}
	allow := nameSet(directive)
	var out []Param
	for _, p := range params {
		if allow[p.Name] {
			out = append(out, p)
		}
	}
	return out
}

func nameSet(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = true
		}
	}
	return set
}

func (b *Builder) pickEncoding(source *html.Node, params []Param) Encoding {
	switch enc, _ := InheritedAttr(source, "hx-encoding"); enc {
	case "multipart/form-data":
		return EncodingMultipart
	case "application/json":
		return EncodingJSON
	}
	for _, p := range params {
		if p.File {
			return EncodingMultipart
		}
	}
	return EncodingURL
}

// resolveURL resolves the action against the current URL so relative
// actions behave like browser navigation.
func resolveURL(current, action string) (string, error) {
	if current == "" {
		return action, nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func appendQuery(reqURL string, params []Param) string {
	u, err := url.Parse(reqURL)
	if err != nil {
		return reqURL
	}
	q := u.Query()
	for _, p := range params {
		q.Add(p.Name, p.Value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// triggerID returns the id of the source element, or its selector path
// when it has none.
func triggerID(source *html.Node) string {
	if id := dom.AttrOr(source, "id", ""); id != "" {
		return id
	}
	return dom.SelectorPath(source)
}
