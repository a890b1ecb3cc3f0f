// Package request builds the outgoing request descriptor for a fired
// trigger: method, URL, ordered parameter set, contextual headers,
// encoding, and the swap/sync configuration read off the element.
package request

import (
	"net/http"

	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

// Encoding selects how parameters travel in the request body.
type Encoding int

const (
	// EncodingURL is application/x-www-form-urlencoded (the default).
	EncodingURL Encoding = iota
	// EncodingMultipart is multipart/form-data; selected automatically
	// when a file-bearing field is present or forced via hx-encoding.
	EncodingMultipart
	// EncodingJSON serializes the parameter set as a JSON object
	// (hx-encoding="application/json"); structured hx-vals values stay
	// structured.
	EncodingJSON
)

// Param is one outgoing parameter. Order is significant and names may
// repeat for multi-valued fields.
type Param struct {
	Name  string
	Value string
	File  bool
	// Structured holds the decoded hx-vals value when it was not a
	// plain scalar; used by the JSON encoding.
	Structured any
}

// Descriptor is one attempted request. Built once per fired trigger.
//
// The descriptor is frozen after Build except for the two mutation
// points the lifecycle contract grants before-request listeners: Header
// and Params. The body is encoded from Params at send time, after the
// before-request event has run.
type Descriptor struct {
	// ID correlates every lifecycle event of this attempt.
	ID string

	Method   string
	URL      string // resolved; GET query parameters already appended
	Params   []Param
	Header   http.Header
	Encoding Encoding

	// Source is the element whose directive fired. Target is the swap
	// destination resolved at build time.
	Source *html.Node
	Target *html.Node

	// TriggerEvent is the runtime event name that caused the request.
	TriggerEvent string

	// SwapStyle is the element's hx-swap value ("" = engine default);
	// SelectExpr is hx-select. Response headers may override both.
	SwapStyle  string
	SelectExpr string

	// SyncScope is the resolved coordination scope key and
	// SyncStrategy the element's hx-sync strategy ("" = default).
	SyncScope    string
	SyncStrategy string

	// PushURL / ReplaceURL carry the element's hx-push-url /
	// hx-replace-url directive ("true", "false", or an explicit URL).
	PushURL    string
	ReplaceURL string

	// NoHistoryCache is set by hx-history="false": the URL is still
	// pushed but no snapshot is captured.
	NoHistoryCache bool

	// HistoryRestore marks cache-miss refetches issued by the history
	// manager; their responses replace the history root.
	HistoryRestore bool
}

// Values returns the parameter set as url.Values-shaped pairs, keeping
// declaration order per key.
func (d *Descriptor) Values() map[string][]string {
	out := make(map[string][]string)
	for _, p := range d.Params {
		out[p.Name] = append(out[p.Name], p.Value)
	}
	return out
}

// HasFileParam reports whether any parameter is file-bearing.
func (d *Descriptor) HasFileParam() bool {
	for _, p := range d.Params {
		if p.File {
			return true
		}
	}
	return false
}

// SourceSelector returns the stable selector path of the source element.
func (d *Descriptor) SourceSelector() string {
	return dom.SelectorPath(d.Source)
}

// TargetSelector returns the stable selector path of the target element.
func (d *Descriptor) TargetSelector() string {
	return dom.SelectorPath(d.Target)
}
