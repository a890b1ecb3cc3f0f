package transport

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response headers the engine honors. Servers use these to steer the
// client independent of the element's own configuration.
const (
	HeaderPushURL    = "HX-Push-Url"
	HeaderReplaceURL = "HX-Replace-Url"
	HeaderRetarget   = "HX-Retarget"
	HeaderReswap     = "HX-Reswap"
	HeaderReselect   = "HX-Reselect"
	HeaderTrigger    = "HX-Trigger"
	HeaderRefresh    = "HX-Refresh"
)

// Directives are the parsed response-header instructions.
type Directives struct {
	// PushURL / ReplaceURL update browser URL state independent of the
	// request URL. "false" suppresses the element's own push directive.
	PushURL    string
	ReplaceURL string

	// Retarget / Reswap / Reselect override the element's target, swap
	// style and content selector for this response only. Response
	// header wins over element configuration.
	Retarget string
	Reswap   string
	Reselect string

	// Triggers are client-side events to dispatch after the swap.
	Triggers []EventDirective

	// Refresh asks for a full page reload; surfaced as a lifecycle
	// event, the embedder owns actual reloads.
	Refresh bool
}

// EventDirective is one server-requested event dispatch.
type EventDirective struct {
	Name   string
	Detail map[string]string
}

// ParseDirectives reads the directive headers off a response.
func ParseDirectives(h http.Header) Directives {
	d := Directives{
		PushURL:    h.Get(HeaderPushURL),
		ReplaceURL: h.Get(HeaderReplaceURL),
		Retarget:   h.Get(HeaderRetarget),
		Reswap:     h.Get(HeaderReswap),
		Reselect:   h.Get(HeaderReselect),
		Refresh:    h.Get(HeaderRefresh) == "true",
	}
	if raw := h.Get(HeaderTrigger); raw != "" {
		d.Triggers = parseTriggerHeader(raw)
	}
	return d
}

// parseTriggerHeader accepts both forms of HX-Trigger: a plain
// comma-separated event list, or a JSON object mapping event names to
// detail objects.
func parseTriggerHeader(raw string) []EventDirective {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			out := make([]EventDirective, 0, len(obj))
			for name, detail := range obj {
				out = append(out, EventDirective{Name: name, Detail: stringifyDetail(detail)})
			}
			// deterministic order for tests and replay
			sortEventDirectives(out)
			return out
		}
		// malformed JSON falls through to the plain form
	}
	var out []EventDirective
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, EventDirective{Name: name})
		}
	}
	return out
}

func stringifyDetail(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return nil
		}
		return map[string]string{"value": stringify(v)}
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		out[k] = stringify(item)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		text, _ := json.Marshal(t)
		return string(text)
	default:
		text, _ := json.Marshal(t)
		return string(text)
	}
}

func sortEventDirectives(ds []EventDirective) {
	for i := 1; i < len(ds); i++ {
		for j := i; j > 0 && ds[j-1].Name > ds[j].Name; j-- {
			ds[j-1], ds[j] = ds[j], ds[j-1]
		}
	}
}
