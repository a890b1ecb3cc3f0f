package harness

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/gohx/gohx/internal/dom"
	"github.com/gohx/gohx/internal/engine"
	"github.com/gohx/gohx/internal/transport"
)

// waitTimeout bounds each wait step. Scenarios run against a local
// httptest server, so anything near this long is a hang.
const waitTimeout = 5 * time.Second

// TraceEvent is one lifecycle event as recorded for golden
// comparison. URLs are reduced to paths so traces stay stable across
// ephemeral server ports; seq is omitted because golden files assert
// order by position.
type TraceEvent struct {
	Type   string `json:"type"`
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunResult is the outcome of one scenario run.
type RunResult struct {
	Scenario string       `json:"scenario"`
	Trace    []TraceEvent `json:"trace"`

	// FinalPath is the engine's current URL path after the run.
	FinalPath string `json:"final_path,omitempty"`
}

// Run executes a scenario against a fresh engine and scripted server.
// Extra engine options (a trace recorder, say) apply on top of the
// harness wiring.
func Run(ctx context.Context, sc *Scenario, opts ...engine.EngineOption) (*RunResult, error) {
	return RunWithConfig(ctx, sc, engine.DefaultConfig(), opts...)
}

// RunWithConfig runs a scenario under an explicit engine config. The
// config's BaseURL is overwritten with the scripted server's URL.
func RunWithConfig(ctx context.Context, sc *Scenario, cfg engine.Config, opts ...engine.EngineOption) (*RunResult, error) {
	srv := httptest.NewServer(routeHandler(sc.Routes))
	defer srv.Close()

	doc, err := dom.ParseString(sc.Document)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: parse document: %w", sc.Name, err)
	}

	events := make(chan *engine.Event, 1024)
	cfg.BaseURL = srv.URL + "/"
	opts = append([]engine.EngineOption{
		engine.WithTransport(transport.New(transport.WithClient(srv.Client()))),
		engine.WithListener(func(ev *engine.Event) {
			cp := *ev
			events <- &cp
		}),
	}, opts...)
	e := engine.New(doc, cfg, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go e.Run(runCtx)

	res := &RunResult{Scenario: sc.Name}
	record := func(ev *engine.Event) {
		res.Trace = append(res.Trace, flatten(ev, srv.URL))
	}

	for i, step := range sc.Steps {
		switch {
		case step.Event != "":
			target := dom.MustSelector(step.Target).Query(doc.Root())
			if target == nil {
				return nil, fmt.Errorf("scenario %s step %d: target %q matched nothing", sc.Name, i, step.Target)
			}
			var ev dom.Event
			if step.Value != nil {
				ev = dom.NewValueEvent(step.Event, target, *step.Value)
			} else {
				ev = dom.NewEvent(step.Event, target)
			}
			e.Dispatch(ev)

		case step.Back:
			e.NavigateBack()
		case step.Forward:
			e.NavigateForward()

		case step.Wait != "":
			deadline := time.After(waitTimeout)
			for {
				var ev *engine.Event
				select {
				case ev = <-events:
				case <-deadline:
					return nil, fmt.Errorf("scenario %s step %d: timed out waiting for %s", sc.Name, i, step.Wait)
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				record(ev)
				if string(ev.Type) == step.Wait {
					break
				}
			}
		}
	}

	cancel()
	res.FinalPath = stripServer(e.History().CurrentURL(), srv.URL)
	return res, nil
}

func flatten(ev *engine.Event, serverURL string) TraceEvent {
	te := TraceEvent{Type: string(ev.Type)}
	if ev.Request != nil {
		te.Method = ev.Request.Method
		te.Path = stripServer(ev.Request.URL, serverURL)
	} else if ev.URL != "" {
		te.Path = stripServer(ev.URL, serverURL)
	}
	if ev.Response != nil {
		te.Status = ev.Response.Status
	}
	if ev.Err != nil {
		// engine error strings embed the request UUID; keep traces
		// stable across runs
		if ee, ok := engine.AsEngineError(ev.Err); ok {
			te.Error = string(ee.Code) + ": " + ee.Message
		} else {
			te.Error = ev.Err.Error()
		}
	}
	return te
}

func stripServer(raw, serverURL string) string {
	return strings.TrimPrefix(raw, serverURL)
}

// routeHandler serves the scenario's scripted routes.
func routeHandler(routes []Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, route := range routes {
			if !strings.EqualFold(route.Method, r.Method) {
				continue
			}
			if !pathMatches(route.Path, r.URL) {
				continue
			}
			for k, v := range route.Headers {
				w.Header().Set(k, v)
			}
			status := route.Status
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			fmt.Fprint(w, route.Body)
			return
		}
		http.NotFound(w, r)
	})
}

// pathMatches compares the route path against the request, ignoring
// the query string unless the route declares one.
func pathMatches(routePath string, u *url.URL) bool {
	if strings.Contains(routePath, "?") {
		return routePath == u.RequestURI()
	}
	return routePath == u.Path
}
