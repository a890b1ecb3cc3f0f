package demo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gohx/gohx/internal/dom"
	"github.com/gohx/gohx/internal/engine"
	"github.com/gohx/gohx/internal/transport"
)

func TestServer_FragmentVersusFullPage(t *testing.T) {
	srv := httptest.NewServer(NewServer())
	defer srv.Close()

	// plain navigation gets the full page
	resp, err := srv.Client().Get(srv.URL + "/contacts")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "<html>")

	// engine requests get the bare fragment
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/contacts", nil)
	req.Header.Set("HX-Request", "true")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.NotContains(t, string(body), "<html>")
	assert.Contains(t, string(body), "Ada Lovelace")
}

func TestServer_CreateValidation(t *testing.T) {
	srv := httptest.NewServer(NewServer())
	defer srv.Close()

	resp, err := srv.Client().PostForm(srv.URL+"/contacts", map[string][]string{"name": {"  "}})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// TestEndToEnd drives the demo server through the engine: submit the
// add form, then verify the server-triggered contacts-changed event
// refreshed both the list and the counter.
func TestEndToEnd(t *testing.T) {
	srv := httptest.NewServer(NewServer())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	doc, err := dom.Parse(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	events := make(chan *engine.Event, 256)
	cfg := engine.DefaultConfig()
	cfg.BaseURL = srv.URL + "/"
	e := engine.New(doc, cfg,
		engine.WithTransport(transport.New(transport.WithClient(srv.Client()))),
		engine.WithListener(func(ev *engine.Event) {
			cp := *ev
			events <- &cp
		}),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	waitSwaps := func(n int) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for n > 0 {
			select {
			case ev := <-events:
				if ev.Type == engine.EventAfterSwap {
					n--
				}
			case <-deadline:
				t.Fatal("timed out waiting for swaps")
			}
		}
	}

	input := dom.MustSelector("#add input").Query(doc.Root())
	require.NotNil(t, input)
	form := dom.MustSelector("#add").Query(doc.Root())
	require.NotNil(t, form)

	e.Dispatch(dom.NewValueEvent("change", input, "Alan Turing"))
	e.Dispatch(dom.NewEvent("submit", form))

	// three swaps: the POST response, then the triggered list and
	// counter refreshes
	waitSwaps(3)

	list, err := dom.InnerHTML(dom.MustSelector("#contact-list").Query(doc.Root()))
	require.NoError(t, err)
	assert.Contains(t, list, "Alan Turing")

	count, err := dom.InnerHTML(dom.MustSelector("#contact-count").Query(doc.Root()))
	require.NoError(t, err)
	assert.Contains(t, count, "3 contacts")
}
