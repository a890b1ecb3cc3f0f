package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

const resolverDoc = `<html><body>
<form id="f"><input id="q" type="text" name="q"></form>
<button id="b">go</button>
<div id="panel"></div>
</body></html>`

func setup(t *testing.T) (*dom.Document, *Resolver) {
	t.Helper()
	d, err := dom.ParseString(resolverDoc)
	require.NoError(t, err)
	return d, NewResolver()
}

func el(t *testing.T, d *dom.Document, sel string) *html.Node {
	t.Helper()
	n := dom.MustSelector(sel).Query(d.Root())
	require.NotNil(t, n, "selector %s", sel)
	return n
}

func TestDefault_PerElementKind(t *testing.T) {
	d, _ := setup(t)

	assert.Equal(t, "submit", Default(el(t, d, "#f")).Event)
	assert.Equal(t, "change", Default(el(t, d, "#q")).Event)
	assert.Equal(t, "click", Default(el(t, d, "#b")).Event)
	assert.Equal(t, "click", Default(el(t, d, "#panel")).Event)
}

func TestResolve_ImmediateFire(t *testing.T) {
	d, r := setup(t)
	btn := el(t, d, "#b")

	specs, errs := ParseAll("click")
	require.Empty(t, errs)
	r.Bind(btn, specs)

	now := time.Now()
	ds := r.Resolve(dom.NewEvent("click", btn), now)
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)
	assert.Equal(t, btn, ds[0].Intent.Owner)
}

func TestResolve_NonMatchingEvent(t *testing.T) {
	d, r := setup(t)
	btn := el(t, d, "#b")

	specs, _ := ParseAll("click")
	r.Bind(btn, specs)

	assert.Empty(t, r.Resolve(dom.NewEvent("keyup", btn), time.Now()))
}

func TestResolve_DebounceLastEventWins(t *testing.T) {
	d, r := setup(t)
	q := el(t, d, "#q")

	specs, _ := ParseAll("keyup delay:300ms")
	r.Bind(q, specs)

	t0 := time.Now()
	d1 := r.Resolve(dom.NewValueEvent("keyup", q, "c"), t0)
	require.Len(t, d1, 1)
	require.NotNil(t, d1[0].Pending)

	d2 := r.Resolve(dom.NewValueEvent("keyup", q, "ca"), t0.Add(50*time.Millisecond))
	require.NotNil(t, d2[0].Pending)

	d3 := r.Resolve(dom.NewValueEvent("keyup", q, "cat"), t0.Add(120*time.Millisecond))
	require.NotNil(t, d3[0].Pending)

	// superseded tokens flush to nothing, silently
	assert.Nil(t, r.Flush(d1[0].Pending.Token, t0.Add(350*time.Millisecond)))
	assert.Nil(t, r.Flush(d2[0].Pending.Token, t0.Add(350*time.Millisecond)))

	// only the last event of the burst survives
	intent := r.Flush(d3[0].Pending.Token, t0.Add(420*time.Millisecond))
	require.NotNil(t, intent)
	assert.Equal(t, "cat", intent.Event.Value)

	// a token never flushes twice
	assert.Nil(t, r.Flush(d3[0].Pending.Token, t0.Add(500*time.Millisecond)))
}

func TestResolve_ChangedSuppression(t *testing.T) {
	d, r := setup(t)
	q := el(t, d, "#q")

	specs, _ := ParseAll("keyup changed")
	r.Bind(q, specs)

	now := time.Now()
	ds := r.Resolve(dom.NewValueEvent("keyup", q, "cat"), now)
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)

	// identical value: suppressed
	assert.Empty(t, r.Resolve(dom.NewValueEvent("keyup", q, "cat"), now))

	// new value fires again
	ds = r.Resolve(dom.NewValueEvent("keyup", q, "cats"), now)
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)
}

func TestResolve_ChangedAppliesAtFlushTime(t *testing.T) {
	d, r := setup(t)
	q := el(t, d, "#q")

	specs, _ := ParseAll("keyup changed delay:100ms")
	r.Bind(q, specs)

	t0 := time.Now()
	d1 := r.Resolve(dom.NewValueEvent("keyup", q, "x"), t0)
	require.NotNil(t, r.Flush(d1[0].Pending.Token, t0.Add(150*time.Millisecond)))

	// a burst that lands back on the already-fired value is suppressed
	d2 := r.Resolve(dom.NewValueEvent("keyup", q, "x"), t0.Add(200*time.Millisecond))
	assert.Nil(t, r.Flush(d2[0].Pending.Token, t0.Add(350*time.Millisecond)))
}

func TestResolve_Throttle(t *testing.T) {
	d, r := setup(t)
	panel := el(t, d, "#panel")

	specs, _ := ParseAll("tick throttle:1s")
	r.Bind(panel, specs)

	t0 := time.Now()
	ds := r.Resolve(dom.NewEvent("tick", panel), t0)
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)

	// inside the window: discarded
	assert.Empty(t, r.Resolve(dom.NewEvent("tick", panel), t0.Add(400*time.Millisecond)))

	// past the window: fires again
	ds = r.Resolve(dom.NewEvent("tick", panel), t0.Add(1100*time.Millisecond))
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)
}

func TestResolve_Once(t *testing.T) {
	d, r := setup(t)
	btn := el(t, d, "#b")

	specs, _ := ParseAll("click once")
	r.Bind(btn, specs)

	now := time.Now()
	require.Len(t, r.Resolve(dom.NewEvent("click", btn), now), 1)
	assert.Empty(t, r.Resolve(dom.NewEvent("click", btn), now))
}

func TestResolve_FromRebindsListening(t *testing.T) {
	d, r := setup(t)
	panel := el(t, d, "#panel")
	q := el(t, d, "#q")

	// panel acts when the search box emits keyup
	specs, errs := ParseAll("keyup from:#q")
	require.Empty(t, errs)
	r.Bind(panel, specs)

	ds := r.Resolve(dom.NewValueEvent("keyup", q, "hi"), time.Now())
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Intent)
	// acting context stays with the declaring element
	assert.Equal(t, panel, ds[0].Intent.Owner)
	assert.Equal(t, q, ds[0].Intent.Event.Target)
}

func TestUnbind_DropsRemovedElements(t *testing.T) {
	d, r := setup(t)
	btn := el(t, d, "#b")

	specs, _ := ParseAll("click")
	r.Bind(btn, specs)
	require.True(t, r.Bound(btn))

	dom.Detach(btn)
	r.Unbind(d.Root())
	assert.False(t, r.Bound(btn))
	assert.Empty(t, r.Resolve(dom.NewEvent("click", btn), time.Now()))
}
