package swap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/gohx/gohx/internal/dom"
)

const swapDoc = `<html><body>
<div id="main"><p>old</p></div>
<span id="count">0</span>
<ul id="log"><li>first</li></ul>
</body></html>`

func setup(t *testing.T) (*dom.Document, *Engine) {
	t.Helper()
	d, err := dom.ParseString(swapDoc)
	require.NoError(t, err)
	return d, NewEngine(d)
}

func q(t *testing.T, d *dom.Document, sel string) *html.Node {
	t.Helper()
	n := dom.MustSelector(sel).Query(d.Root())
	require.NotNil(t, n, "selector %s", sel)
	return n
}

func inner(t *testing.T, n *html.Node) string {
	t.Helper()
	s, err := dom.InnerHTML(n)
	require.NoError(t, err)
	return s
}

func TestApply_Inner(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")

	res, err := e.Apply(target, "<p>new</p>", Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, "<p>new</p>", inner(t, target))
}

func TestApply_OuterReplacesTag(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")

	res, err := e.Apply(target, `<section id="main2">fresh</section>`, Directive{Style: StyleOuter})
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Nil(t, dom.MustSelector("#main").Query(d.Root()))
	assert.NotNil(t, dom.MustSelector("section#main2").Query(d.Root()))
}

func TestApply_AdjacentStyles(t *testing.T) {
	d, e := setup(t)
	log := q(t, d, "#log")

	_, err := e.Apply(log, "<li>appended</li>", Directive{Style: StyleBeforeEnd})
	require.NoError(t, err)
	_, err = e.Apply(log, "<li>prepended</li>", Directive{Style: StyleAfterBegin})
	require.NoError(t, err)

	assert.Equal(t, "<li>prepended</li><li>first</li><li>appended</li>", inner(t, log))
}

func TestApply_Delete(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#count")

	res, err := e.Apply(target, "ignored", Directive{Style: StyleDelete})
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Nil(t, dom.MustSelector("#count").Query(d.Root()))
}

func TestApply_NoneNeverMutates(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")
	before := inner(t, target)

	res, err := e.Apply(target, "<p>discarded</p>", Directive{Style: StyleNone})
	require.NoError(t, err)
	assert.False(t, res.Swapped)
	assert.Equal(t, before, inner(t, target))

	// repeated application is a no-op too
	_, err = e.Apply(target, "<p>again</p>", Directive{Style: StyleNone})
	require.NoError(t, err)
	assert.Equal(t, before, inner(t, target))
}

func TestApply_ContentSelect(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")

	dir := Directive{Style: StyleInner}
	dir, err := dir.WithSelect("#frag")
	require.NoError(t, err)

	res, err := e.Apply(target, `<div><div id="frag"><b>picked</b></div><div id="rest">no</div></div>`, dir)
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, `<div id="frag"><b>picked</b></div>`, inner(t, target))
}

func TestApply_ContentSelectMiss(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")
	before := inner(t, target)

	dir, err := Directive{Style: StyleInner}.WithSelect("#ghost")
	require.NoError(t, err)

	res, err := e.Apply(target, "<div>whatever</div>", dir)
	require.NoError(t, err)
	assert.False(t, res.Swapped)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "matched nothing")
	assert.Equal(t, before, inner(t, target))
}

func TestApply_TargetRemovedRace(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")
	dom.Detach(target)

	res, err := e.Apply(target, "<p>x</p>", Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.False(t, res.Swapped)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "no longer present")
}

func TestApply_OOBFragments(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")

	content := `<p>primary</p>` +
		`<span id="count" hx-swap-oob="true">42</span>` +
		`<li hx-swap-oob="beforeend:#log">second</li>`

	res, err := e.Apply(target, content, Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, 2, res.OOBApplied)

	assert.Equal(t, "<p>primary</p>", inner(t, target))
	count := q(t, d, "#count")
	assert.Equal(t, "42", dom.TextContent(count))
	assert.False(t, dom.HasAttr(count, AttrOOB), "oob marker must not leak into the document")
	assert.Equal(t, "<li>first</li><li>second</li>", inner(t, q(t, d, "#log")))
}

func TestApply_OOBIsolation(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")

	// one oob target is missing; the primary and the other oob still apply
	content := `<p>primary</p>` +
		`<span id="count" hx-swap-oob="true">7</span>` +
		`<div id="ghost" hx-swap-oob="true">lost</div>`

	res, err := e.Apply(target, content, Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.True(t, res.Swapped)
	assert.Equal(t, 1, res.OOBApplied)
	require.Len(t, res.Skipped, 1)
	assert.True(t, res.Skipped[0].OOB)
	assert.Contains(t, res.Skipped[0].Reason, "matched nothing")

	assert.Equal(t, "7", dom.TextContent(q(t, d, "#count")))
	assert.Equal(t, "<p>primary</p>", inner(t, target))
}

func TestApply_OOBWithNoneStyle(t *testing.T) {
	d, e := setup(t)
	target := q(t, d, "#main")
	before := inner(t, target)

	content := `<p>discarded</p><span id="count" hx-swap-oob="true">9</span>`
	res, err := e.Apply(target, content, Directive{Style: StyleNone})
	require.NoError(t, err)
	assert.False(t, res.Swapped)
	assert.Equal(t, 1, res.OOBApplied)
	assert.Equal(t, before, inner(t, target))
	assert.Equal(t, "9", dom.TextContent(q(t, d, "#count")))
}

func TestApply_PreservationIdentity(t *testing.T) {
	d, err := dom.ParseString(`<html><body><div id="wrap">` +
		`<input id="draft" hx-preserve name="draft">` +
		`<p>around</p></div></body></html>`)
	require.NoError(t, err)
	e := NewEngine(d)

	live := dom.MustSelector("#draft").Query(d.Root())
	require.NotNil(t, live)
	// user-typed, uncommitted state
	dom.SetControlValue(live, "hello")

	wrap := dom.MustSelector("#wrap").Query(d.Root())
	res, err := e.Apply(wrap,
		`<h2>replaced</h2><input id="draft" hx-preserve name="draft"><p>after</p>`,
		Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.True(t, res.Swapped)

	after := dom.MustSelector("#draft").Query(d.Root())
	require.NotNil(t, after)
	// the same element object survived, state intact
	assert.Same(t, live, after)
	assert.Equal(t, "hello", dom.ControlValue(after))
	// and it sits at the placeholder's position
	assert.Equal(t, "h2", dom.TagName(after.PrevSibling))
}

func TestApply_PreserveWithoutPlaceholderIsDropped(t *testing.T) {
	d, err := dom.ParseString(`<html><body><div id="wrap">` +
		`<input id="draft" hx-preserve></div></body></html>`)
	require.NoError(t, err)
	e := NewEngine(d)

	wrap := dom.MustSelector("#wrap").Query(d.Root())
	_, err = e.Apply(wrap, `<p>no placeholder</p>`, Directive{Style: StyleInner})
	require.NoError(t, err)
	assert.Nil(t, dom.MustSelector("#draft").Query(d.Root()))
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		raw     string
		style   Style
		settle  time.Duration
		wantErr bool
	}{
		{"", StyleInner, 0, false},
		{"outerHTML", StyleOuter, 0, false},
		{"beforeend settle:20ms", StyleBeforeEnd, 20 * time.Millisecond, false},
		{"sideways", "", 0, true},
		{"innerHTML settle:soon", "", 0, true},
	}
	for _, tt := range tests {
		d, err := ParseDirective(tt.raw, StyleInner)
		if tt.wantErr {
			assert.Error(t, err, "raw %q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw %q", tt.raw)
		assert.Equal(t, tt.style, d.Style)
		assert.Equal(t, tt.settle, d.Settle)
	}
}
