package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectorDoc = `<html><body>
<div id="outer" class="panel wide">
  <ul class="list">
    <li class="item">one</li>
    <li class="item active">two</li>
  </ul>
  <input type="text" name="q" id="q">
</div>
<div class="panel"><span data-role="note">hi</span></div>
</body></html>`

func mustDoc(t *testing.T, src string) *Document {
	t.Helper()
	d, err := ParseString(src)
	require.NoError(t, err)
	return d
}

func TestSelector_ByID(t *testing.T) {
	d := mustDoc(t, selectorDoc)
	sel, err := CompileSelector("#outer")
	require.NoError(t, err)

	n := sel.Query(d.Root())
	require.NotNil(t, n)
	assert.Equal(t, "div", TagName(n))
	assert.Equal(t, "outer", AttrOr(n, "id", ""))
}

func TestSelector_TagAndClass(t *testing.T) {
	d := mustDoc(t, selectorDoc)

	sel, err := CompileSelector("li.item")
	require.NoError(t, err)
	assert.Len(t, sel.QueryAll(d.Root()), 2)

	sel, err = CompileSelector("li.item.active")
	require.NoError(t, err)
	all := sel.QueryAll(d.Root())
	require.Len(t, all, 1)
	assert.Equal(t, "two", TextContent(all[0]))
}

func TestSelector_AttrMatch(t *testing.T) {
	d := mustDoc(t, selectorDoc)

	sel, err := CompileSelector(`[data-role=note]`)
	require.NoError(t, err)
	n := sel.Query(d.Root())
	require.NotNil(t, n)
	assert.Equal(t, "span", TagName(n))

	sel, err = CompileSelector(`input[name]`)
	require.NoError(t, err)
	assert.NotNil(t, sel.Query(d.Root()))
}

func TestSelector_DescendantChain(t *testing.T) {
	d := mustDoc(t, selectorDoc)

	sel, err := CompileSelector("#outer ul li")
	require.NoError(t, err)
	assert.Len(t, sel.QueryAll(d.Root()), 2)

	// chain must not match outside the ancestor
	sel, err = CompileSelector("#outer span")
	require.NoError(t, err)
	assert.Nil(t, sel.Query(d.Root()))
}

func TestSelector_Alternatives(t *testing.T) {
	d := mustDoc(t, selectorDoc)
	sel, err := CompileSelector("span, input")
	require.NoError(t, err)
	assert.Len(t, sel.QueryAll(d.Root()), 2)
}

func TestSelector_Closest(t *testing.T) {
	d := mustDoc(t, selectorDoc)
	li := MustSelector("li.active").Query(d.Root())
	require.NotNil(t, li)

	panel := MustSelector(".panel").Closest(li)
	require.NotNil(t, panel)
	assert.Equal(t, "outer", AttrOr(panel, "id", ""))

	// inclusive: an element matching the selector is its own closest
	assert.Equal(t, li, MustSelector("li").Closest(li))
}

func TestSelector_Malformed(t *testing.T) {
	for _, expr := range []string{"", "  ", "#", "div.", "[unterminated"} {
		_, err := CompileSelector(expr)
		assert.Error(t, err, "expr %q should not compile", expr)
	}
}

func TestResolveTarget_Modes(t *testing.T) {
	d := mustDoc(t, selectorDoc)
	input := MustSelector("#q").Query(d.Root())
	require.NotNil(t, input)

	this, err := ResolveTarget(d, input, "this")
	require.NoError(t, err)
	assert.Equal(t, input, this)

	closest, err := ResolveTarget(d, input, "closest div")
	require.NoError(t, err)
	assert.Equal(t, "outer", AttrOr(closest, "id", ""))

	outer := MustSelector("#outer").Query(d.Root())
	found, err := ResolveTarget(d, outer, "find li")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "one", TextContent(found))

	next, err := ResolveTarget(d, outer, "next div")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotEqual(t, outer, next)

	prev, err := ResolveTarget(d, next, "previous div")
	require.NoError(t, err)
	// document-order previous div is #outer
	assert.Equal(t, outer, prev)

	missing, err := ResolveTarget(d, input, "#nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSelectorPath(t *testing.T) {
	d := mustDoc(t, selectorDoc)

	input := MustSelector("#q").Query(d.Root())
	assert.Equal(t, "#q", SelectorPath(input))

	li := MustSelector("li.active").Query(d.Root())
	assert.Equal(t, "#outer > ul:nth-of-type(1) > li:nth-of-type(2)", SelectorPath(li))
}
