package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formDoc = `<html><body>
<form id="f">
  <input type="text" name="title" value="hello">
  <input type="checkbox" name="tags" value="a" checked>
  <input type="checkbox" name="tags" value="b">
  <input type="checkbox" name="tags" value="c" checked>
  <input type="text" name="ignored" disabled value="x">
  <input type="text" value="unnamed">
  <textarea name="notes">line one</textarea>
  <select name="genre">
    <option value="rock">Rock</option>
    <option value="jazz" selected>Jazz</option>
  </select>
  <input type="submit" name="save" value="Save">
</form>
</body></html>`

func TestCollectValues_Form(t *testing.T) {
	d := mustDoc(t, formDoc)
	form := MustSelector("#f").Query(d.Root())
	require.NotNil(t, form)

	vals := CollectValues(form)
	require.Len(t, vals, 5)

	// document order, repeated names preserved
	assert.Equal(t, FormValue{Name: "title", Value: "hello"}, vals[0])
	assert.Equal(t, FormValue{Name: "tags", Value: "a"}, vals[1])
	assert.Equal(t, FormValue{Name: "tags", Value: "c"}, vals[2])
	assert.Equal(t, FormValue{Name: "notes", Value: "line one"}, vals[3])
	assert.Equal(t, FormValue{Name: "genre", Value: "jazz"}, vals[4])
}

func TestCollectValues_SingleControl(t *testing.T) {
	d := mustDoc(t, formDoc)
	title := MustSelector(`input[name=title]`).Query(d.Root())
	require.NotNil(t, title)

	vals := CollectValues(title)
	require.Len(t, vals, 1)
	assert.Equal(t, "hello", vals[0].Value)
}

func TestCollectValues_FileForcesMultipart(t *testing.T) {
	d := mustDoc(t, `<form id="f"><input type="file" name="doc" value="a.pdf"></form>`)
	form := MustSelector("#f").Query(d.Root())
	vals := CollectValues(form)
	require.Len(t, vals, 1)
	assert.True(t, vals[0].File)
}

func TestSetControlValue_RoundTrip(t *testing.T) {
	d := mustDoc(t, formDoc)

	title := MustSelector(`input[name=title]`).Query(d.Root())
	SetControlValue(title, "updated")
	assert.Equal(t, "updated", ControlValue(title))

	notes := MustSelector(`textarea`).Query(d.Root())
	SetControlValue(notes, "rewritten")
	assert.Equal(t, "rewritten", ControlValue(notes))
}

func TestMutation_ReplaceChildren(t *testing.T) {
	d := mustDoc(t, `<div id="t"><span>old</span></div>`)
	target := MustSelector("#t").Query(d.Root())

	frag, err := ParseFragment(`<p>new</p><p>er</p>`, target)
	require.NoError(t, err)
	ReplaceChildren(target, frag)

	got, err := InnerHTML(target)
	require.NoError(t, err)
	assert.Equal(t, "<p>new</p><p>er</p>", got)
}

func TestMutation_ReplaceNode(t *testing.T) {
	d := mustDoc(t, `<div id="wrap"><div id="t">old</div></div>`)
	target := MustSelector("#t").Query(d.Root())
	wrap := MustSelector("#wrap").Query(d.Root())

	frag, err := ParseFragment(`<section id="n">new</section>`, wrap)
	require.NoError(t, err)
	ReplaceNode(target, frag)

	assert.Nil(t, MustSelector("#t").Query(d.Root()))
	assert.NotNil(t, MustSelector("#n").Query(d.Root()))
}

func TestMutation_AdjacentInserts(t *testing.T) {
	d := mustDoc(t, `<ul id="l"><li id="mid">m</li></ul>`)
	mid := MustSelector("#mid").Query(d.Root())
	list := MustSelector("#l").Query(d.Root())

	before, err := ParseFragment(`<li>a</li>`, list)
	require.NoError(t, err)
	InsertBefore(mid, before)

	after, err := ParseFragment(`<li>z</li>`, list)
	require.NoError(t, err)
	InsertAfter(mid, after)

	got, err := InnerHTML(list)
	require.NoError(t, err)
	assert.Equal(t, "<li>a</li><li id=\"mid\">m</li><li>z</li>", got)
}

func TestParseFragment_TableContext(t *testing.T) {
	d := mustDoc(t, `<table><tbody id="b"><tr><td>x</td></tr></tbody></table>`)
	tbody := MustSelector("#b").Query(d.Root())
	require.NotNil(t, tbody)

	rows, err := ParseFragment(`<tr><td>y</td></tr>`, tbody)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tr", TagName(rows[0]))
}
