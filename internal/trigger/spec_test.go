package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAll_SingleEvent(t *testing.T) {
	specs, errs := ParseAll("click")
	require.Empty(t, errs)
	require.Len(t, specs, 1)
	assert.Equal(t, "click", specs[0].Event)
	assert.Zero(t, specs[0].Delay)
}

func TestParseAll_Modifiers(t *testing.T) {
	specs, errs := ParseAll("keyup changed delay:300ms")
	require.Empty(t, errs)
	require.Len(t, specs, 1)

	s := specs[0]
	assert.Equal(t, "keyup", s.Event)
	assert.True(t, s.Changed)
	assert.Equal(t, 300*time.Millisecond, s.Delay)
}

func TestParseAll_Throttle(t *testing.T) {
	specs, errs := ParseAll("scroll throttle:1s")
	require.Empty(t, errs)
	require.Len(t, specs, 1)
	assert.Equal(t, time.Second, specs[0].Throttle)
}

func TestParseAll_Filter(t *testing.T) {
	specs, errs := ParseAll("keyup[key=Enter]")
	require.Empty(t, errs)
	require.Len(t, specs, 1)

	f := specs[0].Filter
	require.NotNil(t, f)
	assert.True(t, f.Match(map[string]string{"key": "Enter"}))
	assert.False(t, f.Match(map[string]string{"key": "Escape"}))
	assert.False(t, f.Match(nil))
}

func TestParseAll_TruthyFilter(t *testing.T) {
	specs, errs := ParseAll("click[ctrlKey]")
	require.Empty(t, errs)
	require.Len(t, specs, 1)

	f := specs[0].Filter
	require.NotNil(t, f)
	assert.True(t, f.Match(map[string]string{"ctrlKey": "true"}))
	assert.False(t, f.Match(map[string]string{"ctrlKey": "false"}))
	assert.False(t, f.Match(map[string]string{}))
}

func TestParseAll_From(t *testing.T) {
	specs, errs := ParseAll("search from:#filter")
	require.Empty(t, errs)
	require.Len(t, specs, 1)
	require.NotNil(t, specs[0].From)
	assert.False(t, specs[0].FromDocument)

	specs, errs = ParseAll("refresh from:document")
	require.Empty(t, errs)
	require.Len(t, specs, 1)
	assert.True(t, specs[0].FromDocument)
}

func TestParseAll_MultipleEntries(t *testing.T) {
	specs, errs := ParseAll("click once, keyup delay:200ms")
	require.Empty(t, errs)
	require.Len(t, specs, 2)
	assert.True(t, specs[0].Once)
	assert.Equal(t, 200*time.Millisecond, specs[1].Delay)
}

func TestParseAll_MalformedEntryIsIsolated(t *testing.T) {
	// the bad entry is reported, the good entries still bind
	specs, errs := ParseAll("click, keyup wobble:7, submit")
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "unknown modifier")
	require.Len(t, specs, 2)
	assert.Equal(t, "click", specs[0].Event)
	assert.Equal(t, "submit", specs[1].Event)
}

func TestParseAll_BadDuration(t *testing.T) {
	_, errs := ParseAll("keyup delay:fast")
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "bad delay")
}

func TestParseAll_DelayThrottleExclusive(t *testing.T) {
	_, errs := ParseAll("keyup delay:100ms throttle:100ms")
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "mutually exclusive")
}
