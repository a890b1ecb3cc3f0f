package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_FrozenUntilAdvanced(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManualClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "reads must not move the clock")

	c.Advance(250 * time.Millisecond)
	assert.Equal(t, start.Add(250*time.Millisecond), c.Now())
}
