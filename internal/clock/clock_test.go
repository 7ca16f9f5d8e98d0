package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	c := NewFakeClock(start)

	assert.Equal(t, time.UTC, c.Now().Location())
	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute).UTC(), c.Now())
}
