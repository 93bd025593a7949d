package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClockAt(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, start.Add(150*time.Millisecond), clock.Now())
}

func TestRealTimeMovesForward(t *testing.T) {
	before := time.Now()
	assert.False(t, RealTime{}.Now().Before(before))
}
