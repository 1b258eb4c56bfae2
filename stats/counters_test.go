package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersConservation(t *testing.T) {
	c := NewCounters[stringKey]()
	c.Init("req")

	for i := 0; i < 10; i++ {
		c.IncrementBy("req", 1)
	}
	assert.Equal(t, uint64(10), c.Count("req"))
}

func TestCountersIgnoreUnsubscribedChannel(t *testing.T) {
	c := NewCounters[stringKey]()
	c.IncrementBy("untracked", 5)
	assert.Equal(t, uint64(0), c.Count("untracked"))
}

func TestCountersRemoveTearsDown(t *testing.T) {
	c := NewCounters[stringKey]()
	c.Init("req")
	c.IncrementBy("req", 3)
	c.Remove("req")
	assert.Equal(t, uint64(0), c.Count("req"))
}

func TestCountersSurviveAcrossWindows(t *testing.T) {
	c := NewCounters[stringKey]()
	c.Init("req")
	c.IncrementBy("req", 7)
	// Counters store has no Clear, lifetime totals never reset.
	c.IncrementBy("req", 3)
	assert.Equal(t, uint64(10), c.Count("req"))
}

// stringKey satisfies sample.Key (comparable + String() string) without
// importing the sample package, keeping these stat-store tests free of a
// cross-package test fixture.
type stringKey string

func (s stringKey) String() string { return string(s) }
