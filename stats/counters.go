// Package stats holds the four statistic collaborators the Receiver
// dispatches samples into: Counters, Histograms, AllanAccumulators, and
// Heatmaps. Spec treats these as out-of-scope collaborators specified
// only at their interface; this package supplies one default
// implementation of each so the Receiver can actually be exercised.
package stats

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/nuclearfurnace/tic/sample"
)

// Counters tracks a lifetime, monotonically increasing sample count per
// channel. Entries are never cleared at window boundaries; only at
// Remove (interest teardown).
type Counters[K sample.Key] interface {
	Init(channel K)
	Remove(channel K)
	IncrementBy(channel K, n uint64)
	Count(channel K) uint64
}

// counters is the default Counters implementation: a map of per-channel
// atomic totals guarded by a RWMutex, using the same RLock-then-Lock
// double-checked-create shape the teacher's statsd client uses for its
// own dynamic per-key count/gauge/set maps.
type counters[K sample.Key] struct {
	mu     sync.RWMutex
	values map[K]*atomic.Uint64
}

// NewCounters builds an empty Counters store.
func NewCounters[K sample.Key]() Counters[K] {
	return &counters[K]{values: make(map[K]*atomic.Uint64)}
}

func (c *counters[K]) Init(channel K) {
	c.mu.RLock()
	if _, ok := c.values[channel]; ok {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[channel]; ok {
		return
	}
	c.values[channel] = atomic.NewUint64(0)
}

func (c *counters[K]) Remove(channel K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, channel)
}

// IncrementBy never checks subscription state: a channel with no Init'd
// entry is simply not tracked, a map miss rather than an error.
func (c *counters[K]) IncrementBy(channel K, n uint64) {
	c.mu.RLock()
	v, ok := c.values[channel]
	c.mu.RUnlock()
	if !ok {
		return
	}
	v.Add(n)
}

func (c *counters[K]) Count(channel K) uint64 {
	c.mu.RLock()
	v, ok := c.values[channel]
	c.mu.RUnlock()
	if !ok {
		return 0
	}
	return v.Load()
}
