package stats

import (
	"math"
	"sync"

	"github.com/nuclearfurnace/tic/sample"
)

// AllanAccumulators tracks, per channel, a time series of observed
// inter-sample deviations and computes the overlapping Allan deviation at
// each configured tau. Unlike Histograms, these are never cleared at
// window boundaries; the whole run's history feeds the estimator.
//
// No corpus example or dependency implements Allan variance; it is
// domain-specific frequency/latency-stability math, not an ambient or
// transport concern a library would plausibly own, so this accumulator
// is hand-derived from the standard overlapping-ADEV estimator rather
// than grounded on a retrieved file.
type AllanAccumulators[K sample.Key] interface {
	Init(channel K)
	Remove(channel K)
	Record(channel K, dt float64)
	// ADev returns the Allan deviation at the given tau (expressed as a
	// sample-count lag), and false if there are not yet enough samples to
	// compute it for that tau.
	ADev(channel K, tau int) (float64, bool)
}

// allanSeries holds one channel's raw deviation history. A single slice
// is kept per channel rather than one ring per tau: the overlapping
// estimator consumes the same underlying series for every configured tau,
// it just strides through it differently.
type allanSeries struct {
	mu     sync.Mutex
	values []float64
}

type allanAccumulators[K sample.Key] struct {
	mu     sync.RWMutex
	series map[K]*allanSeries
}

// NewAllanAccumulators builds an empty AllanAccumulators store.
func NewAllanAccumulators[K sample.Key]() AllanAccumulators[K] {
	return &allanAccumulators[K]{series: make(map[K]*allanSeries)}
}

func (a *allanAccumulators[K]) Init(channel K) {
	a.mu.RLock()
	if _, ok := a.series[channel]; ok {
		a.mu.RUnlock()
		return
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.series[channel]; ok {
		return
	}
	a.series[channel] = &allanSeries{}
}

func (a *allanAccumulators[K]) Remove(channel K) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.series, channel)
}

// Record drops samples for a channel with no series silently, rather
// than erroring on an uninitialized channel.
func (a *allanAccumulators[K]) Record(channel K, dt float64) {
	a.mu.RLock()
	s, ok := a.series[channel]
	a.mu.RUnlock()
	if !ok {
		return
	}
	s.mu.Lock()
	s.values = append(s.values, dt)
	s.mu.Unlock()
}

// ADev computes the overlapping Allan deviation at lag tau:
//
//	ADEV(tau)^2 = 1 / (2*tau^2*(N-2*tau)) * sum_{i=1}^{N-2*tau} (x[i+2*tau] - 2*x[i+tau] + x[i])^2
//
// requiring at least 2*tau+1 samples to produce a single term.
func (a *allanAccumulators[K]) ADev(channel K, tau int) (float64, bool) {
	if tau <= 0 {
		return 0, false
	}
	a.mu.RLock()
	s, ok := a.series[channel]
	a.mu.RUnlock()
	if !ok {
		return 0, false
	}

	s.mu.Lock()
	values := s.values
	s.mu.Unlock()

	n := len(values)
	terms := n - 2*tau
	if terms <= 0 {
		return 0, false
	}

	var sumSquares float64
	for i := 0; i < terms; i++ {
		d := values[i+2*tau] - 2*values[i+tau] + values[i]
		sumSquares += d * d
	}
	variance := sumSquares / float64(2*terms*tau*tau)
	return math.Sqrt(variance), true
}
