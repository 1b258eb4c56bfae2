package stats

import (
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/nuclearfurnace/tic/sample"
)

// defaultRelativeAccuracy matches the accuracy DataDog's own client
// libraries default new distribution sketches to.
const defaultRelativeAccuracy = 0.01

// Histograms tracks a per-channel streaming latency distribution, cleared
// at every window boundary (unlike Counters/AllanAccumulators, these do
// not survive across windows).
type Histograms[K sample.Key] interface {
	Init(channel K)
	Remove(channel K)
	Increment(channel K, nanoseconds uint64)
	// Percentile returns the truncated nanosecond value at the given
	// quantile, and false if the channel has no entry at all (not
	// subscribed). A subscribed channel with zero samples returns (0,
	// true): a stable key set across windows matters more than signaling
	// "no data yet".
	Percentile(channel K, quantile float64) (uint64, bool)
	Clear()
}

// histograms is the default Histograms implementation: one DDSketch per
// channel, DataDog's own relative-accuracy quantile sketch and a direct
// dependency of the teacher. It is the exact tool this module's
// "streaming histogram" collaborator calls for.
type histograms[K sample.Key] struct {
	mu       sync.RWMutex
	sketches map[K]*ddsketch.DDSketch
}

// NewHistograms builds an empty Histograms store.
func NewHistograms[K sample.Key]() Histograms[K] {
	return &histograms[K]{sketches: make(map[K]*ddsketch.DDSketch)}
}

func newSketch() *ddsketch.DDSketch {
	s, err := ddsketch.NewDefaultDDSketch(defaultRelativeAccuracy)
	if err != nil {
		// defaultRelativeAccuracy is a fixed, known-valid constant; the
		// only way this fails is a programmer error in that constant.
		panic("stats: invalid default relative accuracy: " + err.Error())
	}
	return s
}

func (h *histograms[K]) Init(channel K) {
	h.mu.RLock()
	if _, ok := h.sketches[channel]; ok {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sketches[channel]; ok {
		return
	}
	h.sketches[channel] = newSketch()
}

func (h *histograms[K]) Remove(channel K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sketches, channel)
}

// Increment ignores channels with no sketch entry instead of erroring,
// so newly dispatched traffic on a not-yet-subscribed channel is simply
// a no-op, never a crash.
func (h *histograms[K]) Increment(channel K, nanoseconds uint64) {
	h.mu.RLock()
	s, ok := h.sketches[channel]
	h.mu.RUnlock()
	if !ok {
		return
	}
	// A negative dt (malformed sample, stop < start) never reaches here as
	// a uint64 negative; the Receiver already computed it as an unsigned
	// wraparound upstream. DDSketch rejects negative input; validating
	// that isn't this store's job, so Add's error is swallowed.
	_ = s.Add(float64(nanoseconds))
}

func (h *histograms[K]) Percentile(channel K, quantile float64) (uint64, bool) {
	h.mu.RLock()
	s, ok := h.sketches[channel]
	h.mu.RUnlock()
	if !ok {
		return 0, false
	}
	v, err := s.GetValueAtQuantile(quantile)
	if err != nil {
		// empty sketch: no samples yet this window.
		return 0, true
	}
	if v < 0 {
		v = 0
	}
	return uint64(v), true
}

// Clear drops every channel's sketch and replaces it with a fresh, empty
// one, preserving subscriptions while discarding this window's data ,
// DDSketch exposes no in-place reset, so a fresh sketch per channel is
// the straightforward equivalent.
func (h *histograms[K]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.sketches {
		h.sketches[k] = newSketch()
	}
}
