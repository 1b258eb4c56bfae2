// Package interest defines the tagged-union Interest subscription type and
// the control messages that add/remove entries from a Receiver's
// subscription set. This is a closed, fixed set of variants, so it is
// represented as a tagged struct rather than an interface with multiple
// implementations — there's no dynamic dispatch to buy here.
package interest

import "github.com/nuclearfurnace/tic/sample"

// Key re-exports sample.Key so every package downstream of Interest
// shares one constraint definition instead of redeclaring it.
type Key = sample.Key

// Kind tags which variant of Interest a value holds.
type Kind uint8

const (
	// KindCount subscribes to a channel's lifetime sample count.
	KindCount Kind = iota
	// KindPercentile subscribes to a channel's latency percentiles.
	KindPercentile
	// KindAllanDeviation subscribes to a channel's Allan deviation series.
	KindAllanDeviation
	// KindTrace subscribes to a channel's heatmap, exported as a text trace
	// at run end.
	KindTrace
	// KindWaterfall subscribes to a channel's heatmap, exported as an image
	// waterfall at run end.
	KindWaterfall
)

// Interest is a standing subscription: which statistic to keep, for which
// channel, and (for Trace/Waterfall) where to write the artifact.
type Interest[K Key] struct {
	Kind    Kind
	Channel K
	Path    string // only meaningful for Trace/Waterfall
}

// Count builds a Count(K) interest.
func Count[K Key](channel K) Interest[K] {
	return Interest[K]{Kind: KindCount, Channel: channel}
}

// Percentile builds a Percentile(K) interest.
func Percentile[K Key](channel K) Interest[K] {
	return Interest[K]{Kind: KindPercentile, Channel: channel}
}

// AllanDeviation builds an AllanDeviation(K) interest.
func AllanDeviation[K Key](channel K) Interest[K] {
	return Interest[K]{Kind: KindAllanDeviation, Channel: channel}
}

// Trace builds a Trace(K, path) interest.
func Trace[K Key](channel K, path string) Interest[K] {
	return Interest[K]{Kind: KindTrace, Channel: channel, Path: path}
}

// Waterfall builds a Waterfall(K, path) interest.
func Waterfall[K Key](channel K, path string) Interest[K] {
	return Interest[K]{Kind: KindWaterfall, Channel: channel, Path: path}
}

// key is the comparable identity of an Interest within a set: two
// Interest values with the same Kind and Channel are the same
// subscription regardless of Path, since rendered meter keys never
// incorporate Path either.
type key[K Key] struct {
	kind    Kind
	channel K
}

// Set is the unique-by-value collection of standing Interests a Receiver
// holds.
type Set[K Key] struct {
	entries map[key[K]]Interest[K]
}

// NewSet builds an empty interest Set.
func NewSet[K Key]() *Set[K] {
	return &Set[K]{entries: make(map[key[K]]Interest[K])}
}

// Add inserts an Interest, idempotent on duplicates. It reports whether
// the Interest was newly added (false if it already existed).
func (s *Set[K]) Add(i Interest[K]) bool {
	k := key[K]{kind: i.Kind, channel: i.Channel}
	if _, ok := s.entries[k]; ok {
		return false
	}
	s.entries[k] = i
	return true
}

// Remove deletes an Interest, idempotent on absence. It reports whether
// anything was removed.
func (s *Set[K]) Remove(i Interest[K]) bool {
	k := key[K]{kind: i.Kind, channel: i.Channel}
	if _, ok := s.entries[k]; !ok {
		return false
	}
	delete(s.entries, k)
	return true
}

// Contains reports whether an equivalent Interest is already subscribed.
func (s *Set[K]) Contains(i Interest[K]) bool {
	k := key[K]{kind: i.Kind, channel: i.Channel}
	_, ok := s.entries[k]
	return ok
}

// Each calls fn once per Interest currently in the set. Iteration order
// is unspecified, the same guarantee a plain Go map provides.
func (s *Set[K]) Each(fn func(Interest[K])) {
	for _, i := range s.entries {
		fn(i)
	}
}

// Len reports the number of standing Interests.
func (s *Set[K]) Len() int {
	return len(s.entries)
}

// ControlMessageKind tags a ControlMessage's mutation direction.
type ControlMessageKind uint8

const (
	// ControlAdd requests add_interest.
	ControlAdd ControlMessageKind = iota
	// ControlRemove requests remove_interest.
	ControlRemove
)

// ControlMessage is the wire type producers send on the control queue to
// mutate a Receiver's interest set from outside its own goroutine.
type ControlMessage[K Key] struct {
	Kind     ControlMessageKind
	Interest Interest[K]
}
