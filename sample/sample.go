// Package sample defines the immutable record producers emit and the
// batch type it travels in between a Sender and the Receiver.
package sample

// Key is the constraint every channel identifier in this module must
// satisfy: comparable so it can key the stat-store maps, Stringer so
// Meters can format deterministic key schemas like "{channel}_count".
type Key interface {
	comparable
	String() string
}

// Sample is an immutable record of one observed operation on a channel.
type Sample[K Key] struct {
	Channel   K
	StartTick uint64
	StopTick  uint64
	Count     uint64
}

// New builds a Sample. It performs no validation: a StopTick before
// StartTick is a malformed sample, and it's up to whichever stat store
// consumes it to clamp or reject, not this constructor's job.
func New[K Key](channel K, startTick, stopTick, count uint64) Sample[K] {
	return Sample[K]{
		Channel:   channel,
		StartTick: startTick,
		StopTick:  stopTick,
		Count:     count,
	}
}

// Batch is an ordered, bounded-capacity sequence of Samples that
// ping-pongs between the empty-batch pool and the filled queue.
type Batch[K Key] []Sample[K]
