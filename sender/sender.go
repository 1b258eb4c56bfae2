// Package sender implements the producer-facing API: append samples to a
// batch, swap it onto the filled queue when full, and acquire a fresh
// empty batch to keep filling. It is specified purely by the messages it
// emits onto the two queues, not by any retrieved reference file, so the
// shape here is reconstructed to match that contract directly.
package sender

import (
	"github.com/nuclearfurnace/tic/interest"
	"github.com/nuclearfurnace/tic/queue"
	"github.com/nuclearfurnace/tic/sample"
	"github.com/nuclearfurnace/tic/telemetry"
)

// Sender is a cheap-to-clone handle producers use to emit samples and
// control messages. It shares its Receiver's queues by reference; no
// per-Sample allocation happens on the hot path as long as the empty
// pool has capacity.
type Sender[K sample.Key] struct {
	batches   *queue.BatchQueue[K]
	controls  *queue.ControlQueue[K]
	telemetry *telemetry.Telemetry
	current   sample.Batch[K]
}

// New builds a Sender sharing the given queues. Each Sender owns its own
// in-progress batch exclusively until it is swapped onto the filled
// queue. The starting batch comes from the empty pool like any other
// acquisition, falling back to a fresh allocation only on a miss, so
// construction never grows the total batch count beyond capacity. tel
// may be nil, in which case drops simply go uncounted.
func New[K sample.Key](batches *queue.BatchQueue[K], controls *queue.ControlQueue[K], tel *telemetry.Telemetry) *Sender[K] {
	current, ok := batches.AcquireEmpty()
	if !ok {
		current = batches.FreshBatch()
	}
	return &Sender[K]{
		batches:   batches,
		controls:  controls,
		telemetry: tel,
		current:   current,
	}
}

// Send appends a sample to the Sender's current batch; when the batch
// reaches its configured capacity, it is swapped onto the filled queue
// and a fresh empty batch is acquired. No ordering, delivery, or
// capacity guarantee is made beyond best-effort: a full filled queue
// drops the batch and a fresh one is acquired anyway, so a slow
// Receiver never stalls a producer.
func (s *Sender[K]) Send(channel K, startTick, stopTick, count uint64) {
	s.current = append(s.current, sample.New(channel, startTick, stopTick, count))
	if len(s.current) == cap(s.current) {
		s.flush()
	}
}

func (s *Sender[K]) flush() {
	if !s.batches.Enqueue(s.current) && s.telemetry != nil {
		s.telemetry.BatchesDropped.Inc()
	}
	if empty, ok := s.batches.AcquireEmpty(); ok {
		s.current = empty
	} else {
		s.current = s.batches.FreshBatch()
	}
}

// Flush forces the current (possibly partial) batch onto the filled
// queue immediately, useful at shutdown so a partially-filled batch
// isn't silently lost.
func (s *Sender[K]) Flush() {
	if len(s.current) == 0 {
		return
	}
	s.flush()
}

// AddInterest requests a new standing subscription. Idempotent on
// duplicates; enforced by the Receiver's interest set, not here.
func (s *Sender[K]) AddInterest(i interest.Interest[K]) bool {
	ok := s.controls.Enqueue(interest.ControlMessage[K]{
		Kind:     interest.ControlAdd,
		Interest: i,
	})
	if !ok && s.telemetry != nil {
		s.telemetry.BatchesDropped.Inc()
	}
	return ok
}

// RemoveInterest requests a subscription teardown. Idempotent on
// absence.
func (s *Sender[K]) RemoveInterest(i interest.Interest[K]) bool {
	ok := s.controls.Enqueue(interest.ControlMessage[K]{
		Kind:     interest.ControlRemove,
		Interest: i,
	})
	if !ok && s.telemetry != nil {
		s.telemetry.BatchesDropped.Inc()
	}
	return ok
}
