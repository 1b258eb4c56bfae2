// Package queue implements the bounded, zero-per-sample-allocation queue
// pair producers and the Receiver use to hand batches back and forth: a
// filled queue carrying full batches to the Receiver, and an empty pool
// carrying drained batches back to producers for reuse. Both are buffered
// Go channels, the idiomatic Go analog of the mio::channel::sync_channel
// + mpmc::Queue pair the original implementation pairs for the same job,
// and the same "channel as bounded MPSC with built-in wake-up" shape the
// teacher's own Concentrator.In/Out channels use.
package queue

import "github.com/nuclearfurnace/tic/sample"

// BatchQueue is the filled-queue/empty-pool pair shared between all
// Senders for a given Receiver. The empty pool is pre-populated at
// construction with `capacity` zero-length batches, each with spare
// capacity for `batchSize` samples.
type BatchQueue[K sample.Key] struct {
	filled    chan sample.Batch[K]
	empty     chan sample.Batch[K]
	batchSize int
}

// NewBatchQueue builds a BatchQueue and pre-fills its empty pool.
func NewBatchQueue[K sample.Key](capacity, batchSize int) *BatchQueue[K] {
	q := &BatchQueue[K]{
		filled:    make(chan sample.Batch[K], capacity),
		empty:     make(chan sample.Batch[K], capacity),
		batchSize: batchSize,
	}
	for i := 0; i < capacity; i++ {
		q.empty <- make(sample.Batch[K], 0, batchSize)
	}
	return q
}

// AcquireEmpty performs a non-blocking pop from the empty pool. If the
// pool is empty, the caller should fall back to allocating a fresh batch:
// acceptable, but it degrades steady-state throughput since it puts an
// allocation on the producer's path.
func (q *BatchQueue[K]) AcquireEmpty() (sample.Batch[K], bool) {
	select {
	case b := <-q.empty:
		return b, true
	default:
		return nil, false
	}
}

// FreshBatch allocates a new empty batch of the configured batch size,
// for producers that found the empty pool exhausted.
func (q *BatchQueue[K]) FreshBatch() sample.Batch[K] {
	return make(sample.Batch[K], 0, q.batchSize)
}

// Enqueue performs a non-blocking push of a filled batch onto the filled
// queue. Producers never block on this: if the filled queue is full, the
// batch is dropped at the producer's discretion. The Receiver is never
// slowed down by a struggling producer.
func (q *BatchQueue[K]) Enqueue(b sample.Batch[K]) bool {
	select {
	case q.filled <- b:
		return true
	default:
		return false
	}
}

// Filled exposes the receive side of the filled queue for the Receiver's
// select-based event loop.
func (q *BatchQueue[K]) Filled() <-chan sample.Batch[K] {
	return q.filled
}

// EmptyLen reports how many drained batches currently sit in the empty
// pool, useful for observability and for tests asserting conservation of
// the total batch count.
func (q *BatchQueue[K]) EmptyLen() int {
	return len(q.empty)
}

// Return clears a drained batch and pushes it back to the empty pool.
// Overflow of the empty pool is silently dropped (the batch is discarded):
// the pool only ever needs to hold `capacity` batches at once.
func (q *BatchQueue[K]) Return(b sample.Batch[K]) {
	b = b[:0]
	select {
	case q.empty <- b:
	default:
	}
}
