package queue

import "github.com/nuclearfurnace/tic/interest"

// ControlQueue is the bounded MPSC queue of subscription mutations, built
// the same way as BatchQueue's filled side: a buffered channel a producer
// never blocks on.
type ControlQueue[K interest.Key] struct {
	ch chan interest.ControlMessage[K]
}

// NewControlQueue builds a ControlQueue with the given bounded capacity.
func NewControlQueue[K interest.Key](capacity int) *ControlQueue[K] {
	return &ControlQueue[K]{
		ch: make(chan interest.ControlMessage[K], capacity),
	}
}

// Enqueue performs a non-blocking push of a control message. Like the
// filled data queue, a full control queue drops the message at the
// caller's discretion.
func (q *ControlQueue[K]) Enqueue(msg interest.ControlMessage[K]) bool {
	select {
	case q.ch <- msg:
		return true
	default:
		return false
	}
}

// Chan exposes the receive side for the Receiver's event loop.
func (q *ControlQueue[K]) Chan() <-chan interest.ControlMessage[K] {
	return q.ch
}
