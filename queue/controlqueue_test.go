package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuclearfurnace/tic/interest"
)

func TestControlQueueEnqueueAndChan(t *testing.T) {
	q := NewControlQueue[testKey](1)
	msg := interest.ControlMessage[testKey]{
		Kind:     interest.ControlAdd,
		Interest: interest.Count[testKey]("requests"),
	}

	ok := q.Enqueue(msg)
	require.True(t, ok)

	select {
	case got := <-q.Chan():
		assert.Equal(t, interest.ControlAdd, got.Kind)
		assert.Equal(t, testKey("requests"), got.Interest.Channel)
	default:
		t.Fatal("expected a queued control message")
	}
}

func TestControlQueueDropsWhenFull(t *testing.T) {
	q := NewControlQueue[testKey](1)
	msg := interest.ControlMessage[testKey]{Kind: interest.ControlAdd, Interest: interest.Count[testKey]("a")}

	require.True(t, q.Enqueue(msg))
	ok := q.Enqueue(msg)
	assert.False(t, ok)
}
