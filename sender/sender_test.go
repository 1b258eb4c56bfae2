package sender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuclearfurnace/tic/interest"
	"github.com/nuclearfurnace/tic/queue"
	"github.com/nuclearfurnace/tic/telemetry"
)

type testKey string

func (k testKey) String() string { return string(k) }

func newTestSender(capacity, batchSize int) (*Sender[testKey], *queue.BatchQueue[testKey], *queue.ControlQueue[testKey]) {
	batches := queue.NewBatchQueue[testKey](capacity, batchSize)
	controls := queue.NewControlQueue[testKey](capacity)
	return New[testKey](batches, controls, telemetry.New("test")), batches, controls
}

func TestNewAcquiresFromEmptyPoolRatherThanAllocating(t *testing.T) {
	batches := queue.NewBatchQueue[testKey](4, 4)
	controls := queue.NewControlQueue[testKey](4)
	require.Equal(t, 4, batches.EmptyLen())

	New[testKey](batches, controls, telemetry.New("test"))

	assert.Equal(t, 3, batches.EmptyLen(), "constructing a Sender should take its starting batch from the pool, not allocate a new one on top of it")
}

func TestSendDoesNotFlushBeforeBatchFull(t *testing.T) {
	s, batches, _ := newTestSender(2, 4)
	s.Send("requests", 0, 1, 1)
	s.Send("requests", 1, 2, 1)

	select {
	case <-batches.Filled():
		t.Fatal("should not flush before batch reaches capacity")
	default:
	}
}

func TestSendFlushesAtBatchCapacity(t *testing.T) {
	s, batches, _ := newTestSender(2, 2)
	s.Send("requests", 0, 1, 1)
	s.Send("requests", 1, 2, 1)

	select {
	case b := <-batches.Filled():
		assert.Len(t, b, 2)
	default:
		t.Fatal("expected a flushed batch at capacity")
	}
}

func TestFlushForcesPartialBatch(t *testing.T) {
	s, batches, _ := newTestSender(2, 4)
	s.Send("requests", 0, 1, 1)
	s.Flush()

	select {
	case b := <-batches.Filled():
		assert.Len(t, b, 1)
	default:
		t.Fatal("expected a forced partial flush")
	}
}

func TestFlushIsNoopWhenEmpty(t *testing.T) {
	s, batches, _ := newTestSender(2, 4)
	s.Flush()

	select {
	case <-batches.Filled():
		t.Fatal("flush of an empty batch should not enqueue anything")
	default:
	}
}

func TestAddAndRemoveInterestEnqueueControlMessages(t *testing.T) {
	s, _, controls := newTestSender(2, 4)

	ok := s.AddInterest(interest.Count[testKey]("requests"))
	require.True(t, ok)

	select {
	case msg := <-controls.Chan():
		assert.Equal(t, interest.ControlAdd, msg.Kind)
	default:
		t.Fatal("expected a queued add-interest control message")
	}

	ok = s.RemoveInterest(interest.Count[testKey]("requests"))
	require.True(t, ok)

	select {
	case msg := <-controls.Chan():
		assert.Equal(t, interest.ControlRemove, msg.Kind)
	default:
		t.Fatal("expected a queued remove-interest control message")
	}
}
