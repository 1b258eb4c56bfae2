package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllanADevAbsentWithoutInit(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	_, ok := a.ADev("x", 2)
	assert.False(t, ok)
}

func TestAllanADevAbsentUntilEnoughSamples(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	a.Init("x")
	a.Record("x", 1.0)
	a.Record("x", 1.0)

	_, ok := a.ADev("x", 4)
	assert.False(t, ok)
}

func TestAllanADevConstantSeriesIsZero(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	a.Init("x")
	for i := 0; i < 20; i++ {
		a.Record("x", 1.0)
	}

	v, ok := a.ADev("x", 2)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestAllanADevNonzeroOnNoise(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	a.Init("x")
	values := []float64{1, 2, 1, 3, 1, 2, 1, 3, 1, 2, 1, 3}
	for _, v := range values {
		a.Record("x", v)
	}

	v, ok := a.ADev("x", 2)
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
}

func TestAllanRemoveDropsSeries(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	a.Init("x")
	a.Record("x", 1.0)
	a.Remove("x")

	_, ok := a.ADev("x", 1)
	assert.False(t, ok)
}

func TestAllanRecordIgnoresUnsubscribedChannel(t *testing.T) {
	a := NewAllanAccumulators[stringKey]()
	a.Record("untracked", 5.0)
	_, ok := a.ADev("untracked", 1)
	assert.False(t, ok)
}
