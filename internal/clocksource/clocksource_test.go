package clocksource

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAdvancesWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	cs := FromClock(mock)

	require.Equal(t, uint64(0), cs.Counter())

	mock.Add(250 * time.Millisecond)
	assert.Equal(t, uint64(250*time.Millisecond), cs.Counter())

	mock.Add(750 * time.Millisecond)
	assert.Equal(t, uint64(time.Second), cs.Counter())
}

func TestFrequencyAndConvertAreIdentity(t *testing.T) {
	cs := FromClock(clock.NewMock())
	assert.Equal(t, 1e9, cs.Frequency())
	assert.Equal(t, uint64(12345), cs.Convert(12345))
}
