package receiver

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuclearfurnace/tic/interest"
	"github.com/nuclearfurnace/tic/meters"
)

type testKey string

func (k testKey) String() string { return string(k) }

// newMockReceiver builds a Receiver[testKey] on a clock.Mock so window
// rotation is driven by explicit mock.Add calls rather than real sleeps.
func newMockReceiver(t *testing.T, opts ...Option) (*Receiver[testKey], *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	base := []Option{
		WithDuration(1),
		WithWindows(1),
		WithCapacity(128), // room for every single-sample batch a test sends in one window
		WithBatchSize(1),  // flush every Send so tests never need a producer goroutine
		withClockOverride(mock),
	}
	cfg := NewConfig(append(base, opts...)...)
	recv, err := New[testKey](cfg)
	require.NoError(t, err)
	return recv, mock
}

func TestCountConservation(t *testing.T) {
	recv, mock := newMockReceiver(t)
	recv.AddInterest(interest.Count[testKey]("requests"))

	send := recv.GetSender()
	for i := 0; i < 10; i++ {
		send.Send("requests", 0, 1, 1)
	}

	mock.Add(time.Second)
	recv.RunOnce()

	m := recv.CloneMeters()
	v, ok := meters.Count(m, testKey("requests"))
	require.True(t, ok)
	assert.Equal(t, uint64(10), v)
}

func TestPercentileMeters(t *testing.T) {
	recv, mock := newMockReceiver(t)
	recv.AddInterest(interest.Percentile[testKey]("requests"))

	send := recv.GetSender()
	for ms := 1; ms <= 100; ms++ {
		send.Send("requests", 0, uint64(ms)*1_000_000, 1)
	}

	mock.Add(time.Second)
	recv.RunOnce()

	m := recv.CloneMeters()
	p50, ok := meters.PercentileValue(m, testKey("requests"), meters.Percentile{Label: "p50", Quantile: 0.5})
	require.True(t, ok)
	assert.InDelta(t, 50_000_000, float64(p50), 3_000_000)

	p99, ok := meters.PercentileValue(m, testKey("requests"), meters.Percentile{Label: "p99", Quantile: 0.99})
	require.True(t, ok)
	assert.InDelta(t, 99_000_000, float64(p99), 3_000_000)
}

func TestMultiChannelIsolation(t *testing.T) {
	recv, mock := newMockReceiver(t)
	recv.AddInterest(interest.Count[testKey]("a"))

	send := recv.GetSender()
	send.Send("a", 0, 1, 1)
	send.Send("a", 0, 1, 1)
	send.Send("b", 0, 1, 1)
	send.Send("b", 0, 1, 1)
	send.Send("b", 0, 1, 1)

	mock.Add(time.Second)
	recv.RunOnce()

	m := recv.CloneMeters()
	va, ok := meters.Count(m, testKey("a"))
	require.True(t, ok)
	assert.Equal(t, uint64(2), va)

	_, ok = meters.Count(m, testKey("b"))
	assert.False(t, ok, "unsubscribed channel must not appear in rendered meters")
}

func TestUnsubscribedChannelDoesNotCrash(t *testing.T) {
	recv, mock := newMockReceiver(t)
	// No interests registered at all.
	send := recv.GetSender()
	send.Send("ghost", 0, 1, 1)

	assert.NotPanics(t, func() {
		mock.Add(time.Second)
		recv.RunOnce()
	})

	m := recv.CloneMeters()
	assert.Empty(t, m.Data)
}

func TestWindowRotationResetsHistogramsNotCounters(t *testing.T) {
	recv, mock := newMockReceiver(t)
	recv.AddInterest(interest.Count[testKey]("requests"))
	recv.AddInterest(interest.Percentile[testKey]("requests"))
	send := recv.GetSender()

	for i := 0; i < 5; i++ {
		send.Send("requests", 0, 1_000_000, 1)
	}
	mock.Add(time.Second)
	recv.RunOnce()

	m1 := recv.CloneMeters()
	c1, _ := meters.Count(m1, testKey("requests"))
	assert.Equal(t, uint64(5), c1)

	for i := 0; i < 3; i++ {
		send.Send("requests", 0, 2_000_000, 1)
	}
	mock.Add(time.Second)
	recv.RunOnce()

	m2 := recv.CloneMeters()
	c2, _ := meters.Count(m2, testKey("requests"))
	assert.Equal(t, uint64(8), c2, "counters are lifetime totals and never reset across windows")

	p50, ok := meters.PercentileValue(m2, testKey("requests"), meters.Percentile{Label: "p50", Quantile: 0.5})
	require.True(t, ok)
	assert.InDelta(t, 2_000_000, float64(p50), 20_000, "histogram window should only reflect the second window's samples")
}

func TestAddInterestIsIdempotent(t *testing.T) {
	recv, mock := newMockReceiver(t)
	recv.AddInterest(interest.Count[testKey]("requests"))
	recv.AddInterest(interest.Count[testKey]("requests"))

	send := recv.GetSender()
	send.Send("requests", 0, 1, 1)

	mock.Add(time.Second)
	recv.RunOnce()

	m := recv.CloneMeters()
	v, ok := meters.Count(m, testKey("requests"))
	require.True(t, ok)
	assert.Equal(t, uint64(1), v)
}

func TestRemoveInterestTearsDownStatStore(t *testing.T) {
	recv, mock := newMockReceiver(t)
	i := interest.Count[testKey]("requests")
	recv.AddInterest(i)
	recv.RemoveInterest(i)

	send := recv.GetSender()
	send.Send("requests", 0, 1, 1)

	mock.Add(time.Second)
	recv.RunOnce()

	m := recv.CloneMeters()
	_, ok := meters.Count(m, testKey("requests"))
	assert.False(t, ok)
}

func TestHTTPScrapeServesRenderedMeters(t *testing.T) {
	cfg := NewConfig(
		WithHTTPListen("127.0.0.1:0"),
		WithPollDelay(20*time.Millisecond),
		WithWindows(1000),
	)
	recv, err := New[testKey](cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = recv.Shutdown(context.Background()) })

	// RunOnce only returns once the window elapses, which this test's
	// default 60-second window never does within the test; the loop is
	// left running in the background, and Shutdown stops only the scrape
	// listener, not the loop.
	go recv.RunOnce()

	addr := recv.scrape.Addr()

	resp, err := http.Get("http://" + addr + "/vars")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get("http://" + addr + "/anything")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	require.NoError(t, recv.Shutdown(context.Background()))
}

func TestInternalMetricsRouteServesPrometheusExposition(t *testing.T) {
	cfg := NewConfig(
		WithHTTPListen("127.0.0.1:0"),
		WithPollDelay(20*time.Millisecond),
		WithWindows(1000),
	)
	recv, err := New[testKey](cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = recv.Shutdown(context.Background()) })

	go recv.RunOnce()
	addr := recv.scrape.Addr()

	resp, err := http.Get("http://" + addr + "/internal/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tic_receiver_samples_dispatched_total")

	require.NoError(t, recv.Shutdown(context.Background()))
}
