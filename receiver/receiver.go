// Package receiver implements the aggregation core: a single-threaded
// event loop that drains sample batches and control messages, dispatches
// samples into four statistic collaborators, advances a tick-driven
// window state machine, and services a cooperative scrape endpoint.
// Grounded on original_source/src/receiver.rs's run_once/run/check_elapsed
// and on the teacher's own windowed-aggregation loop in
// pkg/trace/stats.Concentrator.Run (see DESIGN.md).
package receiver

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/nuclearfurnace/tic/interest"
	"github.com/nuclearfurnace/tic/internal/clocksource"
	"github.com/nuclearfurnace/tic/meters"
	"github.com/nuclearfurnace/tic/queue"
	"github.com/nuclearfurnace/tic/sample"
	"github.com/nuclearfurnace/tic/scrape"
	"github.com/nuclearfurnace/tic/sender"
	"github.com/nuclearfurnace/tic/stats"
	"github.com/nuclearfurnace/tic/telemetry"
)

// state tags the window state machine's current phase.
type state uint8

const (
	stateCollecting state = iota
	stateRendering
	stateTerminated
)

// Receiver is the aggregation core. K is the phantom channel-key type
// parameter, monomorphized at construction to whatever comparable,
// Stringer type the caller's channels are identified by.
type Receiver[K sample.Key] struct {
	config Config
	logger *zap.Logger
	clock  clocksource.Clocksource

	batches  *queue.BatchQueue[K]
	controls *queue.ControlQueue[K]

	counters   stats.Counters[K]
	histograms stats.Histograms[K]
	allans     stats.AllanAccumulators[K]
	heatmaps   stats.Heatmaps[K]

	interests *interest.Set[K]
	meters    *meters.Meters

	telemetry *telemetry.Telemetry
	scrape    *scrape.Server

	windowStart    uint64
	windowEndTick  uint64
	windowDuration uint64
	runEndTick     uint64
	runDuration    uint64
	windowIndex    int
	state          state
}

// New builds a Receiver from Config, starting its scrape listener
// immediately if HTTPListen is set. A listen address that cannot be
// resolved is a fatal construction-time error.
func New[K sample.Key](config Config) (*Receiver[K], error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	cs := clocksource.New()
	if config.clockOverride != nil {
		cs = clocksource.FromClock(config.clockOverride)
	}
	start := cs.Counter()
	windowDuration := uint64(math.Round(float64(config.Duration) * cs.Frequency()))
	runDuration := uint64(config.Windows) * windowDuration

	r := &Receiver[K]{
		config:         config,
		logger:         config.Logger,
		clock:          cs,
		batches:        queue.NewBatchQueue[K](config.Capacity, config.BatchSize),
		controls:       queue.NewControlQueue[K](config.Capacity),
		counters:       stats.NewCounters[K](),
		histograms:     stats.NewHistograms[K](),
		allans:         stats.NewAllanAccumulators[K](),
		heatmaps:       stats.NewHeatmaps[K](windowDuration, uint64(time.Millisecond), 128, start),
		interests:      interest.NewSet[K](),
		meters:         meters.New(),
		telemetry:      telemetry.New("tic"),
		windowStart:    start,
		windowEndTick:  start + windowDuration,
		windowDuration: windowDuration,
		runEndTick:     start + runDuration,
		runDuration:    runDuration,
		state:          stateCollecting,
	}

	if config.HTTPListen != "" {
		srv, err := scrape.New(config.HTTPListen, config.Capacity, config.Logger, r.telemetry.Handler())
		if err != nil {
			return nil, fmt.Errorf("receiver: resolve http listen address: %w", err)
		}
		r.scrape = srv
		r.scrape.Start()
	}

	r.logger.Info("receiver constructed",
		zap.Int("duration_seconds", config.Duration),
		zap.Int("windows", config.Windows),
		zap.Bool("service_mode", config.ServiceMode),
	)

	return r, nil
}

// GetSender returns a new Sender sharing this Receiver's queues.
func (r *Receiver[K]) GetSender() *sender.Sender[K] {
	return sender.New[K](r.batches, r.controls, r.telemetry)
}

// GetClocksource returns this Receiver's Clocksource, cheap to clone and
// internally immutable.
func (r *Receiver[K]) GetClocksource() clocksource.Clocksource {
	return r.clock
}

// AddInterest registers a stat for export, idempotent on duplicates,
// initializing exactly one stat-store entry for its channel.
func (r *Receiver[K]) AddInterest(i interest.Interest[K]) {
	switch i.Kind {
	case interest.KindCount:
		r.counters.Init(i.Channel)
	case interest.KindPercentile:
		r.histograms.Init(i.Channel)
	case interest.KindAllanDeviation:
		r.allans.Init(i.Channel)
	case interest.KindTrace, interest.KindWaterfall:
		r.heatmaps.Init(i.Channel)
	}
	r.interests.Add(i)
}

// RemoveInterest de-registers a stat for export, idempotent on absence,
// tearing down the corresponding stat-store entry.
func (r *Receiver[K]) RemoveInterest(i interest.Interest[K]) {
	switch i.Kind {
	case interest.KindCount:
		r.counters.Remove(i.Channel)
	case interest.KindPercentile:
		r.histograms.Remove(i.Channel)
	case interest.KindAllanDeviation:
		r.allans.Remove(i.Channel)
	case interest.KindTrace, interest.KindWaterfall:
		r.heatmaps.Remove(i.Channel)
	}
	r.interests.Remove(i)
}

// ClearHeatmaps clears all heatmap grids, preserving subscriptions: every
// standing Trace/Waterfall interest gets a fresh, empty grid.
func (r *Receiver[K]) ClearHeatmaps() {
	r.heatmaps.Clear()
	r.interests.Each(func(i interest.Interest[K]) {
		if i.Kind == interest.KindTrace || i.Kind == interest.KindWaterfall {
			r.heatmaps.Init(i.Channel)
		}
	})
}

// CloneMeters returns a deep copy of the current rendered snapshot. This
// is the only way Meters ever leaves the Receiver's own goroutine.
func (r *Receiver[K]) CloneMeters() *meters.Meters {
	return r.meters.Clone()
}

// dispatch feeds one sample into every stat store unconditionally: stat
// stores silently ignore channels they have no entry for, so this stays
// branch-free with respect to the interest set.
func (r *Receiver[K]) dispatch(s sample.Sample[K]) {
	t0 := r.clock.Convert(s.StartTick)
	t1 := r.clock.Convert(s.StopTick)
	dt := t1 - t0 // wraps if StopTick < StartTick; clamping or rejecting that is each stat store's own call

	r.allans.Record(s.Channel, float64(dt))
	r.counters.IncrementBy(s.Channel, s.Count)
	r.histograms.Increment(s.Channel, dt)
	r.heatmaps.Increment(s.Channel, t0, dt)

	r.telemetry.SamplesDispatched.Inc()
}

// dispatchBatch processes every sample in a drained batch in
// producer-enqueue order, then returns the batch to the empty pool.
func (r *Receiver[K]) dispatchBatch(b sample.Batch[K]) {
	for _, s := range b {
		r.dispatch(s)
	}
	r.batches.Return(b)
	r.telemetry.BatchesDrained.Inc()
}

// applyControl applies one control-queue mutation.
func (r *Receiver[K]) applyControl(msg interest.ControlMessage[K]) {
	switch msg.Kind {
	case interest.ControlAdd:
		r.AddInterest(msg.Interest)
	case interest.ControlRemove:
		r.RemoveInterest(msg.Interest)
	}
}

// respondScrape renders the current Meters snapshot for one pending HTTP
// request and delivers it. This is the only place Meters is read to
// produce output, always on this goroutine.
func (r *Receiver[K]) respondScrape(req scrape.Request) {
	body := scrape.Render(r.meters, req.Path)
	select {
	case req.Response <- body:
	default:
	}
	r.telemetry.ScrapesServed.Inc()
}

// checkElapsed renders the window if the clock has reached windowEndTick:
// for every standing Interest, write the corresponding meter, clear
// histograms, and advance windowEndTick. Returns whether a window
// boundary was crossed.
func (r *Receiver[K]) checkElapsed() bool {
	now := r.clock.Counter()
	if now < r.windowEndTick {
		return false
	}

	r.state = stateRendering
	r.interests.Each(func(i interest.Interest[K]) {
		switch i.Kind {
		case interest.KindCount:
			meters.SetCount(r.meters, i.Channel, r.counters.Count(i.Channel))
		case interest.KindPercentile:
			for _, p := range r.config.Percentiles {
				v, _ := r.histograms.Percentile(i.Channel, p.Quantile)
				meters.SetPercentile(r.meters, i.Channel, p, v)
			}
		case interest.KindAllanDeviation:
			for _, tau := range r.config.Taus {
				if adev, ok := r.allans.ADev(i.Channel, tau); ok {
					meters.SetADev(r.meters, i.Channel, tau, adev)
				}
			}
		case interest.KindTrace, interest.KindWaterfall:
			// no per-window action; handled at run end in SaveFiles.
		}
	})

	r.histograms.Clear()
	r.windowEndTick += r.windowDuration
	r.windowIndex++
	r.state = stateCollecting
	r.telemetry.WindowsRendered.Inc()

	r.logger.Debug("window rendered", zap.Int("window_index", r.windowIndex))
	return true
}

// RunOnce drains queues and services scrape requests until the current
// window elapses, then returns. Each outer iteration first fully drains
// whatever is already queued (non-blocking), then checks whether the
// window has elapsed, then blocks for new work bounded by
// config.PollDelay.
func (r *Receiver[K]) RunOnce() {
	for {
		for r.drainOneDataBatch() {
		}
		for r.drainOneControl() {
		}
		for r.drainOneScrape() {
		}
		r.telemetry.QueueDepth.Set(float64(len(r.batches.Filled())))

		if r.checkElapsed() {
			return
		}

		r.awaitWork()
	}
}

func (r *Receiver[K]) drainOneDataBatch() bool {
	select {
	case b := <-r.batches.Filled():
		r.dispatchBatch(b)
		return true
	default:
		return false
	}
}

func (r *Receiver[K]) drainOneControl() bool {
	select {
	case msg := <-r.controls.Chan():
		r.applyControl(msg)
		return true
	default:
		return false
	}
}

func (r *Receiver[K]) drainOneScrape() bool {
	if r.scrape == nil {
		return false
	}
	select {
	case req := <-r.scrape.Requests():
		r.respondScrape(req)
		return true
	default:
		return false
	}
}

// awaitWork blocks until new data, a control mutation, a scrape request,
// or config.PollDelay elapses, whichever comes first. It never blocks
// the producers: this is purely the Receiver's own suspension point.
func (r *Receiver[K]) awaitWork() {
	timer := r.clock.Clock().Timer(r.config.PollDelay)
	defer timer.Stop()

	if r.scrape != nil {
		select {
		case b := <-r.batches.Filled():
			r.dispatchBatch(b)
		case msg := <-r.controls.Chan():
			r.applyControl(msg)
		case req := <-r.scrape.Requests():
			r.respondScrape(req)
		case <-timer.C:
		}
		return
	}

	select {
	case b := <-r.batches.Filled():
		r.dispatchBatch(b)
	case msg := <-r.controls.Chan():
		r.applyControl(msg)
	case <-timer.C:
	}
}

// Run iterates RunOnce for config.Windows windows, then saves Trace and
// Waterfall artifacts. If ServiceMode is false, it returns; otherwise it
// clears heatmaps, advances the run boundary, and loops forever.
func (r *Receiver[K]) Run() error {
	for {
		for w := 0; w < r.config.Windows; w++ {
			r.RunOnce()
		}

		if err := r.SaveFiles(); err != nil {
			return err
		}

		if !r.config.ServiceMode {
			r.state = stateTerminated
			return nil
		}

		r.ClearHeatmaps()
		r.runEndTick += r.runDuration
	}
}

// SaveFiles writes Trace/Waterfall artifacts for every subscribed
// Interest of those kinds. An I/O failure here is fatal for the run and
// is returned to the caller of Run immediately.
func (r *Receiver[K]) SaveFiles() error {
	var saveErr error
	r.interests.Each(func(i interest.Interest[K]) {
		if saveErr != nil {
			return
		}
		switch i.Kind {
		case interest.KindTrace:
			if err := r.heatmaps.Trace(i.Channel, i.Path); err != nil {
				saveErr = fmt.Errorf("receiver: save trace for %v: %w", i.Channel, err)
			}
		case interest.KindWaterfall:
			if err := r.heatmaps.Waterfall(i.Channel, i.Path); err != nil {
				saveErr = fmt.Errorf("receiver: save waterfall for %v: %w", i.Channel, err)
			}
		}
	})
	return saveErr
}

// Telemetry exposes the Receiver's self-instrumentation surface.
func (r *Receiver[K]) Telemetry() *telemetry.Telemetry {
	return r.telemetry
}

// Shutdown stops the scrape listener, if one was started.
func (r *Receiver[K]) Shutdown(ctx context.Context) error {
	if r.scrape == nil {
		return nil
	}
	return r.scrape.Stop(ctx)
}
