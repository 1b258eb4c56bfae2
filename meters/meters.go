// Package meters holds the rendered snapshot a Receiver publishes at
// every window boundary: a pair of flat string-keyed maps, one integer,
// one float. Key schemas are ported 1:1 from the original implementation
// (see original_source/src/meters.rs: set_count/set_percentile/set_adev).
package meters

import (
	"fmt"

	"github.com/nuclearfurnace/tic/sample"
)

// Percentile names a configured quantile, e.g. {"p99", 0.99}.
type Percentile struct {
	Label    string
	Quantile float64
}

// Meters is exclusively owned by the Receiver; external callers only ever
// see a cloned copy via Clone.
type Meters struct {
	Data      map[string]uint64
	DataFloat map[string]float64
}

// New builds an empty Meters snapshot.
func New() *Meters {
	return &Meters{
		Data:      make(map[string]uint64),
		DataFloat: make(map[string]float64),
	}
}

// SetCount writes meters["{channel}_count"].
func SetCount[K sample.Key](m *Meters, channel K, value uint64) {
	m.Data[fmt.Sprintf("%s_count", channel)] = value
}

// SetPercentile writes meters["{channel}_{label}_nanoseconds"].
func SetPercentile[K sample.Key](m *Meters, channel K, percentile Percentile, value uint64) {
	m.Data[fmt.Sprintf("%s_%s_nanoseconds", channel, percentile.Label)] = value
}

// SetADev writes meters["{channel}_tau_{tau}_adev"].
func SetADev[K sample.Key](m *Meters, channel K, tau int, value float64) {
	m.DataFloat[fmt.Sprintf("%s_tau_%d_adev", channel, tau)] = value
}

// Count reads back meters["{channel}_count"].
func Count[K sample.Key](m *Meters, channel K) (uint64, bool) {
	v, ok := m.Data[fmt.Sprintf("%s_count", channel)]
	return v, ok
}

// PercentileValue reads back meters["{channel}_{label}_nanoseconds"].
func PercentileValue[K sample.Key](m *Meters, channel K, percentile Percentile) (uint64, bool) {
	v, ok := m.Data[fmt.Sprintf("%s_%s_nanoseconds", channel, percentile.Label)]
	return v, ok
}

// ADev reads back meters["{channel}_tau_{tau}_adev"].
func ADev[K sample.Key](m *Meters, channel K, tau int) (float64, bool) {
	v, ok := m.DataFloat[fmt.Sprintf("%s_tau_%d_adev", channel, tau)]
	return v, ok
}

// Clone returns a deep copy, the only form in which Meters ever leaves
// the Receiver's goroutine.
func (m *Meters) Clone() *Meters {
	c := &Meters{
		Data:      make(map[string]uint64, len(m.Data)),
		DataFloat: make(map[string]float64, len(m.DataFloat)),
	}
	for k, v := range m.Data {
		c.Data[k] = v
	}
	for k, v := range m.DataFloat {
		c.DataFloat[k] = v
	}
	return c
}
