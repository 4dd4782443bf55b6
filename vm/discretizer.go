package vm

import (
	"fmt"
	"math"
	"sort"
)

// ---------------------------------------------------------------------------
// Stream discretizers: one scalar stream -> small bin indices
// ---------------------------------------------------------------------------

// DefaultBinCount is the discretization resolution used when none is given.
// It matches the number of literal digit symbols in the default alphabet, so
// that a program can write any observable bin back into memory verbatim.
const DefaultBinCount = len(DefaultActions)

// DefaultHistoryLength is the rolling-history capacity of fluid
// discretizers created without an explicit length.
const DefaultHistoryLength = 1000

// streamDiscretizer maps one scalar observation stream to bin indices.
type streamDiscretizer interface {
	Bin(value float64) int
	Saturated() bool
	Thresholds() []float64
}

// StreamDiscretizer bins values against a fixed, ordered threshold slice.
// A value lands in the index of the interval containing it: bin i means
// thresholds[i-1] <= value < thresholds[i], clamped at the extremes.
type StreamDiscretizer struct {
	thresholds []float64
}

// NewStreamDiscretizer creates a fixed-threshold discretizer. The
// thresholds must be in ascending order.
func NewStreamDiscretizer(thresholds []float64) *StreamDiscretizer {
	return &StreamDiscretizer{thresholds: thresholds}
}

// Bin returns the interval index containing value.
func (d *StreamDiscretizer) Bin(value float64) int {
	return digitize(value, d.thresholds)
}

// Saturated is always true for fixed thresholds.
func (d *StreamDiscretizer) Saturated() bool { return true }

// Thresholds returns the threshold slice.
func (d *StreamDiscretizer) Thresholds() []float64 { return d.thresholds }

// FluidStreamDiscretizer learns its thresholds from the data: it keeps a
// rolling history of recent values and, on every call, re-derives the
// thresholds as the interior quantiles of that history. It reports
// saturated once the history buffer is full. The history is mutable state
// shared across every call; callers wanting per-episode isolation must use
// separate instances (or Reset).
type FluidStreamDiscretizer struct {
	binCount   int
	history    []float64 // ring buffer
	next       int
	full       bool
	thresholds []float64
}

// NewFluidStreamDiscretizer creates an adaptive discretizer with binCount
// bins and a rolling history of historyLength values. Thresholds start at
// zero, so early bins are degenerate until some history accumulates.
func NewFluidStreamDiscretizer(binCount, historyLength int) *FluidStreamDiscretizer {
	return &FluidStreamDiscretizer{
		binCount:   binCount,
		history:    make([]float64, 0, historyLength),
		thresholds: make([]float64, binCount-1),
	}
}

// Bin records value into the history, bins it against the thresholds as
// they stood before this call, then re-derives the thresholds.
func (d *FluidStreamDiscretizer) Bin(value float64) int {
	if len(d.history) < cap(d.history) {
		d.history = append(d.history, value)
	} else {
		d.history[d.next] = value
	}
	d.next = (d.next + 1) % cap(d.history)
	if len(d.history) == cap(d.history) {
		d.full = true
	}

	bin := digitize(value, d.thresholds)
	d.thresholds = interiorQuantiles(d.history, d.binCount)
	return bin
}

// Saturated reports whether the history buffer has filled up.
func (d *FluidStreamDiscretizer) Saturated() bool { return d.full }

// Thresholds returns the current data-derived thresholds.
func (d *FluidStreamDiscretizer) Thresholds() []float64 { return d.thresholds }

// Reset drops the accumulated history and zeroes the thresholds.
func (d *FluidStreamDiscretizer) Reset() {
	d.history = d.history[:0]
	d.next = 0
	d.full = false
	d.thresholds = make([]float64, d.binCount-1)
}

// digitize returns the number of thresholds not exceeding value, i.e. the
// index of the interval value falls into.
func digitize(value float64, thresholds []float64) int {
	return sort.Search(len(thresholds), func(i int) bool {
		return thresholds[i] > value
	})
}

// interiorQuantiles computes the binCount-1 interior quantiles of values
// with linear interpolation.
func interiorQuantiles(values []float64, binCount int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	out := make([]float64, binCount-1)
	for i := 1; i < binCount; i++ {
		pos := float64(i) / float64(binCount) * float64(len(sorted)-1)
		lo := int(math.Floor(pos))
		hi := lo
		if lo+1 < len(sorted) {
			hi = lo + 1
		}
		frac := pos - float64(lo)
		out[i-1] = sorted[lo] + frac*(sorted[hi]-sorted[lo])
	}
	return out
}

// ---------------------------------------------------------------------------
// ObservationDiscretizer: whole observations -> memory updates
// ---------------------------------------------------------------------------

// ObservationSnapshot records one discretization for debugging.
type ObservationSnapshot struct {
	Raw    []float64
	Update []int
}

// ObservationDiscretizer converts environment observations into the small
// non-negative integers the machine writes to its tape. Discrete-valued
// observation spaces pass through unchanged; Box spaces get one stream
// discretizer per flattened dimension.
type ObservationDiscretizer struct {
	dims  []streamDiscretizer // nil for pass-through spaces
	debug bool

	// Trace holds one snapshot per Discretize call when debug is on.
	Trace []ObservationSnapshot
}

// DiscretizerOption configures an ObservationDiscretizer.
type DiscretizerOption func(*discretizerConfig)

type discretizerConfig struct {
	thresholds    [][]float64
	forceFluid    bool
	binCount      int
	historyLength int
	debug         bool
}

// WithThresholds fixes explicit per-dimension thresholds. A single slice is
// shared across all dimensions; otherwise one slice per flattened dimension
// is required.
func WithThresholds(thresholds ...[]float64) DiscretizerOption {
	return func(c *discretizerConfig) { c.thresholds = thresholds }
}

// WithFluidDiscretization forces adaptive binning even for dimensions with
// finite declared bounds.
func WithFluidDiscretization() DiscretizerOption {
	return func(c *discretizerConfig) { c.forceFluid = true }
}

// WithBinCount sets the discretization resolution.
func WithBinCount(n int) DiscretizerOption {
	return func(c *discretizerConfig) { c.binCount = n }
}

// WithHistoryLength sets the rolling-history capacity of fluid dimensions.
func WithHistoryLength(n int) DiscretizerOption {
	return func(c *discretizerConfig) { c.historyLength = n }
}

// WithDiscretizerDebug turns on snapshot tracing.
func WithDiscretizerDebug() DiscretizerOption {
	return func(c *discretizerConfig) { c.debug = true }
}

// NewObservationDiscretizer builds a discretizer for the given observation
// space. Box dimensions with two finite bounds get fixed evenly spaced
// thresholds; unbounded or fluid-forced dimensions get adaptive binning.
// Discrete, MultiDiscrete and MultiBinary spaces bypass discretization.
func NewObservationDiscretizer(space Space, opts ...DiscretizerOption) (*ObservationDiscretizer, error) {
	cfg := discretizerConfig{
		binCount:      DefaultBinCount,
		historyLength: DefaultHistoryLength,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &ObservationDiscretizer{debug: cfg.debug}

	switch s := space.(type) {
	case Box:
		for dim := 0; dim < s.FlatDim(); dim++ {
			switch {
			case len(cfg.thresholds) == 1:
				d.dims = append(d.dims, NewStreamDiscretizer(cfg.thresholds[0]))
			case len(cfg.thresholds) > 1:
				if len(cfg.thresholds) != s.FlatDim() {
					return nil, fmt.Errorf("vm: %d threshold rows for a %d-dimensional space",
						len(cfg.thresholds), s.FlatDim())
				}
				d.dims = append(d.dims, NewStreamDiscretizer(cfg.thresholds[dim]))
			case !cfg.forceFluid && s.BoundedBelow(dim) && s.BoundedAbove(dim):
				d.dims = append(d.dims, NewStreamDiscretizer(
					evenThresholds(s.Low[dim], s.High[dim], cfg.binCount)))
			default:
				d.dims = append(d.dims, NewFluidStreamDiscretizer(cfg.binCount, cfg.historyLength))
			}
		}
	case Discrete, MultiDiscrete, MultiBinary:
		// Already small integers; identity mapping.
	default:
		return nil, &UnsupportedSpaceError{Space: space, Context: "observation discretizer"}
	}

	return d, nil
}

// evenThresholds returns binCount-1 evenly spaced interior thresholds
// spanning [low, high].
func evenThresholds(low, high float64, binCount int) []float64 {
	out := make([]float64, binCount-1)
	for i := 1; i < binCount; i++ {
		out[i-1] = low + (high-low)*float64(i)/float64(binCount)
	}
	return out
}

// Discretize maps one observation to the integers written into machine
// memory. Pass-through spaces truncate their (already integral) values.
func (d *ObservationDiscretizer) Discretize(observation []float64) []int {
	update := make([]int, len(observation))
	if d.dims == nil {
		for i, v := range observation {
			update[i] = int(v)
		}
	} else {
		for i, v := range observation {
			update[i] = d.dims[i].Bin(v)
		}
	}

	if d.debug {
		raw := make([]float64, len(observation))
		copy(raw, observation)
		d.Trace = append(d.Trace, ObservationSnapshot{Raw: raw, Update: update})
	}
	return update
}

// IsFluid reports whether any dimension uses adaptive binning.
func (d *ObservationDiscretizer) IsFluid() bool {
	for _, dim := range d.dims {
		if _, ok := dim.(*FluidStreamDiscretizer); ok {
			return true
		}
	}
	return false
}

// Saturated reports whether every dimension has seen enough data to trust
// its thresholds. Pass-through and fixed dimensions are always saturated.
func (d *ObservationDiscretizer) Saturated() bool {
	for _, dim := range d.dims {
		if !dim.Saturated() {
			return false
		}
	}
	return true
}

// Thresholds returns the per-dimension threshold slices.
func (d *ObservationDiscretizer) Thresholds() [][]float64 {
	out := make([][]float64, len(d.dims))
	for i, dim := range d.dims {
		out[i] = dim.Thresholds()
	}
	return out
}

// Reset clears the history of every fluid dimension. Fixed dimensions are
// unaffected. Whether to reset between episodes is the caller's decision;
// nothing here happens implicitly.
func (d *ObservationDiscretizer) Reset() {
	for _, dim := range d.dims {
		if fluid, ok := dim.(*FluidStreamDiscretizer); ok {
			fluid.Reset()
		}
	}
}
