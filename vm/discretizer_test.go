package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Stream discretizers
// ---------------------------------------------------------------------------

func TestStreamDiscretizerBins(t *testing.T) {
	d := NewStreamDiscretizer([]float64{0, 10, 20, 30})

	cases := []struct {
		value float64
		want  int
	}{
		{-100, 0},
		{-0.001, 0},
		{0, 1},
		{5, 1},
		{10, 2},
		{25, 3},
		{30, 4},
		{1e9, 4},
	}
	for _, c := range cases {
		if got := d.Bin(c.value); got != c.want {
			t.Errorf("Bin(%v) = %d, want %d", c.value, got, c.want)
		}
	}
	if !d.Saturated() {
		t.Error("fixed discretizer not saturated")
	}
}

func TestFluidStreamDiscretizerSaturates(t *testing.T) {
	d := NewFluidStreamDiscretizer(5, 10)
	if d.Saturated() {
		t.Fatal("saturated before any data")
	}
	for i := 0; i < 9; i++ {
		d.Bin(float64(i))
	}
	if d.Saturated() {
		t.Fatal("saturated with a partially filled history")
	}
	d.Bin(9)
	if !d.Saturated() {
		t.Fatal("not saturated with a full history")
	}
	if got := len(d.Thresholds()); got != 4 {
		t.Errorf("threshold count = %d, want 4", got)
	}
}

func TestFluidStreamDiscretizerTracksQuantiles(t *testing.T) {
	d := NewFluidStreamDiscretizer(2, 100)
	for i := 0; i < 100; i++ {
		d.Bin(float64(i % 10))
	}
	// Single interior threshold approximates the median of 0..9.
	median := d.Thresholds()[0]
	if median < 3 || median > 6 {
		t.Errorf("median threshold = %v, want around 4.5", median)
	}
	if got := d.Bin(9); got != 1 {
		t.Errorf("Bin(9) = %d, want 1", got)
	}
	if got := d.Bin(0); got != 0 {
		t.Errorf("Bin(0) = %d, want 0", got)
	}
}

func TestFluidStreamDiscretizerReset(t *testing.T) {
	d := NewFluidStreamDiscretizer(3, 4)
	for i := 0; i < 8; i++ {
		d.Bin(float64(i))
	}
	if !d.Saturated() {
		t.Fatal("not saturated after twice the history length")
	}
	d.Reset()
	if d.Saturated() {
		t.Error("saturated right after Reset")
	}
	for _, threshold := range d.Thresholds() {
		if threshold != 0 {
			t.Errorf("threshold %v survived Reset", threshold)
		}
	}
}

// ---------------------------------------------------------------------------
// ObservationDiscretizer
// ---------------------------------------------------------------------------

func TestObservationDiscretizerBoundedBox(t *testing.T) {
	space := Box{Low: []float64{0}, High: []float64{1}}
	d, err := NewObservationDiscretizer(space)
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	if d.IsFluid() {
		t.Error("finite bounds produced a fluid discretizer")
	}
	if !d.Saturated() {
		t.Error("fixed discretizer not saturated")
	}

	// 5 bins over [0, 1]: thresholds at 0.2, 0.4, 0.6, 0.8.
	cases := []struct {
		value float64
		want  int
	}{
		{-0.5, 0},
		{0.1, 0},
		{0.3, 1},
		{0.5, 2},
		{0.7, 3},
		{0.9, 4},
		{7.0, 4},
	}
	for _, c := range cases {
		got := d.Discretize([]float64{c.value})
		if got[0] != c.want {
			t.Errorf("Discretize(%v) = %d, want %d", c.value, got[0], c.want)
		}
	}
}

func TestObservationDiscretizerUnboundedBoxIsFluid(t *testing.T) {
	space := Box{
		Low:  []float64{0, math.Inf(-1)},
		High: []float64{1, math.Inf(1)},
	}
	d, err := NewObservationDiscretizer(space)
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	if !d.IsFluid() {
		t.Error("unbounded dimension did not get a fluid discretizer")
	}
	if d.Saturated() {
		t.Error("fluid dimension saturated with no history")
	}
}

func TestObservationDiscretizerForcedFluid(t *testing.T) {
	space := Box{Low: []float64{0}, High: []float64{1}}
	d, err := NewObservationDiscretizer(space, WithFluidDiscretization())
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	if !d.IsFluid() {
		t.Error("WithFluidDiscretization did not force adaptive binning")
	}
}

func TestObservationDiscretizerExplicitThresholds(t *testing.T) {
	space := Box{Low: []float64{0, 0}, High: []float64{1, 1}}
	d, err := NewObservationDiscretizer(space, WithThresholds([]float64{0.5}))
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	got := d.Discretize([]float64{0.2, 0.9})
	if got[0] != 0 || got[1] != 1 {
		t.Errorf("Discretize = %v, want [0 1]", got)
	}
}

func TestObservationDiscretizerPassThrough(t *testing.T) {
	for _, space := range []Space{Discrete{N: 4}, MultiDiscrete{Nvec: []int{2, 3}}, MultiBinary{N: 3}} {
		d, err := NewObservationDiscretizer(space)
		if err != nil {
			t.Fatalf("NewObservationDiscretizer(%T): %v", space, err)
		}
		got := d.Discretize([]float64{3, 1, 0})
		if got[0] != 3 || got[1] != 1 || got[2] != 0 {
			t.Errorf("pass-through Discretize = %v, want [3 1 0]", got)
		}
		if d.IsFluid() {
			t.Errorf("%T pass-through claims to be fluid", space)
		}
	}
}

func TestObservationDiscretizerDebugTrace(t *testing.T) {
	space := Box{Low: []float64{0}, High: []float64{1}}
	d, err := NewObservationDiscretizer(space, WithDiscretizerDebug())
	if err != nil {
		t.Fatalf("NewObservationDiscretizer: %v", err)
	}
	d.Discretize([]float64{0.3})
	d.Discretize([]float64{0.9})
	if len(d.Trace) != 2 {
		t.Fatalf("trace length = %d, want 2", len(d.Trace))
	}
	if d.Trace[1].Raw[0] != 0.9 || d.Trace[1].Update[0] != 4 {
		t.Errorf("trace[1] = %+v", d.Trace[1])
	}
}
