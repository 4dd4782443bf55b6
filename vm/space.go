package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Space: closed tagged-variant description of action/observation spaces
// ---------------------------------------------------------------------------

// Space describes the shape and bounds of an action or observation space.
// The variant set is closed: Discrete, MultiDiscrete, MultiBinary, Box.
type Space interface {
	// FlatDim is the flattened dimensionality of one sample.
	FlatDim() int

	spaceVariant()
}

// Discrete is a single choice among N values 0..N-1.
type Discrete struct {
	N int
}

// MultiDiscrete is a vector of independent discrete choices; Nvec holds the
// per-dimension value counts.
type MultiDiscrete struct {
	Nvec []int
}

// MultiBinary is a vector of N independent binary choices.
type MultiBinary struct {
	N int
}

// Box is a vector of bounded or unbounded continuous values. Low and High
// hold per-dimension bounds; an infinite entry marks that side unbounded.
type Box struct {
	Low  []float64
	High []float64
}

func (Discrete) spaceVariant()      {}
func (MultiDiscrete) spaceVariant() {}
func (MultiBinary) spaceVariant()   {}
func (Box) spaceVariant()           {}

func (s Discrete) FlatDim() int      { return 1 }
func (s MultiDiscrete) FlatDim() int { return len(s.Nvec) }
func (s MultiBinary) FlatDim() int   { return s.N }
func (s Box) FlatDim() int           { return len(s.Low) }

// NewBox builds a Box space, checking that the bound vectors agree.
func NewBox(low, high []float64) (Box, error) {
	if len(low) != len(high) {
		return Box{}, fmt.Errorf("vm: box bounds disagree: %d low, %d high", len(low), len(high))
	}
	return Box{Low: low, High: high}, nil
}

// BoundedBelow reports per-dimension lower boundedness of a Box.
func (s Box) BoundedBelow(dim int) bool {
	return !math.IsInf(s.Low[dim], -1)
}

// BoundedAbove reports per-dimension upper boundedness of a Box.
func (s Box) BoundedAbove(dim int) bool {
	return !math.IsInf(s.High[dim], 1)
}

// UnsupportedSpaceError is returned at construction time when a component
// cannot serve the given space description. It is fatal: the caller must not
// proceed with the configuration.
type UnsupportedSpaceError struct {
	Space   Space
	Context string
}

func (e *UnsupportedSpaceError) Error() string {
	return fmt.Sprintf("vm: %T spaces are not supported by the %s", e.Space, e.Context)
}
