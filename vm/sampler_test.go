package vm

import (
	"math"
	"testing"
)

func bufferWith(tokens ...int) *ActionBuffer {
	b := NewActionBuffer()
	for _, v := range tokens {
		b.PushBack(v)
	}
	return b
}

// ---------------------------------------------------------------------------
// Discrete spaces
// ---------------------------------------------------------------------------

func TestSampleDiscreteIdentity(t *testing.T) {
	// With steps equal to the choice count, tokens map to choices one to
	// one.
	s, err := NewActionSampler(Discrete{N: 4})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	for token := 0; token < 4; token++ {
		action := s.Sample(bufferWith(token))
		if !action.IsScalar() {
			t.Fatal("discrete action is not scalar")
		}
		if action.Scalar() != token {
			t.Errorf("Sample(%d) = %d, want identity", token, action.Scalar())
		}
	}
}

func TestSampleDiscreteWrapsModulo(t *testing.T) {
	s, err := NewActionSampler(Discrete{N: 4})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	if got := s.Sample(bufferWith(7)).Scalar(); got != 3 {
		t.Errorf("Sample(7) = %d, want 3", got)
	}
	if got := s.Sample(bufferWith(-1)).Scalar(); got != 3 {
		t.Errorf("Sample(-1) = %d, want 3", got)
	}
}

func TestSampleDefaultOnShortBuffer(t *testing.T) {
	s, err := NewActionSampler(MultiDiscrete{Nvec: []int{2, 2, 2}})
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	buffer := bufferWith(1, 1)

	action := s.Sample(buffer)
	for i, v := range action.Vector() {
		if v != 0 {
			t.Errorf("default action[%d] = %v, want 0", i, v)
		}
	}
	if buffer.Len() != 2 {
		t.Errorf("short buffer consumed: %d tokens left, want 2", buffer.Len())
	}
}

func TestSampleConfiguredDefault(t *testing.T) {
	s, err := NewActionSampler(Discrete{N: 5}, WithDefaultAction([]float64{2}))
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	if got := s.Sample(NewActionBuffer()).Scalar(); got != 2 {
		t.Errorf("default = %d, want 2", got)
	}
}

// ---------------------------------------------------------------------------
// Vector spaces
// ---------------------------------------------------------------------------

func TestSampleConsumesBufferTail(t *testing.T) {
	s, err := NewActionSampler(MultiBinary{N: 2}, WithDiscretizationSteps(2))
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	buffer := bufferWith(9, 0, 1)

	action := s.Sample(buffer)
	// The last two tokens, order preserved: 0 then 1, scaled into [0, 2).
	if got := action.Vector(); got[0] != 0 || got[1] != 1 {
		t.Errorf("action = %v, want [0 1]", got)
	}
	if buffer.Len() != 1 || buffer.Tokens()[0] != 9 {
		t.Errorf("buffer after sample = %v, want [9]", buffer.Tokens())
	}
}

func TestSampleBoundedBox(t *testing.T) {
	space := Box{Low: []float64{0}, High: []float64{9}}
	s, err := NewActionSampler(space) // 5 steps
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	// token 3: (3 mod 5) * (9 - 0 + 1) / 5 = 6.
	if got := s.Sample(bufferWith(3)).Vector()[0]; got != 6 {
		t.Errorf("Sample(3) = %v, want 6", got)
	}
	// token 7 wraps: (7 mod 5) * 10 / 5 = 4.
	if got := s.Sample(bufferWith(7)).Vector()[0]; got != 4 {
		t.Errorf("Sample(7) = %v, want 4", got)
	}
}

func TestSampleSingleBoundReflects(t *testing.T) {
	lowerOnly := Box{Low: []float64{2}, High: []float64{math.Inf(1)}}
	s, err := NewActionSampler(lowerOnly)
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	// token 30: 30 / 5 = 6, already above the bound.
	if got := s.Sample(bufferWith(30)).Vector()[0]; got != 6 {
		t.Errorf("Sample(30) = %v, want 6", got)
	}
	// token 5: 5 / 5 = 1, below the bound, reflected to 2 - (1 - 2) = 3.
	if got := s.Sample(bufferWith(5)).Vector()[0]; got != 3 {
		t.Errorf("Sample(5) = %v, want 3", got)
	}

	upperOnly := Box{Low: []float64{math.Inf(-1)}, High: []float64{1}}
	s, err = NewActionSampler(upperOnly)
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	// token 10: 10 / 5 = 2, above the bound, reflected to 1 - (2 - 1) = 0.
	if got := s.Sample(bufferWith(10)).Vector()[0]; got != 0 {
		t.Errorf("Sample(10) = %v, want 0", got)
	}
}

func TestSampleUnboundedPassesThrough(t *testing.T) {
	space := Box{Low: []float64{math.Inf(-1)}, High: []float64{math.Inf(1)}}
	s, err := NewActionSampler(space)
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	if got := s.Sample(bufferWith(-15)).Vector()[0]; got != -3 {
		t.Errorf("Sample(-15) = %v, want -3", got)
	}
}

func TestSamplerDebugTrace(t *testing.T) {
	s, err := NewActionSampler(Discrete{N: 3}, WithSamplerDebug())
	if err != nil {
		t.Fatalf("NewActionSampler: %v", err)
	}
	s.Sample(bufferWith(2))
	s.Sample(NewActionBuffer())
	if len(s.Trace) != 2 {
		t.Fatalf("trace length = %d, want 2", len(s.Trace))
	}
	if s.Trace[0].Raw == nil || s.Trace[1].Raw != nil {
		t.Errorf("trace raw tokens = %v / %v", s.Trace[0].Raw, s.Trace[1].Raw)
	}
}
