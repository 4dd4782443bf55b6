package vm

// ---------------------------------------------------------------------------
// ActionSampler: buffered tokens -> environment-native actions
// ---------------------------------------------------------------------------

// Action is one sampled action. Discrete spaces carry a single value and
// report IsScalar; everything else is a vector.
type Action struct {
	Values []float64
	scalar bool
}

// IsScalar reports whether the action is a single discrete choice.
func (a Action) IsScalar() bool { return a.scalar }

// Scalar returns the action as a single integer choice.
func (a Action) Scalar() int { return int(a.Values[0]) }

// Vector returns the action values.
func (a Action) Vector() []float64 { return a.Values }

// ActionSnapshot records one sampling for debugging.
type ActionSnapshot struct {
	Raw    []int // tokens consumed, nil when the default was used
	Action Action
}

// ActionSampler inverts discretization: it turns the small integers a
// program emits back into actions inside the action space's bounds.
type ActionSampler struct {
	space         Space
	lower         []float64
	upper         []float64
	boundedBelow  []bool
	boundedAbove  []bool
	steps         int
	defaultAction []float64
	scalar        bool
	debug         bool

	// Trace holds one snapshot per Sample call when debug is on.
	Trace []ActionSnapshot
}

// SamplerOption configures an ActionSampler.
type SamplerOption func(*samplerConfig)

type samplerConfig struct {
	steps         int
	defaultAction []float64
	debug         bool
}

// WithDiscretizationSteps sets the token resolution. Discrete spaces ignore
// it and always use their own choice count, which keeps tokens mapping to
// choices one to one.
func WithDiscretizationSteps(n int) SamplerOption {
	return func(c *samplerConfig) { c.steps = n }
}

// WithDefaultAction overrides the action returned when the buffer holds
// fewer tokens than the action dimensionality.
func WithDefaultAction(action []float64) SamplerOption {
	return func(c *samplerConfig) { c.defaultAction = action }
}

// WithSamplerDebug turns on snapshot tracing.
func WithSamplerDebug() SamplerOption {
	return func(c *samplerConfig) { c.debug = true }
}

// NewActionSampler derives bounds and a default action from the action
// space. Four shapes are supported: single discrete choice, vector of
// discrete choices, binary vector, and bounded continuous vector.
func NewActionSampler(space Space, opts ...SamplerOption) (*ActionSampler, error) {
	cfg := samplerConfig{steps: DefaultBinCount}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &ActionSampler{
		space: space,
		steps: cfg.steps,
		debug: cfg.debug,
	}

	switch sp := space.(type) {
	case Discrete:
		s.lower = []float64{0}
		s.upper = []float64{float64(sp.N - 1)}
		s.boundedBelow = []bool{true}
		s.boundedAbove = []bool{true}
		s.defaultAction = []float64{0}
		s.scalar = true
		// One token value per choice; a coarser resolution would fold
		// distinct choices together for no benefit.
		s.steps = sp.N

	case MultiDiscrete:
		n := len(sp.Nvec)
		s.lower = make([]float64, n)
		s.upper = make([]float64, n)
		s.boundedBelow = make([]bool, n)
		s.boundedAbove = make([]bool, n)
		for i, nv := range sp.Nvec {
			s.upper[i] = float64(nv)
			s.boundedBelow[i] = true
			s.boundedAbove[i] = true
		}
		s.defaultAction = make([]float64, n)

	case MultiBinary:
		s.lower = make([]float64, sp.N)
		s.upper = make([]float64, sp.N)
		s.boundedBelow = make([]bool, sp.N)
		s.boundedAbove = make([]bool, sp.N)
		for i := range s.upper {
			s.upper[i] = 1
			s.boundedBelow[i] = true
			s.boundedAbove[i] = true
		}
		s.defaultAction = make([]float64, sp.N)

	case Box:
		n := sp.FlatDim()
		s.lower = make([]float64, n)
		s.upper = make([]float64, n)
		s.boundedBelow = make([]bool, n)
		s.boundedAbove = make([]bool, n)
		for i := 0; i < n; i++ {
			s.lower[i] = sp.Low[i]
			s.upper[i] = sp.High[i]
			s.boundedBelow[i] = sp.BoundedBelow(i)
			s.boundedAbove[i] = sp.BoundedAbove(i)
		}
		s.defaultAction = make([]float64, n)

	default:
		return nil, &UnsupportedSpaceError{Space: space, Context: "action sampler"}
	}

	if cfg.defaultAction != nil {
		s.defaultAction = cfg.defaultAction
	}
	return s, nil
}

// FlatDim returns the number of tokens one action consumes.
func (s *ActionSampler) FlatDim() int { return len(s.lower) }

// Sample pops the last FlatDim tokens off the buffer and undiscretizes
// them. If the buffer holds fewer tokens, the configured default action is
// returned and the buffer is left untouched.
func (s *ActionSampler) Sample(buffer *ActionBuffer) Action {
	action := Action{scalar: s.scalar}

	raw, ok := buffer.PopTail(s.FlatDim())
	if ok {
		action.Values = s.undiscretize(raw)
	} else {
		action.Values = make([]float64, len(s.defaultAction))
		copy(action.Values, s.defaultAction)
	}

	if s.debug {
		s.Trace = append(s.Trace, ActionSnapshot{Raw: raw, Action: action})
	}
	return action
}

// undiscretize maps tokens into the space's bounds. Doubly bounded
// dimensions wrap the token modulo the resolution and scale into
// [lower, upper+1); singly bounded dimensions pass the raw token through
// the same division and reflect across the bound if the value lands on the
// wrong side of it.
func (s *ActionSampler) undiscretize(raw []int) []float64 {
	out := make([]float64, len(raw))
	for i, token := range raw {
		var v float64
		if s.boundedBelow[i] && s.boundedAbove[i] {
			wrapped := ((token % s.steps) + s.steps) % s.steps
			v = float64(wrapped) * (s.upper[i] - s.lower[i] + 1) / float64(s.steps)
		} else {
			v = float64(token) / float64(s.steps)
			if s.boundedBelow[i] && v < s.lower[i] {
				v = s.lower[i] - (v - s.lower[i])
			}
			if s.boundedAbove[i] && v > s.upper[i] {
				v = s.upper[i] - (v - s.upper[i])
			}
		}
		out[i] = v
	}
	return out
}
