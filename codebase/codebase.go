// Package codebase stores evolved programs together with their quality
// metrics: an append-only table keyed by program source, deduplicating
// repeat commits into occurrence counts and running-mean metrics.
package codebase

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// ErrEmpty is returned when an operation needs at least one program.
var ErrEmpty = errors.New("codebase: empty")

// Metrics holds named quality measurements for one program.
type Metrics map[string]float64

// Metadata holds named string annotations for one program.
type Metadata map[string]string

type entry struct {
	code     string
	count    int
	metrics  map[string]float64
	metadata map[string]string
}

// Codebase is an append-only store of programs and their metrics. Repeat
// commits of the same source are folded together: the count goes up,
// metrics keep their running mean over all occurrences, metadata keeps the
// last write.
type Codebase struct {
	mu       sync.RWMutex
	metrics  []string // declared metric columns
	metadata []string // declared metadata columns
	order    []string // commit order of distinct programs
	programs map[string]*entry
	rng      *rand.Rand

	store      *Persistence
	flushEvery int
	flushTTL   int
}

// Option configures a Codebase.
type Option func(*Codebase)

// WithMetrics declares the metric columns.
func WithMetrics(names ...string) Option {
	return func(cb *Codebase) { cb.metrics = names }
}

// WithMetadata declares the metadata columns.
func WithMetadata(names ...string) Option {
	return func(cb *Codebase) { cb.metadata = names }
}

// WithPersistence attaches a save file, flushing every flushEvery commits.
func WithPersistence(store *Persistence, flushEvery int) Option {
	return func(cb *Codebase) {
		cb.store = store
		cb.flushEvery = flushEvery
		cb.flushTTL = flushEvery
	}
}

// WithRand injects the random source used by Sample.
func WithRand(rng *rand.Rand) Option {
	return func(cb *Codebase) { cb.rng = rng }
}

// New creates an empty codebase.
func New(opts ...Option) *Codebase {
	cb := &Codebase{
		programs: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(cb)
	}
	if cb.rng == nil {
		cb.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return cb
}

// NewDev creates a codebase with the columns used for freshly proposed
// programs.
func NewDev(opts ...Option) *Codebase {
	return New(append([]Option{WithMetrics("log_prob")}, opts...)...)
}

// NewProd creates a codebase with the columns used for fully evaluated
// programs.
func NewProd(opts ...Option) *Codebase {
	return New(append([]Option{
		WithMetrics("test_quality", "replay_weight", "log_prob"),
		WithMetadata("result"),
	}, opts...)...)
}

// Commit records one occurrence of a program.
func (cb *Codebase) Commit(code string, metrics Metrics, metadata Metadata) {
	cb.mu.Lock()
	cb.commitLocked(code, 1, metrics, metadata)
	flush := false
	if cb.store != nil {
		if cb.flushTTL <= 0 {
			cb.flushTTL = cb.flushEvery
			flush = true
		} else {
			cb.flushTTL--
		}
	}
	cb.mu.Unlock()

	if flush {
		// Flush failures are survivable; the in-memory store is intact.
		_ = cb.Flush()
	}
}

func (cb *Codebase) commitLocked(code string, count int, metrics Metrics, metadata Metadata) {
	prog, ok := cb.programs[code]
	if !ok {
		prog = &entry{
			code:     code,
			metrics:  make(map[string]float64, len(cb.metrics)),
			metadata: make(map[string]string, len(cb.metadata)),
		}
		cb.programs[code] = prog
		cb.order = append(cb.order, code)
	}

	for _, name := range cb.metrics {
		v, given := metrics[name]
		if !given {
			continue
		}
		prog.metrics[name] = (prog.metrics[name]*float64(prog.count) + v*float64(count)) /
			float64(prog.count+count)
	}
	for _, name := range cb.metadata {
		if v, given := metadata[name]; given {
			prog.metadata[name] = v
		}
	}
	prog.count += count
}

// Len returns the number of distinct programs.
func (cb *Codebase) Len() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return len(cb.order)
}

// Programs returns the distinct programs in commit order.
func (cb *Codebase) Programs() []string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	out := make([]string, len(cb.order))
	copy(out, cb.order)
	return out
}

// Count returns how many times code was committed.
func (cb *Codebase) Count(code string) int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if prog, ok := cb.programs[code]; ok {
		return prog.count
	}
	return 0
}

// Metric returns the running-mean value of one metric for code.
func (cb *Codebase) Metric(code, name string) float64 {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if prog, ok := cb.programs[code]; ok {
		return prog.metrics[name]
	}
	return 0
}

// MetadataValue returns the last metadata write for code.
func (cb *Codebase) MetadataValue(code, name string) string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if prog, ok := cb.programs[code]; ok {
		return prog.metadata[name]
	}
	return ""
}

// sameStructure fails when two codebases declare different columns.
func (cb *Codebase) sameStructure(other *Codebase) error {
	if !equalStrings(cb.metrics, other.metrics) {
		return fmt.Errorf("codebase: metric columns differ: %v vs %v", cb.metrics, other.metrics)
	}
	if !equalStrings(cb.metadata, other.metadata) {
		return fmt.Errorf("codebase: metadata columns differ: %v vs %v", cb.metadata, other.metadata)
	}
	return nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Merge folds every program of other into cb. Both must declare the same
// columns.
func (cb *Codebase) Merge(other *Codebase) error {
	if err := cb.sameStructure(other); err != nil {
		return err
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for _, code := range other.order {
		prog := other.programs[code]
		cb.commitLocked(code, prog.count, prog.metrics, prog.metadata)
	}
	return nil
}

// TopK returns a new codebase holding the k programs with the largest
// values of the given metric.
func (cb *Codebase) TopK(metric string, k int) *Codebase {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	top := cb.emptyLike()
	codes := make([]string, len(cb.order))
	copy(codes, cb.order)
	// Selection by repeated max keeps ties in commit order; k is tiny.
	for len(top.order) < k && len(codes) > 0 {
		best := 0
		for i := 1; i < len(codes); i++ {
			if cb.programs[codes[i]].metrics[metric] > cb.programs[codes[best]].metrics[metric] {
				best = i
			}
		}
		prog := cb.programs[codes[best]]
		top.commitLocked(prog.code, prog.count, prog.metrics, prog.metadata)
		codes = append(codes[:best], codes[best+1:]...)
	}
	return top
}

// Sample draws n programs without replacement, weighted by the given
// metric when one is named (programs with non-positive weight fall back to
// uniform sampling).
func (cb *Codebase) Sample(n int, metric string) (*Codebase, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if len(cb.order) < n {
		return nil, fmt.Errorf("codebase: cannot sample %d of %d programs", n, len(cb.order))
	}

	pool := make([]string, len(cb.order))
	copy(pool, cb.order)

	sampled := cb.emptyLike()
	for i := 0; i < n; i++ {
		idx := cb.pick(pool, metric)
		prog := cb.programs[pool[idx]]
		sampled.commitLocked(prog.code, prog.count, prog.metrics, prog.metadata)
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return sampled, nil
}

func (cb *Codebase) pick(pool []string, metric string) int {
	if metric != "" {
		total := 0.0
		for _, code := range pool {
			if w := cb.programs[code].metrics[metric]; w > 0 {
				total += w
			}
		}
		if total > 0 {
			r := cb.rng.Float64() * total
			for i, code := range pool {
				if w := cb.programs[code].metrics[metric]; w > 0 {
					r -= w
					if r <= 0 {
						return i
					}
				}
			}
		}
	}
	return cb.rng.Intn(len(pool))
}

func (cb *Codebase) emptyLike() *Codebase {
	out := New(WithMetrics(cb.metrics...), WithMetadata(cb.metadata...))
	out.rng = cb.rng
	return out
}

// Peek returns the oldest program with its metrics and metadata.
func (cb *Codebase) Peek() (string, Metrics, Metadata, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if len(cb.order) == 0 {
		return "", nil, nil, ErrEmpty
	}
	prog := cb.programs[cb.order[0]]
	return prog.code, copyMetrics(prog.metrics), copyMetadata(prog.metadata), nil
}

// Pop removes and returns the oldest program.
func (cb *Codebase) Pop() (string, Metrics, Metadata, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(cb.order) == 0 {
		return "", nil, nil, ErrEmpty
	}
	code := cb.order[0]
	prog := cb.programs[code]
	cb.order = cb.order[1:]
	delete(cb.programs, code)
	return prog.code, copyMetrics(prog.metrics), copyMetadata(prog.metadata), nil
}

// Clear removes every program.
func (cb *Codebase) Clear() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.order = nil
	cb.programs = make(map[string]*entry)
}

func copyMetrics(m map[string]float64) Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyMetadata(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
