package vm

// ---------------------------------------------------------------------------
// Execution tracing
// ---------------------------------------------------------------------------

// ExecutionSnapshot is the immutable pre-state of one instruction: pointer
// positions, a memory copy, the action buffer and the machine state. It
// exists for tracing and tests only; execution never reads it back.
type ExecutionSnapshot struct {
	CodePtr int
	Command rune
	MemPtr  int
	MemVal  int
	Memory  []int
	Actions []int
	State   State
}

// TraceSink receives one snapshot per executed instruction. Machines built
// without a sink skip snapshot construction entirely, keeping the
// instruction loop cheap.
type TraceSink interface {
	Record(ExecutionSnapshot)
}

// TraceRecorder is a TraceSink that appends every snapshot.
type TraceRecorder struct {
	Snapshots []ExecutionSnapshot
}

// Record appends the snapshot.
func (r *TraceRecorder) Record(s ExecutionSnapshot) {
	r.Snapshots = append(r.Snapshots, s)
}

// Reset discards recorded snapshots.
func (r *TraceRecorder) Reset() {
	r.Snapshots = nil
}
