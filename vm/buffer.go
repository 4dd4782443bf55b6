package vm

// ---------------------------------------------------------------------------
// ActionBuffer: token stream between the machine and the sampler
// ---------------------------------------------------------------------------

// ActionBuffer holds the integer tokens emitted by output instructions. The
// machine pushes onto either end; the sampler consumes from the tail.
type ActionBuffer struct {
	tokens []int
}

// NewActionBuffer returns an empty buffer.
func NewActionBuffer() *ActionBuffer {
	return &ActionBuffer{}
}

// PushFront prepends a token.
func (b *ActionBuffer) PushFront(v int) {
	b.tokens = append(b.tokens, 0)
	copy(b.tokens[1:], b.tokens)
	b.tokens[0] = v
}

// PushBack appends a token.
func (b *ActionBuffer) PushBack(v int) {
	b.tokens = append(b.tokens, v)
}

// Len returns the number of buffered tokens.
func (b *ActionBuffer) Len() int { return len(b.tokens) }

// Tokens returns a copy of the buffered tokens, front first.
func (b *ActionBuffer) Tokens() []int {
	out := make([]int, len(b.tokens))
	copy(out, b.tokens)
	return out
}

// PopTail removes and returns the last k tokens in their buffered order.
// If fewer than k tokens are buffered it returns false and leaves the
// buffer untouched.
func (b *ActionBuffer) PopTail(k int) ([]int, bool) {
	if len(b.tokens) < k {
		return nil, false
	}
	out := make([]int, k)
	copy(out, b.tokens[len(b.tokens)-k:])
	b.tokens = b.tokens[:len(b.tokens)-k]
	return out, true
}

// Clear empties the buffer.
func (b *ActionBuffer) Clear() {
	b.tokens = b.tokens[:0]
}
