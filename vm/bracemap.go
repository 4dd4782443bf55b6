package vm

// ---------------------------------------------------------------------------
// Bracemap: loop-bracket jump table
// ---------------------------------------------------------------------------

// Bracemap maps each bracket position in a program to its jump target.
// Matched pairs map to each other; unmatched brackets map to themselves so
// that execution falls through them.
type Bracemap map[int]int

// BuildBracemap scans the program and pairs up loop brackets. It returns the
// jump table and whether the program is well formed. Unmatched brackets
// never fail the build: they are recorded as self-loops and the flag goes
// false. A zero-length program is ill-formed outright; an empty policy is
// rejected rather than silently accepted.
func BuildBracemap(code []rune) (Bracemap, bool) {
	bracemap := make(Bracemap)
	var bracestack []int

	wellFormed := len(code) > 0
	for position, command := range code {
		switch command {
		case '[':
			bracestack = append(bracestack, position)
		case ']':
			if len(bracestack) == 0 {
				bracemap[position] = position
				wellFormed = false
				continue
			}
			start := bracestack[len(bracestack)-1]
			bracestack = bracestack[:len(bracestack)-1]
			bracemap[start] = position
			bracemap[position] = start
		}
	}
	for _, position := range bracestack {
		bracemap[position] = position
		wellFormed = false
	}
	return bracemap, wellFormed
}
