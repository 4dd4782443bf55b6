// Package dist defines the wire format for exchanging policy programs
// between search workers: programs travel as CBOR chunks of integer codes,
// padded with the sentinel code to a fixed length.
package dist

import "github.com/vadim0x60/bff/vm"

// ProgramChunk is the atomic unit of program exchange. Codes is the
// sentinel-padded integer encoding of one program; Metrics carries the
// sender's quality measurements, Count how often the sender saw the
// program.
type ProgramChunk struct {
	Codes   []int              `cbor:"1,keyasint"`
	Metrics map[string]float64 `cbor:"2,keyasint,omitempty"`
	Count   int                `cbor:"3,keyasint,omitempty"`
}

// Batch groups chunks produced by one worker in one exchange round.
type Batch struct {
	Worker string         `cbor:"1,keyasint"`
	Chunks []ProgramChunk `cbor:"2,keyasint"`
}

// PadCodes right-pads codes with the sentinel to length n. Codes longer
// than n are returned unchanged: the sentinel terminates, it never
// truncates.
func PadCodes(codes []int, n int) []int {
	if len(codes) >= n {
		return codes
	}
	out := make([]int, n)
	copy(out, codes)
	for i := len(codes); i < n; i++ {
		out[i] = vm.EOSCode
	}
	return out
}

// TrimCodes cuts codes at the first sentinel, undoing PadCodes.
func TrimCodes(codes []int) []int {
	for i, c := range codes {
		if c == vm.EOSCode {
			return codes[:i]
		}
	}
	return codes
}
