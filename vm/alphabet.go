// Package vm implements the BF++ policy-program machine: an extended
// Brainfuck-family interpreter whose programs read discretized environment
// observations from the memory tape and emit action tokens onto a buffer.
package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Alphabet: symbol <-> code bijection and program canonicalization
// ---------------------------------------------------------------------------

// EOSChar is the sentinel symbol. It marks end-of-sequence (and start, when
// decoding padded streams) and is never an executable instruction.
const EOSChar = '_'

// EOSCode is the integer code of the sentinel. Code 0 is reserved for it in
// every alphabet; executable symbols start at 1.
const EOSCode = 0

// Default symbol groups. Digits write their index into the current cell,
// cell letters set the cell pointer to their index.
const (
	DefaultActions = "01234"
	DefaultCells   = "abcde"
)

// DefaultSymbols is the executable symbol set of the default language:
// pointer moves, absolute jump, arithmetic, loop brackets, output to both
// ends of the action buffer, input, negate, literal digits, literal cells,
// and the random draw.
const DefaultSymbols = "><^+-[].,!~" + DefaultActions + DefaultCells + "@"

// UnknownSymbolError reports a symbol or code outside the configured
// alphabet.
type UnknownSymbolError struct {
	Symbol rune // the offending symbol ('\x00' when a code was at fault)
	Code   int  // the offending code (-1 when a symbol was at fault)
}

func (e *UnknownSymbolError) Error() string {
	if e.Code >= 0 {
		return fmt.Sprintf("vm: code %d is not in the alphabet", e.Code)
	}
	return fmt.Sprintf("vm: symbol %q is not in the alphabet", e.Symbol)
}

// Alphabet is the instruction symbol set of one machine. Symbols map
// bijectively to integer codes 1..len(symbols); code 0 is the sentinel.
type Alphabet struct {
	symbols []rune
	codes   map[rune]int
	actions string // digit subset, in DefaultActions order
	cells   string // cell-letter subset, in DefaultCells order
}

// NewAlphabet builds an alphabet from the given executable symbol string.
// Symbols must be drawn from DefaultSymbols (the instruction repertoire the
// machine knows how to execute), must not repeat, and must not include the
// sentinel.
func NewAlphabet(symbols string) (*Alphabet, error) {
	a := &Alphabet{
		symbols: []rune(symbols),
		codes:   make(map[rune]int, len(symbols)),
	}
	for i, r := range a.symbols {
		if r == EOSChar {
			return nil, fmt.Errorf("vm: sentinel %q cannot be an executable symbol", EOSChar)
		}
		if !strings.ContainsRune(DefaultSymbols, r) {
			return nil, fmt.Errorf("vm: symbol %q is not in the instruction repertoire", r)
		}
		if _, dup := a.codes[r]; dup {
			return nil, fmt.Errorf("vm: duplicate symbol %q", r)
		}
		a.codes[r] = i + 1
		if strings.ContainsRune(DefaultActions, r) {
			a.actions += string(r)
		}
		if strings.ContainsRune(DefaultCells, r) {
			a.cells += string(r)
		}
	}
	return a, nil
}

// DefaultAlphabet returns the alphabet over DefaultSymbols.
func DefaultAlphabet() *Alphabet {
	a, err := NewAlphabet(DefaultSymbols)
	if err != nil {
		panic(fmt.Sprintf("vm: default alphabet: %v", err))
	}
	return a
}

// Size returns the number of codes including the sentinel.
func (a *Alphabet) Size() int { return len(a.symbols) + 1 }

// Contains reports whether r is an executable symbol of this alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.codes[r]
	return ok
}

// Encode maps program text to integer codes. The sentinel encodes to
// EOSCode; any other symbol outside the alphabet is an error.
func (a *Alphabet) Encode(text string) ([]int, error) {
	codes := make([]int, 0, len(text))
	for _, r := range text {
		if r == EOSChar {
			codes = append(codes, EOSCode)
			continue
		}
		c, ok := a.codes[r]
		if !ok {
			return nil, &UnknownSymbolError{Symbol: r, Code: -1}
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// Decode maps integer codes back to program text, the inverse of Encode.
func (a *Alphabet) Decode(codes []int) (string, error) {
	var b strings.Builder
	for _, c := range codes {
		if c == EOSCode {
			b.WriteRune(EOSChar)
			continue
		}
		if c < 0 || c > len(a.symbols) {
			return "", &UnknownSymbolError{Code: c}
		}
		b.WriteRune(a.symbols[c-1])
	}
	return b.String(), nil
}

// actionIndex returns the value written by a digit symbol, or -1.
func (a *Alphabet) actionIndex(r rune) int {
	return strings.IndexRune(a.actions, r)
}

// cellIndex returns the cell pointer target of a cell letter, or -1.
func (a *Alphabet) cellIndex(r rune) int {
	return strings.IndexRune(a.cells, r)
}

// ---------------------------------------------------------------------------
// Canonicalization: fixed-point rewriting of redundant instruction runs
// ---------------------------------------------------------------------------

// Canonicalize rewrites a program to a fixed point by removing instruction
// sequences with no observable effect:
//
//   - an adjacent inverse pointer-move pair ">" "<"
//   - adjacent inverse increment/decrement pairs "+-" and "-+"
//   - a run of relative pointer moves immediately before an absolute
//     pointer-set (cell letter), whose effect the set overwrites
//   - a run of increments/decrements immediately before an absolute value
//     write (digit), likewise overwritten
//
// "<>" is left alone: the back move clamps at cell zero, so the pair is not
// an identity there. Every rule strictly shortens the program, so the loop
// terminates; it stops after the first pass that changes nothing.
func (a *Alphabet) Canonicalize(text string) string {
	code := []rune(text)
	for {
		rewritten := a.canonicalizePass(code)
		if len(rewritten) == len(code) {
			return string(rewritten)
		}
		code = rewritten
	}
}

func (a *Alphabet) canonicalizePass(code []rune) []rune {
	out := make([]rune, 0, len(code))
	for _, r := range code {
		switch {
		case r == '<' && tail(out) == '>':
			out = out[:len(out)-1]
		case r == '-' && tail(out) == '+':
			out = out[:len(out)-1]
		case r == '+' && tail(out) == '-':
			out = out[:len(out)-1]
		case a.cellIndex(r) >= 0:
			for t := tail(out); t == '>' || t == '<'; t = tail(out) {
				out = out[:len(out)-1]
			}
			out = append(out, r)
		case a.actionIndex(r) >= 0:
			for t := tail(out); t == '+' || t == '-'; t = tail(out) {
				out = out[:len(out)-1]
			}
			out = append(out, r)
		default:
			out = append(out, r)
		}
	}
	return out
}

func tail(code []rune) rune {
	if len(code) == 0 {
		return 0
	}
	return code[len(code)-1]
}
