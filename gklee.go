package gklee

import (
	"fmt"
)

// Standard widths, in bits.
const (
	WidthBool = 1
	Width8    = 8
	Width16   = 16
	Width32   = 32
	Width64   = 64
)

// Array index and element widths. Every array is byte-addressed with a
// 32-bit index; Select/Store helpers zero-extend offsets to WidthDomain
// and values to WidthRange.
const (
	WidthDomain = Width32
	WidthRange  = Width8
)

// magicHashConstant mixes kind, width, contents and child hashes when
// computing structural hashes.
const magicHashConstant = 39

// assert panics if condition is false.
//
// Width mismatches, out-of-range extracts, rebuilds of terminals and
// empty-tree cursor queries are caller bugs; continuing past any of them
// would corrupt the canonical-form invariants, so they abort.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

// minBytes returns smallest number of bytes in which w bits fit.
func minBytes(bits uint) uint {
	return (bits + 7) / 8
}
