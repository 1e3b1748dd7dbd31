package core

import "math/bits"

// MulDiv computes a * b / den with a 128-bit intermediate product, so the
// multiply-before-divide percentage math cannot wrap on large stakes.
// den must be non-zero and the quotient must fit in uint64; both hold for
// every caller here because b <= den throughout.
func MulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, den)
	return q
}
