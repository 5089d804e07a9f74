package node

import "math/rand"

// defaultBackoff returns the arbiter's randomized back-off generator:
// uniform draws in [0,1) virtual seconds from a private source, so
// concurrent nodes don't contend on a shared *rand.Rand. Exposed as a
// constructor parameter (not hardcoded) per the spec's open question
// on tunability; tests that need deterministic settling pass their
// own func() float64 to node.New instead.
func defaultBackoff() func() float64 {
	r := rand.New(rand.NewSource(1))
	return r.Float64
}
