package ga

import (
	"math"
	"math/rand"
)

// Parameter defines one tunable dimension: a name, its bounds, whether it
// lives on the integer lattice, and whether mutation is clipped to the bounds.
// Parameters are immutable once registered with a Population.
type Parameter struct {
	Name     string
	Min      float64
	Max      float64
	Integer  bool
	Restrict bool
}

// randValue samples a uniform random value in [Min, Max].
// Integer parameters are sampled uniformly on the integer lattice.
func (p *Parameter) randValue(rng *rand.Rand) float64 {
	if p.Integer {
		lo := int64(p.Min)
		hi := int64(p.Max)
		return float64(lo + rng.Int63n(hi-lo+1))
	}
	return p.Min + rng.Float64()*(p.Max-p.Min)
}

// mutateValue perturbs v by a uniform random amount in
// [-maxMutAmount, +maxMutAmount] x (Max - Min). Integer parameters round to
// the nearest lattice point; restricted parameters are clipped into range.
func (p *Parameter) mutateValue(v, maxMutAmount float64, rng *rand.Rand) float64 {
	delta := (2*rng.Float64() - 1) * maxMutAmount * (p.Max - p.Min)
	nv := v + delta
	if p.Integer {
		nv = math.Round(nv)
	}
	if p.Restrict {
		nv = clamp(nv, p.Min, p.Max)
	}
	return nv
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
