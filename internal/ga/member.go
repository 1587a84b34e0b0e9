package ga

import "math"

// Member is one candidate solution: a mapping from parameter name to current
// value, plus the cost and fitness recorded by the last evaluation.
// A member with Evaluated == false must never be selected as a parent.
type Member struct {
	Values    map[string]float64
	Cost      float64
	Fitness   float64
	Evaluated bool
}

// Clone returns a deep copy of the member. Offspring are always built from
// clones, so later mutation of a child never perturbs its parent.
func (m *Member) Clone() *Member {
	return &Member{
		Values:    cloneValues(m.Values),
		Cost:      m.Cost,
		Fitness:   m.Fitness,
		Evaluated: m.Evaluated,
	}
}

// setCost records a cost and the fitness derived from it.
func (m *Member) setCost(cost float64) {
	m.Cost = cost
	m.Fitness = FitnessOf(cost)
	m.Evaluated = true
}

// FitnessOf maps a cost to a fitness score:
//
//	fitness = 1 / (1 + cost)   if cost >= 0
//	fitness = 1 + |cost|       if cost < 0
//
// The transform is strictly decreasing over all reals, so lower cost always
// ranks higher. Minimization is the convention throughout this package.
func FitnessOf(cost float64) float64 {
	if cost >= 0 {
		return 1 / (1 + cost)
	}
	return 1 + math.Abs(cost)
}

func cloneValues(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for name, v := range values {
		out[name] = v
	}
	return out
}
