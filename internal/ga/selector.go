package ga

import (
	"math"
	"math/rand"
	"sort"
)

// Selector chooses n parents from a set of evaluated members, with
// replacement. Implementations must only ever select evaluated members.
type Selector interface {
	Select(members []*Member, n int, rng *rand.Rand) ([]*Member, error)
}

// SelectorFunc adapts a plain function to the Selector interface.
type SelectorFunc func(members []*Member, n int, rng *rand.Rand) ([]*Member, error)

func (f SelectorFunc) Select(members []*Member, n int, rng *rand.Rand) ([]*Member, error) {
	return f(members, n, rng)
}

// RankSelector is the default selection strategy. Members are stably sorted
// by fitness descending (ties keep insertion order), and rank r gets a
// selection weight of LogBase^(N-1-r), normalized to a probability
// distribution. A high LogBase concentrates selection on top ranks; a
// LogBase of 1 is uniform.
type RankSelector struct {
	LogBase float64
}

func (s *RankSelector) Select(members []*Member, n int, rng *rand.Rand) ([]*Member, error) {
	if n <= 0 {
		return nil, &ConfigError{Field: "n", Reason: "must be positive"}
	}
	if len(members) == 0 {
		return nil, &ConfigError{Field: "members", Reason: "cannot be empty"}
	}
	for _, m := range members {
		if !m.Evaluated {
			return nil, &ConfigError{Field: "members", Reason: "contains unevaluated member"}
		}
	}

	ranked := make([]*Member, len(members))
	copy(ranked, members)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})

	base := s.LogBase
	if base <= 0 {
		base = DefaultLogBase
	}
	if base < 1 {
		return nil, &ConfigError{Field: "LogBase", Reason: "must be at least 1"}
	}

	cdf := rankCDF(len(ranked), base)
	out := make([]*Member, n)
	for i := range out {
		out[i] = ranked[pickIndex(cdf, rng.Float64())]
	}
	return out, nil
}

// rankCDF builds the cumulative distribution over ranks for weights
// base^(N-1-r). The weights are computed in ratio form (a geometric series
// with ratio 1/base) so large populations cannot overflow float64.
func rankCDF(n int, base float64) []float64 {
	cdf := make([]float64, n)
	if base == 1 {
		for i := range cdf {
			cdf[i] = float64(i+1) / float64(n)
		}
		return cdf
	}

	q := 1 / base
	total := (1 - math.Pow(q, float64(n))) / (1 - q)
	cum := 0.0
	w := 1.0
	for i := 0; i < n; i++ {
		cum += w / total
		cdf[i] = cum
		w *= q
	}
	cdf[n-1] = 1
	return cdf
}

// pickIndex returns the smallest index i with u < cdf[i].
func pickIndex(cdf []float64, u float64) int {
	i := sort.Search(len(cdf), func(i int) bool { return cdf[i] > u })
	if i >= len(cdf) {
		i = len(cdf) - 1
	}
	return i
}
