package ga

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func evaluatedMembers(costs ...float64) []*Member {
	members := make([]*Member, len(costs))
	for i, c := range costs {
		members[i] = &Member{Values: map[string]float64{"x": float64(i)}}
		members[i].setCost(c)
	}
	return members
}

func TestRankSelectorUniformAtLogBaseOne(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	members := evaluatedMembers(1, 2, 3, 4, 5)
	s := &RankSelector{LogBase: 1}

	const draws = 50000
	counts := make(map[*Member]int)
	out, err := s.Select(members, draws, rng)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, m := range out {
		counts[m]++
	}

	expected := float64(draws) / float64(len(members))
	for i, m := range members {
		freq := float64(counts[m])
		if math.Abs(freq-expected)/expected > 0.05 {
			t.Errorf("Member %d drawn %0.f times, expected about %0.f", i, freq, expected)
		}
	}
}

func TestRankSelectorConcentratesAtHighLogBase(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	members := evaluatedMembers(5, 1, 3, 2, 4) // member index 1 is best
	s := &RankSelector{LogBase: 1000}

	const draws = 10000
	best := 0
	out, err := s.Select(members, draws, rng)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, m := range out {
		if m == members[1] {
			best++
		}
	}

	if float64(best)/draws < 0.99 {
		t.Errorf("Best member drawn %d/%d times, expected near-total concentration", best, draws)
	}
}

func TestRankSelectorStableTieOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	// All fitness-equal: the stable sort must keep insertion order, so with
	// a huge log base the first-inserted member dominates selection.
	members := evaluatedMembers(2, 2, 2)
	s := &RankSelector{LogBase: 1e6}

	out, err := s.Select(members, 1000, rng)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	first := 0
	for _, m := range out {
		if m == members[0] {
			first++
		}
	}
	if float64(first)/1000 < 0.99 {
		t.Errorf("First-inserted member drawn %d/1000 times under ties", first)
	}
}

func TestRankSelectorRejectsUnevaluated(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	members := evaluatedMembers(1, 2)
	members = append(members, &Member{Values: map[string]float64{"x": 9}})

	s := &RankSelector{LogBase: 10}
	if _, err := s.Select(members, 1, rng); err == nil {
		t.Error("Selecting from unevaluated members should fail")
	}
}

func TestRankSelectorRejectsBadArgs(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	s := &RankSelector{LogBase: 10}

	if _, err := s.Select(evaluatedMembers(1), 0, rng); err == nil {
		t.Error("n=0 should fail")
	}
	if _, err := s.Select(nil, 1, rng); err == nil {
		t.Error("Empty member set should fail")
	}

	// A base below 1 would invert the ranking toward the worst members
	inverted := &RankSelector{LogBase: 0.5}
	var cfgErr *ConfigError
	if _, err := inverted.Select(evaluatedMembers(1, 2, 3), 1, rng); !errors.As(err, &cfgErr) {
		t.Errorf("LogBase below 1 should fail with *ConfigError, got %v", err)
	}
}

func TestRankSelectorLargePopulationNoOverflow(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	costs := make([]float64, 2000)
	for i := range costs {
		costs[i] = float64(i)
	}
	members := evaluatedMembers(costs...)

	s := &RankSelector{LogBase: 10}
	out, err := s.Select(members, 100, rng)
	if err != nil {
		t.Fatalf("Select failed on large population: %v", err)
	}
	if len(out) != 100 {
		t.Fatalf("Got %d selections, want 100", len(out))
	}
	// Weights decay geometrically, so everything should come from the very
	// top ranks.
	for _, m := range out {
		if m.Cost > 10 {
			t.Errorf("Selected member with cost %f despite sharp rank weights", m.Cost)
		}
	}
}

func TestSelectorFuncAdapter(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	members := evaluatedMembers(3, 1, 2)

	// Always pick the best member.
	bestOnly := SelectorFunc(func(ms []*Member, n int, _ *rand.Rand) ([]*Member, error) {
		best := ms[0]
		for _, m := range ms[1:] {
			if m.Fitness > best.Fitness {
				best = m
			}
		}
		out := make([]*Member, n)
		for i := range out {
			out[i] = best
		}
		return out, nil
	})

	out, err := bestOnly.Select(members, 4, rng)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	for _, m := range out {
		if m != members[1] {
			t.Error("Custom selector result not honored through the interface")
		}
	}
}
