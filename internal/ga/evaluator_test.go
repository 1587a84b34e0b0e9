package ga

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func sumCost(values map[string]float64, _ any) (float64, error) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum, nil
}

func makeMembers(n int) []*Member {
	members := make([]*Member, n)
	for i := range members {
		members[i] = &Member{Values: map[string]float64{"x": float64(i)}}
	}
	return members
}

func TestSerialEvaluator(t *testing.T) {
	e := &SerialEvaluator{CostFn: sumCost}
	members := makeMembers(5)

	if err := e.Evaluate(members); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	for i, m := range members {
		if !m.Evaluated {
			t.Fatalf("Member %d not marked evaluated", i)
		}
		if m.Cost != float64(i) {
			t.Errorf("Member %d cost = %f, want %d", i, m.Cost, i)
		}
		if m.Fitness != FitnessOf(m.Cost) {
			t.Errorf("Member %d fitness inconsistent with cost", i)
		}
	}
}

func TestPoolEvaluatorPreservesOrder(t *testing.T) {
	e := &PoolEvaluator{CostFn: sumCost, Workers: 4}
	members := makeMembers(100)

	if err := e.Evaluate(members); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// Each member's cost must match its own values regardless of which
	// worker scored it or in what order results completed.
	for i, m := range members {
		if m.Cost != float64(i) {
			t.Errorf("Member %d cost = %f, want %d", i, m.Cost, i)
		}
	}
}

func TestEvaluatorPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(values map[string]float64, _ any) (float64, error) {
		if values["x"] == 7 {
			return 0, boom
		}
		return values["x"], nil
	}

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			e := NewEvaluator(failing, nil, workers)
			members := makeMembers(10)

			err := e.Evaluate(members)
			if err == nil {
				t.Fatal("Expected evaluation error")
			}

			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("Expected *EvaluationError, got %T", err)
			}
			if evalErr.Values["x"] != 7 {
				t.Errorf("Error payload values = %v, want x=7", evalErr.Values)
			}
			if !errors.Is(err, boom) {
				t.Error("EvaluationError should wrap the cost function error")
			}
		})
	}
}

func TestEvaluatorRejectsNonFinite(t *testing.T) {
	nanCost := func(values map[string]float64, _ any) (float64, error) {
		return math.NaN(), nil
	}

	e := NewEvaluator(nanCost, nil, 1)
	err := e.Evaluate(makeMembers(1))

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Expected *EvaluationError for NaN cost, got %v", err)
	}
}

func TestEvaluatorPassesArgs(t *testing.T) {
	type scale struct{ factor float64 }

	scaled := func(values map[string]float64, args any) (float64, error) {
		s, ok := args.(*scale)
		if !ok {
			return 0, errors.New("missing args")
		}
		return values["x"] * s.factor, nil
	}

	e := NewEvaluator(scaled, &scale{factor: 3}, 1)
	members := makeMembers(2)
	if err := e.Evaluate(members); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if members[1].Cost != 3 {
		t.Errorf("Cost with args = %f, want 3", members[1].Cost)
	}
}

func TestNewEvaluatorPicksImplementation(t *testing.T) {
	if _, ok := NewEvaluator(sumCost, nil, 1).(*SerialEvaluator); !ok {
		t.Error("workers=1 should build a SerialEvaluator")
	}
	if _, ok := NewEvaluator(sumCost, nil, 8).(*PoolEvaluator); !ok {
		t.Error("workers=8 should build a PoolEvaluator")
	}
}
