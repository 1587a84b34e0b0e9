package ga

import (
	"fmt"
	"math"
	"sync"
)

// CostFunc is the user-supplied objective. It receives a member's parameter
// values and the opaque args passed at population construction, and returns a
// scalar cost (lower is better). Implementations must not mutate values and
// must treat args as read-only; both guarantees are required for parallel
// evaluation and reproducibility.
type CostFunc func(values map[string]float64, args any) (float64, error)

// Evaluator scores a batch of members, setting cost and fitness on each.
// Evaluation of distinct members is independent and order-insensitive.
// A failed evaluation aborts the whole batch with an *EvaluationError.
type Evaluator interface {
	Evaluate(members []*Member) error
}

// NewEvaluator returns a serial evaluator for workers <= 1 and a fixed-size
// worker-pool evaluator otherwise.
func NewEvaluator(costFn CostFunc, args any, workers int) Evaluator {
	if workers <= 1 {
		return &SerialEvaluator{CostFn: costFn, Args: args}
	}
	return &PoolEvaluator{CostFn: costFn, Args: args, Workers: workers}
}

// SerialEvaluator evaluates members one at a time, in order.
type SerialEvaluator struct {
	CostFn CostFunc
	Args   any
}

func (e *SerialEvaluator) Evaluate(members []*Member) error {
	for _, m := range members {
		if err := evalMember(e.CostFn, e.Args, m); err != nil {
			return err
		}
	}
	return nil
}

// PoolEvaluator distributes a batch across a fixed-size pool of goroutines.
// Each worker writes results at the member's original index, so the batch
// order is preserved regardless of completion order. Workers share no mutable
// state beyond the per-index result slots.
type PoolEvaluator struct {
	CostFn  CostFunc
	Args    any
	Workers int
}

func (e *PoolEvaluator) Evaluate(members []*Member) error {
	jobs := make(chan int, len(members))
	errs := make([]error, len(members))

	var wg sync.WaitGroup
	for w := 0; w < e.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				errs[idx] = evalMember(e.CostFn, e.Args, members[idx])
			}
		}()
	}

	for i := range members {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Report the lowest-index failure for determinism.
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func evalMember(costFn CostFunc, args any, m *Member) error {
	cost, err := costFn(m.Values, args)
	if err != nil {
		return &EvaluationError{Values: cloneValues(m.Values), Err: err}
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return &EvaluationError{
			Values: cloneValues(m.Values),
			Err:    fmt.Errorf("cost function returned non-finite value %v", cost),
		}
	}
	m.setCost(cost)
	return nil
}
