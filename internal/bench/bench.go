// Package bench provides named benchmark cost functions for exercising the
// evolutionary engine from the CLI, the server and end-to-end tests. Each
// benchmark operates over parameters named x0..x(n-1) and is stated as a
// minimization with optimum cost 0 at the conventional optimum point.
package bench

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/genetune/internal/ga"
)

// Benchmark couples a cost function with its conventional search domain.
type Benchmark struct {
	Name string
	Fn   ga.CostFunc

	// Min and Max bound every dimension of the conventional search domain.
	Min float64
	Max float64

	// Integer marks benchmarks defined over the integer lattice.
	Integer bool
}

var benchmarks = map[string]Benchmark{
	"sphere":     {Name: "sphere", Fn: Sphere, Min: -5.12, Max: 5.12},
	"rastrigin":  {Name: "rastrigin", Fn: Rastrigin, Min: -5.12, Max: 5.12},
	"rosenbrock": {Name: "rosenbrock", Fn: Rosenbrock, Min: -5, Max: 10},
	"ackley":     {Name: "ackley", Fn: Ackley, Min: -32.768, Max: 32.768},
	"sum":        {Name: "sum", Fn: Sum, Min: 0, Max: 10, Integer: true},
}

// Lookup returns the benchmark registered under name.
func Lookup(name string) (Benchmark, bool) {
	b, ok := benchmarks[name]
	return b, ok
}

// Names returns the registered benchmark names, sorted.
func Names() []string {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParamName returns the conventional name of dimension i.
func ParamName(i int) string {
	return fmt.Sprintf("x%d", i)
}

// AddParams registers dims parameters named x0..x(dims-1) on p, bounded to
// the benchmark's search domain.
func (b Benchmark) AddParams(p *ga.Population, dims int) error {
	for i := 0; i < dims; i++ {
		var err error
		if b.Integer {
			err = p.AddIntParam(ParamName(i), int(b.Min), int(b.Max))
		} else {
			err = p.AddParam(ParamName(i), b.Min, b.Max)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// genes extracts the value vector in dimension order.
func genes(values map[string]float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = values[ParamName(i)]
	}
	return out
}

// Sum is the simplest benchmark: the cost is the plain sum of all values.
// With non-negative bounds the optimum sits at the lower bound of every
// dimension.
func Sum(values map[string]float64, _ any) (float64, error) {
	var sum float64
	for _, v := range genes(values) {
		sum += v
	}
	return sum, nil
}

// Sphere is sum(x_i^2), optimum 0 at the origin.
func Sphere(values map[string]float64, _ any) (float64, error) {
	var sum float64
	for _, v := range genes(values) {
		sum += v * v
	}
	return sum, nil
}

// Rastrigin is the highly multimodal 10n + sum(x_i^2 - 10 cos(2 pi x_i)),
// optimum 0 at the origin.
func Rastrigin(values map[string]float64, _ any) (float64, error) {
	gs := genes(values)
	sum := 10 * float64(len(gs))
	for _, v := range gs {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Rosenbrock is the banana valley sum(100 (x_{i+1} - x_i^2)^2 + (1 - x_i)^2),
// optimum 0 at (1, ..., 1).
func Rosenbrock(values map[string]float64, _ any) (float64, error) {
	gs := genes(values)
	var sum float64
	for i := 0; i < len(gs)-1; i++ {
		a, b := gs[i], gs[i+1]
		sum += 100*(b-a*a)*(b-a*a) + (1-a)*(1-a)
	}
	return sum, nil
}

// Ackley is the exponential well benchmark, optimum 0 at the origin.
func Ackley(values map[string]float64, _ any) (float64, error) {
	gs := genes(values)
	n := float64(len(gs))
	var sumSq, sumCos float64
	for _, v := range gs {
		sumSq += v * v
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E, nil
}
