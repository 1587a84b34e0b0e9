// Package ga implements a generational evolutionary search over named
// numeric parameters. A Population owns the parameter definitions, the
// current member set, a fitness evaluator and a selection strategy, and
// advances strictly generation by generation: a new generation is fully
// built and fully scored before it atomically replaces the old one.
package ga

import (
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Default evolution rates, matching DefaultEvolveParams.
const (
	DefaultPCrossover   = 0.5
	DefaultPMutation    = 0.01
	DefaultMaxMutAmount = 0.2
	DefaultLogBase      = 10.0
)

// mateAttempts bounds the search for a crossover partner distinct from the
// first parent. With a sharply concentrated selection distribution the same
// member can be drawn repeatedly; after this many draws the step falls back
// to mutation-only carry-forward.
const mateAttempts = 16

// Config configures a new Population.
type Config struct {
	// Size is the number of members per generation. Must be at least 2.
	Size int

	// CostFn is the objective to minimize. Required unless Evaluator is set.
	CostFn CostFunc

	// CostArgs is passed unchanged to every CostFn invocation. Treated as
	// read-only shared state across workers.
	CostArgs any

	// Workers sets the evaluation parallelism. Values below 1 mean serial.
	Workers int

	// Seed seeds the random source. Zero picks a time-based seed, making the
	// run non-deterministic.
	Seed int64

	// Selector overrides the default rank-based strategy.
	Selector Selector

	// Evaluator overrides the evaluator built from CostFn/CostArgs/Workers.
	Evaluator Evaluator
}

// EvolveParams are the per-step evolution rates for NextGeneration.
type EvolveParams struct {
	// PCrossover is the probability of recombination versus mutation-only
	// carry-forward for each selected parent.
	PCrossover float64

	// PMutation is the per-gene mutation probability.
	PMutation float64

	// MaxMutAmount is the largest fractional change of a parameter's range
	// applied per mutation event.
	MaxMutAmount float64

	// LogBase is forwarded to the default rank selector. Must be at least 1;
	// zero falls back to the selector's own base. Ignored when a custom
	// selector is installed.
	LogBase float64
}

// DefaultEvolveParams returns the standard rates: 50% crossover, 1% per-gene
// mutation, mutation steps up to 20% of a parameter's range, log base 10.
func DefaultEvolveParams() EvolveParams {
	return EvolveParams{
		PCrossover:   DefaultPCrossover,
		PMutation:    DefaultPMutation,
		MaxMutAmount: DefaultMaxMutAmount,
		LogBase:      DefaultLogBase,
	}
}

// Stats summarizes the current generation.
type Stats struct {
	MeanCost      float64
	MedianCost    float64
	MeanFitness   float64
	MedianFitness float64
}

// Population drives the evolutionary loop.
type Population struct {
	params    []*Parameter
	names     map[string]struct{}
	size      int
	evaluator Evaluator
	selector  Selector
	rng       *rand.Rand

	members     []*Member
	generation  int
	initialized bool
	best        *Member
}

// New validates cfg and constructs an empty population. Parameters must be
// registered with AddParam/AddIntParam before Generate is called.
func New(cfg Config) (*Population, error) {
	if cfg.Size < 2 {
		return nil, &ConfigError{Field: "Size", Reason: "must be at least 2"}
	}
	if cfg.CostFn == nil && cfg.Evaluator == nil {
		return nil, &ConfigError{Field: "CostFn", Reason: "cannot be nil"}
	}

	evaluator := cfg.Evaluator
	if evaluator == nil {
		workers := cfg.Workers
		if workers < 1 {
			workers = 1
		}
		evaluator = NewEvaluator(cfg.CostFn, cfg.CostArgs, workers)
	}

	selector := cfg.Selector
	if selector == nil {
		selector = &RankSelector{LogBase: DefaultLogBase}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Population{
		params:    []*Parameter{},
		names:     make(map[string]struct{}),
		size:      cfg.Size,
		evaluator: evaluator,
		selector:  selector,
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// AddParam registers a real-valued parameter whose mutations are clipped to
// [min, max].
func (p *Population) AddParam(name string, min, max float64) error {
	return p.addParam(name, min, max, false, true)
}

// AddParamRestricted registers a real-valued parameter. With restrict false,
// mutation may push the value outside [min, max].
func (p *Population) AddParamRestricted(name string, min, max float64, restrict bool) error {
	return p.addParam(name, min, max, false, restrict)
}

// AddIntParam registers an integer parameter whose mutations are clipped to
// [min, max]. Values stay on the integer lattice through sampling and
// mutation.
func (p *Population) AddIntParam(name string, min, max int) error {
	return p.addParam(name, float64(min), float64(max), true, true)
}

// AddIntParamRestricted registers an integer parameter with an explicit
// restrict flag.
func (p *Population) AddIntParamRestricted(name string, min, max int, restrict bool) error {
	return p.addParam(name, float64(min), float64(max), true, restrict)
}

func (p *Population) addParam(name string, min, max float64, integer, restrict bool) error {
	if p.initialized {
		return &ConfigError{Field: "parameters", Reason: "cannot be added after Generate"}
	}
	if name == "" {
		return &ConfigError{Field: "name", Reason: "cannot be empty"}
	}
	if _, exists := p.names[name]; exists {
		return &ConfigError{Field: "name", Reason: "duplicate parameter " + name}
	}
	if min > max {
		return &ConfigError{Field: "range", Reason: "min cannot exceed max for " + name}
	}

	p.names[name] = struct{}{}
	p.params = append(p.params, &Parameter{
		Name:     name,
		Min:      min,
		Max:      max,
		Integer:  integer,
		Restrict: restrict,
	})
	return nil
}

// Generate creates the initial generation: Size members with each parameter
// sampled uniformly at random from its range, all fully evaluated before the
// population is considered live. Calling Generate on an initialized
// population restarts the run, resetting the generation counter and the
// best-ever record.
func (p *Population) Generate() error {
	if len(p.params) == 0 {
		return &ConfigError{Field: "parameters", Reason: "none registered"}
	}

	next := make([]*Member, p.size)
	for i := range next {
		values := make(map[string]float64, len(p.params))
		for _, param := range p.params {
			values[param.Name] = param.randValue(p.rng)
		}
		next[i] = &Member{Values: values}
	}

	if err := p.evaluator.Evaluate(next); err != nil {
		return err
	}

	p.members = next
	p.generation = 0
	p.initialized = true
	p.best = nil
	p.updateBest()
	return nil
}

// GenerateAround restarts the run like Generate, but samples members near
// center instead of uniformly: each gene is the center value perturbed by a
// uniform amount within spread times the parameter's range. Integer
// parameters stay on the lattice and restricted parameters are clipped. The
// first member carries center verbatim, so the best-ever record starts no
// worse than the seeding values. Used to continue a run from previously
// found best values.
func (p *Population) GenerateAround(center map[string]float64, spread float64) error {
	if len(p.params) == 0 {
		return &ConfigError{Field: "parameters", Reason: "none registered"}
	}
	if spread < 0 {
		return &ConfigError{Field: "spread", Reason: "cannot be negative"}
	}
	for _, param := range p.params {
		if _, ok := center[param.Name]; !ok {
			return &ConfigError{Field: "center", Reason: "missing value for " + param.Name}
		}
	}

	next := make([]*Member, p.size)

	seed := make(map[string]float64, len(p.params))
	for _, param := range p.params {
		seed[param.Name] = center[param.Name]
	}
	next[0] = &Member{Values: seed}

	for i := 1; i < p.size; i++ {
		values := make(map[string]float64, len(p.params))
		for _, param := range p.params {
			values[param.Name] = param.mutateValue(center[param.Name], spread, p.rng)
		}
		next[i] = &Member{Values: values}
	}

	if err := p.evaluator.Evaluate(next); err != nil {
		return err
	}

	p.members = next
	p.generation = 0
	p.initialized = true
	p.best = nil
	p.updateBest()
	return nil
}

// NextGeneration produces, evaluates and installs one new generation of
// exactly Size members. On evaluation failure the previous generation stays
// active and the generation counter does not advance.
func (p *Population) NextGeneration(ep EvolveParams) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	if ep.PCrossover < 0 || ep.PCrossover > 1 {
		return &ConfigError{Field: "PCrossover", Reason: "must be within [0, 1]"}
	}
	if ep.PMutation < 0 || ep.PMutation > 1 {
		return &ConfigError{Field: "PMutation", Reason: "must be within [0, 1]"}
	}
	if ep.MaxMutAmount < 0 {
		return &ConfigError{Field: "MaxMutAmount", Reason: "cannot be negative"}
	}
	if ep.LogBase > 0 && ep.LogBase < 1 {
		return &ConfigError{Field: "LogBase", Reason: "must be at least 1"}
	}

	selector := p.selector
	if rs, ok := selector.(*RankSelector); ok {
		logBase := ep.LogBase
		if logBase <= 0 {
			logBase = rs.LogBase
		}
		selector = &RankSelector{LogBase: logBase}
	}

	next := make([]*Member, 0, p.size)
	for len(next) < p.size {
		parents, err := selector.Select(p.members, 1, p.rng)
		if err != nil {
			return err
		}
		parent := parents[0]

		var mate *Member
		if len(p.params) > 1 && p.rng.Float64() < ep.PCrossover {
			mate = p.pickMate(selector, parent)
		}

		if mate != nil {
			childA, childB := p.crossover(parent, mate)
			p.mutate(childA, ep)
			p.mutate(childB, ep)
			next = append(next, childA)
			if len(next) < p.size {
				next = append(next, childB)
			}
		} else {
			child := &Member{Values: cloneValues(parent.Values)}
			p.mutate(child, ep)
			next = append(next, child)
		}
	}

	if err := p.evaluator.Evaluate(next); err != nil {
		return err
	}

	p.members = next
	p.generation++
	p.updateBest()
	return nil
}

// pickMate draws a second parent distinct from parent, or nil if the
// selection distribution keeps returning the same member.
func (p *Population) pickMate(selector Selector, parent *Member) *Member {
	for i := 0; i < mateAttempts; i++ {
		mates, err := selector.Select(p.members, 1, p.rng)
		if err != nil {
			return nil
		}
		if mates[0] != parent {
			return mates[0]
		}
	}
	return nil
}

// crossover performs single-point recombination: a crossover index i is
// chosen uniformly from {1, ..., L-1} and the offspring are the two
// complementary splices of the parents' gene sequences.
func (p *Population) crossover(a, b *Member) (*Member, *Member) {
	cross := 1 + p.rng.Intn(len(p.params)-1)

	va := make(map[string]float64, len(p.params))
	vb := make(map[string]float64, len(p.params))
	for idx, param := range p.params {
		if idx < cross {
			va[param.Name] = a.Values[param.Name]
			vb[param.Name] = b.Values[param.Name]
		} else {
			va[param.Name] = b.Values[param.Name]
			vb[param.Name] = a.Values[param.Name]
		}
	}
	return &Member{Values: va}, &Member{Values: vb}
}

// mutate applies per-gene mutation to m in place, each gene independently
// with probability ep.PMutation.
func (p *Population) mutate(m *Member, ep EvolveParams) {
	for _, param := range p.params {
		if p.rng.Float64() < ep.PMutation {
			m.Values[param.Name] = param.mutateValue(m.Values[param.Name], ep.MaxMutAmount, p.rng)
		}
	}
}

func (p *Population) updateBest() {
	for _, m := range p.members {
		if p.best == nil || m.Fitness > p.best.Fitness {
			p.best = m.Clone()
		}
	}
}

// Size returns the configured number of members per generation.
func (p *Population) Size() int {
	return p.size
}

// Generation returns the number of completed NextGeneration steps since the
// last Generate.
func (p *Population) Generation() int {
	return p.generation
}

// Params returns copies of the registered parameter definitions in
// registration order.
func (p *Population) Params() []Parameter {
	out := make([]Parameter, len(p.params))
	for i, param := range p.params {
		out[i] = *param
	}
	return out
}

// Members returns deep copies of the current generation.
func (p *Population) Members() []*Member {
	out := make([]*Member, len(p.members))
	for i, m := range p.members {
		out[i] = m.Clone()
	}
	return out
}

// Best returns a copy of the best member seen across all generations since
// the last Generate, or nil before initialization. The record never
// regresses between generations.
func (p *Population) Best() *Member {
	if p.best == nil {
		return nil
	}
	return p.best.Clone()
}

// Stats computes mean and median cost and fitness over the current
// generation. Returns the zero value before initialization.
func (p *Population) Stats() Stats {
	if len(p.members) == 0 {
		return Stats{}
	}

	costs := make([]float64, len(p.members))
	fits := make([]float64, len(p.members))
	for i, m := range p.members {
		costs[i] = m.Cost
		fits[i] = m.Fitness
	}
	sort.Float64s(costs)
	sort.Float64s(fits)

	return Stats{
		MeanCost:      stat.Mean(costs, nil),
		MedianCost:    stat.Quantile(0.5, stat.Empirical, costs, nil),
		MeanFitness:   stat.Mean(fits, nil),
		MedianFitness: stat.Quantile(0.5, stat.Empirical, fits, nil),
	}
}
