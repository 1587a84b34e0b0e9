package store

import (
	"strconv"
	"time"
)

// RunConfig holds the configuration of one optimization run. It is the
// checkpoint copy of the server's job configuration; keeping it here avoids
// an import cycle with the server package. Fields carry both JSON tags (for
// checkpoints and the HTTP API) and YAML tags (for run config files).
type RunConfig struct {
	Benchmark    string  `json:"benchmark" yaml:"benchmark"`
	Dims         int     `json:"dims" yaml:"dims"`
	PopSize      int     `json:"popSize" yaml:"pop_size"`
	Generations  int     `json:"generations" yaml:"generations"`
	Workers      int     `json:"workers" yaml:"workers"`
	Seed         int64   `json:"seed" yaml:"seed"`
	PCrossover   float64 `json:"pCrossover" yaml:"p_crossover"`
	PMutation    float64 `json:"pMutation" yaml:"p_mutation"`
	MaxMutAmount float64 `json:"maxMutAmount" yaml:"max_mut_amount"`
	LogBase      float64 `json:"logBase" yaml:"log_base"`

	// CheckpointInterval saves a checkpoint every N seconds (0 = disabled).
	CheckpointInterval int `json:"checkpointInterval,omitempty" yaml:"checkpoint_interval"`
}

// Checkpoint is the persistable state of an optimization run.
//
// The checkpoint records the best parameter values found so far, not the full
// member set: serializing a whole generation would tie the format to engine
// internals for little benefit. A resumed run starts from a fresh random
// population seeded around the saved best values, so the best cost never
// regresses but convergence is not a bit-exact continuation.
type Checkpoint struct {
	// JobID is the unique identifier of the run this checkpoint belongs to.
	JobID string `json:"jobId"`

	// BestValues maps parameter name to the best value found so far.
	BestValues map[string]float64 `json:"bestValues"`

	// BestCost is the cost achieved by BestValues.
	BestCost float64 `json:"bestCost"`

	// BestFitness is the fitness derived from BestCost.
	BestFitness float64 `json:"bestFitness"`

	// Generation is the number of completed generations at checkpoint time.
	Generation int `json:"generation"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config is the run configuration, needed to validate resume
	// compatibility.
	Config RunConfig `json:"config"`
}

// CheckpointInfo is checkpoint metadata without the parameter payload, used
// for listing without loading full checkpoints.
type CheckpointInfo struct {
	JobID      string    `json:"jobId"`
	BestCost   float64   `json:"bestCost"`
	Generation int       `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	Benchmark  string    `json:"benchmark"`
	Dims       int       `json:"dims"`
	PopSize    int       `json:"popSize"`
}

// NewCheckpoint builds a checkpoint from run state.
func NewCheckpoint(jobID string, bestValues map[string]float64, bestCost, bestFitness float64, generation int, config RunConfig) *Checkpoint {
	return &Checkpoint{
		JobID:       jobID,
		BestValues:  bestValues,
		BestCost:    bestCost,
		BestFitness: bestFitness,
		Generation:  generation,
		Timestamp:   time.Now(),
		Config:      config,
	}
}

// ToInfo converts a full checkpoint to its metadata-only form.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:      c.JobID,
		BestCost:   c.BestCost,
		Generation: c.Generation,
		Timestamp:  c.Timestamp,
		Benchmark:  c.Config.Benchmark,
		Dims:       c.Config.Dims,
		PopSize:    c.Config.PopSize,
	}
}

// Validate checks that the checkpoint holds a consistent, resumable state.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.BestValues) == 0 {
		return &ValidationError{Field: "BestValues", Reason: "cannot be empty"}
	}
	if c.Generation < 0 {
		return &ValidationError{Field: "Generation", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.Benchmark == "" {
		return &ValidationError{Field: "Config.Benchmark", Reason: "cannot be empty"}
	}
	if c.Config.Dims <= 0 {
		return &ValidationError{Field: "Config.Dims", Reason: "must be positive"}
	}
	if c.Config.PopSize < 2 {
		return &ValidationError{Field: "Config.PopSize", Reason: "must be at least 2"}
	}
	if c.Config.Generations <= 0 {
		return &ValidationError{Field: "Config.Generations", Reason: "must be positive"}
	}
	if len(c.BestValues) != c.Config.Dims {
		return &ValidationError{Field: "BestValues", Reason: "length does not match Config.Dims"}
	}
	return nil
}

// ValidationError reports an inconsistent checkpoint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether this checkpoint can be resumed under the given
// configuration. The search space must be unchanged; rates and worker counts
// may differ.
func (c *Checkpoint) IsCompatible(config RunConfig) error {
	if c.Config.Benchmark != config.Benchmark {
		return &CompatibilityError{Field: "Benchmark", Expected: c.Config.Benchmark, Actual: config.Benchmark}
	}
	if c.Config.Dims != config.Dims {
		return &CompatibilityError{
			Field:    "Dims",
			Expected: strconv.Itoa(c.Config.Dims),
			Actual:   strconv.Itoa(config.Dims),
		}
	}
	if c.Config.PopSize != config.PopSize {
		return &CompatibilityError{
			Field:    "PopSize",
			Expected: strconv.Itoa(c.Config.PopSize),
			Actual:   strconv.Itoa(config.PopSize),
		}
	}
	return nil
}

// CompatibilityError reports a checkpoint/config mismatch.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
