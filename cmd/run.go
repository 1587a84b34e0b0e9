package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/genetune/internal/bench"
	"github.com/cwbudde/genetune/internal/config"
	"github.com/cwbudde/genetune/internal/ga"
	"github.com/cwbudde/genetune/internal/store"
)

var (
	configPath         string
	benchmarkName      string
	dims               int
	popSize            int
	generations        int
	workers            int
	seed               int64
	pCrossover         float64
	pMutation          float64
	maxMutAmount       float64
	logBase            float64
	dataDir            string
	checkpointInterval int
	saveConfigPath     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Runs a genetic algorithm against a named benchmark and writes the
per-generation trace, history CSV and final checkpoint under the data
directory. Flags override values from --config.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run configuration file")
	runCmd.Flags().StringVar(&benchmarkName, "benchmark", "", "Benchmark cost function (see 'genetune benchmarks')")
	runCmd.Flags().IntVar(&dims, "dims", 0, "Number of parameters")
	runCmd.Flags().IntVar(&popSize, "pop", 0, "Population size")
	runCmd.Flags().IntVar(&generations, "generations", 0, "Number of generations")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Parallel evaluation workers (0 = serial)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")
	runCmd.Flags().Float64Var(&pCrossover, "p-crossover", 0, "Crossover probability")
	runCmd.Flags().Float64Var(&pMutation, "p-mutation", 0, "Per-gene mutation probability")
	runCmd.Flags().Float64Var(&maxMutAmount, "max-mut-amount", 0, "Largest mutation as a fraction of parameter range")
	runCmd.Flags().Float64Var(&logBase, "log-base", 0, "Rank selection log base")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run artifacts")
	runCmd.Flags().IntVar(&checkpointInterval, "checkpoint-interval", 0, "Seconds between checkpoints (0 = final only)")
	runCmd.Flags().StringVar(&saveConfigPath, "save-config", "", "Write the effective configuration to this YAML file")

	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg.Run)

	if saveConfigPath != "" {
		if err := cfg.WriteYAML(saveConfigPath); err != nil {
			return err
		}
	}

	st, err := store.NewFSStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	jobID := uuid.New().String()
	result, err := executeRun(cfg.Run, jobID, st, dataDir, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s finished: best cost %.6f after %d generations (%.1f gen/sec)\n",
		jobID, result.bestCost, result.generation, result.gps)
	fmt.Printf("Best values: %v\n", result.bestValues)
	fmt.Printf("Artifacts under %s\n", st.JobDir(jobID))

	return nil
}

// applyRunFlags overrides cfg with any flags the user set explicitly, so a
// config file and command line flags compose.
func applyRunFlags(cmd *cobra.Command, cfg *store.RunConfig) {
	if cmd.Flags().Changed("benchmark") {
		cfg.Benchmark = benchmarkName
	}
	if cmd.Flags().Changed("dims") {
		cfg.Dims = dims
	}
	if cmd.Flags().Changed("pop") {
		cfg.PopSize = popSize
	}
	if cmd.Flags().Changed("generations") {
		cfg.Generations = generations
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("p-crossover") {
		cfg.PCrossover = pCrossover
	}
	if cmd.Flags().Changed("p-mutation") {
		cfg.PMutation = pMutation
	}
	if cmd.Flags().Changed("max-mut-amount") {
		cfg.MaxMutAmount = maxMutAmount
	}
	if cmd.Flags().Changed("log-base") {
		cfg.LogBase = logBase
	}
	if cmd.Flags().Changed("checkpoint-interval") {
		cfg.CheckpointInterval = checkpointInterval
	}
}

// runResult summarizes a finished local run.
type runResult struct {
	bestValues map[string]float64
	bestCost   float64
	generation int
	gps        float64
}

// resumeSpread matches the server's scatter around checkpointed best values.
const resumeSpread = 0.1

// executeRun drives the generational loop for a local run, writing trace,
// history and checkpoints as it goes. With a non-nil resume checkpoint the
// population starts seeded around the saved best values and the generation
// count continues from the checkpoint.
func executeRun(cfg store.RunConfig, jobID string, st *store.FSStore, baseDir string, resume *store.Checkpoint) (*runResult, error) {
	bm, ok := bench.Lookup(cfg.Benchmark)
	if !ok {
		return nil, fmt.Errorf("unknown benchmark: %s (available: %v)", cfg.Benchmark, bench.Names())
	}

	if resume != nil {
		if err := resume.IsCompatible(cfg); err != nil {
			return nil, fmt.Errorf("cannot resume job %s: %w", jobID, err)
		}
	}

	pop, err := ga.New(ga.Config{
		Size:    cfg.PopSize,
		CostFn:  bm.Fn,
		Workers: cfg.Workers,
		Seed:    cfg.Seed,
	})
	if err != nil {
		return nil, err
	}
	if err := bm.AddParams(pop, cfg.Dims); err != nil {
		return nil, err
	}

	traceWriter, err := store.NewTraceWriter(baseDir, jobID, resume != nil)
	if err != nil {
		return nil, err
	}
	defer traceWriter.Close()

	historyWriter, err := store.NewHistoryWriter(baseDir, jobID, resume != nil)
	if err != nil {
		return nil, err
	}
	defer historyWriter.Close()

	slog.Info("Starting run",
		"job_id", jobID,
		"benchmark", cfg.Benchmark,
		"dims", cfg.Dims,
		"pop_size", cfg.PopSize,
		"generations", cfg.Generations,
		"workers", cfg.Workers,
		"resumed", resume != nil,
	)

	start := time.Now()

	if resume != nil {
		err = pop.GenerateAround(resume.BestValues, resumeSpread)
	} else {
		err = pop.Generate()
	}
	if err != nil {
		return nil, err
	}

	genOffset := 0
	if resume != nil {
		genOffset = resume.Generation
	}

	record := func() error {
		best := pop.Best()
		stats := pop.Stats()
		generation := genOffset + pop.Generation()

		if err := traceWriter.Write(store.TraceEntry{
			Generation: generation,
			BestCost:   best.Cost,
			MeanCost:   stats.MeanCost,
			MedianCost: stats.MedianCost,
			Timestamp:  time.Now(),
			BestValues: best.Values,
		}); err != nil {
			return err
		}
		return historyWriter.Write(store.GenerationStats{
			Generation:    generation,
			BestCost:      best.Cost,
			BestFitness:   best.Fitness,
			MeanCost:      stats.MeanCost,
			MedianCost:    stats.MedianCost,
			MeanFitness:   stats.MeanFitness,
			MedianFitness: stats.MedianFitness,
			ElapsedSec:    time.Since(start).Seconds(),
		})
	}

	if err := record(); err != nil {
		return nil, err
	}

	ep := ga.EvolveParams{
		PCrossover:   cfg.PCrossover,
		PMutation:    cfg.PMutation,
		MaxMutAmount: cfg.MaxMutAmount,
		LogBase:      cfg.LogBase,
	}

	interval := time.Duration(cfg.CheckpointInterval) * time.Second
	lastCheckpoint := time.Now()

	for gen := 1; gen <= cfg.Generations; gen++ {
		if err := pop.NextGeneration(ep); err != nil {
			return nil, err
		}
		if err := record(); err != nil {
			return nil, err
		}

		if interval > 0 && time.Since(lastCheckpoint) >= interval {
			if err := saveRunCheckpoint(st, jobID, cfg, pop, genOffset); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
			lastCheckpoint = time.Now()
		}
	}

	if err := saveRunCheckpoint(st, jobID, cfg, pop, genOffset); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	best := pop.Best()

	slog.Info("Run complete",
		"job_id", jobID,
		"elapsed", elapsed,
		"best_cost", best.Cost,
		"generations", cfg.Generations,
	)

	var gps float64
	if elapsed.Seconds() > 0 {
		gps = float64(cfg.Generations) / elapsed.Seconds()
	}

	return &runResult{
		bestValues: best.Values,
		bestCost:   best.Cost,
		generation: genOffset + pop.Generation(),
		gps:        gps,
	}, nil
}

func saveRunCheckpoint(st *store.FSStore, jobID string, cfg store.RunConfig, pop *ga.Population, genOffset int) error {
	best := pop.Best()
	checkpoint := store.NewCheckpoint(
		jobID,
		best.Values,
		best.Cost,
		best.Fitness,
		genOffset+pop.Generation(),
		cfg,
	)
	return st.SaveCheckpoint(jobID, checkpoint)
}
