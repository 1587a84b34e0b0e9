package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/genetune/internal/bench"
	"github.com/cwbudde/genetune/internal/ga"
	"github.com/cwbudde/genetune/internal/store"
)

// resumeSpread is the fraction of each parameter's range used to scatter the
// initial population around the checkpointed best values on resume.
const resumeSpread = 0.1

// runJob executes an optimization job in the background. The generational
// loop checks ctx between generations; a cost function stuck mid-generation
// still blocks until the generation finishes. If resume is not nil the
// population is seeded around the checkpointed best values instead of
// uniformly at random.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, baseDir, jobID string, resume *store.Checkpoint) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "benchmark", cfg.Benchmark, "dims", cfg.Dims, "resumed", resume != nil)

	bm, ok := bench.Lookup(cfg.Benchmark)
	if !ok {
		err := fmt.Errorf("unknown benchmark: %s", cfg.Benchmark)
		markJobFailed(jm, jobID, err)
		return err
	}

	if resume != nil {
		if err := resume.IsCompatible(cfg); err != nil {
			markJobFailed(jm, jobID, err)
			return err
		}
	}

	pop, err := buildPopulation(cfg, bm)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Set up output writers. Resumed runs continue the existing files.
	traceWriter, err := store.NewTraceWriter(baseDir, jobID, resume != nil)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	defer traceWriter.Close()

	historyWriter, err := store.NewHistoryWriter(baseDir, jobID, resume != nil)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	defer historyWriter.Close()

	start := time.Now()

	if resume != nil {
		err = pop.GenerateAround(resume.BestValues, resumeSpread)
	} else {
		err = pop.Generate()
	}
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	genOffset := 0
	if resume != nil {
		genOffset = resume.Generation
	}

	recordProgress(jm, traceWriter, historyWriter, jobID, pop, genOffset, start)

	ep := ga.EvolveParams{
		PCrossover:   cfg.PCrossover,
		PMutation:    cfg.PMutation,
		MaxMutAmount: cfg.MaxMutAmount,
		LogBase:      cfg.LogBase,
	}

	checkpointInterval := time.Duration(cfg.CheckpointInterval) * time.Second
	lastCheckpoint := time.Now()

	for gen := 1; gen <= cfg.Generations; gen++ {
		select {
		case <-ctx.Done():
			markJobCancelled(jm, jobID)
			broadcastState(jm, jobID, StateCancelled, start)
			return ctx.Err()
		default:
		}

		if err := pop.NextGeneration(ep); err != nil {
			markJobFailed(jm, jobID, err)
			broadcastState(jm, jobID, StateFailed, start)
			return err
		}

		recordProgress(jm, traceWriter, historyWriter, jobID, pop, genOffset, start)

		if checkpointStore != nil && checkpointInterval > 0 && time.Since(lastCheckpoint) >= checkpointInterval {
			if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
			lastCheckpoint = time.Now()
		}
	}

	elapsed := time.Since(start)

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	// Final checkpoint so the run can be inspected and resumed later.
	if checkpointStore != nil {
		if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
			slog.Error("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	best := pop.Best()
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"generations", cfg.Generations,
		"best_cost", best.Cost,
	)

	broadcastState(jm, jobID, StateCompleted, start)
	return nil
}

// buildPopulation constructs a population for the benchmark described by cfg.
func buildPopulation(cfg JobConfig, bm bench.Benchmark) (*ga.Population, error) {
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
	return pop, nil
}

// recordProgress updates the job record, appends trace and history rows and
// broadcasts a progress event for the population's current generation.
func recordProgress(jm *JobManager, tw *store.TraceWriter, hw *store.HistoryWriter, jobID string, pop *ga.Population, genOffset int, start time.Time) {
	best := pop.Best()
	stats := pop.Stats()
	generation := genOffset + pop.Generation()
	elapsed := time.Since(start).Seconds()

	jm.UpdateJob(jobID, func(j *Job) {
		j.BestValues = best.Values
		j.BestCost = best.Cost
		j.BestFitness = best.Fitness
		j.Generation = generation
	})

	if err := tw.Write(store.TraceEntry{
		Generation: generation,
		BestCost:   best.Cost,
		MeanCost:   stats.MeanCost,
		MedianCost: stats.MedianCost,
		Timestamp:  time.Now(),
		BestValues: best.Values,
	}); err != nil {
		slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
	}

	if err := hw.Write(store.GenerationStats{
		Generation:    generation,
		BestCost:      best.Cost,
		BestFitness:   best.Fitness,
		MeanCost:      stats.MeanCost,
		MedianCost:    stats.MedianCost,
		MeanFitness:   stats.MeanFitness,
		MedianFitness: stats.MedianFitness,
		ElapsedSec:    elapsed,
	}); err != nil {
		slog.Warn("Failed to write history row", "job_id", jobID, "error", err)
	}

	var gps float64
	if elapsed > 0 {
		gps = float64(pop.Generation()) / elapsed
	}

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateRunning,
		Generation: generation,
		BestCost:   best.Cost,
		MeanCost:   stats.MeanCost,
		GPS:        gps,
		Timestamp:  time.Now(),
	})
}

// broadcastState emits a terminal event reflecting the job's final record.
func broadcastState(jm *JobManager, jobID string, state JobState, start time.Time) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	elapsed := time.Since(start).Seconds()
	var gps float64
	if elapsed > 0 {
		gps = float64(job.Generation) / elapsed
	}

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      state,
		Generation: job.Generation,
		BestCost:   job.BestCost,
		GPS:        gps,
		Timestamp:  time.Now(),
	})
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// saveCheckpoint saves a checkpoint for the given job
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if len(job.BestValues) == 0 {
		slog.Debug("Skipping checkpoint, no best values yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		jobID,
		job.BestValues,
		job.BestCost,
		job.BestFitness,
		job.Generation,
		job.Config,
	)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Checkpoint saved",
		"job_id", jobID,
		"generation", job.Generation,
		"best_cost", job.BestCost,
	)

	return nil
}
