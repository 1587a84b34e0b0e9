package server

import (
	"context"
	"testing"
	"time"

	"github.com/cwbudde/genetune/internal/store"
)

func newTestStore(t *testing.T, baseDir string) *store.FSStore {
	t.Helper()

	st, err := store.NewFSStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return st
}

func TestRunJob_Success(t *testing.T) {
	tmpDir := t.TempDir()
	jm := NewJobManager()
	config := JobConfig{
		Benchmark:    "sphere",
		Dims:         2,
		PopSize:      20,
		Generations:  10,
		Seed:         42,
		PCrossover:   0.5,
		PMutation:    0.05,
		MaxMutAmount: 0.2,
		LogBase:      10,
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, newTestStore(t, tmpDir), tmpDir, job.ID, nil)

	if err != nil {
		t.Errorf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}

	if updated.Generation != 10 {
		t.Errorf("Expected 10 generations, got %d", updated.Generation)
	}

	if len(updated.BestValues) != 2 {
		t.Errorf("Expected 2 best values, got %d", len(updated.BestValues))
	}

	if updated.BestFitness <= 0 {
		t.Error("BestFitness should be set")
	}

	// Trace and history files should exist for the completed run
	entries, err := readTrace(t, tmpDir, job.ID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 11 { // initial generation plus 10 steps
		t.Errorf("Expected 11 trace entries, got %d", len(entries))
	}

	rows, err := store.ReadHistory(tmpDir, job.ID)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(rows) != 11 {
		t.Errorf("Expected 11 history rows, got %d", len(rows))
	}
}

func readTrace(t *testing.T, baseDir, jobID string) ([]store.TraceEntry, error) {
	t.Helper()

	reader, err := store.NewTraceReader(baseDir, jobID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadAll()
}

func TestRunJob_UnknownBenchmark(t *testing.T) {
	tmpDir := t.TempDir()
	jm := NewJobManager()
	config := JobConfig{
		Benchmark:   "does-not-exist",
		Dims:        2,
		PopSize:     20,
		Generations: 10,
		Seed:        42,
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, nil, tmpDir, job.ID, nil)

	if err == nil {
		t.Error("runJob should fail with unknown benchmark")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}

	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	tmpDir := t.TempDir()
	jm := NewJobManager()
	config := JobConfig{
		Benchmark:   "rastrigin",
		Dims:        10,
		PopSize:     200,
		Generations: 100000, // Long-running job
		Seed:        42,
		PMutation:   0.05,
		PCrossover:  0.5,
	}

	job := jm.CreateJob(config)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- runJob(ctx, jm, nil, tmpDir, job.ID, nil)
	}()

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Cancel the job
	cancel()

	// Wait for completion
	err := <-done

	if err == nil {
		t.Error("runJob should return error when cancelled")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

func TestRunJob_FinalCheckpoint(t *testing.T) {
	tmpDir := t.TempDir()
	st := newTestStore(t, tmpDir)

	jm := NewJobManager()
	config := JobConfig{
		Benchmark:   "sphere",
		Dims:        2,
		PopSize:     10,
		Generations: 5,
		Seed:        7,
		PMutation:   0.05,
	}

	job := jm.CreateJob(config)

	if err := runJob(context.Background(), jm, st, tmpDir, job.ID, nil); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	checkpoint, err := st.LoadCheckpoint(job.ID)
	if err != nil {
		t.Fatalf("Expected final checkpoint: %v", err)
	}
	if checkpoint.Generation != 5 {
		t.Errorf("Checkpoint generation = %d, want 5", checkpoint.Generation)
	}
	if checkpoint.Config.Benchmark != "sphere" {
		t.Errorf("Checkpoint benchmark = %q, want sphere", checkpoint.Config.Benchmark)
	}
}

func TestRunJob_Resume(t *testing.T) {
	tmpDir := t.TempDir()
	st := newTestStore(t, tmpDir)

	jm := NewJobManager()
	config := JobConfig{
		Benchmark:   "sphere",
		Dims:        2,
		PopSize:     10,
		Generations: 5,
		Seed:        7,
		PMutation:   0.05,
	}

	job := jm.CreateJob(config)
	if err := runJob(context.Background(), jm, st, tmpDir, job.ID, nil); err != nil {
		t.Fatalf("Initial run failed: %v", err)
	}

	checkpoint, err := st.LoadCheckpoint(job.ID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	firstBest := checkpoint.BestCost

	restored := jm.RestoreJob(checkpoint)
	if err := runJob(context.Background(), jm, st, tmpDir, restored.ID, checkpoint); err != nil {
		t.Fatalf("Resumed run failed: %v", err)
	}

	updated, _ := jm.GetJob(restored.ID)
	if updated.State != StateCompleted {
		t.Errorf("Resumed job should be completed, got %s", updated.State)
	}

	// Generations continue counting from the checkpoint
	if updated.Generation != 10 {
		t.Errorf("Resumed generation = %d, want 10", updated.Generation)
	}

	// Trace keeps growing across the resume instead of starting over
	entries, err := readTrace(t, tmpDir, restored.ID)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}
	if len(entries) != 12 { // 6 from the first run, 6 from the resume
		t.Errorf("Expected 12 trace entries, got %d", len(entries))
	}

	// One member carries the checkpointed best verbatim, so the record can
	// only improve across a resume.
	if updated.BestCost > firstBest {
		t.Errorf("Resumed best cost %f regressed beyond %f", updated.BestCost, firstBest)
	}
}
