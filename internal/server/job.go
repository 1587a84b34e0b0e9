package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/genetune/internal/store"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is an alias to avoid duplication with store.RunConfig
type JobConfig = store.RunConfig

// Job represents one optimization run
type Job struct {
	ID          string             `json:"id"`
	State       JobState           `json:"state"`
	Config      JobConfig          `json:"config"`
	BestValues  map[string]float64 `json:"bestValues,omitempty"`
	BestCost    float64            `json:"bestCost"`
	BestFitness float64            `json:"bestFitness"`
	Generation  int                `json:"generation"`
	StartTime   time.Time          `json:"startTime"`
	EndTime     *time.Time         `json:"endTime,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// clone returns a deep copy safe to read outside the manager's lock.
func (j *Job) clone() *Job {
	out := *j
	if j.BestValues != nil {
		out.BestValues = make(map[string]float64, len(j.BestValues))
		for k, v := range j.BestValues {
			out.BestValues[k] = v
		}
	}
	if j.EndTime != nil {
		t := *j.EndTime
		out.EndTime = &t
	}
	return &out
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	cancels     map[string]context.CancelFunc
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		cancels:     make(map[string]context.CancelFunc),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.clone()
}

// RestoreJob registers a job rebuilt from a checkpoint, keeping its ID.
// An existing entry for the same ID is replaced.
func (jm *JobManager) RestoreJob(cp *store.Checkpoint) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:          cp.JobID,
		State:       StatePending,
		Config:      cp.Config,
		BestValues:  cp.BestValues,
		BestCost:    cp.BestCost,
		BestFitness: cp.BestFitness,
		Generation:  cp.Generation,
		StartTime:   time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.clone()
}

// GetJob retrieves a copy of a job by ID. The copy is detached from the
// manager, so concurrent UpdateJob calls cannot race with readers.
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.clone(), true
}

// ListJobs returns copies of all jobs
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.clone())
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// RegisterCancel stores the cancel function for a running job
func (jm *JobManager) RegisterCancel(id string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[id] = cancel
}

// CancelJob cancels a running job. Returns false if the job does not exist
// or has no registered cancel function.
func (jm *JobManager) CancelJob(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cancel, exists := jm.cancels[id]
	if !exists {
		return false
	}

	cancel()
	delete(jm.cancels, id)
	return true
}

// GetRunningJobs returns copies of all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.clone())
		}
	}
	return runningJobs
}
