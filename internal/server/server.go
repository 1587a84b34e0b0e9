package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/genetune/internal/bench"
	"github.com/cwbudde/genetune/internal/ga"
	"github.com/cwbudde/genetune/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager *JobManager
	store      store.Store
	baseDir    string
	addr       string
	server     *http.Server
}

// NewServer creates a new HTTP server. The store may be nil, which disables
// checkpointing; trace and history files still land under baseDir.
func NewServer(addr string, checkpointStore store.Store, baseDir string) *Server {
	return &Server{
		jobManager: NewJobManager(),
		store:      checkpointStore,
		baseDir:    baseDir,
		addr:       addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Handler builds the route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/benchmarks", s.handleBenchmarks)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleBenchmarks handles GET /api/v1/benchmarks
func (s *Server) handleBenchmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, bench.Names())
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	if r.Method == http.MethodDelete && len(parts) == 1 {
		s.handleCancelJob(w, r, jobID)
		return
	}

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetJobStatus(w, r, jobID)
	} else if parts[1] == "events" {
		s.handleJobStream(w, r, jobID)
	} else if parts[1] == "history" {
		s.handleGetJobHistory(w, r, jobID)
	} else if parts[1] == "resume" && r.Method == http.MethodPost {
		s.handleResumeJob(w, r, jobID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Validate config
	if config.Benchmark == "" {
		http.Error(w, "benchmark is required", http.StatusBadRequest)
		return
	}
	if _, ok := bench.Lookup(config.Benchmark); !ok {
		http.Error(w, fmt.Sprintf("unknown benchmark: %s", config.Benchmark), http.StatusBadRequest)
		return
	}
	applyConfigDefaults(&config)
	if config.PCrossover > 1 || config.PMutation > 1 || config.PCrossover < 0 || config.PMutation < 0 {
		http.Error(w, "probabilities must be within [0, 1]", http.StatusBadRequest)
		return
	}

	// Create job and start worker in background
	job := s.jobManager.CreateJob(config)
	s.startJob(job.ID, nil)

	writeJSON(w, http.StatusCreated, job)
}

// applyConfigDefaults fills zero fields with the standard run settings.
func applyConfigDefaults(config *JobConfig) {
	if config.Dims <= 0 {
		config.Dims = 3
	}
	if config.PopSize <= 0 {
		config.PopSize = 50
	}
	if config.Generations <= 0 {
		config.Generations = 100
	}
	if config.PCrossover == 0 {
		config.PCrossover = ga.DefaultPCrossover
	}
	if config.PMutation == 0 {
		config.PMutation = ga.DefaultPMutation
	}
	if config.MaxMutAmount == 0 {
		config.MaxMutAmount = ga.DefaultMaxMutAmount
	}
	if config.LogBase == 0 {
		config.LogBase = ga.DefaultLogBase
	}
}

// startJob launches runJob in the background with a registered cancel func.
func (s *Server) startJob(jobID string, resume *store.Checkpoint) {
	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.RegisterCancel(jobID, cancel)
	go runJob(ctx, s.jobManager, s.store, s.baseDir, jobID, resume)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	// Compute elapsed time and throughput
	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	gps := float64(0)
	if elapsed.Seconds() > 0 {
		gps = float64(job.Generation) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":          job.ID,
		"state":       job.State,
		"config":      job.Config,
		"bestValues":  job.BestValues,
		"bestCost":    job.BestCost,
		"bestFitness": job.BestFitness,
		"generation":  job.Generation,
		"elapsed":     elapsed.Seconds(),
		"gps":         gps,
		"startTime":   job.StartTime,
		"endTime":     job.EndTime,
		"error":       job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetJobHistory handles GET /api/v1/jobs/:id/history, serving the
// per-generation CSV.
func (s *Server) handleGetJobHistory(w http.ResponseWriter, r *http.Request, jobID string) {
	if _, exists := s.jobManager.GetJob(jobID); !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(s.baseDir, "jobs", jobID, "history.csv")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		http.Error(w, "No history yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}

// handleCancelJob handles DELETE /api/v1/jobs/:id
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if job.State != StatePending && job.State != StateRunning {
		http.Error(w, fmt.Sprintf("Job is %s, cannot cancel", job.State), http.StatusConflict)
		return
	}

	if !s.jobManager.CancelJob(jobID) {
		http.Error(w, "Job has no running worker", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleResumeJob handles POST /api/v1/jobs/:id/resume. The job restarts
// from its latest checkpoint with a population seeded around the saved best
// values.
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.store == nil {
		http.Error(w, "Checkpointing disabled", http.StatusConflict)
		return
	}

	if job, exists := s.jobManager.GetJob(jobID); exists {
		if job.State == StatePending || job.State == StateRunning {
			http.Error(w, "Job is still active", http.StatusConflict)
			return
		}
	}

	checkpoint, err := s.store.LoadCheckpoint(jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "No checkpoint for job", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to load checkpoint: %v", err), http.StatusInternalServerError)
		return
	}

	job := s.jobManager.RestoreJob(checkpoint)
	s.startJob(job.ID, checkpoint)

	writeJSON(w, http.StatusAccepted, job)
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
