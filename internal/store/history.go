package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// GenerationStats is one CSV row of the per-generation history.
type GenerationStats struct {
	Generation    int     `csv:"generation"`
	BestCost      float64 `csv:"best_cost"`
	BestFitness   float64 `csv:"best_fitness"`
	MeanCost      float64 `csv:"mean_cost"`
	MedianCost    float64 `csv:"median_cost"`
	MeanFitness   float64 `csv:"mean_fitness"`
	MedianFitness float64 `csv:"median_fitness"`
	ElapsedSec    float64 `csv:"elapsed_sec"`
}

// HistoryWriter streams per-generation statistics to history.csv in a job's
// directory. Safe for concurrent use.
type HistoryWriter struct {
	mu            sync.Mutex
	file          *os.File
	path          string
	headerWritten bool
}

// NewHistoryWriter creates a history writer at
// <baseDir>/jobs/<jobID>/history.csv. With appendMode, new rows continue an
// existing file and the header is only written when the file is empty.
func NewHistoryWriter(baseDir, jobID string, appendMode bool) (*HistoryWriter, error) {
	jobDir := filepath.Join(baseDir, "jobs", jobID)

	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	path := filepath.Join(jobDir, "history.csv")
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create history file: %w", err)
	}

	hw := &HistoryWriter{file: file, path: path}
	if appendMode {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to stat history file: %w", err)
		}
		hw.headerWritten = info.Size() > 0
	}

	return hw, nil
}

// Write appends one generation row. The first write includes the header.
func (hw *HistoryWriter) Write(stats GenerationStats) error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	records := []GenerationStats{stats}

	if !hw.headerWritten {
		if err := gocsv.Marshal(records, hw.file); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
		hw.headerWritten = true
		return nil
	}

	if err := gocsv.MarshalWithoutHeaders(records, hw.file); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (hw *HistoryWriter) Close() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if err := hw.file.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the history file.
func (hw *HistoryWriter) Path() string {
	return hw.path
}

// ReadHistory loads all generation rows from a job's history.csv.
func ReadHistory(baseDir, jobID string) ([]GenerationStats, error) {
	path := filepath.Join(baseDir, "jobs", jobID, "history.csv")

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{JobID: jobID}
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var rows []GenerationStats
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return rows, nil
}
