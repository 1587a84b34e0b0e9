package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "trace-job-1"

	writer, err := NewTraceWriter(tmpDir, jobID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	entries := []TraceEntry{
		{Generation: 0, BestCost: 12.0, MeanCost: 18.5, MedianCost: 17.9, Timestamp: time.Now()},
		{Generation: 1, BestCost: 9.4, MeanCost: 14.2, MedianCost: 13.8, Timestamp: time.Now()},
		{Generation: 2, BestCost: 4.1, MeanCost: 10.0, MedianCost: 9.2, Timestamp: time.Now(),
			BestValues: map[string]float64{"x0": 1, "x1": 2}},
		{Generation: 3, BestCost: 4.1, MeanCost: 8.3, MedianCost: 7.7, Timestamp: time.Now()},
	}

	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	tracePath := filepath.Join(tmpDir, "jobs", jobID, "trace.jsonl")
	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		t.Fatalf("Trace file not created: %s", tracePath)
	}

	reader, err := NewTraceReader(tmpDir, jobID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	readEntries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(readEntries) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(readEntries))
	}

	for i, entry := range readEntries {
		if entry.Generation != entries[i].Generation {
			t.Errorf("Entry %d generation = %d, want %d", i, entry.Generation, entries[i].Generation)
		}
		if entry.BestCost != entries[i].BestCost {
			t.Errorf("Entry %d best cost = %f, want %f", i, entry.BestCost, entries[i].BestCost)
		}
	}

	if readEntries[2].BestValues["x1"] != 2 {
		t.Error("Best values payload lost in round trip")
	}
	if readEntries[3].BestValues != nil {
		t.Error("Entry without best values should deserialize nil")
	}
}

func TestTraceWriter_AppendMode(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "trace-append"

	first, err := NewTraceWriter(tmpDir, jobID, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	first.Write(TraceEntry{Generation: 0, BestCost: 5, Timestamp: time.Now()})
	first.Close()

	second, err := NewTraceWriter(tmpDir, jobID, true)
	if err != nil {
		t.Fatalf("Failed to create append writer: %v", err)
	}
	second.Write(TraceEntry{Generation: 1, BestCost: 3, Timestamp: time.Now()})
	second.Close()

	reader, err := NewTraceReader(tmpDir, jobID)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after append, got %d", len(entries))
	}
	if entries[0].Generation != 0 || entries[1].Generation != 1 {
		t.Error("Append did not preserve entry order")
	}
}

func TestTraceWriter_TruncateMode(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "trace-truncate"

	first, _ := NewTraceWriter(tmpDir, jobID, false)
	first.Write(TraceEntry{Generation: 0, BestCost: 5, Timestamp: time.Now()})
	first.Close()

	second, _ := NewTraceWriter(tmpDir, jobID, false)
	second.Write(TraceEntry{Generation: 7, BestCost: 1, Timestamp: time.Now()})
	second.Close()

	reader, err := NewTraceReader(tmpDir, jobID)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Generation != 7 {
		t.Errorf("Truncate mode kept stale entries: %+v", entries)
	}
}

func TestTraceReader_MissingFile(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "missing-job")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTraceReader_SequentialRead(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "trace-seq"

	writer, _ := NewTraceWriter(tmpDir, jobID, false)
	writer.Write(TraceEntry{Generation: 0, BestCost: 2, Timestamp: time.Now()})
	writer.Write(TraceEntry{Generation: 1, BestCost: 1, Timestamp: time.Now()})
	writer.Close()

	reader, err := NewTraceReader(tmpDir, jobID)
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	for want := 0; want < 2; want++ {
		entry, err := reader.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", want, err)
		}
		if entry.Generation != want {
			t.Errorf("Read %d returned generation %d", want, entry.Generation)
		}
	}

	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF at end, got %v", err)
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()
	jobID := "trace-delete"

	writer, _ := NewTraceWriter(tmpDir, jobID, false)
	writer.Write(TraceEntry{Generation: 0, BestCost: 1, Timestamp: time.Now()})
	writer.Close()

	if err := DeleteTrace(tmpDir, jobID); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "jobs", jobID, "trace.jsonl")); !os.IsNotExist(err) {
		t.Error("Trace file still exists")
	}

	// Deleting a missing trace is not an error.
	if err := DeleteTrace(tmpDir, "never-existed"); err != nil {
		t.Errorf("DeleteTrace on missing file failed: %v", err)
	}
}
