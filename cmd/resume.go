package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/genetune/internal/store"
)

var (
	resumeDataDir     string
	resumeGenerations int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a run from its checkpoint",
	Long: `Continues an optimization from a saved checkpoint. The population is
re-seeded around the checkpointed best values, so the best cost carries over
while the search keeps exploring. Trace and history files are appended.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for run artifacts")
	resumeCmd.Flags().IntVar(&resumeGenerations, "generations", 0, "Generations to run (0 = same as original run)")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	st, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	checkpoint, err := st.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cfg := checkpoint.Config
	if resumeGenerations > 0 {
		cfg.Generations = resumeGenerations
	}

	fmt.Printf("Resuming job %s from generation %d (best cost %.6f)\n",
		jobID, checkpoint.Generation, checkpoint.BestCost)

	result, err := executeRun(cfg, jobID, st, resumeDataDir, checkpoint)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s finished: best cost %.6f after %d generations (%.1f gen/sec)\n",
		jobID, result.bestCost, result.generation, result.gps)
	fmt.Printf("Best values: %v\n", result.bestValues)

	return nil
}
