package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/genetune/internal/config"
	"github.com/cwbudde/genetune/internal/server"
	"github.com/cwbudde/genetune/internal/store"
)

var (
	serveAddr       string
	serveDataDir    string
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the optimization job server",
	Long: `Starts the HTTP server exposing the job API: create and list jobs,
query status, stream progress over SSE, download history CSVs and resume
checkpointed runs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "Base directory for job artifacts (overrides config)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "YAML configuration file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDataDir != "" {
		cfg.Server.DataDir = serveDataDir
	}

	st, err := store.NewFSStore(cfg.Server.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	srv := server.NewServer(cfg.Server.Addr, st, cfg.Server.DataDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
