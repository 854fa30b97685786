package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seed-run/seed/internal/config"
	"github.com/seed-run/seed/internal/locking"
	"github.com/seed-run/seed/internal/server"
)

// buildServeCmd creates the "serve" command: runs the master in the
// foreground until a shutdown signal arrives.
func buildServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the master headlessly and block until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return server.Run(ctx, *configPath)
		},
	}
}

// buildStatusCmd creates the "status" command.
func buildStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a master is running in this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(*configPath)
		},
	}
}

// buildStopCmd creates the "stop" command.
func buildStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running master",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(*configPath)
		},
	}
}

// runAttachOrServe implements the bare `seed` command: start a master if
// none is running, otherwise report the one that's already there. There
// is no TUI to attach to in this build, so "attaches" degrades to
// reporting the existing master's address.
func runAttachOrServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, found, err := locking.Read(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("read workspace lock: %w", err)
	}
	if found && locking.ProcessAlive(lock.PID) {
		fmt.Printf("seed: master already running (pid %d, port %d)\n", lock.PID, lock.Port)
		return nil
	}

	sigCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return server.Run(sigCtx, configPath)
}

func runStatus(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, found, err := locking.Read(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("read workspace lock: %w", err)
	}
	if !found || !locking.ProcessAlive(lock.PID) {
		fmt.Println("seed: no master running")
		return nil
	}
	fmt.Printf("seed: master running (pid %d, port %d, started %s)\n", lock.PID, lock.Port, lock.StartedAt)
	return nil
}

func runStop(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, found, err := locking.Read(cfg.Workspace.Root)
	if err != nil {
		return fmt.Errorf("read workspace lock: %w", err)
	}
	if !found || !locking.ProcessAlive(lock.PID) {
		fmt.Println("seed: no master running")
		return nil
	}

	proc, err := os.FindProcess(lock.PID)
	if err != nil {
		return fmt.Errorf("find process %d: %w", lock.PID, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", lock.PID, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !locking.ProcessAlive(lock.PID) {
			fmt.Printf("seed: master (pid %d) stopped\n", lock.PID)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("master (pid %d) did not stop within 10s", lock.PID)
}
