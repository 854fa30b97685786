// Command seedd is the headless daemon entry point: it loads a workspace
// config, acquires the workspace's single-master lock, and serves the
// HTTP/WS contract until SIGINT/SIGTERM. `seed serve` runs the identical
// body in-process rather than exec'ing this binary; seedd exists as a
// separate entry point for deployments that want to run it directly
// under systemd/launchd/Task Scheduler without going through the CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seed-run/seed/internal/server"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "seed.yaml", "path to YAML configuration file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx, configPath); err != nil {
		fmt.Fprintln(os.Stderr, "seedd:", err)
		os.Exit(1)
	}
}
