// Command seed is the CLI entry point for the workspace-local agent
// orchestrator.
//
// # Basic Usage
//
//	seed                  # start the master if none is running, else report it
//	seed serve            # start the master in the foreground (headless)
//	seed status           # report whether a master is running, with its pid, port and start time
//	seed stop             # stop the running master
//
// # Environment Variables
//
//   - ANTHROPIC_API_KEY: Anthropic API key for the anthropic provider
//   - SEED_ADDR, SEED_WORKSPACE_ROOT, SEED_LOG_LEVEL,
//     SEED_TOOLS_MAX_CONCURRENCY, SEED_APPROVAL_DEADLINE: config overrides,
//     see internal/config
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Start or attach to the workspace's agent orchestrator",
		Long: `seed starts the workspace master if none is running yet.

If a master is already running in this workspace, seed reports its
address instead of starting a second one — the workspace's single-master
invariant means only one seedd process may hold a given workspace at a
time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttachOrServe(cmd.Context(), configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "seed.yaml", "path to YAML configuration file")

	cmd.AddCommand(buildServeCmd(&configPath))
	cmd.AddCommand(buildStatusCmd(&configPath))
	cmd.AddCommand(buildStopCmd(&configPath))

	return cmd
}
