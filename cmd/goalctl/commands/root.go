package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "goalctl",
		Short: "goalctl - declarative goal agent",
		Long: `goalctl drives an edge device toward a declared condition.

Goals are declared in a YAML config (managed files today) and sought
through the goal engine: probe first, remediate only when needed,
re-verify after every action.

Features:
  - Idempotent seek with one-step backtracking to pre-conditions
  - Periodic reconciliation with exponential retry backoff
  - Filesystem watches that trigger immediate reconciles
  - Structured logging, Prometheus metrics and OpenTelemetry traces`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "goalctl.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newSeekCommand())

	return rootCmd
}
