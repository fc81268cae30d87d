package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balena-io-experimental/goal-engine/pkg/agent"
	"github.com/balena-io-experimental/goal-engine/pkg/config"
	"github.com/balena-io-experimental/goal-engine/pkg/telemetry"
)

func newSeekCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seek",
		Short: "Seek the configured goals once",
		Long: `Perform a single reconcile and exit. The exit code reflects the
outcome: zero when every goal was reached, non-zero otherwise.`,
		Example: `  # One-shot convergence, e.g. from a boot script
  goalctl seek --config /etc/goalctl.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if verbose {
				cfg.Telemetry.Logging.Level = "debug"
			}

			tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() { _ = tel.Shutdown(context.Background()) }()

			r := agent.New(
				buildGoal(cfg.Files),
				func() hostContext { return hostContext{} },
				agent.Options{},
				tel,
			)

			reached, err := r.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if !reached {
				return fmt.Errorf("goals not reached")
			}
			return nil
		},
	}

	return cmd
}
