package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/balena-io-experimental/goal-engine/pkg/agent"
	"github.com/balena-io-experimental/goal-engine/pkg/config"
	"github.com/balena-io-experimental/goal-engine/pkg/telemetry"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile continuously until interrupted",
		Long: `Run the agent loop: seek the configured goals immediately, then on
the configured interval, retrying with exponential backoff while any
goal stays unreached. Filesystem watches, when configured, trigger an
immediate reconcile.`,
		Example: `  # Run with the default config file
  goalctl run

  # Run with an explicit config
  goalctl run --config /etc/goalctl.yaml`,
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

			if err := tel.StartMetricsServer(); err != nil {
				return err
			}

			r := agent.New(
				buildGoal(cfg.Files),
				func() hostContext { return hostContext{} },
				agent.Options{
					Interval:          cfg.Agent.Interval.Std(),
					BackoffInitial:    cfg.Agent.Backoff.InitialInterval.Std(),
					BackoffMax:        cfg.Agent.Backoff.MaxInterval.Std(),
					BackoffMultiplier: cfg.Agent.Backoff.Multiplier,
					WatchPaths:        cfg.Agent.Watch,
				},
				tel,
			)

			return r.Run(cmd.Context())
		},
	}

	return cmd
}
