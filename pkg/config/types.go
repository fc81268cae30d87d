// Package config loads and validates the agent configuration: the
// reconcile cadence, the telemetry setup and the managed-file goals
// the goalctl binary builds its goal graph from.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/balena-io-experimental/goal-engine/pkg/telemetry"
)

// Config is the root agent configuration.
type Config struct {
	// Agent configures the reconcile loop.
	Agent AgentConfig `yaml:"agent"`

	// Telemetry configures logging, metrics, tracing and events.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Files are the managed-file goals the agent keeps seeking.
	Files []ManagedFile `yaml:"files" validate:"dive"`
}

// AgentConfig configures the reconcile loop.
type AgentConfig struct {
	// Interval is the cadence of periodic reconciles.
	Interval Duration `yaml:"interval" validate:"gt=0"`

	// Watch lists filesystem paths whose changes trigger an immediate
	// reconcile.
	Watch []string `yaml:"watch" validate:"dive,required"`

	// Backoff bounds the retry backoff applied after a failed or
	// unreached reconcile.
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig bounds the exponential retry backoff.
type BackoffConfig struct {
	// InitialInterval is the first retry delay.
	InitialInterval Duration `yaml:"initial_interval" validate:"gt=0"`

	// MaxInterval caps the retry delay.
	MaxInterval Duration `yaml:"max_interval" validate:"gtefield=InitialInterval"`

	// Multiplier grows the delay between retries.
	Multiplier float64 `yaml:"multiplier" validate:"gte=1"`
}

// ManagedFile declares one file goal: the file must exist, and may
// additionally be required to contain a line or to hold exact content.
type ManagedFile struct {
	// Path is the file to manage.
	Path string `yaml:"path" validate:"required"`

	// Line, when set, is a line the file must contain.
	Line string `yaml:"line"`

	// Content, when set, is the exact content the file must hold.
	// Mutually exclusive with Line.
	Content string `yaml:"content"`
}

// Default returns the default agent configuration.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Interval: Duration(30 * time.Second),
			Backoff: BackoffConfig{
				InitialInterval: Duration(time.Second),
				MaxInterval:     Duration(5 * time.Minute),
				Multiplier:      2.0,
			},
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Agent.Interval == 0 {
		c.Agent.Interval = def.Agent.Interval
	}
	if c.Agent.Backoff.InitialInterval == 0 {
		c.Agent.Backoff.InitialInterval = def.Agent.Backoff.InitialInterval
	}
	if c.Agent.Backoff.MaxInterval == 0 {
		c.Agent.Backoff.MaxInterval = def.Agent.Backoff.MaxInterval
	}
	if c.Agent.Backoff.Multiplier == 0 {
		c.Agent.Backoff.Multiplier = def.Agent.Backoff.Multiplier
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = def.Telemetry.ServiceVersion
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = def.Telemetry.Environment
	}
	if c.Telemetry.Logging.Level == "" {
		c.Telemetry.Logging = def.Telemetry.Logging
	}
	if c.Telemetry.Metrics.Namespace == "" {
		c.Telemetry.Metrics.Namespace = def.Telemetry.Metrics.Namespace
	}
	if c.Telemetry.Events.BufferSize == 0 {
		c.Telemetry.Events = def.Telemetry.Events
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for i, f := range c.Files {
		if f.Line != "" && f.Content != "" {
			return fmt.Errorf("invalid configuration: files[%d] (%s) sets both line and content", i, f.Path)
		}
	}

	return c.Telemetry.Validate()
}
