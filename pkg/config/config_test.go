package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
files:
  - path: /etc/motd
    content: "welcome\n"
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Agent.Interval.Std())
	assert.Equal(t, time.Second, cfg.Agent.Backoff.InitialInterval.Std())
	assert.Equal(t, 5*time.Minute, cfg.Agent.Backoff.MaxInterval.Std())
	assert.Equal(t, 2.0, cfg.Agent.Backoff.Multiplier)
	assert.Equal(t, "goal-engine", cfg.Telemetry.ServiceName)
	require.Len(t, cfg.Files, 1)
	assert.Equal(t, "/etc/motd", cfg.Files[0].Path)
}

func TestParseDurations(t *testing.T) {
	cfg, err := Parse([]byte(`
agent:
  interval: 10s
  backoff:
    initial_interval: 500ms
    max_interval: 1m
    multiplier: 1.5
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Agent.Interval.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Agent.Backoff.InitialInterval.Std())
	assert.Equal(t, time.Minute, cfg.Agent.Backoff.MaxInterval.Std())
	assert.Equal(t, 1.5, cfg.Agent.Backoff.Multiplier)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
agent:
  cadence: 10s
`))
	require.Error(t, err)
}

func TestParseRejectsInvalidDuration(t *testing.T) {
	_, err := Parse([]byte(`
agent:
  interval: soonish
`))
	require.Error(t, err)
}

func TestValidateRejectsFileWithoutPath(t *testing.T) {
	_, err := Parse([]byte(`
files:
  - line: loglevel=info
`))
	require.Error(t, err)
}

func TestValidateRejectsLineAndContent(t *testing.T) {
	_, err := Parse([]byte(`
files:
  - path: /etc/app.conf
    line: loglevel=info
    content: "loglevel=info\n"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both line and content")
}

func TestValidateRejectsBackoffInversion(t *testing.T) {
	_, err := Parse([]byte(`
agent:
  backoff:
    initial_interval: 1m
    max_interval: 1s
`))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  interval: 15s
  watch:
    - /etc/app
files:
  - path: /etc/app/app.conf
    line: loglevel=info
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Agent.Interval.Std())
	assert.Equal(t, []string{"/etc/app"}, cfg.Agent.Watch)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
