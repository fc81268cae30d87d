package probes

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

// ProcessRunning reads whether the process recorded in the derived pid
// file is alive. A missing pid file raises the state-absence signal; a
// malformed one is fatal. Liveness is checked with a null signal.
func ProcessRunning[C any](pidfile func(C) string) goal.State[C, bool] {
	return func(_ context.Context, c C) (bool, error) {
		p := pidfile(c)
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				return false, goal.NewStateNotFound(fmt.Sprintf("pid file %s does not exist", p), err)
			}
			return false, fmt.Errorf("read %s: %w", p, err)
		}

		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return false, fmt.Errorf("parse pid from %s: %w", p, err)
		}

		// Signal 0 probes for existence without delivering anything.
		if err := syscall.Kill(pid, 0); err != nil {
			return false, nil
		}
		return true, nil
	}
}
