package commands

import (
	"fmt"

	"github.com/balena-io-experimental/goal-engine/pkg/config"
	"github.com/balena-io-experimental/goal-engine/pkg/goal"
	"github.com/balena-io-experimental/goal-engine/pkg/probes"
)

// hostContext is the (empty) context of the agent's top-level goal:
// every input is captured from the configuration at build time.
type hostContext struct{}

func filePath(f config.ManagedFile) string    { return f.Path }
func fileLine(f config.ManagedFile) string    { return f.Line }
func fileContent(f config.ManagedFile) string { return f.Content }

// buildGoal assembles the agent's goal graph from the managed-file
// declarations. Files are combined sequentially: several declarations
// may touch the same path, so siblings must not run concurrently.
func buildGoal(files []config.ManagedFile) *goal.Goal[hostContext] {
	if len(files) == 0 {
		return goal.Always[hostContext]().WithDescription(func(hostContext) string {
			return "nothing to manage"
		})
	}

	gs := make([]*goal.Goal[hostContext], 0, len(files))
	for _, f := range files {
		var fg *goal.Goal[config.ManagedFile]
		switch {
		case f.Line != "":
			fg = probes.EnsureFileLine(filePath, fileLine)
		case f.Content != "":
			fg = probes.EnsureFileContent(filePath, fileContent)
		default:
			fg = probes.EnsureFileExists(filePath)
		}
		gs = append(gs, goal.MapContext(fg, func(hostContext) config.ManagedFile { return f }))
	}

	return goal.And(gs...).WithDescription(func(hostContext) string {
		return fmt.Sprintf("%d managed files", len(gs))
	})
}
