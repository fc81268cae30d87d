// Package probes provides ready-made state readers, tests and actions
// for common goals on an edge device: files, HTTP endpoints and local
// processes. They are ordinary building blocks for the goal package
// and carry no engine logic of their own.
package probes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/balena-io-experimental/goal-engine/pkg/goal"
)

// FileExists reads whether the file at the derived path exists.
func FileExists[C any](path func(C) string) goal.State[C, bool] {
	return func(_ context.Context, c C) (bool, error) {
		_, err := os.Stat(path(c))
		if err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, fmt.Errorf("stat %s: %w", path(c), err)
		}
		return true, nil
	}
}

// Touch creates an empty file at the derived path, creating parent
// directories as needed. Touching an existing file is a no-op.
func Touch[C any](path func(C) string) goal.Action[C, bool] {
	return func(_ context.Context, c C, _ bool) error {
		p := path(c)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", p, err)
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("touch %s: %w", p, err)
		}
		return f.Close()
	}
}

// FileContents reads the file at the derived path as a string. A
// missing file raises the state-absence signal; any other read failure
// is fatal.
func FileContents[C any](path func(C) string) goal.State[C, string] {
	return func(_ context.Context, c C) (string, error) {
		p := path(c)
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				return "", goal.NewStateNotFound(fmt.Sprintf("file %s does not exist", p), err)
			}
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		return string(data), nil
	}
}

// WriteFile writes the derived content to the derived path, creating
// parent directories as needed.
func WriteFile[C any](path, content func(C) string) goal.Action[C, string] {
	return func(_ context.Context, c C, _ string) error {
		p := path(c)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", p, err)
		}
		if err := os.WriteFile(p, []byte(content(c)), 0644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		return nil
	}
}

// HasLine tests whether any line of the snapshot equals the derived
// line.
func HasLine[C any](line func(C) string) goal.Test[C, string] {
	return func(c C, contents string) bool {
		wanted := line(c)
		for _, l := range strings.Split(contents, "\n") {
			if l == wanted {
				return true
			}
		}
		return false
	}
}

// AppendLine rewrites the file at the derived path with the derived
// line appended once and any duplicates of it stripped. The snapshot
// is the previous contents; after an absent read it is the empty
// string and the file is created from scratch.
func AppendLine[C any](path, line func(C) string) goal.Action[C, string] {
	return func(_ context.Context, c C, contents string) error {
		p := path(c)
		wanted := line(c)

		kept := make([]string, 0)
		for _, l := range strings.Split(contents, "\n") {
			if l == wanted || l == "" {
				continue
			}
			kept = append(kept, l)
		}
		kept = append(kept, wanted)

		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create directory for %s: %w", p, err)
		}
		if err := os.WriteFile(p, []byte(strings.Join(kept, "\n")+"\n"), 0644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		return nil
	}
}

// EnsureFileExists builds the goal "the file exists", remediated by
// creating it.
func EnsureFileExists[C any](path func(C) string) *goal.Goal[C] {
	return goal.New(goal.Spec[C, bool]{
		State:  FileExists(path),
		Action: Touch(path),
		Description: func(c C) string {
			return fmt.Sprintf("file %s exists", path(c))
		},
	})
}

// EnsureFileLine builds the goal "the file contains the line",
// remediated by rewriting the file with the line appended once. The
// file being present is a pre-condition, remediated by creating it.
func EnsureFileLine[C any](path, line func(C) string) *goal.Goal[C] {
	return goal.New(goal.Spec[C, string]{
		State:    FileContents(path),
		Test:     HasLine(line),
		Action:   AppendLine(path, line),
		Requires: EnsureFileExists(path),
		Description: func(c C) string {
			return fmt.Sprintf("file %s contains %q", path(c), line(c))
		},
	})
}

// EnsureFileContent builds the goal "the file holds exactly the
// content", remediated by writing it.
func EnsureFileContent[C any](path, content func(C) string) *goal.Goal[C] {
	return goal.New(goal.Spec[C, string]{
		State:  FileContents(path),
		Test:   func(c C, got string) bool { return got == content(c) },
		Action: WriteFile(path, content),
		Description: func(c C) string {
			return fmt.Sprintf("file %s has the wanted content", path(c))
		},
	})
}
