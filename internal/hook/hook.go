// Package hook installs a git pre-commit hook that runs wormsign.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wormsign/internal/exec"
)

const (
	// Name is the git hook wormsign installs.
	Name = "pre-commit"

	// Script is written to the hook file.
	Script = `#!/bin/sh
# worm-sign pre-commit hook
echo "Running worm-sign..."
wormsign --fetch --source koi
`
)

var ErrNotGitRepository = errors.New("git hooks directory not found")

// Installer writes the hook for the repository at Root.
type Installer struct {
	Root   string
	Runner exec.Runner
	// DryRun resolves the target path without writing it.
	DryRun bool
}

// HooksDir asks git for the hooks directory (honouring core.hooksPath and
// worktrees). Without git it falls back to Root/.git/hooks.
func (i Installer) HooksDir(ctx context.Context) (string, error) {
	runner := i.Runner
	if runner == nil {
		runner = exec.OS{}
	}

	dir := filepath.Join(i.Root, ".git", "hooks")
	res, err := runner.Run(ctx, i.Root, "git", "rev-parse", "--git-path", "hooks")
	if err == nil && res.ExitCode == 0 && res.Output() != "" {
		dir = res.Output()
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(i.Root, dir)
		}
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s. Is this a git repository?", ErrNotGitRepository, dir)
	}
	return dir, nil
}

// Install writes the pre-commit hook and returns its path. An existing
// hook is overwritten.
func (i Installer) Install(ctx context.Context) (string, error) {
	dir, err := i.HooksDir(ctx)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Name)
	if i.DryRun {
		return path, nil
	}

	if err := os.WriteFile(path, []byte(Script), 0755); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0755); err != nil {
		return "", fmt.Errorf("chmod %s: %w", path, err)
	}
	return path, nil
}
