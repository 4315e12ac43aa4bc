package exec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Exit codes reported when the process never produced its own.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result holds the execution result.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Output is Stdout without surrounding whitespace.
func (r Result) Output() string {
	return strings.TrimSpace(r.Stdout)
}

// Runner runs external commands. The hook installer drives git through
// it so tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// OS runs commands with os/exec.
type OS struct{}

func (OS) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	return Run(ctx, name, args, dir)
}

// Run executes a command with context/timeout, capturing output and duration.
// A timeout reports ExitTimeout and a missing binary ExitNotFound.
func Run(ctx context.Context, name string, args []string, dir string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = ExitTimeout
	case errors.Is(err, exec.ErrNotFound):
		res.ExitCode = ExitNotFound
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = 1
	}
	return res, err
}
