package codegen

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// ExecRequest describes one bounded external process invocation. Timeout
// is required; a request without one is rejected.
type ExecRequest struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// ExecResult is the outcome of an external process invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes external processes. It exists as an interface so the
// IaC tool can be faked in tests and so process spawning stays in one
// place instead of scattered through the pipeline.
type Runner interface {
	Run(ctx context.Context, req ExecRequest) (ExecResult, error)
}

// ErrNoTimeout is returned for requests missing a timeout.
var ErrNoTimeout = errors.New("exec request requires a timeout")

type execRunner struct{}

// NewRunner returns the os/exec-backed runner.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, req ExecRequest) (ExecResult, error) {
	if req.Timeout <= 0 {
		return ExecResult{ExitCode: -1}, ErrNoTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	result := ExecResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return result, runCtx.Err()
	}
	return result, err
}
