// Package shell provides a stub-friendly interface for running external
// commands. Every call to an external tool (poetry, jupyter) goes through
// Runner so the orchestration layer is testable without the tool installed.
package shell

import (
	"bytes"
	"context"
	"os/exec"
)

// Result holds the outcome of a command execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Opts holds optional parameters for command execution.
type Opts struct {
	Dir string            // working directory
	Env map[string]string // extra environment variables (overlay)
}

// Runner is the interface for running external commands.
type Runner interface {
	// Run executes a command and returns the result. The returned error is
	// non-nil only for execution failures (binary not found, context
	// canceled); a non-zero exit is reported through Result.ExitCode.
	Run(ctx context.Context, name string, args []string, opts Opts) (Result, error)

	// LookPath reports whether the named binary is on PATH.
	LookPath(name string) (string, error)
}

// ExecRunner is the production Runner built on os/exec.
type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args []string, opts Opts) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = cmd.Environ()
		for k, v := range opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
