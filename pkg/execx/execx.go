// Package execx runs external tools as argument-vector subprocesses.
// No shell is ever involved; callers pass the executable name and its
// arguments separately and receive the captured outcome.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/arthur-debert/relpack/pkg/logging"
)

// Result is the structured outcome of one subprocess invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the subprocess exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner abstracts subprocess execution so services can be tested against
// a fake. The returned error is reserved for failures to start the process;
// a non-zero exit status is reported through Result.ExitCode, not the error.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (Result, error)
}

// ExecRunner is the os/exec backed Runner used by the CLI.
type ExecRunner struct{}

// Run executes name with args in dir, blocking until the process exits.
func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	logging.LogCommand(name, args)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}
