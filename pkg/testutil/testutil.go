// Package testutil provides shared helpers for package tests: filesystem
// fixture builders and a programmable fake subprocess runner.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/pkg/execx"
)

// CreateFile writes content to path, creating parent directories.
func CreateFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile reads path, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Call records one subprocess invocation seen by the FakeRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// FakeRunner is an execx.Runner that records every call and delegates to a
// programmable handler. Without a handler every call succeeds with empty
// output.
type FakeRunner struct {
	Calls   []Call
	Handler func(call Call) (execx.Result, error)
}

// Run implements execx.Runner.
func (f *FakeRunner) Run(ctx context.Context, dir string, name string, args ...string) (execx.Result, error) {
	call := Call{Dir: dir, Name: name, Args: args}
	f.Calls = append(f.Calls, call)
	if f.Handler != nil {
		return f.Handler(call)
	}
	return execx.Result{}, nil
}

// CalledTools returns the executable names of all recorded calls, in order.
func (f *FakeRunner) CalledTools() []string {
	var names []string
	for _, call := range f.Calls {
		names = append(names, call.Name)
	}
	return names
}

// ArgValue returns the argument following flag in the call's argument
// vector, or "" when absent.
func (c Call) ArgValue(flag string) string {
	for i, arg := range c.Args {
		if arg == flag && i+1 < len(c.Args) {
			return c.Args[i+1]
		}
	}
	return ""
}

// HasArg reports whether the call's argument vector contains arg.
func (c Call) HasArg(arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}
