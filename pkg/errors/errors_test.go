// Test Type: Unit Test
// Description: Tests for structured error codes and exit code mapping

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/pkg/errors"
)

func TestErrorFormatting(t *testing.T) {
	err := errors.New(errors.ErrNotFound, "release root does not exist")
	assert.Equal(t, "[NOT_FOUND] release root does not exist", err.Error())

	wrapped := errors.Wrap(stderrors.New("boom"), errors.ErrSubprocess, "git clone failed")
	assert.Equal(t, "[SUBPROCESS] git clone failed: boom", wrapped.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrInternal, "ignored"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrInternal, "ignored %d", 1))
}

func TestIsComparesCodes(t *testing.T) {
	err := errors.Newf(errors.ErrUnavailable, "wheel %s missing", "numpy")
	assert.True(t, stderrors.Is(err, errors.New(errors.ErrUnavailable, "")))
	assert.False(t, stderrors.Is(err, errors.New(errors.ErrNotFound, "")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.ErrDataErr, errors.GetCode(errors.New(errors.ErrDataErr, "bad version")))
	assert.Equal(t, errors.ErrUnknown, errors.GetCode(stderrors.New("plain")))

	// Codes survive fmt wrapping.
	wrapped := fmt.Errorf("context: %w", errors.New(errors.ErrUsage, "missing flag"))
	assert.Equal(t, errors.ErrUsage, errors.GetCode(wrapped))
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, errors.ExOK},
		{"usage", errors.New(errors.ErrUsage, ""), errors.ExUsage},
		{"data error", errors.New(errors.ErrDataErr, ""), errors.ExDataErr},
		{"unsupported format", errors.New(errors.ErrUnsupportedFormat, ""), errors.ExDataErr},
		{"not found", errors.New(errors.ErrNotFound, ""), errors.ExNoInput},
		{"config missing", errors.New(errors.ErrConfigMissing, ""), errors.ExNoInput},
		{"unavailable", errors.New(errors.ErrUnavailable, ""), errors.ExUnavailable},
		{"unknown", stderrors.New("plain"), errors.ExSoftware},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.ExitCode(tt.err))
		})
	}
}

func TestExitCodeSurfacesSubprocessExitCode(t *testing.T) {
	err := errors.New(errors.ErrSubprocess, "pip download failed").WithDetail("exitCode", 23)
	assert.Equal(t, 23, errors.ExitCode(err))

	// Without a recorded exit code the generic software code is used.
	plain := errors.New(errors.ErrSubprocess, "tool failed")
	require.Equal(t, errors.ExSoftware, errors.ExitCode(plain))
}
