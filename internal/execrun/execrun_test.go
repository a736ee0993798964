package execrun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdoutOnSuccess(t *testing.T) {
	out, err := Run(context.Background(), "echo", "-n", "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestRunReturnsErrorWithCapturedOutputOnFailure(t *testing.T) {
	_, err := Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")

	require.Error(t, err)
	var runErr *Error
	require.True(t, errors.As(err, &runErr))
	require.Equal(t, "out\n", runErr.Stdout)
	require.Equal(t, "err\n", runErr.Stderr)
}

func TestRunErrorUnwrapsToExecError(t *testing.T) {
	_, err := Run(context.Background(), "false")

	var runErr *Error
	require.True(t, errors.As(err, &runErr))
	require.Error(t, runErr.Unwrap())
}

func TestRunErrorMessageIncludesCommandAndOutput(t *testing.T) {
	_, err := Run(context.Background(), "sh", "-c", "echo boom >&2; exit 1")

	require.Contains(t, err.Error(), "sh")
	require.Contains(t, err.Error(), "boom")
}

func TestCheckReportsSuccess(t *testing.T) {
	require.True(t, Check(context.Background(), "true"))
	require.False(t, Check(context.Background(), "false"))
}
