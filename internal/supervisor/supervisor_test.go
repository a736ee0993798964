package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
)

type fakeStatus struct {
	shuttingDown bool
}

func (f *fakeStatus) IsShuttingDown() bool { return f.shuttingDown }

func TestServiceStateString(t *testing.T) {
	require.Equal(t, "stopped", Stopped.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "failed", Failed.String())
	require.Equal(t, "unknown", ServiceState(99).String())
}

func TestNewSupervisorStartsStopped(t *testing.T) {
	spec := ProcessSpec{
		Name:    "echo-once",
		Command: "echo",
		Args:    func(*config.Config) []string { return nil },
	}
	sup := New(spec, &config.Config{}, bus.New(bus.MinBufferSize), &fakeStatus{}, zap.NewNop().Sugar())

	require.Equal(t, Stopped, sup.CurrentState())
	require.Equal(t, 0, sup.PID())
	require.Equal(t, uint64(0), sup.Restarts())
}

func TestSignalIsNoopWithoutRunningChild(t *testing.T) {
	spec := ProcessSpec{Name: "nop", Command: "true", Args: func(*config.Config) []string { return nil }}
	sup := New(spec, &config.Config{}, bus.New(bus.MinBufferSize), &fakeStatus{}, zap.NewNop().Sugar())

	require.NoError(t, sup.Signal(1))
}

func TestSpawnRunsToCompletionAndReportsFailedAfterExit(t *testing.T) {
	spec := ProcessSpec{
		Name:         "true-once",
		Command:      "true",
		RestartDelay: 10 * time.Millisecond,
		Args:         func(*config.Config) []string { return nil },
	}
	status := &fakeStatus{shuttingDown: true}
	sup := New(spec, &config.Config{}, bus.New(bus.MinBufferSize), status, zap.NewNop().Sugar())

	sup.Spawn()

	require.Eventually(t, func() bool {
		return sup.CurrentState() == Failed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEnvFuncExtendsChildEnvironment(t *testing.T) {
	var seen []string
	spec := ProcessSpec{
		Name:    "env-check",
		Command: "sh",
		Args: func(*config.Config) []string {
			return []string{"-c", "true"}
		},
		Env: func(*config.Config) []string {
			seen = []string{"VAGABOND_TEST=1"}
			return seen
		},
	}
	status := &fakeStatus{shuttingDown: true}
	sup := New(spec, &config.Config{}, bus.New(bus.MinBufferSize), status, zap.NewNop().Sugar())

	sup.Spawn()

	require.Eventually(t, func() bool {
		return sup.CurrentState() == Failed
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"VAGABOND_TEST=1"}, seen)
}

func TestRunOnceReturnsOutputOnFailure(t *testing.T) {
	out, err := RunOnce(context.Background(), "sh", "-c", "echo boom; exit 1")
	require.Error(t, err)
	require.Contains(t, string(out), "boom")
}
