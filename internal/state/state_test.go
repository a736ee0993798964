package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "starting", Starting.String())
	require.Equal(t, "running", Running.String())
	require.Equal(t, "shutting-down", ShuttingDown.String())
	require.Equal(t, "unknown", Status(99).String())
}

func TestNewStartsInStartingState(t *testing.T) {
	cfg := &config.Config{}
	m := New(cfg)

	require.Equal(t, Starting, m.CurrentStatus())
	require.False(t, m.IsShuttingDown())
	require.Same(t, cfg, m.Config())
}

func TestFinishStartupTransitionsOnceFromStarting(t *testing.T) {
	m := New(&config.Config{})
	m.FinishStartup()
	require.Equal(t, Running, m.CurrentStatus())

	// Idempotent: calling again while already Running is a no-op.
	m.FinishStartup()
	require.Equal(t, Running, m.CurrentStatus())
}

func TestFinishStartupDoesNotRegressAfterShutdown(t *testing.T) {
	m := New(&config.Config{})
	m.Shutdown()
	m.FinishStartup()
	require.Equal(t, ShuttingDown, m.CurrentStatus())
}

func TestShutdownIsMonotonicAndBroadcasts(t *testing.T) {
	m := New(&config.Config{})
	ch := m.Bus().Subscribe()

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()

	ev := <-ch
	m.Bus().Unsubscribe(ch)
	<-done

	require.True(t, m.IsShuttingDown())
	require.Equal(t, bus.Shutdown, ev.Kind)
}

func TestAppInstanceLifecycle(t *testing.T) {
	m := New(&config.Config{})

	_, err := m.App()
	require.Error(t, err)

	require.NoError(t, m.SetAppInstance("first"))

	got, err := m.App()
	require.NoError(t, err)
	require.Equal(t, "first", got)

	err = m.SetAppInstance("second")
	require.Error(t, err)

	got, err = m.App()
	require.NoError(t, err)
	require.Equal(t, "first", got)
}
