package applog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewBuildsALogger(t *testing.T) {
	logger, err := New("vagabond-test", "info")
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New("vagabond-test", "not-a-level")
	require.Error(t, err)
}

func TestSetLevelAcceptsTraceAsDebugAlias(t *testing.T) {
	require.NoError(t, SetLevel("trace"))
	require.NoError(t, SetLevel("debug"))
}

func TestNewChildBuildsALogger(t *testing.T) {
	logger, err := NewChild()
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestThrottledLoggerSuppressesBurst(t *testing.T) {
	logger, err := New("vagabond-test", "info")
	require.NoError(t, err)

	tl := Throttled(logger, time.Hour, time.Hour)
	require.True(t, tl.ready(), "first call should always be ready")
	require.False(t, tl.ready(), "second call within the base delay should be suppressed")
}

func TestThrottledLoggerClearResetsBackoff(t *testing.T) {
	logger, err := New("vagabond-test", "info")
	require.NoError(t, err)

	tl := Throttled(logger, time.Hour, time.Hour)
	require.True(t, tl.ready())
	tl.Clear()
	require.True(t, tl.ready(), "Clear should make the next call ready immediately")
}
