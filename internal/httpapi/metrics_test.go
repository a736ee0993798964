package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/daemons"
	"github.com/proctorlabs/vagabond/internal/state"
	"github.com/proctorlabs/vagabond/internal/system"
)

type alreadyShuttingDown struct{}

func (alreadyShuttingDown) IsShuttingDown() bool { return true }

func TestHandleMetricsServesOnceAppInstalled(t *testing.T) {
	cfg := &config.Config{}
	mgr := state.New(cfg)
	b := bus.New(bus.MinBufferSize)
	logger := zap.NewNop().Sugar()

	app := &App{
		Daemons: daemons.New(cfg, b, alreadyShuttingDown{}, logger),
		System:  system.New(cfg, b, alreadyShuttingDown{}, logger),
	}
	require.NoError(t, mgr.SetAppInstance(app))

	s := New(mgr, logger)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	s.handleMetrics(rec, req)

	// No supervisors have been spawned in this test, so the body carries no
	// samples; a 200 confirms the per-request registry builds and scrapes
	// cleanly once an App is installed.
	require.Equal(t, http.StatusOK, rec.Code)
}
