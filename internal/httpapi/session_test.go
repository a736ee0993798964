package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/state"
)

func testServer(cfg *config.Config) *Server {
	return New(state.New(cfg), zap.NewNop().Sugar())
}

func TestDispatchUnknownTypeReturnsSentinel(t *testing.T) {
	s := testServer(&config.Config{})

	_, err := s.dispatch(nil, &App{}, rxMessage{Type: "does_not_exist"})
	require.ErrorIs(t, err, errUnknownType)
}

func TestDispatchListInterfacesEmptyConfig(t *testing.T) {
	s := testServer(&config.Config{})

	reply, err := s.dispatch(nil, &App{}, rxMessage{Type: "list_interfaces"})
	require.NoError(t, err)
	require.Equal(t, "interfaces", reply.Type)
}

func TestDispatchWifiConnectRejectsBadPayload(t *testing.T) {
	s := testServer(&config.Config{})

	_, err := s.dispatch(nil, &App{}, rxMessage{Type: "wifi_connect", Data: json.RawMessage(`not json`)})
	require.Error(t, err)
}

func TestDecodeInterfaceName(t *testing.T) {
	iface, err := decodeInterfaceName(json.RawMessage(`"eth0"`))
	require.NoError(t, err)
	require.Equal(t, "eth0", iface)

	_, err = decodeInterfaceName(json.RawMessage(`123`))
	require.Error(t, err)
}

func TestWirelessConnectParams(t *testing.T) {
	params := wirelessConnectParams(wifiConnectRequest{SSID: "home", PSK: "secret"})
	require.Equal(t, "home", params.SSID)
	require.Equal(t, "secret", params.PSK)
}

func TestAppInstanceErrorsBeforeInstall(t *testing.T) {
	s := testServer(&config.Config{})

	_, err := s.appInstance()
	require.Error(t, err)
}

func TestAppInstanceReturnsInstalledApp(t *testing.T) {
	mgr := state.New(&config.Config{})
	app := &App{}
	require.NoError(t, mgr.SetAppInstance(app))

	s := New(mgr, zap.NewNop().Sugar())
	got, err := s.appInstance()
	require.NoError(t, err)
	require.Same(t, app, got)
}

func TestAppInstanceRejectsWrongType(t *testing.T) {
	mgr := state.New(&config.Config{})
	require.NoError(t, mgr.SetAppInstance("not an app"))

	s := New(mgr, zap.NewNop().Sugar())
	_, err := s.appInstance()
	require.ErrorIs(t, err, errNotAnApp)
}
