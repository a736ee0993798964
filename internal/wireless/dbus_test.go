package wireless

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestConnStateString(t *testing.T) {
	require.Equal(t, "stopped", stateStopped.String())
	require.Equal(t, "connected", stateConnected.String())
	require.Equal(t, "failed", stateFailed.String())
}

func TestPropertyHelpers(t *testing.T) {
	props := map[string]dbus.Variant{
		"Name":    dbus.MakeVariant("wlan0"),
		"Powered": dbus.MakeVariant(true),
		"Adapter": dbus.MakeVariant(dbus.ObjectPath("/net/connman/iwd/0")),
		"Modes":   dbus.MakeVariant([]string{"station", "ap"}),
	}

	require.Equal(t, "wlan0", stringProp(props, "Name"))
	require.Equal(t, "", stringProp(props, "Missing"))
	require.True(t, boolProp(props, "Powered"))
	require.False(t, boolProp(props, "Missing"))
	require.Equal(t, dbus.ObjectPath("/net/connman/iwd/0"), pathProp(props, "Adapter"))
	require.Equal(t, dbus.ObjectPath(""), pathProp(props, "Missing"))
	require.Equal(t, []string{"station", "ap"}, stringSliceProp(props, "Modes"))
	require.Nil(t, stringSliceProp(props, "Missing"))
}

func TestHandleRejectsWhenNotConnected(t *testing.T) {
	br := New(fakeStatus{}, testLogger())
	_, err := br.handle()
	require.Error(t, err)
}

type fakeStatus struct{}

func (fakeStatus) IsShuttingDown() bool { return true }
