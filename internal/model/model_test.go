package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotOmitsMissingInterfaces(t *testing.T) {
	out := Snapshot([]string{"definitely-not-a-real-interface-xyz"})
	require.Empty(t, out)
}

func TestSnapshotEmptyInput(t *testing.T) {
	require.Empty(t, Snapshot(nil))
}

func TestParseWifiSecurityKnownValues(t *testing.T) {
	sec, other := ParseWifiSecurity("PSK")
	require.Equal(t, SecurityPSK, sec)
	require.Nil(t, other)

	sec, other = ParseWifiSecurity("wep")
	require.Equal(t, SecurityWEP, sec)
	require.Nil(t, other)

	sec, other = ParseWifiSecurity("Open")
	require.Equal(t, SecurityOpen, sec)
	require.Nil(t, other)
}

func TestParseWifiSecurityPreservesUnknownValue(t *testing.T) {
	sec, other := ParseWifiSecurity("sae")
	require.Equal(t, WifiSecurity(""), sec)
	require.NotNil(t, other)
	require.Equal(t, "sae", other.Raw)
	require.Equal(t, "sae", other.String())
}

func TestWifiSecurityLabelRoundTrips(t *testing.T) {
	require.Equal(t, "psk", WifiSecurityLabel(SecurityPSK, nil))
	require.Equal(t, "sae", WifiSecurityLabel("", &OtherSecurity{Raw: "sae"}))
}

func TestWithDefault(t *testing.T) {
	require.Equal(t, "unknown", WithDefault(""))
	require.Equal(t, "wlan0", WithDefault("wlan0"))
}

func TestFormatMAC(t *testing.T) {
	require.Equal(t, ZeroMAC, FormatMAC(""))
	require.Equal(t, "aa:bb:cc:dd:ee:ff", FormatMAC("aa:bb:cc:dd:ee:ff"))
}
