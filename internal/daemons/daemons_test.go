package daemons

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/config"
)

type alreadyShuttingDown struct{}

func (alreadyShuttingDown) IsShuttingDown() bool { return true }

func TestStatusReportsDisabledWhenFeatureOff(t *testing.T) {
	cfg := &config.Config{}
	r := New(cfg, nil, alreadyShuttingDown{}, zap.NewNop().Sugar())

	status := r.Status()
	require.Equal(t, "disabled", status["hostapd"].State)
	require.False(t, status["hostapd"].Enabled)
	require.Equal(t, "disabled", status["unbound"].State)
	require.Equal(t, "disabled", status["dhcpd"].State)
}

func TestRenderToFileWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.conf")

	err := renderToFile(unboundTemplate, config.DNS{Port: 53, Servers: []string{"1.1.1.1"}}, path)
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "port: 53")
	require.Contains(t, string(body), "1.1.1.1")
	require.Contains(t, string(body), "generated by vagabond")
}

func TestUdhcpdTemplateRendersRangeAndLeaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "udhcpd.lan.conf")

	view := udhcpdView{
		Interface:   "br-lan",
		Range:       config.DHCPRange{Start: "192.168.1.10", End: "192.168.1.200"},
		LeaseFile:   "/var/lib/dhcp/udhcpd.lan.leases",
		ExtraConfig: "option dns 192.168.1.1",
	}
	require.NoError(t, renderToFile(udhcpdTemplate, view, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "interface\tbr-lan")
	require.Contains(t, string(body), "start\t192.168.1.10")
	require.Contains(t, string(body), "end\t192.168.1.200")
	require.Contains(t, string(body), "option dns 192.168.1.1")
}

func TestHostapdTemplateRendersChannelAndSSID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostapd.conf")

	wlan := config.Wlan{Interface: "wlan0", SSID: "vagabond-ap", Channel: 6}
	require.NoError(t, renderToFile(hostapdTemplate, wlan, path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "interface=wlan0")
	require.Contains(t, string(body), "ssid=vagabond-ap")
	require.Contains(t, string(body), "channel=6")
}

func TestSpawnDHCPSkipsDisabledVariants(t *testing.T) {
	cfg := &config.Config{}
	r := New(cfg, nil, alreadyShuttingDown{}, zap.NewNop().Sugar())

	require.NoError(t, r.spawnDHCP())
	require.Nil(t, r.dhcpdLan)
	require.Nil(t, r.dhcpdWlan)
}

func TestSpawnHostapdSkipsWhenWlanDisabled(t *testing.T) {
	cfg := &config.Config{}
	r := New(cfg, nil, alreadyShuttingDown{}, zap.NewNop().Sugar())

	require.NoError(t, r.spawnHostapd())
	require.Nil(t, r.hostapd)
}

func TestEnsureEmptyFileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leases", "dhcpd.leases")

	require.NoError(t, ensureEmptyFile(path))
	require.NoError(t, os.WriteFile(path, []byte("existing-lease-data"), 0644))
	require.NoError(t, ensureEmptyFile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "existing-lease-data", string(body))
}
