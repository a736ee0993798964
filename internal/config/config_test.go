package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultAppliesDocumentedDefaults(t *testing.T) {
	cfg := Default()

	require.Equal(t, "info", cfg.LogLevel)
	require.True(t, cfg.DNS.Enabled)
	require.Equal(t, 53, cfg.DNS.Port)
	require.Equal(t, []string{"1.1.1.1", "8.8.8.8"}, cfg.DNS.Servers)
	require.True(t, cfg.DHCP.Enabled)
}

func TestWanSpawnsDHCPClient(t *testing.T) {
	require.True(t, Wan{Type: WanDHCP}.SpawnsDHCPClient())
	require.True(t, Wan{Type: WanWifi}.SpawnsDHCPClient())
	require.False(t, Wan{Type: WanUnmanaged}.SpawnsDHCPClient())

	disabled := false
	require.False(t, Wan{Type: WanWifi, WifiSpawnsDHCPClient: &disabled}.SpawnsDHCPClient())

	enabled := true
	require.True(t, Wan{Type: WanWifi, WifiSpawnsDHCPClient: &enabled}.SpawnsDHCPClient())
}

func TestNetworkInterfacesCollectsEnabledOnes(t *testing.T) {
	n := Network{
		Lan:  Lan{Enabled: true, Interface: "br-lan"},
		Wlan: Wlan{Enabled: false, Interface: "wlan0"},
		Wan: []Wan{
			{Type: WanDHCP, Interface: "eth0"},
			{Type: WanWifi, Interface: "wlan1"},
		},
	}

	require.Equal(t, []string{"br-lan", "eth0", "wlan1"}, n.Interfaces())
}

func TestValidateRequiresLanInterfaceWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Network.Lan.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "network.lan.interface")
}

func TestValidateRejectsBadLanSubnet(t *testing.T) {
	cfg := Default()
	cfg.Network.Lan = Lan{Enabled: true, Interface: "br-lan", Subnet: "not-a-cidr"}

	require.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedLan(t *testing.T) {
	cfg := Default()
	cfg.Network.Lan = Lan{Enabled: true, Interface: "br-lan", Subnet: "192.168.1.0/24", Address: "192.168.1.1"}

	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresWlanInterfaceWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Network.Wlan.Enabled = true

	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownWanType(t *testing.T) {
	cfg := Default()
	cfg.Network.Wan = []Wan{{Type: "bogus", Interface: "eth0"}}

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown type")
}

func TestValidateRequiresWanInterfaceName(t *testing.T) {
	cfg := Default()
	cfg.Network.Wan = []Wan{{Type: WanDHCP}}

	require.Error(t, cfg.Validate())
}

func TestValidateRequiresWireguardInterfaceWhenEnabled(t *testing.T) {
	cfg := Default()
	cfg.Wireguard.Enabled = true

	require.Error(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vagabond.toml")
	require.NoError(t, os.WriteFile(path, []byte("bogus_top_level_key = true\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown configuration key")
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vagabond.toml")
	body := `
log_level = "debug"

[network.lan]
enabled = true
interface = "br-lan"
subnet = "192.168.1.0/24"
address = "192.168.1.1"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.True(t, cfg.Network.Lan.Enabled)
	require.True(t, cfg.DNS.Enabled, "Load should start from Default() before decoding")
}

func TestLoadPropagatesValidationErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vagabond.toml")
	body := `
[network.lan]
enabled = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
