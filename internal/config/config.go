// Package config loads and validates Vagabond's declarative TOML
// configuration. The resulting Config is immutable after Load returns; every
// component is handed a pointer to the same snapshot and never mutates it.
package config

import (
	"net"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// WanKind tags the variant of a configured WAN interface.
type WanKind string

const (
	// WanDHCP means the interface obtains its address via a DHCP client.
	WanDHCP WanKind = "dhcp"
	// WanWifi means the interface is iwd-managed; by default it also
	// gets a DHCP client (see Wan.WifiSpawnsDHCPClient).
	WanWifi WanKind = "wifi"
	// WanUnmanaged means Vagabond leaves the interface alone beyond
	// including it in the firewall/NAT graph.
	WanUnmanaged WanKind = "unmanaged"
)

// Wan describes one upstream/internet-facing interface.
type Wan struct {
	Type      WanKind `toml:"type"`
	Interface string  `toml:"interface"`

	// WifiSpawnsDHCPClient resolves the spec's Wi-Fi-WAN open question:
	// for Type==wifi, a DHCP client supervisor is spawned on this
	// interface unless explicitly disabled here. Ignored for other
	// Types. Defaults to true (a nil value is treated as true by
	// SpawnsDHCPClient).
	WifiSpawnsDHCPClient *bool `toml:"wifi_spawns_dhcp_client"`
}

// SpawnsDHCPClient reports whether this WAN should get a DHCP client
// supervisor under §4.4(c)'s interface bring-up rules.
func (w Wan) SpawnsDHCPClient() bool {
	switch w.Type {
	case WanDHCP:
		return true
	case WanWifi:
		return w.WifiSpawnsDHCPClient == nil || *w.WifiSpawnsDHCPClient
	default:
		return false
	}
}

// Lan describes the wired LAN bridge.
type Lan struct {
	Enabled   bool   `toml:"enabled"`
	Interface string `toml:"interface"`
	Subnet    string `toml:"subnet"`
	Address   string `toml:"address"`
}

// Wlan describes the wireless AP interface, layered on top of Lan's fields.
type Wlan struct {
	Enabled       bool   `toml:"enabled"`
	Interface     string `toml:"interface"`
	Subnet        string `toml:"subnet"`
	Address       string `toml:"address"`
	Channel       int    `toml:"channel"`
	SSID          string `toml:"ssid"`
	HostapdConfig string `toml:"hostapd_config"`
}

// Network holds the interface/addressing/firewall-relevant configuration.
type Network struct {
	Domain       string `toml:"domain"`
	ManageRoutes bool   `toml:"manage_routes"`
	Lan          Lan    `toml:"lan"`
	Wlan         Wlan   `toml:"wlan"`
	Wan          []Wan  `toml:"wan"`
}

// Interfaces returns every interface name this config references: LAN (if
// enabled), WLAN (if enabled), and every WAN.
func (n Network) Interfaces() []string {
	var out []string
	if n.Lan.Enabled {
		out = append(out, n.Lan.Interface)
	}
	if n.Wlan.Enabled {
		out = append(out, n.Wlan.Interface)
	}
	for _, w := range n.Wan {
		out = append(out, w.Interface)
	}
	return out
}

// DNS configures the unbound-backed resolver.
type DNS struct {
	Enabled        bool              `toml:"enabled"`
	BlockMalicious bool              `toml:"block_malicious"`
	Port           int               `toml:"port"`
	Servers        []string          `toml:"servers"`
	ExtraOptions   map[string]string `toml:"extra_options"`
}

// DHCPRange is an inclusive address range handed to the DHCP server.
type DHCPRange struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

// DHCP configures the LAN/WLAN DHCP server(s).
type DHCP struct {
	Enabled     bool      `toml:"enabled"`
	ExtraConfig string    `toml:"extra_config"`
	Lan         DHCPRange `toml:"lan"`
	Wlan        DHCPRange `toml:"wlan"`
}

// WireguardPeer is one remote peer of the local WireGuard interface.
type WireguardPeer struct {
	PublicKey    string   `toml:"public_key"`
	Endpoint     string   `toml:"endpoint"`
	EndpointPort int      `toml:"endpoint_port"`
	AllowedIPs   []string `toml:"allowed_ips"`
}

// Wireguard configures the optional VPN endpoint.
type Wireguard struct {
	Enabled    bool            `toml:"enabled"`
	Interface  string          `toml:"interface"`
	Address    string          `toml:"address"`
	PrivateKey string          `toml:"private_key"`
	Peer       []WireguardPeer `toml:"peer"`
}

// Config is the fully decoded, validated, immutable configuration tree.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	Network   Network   `toml:"network"`
	DNS       DNS       `toml:"dns"`
	DHCP      DHCP      `toml:"dhcp"`
	Wireguard Wireguard `toml:"wireguard"`
}

// Default returns a Config with every documented default applied.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		DNS: DNS{
			Enabled: true,
			Port:    53,
			Servers: []string{"1.1.1.1", "8.8.8.8"},
		},
		DHCP: DHCP{
			Enabled: true,
		},
	}
}

// Load reads and strictly decodes a TOML file at path: any key present in
// the file that doesn't correspond to a known field is a fatal error,
// matching the spec's "schema strict / unknown fields rejected" contract.
func Load(path string) (*Config, error) {
	cfg := Default()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown configuration key(s): %v", path, undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// Validate checks the cross-field invariants §3 requires: every interface
// that enters the firewall graph (LAN and WLAN when enabled, every WAN, and
// the WireGuard interface when enabled) must have a name, every WAN must
// have a known type, and the LAN subnet must parse as CIDR when present.
// Duplicate interface names are not detected, and the WLAN subnet and the
// address fields are not parsed.
func (c *Config) Validate() error {
	if c.Network.Lan.Enabled {
		if c.Network.Lan.Interface == "" {
			return errors.New("network.lan.enabled requires network.lan.interface")
		}
		if err := validateCIDR(c.Network.Lan.Subnet); err != nil {
			return errors.Wrap(err, "network.lan.subnet")
		}
	}
	if c.Network.Wlan.Enabled {
		if c.Network.Wlan.Interface == "" {
			return errors.New("network.wlan.enabled requires network.wlan.interface")
		}
	}
	for i, w := range c.Network.Wan {
		if w.Interface == "" {
			return errors.Errorf("network.wan[%d]: interface is required", i)
		}
		switch w.Type {
		case WanDHCP, WanWifi, WanUnmanaged:
		default:
			return errors.Errorf("network.wan[%d]: unknown type %q", i, w.Type)
		}
	}
	if c.Wireguard.Enabled && c.Wireguard.Interface == "" {
		return errors.New("wireguard.enabled requires wireguard.interface")
	}
	return nil
}

func validateCIDR(s string) error {
	if s == "" {
		return nil
	}
	_, _, err := net.ParseCIDR(s)
	return err
}
