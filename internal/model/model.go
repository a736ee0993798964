// Package model holds the data types exchanged at Vagabond's boundaries:
// interface snapshots, Wi-Fi views, and service status records.
package model

import (
	"net"
	"strings"
)

// AddressFamily tags an interface address as IPv4, IPv6, or a hardware
// (MAC) address.
type AddressFamily string

const (
	// AddrV4 is an IPv4 address.
	AddrV4 AddressFamily = "v4"
	// AddrV6 is an IPv6 address.
	AddrV6 AddressFamily = "v6"
	// AddrMAC is a hardware (link-layer) address.
	AddrMAC AddressFamily = "mac"
)

// Address is one address attached to an interface.
type Address struct {
	Family AddressFamily `json:"family"`
	Addr   string        `json:"addr"`
	CIDR   int           `json:"cidr,omitempty"`
}

// Interface is a read-only snapshot of one network interface's state.
type Interface struct {
	Name      string    `json:"name"`
	Up        bool      `json:"up"`
	Addresses []Address `json:"addresses"`
}

// Snapshot builds the interface map for the named interfaces by querying
// the OS; interfaces not present on the host are silently omitted.
func Snapshot(names []string) map[string]Interface {
	out := make(map[string]Interface, len(names))
	for _, name := range names {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			continue
		}

		entry := Interface{
			Name: iface.Name,
			Up:   iface.Flags&net.FlagUp != 0,
		}
		if len(iface.HardwareAddr) == 6 {
			entry.Addresses = append(entry.Addresses, Address{
				Family: AddrMAC,
				Addr:   iface.HardwareAddr.String(),
			})
		}
		if addrs, err := iface.Addrs(); err == nil {
			for _, a := range addrs {
				ipnet, ok := a.(*net.IPNet)
				if !ok {
					continue
				}
				family := AddrV4
				if ipnet.IP.To4() == nil {
					family = AddrV6
				}
				ones, _ := ipnet.Mask.Size()
				entry.Addresses = append(entry.Addresses, Address{
					Family: family,
					Addr:   ipnet.IP.String(),
					CIDR:   ones,
				})
			}
		}
		out[name] = entry
	}
	return out
}

// WifiSecurity is the security scheme of a scanned network.
type WifiSecurity string

const (
	SecurityOpen WifiSecurity = "open"
	SecurityWEP  WifiSecurity = "wep"
	SecurityPSK  WifiSecurity = "psk"
)

// OtherSecurity wraps an iwd security string this code doesn't recognize,
// preserving it instead of discarding it, per the round-trip law in §8.
type OtherSecurity struct {
	Raw string
}

func (o OtherSecurity) String() string { return o.Raw }

// ParseWifiSecurity is case-insensitive over {psk,wep,open}; anything else
// is preserved verbatim rather than rejected.
func ParseWifiSecurity(s string) (WifiSecurity, *OtherSecurity) {
	switch strings.ToLower(s) {
	case "psk":
		return SecurityPSK, nil
	case "wep":
		return SecurityWEP, nil
	case "open":
		return SecurityOpen, nil
	default:
		return "", &OtherSecurity{Raw: s}
	}
}

// WifiNetwork is one scan-result entry.
type WifiNetwork struct {
	SSID      string  `json:"ssid"`
	Security  string  `json:"security"`
	Signal    int16   `json:"signal"`
	Known     bool    `json:"known"`
	Interface *string `json:"interface"`
}

// WifiDevice describes the local wireless adapter's current state.
type WifiDevice struct {
	Name             string   `json:"name"`
	Phy              string   `json:"phy"`
	State            string   `json:"state"`
	Address          string   `json:"address"`
	Powered          bool     `json:"powered"`
	Scanning         bool     `json:"scanning"`
	Mode             string   `json:"mode"`
	SupportedModes   []string `json:"supported_modes"`
	Model            string   `json:"model"`
	Vendor           string   `json:"vendor"`
	ConnectedNetwork *string  `json:"connected_network"`
}

// ServiceStatus is the externally-visible state of one managed daemon.
type ServiceStatus struct {
	Enabled bool   `json:"enabled"`
	State   string `json:"state"`
	Detail  string `json:"detail,omitempty"`
}

// WithDefault fills a blank string with "unknown", matching the spec's
// safe-default projection for WifiDevice; blank MACs are handled by
// FormatMAC.
func WithDefault(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ZeroMAC is the default address shown when iwd reports none.
const ZeroMAC = "00:00:00:00:00:00"

// FormatMAC returns addr, or ZeroMAC if addr is empty.
func FormatMAC(addr string) string {
	if addr == "" {
		return ZeroMAC
	}
	return addr
}

// WifiSecurityLabel renders sec/other back into the wire string used by
// WifiNetwork.Security.
func WifiSecurityLabel(sec WifiSecurity, other *OtherSecurity) string {
	if other != nil {
		return other.Raw
	}
	return string(sec)
}
