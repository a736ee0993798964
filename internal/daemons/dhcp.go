package daemons

import (
	"text/template"
	"time"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// dhcpLeaseFile is the fixed path §6 names ("created empty on first run if
// absent").
const dhcpLeaseFile = "/var/lib/dhcp/dhcpd.leases"

var udhcpdTemplate = template.Must(template.New("udhcpd").Parse(
	`interface	{{.Interface}}
start	{{.Range.Start}}
end	{{.Range.End}}
lease_file	{{.LeaseFile}}
{{.ExtraConfig}}
`))

type udhcpdView struct {
	Interface   string
	Range       config.DHCPRange
	LeaseFile   string
	ExtraConfig string
}

// spawnVariant renders and supervises one udhcpd instance for one of the
// LAN/WLAN variants §4.3 names. confPath/leaseFile are per-variant so the
// two servers never collide on the same file.
func (r *Registry) spawnVariant(name, iface, confPath, leaseFile string, rng config.DHCPRange) (*supervisor.Supervisor, error) {
	view := udhcpdView{
		Interface:   iface,
		Range:       rng,
		LeaseFile:   leaseFile,
		ExtraConfig: r.cfg.DHCP.ExtraConfig,
	}
	if err := renderToFile(udhcpdTemplate, view, confPath); err != nil {
		return nil, err
	}
	if err := ensureEmptyFile(leaseFile); err != nil {
		return nil, err
	}

	confPathCopy := confPath
	return r.supervise(supervisor.ProcessSpec{
		Name:         name,
		Command:      "udhcpd",
		RestartDelay: 8 * time.Second,
		Args: func(*config.Config) []string {
			return []string{"-f", confPathCopy}
		},
	}), nil
}

// spawnDHCP supervises one udhcpd per enabled LAN/WLAN interface, or logs
// "disabled" if dhcp.enabled is false.
func (r *Registry) spawnDHCP() error {
	if !r.cfg.DHCP.Enabled {
		r.logger.Infow("dhcpd disabled")
		return nil
	}

	if err := ensureEmptyFile(dhcpLeaseFile); err != nil {
		return err
	}

	if r.cfg.Network.Lan.Enabled {
		sup, err := r.spawnVariant("udhcpd-lan", r.cfg.Network.Lan.Interface,
			"/etc/udhcpd.lan.conf", "/var/lib/dhcp/udhcpd.lan.leases", r.cfg.DHCP.Lan)
		if err != nil {
			return err
		}
		r.dhcpdLan = sup
	}

	if r.cfg.Network.Wlan.Enabled {
		sup, err := r.spawnVariant("udhcpd-wlan", r.cfg.Network.Wlan.Interface,
			"/etc/udhcpd.wlan.conf", "/var/lib/dhcp/udhcpd.wlan.leases", r.cfg.DHCP.Wlan)
		if err != nil {
			return err
		}
		r.dhcpdWlan = sup
	}

	return nil
}
