// Package system implements the System Configurator (§4.4): sysctl knobs,
// the netfilter/NAT rule graph, interface addressing, the DHCP client pool,
// and WireGuard bring-up, applied in that order during startup.
package system

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

const udhcpcCommand = "udhcpc"

// restartDelay is the pause between restart attempts for daemons this
// package supervises directly (DHCP clients); daemon adapters elsewhere in
// the tree set their own per-service delay.
const restartDelay = 8 * time.Second

// statusChecker mirrors supervisor.statusChecker, letting this package build
// Supervisors without importing internal/state.
type statusChecker interface {
	IsShuttingDown() bool
}

// Configurator owns the DHCP client registry keyed by interface name, so
// dhcp_renew/dhcp_release (§4.6) can target the right child.
type Configurator struct {
	cfg    *config.Config
	bus    *bus.Bus
	status statusChecker
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[string]*supervisor.Supervisor
}

// New constructs a Configurator bound to cfg; it does not apply anything
// until Run is called.
func New(cfg *config.Config, b *bus.Bus, status statusChecker, logger *zap.SugaredLogger) *Configurator {
	return &Configurator{
		cfg:     cfg,
		bus:     b,
		status:  status,
		logger:  logger,
		clients: make(map[string]*supervisor.Supervisor),
	}
}

// DHCPClient returns the supervisor managing the DHCP client on iface, or
// nil if no such client exists.
func (c *Configurator) DHCPClient(iface string) *supervisor.Supervisor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clients[iface]
}

// DHCPClients returns a snapshot of every registered DHCP client
// supervisor, keyed by "udhcpc-<iface>", for the metrics endpoint.
func (c *Configurator) DHCPClients() map[string]*supervisor.Supervisor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*supervisor.Supervisor, len(c.clients))
	for iface, sup := range c.clients {
		out["udhcpc-"+iface] = sup
	}
	return out
}

// Run applies §4.4 in order: sysctl, netfilter, interface addressing plus
// DHCP client spawn, then WireGuard bring-up. Only a sysctl write failure
// (which can happen only as root; non-root skips sysctl) is returned to the
// caller. Netfilter, interface and WireGuard failures are logged as
// warnings and setup continues, whether or not the daemon runs as root.
func (c *Configurator) Run(ctx context.Context) error {
	if err := ApplySysctls(c.logger); err != nil {
		return errors.Wrap(err, "system: sysctl")
	}

	if err := ApplyNetfilter(ctx, c.cfg, c.logger); err != nil {
		c.logger.Warnw("netfilter setup failed", "error", err)
	}

	for _, wan := range c.cfg.Network.Wan {
		switch wan.Type {
		case config.WanDHCP:
			c.spawnDHCPClient(wan.Interface)
		case config.WanWifi:
			if wan.SpawnsDHCPClient() {
				c.spawnDHCPClient(wan.Interface)
			}
		}
	}

	if c.cfg.Network.Lan.Enabled {
		lan := c.cfg.Network.Lan
		if err := c.bringUpInterface(lan.Interface, lan.Address, lan.Subnet); err != nil {
			c.logger.Warnw("lan interface setup failed", "interface", lan.Interface, "error", err)
		}
	}
	if c.cfg.Network.Wlan.Enabled {
		wlan := c.cfg.Network.Wlan
		if err := c.bringUpInterface(wlan.Interface, wlan.Address, wlan.Subnet); err != nil {
			c.logger.Warnw("wlan interface setup failed", "interface", wlan.Interface, "error", err)
		}
	}

	if c.cfg.Wireguard.Enabled {
		if err := EnsureWireguardLink(c.cfg.Wireguard.Interface); err != nil {
			c.logger.Warnw("wireguard link create failed", "interface", c.cfg.Wireguard.Interface, "error", err)
		}
		if err := BringUpWireguard(ctx, c.cfg.Wireguard, c.logger); err != nil {
			c.logger.Warnw("wireguard bring-up failed", "error", err)
		}
	}

	return nil
}

// DhcpRenew implements the DHCP client adapter's renew(): SIGUSR1 to the
// udhcpc running on iface. Returns an error naming the interface if no
// client is registered for it, matching §8 scenario 4's
// "error: Interface eth1 not found!" wording.
func (c *Configurator) DhcpRenew(iface string) error {
	sup := c.DHCPClient(iface)
	if sup == nil {
		return errors.Errorf("Interface %s not found!", iface)
	}
	return sup.Signal(syscall.SIGUSR1)
}

// DhcpRelease implements the DHCP client adapter's release(): SIGUSR2 to the
// udhcpc running on iface.
func (c *Configurator) DhcpRelease(iface string) error {
	sup := c.DHCPClient(iface)
	if sup == nil {
		return errors.Errorf("Interface %s not found!", iface)
	}
	return sup.Signal(syscall.SIGUSR2)
}

func (c *Configurator) bringUpInterface(iface, address, subnet string) error {
	if err := LinkUp(iface); err != nil {
		return errors.Wrapf(err, "link up %s", iface)
	}
	addr := fmt.Sprintf("%s/%s", address, subnetPrefix(subnet))
	if err := AddrChange(iface, addr); err != nil {
		return errors.Wrapf(err, "addr change %s", iface)
	}
	return nil
}

// subnetPrefix extracts the prefix length from a CIDR subnet string like
// "192.168.1.0/24", returning "32" if the string carries none.
func subnetPrefix(subnet string) string {
	for i := len(subnet) - 1; i >= 0; i-- {
		if subnet[i] == '/' {
			return subnet[i+1:]
		}
	}
	return "32"
}

func (c *Configurator) spawnDHCPClient(iface string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.clients[iface]; exists {
		return
	}

	spec := supervisor.ProcessSpec{
		Name:         "udhcpc-" + iface,
		Command:      udhcpcCommand,
		RestartDelay: restartDelay,
		Args: func(*config.Config) []string {
			return []string{"-i", iface, "-f"}
		},
	}
	sup := supervisor.New(spec, c.cfg, c.bus, c.status, c.logger)
	c.clients[iface] = sup
	sup.Spawn()
}
