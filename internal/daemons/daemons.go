// Package daemons implements the per-daemon Process Supervisor adapters
// (§4.3): DNS (unbound), DHCP server (LAN/WLAN variants via udhcpd),
// hostapd, dbus-daemon, and iwd. Each adapter contributes a ProcessSpec, an
// optional templated config file, and a spawn() that logs "disabled" when
// its feature is off in config rather than starting the child.
package daemons

import (
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/bus"
	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/model"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// statusChecker mirrors supervisor.statusChecker, letting this package build
// Supervisors without importing internal/state.
type statusChecker interface {
	IsShuttingDown() bool
}

// generatedHeader is prepended to every rendered config file, matching §6's
// "generated by Vagabond; may be overwritten" convention.
const generatedHeader = "# generated by vagabond; may be overwritten\n"

// renderToFile executes tmpl with data and atomically installs the result
// at path: write to a temp file in the same directory, then rename into
// place, so a reader never observes a partially-written config.
func renderToFile(tmpl *template.Template, data interface{}, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "daemons: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".vagabond-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "daemons: create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(generatedHeader); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "daemons: write header to %s", tmp.Name())
	}
	if err := tmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "daemons: render %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "daemons: close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "daemons: install %s", path)
	}
	return nil
}

// ensureEmptyFile creates path (and its parent directory) as an empty file
// if it does not already exist, leaving existing content untouched.
func ensureEmptyFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "daemons: mkdir %s", dir)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return errors.Wrapf(err, "daemons: create %s", path)
	}
	return f.Close()
}

// Registry owns every daemon adapter's supervisor, so Status() can report
// the externally-visible ServiceStatus the WebSocket get_status reply
// needs.
type Registry struct {
	cfg    *config.Config
	bus    *bus.Bus
	status statusChecker
	logger *zap.SugaredLogger

	dbusDaemon *supervisor.Supervisor
	iwd        *supervisor.Supervisor
	unbound    *supervisor.Supervisor
	hostapd    *supervisor.Supervisor
	dhcpdLan   *supervisor.Supervisor
	dhcpdWlan  *supervisor.Supervisor
}

// New constructs a Registry bound to cfg; it spawns nothing until SpawnAll
// is called.
func New(cfg *config.Config, b *bus.Bus, status statusChecker, logger *zap.SugaredLogger) *Registry {
	return &Registry{cfg: cfg, bus: b, status: status, logger: logger}
}

func (r *Registry) supervise(spec supervisor.ProcessSpec) *supervisor.Supervisor {
	sup := supervisor.New(spec, r.cfg, r.bus, r.status, r.logger)
	sup.Spawn()
	return sup
}

// SpawnAll starts every enabled daemon adapter, in the order dbus-daemon and
// iwd (infrastructure the wireless Object Broker depends on) first, then the
// feature daemons.
func (r *Registry) SpawnAll() error {
	r.spawnDbusDaemon()
	r.spawnIWD()

	if err := r.spawnDNS(); err != nil {
		return err
	}
	if err := r.spawnDHCP(); err != nil {
		return err
	}
	if err := r.spawnHostapd(); err != nil {
		return err
	}
	return nil
}

func serviceStatus(enabled bool, sup *supervisor.Supervisor) model.ServiceStatus {
	if !enabled || sup == nil {
		return model.ServiceStatus{Enabled: enabled, State: "disabled"}
	}
	return model.ServiceStatus{Enabled: enabled, State: sup.CurrentState().String()}
}

// Supervisors returns every currently-spawned adapter supervisor, keyed by
// service name, for the metrics endpoint.
func (r *Registry) Supervisors() map[string]*supervisor.Supervisor {
	out := make(map[string]*supervisor.Supervisor)
	for name, sup := range map[string]*supervisor.Supervisor{
		"dbus-daemon": r.dbusDaemon,
		"iwd":         r.iwd,
		"unbound":     r.unbound,
		"hostapd":     r.hostapd,
		"udhcpd-lan":  r.dhcpdLan,
		"udhcpd-wlan": r.dhcpdWlan,
	} {
		if sup != nil {
			out[name] = sup
		}
	}
	return out
}

// Status reports the three ServiceStatus records §4.6's get_status reply
// names: hostapd, unbound, dhcpd.
func (r *Registry) Status() map[string]model.ServiceStatus {
	dhcpd := r.dhcpdLan
	if dhcpd == nil {
		dhcpd = r.dhcpdWlan
	}

	return map[string]model.ServiceStatus{
		"hostapd": serviceStatus(r.cfg.Network.Wlan.Enabled, r.hostapd),
		"unbound": serviceStatus(r.cfg.DNS.Enabled, r.unbound),
		"dhcpd":   serviceStatus(r.cfg.DHCP.Enabled, dhcpd),
	}
}
