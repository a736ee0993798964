// Package wireless implements the Wireless Control (Object Broker): a typed
// overlay on the iwd D-Bus tree (well-known service net.connman.iwd), plus
// the high-level operations the control-plane WebSocket calls.
package wireless

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/applog"
	"github.com/proctorlabs/vagabond/internal/verrors"
)

const (
	serviceName  = "net.connman.iwd"
	ifaceNetwork = "net.connman.iwd.Network"
	ifaceStation = "net.connman.iwd.Station"
	ifaceDevice  = "net.connman.iwd.Device"
	ifaceAdapter = "net.connman.iwd.Adapter"
	ifaceObjMgr  = "org.freedesktop.DBus.ObjectManager"
	ifaceProps   = "org.freedesktop.DBus.Properties"

	callTimeout      = 5 * time.Second
	reconnectBackoff = 5 * time.Second
)

// connState is DbusState from §4.5: Stopped until start() is called,
// Connected while a bus handle is live, Failed between a dropped connection
// and the next reconnect attempt.
type connState int

const (
	stateStopped connState = iota
	stateConnected
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateConnected:
		return "connected"
	case stateFailed:
		return "failed"
	default:
		return "stopped"
	}
}

// statusChecker mirrors supervisor.statusChecker, letting this package watch
// for shutdown without importing internal/state.
type statusChecker interface {
	IsShuttingDown() bool
}

// Broker is the Object Broker: it owns the lazily-established system bus
// connection and exposes the typed proxy objects and high-level operations
// built on top of it.
type Broker struct {
	status statusChecker
	logger *zap.SugaredLogger

	mu    sync.RWMutex
	conn  *dbus.Conn
	state connState
}

// New constructs a Broker. The bus connection is not established until
// Start is called.
func New(status statusChecker, logger *zap.SugaredLogger) *Broker {
	return &Broker{status: status, logger: logger, state: stateStopped}
}

// Start launches the connection driver on its own goroutine: it connects,
// waits for the connection to die, and reconnects after reconnectBackoff,
// until the daemon is shutting down.
func (br *Broker) Start() {
	go br.run()
}

// State reports the current DbusState, mainly for status reporting and
// tests.
func (br *Broker) State() string {
	br.mu.RLock()
	defer br.mu.RUnlock()
	return br.state.String()
}

// reconnectWarnMax is the ceiling the reconnect-loop throttled warnings back
// off to, so a long iwd outage still gets an occasional log line.
const reconnectWarnMax = 5 * time.Minute

func (br *Broker) run() {
	for !br.status.IsShuttingDown() {
		conn, err := dbus.SystemBus()
		if err != nil {
			br.setFailed()
			applog.Throttled(br.logger, reconnectBackoff, reconnectWarnMax).
				Warnf("wireless: system bus connect failed: %v", err)
			time.Sleep(reconnectBackoff)
			continue
		}

		sigCh := make(chan *dbus.Signal, 16)
		conn.Signal(sigCh)

		br.setConn(conn)
		br.logger.Infow("wireless: system bus connected")

		// Drain signals until the channel closes, which godbus does when the
		// connection itself closes; this is our disconnect notification.
		for range sigCh {
		}

		conn.Close()
		br.setFailed()
		applog.Throttled(br.logger, reconnectBackoff, reconnectWarnMax).
			Warnf("wireless: system bus connection lost, reconnecting in %s", reconnectBackoff)
		time.Sleep(reconnectBackoff)
	}
}

func (br *Broker) setConn(conn *dbus.Conn) {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.conn = conn
	br.state = stateConnected
}

func (br *Broker) setFailed() {
	br.mu.Lock()
	defer br.mu.Unlock()
	br.conn = nil
	br.state = stateFailed
}

// handle returns the live connection, or an error if the broker is not
// currently connected.
func (br *Broker) handle() (*dbus.Conn, error) {
	br.mu.RLock()
	defer br.mu.RUnlock()
	if br.state != stateConnected || br.conn == nil {
		return nil, errors.New("wireless: not connected to system bus")
	}
	return br.conn, nil
}

// call invokes method on obj with a callTimeout deadline, so an unresponsive
// iwd cannot hang the calling goroutine indefinitely (§5, §8).
func (br *Broker) call(obj dbus.BusObject, method string, args ...interface{}) *dbus.Call {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return obj.CallWithContext(ctx, method, 0, args...)
}

// getManagedObjects calls ObjectManager.GetManagedObjects on iwd's root
// object, the enumeration primitive every get_all/get_first call is built
// on.
func (br *Broker) getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	conn, err := br.handle()
	if err != nil {
		return nil, err
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := br.call(conn.Object(serviceName, dbus.ObjectPath("/")), ifaceObjMgr+".GetManagedObjects")
	if call.Err != nil {
		return nil, verrors.Wrap(call.Err, "wireless: GetManagedObjects")
	}
	if err := call.Store(&objects); err != nil {
		return nil, verrors.Wrap(err, "wireless: decode GetManagedObjects")
	}
	return objects, nil
}

// getAllProperties fetches every property of the interface iface on path,
// the "populated in one round" property fetch every proxy object uses.
func (br *Broker) getAllProperties(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error) {
	conn, err := br.handle()
	if err != nil {
		return nil, err
	}

	var props map[string]dbus.Variant
	call := br.call(conn.Object(serviceName, path), ifaceProps+".GetAll", iface)
	if call.Err != nil {
		return nil, verrors.Wrap(call.Err, "wireless: GetAll", "path", path, "iface", iface)
	}
	if err := call.Store(&props); err != nil {
		return nil, verrors.Wrap(err, "wireless: decode GetAll", "path", path, "iface", iface)
	}
	return props, nil
}

func stringProp(props map[string]dbus.Variant, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func boolProp(props map[string]dbus.Variant, key string) bool {
	v, ok := props[key]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

func pathProp(props map[string]dbus.Variant, key string) dbus.ObjectPath {
	v, ok := props[key]
	if !ok {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}

func stringSliceProp(props map[string]dbus.Variant, key string) []string {
	v, ok := props[key]
	if !ok {
		return nil
	}
	s, _ := v.Value().([]string)
	return s
}
