package wireless

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/proctorlabs/vagabond/internal/verrors"
)

// networkProxy is Network{name,connected,type,device,known_network;connect()}.
type networkProxy struct {
	path         dbus.ObjectPath
	name         string
	connected    bool
	netType      string
	device       dbus.ObjectPath
	knownNetwork dbus.ObjectPath
}

func newNetworkProxy(path dbus.ObjectPath, props map[string]dbus.Variant) networkProxy {
	return networkProxy{
		path:         path,
		name:         stringProp(props, "Name"),
		connected:    boolProp(props, "Connected"),
		netType:      stringProp(props, "Type"),
		device:       pathProp(props, "Device"),
		knownNetwork: pathProp(props, "KnownNetwork"),
	}
}

func (br *Broker) connectNetwork(path dbus.ObjectPath) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	call := br.call(conn.Object(serviceName, path), ifaceNetwork+".Connect")
	if call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Network.Connect", "path", path)
	}
	return nil
}

// stationProxy is Station{state,scanning,connected_network; scan, disconnect,
// connect_hidden, get_ordered_networks, register_signal_level_agent, …}.
type stationProxy struct {
	path             dbus.ObjectPath
	state            string
	scanning         bool
	connectedNetwork dbus.ObjectPath
}

func newStationProxy(path dbus.ObjectPath, props map[string]dbus.Variant) stationProxy {
	return stationProxy{
		path:             path,
		state:            stringProp(props, "State"),
		scanning:         boolProp(props, "Scanning"),
		connectedNetwork: pathProp(props, "ConnectedNetwork"),
	}
}

func (br *Broker) stationScan(path dbus.ObjectPath) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	if call := br.call(conn.Object(serviceName, path), ifaceStation+".Scan"); call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Station.Scan", "path", path)
	}
	return nil
}

func (br *Broker) stationDisconnect(path dbus.ObjectPath) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	if call := br.call(conn.Object(serviceName, path), ifaceStation+".Disconnect"); call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Station.Disconnect", "path", path)
	}
	return nil
}

func (br *Broker) stationConnectHidden(path dbus.ObjectPath, ssid string) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	if call := br.call(conn.Object(serviceName, path), ifaceStation+".ConnectHiddenNetwork", ssid); call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Station.ConnectHiddenNetwork", "path", path)
	}
	return nil
}

// orderedNetwork is one (path, rssi) entry returned by
// Station.GetOrderedNetworks, signature a(on).
type orderedNetwork struct {
	Path dbus.ObjectPath
	RSSI int16
}

func (br *Broker) stationOrderedNetworks(path dbus.ObjectPath) ([]orderedNetwork, error) {
	conn, err := br.handle()
	if err != nil {
		return nil, err
	}

	var raw [][]interface{}
	call := br.call(conn.Object(serviceName, path), ifaceStation+".GetOrderedNetworks")
	if call.Err != nil {
		return nil, verrors.Wrap(call.Err, "wireless: Station.GetOrderedNetworks", "path", path)
	}
	if err := call.Store(&raw); err != nil {
		return nil, verrors.Wrap(err, "wireless: decode GetOrderedNetworks", "path", path)
	}

	out := make([]orderedNetwork, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 2 {
			continue
		}
		p, ok := entry[0].(dbus.ObjectPath)
		if !ok {
			continue
		}
		rssi, ok := entry[1].(int16)
		if !ok {
			continue
		}
		out = append(out, orderedNetwork{Path: p, RSSI: rssi})
	}
	return out, nil
}

// signalThresholds is the fixed dBm table §4.5 hands to
// register_signal_level_agent.
var signalThresholds = []int16{-50, -55, -60, -65, -70, -75, -80, -85, -90}

func (br *Broker) stationRegisterSignalAgent(path dbus.ObjectPath, agentPath dbus.ObjectPath) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	call := br.call(conn.Object(serviceName, path), ifaceStation+".RegisterSignalLevelAgent", agentPath, signalThresholds)
	if call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Station.RegisterSignalLevelAgent", "path", path)
	}
	return nil
}

// deviceProxy is Device{name,address,powered,mode,adapter; set_powered,
// set_mode}.
type deviceProxy struct {
	path    dbus.ObjectPath
	name    string
	address string
	powered bool
	mode    string
	adapter dbus.ObjectPath
}

func newDeviceProxy(path dbus.ObjectPath, props map[string]dbus.Variant) deviceProxy {
	return deviceProxy{
		path:    path,
		name:    stringProp(props, "Name"),
		address: stringProp(props, "Address"),
		powered: boolProp(props, "Powered"),
		mode:    stringProp(props, "Mode"),
		adapter: pathProp(props, "Adapter"),
	}
}

func (br *Broker) deviceSetPowered(path dbus.ObjectPath, on bool) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	call := br.call(conn.Object(serviceName, path), ifaceProps+".Set", ifaceDevice, "Powered", dbus.MakeVariant(on))
	if call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Device.Powered", "path", path, "value", on)
	}
	return nil
}

func (br *Broker) deviceSetMode(path dbus.ObjectPath, mode string) error {
	conn, err := br.handle()
	if err != nil {
		return err
	}
	call := br.call(conn.Object(serviceName, path), ifaceProps+".Set", ifaceDevice, "Mode", dbus.MakeVariant(mode))
	if call.Err != nil {
		return verrors.Wrap(call.Err, "wireless: Device.Mode", "path", path, "value", mode)
	}
	return nil
}

// adapterProxy is Adapter{name,model,vendor,powered,supported_modes}.
type adapterProxy struct {
	path           dbus.ObjectPath
	name           string
	model          string
	vendor         string
	powered        bool
	supportedModes []string
}

func newAdapterProxy(path dbus.ObjectPath, props map[string]dbus.Variant) adapterProxy {
	return adapterProxy{
		path:           path,
		name:           stringProp(props, "Name"),
		model:          stringProp(props, "Model"),
		vendor:         stringProp(props, "Vendor"),
		powered:        boolProp(props, "Powered"),
		supportedModes: stringSliceProp(props, "SupportedModes"),
	}
}

// getAll enumerates every object exposing iface via ObjectManager and builds
// one T per match via ctor, the generic shape get_all<T>() names in §4.5.
func getAll[T any](br *Broker, iface string, ctor func(dbus.ObjectPath, map[string]dbus.Variant) T) ([]T, error) {
	objects, err := br.getManagedObjects()
	if err != nil {
		return nil, err
	}

	var out []T
	for path, ifaces := range objects {
		props, ok := ifaces[iface]
		if !ok {
			continue
		}
		out = append(out, ctor(path, props))
	}
	return out, nil
}

// getFirst is getAll narrowed to its first match, or an error if none exist.
func getFirst[T any](br *Broker, iface string, ctor func(dbus.ObjectPath, map[string]dbus.Variant) T) (T, error) {
	all, err := getAll(br, iface, ctor)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(all) == 0 {
		var zero T
		return zero, errors.Errorf("wireless: no object exposes %s", iface)
	}
	return all[0], nil
}
