package wireless

import (
	"context"

	"github.com/pkg/errors"

	"github.com/proctorlabs/vagabond/internal/execrun"
	"github.com/proctorlabs/vagabond/internal/model"
)

// noKnownNetwork is the path iwd reports on a Network.KnownNetwork property
// when the network has never been connected to.
const noKnownNetwork = "/"

// GetWifiNetworks implements get_wifi_networks: find a Station, list its
// ordered (path, rssi) scan results, fetch each Network's properties, and
// project onto model.WifiNetwork.
func (br *Broker) GetWifiNetworks() ([]model.WifiNetwork, error) {
	station, err := getFirst(br, ifaceStation, newStationProxy)
	if err != nil {
		return nil, err
	}

	ordered, err := br.stationOrderedNetworks(station.path)
	if err != nil {
		return nil, err
	}

	out := make([]model.WifiNetwork, 0, len(ordered))
	for _, entry := range ordered {
		props, err := br.getAllProperties(entry.Path, ifaceNetwork)
		if err != nil {
			return nil, err
		}
		net := newNetworkProxy(entry.Path, props)
		sec, other := model.ParseWifiSecurity(net.netType)

		out = append(out, model.WifiNetwork{
			SSID:     net.name,
			Security: model.WifiSecurityLabel(sec, other),
			Signal:   entry.RSSI / 100,
			Known:    net.knownNetwork != "" && net.knownNetwork != noKnownNetwork,
		})
	}
	return out, nil
}

// GetWifiDevice implements get_wifi_device: Station -> Device -> Adapter,
// projected onto model.WifiDevice with safe defaults for blank fields.
func (br *Broker) GetWifiDevice() (model.WifiDevice, error) {
	station, err := getFirst(br, ifaceStation, newStationProxy)
	if err != nil {
		return model.WifiDevice{}, err
	}

	devices, err := getAll(br, ifaceDevice, newDeviceProxy)
	if err != nil {
		return model.WifiDevice{}, err
	}
	var device *deviceProxy
	for i := range devices {
		if devices[i].path == station.path {
			device = &devices[i]
			break
		}
	}
	if device == nil && len(devices) > 0 {
		device = &devices[0]
	}
	if device == nil {
		return model.WifiDevice{}, errors.New("wireless: no wifi device present")
	}

	var adapter adapterProxy
	if device.adapter != "" {
		props, err := br.getAllProperties(device.adapter, ifaceAdapter)
		if err == nil {
			adapter = newAdapterProxy(device.adapter, props)
		}
	}

	var connected *string
	if station.connectedNetwork != "" {
		props, err := br.getAllProperties(station.connectedNetwork, ifaceNetwork)
		if err == nil {
			name := stringProp(props, "Name")
			connected = &name
		}
	}

	return model.WifiDevice{
		Name:             model.WithDefault(device.name),
		Phy:              model.WithDefault(adapter.name),
		State:            model.WithDefault(station.state),
		Address:          model.FormatMAC(device.address),
		Powered:          device.powered,
		Scanning:         station.scanning,
		Mode:             model.WithDefault(device.mode),
		SupportedModes:   adapter.supportedModes,
		Model:            model.WithDefault(adapter.model),
		Vendor:           model.WithDefault(adapter.vendor),
		ConnectedNetwork: connected,
	}, nil
}

// ConnectParams is the payload a wifi_connect request carries.
type ConnectParams struct {
	SSID string
	PSK  string
}

// Connect implements connect(params): resolve the first Device and shell out
// to iwctl, since iwctl handles the iwd Agent credential exchange this
// process does not implement.
func (br *Broker) Connect(ctx context.Context, params ConnectParams) error {
	device, err := getFirst(br, ifaceDevice, newDeviceProxy)
	if err != nil {
		return err
	}

	args := []string{"station", device.name, "connect", params.SSID}
	if params.PSK != "" {
		args = append(args, "--passphrase", params.PSK)
	}
	args = append(args, "--dont-ask")

	if _, err := execrun.Run(ctx, "iwctl", args...); err != nil {
		return errors.Wrapf(err, "wireless: iwctl connect %s", params.SSID)
	}
	return nil
}

// Disconnect implements disconnect(): call Station.Disconnect on the first
// station.
func (br *Broker) Disconnect() error {
	station, err := getFirst(br, ifaceStation, newStationProxy)
	if err != nil {
		return err
	}
	return br.stationDisconnect(station.path)
}
