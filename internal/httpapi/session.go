package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/proctorlabs/vagabond/internal/model"
	"github.com/proctorlabs/vagabond/internal/wireless"
)

// rxMessage is the tagged-union request frame §4.6 names
// (WebsocketRxMessage): a type tag plus an optional payload whose shape
// depends on the type.
type rxMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// txMessage is the reply/event frame sent back over the same connection.
type txMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// wifiConnectRequest is wifi_connect's payload: {ssid} or {ssid,psk}.
type wifiConnectRequest struct {
	SSID string `json:"ssid"`
	PSK  string `json:"psk"`
}

// handleSocket upgrades the request to a WebSocket and runs the session
// loop until the peer disconnects or a read error occurs.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	app, err := s.appInstance()
	if err != nil {
		s.logger.Errorw("websocket session refused: app not installed", "error", err)
		return
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg rxMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warnw("unparseable websocket frame", "error", err)
			continue
		}

		reply, err := s.dispatch(r.Context(), app, msg)
		if err == errUnknownType {
			s.logger.Warnw("unknown websocket request type", "type", msg.Type)
			continue
		}
		if err != nil {
			reply = txMessage{Type: "error", Data: err.Error()}
		}
		if reply.Type == "" {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (s *Server) appInstance() (*App, error) {
	raw, err := s.mgr.App()
	if err != nil {
		return nil, err
	}
	app, ok := raw.(*App)
	if !ok {
		return nil, errNotAnApp
	}
	return app, nil
}

const errNotAnApp = jsonError("httpapi: installed app instance has the wrong type")

type jsonError string

func (e jsonError) Error() string { return string(e) }

// dispatch runs one request variant and builds its reply frame, per §4.6's
// dispatch table.
func (s *Server) dispatch(ctx context.Context, app *App, msg rxMessage) (txMessage, error) {
	switch msg.Type {
	case "wifi_scan":
		networks, err := app.Wireless.GetWifiNetworks()
		if err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "wifi_scan", Data: networks}, nil

	case "wifi_status":
		device, err := app.Wireless.GetWifiDevice()
		if err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "wifi_status", Data: device}, nil

	case "list_interfaces":
		cfg := s.mgr.Config()
		names := cfg.Network.Interfaces()
		if cfg.Wireguard.Enabled {
			names = append(names, cfg.Wireguard.Interface)
		}
		return txMessage{Type: "interfaces", Data: model.Snapshot(names)}, nil

	case "wifi_connect":
		var req wifiConnectRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return txMessage{}, err
		}
		if err := app.Wireless.Connect(ctx, wirelessConnectParams(req)); err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "wifi_connect"}, nil

	case "wifi_disconnect":
		if err := app.Wireless.Disconnect(); err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "wifi_disconnect"}, nil

	case "get_status":
		return txMessage{Type: "status", Data: app.Daemons.Status()}, nil

	case "dhcp_renew":
		iface, err := decodeInterfaceName(msg.Data)
		if err != nil {
			return txMessage{}, err
		}
		if err := app.System.DhcpRenew(iface); err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "dhcp_renew"}, nil

	case "dhcp_release":
		iface, err := decodeInterfaceName(msg.Data)
		if err != nil {
			return txMessage{}, err
		}
		if err := app.System.DhcpRelease(iface); err != nil {
			return txMessage{}, err
		}
		return txMessage{Type: "dhcp_release"}, nil

	default:
		return txMessage{}, errUnknownType
	}
}

// errUnknownType marks an unrecognized request type frame: §7 treats this
// differently from a dispatch error (logged, session continues, no error
// frame sent to the peer).
const errUnknownType = jsonError("httpapi: unknown request type")

func decodeInterfaceName(data json.RawMessage) (string, error) {
	var iface string
	if err := json.Unmarshal(data, &iface); err != nil {
		return "", err
	}
	return iface, nil
}

func wirelessConnectParams(req wifiConnectRequest) wireless.ConnectParams {
	return wireless.ConnectParams{SSID: req.SSID, PSK: req.PSK}
}
