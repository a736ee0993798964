package system

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/execrun"
)

// wireguardConfDir matches the path §6's generated-files list names for the
// rendered interface config.
const wireguardConfDir = "/etc/wireguard"

// generatedHeader matches daemons.generatedHeader's "generated by Vagabond;
// may be overwritten" convention (§6), duplicated here since that constant
// is unexported in its own package.
const generatedHeader = "# generated by vagabond; may be overwritten\n"

// wgConfTemplate renders a server-side wg-quick config: our own interface
// plus one [Peer] stanza per configured peer. The shape mirrors
// common/vpn.confTemplate, adapted from a client-issuing template to a
// server-bringup one.
var wgConfTemplate = template.Must(template.New("wireguard").Parse(`
[Interface]
Address = {{.Address}}
PrivateKey = {{.PrivateKey}}
{{range .Peers}}
[Peer]
PublicKey = {{.PublicKey}}
{{if .Endpoint}}Endpoint = {{.Endpoint}}:{{.EndpointPort}}
{{end}}AllowedIPs = {{.AllowedIPsJoined}}
PersistentKeepalive = 25
{{end}}`))

type wgPeerView struct {
	PublicKey        string
	Endpoint         string
	EndpointPort     int
	AllowedIPsJoined string
}

type wgConfView struct {
	Address    string
	PrivateKey string
	Peers      []wgPeerView
}

func renderWireguardConfig(cfg config.Wireguard) ([]byte, error) {
	view := wgConfView{
		Address:    cfg.Address,
		PrivateKey: cfg.PrivateKey,
	}
	for _, p := range cfg.Peer {
		joined := ""
		for i, ip := range p.AllowedIPs {
			if i > 0 {
				joined += ","
			}
			joined += ip
		}
		view.Peers = append(view.Peers, wgPeerView{
			PublicKey:        p.PublicKey,
			Endpoint:         p.Endpoint,
			EndpointPort:     p.EndpointPort,
			AllowedIPsJoined: joined,
		})
	}

	var buf bytes.Buffer
	if err := wgConfTemplate.Execute(&buf, view); err != nil {
		return nil, errors.Wrap(err, "rendering wireguard config")
	}
	return buf.Bytes(), nil
}

// BringUpWireguard renders the interface's config file and (re)starts it via
// wg-quick, per §4.4(c). A down-then-up pair is used so re-running this
// during a config reload picks up peer/address changes; the down half is
// best-effort since the interface may not exist yet on first bring-up.
func BringUpWireguard(ctx context.Context, cfg config.Wireguard, logger *zap.SugaredLogger) error {
	if !cfg.Enabled {
		return nil
	}

	body, err := renderWireguardConfig(cfg)
	if err != nil {
		return err
	}

	path := filepath.Join(wireguardConfDir, cfg.Interface+".conf")
	if err := os.MkdirAll(wireguardConfDir, 0700); err != nil {
		return errors.Wrapf(err, "wireguard: mkdir %s", wireguardConfDir)
	}
	if err := os.WriteFile(path, append([]byte(generatedHeader), body...), 0600); err != nil {
		return errors.Wrapf(err, "wireguard: write %s", path)
	}

	if _, err := execrun.Run(ctx, "wg-quick", "down", cfg.Interface); err != nil {
		logger.Debugw("wg-quick down failed (interface likely not up yet)", "interface", cfg.Interface, "error", err)
	}

	if _, err := execrun.Run(ctx, "wg-quick", "up", cfg.Interface); err != nil {
		logger.Warnw("wg-quick up failed", "interface", cfg.Interface, "error", err)
		return nil
	}

	logger.Infow("wireguard interface up", "interface", cfg.Interface)
	return nil
}
