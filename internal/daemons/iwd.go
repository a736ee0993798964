package daemons

import (
	"text/template"
	"time"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// iwdConfigPath is the fixed path §6 names for iwd's main.conf; it is
// expected to be reachable as iwd's config directory (bind-mounted onto
// /var/lib/iwd or /etc/iwd by the deployment, outside this daemon's scope).
const iwdConfigPath = "/data/iwd/etc/main.conf"

var iwdConfTemplate = template.Must(template.New("iwd").Parse(
	`[General]
EnableNetworkConfiguration=true
`))

// spawnIWD supervises /usr/libexec/iwd, the D-Bus service the Wireless
// Control Object Broker talks to. Always started: the Object Broker needs
// it regardless of which WAN/WLAN features are enabled.
func (r *Registry) spawnIWD() {
	if err := renderToFile(iwdConfTemplate, nil, iwdConfigPath); err != nil {
		r.logger.Warnw("iwd config render failed, continuing with built-in defaults", "error", err)
	}

	r.iwd = r.supervise(supervisor.ProcessSpec{
		Name:         "iwd",
		Command:      "/usr/libexec/iwd",
		RestartDelay: 8 * time.Second,
		Args: func(*config.Config) []string {
			return nil
		},
	})
}
