package daemons

import (
	"text/template"
	"time"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// defaultHostapdConfig is used when network.wlan.hostapd_config is blank,
// matching §6's generated-files path for hostapd.
const defaultHostapdConfig = "/data/hostapd/hostapd.conf"

// hostapdOptions mirrors ap.wifid/hostapd.go's invocation flags: debug
// output, include key data in it, timestamp each line. hostapd stays in the
// foreground so the supervisor can watch it.
const hostapdOptions = "-dKt"

var hostapdTemplate = template.Must(template.New("hostapd").Parse(
	`interface={{.Interface}}
driver=nl80211
ssid={{.SSID}}
hw_mode=g
channel={{.Channel}}
wpa=0
ignore_broadcast_ssid=0
`))

// spawnHostapd renders the hostapd config for network.wlan and supervises
// it, or logs "disabled" if wlan.enabled is false.
func (r *Registry) spawnHostapd() error {
	wlan := r.cfg.Network.Wlan
	if !wlan.Enabled {
		r.logger.Infow("hostapd disabled")
		return nil
	}

	confPath := wlan.HostapdConfig
	if confPath == "" {
		confPath = defaultHostapdConfig
	}
	if err := renderToFile(hostapdTemplate, wlan, confPath); err != nil {
		return err
	}

	confPathCopy := confPath
	r.hostapd = r.supervise(supervisor.ProcessSpec{
		Name:         "hostapd",
		Command:      "hostapd",
		RestartDelay: 8 * time.Second,
		Args: func(*config.Config) []string {
			return []string{hostapdOptions, confPathCopy}
		},
	})
	return nil
}
