package daemons

import (
	"time"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// spawnDbusDaemon supervises the system message bus itself. It is always
// started: iwd and the Wireless Control Object Broker both require a live
// system bus, regardless of which network features are enabled.
func (r *Registry) spawnDbusDaemon() {
	r.dbusDaemon = r.supervise(supervisor.ProcessSpec{
		Name:         "dbus-daemon",
		Command:      "dbus-daemon",
		RestartDelay: 8 * time.Second,
		Args: func(*config.Config) []string {
			return []string{"--system", "--nofork"}
		},
	})
}
