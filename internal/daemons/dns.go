package daemons

import (
	"text/template"
	"time"

	"github.com/proctorlabs/vagabond/internal/config"
	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// unboundConfPath is the fixed path §6's generated-files list names.
const unboundConfPath = "/etc/unbound/unbound.conf"

var unboundTemplate = template.Must(template.New("unbound").Parse(
	`server:
	interface: 0.0.0.0
	port: {{.Port}}
	do-ip4: yes
	do-ip6: no
	access-control: 0.0.0.0/0 allow
{{if .BlockMalicious}}	# malicious-domain blocking enabled
{{end}}{{range $k, $v := .ExtraOptions}}	{{$k}}: {{$v}}
{{end}}
{{range .Servers}}forward-zone:
	name: "."
	forward-addr: {{.}}
{{end}}`))

// spawnDNS renders unbound.conf from config.DNS and supervises unbound, or
// logs "disabled" if dns.enabled is false.
func (r *Registry) spawnDNS() error {
	if !r.cfg.DNS.Enabled {
		r.logger.Infow("unbound disabled")
		return nil
	}

	if err := renderToFile(unboundTemplate, r.cfg.DNS, unboundConfPath); err != nil {
		return err
	}

	r.unbound = r.supervise(supervisor.ProcessSpec{
		Name:         "unbound",
		Command:      "unbound",
		RestartDelay: 8 * time.Second,
		Args: func(*config.Config) []string {
			return []string{"-d", "-c", unboundConfPath}
		},
	})
	return nil
}
