package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proctorlabs/vagabond/internal/supervisor"
)

// supervisorCollector exposes the service up/down gauges and restart
// counters §6's metrics-endpoint expansion calls for, mirroring the
// teacher's ap.httpd Prometheus wiring without needing ap.httpd's own
// metric set (which covers a different service surface).
type supervisorCollector struct {
	snapshot func() map[string]*supervisor.Supervisor

	up       *prometheus.Desc
	restarts *prometheus.Desc
}

func newSupervisorCollector(snapshot func() map[string]*supervisor.Supervisor) *supervisorCollector {
	return &supervisorCollector{
		snapshot: snapshot,
		up: prometheus.NewDesc(
			"vagabond_service_up",
			"Whether a supervised service's child process is currently running (1) or not (0).",
			[]string{"service"}, nil),
		restarts: prometheus.NewDesc(
			"vagabond_service_restarts_total",
			"Number of times a supervised service has been relaunched after its initial start.",
			[]string{"service"}, nil),
	}
}

func (c *supervisorCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.restarts
}

func (c *supervisorCollector) Collect(ch chan<- prometheus.Metric) {
	for name, sup := range c.snapshot() {
		up := 0.0
		if sup.CurrentState() == supervisor.Running {
			up = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up, name)
		ch <- prometheus.MustNewConstMetric(c.restarts, prometheus.CounterValue, float64(sup.Restarts()), name)
	}
}

// handleMetrics builds a private registry scoped to the currently-installed
// App's supervisors and serves it; the App isn't available until after
// SetAppInstance, so this can't use the package-level promhttp.Handler()
// against the default global registry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	app, err := s.appInstance()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(newSupervisorCollector(func() map[string]*supervisor.Supervisor {
		all := app.Daemons.Supervisors()
		for name, sup := range app.System.DHCPClients() {
			all[name] = sup
		}
		return all
	}))

	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
