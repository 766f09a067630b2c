// Package metrics exposes engine activity as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vaultindex/internal/index"
)

// Prometheus implements index.Metrics on its own registry, so tests and
// multiple instances never collide on the global one.
type Prometheus struct {
	registry *prometheus.Registry

	events         *prometheus.CounterVec
	eventErrors    *prometheus.CounterVec
	reindexes      *prometheus.CounterVec
	reindexEntries *prometheus.GaugeVec
	watcherState   *prometheus.GaugeVec
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultindex_events_total",
			Help: "Filesystem events applied to the index.",
		}, []string{"vault", "kind"}),
		eventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultindex_event_errors_total",
			Help: "Filesystem events that failed to apply.",
		}, []string{"vault"}),
		reindexes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vaultindex_reindex_total",
			Help: "Full reindex runs by outcome.",
		}, []string{"vault", "status"}),
		reindexEntries: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vaultindex_reindex_entries",
			Help: "Records written by the last successful reindex.",
		}, []string{"vault"}),
		watcherState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vaultindex_watcher_state",
			Help: "Watcher state: 0 starting, 1 watching, 2 stopped.",
		}, []string{"vault"}),
	}
}

func (p *Prometheus) EventApplied(vaultID string, kind index.EventKind) {
	p.events.WithLabelValues(vaultID, kind.String()).Inc()
}

func (p *Prometheus) EventFailed(vaultID string) {
	p.eventErrors.WithLabelValues(vaultID).Inc()
}

func (p *Prometheus) ReindexFinished(vaultID string, entries int, err error) {
	if err != nil {
		p.reindexes.WithLabelValues(vaultID, "error").Inc()
		return
	}
	p.reindexes.WithLabelValues(vaultID, "success").Inc()
	p.reindexEntries.WithLabelValues(vaultID).Set(float64(entries))
}

func (p *Prometheus) WatcherStateChanged(vaultID string, state index.WatcherState) {
	p.watcherState.WithLabelValues(vaultID).Set(float64(state))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

var _ index.Metrics = (*Prometheus)(nil)
