// Package metrics exposes ledger counters to Prometheus.
//
// Every method is safe to call on a nil *Metrics so that services and tests can
// run without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tt"

// Metrics holds the ledger's collectors.
type Metrics struct {
	registry *prometheus.Registry

	versionsAppended *prometheus.CounterVec
	punches          *prometheus.CounterVec
	syncedEntities   *prometheus.CounterVec
	syncRuns         *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		versionsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "versions_appended_total",
			Help:      "Entity versions appended to the ledger, by entity kind.",
		}, []string{"kind"}),
		punches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "punches_total",
			Help:      "Punch-in and punch-out operations, by direction.",
		}, []string{"direction"}),
		syncedEntities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synced_entities_total",
			Help:      "Entities upserted from the remote service, by kind.",
		}, []string{"kind"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Remote sync runs, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.versionsAppended, m.punches, m.syncedEntities, m.syncRuns)
	return m
}

// VersionAppended counts one appended version of the given kind.
func (m *Metrics) VersionAppended(kind string) {
	if m == nil {
		return
	}
	m.versionsAppended.WithLabelValues(kind).Inc()
}

// Punch counts one punch in the given direction ("in" or "out").
func (m *Metrics) Punch(direction string) {
	if m == nil {
		return
	}
	m.punches.WithLabelValues(direction).Inc()
}

// Synced counts n entities of the given kind imported by a sync run.
func (m *Metrics) Synced(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncedEntities.WithLabelValues(kind).Add(float64(n))
}

// SyncRun records the outcome of one sync run.
func (m *Metrics) SyncRun(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
