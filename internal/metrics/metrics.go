// Package metrics exposes Prometheus counters for the reconciliation
// pipeline on a private registry, so default-registry collisions in tests
// are impossible.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing, which keeps the reconciliation components usable in isolation.
type Metrics struct {
	registry *prometheus.Registry

	webhooksReceived prometheus.Counter
	webhooksRejected prometheus.Counter
	webhooksFailed   prometheus.Counter
	replicasUpdated  prometheus.Counter
	cartsRepriced    prometheus.Counter
	imageAnomalies   prometheus.Counter
	driftRuns        prometheus.Counter
	driftRepairs     prometheus.Counter
	driftDeletes     prometheus.Counter
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		webhooksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_webhooks_received_total",
			Help: "Inbound product webhooks received.",
		}),
		webhooksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_webhooks_rejected_total",
			Help: "Webhooks rejected for a bad or missing signature.",
		}),
		webhooksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_webhooks_failed_total",
			Help: "Webhooks that failed processing after authentication.",
		}),
		replicasUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_replicas_updated_total",
			Help: "Storefront replica products written by propagation.",
		}),
		cartsRepriced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_carts_repriced_total",
			Help: "Carts rewritten by the price fan-out.",
		}),
		imageAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_image_anomalies_total",
			Help: "Variant image updates aborted by the length invariant.",
		}),
		driftRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_drift_runs_total",
			Help: "Drift correction batch runs started.",
		}),
		driftRepairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_drift_repairs_total",
			Help: "Replica products repaired by drift correction.",
		}),
		driftDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_drift_deletes_total",
			Help: "Products removed by the deletion cascade.",
		}),
	}
	registry.MustRegister(
		m.webhooksReceived, m.webhooksRejected, m.webhooksFailed,
		m.replicasUpdated, m.cartsRepriced, m.imageAnomalies,
		m.driftRuns, m.driftRepairs, m.driftDeletes,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) WebhookReceived() {
	if m != nil {
		m.webhooksReceived.Inc()
	}
}

func (m *Metrics) WebhookRejected() {
	if m != nil {
		m.webhooksRejected.Inc()
	}
}

func (m *Metrics) WebhookFailed() {
	if m != nil {
		m.webhooksFailed.Inc()
	}
}

func (m *Metrics) ReplicaUpdated() {
	if m != nil {
		m.replicasUpdated.Inc()
	}
}

func (m *Metrics) CartsRepriced(n int) {
	if m != nil && n > 0 {
		m.cartsRepriced.Add(float64(n))
	}
}

func (m *Metrics) ImageAnomaly() {
	if m != nil {
		m.imageAnomalies.Inc()
	}
}

func (m *Metrics) DriftRun() {
	if m != nil {
		m.driftRuns.Inc()
	}
}

func (m *Metrics) DriftRepair() {
	if m != nil {
		m.driftRepairs.Inc()
	}
}

func (m *Metrics) DriftDelete() {
	if m != nil {
		m.driftDeletes.Inc()
	}
}
