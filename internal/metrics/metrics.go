// Package metrics records deployment metrics and exports them in the
// Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the deployment collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	deploymentsTotal *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	transactions     *prometheus.CounterVec
	sessionWrites    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		deploymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_setup_deployments_total",
				Help: "Total number of deployment attempts by chain type and result",
			},
			[]string{"chain_type", "result"},
		),

		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orbit_setup_deployment_phase_duration_seconds",
				Help:    "Time spent in each deployment phase",
				Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"phase"},
		),

		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_setup_transactions_total",
				Help: "Total parent chain transactions by kind and result",
			},
			[]string{"kind", "result"},
		),

		sessionWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbit_setup_session_writes_total",
				Help: "Total session and artifact writes by slot and result",
			},
			[]string{"slot", "result"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// DeploymentFinished counts a deployment attempt.
func (m *Metrics) DeploymentFinished(chainType, result string) {
	m.deploymentsTotal.WithLabelValues(chainType, result).Inc()
}

// PhaseCompleted records how long a phase took.
func (m *Metrics) PhaseCompleted(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// TransactionSent counts a transaction submitted to the parent chain.
func (m *Metrics) TransactionSent(kind, result string) {
	m.transactions.WithLabelValues(kind, result).Inc()
}

// ArtifactsWritten counts a write of the node and L3 config.
func (m *Metrics) ArtifactsWritten(result string) {
	m.sessionWrites.WithLabelValues("artifacts", result).Inc()
}

// SessionWritten counts a write of the session slot.
func (m *Metrics) SessionWritten(result string) {
	m.sessionWrites.WithLabelValues("session", result).Inc()
}

// WriteTextfile writes every collected metric to path, for pickup by the
// node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
