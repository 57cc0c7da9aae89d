package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the dashboard's collectors on a private prometheus registry.
// It satisfies session.Recorder.
type Registry struct {
	registry     *prometheus.Registry
	actionsTotal *prometheus.CounterVec
	syncsTotal   *prometheus.CounterVec
	syncSkipped  prometheus.Counter
	escrows      prometheus.Gauge
}

func New() *Registry {
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrowboard_actions_total",
		Help: "Escrow write actions by outcome",
	}, []string{"action", "status"})

	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrowboard_syncs_total",
		Help: "Escrow list synchronizations by result",
	}, []string{"result"})

	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escrowboard_sync_skipped_total",
		Help: "Escrows left out of a synchronization because a read failed",
	})

	escrows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "escrowboard_escrows",
		Help: "Escrows in the last synchronized list",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(actions, syncs, skipped, escrows)

	return &Registry{
		registry:     r,
		actionsTotal: actions,
		syncsTotal:   syncs,
		syncSkipped:  skipped,
		escrows:      escrows,
	}
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Registry) ObserveAction(action, status string) {
	m.actionsTotal.WithLabelValues(action, status).Inc()
}

// ObserveSync records one synchronization. The gauge only moves on success.
func (m *Registry) ObserveSync(result string, escrows, skipped int) {
	m.syncsTotal.WithLabelValues(result).Inc()
	if skipped > 0 {
		m.syncSkipped.Add(float64(skipped))
	}
	if result == "ok" {
		m.escrows.Set(float64(escrows))
	}
}
