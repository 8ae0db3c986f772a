package syncer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/wardsync/internal/alert"
)

// Metrics holds Prometheus metrics for the sync subsystem. A nil *Metrics
// is valid and records nothing, which keeps tests free of registries.
type Metrics struct {
	SyncsTotal      *prometheus.CounterVec
	SyncDuration    *prometheus.HistogramVec
	LastSyncTime    prometheus.Gauge
	AlertsByView    *prometheus.GaugeVec
	MutationsTotal  *prometheus.CounterVec
	ReconcilesTotal prometheus.Counter
	ResyncsTotal    prometheus.Counter
}

// NewMetrics registers and returns sync metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardsync_syncs_total",
			Help: "Total sync fetches by outcome.",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wardsync_sync_duration_seconds",
			Help:    "Duration of sync fetches in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"outcome"}),
		LastSyncTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardsync_last_sync_timestamp_seconds",
			Help: "Unix time of the last successful sync.",
		}),
		AlertsByView: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wardsync_alerts",
			Help: "Alerts currently held, by derived view.",
		}, []string{"view"}),
		MutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardsync_mutations_total",
			Help: "Total acknowledge/dismiss mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		ReconcilesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardsync_reconcile_fetches_total",
			Help: "Total reconciliation fetches after successful mutations.",
		}),
		ResyncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardsync_resyncs_total",
			Help: "Total full resyncs triggered by failed mutations.",
		}),
	}

	reg.MustRegister(
		m.SyncsTotal,
		m.SyncDuration,
		m.LastSyncTime,
		m.AlertsByView,
		m.MutationsTotal,
		m.ReconcilesTotal,
		m.ResyncsTotal,
	)

	return m
}

func (m *Metrics) observeSync(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(outcome).Inc()
	m.SyncDuration.WithLabelValues(outcome).Observe(seconds)
	if outcome == "success" {
		m.LastSyncTime.Set(float64(time.Now().Unix()))
	}
}

func (m *Metrics) setAlertGauges(st alert.Stats) {
	if m == nil {
		return
	}
	m.AlertsByView.WithLabelValues("total").Set(float64(st.Total))
	m.AlertsByView.WithLabelValues("active").Set(float64(st.Active))
	m.AlertsByView.WithLabelValues("critical").Set(float64(st.Critical))
	m.AlertsByView.WithLabelValues("high_risk").Set(float64(st.HighRisk))
	m.AlertsByView.WithLabelValues("acknowledged").Set(float64(st.Acknowledged))
}

func (m *Metrics) observeMutation(op, outcome string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) incReconcile() {
	if m == nil {
		return
	}
	m.ReconcilesTotal.Inc()
}

func (m *Metrics) incResync() {
	if m == nil {
		return
	}
	m.ResyncsTotal.Inc()
}
