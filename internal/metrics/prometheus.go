// internal/metrics/prometheus.go
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "battmon"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg *prom.Registry

	bytesWritten   prom.Counter
	writeErrors    prom.Counter
	shortReads     prom.Counter
	verifyMismatch *prom.CounterVec
	updates        *prom.CounterVec
	outcomes       *prom.CounterVec
	joinDuration   prom.Histogram
	restarts       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the collectors on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		reg: reg,
		bytesWritten: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_bytes_written_total",
			Help:      "Bytes written to persistent storage",
		}),
		writeErrors: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_write_errors_total",
			Help:      "Bus transactions that failed during a write (absorbed)",
		}),
		shortReads: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_short_reads_total",
			Help:      "Reads that returned fewer bytes than requested",
		}),
		verifyMismatch: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_verify_mismatch_total",
			Help:      "Read-back after write did not match the written value",
		}, []string{"key"}),
		updates: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "settings_updates_total",
			Help:      "Applied setting updates by key",
		}, []string{"key"}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "provision_attempts_total",
			Help:      "Credential submissions by outcome",
		}, []string{"outcome"}),
		joinDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "provision_join_seconds",
			Help:      "Time spent in the join loop",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 20, 30},
		}),
		restarts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Requested restarts by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		pr.bytesWritten,
		pr.writeErrors,
		pr.shortReads,
		pr.verifyMismatch,
		pr.updates,
		pr.outcomes,
		pr.joinDuration,
		pr.restarts,
	)
	return pr
}

// Handler exposes the registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) AddStoreBytesWritten(n int) {
	if p == nil {
		return
	}
	p.bytesWritten.Add(float64(n))
}

func (p *PrometheusRecorder) IncStoreWriteError() {
	if p == nil {
		return
	}
	p.writeErrors.Inc()
}

func (p *PrometheusRecorder) IncStoreShortRead() {
	if p == nil {
		return
	}
	p.shortReads.Inc()
}

func (p *PrometheusRecorder) IncVerifyMismatch(key string) {
	if p == nil {
		return
	}
	p.verifyMismatch.WithLabelValues(key).Inc()
}

func (p *PrometheusRecorder) IncSettingsUpdate(key string) {
	if p == nil {
		return
	}
	p.updates.WithLabelValues(key).Inc()
}

func (p *PrometheusRecorder) IncProvisionOutcome(outcome string) {
	if p == nil {
		return
	}
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveJoinDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.joinDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRestart(reason string) {
	if p == nil {
		return
	}
	p.restarts.WithLabelValues(reason).Inc()
}
