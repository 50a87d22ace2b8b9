// Package metrics exposes Prometheus metrics for batch runs, logins and the
// HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/report"
)

const namespace = "telecom_monitor"

// Recorder holds the monitor's metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	accounts       *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	loginFailCount *prometheus.GaugeVec
	runDuration    prometheus.Histogram
	lastRun        prometheus.Gauge

	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry that also carries the Go
// and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		accounts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_total",
			Help:      "Accounts processed, labeled by outcome status",
		}, []string{"status"}),
		loginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, labeled by result",
		}, []string{"result"}),
		loginFailCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "login_fail_count",
			Help:      "Consecutive login failures per account",
		}, []string{"account"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of batch runs",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished batch run",
		}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "path", "status"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

// LoginAttempt counts a login attempt.
func (r *Recorder) LoginAttempt(result string) {
	r.loginAttempts.WithLabelValues(result).Inc()
}

// FailCount sets the failure counter gauge of an account. The account label
// is the masked phone number.
func (r *Recorder) FailCount(phone string, count int) {
	r.loginFailCount.WithLabelValues(report.MaskPhone(phone)).Set(float64(count))
}

// AccountProcessed counts one processed account.
func (r *Recorder) AccountProcessed(status models.OutcomeStatus) {
	r.accounts.WithLabelValues(string(status)).Inc()
}

// RunFinished records a finished batch run.
func (r *Recorder) RunFinished(finishedAt time.Time, d time.Duration) {
	r.runDuration.Observe(d.Seconds())
	r.lastRun.Set(float64(finishedAt.Unix()))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
