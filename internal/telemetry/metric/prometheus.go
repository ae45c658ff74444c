package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streamgate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	tokensIssued       *prometheus.CounterVec
	issuanceDenied     *prometheus.CounterVec
	tokensClaimed      prometheus.Counter
	validationFailures *prometheus.CounterVec

	transfersActive  prometheus.Gauge
	transferBytes    prometheus.Counter
	transferOutcomes *prometheus.CounterVec
	transferDuration prometheus.Histogram

	requestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the process and Go collectors
// already registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tokens_issued_total",
			Help: "Stream tokens issued, by tier.",
		}, []string{"tier"}),
		issuanceDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "issuance_denied_total",
			Help: "Token requests refused by quota or concurrency guards.",
		}, []string{"reason"}),
		tokensClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tokens_claimed_total",
			Help: "Stream tokens consumed by a successful validation.",
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "validation_failures_total",
			Help: "Rejected token validations, by error code.",
		}, []string{"code"}),
		transfersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "transfers_active",
			Help: "Transfers currently relaying bytes.",
		}),
		transferBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfer_bytes_total",
			Help: "Bytes written to clients.",
		}),
		transferOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "transfers_total",
			Help: "Finished transfers, by outcome.",
		}, []string{"outcome"}),
		transferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "transfer_duration_seconds",
			Help:    "Wall time of finished transfers.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency, by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		r.tokensIssued, r.issuanceDenied, r.tokensClaimed, r.validationFailures,
		r.transfersActive, r.transferBytes, r.transferOutcomes, r.transferDuration,
		r.requestDuration,
	)
	return r
}

// Registerer exposes the underlying registry for components that register
// their own collectors, such as the badger store.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.registry
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

// TokenIssued records a successful issuance.
func (r *Registry) TokenIssued(tier string) {
	if r == nil {
		return
	}
	r.tokensIssued.WithLabelValues(tier).Inc()
}

// IssuanceDenied records a guard refusal.
func (r *Registry) IssuanceDenied(reason string) {
	if r == nil {
		return
	}
	r.issuanceDenied.WithLabelValues(reason).Inc()
}

// TokenClaimed records a successful consume.
func (r *Registry) TokenClaimed() {
	if r == nil {
		return
	}
	r.tokensClaimed.Inc()
}

// ValidationFailed records a rejected validation.
func (r *Registry) ValidationFailed(code string) {
	if r == nil {
		return
	}
	r.validationFailures.WithLabelValues(code).Inc()
}

// TransferStarted marks a transfer as active.
func (r *Registry) TransferStarted() {
	if r == nil {
		return
	}
	r.transfersActive.Inc()
}

// TransferFinished records the end of a transfer.
func (r *Registry) TransferFinished(outcome string, bytes int64, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.transfersActive.Dec()
	r.transferBytes.Add(float64(bytes))
	r.transferOutcomes.WithLabelValues(outcome).Inc()
	r.transferDuration.Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
