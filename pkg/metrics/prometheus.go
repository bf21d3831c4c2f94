package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	alertsFired *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetches: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energypulse_provider_fetch_duration_seconds",
				Help:    "Duration of market data provider fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "instrument"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energypulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "energypulse_last_price",
				Help: "Last fetched close price for an instrument",
			},
			[]string{"instrument"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "energypulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		alertsFired: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "energypulse_alerts_fired_total",
				Help: "Total number of alert events fired",
			},
			[]string{"instrument", "severity"},
		),
	}
}

// RecordFetch records one provider fetch with its duration.
func (r *Recorder) RecordFetch(provider, instrument string, seconds float64) {
	r.fetches.WithLabelValues(provider, instrument).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close for an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordAlert records one fired alert event.
func (r *Recorder) RecordAlert(instrument, severity string) {
	r.alertsFired.WithLabelValues(instrument, severity).Inc()
}
