package metrics

import (
	"net/http"

	"github.com/mohitkumar/pollster/polling"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const NAMESPACE = "pollster"

type PrometheusMetrics struct {
	polls       *prometheus.CounterVec
	items       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rebaselines *prometheus.CounterVec
	handshakes  *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	factory := promauto.With(registry)
	return &PrometheusMetrics{
		gatherer: registry,
		polls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "polls_total",
			Help:      "Polls run per trigger, mode and status",
		}, []string{"trigger", "mode", "status"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "items_emitted_total",
			Help:      "New items returned by polls",
		}, []string{"trigger", "mode"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "poll_latency_ms",
			Help:      "Poll duration in milliseconds including the connector fetch",
			Buckets:   []float64{5, 10, 50, 100, 500, 1000, 5000, 30000},
		}, []string{"trigger", "mode"}),
		rebaselines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "count_rebaselines_total",
			Help:      "Count strategy polls that saw the collection shrink",
		}, []string{"trigger"}),
		handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "webhook_handshakes_total",
			Help:      "Webhook verification requests by response status",
		}, []string{"trigger", "status"}),
	}
}

func (pm *PrometheusMetrics) ObservePoll(outcome polling.Outcome) {
	mode := string(outcome.Mode)
	status := "success"
	if outcome.Err != nil {
		status = "error"
	}
	pm.polls.WithLabelValues(outcome.Trigger, mode, status).Inc()
	pm.items.WithLabelValues(outcome.Trigger, mode).Add(float64(outcome.Items))
	pm.latency.WithLabelValues(outcome.Trigger, mode).Observe(float64(outcome.Duration.Milliseconds()))
	if outcome.Rebaselined {
		pm.rebaselines.WithLabelValues(outcome.Trigger).Inc()
	}
}

func (pm *PrometheusMetrics) RecordHandshake(trigger string, status int) {
	pm.handshakes.WithLabelValues(trigger, http.StatusText(status)).Inc()
}

func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.gatherer, promhttp.HandlerOpts{})
}
