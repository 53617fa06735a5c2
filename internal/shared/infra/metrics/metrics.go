package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published, by exchange and result.",
		},
		[]string{"exchange", "result"},
	)
	eventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of consumed deliveries, by queue and outcome (ack, requeue, dead_letter).",
		},
		[]string{"queue", "outcome"},
	)
	handlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_handler_duration_seconds",
			Help:    "Event handler latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)
	brokerReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_reconnects_total",
			Help: "Total broker reconnection attempts.",
		},
	)
	outboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_events",
			Help: "Pending outbox events seen on the last relay poll.",
		},
	)

	registerOnce sync.Once
)

// Register registra los colectores en el registry por defecto. Idempotente.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(eventsPublished, eventsConsumed, handlerDuration, brokerReconnects, outboxPending)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func IncPublished(exchange string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	eventsPublished.WithLabelValues(exchange, result).Inc()
}

func IncConsumed(queue, outcome string) {
	eventsConsumed.WithLabelValues(queue, outcome).Inc()
}

func ObserveHandler(queue string, d time.Duration) {
	handlerDuration.WithLabelValues(queue).Observe(d.Seconds())
}

func IncReconnect() {
	brokerReconnects.Inc()
}

func SetOutboxPending(n int) {
	outboxPending.Set(float64(n))
}
