// Package metrics exports batch scheduler activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scry_ingest"

// Sink implements batch.MetricsSink.
type Sink struct {
	gatherer prometheus.Gatherer

	itemsSettled  *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	itemRetries   *prometheus.CounterVec
	chunksTotal   prometheus.Counter
	chunkSize     prometheus.Histogram
	chunkFailures prometheus.Counter
	queuePending  prometheus.Gauge
	queueInFlight prometheus.Gauge
}

var _ batch.MetricsSink = (*Sink)(nil)

// NewSink registers the batch metrics on a fresh registry.
func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	return NewSinkWith(reg, reg)
}

// NewSinkWith registers the batch metrics on reg and serves them from gatherer.
func NewSinkWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Sink {
	factory := promauto.With(reg)

	return &Sink{
		gatherer: gatherer,
		itemsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_settled_total",
			Help:      "The total number of work items that reached a terminal state",
		}, []string{"status"}),
		itemDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_duration_seconds",
			Help:      "Duration of work item processing, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"status"}),
		itemRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_retries_total",
			Help:      "The total number of retry attempts",
		}, []string{"attempt", "timed_out"}),
		chunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_completed_total",
			Help:      "The total number of chunks processed",
		}),
		chunkSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_size",
			Help:      "Number of items dispatched per chunk.",
			Buckets:   prometheus.LinearBuckets(1, 5, 10),
		}),
		chunkFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_item_failures_total",
			Help:      "Items in completed chunks that did not succeed",
		}),
		queuePending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_pending_items",
			Help:      "Items waiting to be dispatched",
		}),
		queueInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_in_flight_items",
			Help:      "Items currently being processed",
		}),
	}
}

// ItemSettled implements batch.MetricsSink.
func (s *Sink) ItemSettled(status batch.ItemStatus, d time.Duration) {
	s.itemsSettled.WithLabelValues(string(status)).Inc()
	if d > 0 {
		s.itemDuration.WithLabelValues(string(status)).Observe(d.Seconds())
	}
}

// ItemRetried implements batch.MetricsSink.
func (s *Sink) ItemRetried(attempt int, timedOut bool) {
	s.itemRetries.WithLabelValues(strconv.Itoa(attempt), strconv.FormatBool(timedOut)).Inc()
}

// ChunkCompleted implements batch.MetricsSink.
func (s *Sink) ChunkCompleted(size, succeeded int) {
	s.chunksTotal.Inc()
	s.chunkSize.Observe(float64(size))
	if failed := size - succeeded; failed > 0 {
		s.chunkFailures.Add(float64(failed))
	}
}

// QueueDepth implements batch.MetricsSink.
func (s *Sink) QueueDepth(pending, inFlight int) {
	s.queuePending.Set(float64(pending))
	s.queueInFlight.Set(float64(inFlight))
}

// Handler serves the registered metrics.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}
