package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	BatchCount        prometheus.Counter
	MessagesInserted  prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	IngestErrors      prometheus.Counter
	ValidationErrors  prometheus.Counter
	ProcessingTime    prometheus.Histogram
	ActiveSessions    prometheus.Gauge
	NotifyPublished   prometheus.Counter
	NotifyDropped     prometheus.Counter
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		BatchCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_batch_count",
			Help: "Total number of batch ingest calls",
		}),
		MessagesInserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_messages_inserted",
			Help: "Total number of message rows affected by upserts",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_duplicates_skipped",
			Help: "Total number of records skipped by the dedup filter",
		}),
		IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_ingest_errors",
			Help: "Total number of records lost to persistence failures",
		}),
		ValidationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_validation_errors",
			Help: "Total number of batch calls rejected by validation",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "message_relay_processing_duration_seconds",
			Help:    "Time spent processing ingest batches",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "message_relay_in_progress_sessions",
			Help: "Number of extraction sessions currently in progress",
		}),
		NotifyPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_notifications_published",
			Help: "Total number of fan-out notifications published",
		}),
		NotifyDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "message_relay_notifications_dropped",
			Help: "Total number of notifications dropped for slow observers",
		}),
	}
}
