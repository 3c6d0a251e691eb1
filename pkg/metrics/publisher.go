package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Publisher records outbox drain batches. A nil *Publisher is a no-op.
type Publisher struct {
	duration  prometheus.Histogram
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewPublisher registers the outbox publisher metrics on the provided registerer.
func NewPublisher(reg prometheus.Registerer) *Publisher {
	if reg == nil {
		return &Publisher{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Duration of outbox publish batches in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events published.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Outbox events that failed to publish.",
	}, []string{"event_type"})
	reg.MustRegister(duration, published, failed)
	return &Publisher{duration: duration, published: published, failed: failed}
}

func (p *Publisher) ObserveBatch(elapsed time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.Observe(elapsed.Seconds())
}

func (p *Publisher) IncPublished(eventType string) {
	if p == nil || p.published == nil {
		return
	}
	p.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (p *Publisher) IncFailed(eventType string) {
	if p == nil || p.failed == nil {
		return
	}
	p.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
