package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks the relay from outbox_events to Kafka.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	dlq       *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_outbox_publish_total",
		Help: "Outbox publish attempts by topic and outcome.",
	}, []string{"topic", "result"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "canteen_outbox_dlq_total",
		Help: "Outbox events moved to the dead letter table.",
	}, []string{"reason"})
	reg.MustRegister(published, dlq)
	return &OutboxMetrics{published: published, dlq: dlq}
}

func (m *OutboxMetrics) IncPublish(topic, result string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(topic), normalizeLabel(result)).Inc()
}

func (m *OutboxMetrics) IncDLQ(reason string) {
	if m == nil || m.dlq == nil {
		return
	}
	m.dlq.WithLabelValues(normalizeLabel(reason)).Inc()
}
