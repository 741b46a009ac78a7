package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the SMS request flow.
type ConversationMetrics struct {
	inboundTotal     *prometheus.CounterVec
	stageTransitions *prometheus.CounterVec
	catalogLookups   *prometheus.CounterVec
	turnLatency      prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigned",
			Subsystem: "sms",
			Name:      "inbound_total",
			Help:      "Total inbound Twilio webhooks",
		}, []string{"status"}),
		stageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigned",
			Subsystem: "sms",
			Name:      "stage_transitions_total",
			Help:      "Conversation stage transitions",
		}, []string{"from", "to"}),
		catalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consigned",
			Subsystem: "sms",
			Name:      "catalog_lookups_total",
			Help:      "Shopify order lookups by result",
		}, []string{"result"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "consigned",
			Subsystem: "sms",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one inbound message turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.stageTransitions, m.catalogLookups, m.turnLatency)
	return m
}

func (m *ConversationMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveStageTransition(from, to string) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(from, to).Inc()
}

func (m *ConversationMetrics) ObserveCatalogLookup(result string) {
	if m == nil {
		return
	}
	m.catalogLookups.WithLabelValues(result).Inc()
}

func (m *ConversationMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}
