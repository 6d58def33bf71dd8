package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for chat turns, the lead funnel
// and completion calls.
type ChatMetrics struct {
	turnsTotal         *prometheus.CounterVec
	leadOutcomes       *prometheus.CounterVec
	leadSteps          *prometheus.CounterVec
	completionTotal    *prometheus.CounterVec
	completionLatency  *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "turns_total",
			Help:      "Inbound chat turns by the path that answered them",
		}, []string{"path"}),
		leadOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "lead_capture_total",
			Help:      "Lead capture sessions by outcome",
		}, []string{"outcome"}),
		leadSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "lead_steps_total",
			Help:      "Lead capture step entries",
		}, []string{"step"}),
		completionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "completion_requests_total",
			Help:      "Completion service calls by provider and status",
		}, []string{"provider", "status"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion service calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exa",
			Subsystem: "chatbot",
			Name:      "notifications_total",
			Help:      "Lead notification deliveries by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.leadOutcomes, m.leadSteps, m.completionTotal, m.completionLatency, m.notificationsTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(path string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(path).Inc()
}

func (m *ChatMetrics) ObserveLeadOutcome(outcome string) {
	if m == nil {
		return
	}
	m.leadOutcomes.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObserveLeadStep(step string) {
	if m == nil {
		return
	}
	m.leadSteps.WithLabelValues(step).Inc()
}

func (m *ChatMetrics) ObserveCompletion(provider string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.completionTotal.WithLabelValues(provider, status).Inc()
	m.completionLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *ChatMetrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(status).Inc()
}
