package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("lead")
	m.ObserveTurn("lead")
	m.ObserveTurn("chat")
	m.ObserveLeadOutcome("submitted")
	m.ObserveLeadStep("AWAIT_CONTACT")
	m.ObserveNotification(nil)
	m.ObserveNotification(errors.New("smtp down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("lead")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leadOutcomes.WithLabelValues("submitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("failed")))
}

func TestChatMetricsCompletionLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveCompletion("openai", nil, 0.3)
	m.ObserveCompletion("openai", errors.New("timeout"), 1.2)

	families, err := reg.Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "exa_chatbot_completion_requests_total" {
			family = f
		}
	}
	require.NotNil(t, family, "completion counter not exported")

	statuses := map[string]float64{}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "status" {
				statuses[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"ok": 1, "error": 1}, statuses)
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("chat")
	m.ObserveLeadOutcome("expired")
	m.ObserveLeadStep("AWAIT_NAME")
	m.ObserveCompletion("gemini", nil, 0.1)
	m.ObserveNotification(nil)
}
