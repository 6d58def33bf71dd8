package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/exa-engenharia/exa-chatbot/internal/observability/metrics"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticClient(text string, err error, calls *int) Client {
	return ClientFunc(func(context.Context, Request) (Response, error) {
		*calls++
		if err != nil {
			return Response{}, err
		}
		return Response{Text: text}, nil
	})
}

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	var primaryCalls, fallbackCalls int
	client := NewFallbackClient(staticClient("primário", nil, &primaryCalls), staticClient("reserva", nil, &fallbackCalls), logging.New("error"))

	resp, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "primário", resp.Text)
	assert.Equal(t, 1, primaryCalls)
	assert.Equal(t, 0, fallbackCalls)
}

func TestFallbackClientUsesFallback(t *testing.T) {
	var primaryCalls, fallbackCalls int
	client := NewFallbackClient(staticClient("", errors.New("503"), &primaryCalls), staticClient("reserva", nil, &fallbackCalls), logging.New("error"))

	resp, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "reserva", resp.Text)
	assert.Equal(t, 1, fallbackCalls)
}

func TestFallbackClientBothFail(t *testing.T) {
	var primaryCalls, fallbackCalls int
	fallbackErr := errors.New("fallback down")
	client := NewFallbackClient(staticClient("", errors.New("primary down"), &primaryCalls), staticClient("", fallbackErr, &fallbackCalls), logging.New("error"))

	_, err := client.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, fallbackErr)
}

func TestFallbackClientWithoutFallbackReturnsPrimary(t *testing.T) {
	var calls int
	primary := staticClient("x", nil, &calls)
	assert.NotNil(t, NewFallbackClient(primary, nil, nil))
	_, isFallback := NewFallbackClient(primary, nil, nil).(*FallbackClient)
	assert.False(t, isFallback)
}

func TestInstrumentedClientRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)

	var calls int
	ok := NewInstrumentedClient("openai", staticClient("oi", nil, &calls), m, nil)
	failing := NewInstrumentedClient("gemini", staticClient("", errors.New("boom"), &calls), m, nil)

	_, err := ok.Complete(context.Background(), Request{})
	require.NoError(t, err)
	_, err = failing.Complete(context.Background(), Request{})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "exa_chatbot_completion_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
