package completion

import (
	"context"
	"time"

	"github.com/exa-engenharia/exa-chatbot/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedClient records a span, a latency sample and a status counter per call.
type InstrumentedClient struct {
	provider string
	next     Client
	metrics  *metrics.ChatMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

func NewInstrumentedClient(provider string, next Client, m *metrics.ChatMetrics, tracer trace.Tracer) *InstrumentedClient {
	if next == nil {
		panic("completion: instrumented client requires a delegate")
	}
	if tracer == nil {
		tracer = otel.Tracer("exa.internal.completion")
	}
	return &InstrumentedClient{provider: provider, next: next, metrics: m, tracer: tracer, now: time.Now}
}

func (c *InstrumentedClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, span := c.tracer.Start(ctx, "completion.complete", trace.WithAttributes(
		attribute.String("completion.provider", c.provider),
		attribute.Int("completion.messages", len(req.Messages)),
	))
	defer span.End()

	start := c.now()
	resp, err := c.next.Complete(ctx, req)
	c.metrics.ObserveCompletion(c.provider, err, c.now().Sub(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	span.SetAttributes(
		attribute.Int("completion.tokens.input", int(resp.Usage.InputTokens)),
		attribute.Int("completion.tokens.output", int(resp.Usage.OutputTokens)),
	)
	return resp, nil
}
