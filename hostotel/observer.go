// Package hostotel records tool host observability signals into
// OpenTelemetry metrics and traces.
package hostotel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/trialbridge/toolhost/host"
)

// Observer implements host.Observer on top of an OTel meter and tracer.
type Observer struct {
	tracer trace.Tracer

	invocations metric.Int64Counter
	latency     metric.Float64Histogram
	health      metric.Int64Counter
}

// NewObserver creates an observer bound to the provided meter/tracer.
func NewObserver(meter metric.Meter, tracer trace.Tracer) (*Observer, error) {
	invocations, err := meter.Int64Counter(
		"toolhost.call.invocations",
		metric.WithDescription("Number of tool call invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolhost.call.latency",
		metric.WithDescription("Tool call latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	health, err := meter.Int64Counter(
		"toolhost.health.checks",
		metric.WithDescription("Number of downstream health probes"),
	)
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:      tracer,
		invocations: invocations,
		latency:     latency,
		health:      health,
	}, nil
}

// ObserveCall records one completed call.
func (o *Observer) ObserveCall(observation host.CallObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", observation.Operation),
		attribute.Bool("success", observation.Success),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.invocations.Add(ctx, 1, options)
	o.latency.Record(ctx, observation.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}
	spanAttrs := append(attrs, attribute.String("call_id", observation.CallID))
	_, span := o.tracer.Start(ctx, "host.call", trace.WithAttributes(spanAttrs...))
	if observation.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, observation.ErrorCode)
	}
	span.End()
}

// ObserveHealth records one downstream health probe.
func (o *Observer) ObserveHealth(observation host.HealthObservation) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("probe", observation.Probe),
		attribute.Bool("healthy", observation.ErrorCode == ""),
	}
	if observation.ErrorCode != "" {
		attrs = append(attrs, attribute.String("error_code", observation.ErrorCode))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.health.Add(ctx, 1, options)
	o.latency.Record(ctx, observation.Duration.Seconds(), options)
}

var _ host.Observer = (*Observer)(nil)
