package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "variant"
	serviceVersion = "1.0.0"
)

// Exporter publishes engine counters to an OTEL Collector.
type Exporter struct {
	provider         *sdkmetric.MeterProvider
	meter            metric.Meter
	assignmentsTotal metric.Int64Counter
	samplesTotal     metric.Int64Counter
	reportsTotal     metric.Int64Counter
}

// NewExporter creates a new OTEL metrics exporter.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	assignmentsTotal, err := meter.Int64Counter(
		"variant_assignments_total",
		metric.WithDescription("Total number of new variant assignments"),
		metric.WithUnit("{assignment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assignments counter: %w", err)
	}

	samplesTotal, err := meter.Int64Counter(
		"variant_metric_samples_total",
		metric.WithDescription("Total number of accepted metric samples"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating samples counter: %w", err)
	}

	reportsTotal, err := meter.Int64Counter(
		"variant_reports_total",
		metric.WithDescription("Total number of computed results reports"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reports counter: %w", err)
	}

	return &Exporter{
		provider:         provider,
		meter:            meter,
		assignmentsTotal: assignmentsTotal,
		samplesTotal:     samplesTotal,
		reportsTotal:     reportsTotal,
	}, nil
}

// CountAssignment records one newly created assignment.
func (e *Exporter) CountAssignment(ctx context.Context, experimentID, variantID string) {
	e.assignmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("variant_id", variantID),
	))
}

// CountSample records one accepted metric sample.
func (e *Exporter) CountSample(ctx context.Context, experimentID, metricName string) {
	e.samplesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("metric_name", metricName),
	))
}

// CountReport records one computed results report.
func (e *Exporter) CountReport(ctx context.Context, experimentID string) {
	e.reportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
	))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
