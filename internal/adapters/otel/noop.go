package otel

import "context"

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) CountAssignment(ctx context.Context, experimentID, variantID string) {}

func (e *NoOpExporter) CountSample(ctx context.Context, experimentID, metricName string) {}

func (e *NoOpExporter) CountReport(ctx context.Context, experimentID string) {}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
