package ports

import "context"

// MetricsExporter publishes engine activity counters to an external
// observability system. Implementations must be safe for concurrent use and
// must never fail the hosting operation.
type MetricsExporter interface {
	// CountAssignment records one newly created assignment.
	CountAssignment(ctx context.Context, experimentID, variantID string)
	// CountSample records one accepted metric sample.
	CountSample(ctx context.Context, experimentID, metricName string)
	// CountReport records one computed results report.
	CountReport(ctx context.Context, experimentID string)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
