package ports

import (
	"context"

	"github.com/variantlab/variant/internal/domain"
)

// MetricRepository stores outcome samples. Writes are append-only; the
// aggregate scan is an eventually-consistent snapshot.
type MetricRepository interface {
	Append(ctx context.Context, sample domain.MetricSample) error

	// AggregateByVariant returns count and total per (variantID, metricName).
	AggregateByVariant(ctx context.Context, experimentID string) (map[string]map[string]domain.MetricAggregate, error)
}
