package turso

import (
	"context"
	"database/sql"
	"time"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/util"
)

// MetricRepository stores outcome samples as append-only rows.
type MetricRepository struct {
	db *sql.DB
}

func NewMetricRepository(db *sql.DB) *MetricRepository {
	return &MetricRepository{db: db}
}

func (r *MetricRepository) Append(ctx context.Context, s domain.MetricSample) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metric_samples (experiment_id, variant_id, metric_name, value, caller_key, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ExperimentID, s.VariantID, s.MetricName, s.Value,
		util.NullString(s.CallerKey), s.RecordedAt.Format(time.RFC3339))
	if err != nil {
		return domain.StoreError("append metric sample", err)
	}
	return nil
}

func (r *MetricRepository) AggregateByVariant(ctx context.Context, experimentID string) (map[string]map[string]domain.MetricAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant_id, metric_name, COUNT(*), SUM(value)
		FROM metric_samples
		WHERE experiment_id = ?
		GROUP BY variant_id, metric_name
	`, experimentID)
	if err != nil {
		return nil, domain.StoreError("aggregate metric samples", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]domain.MetricAggregate)
	for rows.Next() {
		var variantID, metricName string
		var count int64
		var total float64
		if err := rows.Scan(&variantID, &metricName, &count, &total); err != nil {
			return nil, domain.StoreError("scan metric aggregate", err)
		}
		if out[variantID] == nil {
			out[variantID] = make(map[string]domain.MetricAggregate)
		}
		out[variantID][metricName] = domain.MetricAggregate{Count: count, Total: total}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("aggregate metric samples", err)
	}
	return out, nil
}
