package turso

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/util"
)

type ExperimentRepository struct {
	db *sql.DB
}

func NewExperimentRepository(db *sql.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, e *domain.Experiment) error {
	targeting, err := json.Marshal(e.Targeting)
	if err != nil {
		return fmt.Errorf("marshal targeting: %w", err)
	}
	tracked, err := json.Marshal(e.TrackedMetrics)
	if err != nil {
		return fmt.Errorf("marshal tracked metrics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin create experiment", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO experiments (
			id, name, feature, status, targeting, tracked_metrics,
			winner_variant_id, started_at, ended_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Name,
		e.Feature,
		string(e.Status),
		string(targeting),
		string(tracked),
		util.NullStringPtr(e.WinnerVariantID),
		nullTime(e.StartedAt),
		nullTime(e.EndedAt),
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return domain.StoreError("insert experiment", err)
	}

	if err := insertVariants(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit create experiment", err)
	}
	return nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *ExperimentRepository) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	return r.getOne(ctx, `WHERE name = ?`, name)
}

func (r *ExperimentRepository) getOne(ctx context.Context, where string, arg any) (*domain.Experiment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, feature, status, targeting, tracked_metrics,
		       winner_variant_id, started_at, ended_at, created_at
		FROM experiments `+where, arg)

	e, err := experimentFromRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("get experiment", err)
	}

	if e.Variants, err = r.variantsOf(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]*domain.Experiment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, feature, status, targeting, tracked_metrics,
		       winner_variant_id, started_at, ended_at, created_at
		FROM experiments ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, domain.StoreError("list experiments", err)
	}
	defer rows.Close()

	var experiments []*domain.Experiment
	for rows.Next() {
		e, err := experimentFromRow(rows)
		if err != nil {
			return nil, domain.StoreError("scan experiment", err)
		}
		experiments = append(experiments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("list experiments", err)
	}

	for _, e := range experiments {
		if e.Variants, err = r.variantsOf(ctx, e.ID); err != nil {
			return nil, err
		}
	}
	return experiments, nil
}

func (r *ExperimentRepository) Update(ctx context.Context, e *domain.Experiment) error {
	targeting, err := json.Marshal(e.Targeting)
	if err != nil {
		return fmt.Errorf("marshal targeting: %w", err)
	}
	tracked, err := json.Marshal(e.TrackedMetrics)
	if err != nil {
		return fmt.Errorf("marshal tracked metrics: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreError("begin update experiment", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE experiments SET
			name = ?, feature = ?, status = ?, targeting = ?,
			tracked_metrics = ?, winner_variant_id = ?, started_at = ?, ended_at = ?
		WHERE id = ?
	`,
		e.Name,
		e.Feature,
		string(e.Status),
		string(targeting),
		string(tracked),
		util.NullStringPtr(e.WinnerVariantID),
		nullTime(e.StartedAt),
		nullTime(e.EndedAt),
		e.ID,
	)
	if err != nil {
		return domain.StoreError("update experiment", err)
	}

	// Variants only change while the experiment is in draft; replacing the
	// rows wholesale keeps the position column in sync with the new order.
	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE experiment_id = ?`, e.ID); err != nil {
		return domain.StoreError("clear variants", err)
	}
	if err := insertVariants(ctx, tx, e); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.StoreError("commit update experiment", err)
	}
	return nil
}

func insertVariants(ctx context.Context, tx *sql.Tx, e *domain.Experiment) error {
	for i, v := range e.Variants {
		var cfg sql.NullString
		if len(v.Config) > 0 {
			cfg = sql.NullString{String: string(v.Config), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO variants (experiment_id, id, name, weight, is_control, config, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, v.ID, v.Name, v.Weight, util.BoolToInt64(v.IsControl), cfg, i)
		if err != nil {
			return domain.StoreError("insert variant", err)
		}
	}
	return nil
}

func (r *ExperimentRepository) variantsOf(ctx context.Context, experimentID string) ([]domain.Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, weight, is_control, config
		FROM variants WHERE experiment_id = ? ORDER BY position
	`, experimentID)
	if err != nil {
		return nil, domain.StoreError("get variants", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		var isControl int64
		var cfg sql.NullString
		if err := rows.Scan(&v.ID, &v.Name, &v.Weight, &isControl, &cfg); err != nil {
			return nil, domain.StoreError("scan variant", err)
		}
		v.IsControl = isControl == 1
		if cfg.Valid {
			v.Config = json.RawMessage(cfg.String)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("get variants", err)
	}
	return variants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func experimentFromRow(row rowScanner) (*domain.Experiment, error) {
	var e domain.Experiment
	var status, targeting, tracked, createdAt string
	var winner, startedAt, endedAt sql.NullString

	err := row.Scan(&e.ID, &e.Name, &e.Feature, &status, &targeting, &tracked,
		&winner, &startedAt, &endedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	e.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(targeting), &e.Targeting); err != nil {
		return nil, fmt.Errorf("unmarshal targeting: %w", err)
	}
	if err := json.Unmarshal([]byte(tracked), &e.TrackedMetrics); err != nil {
		return nil, fmt.Errorf("unmarshal tracked metrics: %w", err)
	}
	e.WinnerVariantID = util.NullStringToPtr(winner)
	e.StartedAt = parseNullTime(startedAt)
	e.EndedAt = parseNullTime(endedAt)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
