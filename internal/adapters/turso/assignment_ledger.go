package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/variantlab/variant/internal/domain"
)

// AssignmentLedger persists caller-to-variant assignments. The primary key on
// (experiment_id, caller_key) makes first-assignment creation atomic: the
// conflict clause turns a lost race into a no-op, and the loser re-reads the
// winner's row.
type AssignmentLedger struct {
	db *sql.DB
}

func NewAssignmentLedger(db *sql.DB) *AssignmentLedger {
	return &AssignmentLedger{db: db}
}

func (l *AssignmentLedger) Get(ctx context.Context, experimentID, callerKey string) (*domain.Assignment, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT experiment_id, caller_key, variant_id, assigned_at
		FROM assignments WHERE experiment_id = ? AND caller_key = ?
	`, experimentID, callerKey)

	a, err := assignmentFromRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StoreError("get assignment", err)
	}
	return a, nil
}

func (l *AssignmentLedger) CreateIfAbsent(ctx context.Context, candidate domain.Assignment) (*domain.Assignment, bool, error) {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO assignments (experiment_id, caller_key, variant_id, assigned_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (experiment_id, caller_key) DO NOTHING
	`, candidate.ExperimentID, candidate.CallerKey, candidate.VariantID,
		candidate.AssignedAt.Format(time.RFC3339))
	if err != nil {
		return nil, false, domain.StoreError("create assignment", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, domain.StoreError("create assignment", err)
	}
	if inserted > 0 {
		return &candidate, true, nil
	}

	existing, err := l.Get(ctx, candidate.ExperimentID, candidate.CallerKey)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Insert was a no-op but no row is visible: only possible if the
		// winner's transaction has not landed yet or rows were deleted
		// out-of-band.
		return nil, false, domain.StoreError("create assignment",
			fmt.Errorf("conflict without visible row for %s/%s", candidate.ExperimentID, candidate.CallerKey))
	}
	return existing, false, nil
}

func (l *AssignmentLedger) CountByVariant(ctx context.Context, experimentID string) (map[string]int64, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT variant_id, COUNT(*) FROM assignments
		WHERE experiment_id = ? GROUP BY variant_id
	`, experimentID)
	if err != nil {
		return nil, domain.StoreError("count assignments", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var variantID string
		var count int64
		if err := rows.Scan(&variantID, &count); err != nil {
			return nil, domain.StoreError("scan assignment count", err)
		}
		counts[variantID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError("count assignments", err)
	}
	return counts, nil
}

func assignmentFromRow(row rowScanner) (*domain.Assignment, error) {
	var a domain.Assignment
	var assignedAt string
	if err := row.Scan(&a.ExperimentID, &a.CallerKey, &a.VariantID, &assignedAt); err != nil {
		return nil, err
	}
	a.AssignedAt, _ = time.Parse(time.RFC3339, assignedAt)
	return &a, nil
}
