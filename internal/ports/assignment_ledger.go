package ports

import (
	"context"

	"github.com/variantlab/variant/internal/domain"
)

// AssignmentLedger is the durable, idempotent mapping from
// (experimentID, callerKey) to a variant.
type AssignmentLedger interface {
	// Get returns the existing assignment, or (nil, nil) when none exists.
	Get(ctx context.Context, experimentID, callerKey string) (*domain.Assignment, error)

	// CreateIfAbsent atomically creates the assignment unless one already
	// exists for its key. It returns the stored assignment and whether this
	// call created it: when a concurrent identical request wins the race the
	// winner's row is returned instead of the candidate.
	CreateIfAbsent(ctx context.Context, candidate domain.Assignment) (*domain.Assignment, bool, error)

	// CountByVariant returns the number of assignments per variant id.
	CountByVariant(ctx context.Context, experimentID string) (map[string]int64, error)
}
