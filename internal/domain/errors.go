package domain

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Callers are expected to branch with errors.Is;
// everything except configuration errors is recoverable by falling back to
// the feature's default behavior.
var (
	// Configuration errors, rejected synchronously at mutation time.
	ErrInvalidWeights   = errors.New("variant weights must sum to exactly 100")
	ErrInvalidTargeting = errors.New("targeting percentage must be between 0 and 100")
	ErrExperimentLocked = errors.New("experiment is locked: variants and targeting are immutable after leaving draft")

	// Lifecycle errors.
	ErrExperimentNotActive        = errors.New("experiment is not active")
	ErrNotAcceptingNewAssignments = errors.New("experiment is paused and not accepting new assignments")
	ErrInvalidTransition          = errors.New("invalid experiment status transition")

	// Targeting outcome. Not a failure: the caller opts out to default behavior.
	ErrNotTargeted = errors.New("caller is not targeted by this experiment")

	// Data errors.
	ErrUnknownVariant   = errors.New("variant is not part of the experiment")
	ErrUntrackedMetric  = errors.New("metric is not tracked by the experiment")
	ErrMissingCallerKey = errors.New("assignment requires a user or tenant identity")
	ErrNotFound         = errors.New("experiment not found")

	// Store errors. The engine never retries; assignment and metric writes are
	// idempotent so caller-side retry is always safe.
	ErrStoreUnavailable = errors.New("durable store unavailable")
)

// StoreError wraps a low-level store failure so that callers can match it
// with errors.Is(err, ErrStoreUnavailable) without losing the cause.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrStoreUnavailable, err))
}
