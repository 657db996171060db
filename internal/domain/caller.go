package domain

import "time"

// CallerContext is the per-request identity supplied by the host system.
type CallerContext struct {
	UserID   string
	TenantID string
	Role     string
}

// Key derives the stable caller key used for bucketing: the user id when
// present, otherwise the tenant id. A caller with neither identity dimension
// cannot be assigned.
func (c CallerContext) Key() (string, error) {
	if c.UserID != "" {
		return c.UserID, nil
	}
	if c.TenantID != "" {
		return c.TenantID, nil
	}
	return "", ErrMissingCallerKey
}

// Assignment is the durable, idempotent record of which variant a caller key
// resolved to. Created at most once per (experiment, caller key) and never
// mutated while the experiment is running or paused.
type Assignment struct {
	ExperimentID string
	CallerKey    string
	VariantID    string
	AssignedAt   time.Time
}
