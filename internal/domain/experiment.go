package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an experiment. Only running experiments
// issue new assignments; paused experiments keep honoring existing ones.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Variant is one configuration arm of an experiment. Config is an opaque,
// feature-owned payload that the engine never interprets.
type Variant struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Weight    int             `json:"weight"`
	IsControl bool            `json:"isControl"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Targeting gates eligibility before bucketing. Absent predicates are
// vacuously satisfied; configured predicates must all pass.
type Targeting struct {
	Percentage      *int     `json:"percentage,omitempty"`
	TenantAllowList []string `json:"tenantAllowList,omitempty"`
	RoleAllowList   []string `json:"roleAllowList,omitempty"`
}

// Experiment is a named configuration under test. While Status != draft the
// variant list and targeting rules are immutable: mutating an in-flight
// experiment would invalidate previously issued assignments.
type Experiment struct {
	ID              string
	Name            string
	Feature         string
	Status          Status
	Variants        []Variant
	Targeting       Targeting
	TrackedMetrics  []string
	WinnerVariantID *string
	StartedAt       *time.Time
	EndedAt         *time.Time
	CreatedAt       time.Time
}

// ValidateVariants checks the variant configuration invariants that must
// hold before an experiment can ever reach running.
func (e *Experiment) ValidateVariants() error {
	if len(e.Variants) == 0 {
		return fmt.Errorf("%w: experiment has no variants", ErrInvalidWeights)
	}

	seen := make(map[string]bool, len(e.Variants))
	sum := 0
	for _, v := range e.Variants {
		if v.Weight < 0 || v.Weight > 100 {
			return fmt.Errorf("%w: variant %q has weight %d", ErrInvalidWeights, v.ID, v.Weight)
		}
		if seen[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %q", ErrInvalidWeights, v.ID)
		}
		seen[v.ID] = true
		sum += v.Weight
	}
	if sum != 100 {
		return fmt.Errorf("%w: weights sum to %d", ErrInvalidWeights, sum)
	}
	return nil
}

// ValidateTargeting checks the targeting rule ranges. A percentage outside
// 0..100 would either exclude everyone or silently disable the gate.
func (e *Experiment) ValidateTargeting() error {
	if p := e.Targeting.Percentage; p != nil && (*p < 0 || *p > 100) {
		return fmt.Errorf("%w: got %d", ErrInvalidTargeting, *p)
	}
	return nil
}

// VariantByID returns the variant with the given id, or nil.
func (e *Experiment) VariantByID(id string) *Variant {
	for i := range e.Variants {
		if e.Variants[i].ID == id {
			return &e.Variants[i]
		}
	}
	return nil
}

// ControlVariant returns the variant flagged as control. When no variant is
// flagged it falls back to a variant named "control", then to nil.
func (e *Experiment) ControlVariant() *Variant {
	for i := range e.Variants {
		if e.Variants[i].IsControl {
			return &e.Variants[i]
		}
	}
	for i := range e.Variants {
		if e.Variants[i].Name == "control" {
			return &e.Variants[i]
		}
	}
	return nil
}

// TracksMetric reports whether the experiment expects samples for the metric.
func (e *Experiment) TracksMetric(name string) bool {
	for _, m := range e.TrackedMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// Start moves the experiment to running, stamping the start date on the
// first transition out of draft. Starting a paused experiment resumes it.
func (e *Experiment) Start(now time.Time) error {
	switch e.Status {
	case StatusDraft:
		if err := e.ValidateVariants(); err != nil {
			return err
		}
		e.Status = StatusRunning
		t := now
		e.StartedAt = &t
		return nil
	case StatusPaused:
		e.Status = StatusRunning
		return nil
	default:
		return fmt.Errorf("%w: cannot start a %s experiment", ErrInvalidTransition, e.Status)
	}
}

// Pause stops the experiment from issuing new assignments. Existing
// assignments keep resolving while paused.
func (e *Experiment) Pause() error {
	if e.Status != StatusRunning {
		return fmt.Errorf("%w: cannot pause a %s experiment", ErrInvalidTransition, e.Status)
	}
	e.Status = StatusPaused
	return nil
}

// Complete freezes the experiment permanently, stamping the end date and
// optionally recording the winning variant.
func (e *Experiment) Complete(winnerVariantID *string, now time.Time) error {
	if e.Status != StatusRunning && e.Status != StatusPaused {
		return fmt.Errorf("%w: cannot complete a %s experiment", ErrInvalidTransition, e.Status)
	}
	if winnerVariantID != nil && e.VariantByID(*winnerVariantID) == nil {
		return fmt.Errorf("%w: winner %q", ErrUnknownVariant, *winnerVariantID)
	}
	e.Status = StatusCompleted
	t := now
	e.EndedAt = &t
	e.WinnerVariantID = winnerVariantID
	return nil
}

// Mutable reports whether the variant list and targeting rules may still
// be edited.
func (e *Experiment) Mutable() bool {
	return e.Status == StatusDraft
}
