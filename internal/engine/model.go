package engine

import (
	"encoding/json"

	"github.com/variantlab/variant/internal/domain"
)

// VariantSpec describes one variant at experiment-creation time. ID is
// optional; a uuid is generated when absent. Order is significant: it is the
// order the weight walk uses during bucketing.
type VariantSpec struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Weight    int             `json:"weight"`
	IsControl bool            `json:"isControl,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// CreateSpec is the input to CreateExperiment.
type CreateSpec struct {
	Name           string           `json:"name"`
	Feature        string           `json:"feature"`
	Variants       []VariantSpec    `json:"variants"`
	Targeting      domain.Targeting `json:"targeting"`
	TrackedMetrics []string         `json:"trackedMetrics,omitempty"`
}

// Patch is a partial update for UpdateExperiment. Nil fields are left
// untouched. Variants and Targeting are rejected once the experiment has
// left draft.
type Patch struct {
	Name           *string           `json:"name,omitempty"`
	Feature        *string           `json:"feature,omitempty"`
	Variants       []VariantSpec     `json:"variants,omitempty"`
	Targeting      *domain.Targeting `json:"targeting,omitempty"`
	TrackedMetrics []string          `json:"trackedMetrics,omitempty"`
}
