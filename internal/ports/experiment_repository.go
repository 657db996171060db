package ports

import (
	"context"

	"github.com/variantlab/variant/internal/domain"
)

// ExperimentRepository is the durable store for experiment configuration.
// Lookups return (nil, nil) when no row matches.
type ExperimentRepository interface {
	Create(ctx context.Context, experiment *domain.Experiment) error
	GetByID(ctx context.Context, id string) (*domain.Experiment, error)
	GetByName(ctx context.Context, name string) (*domain.Experiment, error)
	List(ctx context.Context) ([]*domain.Experiment, error)
	Update(ctx context.Context, experiment *domain.Experiment) error
}
