package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/ports"
)

// Service orchestrates the assignment and results engine over the injected
// durable store. It holds no mutable state of its own, so a single instance
// is safe for arbitrarily many concurrent callers.
type Service struct {
	experiments ports.ExperimentRepository
	ledger      ports.AssignmentLedger
	samples     ports.MetricRepository
	exporter    ports.MetricsExporter
	logger      Logger
	now         func() time.Time
}

// NewService creates the engine service. exporter and logger may not be nil;
// pass the no-op implementations to disable them.
func NewService(
	experiments ports.ExperimentRepository,
	ledger ports.AssignmentLedger,
	samples ports.MetricRepository,
	exporter ports.MetricsExporter,
	logger Logger,
) *Service {
	return &Service{
		experiments: experiments,
		ledger:      ledger,
		samples:     samples,
		exporter:    exporter,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateExperiment validates the spec and persists a new draft experiment.
func (s *Service) CreateExperiment(ctx context.Context, spec CreateSpec) (*domain.Experiment, error) {
	e := &domain.Experiment{
		ID:             uuid.NewString(),
		Name:           spec.Name,
		Feature:        spec.Feature,
		Status:         domain.StatusDraft,
		Variants:       buildVariants(spec.Variants),
		Targeting:      spec.Targeting,
		TrackedMetrics: spec.TrackedMetrics,
		CreatedAt:      s.now(),
	}

	if err := e.ValidateVariants(); err != nil {
		return nil, err
	}
	if err := e.ValidateTargeting(); err != nil {
		return nil, err
	}

	if err := s.experiments.Create(ctx, e); err != nil {
		return nil, err
	}
	s.logger.Debug("created experiment " + e.Name)
	return e, nil
}

// UpdateExperiment applies a partial update. Variant and targeting edits are
// rejected with ErrExperimentLocked once the experiment has left draft.
func (s *Service) UpdateExperiment(ctx context.Context, id string, patch Patch) (*domain.Experiment, error) {
	e, err := s.getExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == domain.StatusCompleted {
		return nil, fmt.Errorf("%w: experiment is completed", domain.ErrExperimentLocked)
	}

	if !e.Mutable() && (patch.Variants != nil || patch.Targeting != nil) {
		return nil, domain.ErrExperimentLocked
	}

	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.Feature != nil {
		e.Feature = *patch.Feature
	}
	if patch.TrackedMetrics != nil {
		e.TrackedMetrics = patch.TrackedMetrics
	}
	if patch.Variants != nil {
		e.Variants = buildVariants(patch.Variants)
		if err := e.ValidateVariants(); err != nil {
			return nil, err
		}
	}
	if patch.Targeting != nil {
		e.Targeting = *patch.Targeting
		if err := e.ValidateTargeting(); err != nil {
			return nil, err
		}
	}

	if err := s.experiments.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// StartExperiment runs a draft experiment or resumes a paused one.
func (s *Service) StartExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.transition(ctx, id, func(e *domain.Experiment) error {
		return e.Start(s.now())
	})
}

// PauseExperiment stops new assignments while keeping existing ones live.
func (s *Service) PauseExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.transition(ctx, id, func(e *domain.Experiment) error {
		return e.Pause()
	})
}

// ResumeExperiment moves a paused experiment back to running.
func (s *Service) ResumeExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.transition(ctx, id, func(e *domain.Experiment) error {
		if e.Status != domain.StatusPaused {
			return fmt.Errorf("%w: cannot resume a %s experiment", domain.ErrInvalidTransition, e.Status)
		}
		return e.Start(s.now())
	})
}

// CompleteExperiment freezes the experiment, optionally recording a winner.
func (s *Service) CompleteExperiment(ctx context.Context, id string, winnerVariantID *string) (*domain.Experiment, error) {
	return s.transition(ctx, id, func(e *domain.Experiment) error {
		return e.Complete(winnerVariantID, s.now())
	})
}

func (s *Service) transition(ctx context.Context, id string, fn func(*domain.Experiment) error) (*domain.Experiment, error) {
	e, err := s.getExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}
	if err := s.experiments.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetExperiment returns one experiment by id.
func (s *Service) GetExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	return s.getExperiment(ctx, id)
}

// GetExperimentByName returns one experiment by name.
func (s *Service) GetExperimentByName(ctx context.Context, name string) (*domain.Experiment, error) {
	e, err := s.experiments.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, name)
	}
	return e, nil
}

// ListExperiments returns all experiments.
func (s *Service) ListExperiments(ctx context.Context) ([]*domain.Experiment, error) {
	return s.experiments.List(ctx)
}

// GetVariant resolves the caller's variant for an experiment. The first
// eligible call buckets the caller and persists the assignment; every later
// call returns the same variant. Losing the first-assignment race to a
// concurrent identical request adopts the winner's variant, so callers never
// observe two different variants for one identity.
func (s *Service) GetVariant(ctx context.Context, experimentID string, caller domain.CallerContext) (*domain.Variant, error) {
	e, err := s.getExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	switch e.Status {
	case domain.StatusRunning, domain.StatusPaused:
	default:
		return nil, fmt.Errorf("%w: status is %s", domain.ErrExperimentNotActive, e.Status)
	}

	callerKey, err := caller.Key()
	if err != nil {
		return nil, err
	}

	if !domain.IsEligible(e, callerKey, caller) {
		return nil, domain.ErrNotTargeted
	}

	existing, err := s.ledger.Get(ctx, e.ID, callerKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.variantOf(e, existing.VariantID)
	}

	if e.Status == domain.StatusPaused {
		return nil, domain.ErrNotAcceptingNewAssignments
	}

	chosen := domain.ChooseVariant(e, callerKey)
	stored, created, err := s.ledger.CreateIfAbsent(ctx, domain.Assignment{
		ExperimentID: e.ID,
		CallerKey:    callerKey,
		VariantID:    chosen.ID,
		AssignedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.exporter.CountAssignment(ctx, e.ID, stored.VariantID)
	}
	return s.variantOf(e, stored.VariantID)
}

// RecordMetric appends an outcome sample for a variant. Unknown variant ids
// are always rejected; metric names outside the tracked set are accepted and
// logged so exploratory data is not silently lost.
func (s *Service) RecordMetric(ctx context.Context, experimentID, variantID, metricName string, value float64, callerKey string) error {
	e, err := s.getExperiment(ctx, experimentID)
	if err != nil {
		return err
	}
	if e.StartedAt == nil {
		return fmt.Errorf("%w: experiment was never started", domain.ErrExperimentNotActive)
	}
	if e.VariantByID(variantID) == nil {
		return fmt.Errorf("%w: %q", domain.ErrUnknownVariant, variantID)
	}
	if !e.TracksMetric(metricName) {
		s.logger.Error(fmt.Sprintf("accepting untracked metric %q for experiment %s", metricName, e.ID))
	}

	err = s.samples.Append(ctx, domain.MetricSample{
		ExperimentID: e.ID,
		VariantID:    variantID,
		MetricName:   metricName,
		Value:        value,
		CallerKey:    callerKey,
		RecordedAt:   s.now(),
	})
	if err != nil {
		return err
	}
	s.exporter.CountSample(ctx, e.ID, metricName)
	return nil
}

// ComputeResults builds the per-variant report from the current assignment
// and sample snapshots.
func (s *Service) ComputeResults(ctx context.Context, experimentID string) (*domain.ExperimentResults, error) {
	e, err := s.getExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}

	participants, err := s.ledger.CountByVariant(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	aggregates, err := s.samples.AggregateByVariant(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	results := domain.ComputeResults(e, participants, aggregates)
	s.exporter.CountReport(ctx, e.ID)
	return results, nil
}

func (s *Service) getExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	e, err := s.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, id)
	}
	return e, nil
}

func (s *Service) variantOf(e *domain.Experiment, variantID string) (*domain.Variant, error) {
	v := e.VariantByID(variantID)
	if v == nil {
		// An assignment pointing outside the variant list means the caller
		// and engine disagree about the experiment version.
		return nil, fmt.Errorf("%w: assigned variant %q", domain.ErrUnknownVariant, variantID)
	}
	return v, nil
}

func buildVariants(specs []VariantSpec) []domain.Variant {
	variants := make([]domain.Variant, len(specs))
	for i, vs := range specs {
		id := vs.ID
		if id == "" {
			id = uuid.NewString()
		}
		variants[i] = domain.Variant{
			ID:        id,
			Name:      vs.Name,
			Weight:    vs.Weight,
			IsControl: vs.IsControl,
			Config:    vs.Config,
		}
	}
	return variants
}
