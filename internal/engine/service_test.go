package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/variantlab/variant/internal/domain"
)

// --- In-memory fakes ---

type fakeExperiments struct {
	mu   sync.Mutex
	byID map[string]*domain.Experiment
}

func newFakeExperiments() *fakeExperiments {
	return &fakeExperiments{byID: make(map[string]*domain.Experiment)}
}

func (f *fakeExperiments) Create(_ context.Context, e *domain.Experiment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeExperiments) GetByID(_ context.Context, id string) (*domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExperiments) GetByName(_ context.Context, name string) (*domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.Name == name {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeExperiments) List(_ context.Context) ([]*domain.Experiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Experiment, 0, len(f.byID))
	for _, e := range f.byID {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeExperiments) Update(_ context.Context, e *domain.Experiment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	rows map[string]domain.Assignment

	// beforeCreate, when set, runs inside CreateIfAbsent before the insert.
	// Tests use it to interleave a concurrent winner.
	beforeCreate func()
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[string]domain.Assignment)}
}

func ledgerKey(experimentID, callerKey string) string {
	return experimentID + "/" + callerKey
}

func (f *fakeLedger) Get(_ context.Context, experimentID, callerKey string) (*domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.rows[ledgerKey(experimentID, callerKey)]; ok {
		return &a, nil
	}
	return nil, nil
}

func (f *fakeLedger) CreateIfAbsent(_ context.Context, candidate domain.Assignment) (*domain.Assignment, bool, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey(candidate.ExperimentID, candidate.CallerKey)
	if existing, ok := f.rows[key]; ok {
		return &existing, false, nil
	}
	f.rows[key] = candidate
	return &candidate, true, nil
}

func (f *fakeLedger) CountByVariant(_ context.Context, experimentID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, a := range f.rows {
		if a.ExperimentID == experimentID {
			counts[a.VariantID]++
		}
	}
	return counts, nil
}

type fakeSamples struct {
	mu      sync.Mutex
	samples []domain.MetricSample
}

func (f *fakeSamples) Append(_ context.Context, s domain.MetricSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s)
	return nil
}

func (f *fakeSamples) AggregateByVariant(_ context.Context, experimentID string) (map[string]map[string]domain.MetricAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]domain.MetricAggregate)
	for _, s := range f.samples {
		if s.ExperimentID != experimentID {
			continue
		}
		if out[s.VariantID] == nil {
			out[s.VariantID] = make(map[string]domain.MetricAggregate)
		}
		agg := out[s.VariantID][s.MetricName]
		agg.Count++
		agg.Total += s.Value
		out[s.VariantID][s.MetricName] = agg
	}
	return out, nil
}

type fakeExporter struct {
	mu          sync.Mutex
	assignments int
	samples     int
	reports     int
}

func (f *fakeExporter) CountAssignment(context.Context, string, string) {
	f.mu.Lock()
	f.assignments++
	f.mu.Unlock()
}

func (f *fakeExporter) CountSample(context.Context, string, string) {
	f.mu.Lock()
	f.samples++
	f.mu.Unlock()
}

func (f *fakeExporter) CountReport(context.Context, string) {
	f.mu.Lock()
	f.reports++
	f.mu.Unlock()
}

func (f *fakeExporter) Close(context.Context) error { return nil }

type testEnv struct {
	svc      *Service
	ledger   *fakeLedger
	samples  *fakeSamples
	exporter *fakeExporter
}

func newTestEnv() *testEnv {
	ledger := newFakeLedger()
	samples := &fakeSamples{}
	exporter := &fakeExporter{}
	svc := NewService(newFakeExperiments(), ledger, samples, exporter, NopLogger{})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return &testEnv{svc: svc, ledger: ledger, samples: samples, exporter: exporter}
}

func fiftyFifty() []VariantSpec {
	return []VariantSpec{
		{ID: "control", Name: "control", Weight: 50, IsControl: true},
		{ID: "variant_a", Name: "variant_a", Weight: 50},
	}
}

func (env *testEnv) runningExperiment(t *testing.T, spec CreateSpec) *domain.Experiment {
	t.Helper()
	ctx := context.Background()
	e, err := env.svc.CreateExperiment(ctx, spec)
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}
	e, err = env.svc.StartExperiment(ctx, e.ID)
	if err != nil {
		t.Fatalf("StartExperiment() = %v", err)
	}
	return e
}

// --- Tests ---

func TestCreateExperiment_Weights(t *testing.T) {
	tests := []struct {
		name    string
		weights []int
		wantErr bool
	}{
		{name: "sum 100", weights: []int{50, 50}, wantErr: false},
		{name: "sum 99", weights: []int{50, 49}, wantErr: true},
		{name: "sum 101", weights: []int{50, 51}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			specs := make([]VariantSpec, len(tt.weights))
			for i, w := range tt.weights {
				specs[i] = VariantSpec{Name: fmt.Sprintf("v%d", i), Weight: w}
			}
			_, err := env.svc.CreateExperiment(context.Background(), CreateSpec{
				Name:     "checkout-flow",
				Feature:  "checkout",
				Variants: specs,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateExperiment() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidWeights) {
				t.Errorf("error = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestCreateExperiment_TargetingPercentageRange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for _, pct := range []int{-5, 101, 150} {
		p := pct
		_, err := env.svc.CreateExperiment(ctx, CreateSpec{
			Name:      "exp",
			Feature:   "f",
			Variants:  fiftyFifty(),
			Targeting: domain.Targeting{Percentage: &p},
		})
		if !errors.Is(err, domain.ErrInvalidTargeting) {
			t.Errorf("CreateExperiment(percentage=%d) = %v, want ErrInvalidTargeting", pct, err)
		}
	}

	e, err := env.svc.CreateExperiment(ctx, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}

	bad := -5
	_, err = env.svc.UpdateExperiment(ctx, e.ID, Patch{Targeting: &domain.Targeting{Percentage: &bad}})
	if !errors.Is(err, domain.ErrInvalidTargeting) {
		t.Errorf("UpdateExperiment(percentage=-5) = %v, want ErrInvalidTargeting", err)
	}

	ok := 30
	updated, err := env.svc.UpdateExperiment(ctx, e.ID, Patch{Targeting: &domain.Targeting{Percentage: &ok}})
	if err != nil {
		t.Fatalf("UpdateExperiment(percentage=30) = %v", err)
	}
	if updated.Targeting.Percentage == nil || *updated.Targeting.Percentage != 30 {
		t.Errorf("targeting percentage = %v, want 30", updated.Targeting.Percentage)
	}
}

func TestCreateExperiment_GeneratesVariantIDs(t *testing.T) {
	env := newTestEnv()
	e, err := env.svc.CreateExperiment(context.Background(), CreateSpec{
		Name:    "exp",
		Feature: "f",
		Variants: []VariantSpec{
			{Name: "a", Weight: 60},
			{Name: "b", Weight: 40},
		},
	})
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}
	if e.Variants[0].ID == "" || e.Variants[1].ID == "" {
		t.Error("variant ids not generated")
	}
	if e.Variants[0].ID == e.Variants[1].ID {
		t.Error("variant ids collide")
	}
	if e.Status != domain.StatusDraft {
		t.Errorf("status = %s, want draft", e.Status)
	}
}

func TestUpdateExperiment_LockedAfterStart(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	_, err := env.svc.UpdateExperiment(ctx, e.ID, Patch{Variants: fiftyFifty()})
	if !errors.Is(err, domain.ErrExperimentLocked) {
		t.Errorf("variant patch after start = %v, want ErrExperimentLocked", err)
	}

	pct := 50
	_, err = env.svc.UpdateExperiment(ctx, e.ID, Patch{Targeting: &domain.Targeting{Percentage: &pct}})
	if !errors.Is(err, domain.ErrExperimentLocked) {
		t.Errorf("targeting patch after start = %v, want ErrExperimentLocked", err)
	}

	// Cosmetic fields stay editable while running.
	name := "renamed"
	updated, err := env.svc.UpdateExperiment(ctx, e.ID, Patch{Name: &name})
	if err != nil {
		t.Fatalf("name patch = %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("name = %q, want renamed", updated.Name)
	}
}

func TestUpdateExperiment_DraftVariantEdit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e, err := env.svc.CreateExperiment(ctx, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}

	updated, err := env.svc.UpdateExperiment(ctx, e.ID, Patch{
		Variants: []VariantSpec{
			{ID: "a", Name: "a", Weight: 30},
			{ID: "b", Name: "b", Weight: 70},
		},
	})
	if err != nil {
		t.Fatalf("draft variant patch = %v", err)
	}
	if len(updated.Variants) != 2 || updated.Variants[1].Weight != 70 {
		t.Errorf("variants not replaced: %+v", updated.Variants)
	}

	_, err = env.svc.UpdateExperiment(ctx, e.ID, Patch{
		Variants: []VariantSpec{{ID: "a", Name: "a", Weight: 99}},
	})
	if !errors.Is(err, domain.ErrInvalidWeights) {
		t.Errorf("bad weights patch = %v, want ErrInvalidWeights", err)
	}
}

func TestCompleteExperiment_Freezes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	winner := "variant_a"
	completed, err := env.svc.CompleteExperiment(ctx, e.ID, &winner)
	if err != nil {
		t.Fatalf("CompleteExperiment() = %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}

	if _, err := env.svc.StartExperiment(ctx, e.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("start after complete = %v, want ErrInvalidTransition", err)
	}
	name := "x"
	if _, err := env.svc.UpdateExperiment(ctx, e.ID, Patch{Name: &name}); !errors.Is(err, domain.ErrExperimentLocked) {
		t.Errorf("update after complete = %v, want ErrExperimentLocked", err)
	}
}

func TestGetVariant_LifecycleGate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	caller := domain.CallerContext{UserID: "u1"}

	e, err := env.svc.CreateExperiment(ctx, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}

	if _, err := env.svc.GetVariant(ctx, e.ID, caller); !errors.Is(err, domain.ErrExperimentNotActive) {
		t.Errorf("draft GetVariant = %v, want ErrExperimentNotActive", err)
	}

	if _, err := env.svc.StartExperiment(ctx, e.ID); err != nil {
		t.Fatalf("StartExperiment() = %v", err)
	}
	v, err := env.svc.GetVariant(ctx, e.ID, caller)
	if err != nil {
		t.Fatalf("running GetVariant = %v", err)
	}

	// Paused: existing assignment keeps resolving, new callers are refused.
	if _, err := env.svc.PauseExperiment(ctx, e.ID); err != nil {
		t.Fatalf("PauseExperiment() = %v", err)
	}
	got, err := env.svc.GetVariant(ctx, e.ID, caller)
	if err != nil {
		t.Fatalf("paused GetVariant existing = %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("paused variant = %s, want %s", got.ID, v.ID)
	}
	_, err = env.svc.GetVariant(ctx, e.ID, domain.CallerContext{UserID: "fresh"})
	if !errors.Is(err, domain.ErrNotAcceptingNewAssignments) {
		t.Errorf("paused new caller = %v, want ErrNotAcceptingNewAssignments", err)
	}

	if _, err := env.svc.CompleteExperiment(ctx, e.ID, nil); err != nil {
		t.Fatalf("CompleteExperiment() = %v", err)
	}
	if _, err := env.svc.GetVariant(ctx, e.ID, caller); !errors.Is(err, domain.ErrExperimentNotActive) {
		t.Errorf("completed GetVariant = %v, want ErrExperimentNotActive", err)
	}
}

func TestGetVariant_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	for i := 0; i < 50; i++ {
		caller := domain.CallerContext{UserID: fmt.Sprintf("user-%d", i)}
		first, err := env.svc.GetVariant(ctx, e.ID, caller)
		if err != nil {
			t.Fatalf("GetVariant() = %v", err)
		}
		for j := 0; j < 5; j++ {
			again, err := env.svc.GetVariant(ctx, e.ID, caller)
			if err != nil {
				t.Fatalf("repeat GetVariant() = %v", err)
			}
			if again.ID != first.ID {
				t.Fatalf("caller %d re-bucketed: %s then %s", i, first.ID, again.ID)
			}
		}
	}
	if env.exporter.assignments != 50 {
		t.Errorf("exported %d assignments, want 50", env.exporter.assignments)
	}
}

func TestGetVariant_PercentageGate(t *testing.T) {
	tests := []struct {
		name       string
		percentage int
		wantErr    error
	}{
		{name: "percentage 0 never assigns", percentage: 0, wantErr: domain.ErrNotTargeted},
		{name: "percentage 100 always assigns", percentage: 100, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			ctx := context.Background()
			e := env.runningExperiment(t, CreateSpec{
				Name:      "exp",
				Feature:   "f",
				Variants:  fiftyFifty(),
				Targeting: domain.Targeting{Percentage: &tt.percentage},
			})

			for i := 0; i < 100; i++ {
				_, err := env.svc.GetVariant(ctx, e.ID, domain.CallerContext{UserID: fmt.Sprintf("u-%d", i)})
				if tt.wantErr == nil && err != nil {
					t.Fatalf("GetVariant() = %v, want assignment", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetVariant() = %v, want %v", err, tt.wantErr)
				}
			}

			counts, _ := env.ledger.CountByVariant(ctx, e.ID)
			total := int64(0)
			for _, c := range counts {
				total += c
			}
			want := int64(0)
			if tt.percentage == 100 {
				want = 100
			}
			if total != want {
				t.Errorf("assignments = %d, want %d", total, want)
			}
		})
	}
}

func TestGetVariant_MissingIdentity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	_, err := env.svc.GetVariant(ctx, e.ID, domain.CallerContext{Role: "admin"})
	if !errors.Is(err, domain.ErrMissingCallerKey) {
		t.Errorf("GetVariant() = %v, want ErrMissingCallerKey", err)
	}
}

// Losing the create race must adopt the concurrent winner's variant rather
// than the locally computed one.
func TestGetVariant_AdoptsRaceWinner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	local := domain.ChooseVariant(&domain.Experiment{ID: e.ID, Variants: e.Variants}, "u1")
	other := "control"
	if local.ID == "control" {
		other = "variant_a"
	}

	// A concurrent request sneaks its row in between our Get and our insert.
	env.ledger.beforeCreate = func() {
		env.ledger.beforeCreate = nil
		env.ledger.rows[ledgerKey(e.ID, "u1")] = domain.Assignment{
			ExperimentID: e.ID,
			CallerKey:    "u1",
			VariantID:    other,
		}
	}

	got, err := env.svc.GetVariant(ctx, e.ID, domain.CallerContext{UserID: "u1"})
	if err != nil {
		t.Fatalf("GetVariant() = %v", err)
	}
	if got.ID != other {
		t.Errorf("variant = %s, want race winner %s", got.ID, other)
	}
	if env.exporter.assignments != 0 {
		t.Errorf("race loser exported %d assignments, want 0", env.exporter.assignments)
	}
}

func TestGetVariant_ConcurrentFirstRequests(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})

	const workers = 32
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := env.svc.GetVariant(ctx, e.ID, domain.CallerContext{UserID: "hot-caller"})
			if err != nil {
				t.Errorf("GetVariant() = %v", err)
				return
			}
			results[i] = v.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller observed two variants: %s and %s", results[0], results[i])
		}
	}

	counts, _ := env.ledger.CountByVariant(ctx, e.ID)
	total := int64(0)
	for _, c := range counts {
		total += c
	}
	if total != 1 {
		t.Errorf("assignment rows = %d, want 1", total)
	}
}

func TestRecordMetric(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{
		Name:           "exp",
		Feature:        "f",
		Variants:       fiftyFifty(),
		TrackedMetrics: []string{domain.ConversionMetric},
	})

	if err := env.svc.RecordMetric(ctx, e.ID, "variant_a", domain.ConversionMetric, 1, "u1"); err != nil {
		t.Fatalf("RecordMetric() = %v", err)
	}
	if len(env.samples.samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(env.samples.samples))
	}
	s := env.samples.samples[0]
	if s.Value != 1 || s.VariantID != "variant_a" || s.MetricName != domain.ConversionMetric {
		t.Errorf("stored sample = %+v", s)
	}

	if err := env.svc.RecordMetric(ctx, e.ID, "ghost", domain.ConversionMetric, 1, ""); !errors.Is(err, domain.ErrUnknownVariant) {
		t.Errorf("unknown variant = %v, want ErrUnknownVariant", err)
	}

	// Untracked metric names are soft-accepted.
	if err := env.svc.RecordMetric(ctx, e.ID, "control", "exploratory_metric", 42, ""); err != nil {
		t.Errorf("untracked metric = %v, want soft accept", err)
	}
	if len(env.samples.samples) != 2 {
		t.Errorf("samples = %d, want 2", len(env.samples.samples))
	}
}

func TestRecordMetric_RequiresStartedExperiment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e, err := env.svc.CreateExperiment(ctx, CreateSpec{Name: "exp", Feature: "f", Variants: fiftyFifty()})
	if err != nil {
		t.Fatalf("CreateExperiment() = %v", err)
	}

	err = env.svc.RecordMetric(ctx, e.ID, "control", domain.ConversionMetric, 1, "")
	if !errors.Is(err, domain.ErrExperimentNotActive) {
		t.Errorf("RecordMetric() on draft = %v, want ErrExperimentNotActive", err)
	}
}

func TestRecordMetric_AllowedWhilePaused(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{
		Name:           "exp",
		Feature:        "f",
		Variants:       fiftyFifty(),
		TrackedMetrics: []string{domain.ConversionMetric},
	})
	if _, err := env.svc.PauseExperiment(ctx, e.ID); err != nil {
		t.Fatalf("PauseExperiment() = %v", err)
	}

	// Late-arriving metrics for already-assigned callers are not lost.
	if err := env.svc.RecordMetric(ctx, e.ID, "control", domain.ConversionMetric, 1, "u1"); err != nil {
		t.Errorf("RecordMetric() while paused = %v", err)
	}
}

func TestComputeResults_EndToEnd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	e := env.runningExperiment(t, CreateSpec{
		Name:           "exp",
		Feature:        "f",
		Variants:       fiftyFifty(),
		TrackedMetrics: []string{domain.ConversionMetric},
	})

	assigned := make(map[string]int64)
	for i := 0; i < 200; i++ {
		v, err := env.svc.GetVariant(ctx, e.ID, domain.CallerContext{UserID: fmt.Sprintf("u-%d", i)})
		if err != nil {
			t.Fatalf("GetVariant() = %v", err)
		}
		assigned[v.ID]++
		value := float64(i % 2)
		if err := env.svc.RecordMetric(ctx, e.ID, v.ID, domain.ConversionMetric, value, ""); err != nil {
			t.Fatalf("RecordMetric() = %v", err)
		}
	}

	results, err := env.svc.ComputeResults(ctx, e.ID)
	if err != nil {
		t.Fatalf("ComputeResults() = %v", err)
	}

	for _, vr := range results.Variants {
		if vr.Participants != assigned[vr.VariantID] {
			t.Errorf("variant %s participants = %d, want %d", vr.VariantID, vr.Participants, assigned[vr.VariantID])
		}
		agg := vr.Metrics[domain.ConversionMetric]
		if agg.Count != assigned[vr.VariantID] {
			t.Errorf("variant %s sample count = %d, want %d", vr.VariantID, agg.Count, assigned[vr.VariantID])
		}
	}
	if env.exporter.reports != 1 {
		t.Errorf("exported %d reports, want 1", env.exporter.reports)
	}
}

func TestGetExperiment_NotFound(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.GetExperiment(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetExperiment() = %v, want ErrNotFound", err)
	}
}
