package domain

import (
	"fmt"
	"math"
)

// VariantResult holds per-variant statistics derived from assignments and
// metric samples. Recomputed on demand; never persisted as source of truth.
type VariantResult struct {
	VariantID      string
	VariantName    string
	IsControl      bool
	Participants   int64
	Metrics        map[string]MetricAggregate
	ConversionRate float64
	Significance   float64
}

// VariantPerformance is a reporting convenience view over VariantResult:
// participants, a synthesized conversions count and the per-metric averages.
type VariantPerformance struct {
	VariantID    string
	VariantName  string
	Participants int64
	Conversions  int64
	Averages     map[string]float64
}

// ExperimentResults is the full report for one experiment.
type ExperimentResults struct {
	ExperimentID    string
	Variants        []VariantResult
	Performance     []VariantPerformance
	WinnerVariantID *string
	Recommendation  string
}

// ComputeResults folds assignment counts and metric aggregates into the
// per-variant report. participants maps variantID to assignment count;
// aggregates maps variantID to per-metric aggregates. Both views are
// eventually-consistent snapshots; no cross-read locking is assumed.
func ComputeResults(e *Experiment, participants map[string]int64, aggregates map[string]map[string]MetricAggregate) *ExperimentResults {
	results := &ExperimentResults{ExperimentID: e.ID}

	tracksConversion := e.TracksMetric(ConversionMetric)

	for _, v := range e.Variants {
		metrics := aggregates[v.ID]
		if metrics == nil {
			metrics = map[string]MetricAggregate{}
		}

		// Conversion statistics only exist when the experiment tracks the
		// conversion metric; stray samples under that name stay reportable
		// in Metrics but never drive a rate or a winner.
		var conversion MetricAggregate
		if tracksConversion {
			conversion = metrics[ConversionMetric]
		}
		vr := VariantResult{
			VariantID:      v.ID,
			VariantName:    v.Name,
			IsControl:      v.IsControl,
			Participants:   participants[v.ID],
			Metrics:        metrics,
			ConversionRate: 100 * conversion.Average(),
			Significance:   Confidence(conversion.Count),
		}
		results.Variants = append(results.Variants, vr)

		averages := make(map[string]float64, len(metrics))
		for name, agg := range metrics {
			averages[name] = agg.Average()
		}
		results.Performance = append(results.Performance, VariantPerformance{
			VariantID:    v.ID,
			VariantName:  v.Name,
			Participants: vr.Participants,
			Conversions:  int64(math.Round(vr.ConversionRate / 100 * float64(vr.Participants))),
			Averages:     averages,
		})
	}

	results.WinnerVariantID, results.Recommendation = pickWinner(e, results.Variants)
	return results
}

// WinnerConfidenceThreshold is the fixed acceptance threshold the leading
// variant's own confidence must clear before a winner is declared.
const WinnerConfidenceThreshold = 0.95

// Confidence estimates how trustworthy a variant's observed rate is as a
// monotonically increasing step function of its sample size. Deliberately a
// sample-size heuristic rather than a two-proportion hypothesis test; see
// DESIGN.md for the tradeoff.
func Confidence(sampleSize int64) float64 {
	switch {
	case sampleSize < 30:
		return 0.5
	case sampleSize < 100:
		return 0.8
	case sampleSize < 500:
		return 0.9
	default:
		return 0.95
	}
}

// RecommendationInsufficient is reported when the leading variant has not
// reached the confidence threshold.
const RecommendationInsufficient = "Continue test — insufficient data for conclusive results"

// pickWinner selects the variant with the highest conversion rate and, when
// its own confidence clears the threshold, declares it the winner with the
// percentage-point improvement over the baseline. The baseline is the control
// variant, or the first non-winning variant when no control is flagged.
func pickWinner(e *Experiment, variants []VariantResult) (*string, string) {
	if len(variants) == 0 {
		return nil, RecommendationInsufficient
	}

	leading := 0
	for i := range variants {
		if variants[i].ConversionRate > variants[leading].ConversionRate {
			leading = i
		}
	}

	winner := variants[leading]
	if winner.Significance < WinnerConfidenceThreshold {
		return nil, RecommendationInsufficient
	}

	baseline := baselineFor(e, variants, leading)
	id := winner.VariantID
	if baseline == nil {
		return &id, fmt.Sprintf("%s wins with a %.1f%% conversion rate", winner.VariantName, winner.ConversionRate)
	}
	improvement := winner.ConversionRate - baseline.ConversionRate
	return &id, fmt.Sprintf("%s improves conversion by %.1f percentage points over %s",
		winner.VariantName, improvement, baseline.VariantName)
}

func baselineFor(e *Experiment, variants []VariantResult, winnerIdx int) *VariantResult {
	if control := e.ControlVariant(); control != nil && control.ID != variants[winnerIdx].VariantID {
		for i := range variants {
			if variants[i].VariantID == control.ID {
				return &variants[i]
			}
		}
	}
	for i := range variants {
		if i != winnerIdx {
			return &variants[i]
		}
	}
	return nil
}
