package domain

import "time"

// ConversionMetric is the metric name conventionally treated as the
// conversion signal when computing results. Callers choose what "conversion"
// means for their feature; experiments that never record it simply report a
// zero conversion rate.
const ConversionMetric = "completion_rate"

// MetricSample is one observed outcome for a variant. Append-only.
type MetricSample struct {
	ExperimentID string
	VariantID    string
	MetricName   string
	Value        float64
	CallerKey    string
	RecordedAt   time.Time
}

// MetricAggregate is the online aggregate for one (variant, metric) pair.
type MetricAggregate struct {
	Count int64   `json:"count"`
	Total float64 `json:"total"`
}

// Average returns Total/Count, zero-safe.
func (a MetricAggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Total / float64(a.Count)
}
