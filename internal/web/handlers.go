package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/variantlab/variant/internal/domain"
	"github.com/variantlab/variant/internal/engine"
)

type experimentResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Feature         string           `json:"feature"`
	Status          domain.Status    `json:"status"`
	Variants        []domain.Variant `json:"variants"`
	Targeting       domain.Targeting `json:"targeting"`
	TrackedMetrics  []string         `json:"trackedMetrics,omitempty"`
	WinnerVariantID *string          `json:"winnerVariantId,omitempty"`
	StartedAt       *time.Time       `json:"startedAt,omitempty"`
	EndedAt         *time.Time       `json:"endedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type variantResponse struct {
	Assigned bool            `json:"assigned"`
	Variant  *domain.Variant `json:"variant,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

type variantResultResponse struct {
	VariantID      string                            `json:"variantId"`
	VariantName    string                            `json:"variantName"`
	IsControl      bool                              `json:"isControl"`
	Participants   int64                             `json:"participants"`
	Metrics        map[string]domain.MetricAggregate `json:"metrics,omitempty"`
	ConversionRate float64                           `json:"conversionRate"`
	Significance   float64                           `json:"significance"`
}

type variantPerformanceResponse struct {
	VariantID    string             `json:"variantId"`
	VariantName  string             `json:"variantName"`
	Participants int64              `json:"participants"`
	Conversions  int64              `json:"conversions"`
	Averages     map[string]float64 `json:"averages,omitempty"`
}

type resultsResponse struct {
	ExperimentID    string                       `json:"experimentId"`
	Variants        []variantResultResponse      `json:"variants"`
	Performance     []variantPerformanceResponse `json:"performance"`
	WinnerVariantID *string                      `json:"winner,omitempty"`
	Recommendation  string                       `json:"recommendation"`
}

type recordMetricRequest struct {
	VariantID  string  `json:"variantId"`
	MetricName string  `json:"metricName"`
	Value      float64 `json:"value"`
	CallerKey  string  `json:"callerKey,omitempty"`
}

type completeRequest struct {
	WinnerVariantID *string `json:"winnerVariantId,omitempty"`
}

func experimentToResponse(e *domain.Experiment) experimentResponse {
	return experimentResponse{
		ID:              e.ID,
		Name:            e.Name,
		Feature:         e.Feature,
		Status:          e.Status,
		Variants:        e.Variants,
		Targeting:       e.Targeting,
		TrackedMetrics:  e.TrackedMetrics,
		WinnerVariantID: e.WinnerVariantID,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
		CreatedAt:       e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidWeights),
		errors.Is(err, domain.ErrInvalidTargeting),
		errors.Is(err, domain.ErrMissingCallerKey),
		errors.Is(err, domain.ErrUnknownVariant):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrExperimentLocked),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrExperimentNotActive):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var spec engine.CreateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	exp, err := s.service.CreateExperiment(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, experimentToResponse(exp))
}

func (s *Server) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := s.service.ListExperiments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]experimentResponse, len(experiments))
	for i, e := range experiments {
		out[i] = experimentToResponse(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.GetExperiment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

func (s *Server) handleUpdateExperiment(w http.ResponseWriter, r *http.Request) {
	var patch engine.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	exp, err := s.service.UpdateExperiment(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

func (s *Server) handleStartExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.StartExperiment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

func (s *Server) handlePauseExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.PauseExperiment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

func (s *Server) handleResumeExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.service.ResumeExperiment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

func (s *Server) handleCompleteExperiment(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	exp, err := s.service.CompleteExperiment(r.Context(), r.PathValue("id"), req.WinnerVariantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, experimentToResponse(exp))
}

// handleGetVariant resolves the caller's variant. A not-targeted or inactive
// outcome is a normal response, not an error: the caller falls back to the
// feature's default behavior.
func (s *Server) handleGetVariant(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	caller := domain.CallerContext{
		UserID:   q.Get("user"),
		TenantID: q.Get("tenant"),
		Role:     q.Get("role"),
	}

	v, err := s.service.GetVariant(r.Context(), r.PathValue("id"), caller)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotTargeted):
			writeJSON(w, http.StatusOK, variantResponse{Reason: "not_targeted"})
		case errors.Is(err, domain.ErrExperimentNotActive):
			writeJSON(w, http.StatusOK, variantResponse{Reason: "experiment_not_active"})
		case errors.Is(err, domain.ErrNotAcceptingNewAssignments):
			writeJSON(w, http.StatusOK, variantResponse{Reason: "not_accepting_new_assignments"})
		default:
			writeError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, variantResponse{Assigned: true, Variant: v})
}

func (s *Server) handleRecordMetric(w http.ResponseWriter, r *http.Request) {
	var req recordMetricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := s.service.RecordMetric(r.Context(), r.PathValue("id"), req.VariantID, req.MetricName, req.Value, req.CallerKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.ComputeResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := resultsResponse{
		ExperimentID:    results.ExperimentID,
		Variants:        make([]variantResultResponse, len(results.Variants)),
		Performance:     make([]variantPerformanceResponse, len(results.Performance)),
		WinnerVariantID: results.WinnerVariantID,
		Recommendation:  results.Recommendation,
	}
	for i, v := range results.Variants {
		out.Variants[i] = variantResultResponse{
			VariantID:      v.VariantID,
			VariantName:    v.VariantName,
			IsControl:      v.IsControl,
			Participants:   v.Participants,
			Metrics:        v.Metrics,
			ConversionRate: v.ConversionRate,
			Significance:   v.Significance,
		}
	}
	for i, p := range results.Performance {
		out.Performance[i] = variantPerformanceResponse{
			VariantID:    p.VariantID,
			VariantName:  p.VariantName,
			Participants: p.Participants,
			Conversions:  p.Conversions,
			Averages:     p.Averages,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
